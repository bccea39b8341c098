package operation

import "sync"

// Queue orders operations that may not run in parallel. The operation at
// position 0 is the one allowed to run; the rest wait in arrival order.
type Queue struct {
	mu  sync.Mutex
	ops []*Operation
}

// NewQueue creates an empty queue.
func NewQueue() *Queue {
	return &Queue{}
}

// Add appends op and returns its position.
func (q *Queue) Add(op *Operation) int {
	q.mu.Lock()
	q.ops = append(q.ops, op)
	pos := len(q.ops) - 1
	snapshot := q.snapshot()
	q.mu.Unlock()

	publish(snapshot)
	return pos
}

// Remove drops op from the queue and reports whether it was queued. The
// next operation is promoted immediately.
func (q *Queue) Remove(op *Operation) bool {
	q.mu.Lock()
	idx := q.index(op)
	if idx < 0 {
		q.mu.Unlock()
		return false
	}
	q.ops = append(q.ops[:idx], q.ops[idx+1:]...)
	snapshot := q.snapshot()
	q.mu.Unlock()

	publish(snapshot)
	return true
}

// Position returns op's position, or -1 if it is not queued.
func (q *Queue) Position(op *Operation) int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.index(op)
}

// Len returns the number of queued operations, including the running one.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.ops)
}

// Operations returns the queue contents in order.
func (q *Queue) Operations() []*Operation {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.snapshot()
}

func (q *Queue) index(op *Operation) int {
	for i, o := range q.ops {
		if o == op {
			return i
		}
	}
	return -1
}

func (q *Queue) snapshot() []*Operation {
	out := make([]*Operation, len(q.ops))
	copy(out, q.ops)
	return out
}

// publish pushes the new positions to every queued operation.
func publish(ops []*Operation) {
	for i, op := range ops {
		op.queuePositionChanged(i)
	}
}
