package operation

// EventKind is an operation lifecycle notification.
type EventKind int

const (
	EventQueued EventKind = iota
	EventStarted
	EventRetrying
	EventSucceeded
	EventFailed
	EventCancelled
)

// String returns the event name.
func (k EventKind) String() string {
	switch k {
	case EventQueued:
		return "queued"
	case EventStarted:
		return "started"
	case EventRetrying:
		return "retrying"
	case EventSucceeded:
		return "succeeded"
	case EventFailed:
		return "failed"
	case EventCancelled:
		return "cancelled"
	}
	return "unknown"
}

// Event is delivered to listeners on every lifecycle transition.
type Event struct {
	Kind EventKind
	Op   *Operation
}

// Listener receives operation events. Listeners are called synchronously
// from the operation's goroutine and must not block.
type Listener interface {
	OperationChanged(ev Event)
}

// ListenerFunc adapts a function to the Listener interface.
type ListenerFunc func(ev Event)

// OperationChanged calls f.
func (f ListenerFunc) OperationChanged(ev Event) {
	f(ev)
}

// Action is the caller's answer to a failed operation.
type Action int

const (
	ActionClose Action = iota
	ActionRetry
)

// FailureHandler decides what happens after an operation fails. Retrying
// resets the auto-retry budget.
type FailureHandler func(op *Operation) Action
