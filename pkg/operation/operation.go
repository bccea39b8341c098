// Package operation runs install, update and uninstall operations through
// their backend, one at a time unless parallel runs are allowed.
package operation

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"unipkg/pkg/manager"
)

var (
	// ErrCancelled is reported by operations that were cancelled.
	ErrCancelled = errors.New("operation cancelled")

	// ErrAlreadyStarted is returned when Start is called twice.
	ErrAlreadyStarted = errors.New("operation already started")
)

// Status is the externally visible state of an operation.
type Status int

const (
	StatusNotStarted Status = iota
	StatusInQueue
	StatusRunning
	StatusSucceeded
	StatusFailed
	StatusCancelled
)

// String returns the status name.
func (s Status) String() string {
	switch s {
	case StatusNotStarted:
		return "not-started"
	case StatusInQueue:
		return "queued"
	case StatusRunning:
		return "running"
	case StatusSucceeded:
		return "succeeded"
	case StatusFailed:
		return "failed"
	case StatusCancelled:
		return "cancelled"
	}
	return "unknown"
}

// IsTerminal reports whether no further transition can happen.
func (s Status) IsTerminal() bool {
	return s == StatusSucceeded || s == StatusFailed || s == StatusCancelled
}

// Operation is one install, update or uninstall of a package. Create
// operations with Engine.NewOperation.
type Operation struct {
	id     string
	kind   manager.OperationType
	pkg    *manager.Package
	engine *Engine
	done   chan struct{}

	mu          sync.Mutex
	status      Status
	options     manager.InstallationOptions
	output      []string
	line        string
	autoRetries int
	runs        int
	simulated   bool
	created     time.Time
	started     time.Time
	finished    time.Time
	cancel      context.CancelFunc
	err         error
}

func newOperation(e *Engine, kind manager.OperationType, p *manager.Package, opts manager.InstallationOptions) *Operation {
	return &Operation{
		id:      uuid.NewString(),
		kind:    kind,
		pkg:     p,
		engine:  e,
		done:    make(chan struct{}),
		options: opts,
		created: time.Now(),
	}
}

// ID returns the unique operation id.
func (op *Operation) ID() string { return op.id }

// Type returns the operation type.
func (op *Operation) Type() manager.OperationType { return op.kind }

// Package returns the package being operated on.
func (op *Operation) Package() *manager.Package { return op.pkg }

// Status returns the current status.
func (op *Operation) Status() Status {
	op.mu.Lock()
	defer op.mu.Unlock()
	return op.status
}

// Options returns the options the next or current run uses. Auto-retries
// may change them; the package's own overrides are never touched.
func (op *Operation) Options() manager.InstallationOptions {
	op.mu.Lock()
	defer op.mu.Unlock()
	return op.options.Clone()
}

// Output returns every line logged for the operation so far, including
// the process output of every run.
func (op *Operation) Output() []string {
	op.mu.Lock()
	defer op.mu.Unlock()
	return slices.Clone(op.output)
}

// StatusLine returns a short human-readable description of the state.
func (op *Operation) StatusLine() string {
	op.mu.Lock()
	defer op.mu.Unlock()
	return op.line
}

// Runs returns how many times the backend process was started.
func (op *Operation) Runs() int {
	op.mu.Lock()
	defer op.mu.Unlock()
	return op.runs
}

// Simulated reports whether the operation ran on a dry-run runner. Such
// operations never touched the system.
func (op *Operation) Simulated() bool {
	op.mu.Lock()
	defer op.mu.Unlock()
	return op.simulated
}

// Err returns the error that ended the operation, if any.
func (op *Operation) Err() error {
	op.mu.Lock()
	defer op.mu.Unlock()
	return op.err
}

// Created returns when the operation was created.
func (op *Operation) Created() time.Time {
	return op.created
}

// Duration returns how long the operation ran. It is zero until the
// operation finishes.
func (op *Operation) Duration() time.Duration {
	op.mu.Lock()
	defer op.mu.Unlock()
	if op.finished.IsZero() || op.started.IsZero() {
		return 0
	}
	return op.finished.Sub(op.started)
}

// Done is closed once the operation reaches a terminal status.
func (op *Operation) Done() <-chan struct{} {
	return op.done
}

// Wait blocks until the operation finishes and returns its final status.
func (op *Operation) Wait() Status {
	<-op.done
	return op.Status()
}

// Start admits the operation: into the queue, or straight to running when
// parallel runs are allowed for its backend. It returns immediately; the
// operation runs in its own goroutine.
func (op *Operation) Start(ctx context.Context) error {
	e := op.engine
	parallel := e.cfg.ParallelAllowed(op.pkg.ManagerName())

	op.mu.Lock()
	if op.status != StatusNotStarted {
		op.mu.Unlock()
		return ErrAlreadyStarted
	}
	ctx, op.cancel = context.WithCancel(ctx)
	if parallel {
		op.status = StatusRunning
	} else {
		op.status = StatusInQueue
		op.line = "Operation on queue"
	}
	op.mu.Unlock()

	e.track(op)

	if !parallel {
		op.pkg.SetTag(manager.TagOnQueue)
		e.queue.Add(op)
		e.emit(Event{Kind: EventQueued, Op: op})
	}

	go op.run(ctx, !parallel)
	return nil
}

// Run starts the operation and waits for it.
func (op *Operation) Run(ctx context.Context) Status {
	if err := op.Start(ctx); err != nil {
		return op.Status()
	}
	return op.Wait()
}

// Cancel stops the operation. A queued operation leaves the queue without
// ever starting a process; a running one has its process killed.
func (op *Operation) Cancel() {
	op.mu.Lock()
	if op.status == StatusNotStarted {
		op.status = StatusCancelled
		op.line = "Operation cancelled"
		op.err = ErrCancelled
		op.mu.Unlock()
		close(op.done)
		return
	}
	cancel := op.cancel
	op.mu.Unlock()

	if cancel != nil {
		cancel()
	}
}

func (op *Operation) queuePositionChanged(pos int) {
	op.mu.Lock()
	defer op.mu.Unlock()
	if op.status == StatusInQueue && pos > 0 {
		op.line = fmt.Sprintf("Operation on queue (position %d)...", pos)
	}
}

func (op *Operation) setStatus(s Status, line string) {
	op.mu.Lock()
	op.status = s
	op.line = line
	switch {
	case s == StatusRunning && op.started.IsZero():
		op.started = time.Now()
	case s.IsTerminal():
		op.finished = time.Now()
	}
	op.mu.Unlock()
}

func (op *Operation) appendOutput(lines ...string) {
	op.mu.Lock()
	op.output = append(op.output, lines...)
	op.mu.Unlock()
}

// waitForTurn polls the queue until the operation reaches the front. It
// returns false if ctx ends first.
func (op *Operation) waitForTurn(ctx context.Context) bool {
	q := op.engine.queue
	ticker := time.NewTicker(op.engine.cfg.General.QueuePollInterval.Duration)
	defer ticker.Stop()

	for {
		if ctx.Err() != nil {
			return false
		}
		if q.Position(op) == 0 {
			return true
		}
		select {
		case <-ctx.Done():
			return false
		case <-ticker.C:
		}
	}
}

func (op *Operation) run(ctx context.Context, queued bool) {
	e := op.engine
	defer close(op.done)
	defer op.cancel()

	if queued {
		defer e.queue.Remove(op)
		if !op.waitForTurn(ctx) {
			op.finish(StatusCancelled, ErrCancelled)
			return
		}
	}

	for {
		op.setStatus(StatusRunning, fmt.Sprintf("%s is being %s", op.pkg.Name, pastTense(op.kind)))
		op.pkg.SetTag(manager.TagBeingProcessed)
		e.emit(Event{Kind: EventStarted, Op: op})

		res, err := e.execute(ctx, op)

		if ctx.Err() != nil {
			op.appendOutput("Operation cancelled by user")
			op.finish(StatusCancelled, ErrCancelled)
			return
		}

		if err != nil {
			op.appendOutput(err.Error())
			e.log.Err(err, "%s of %s could not run", op.kind, op.pkg.ID)
			res = manager.Result{Verdict: manager.VerdictFailed, Options: op.Options(), Scope: op.pkg.Scope()}
		}

		if res.Verdict == manager.VerdictAutoRetry {
			if op.autoRetry(res) {
				continue
			}
			res.Verdict = manager.VerdictFailed
		}

		if res.Verdict == manager.VerdictSucceeded {
			op.finish(StatusSucceeded, nil)
			return
		}

		op.pkg.SetTag(manager.TagFailed)
		op.setStatus(StatusFailed, fmt.Sprintf("%s %s failed", op.pkg.Name, noun(op.kind)))
		if e.failure != nil && e.failure(op) == ActionRetry {
			op.mu.Lock()
			op.autoRetries = 0
			op.mu.Unlock()
			op.appendOutput("Retrying operation at the user's request")
			continue
		}

		op.finish(StatusFailed, fmt.Errorf("%s of %s failed", op.kind, op.pkg.ID))
		return
	}
}

// autoRetry applies the backend's adjusted options and scope. It returns
// false once the retry budget is spent.
func (op *Operation) autoRetry(res manager.Result) bool {
	e := op.engine
	limit := e.cfg.General.MaxAutoRetries

	op.mu.Lock()
	if op.autoRetries >= limit {
		op.mu.Unlock()
		op.appendOutput(fmt.Sprintf("Giving up after %d automatic retries", limit))
		e.log.Warn("%s of %s: giving up after %d automatic retries", op.kind, op.pkg.ID, limit)
		return false
	}
	op.autoRetries++
	attempt := op.autoRetries
	op.options = res.Options.Clone().Sanitize(op.pkg.Manager.Capabilities())
	op.mu.Unlock()

	if res.Scope != op.pkg.Scope() {
		op.pkg.SetScope(res.Scope)
	}

	op.appendOutput(fmt.Sprintf("Retrying with adjusted options (attempt %d of %d): %s scope=%q",
		attempt, limit, res.Options, res.Scope))
	e.log.Info("%s of %s: backend asked for a retry (%d/%d)", op.kind, op.pkg.ID, attempt, limit)
	e.emit(Event{Kind: EventRetrying, Op: op})
	return true
}

func (op *Operation) finish(s Status, err error) {
	e := op.engine
	name := op.pkg.Name

	var (
		line string
		kind EventKind
	)
	switch s {
	case StatusSucceeded:
		line = fmt.Sprintf("%s was %s successfully", name, pastTense(op.kind))
		kind = EventSucceeded
		if op.Simulated() {
			line = fmt.Sprintf("%s would have been %s (dry run)", name, pastTense(op.kind))
			op.pkg.SetTag(manager.TagDefault)
			e.log.Info("dry run: %s of %s", op.kind, op.pkg)
			break
		}
		if op.kind == manager.OpInstall {
			op.pkg.SetTag(manager.TagAlreadyInstalled)
		} else {
			op.pkg.SetTag(manager.TagDefault)
		}
		e.log.Success("%s was %s successfully", op.pkg, pastTense(op.kind))
	case StatusCancelled:
		line = "Operation cancelled"
		kind = EventCancelled
		op.pkg.SetTag(manager.TagDefault)
		e.log.Info("%s of %s was cancelled", op.kind, op.pkg)
	default:
		line = fmt.Sprintf("%s %s failed", name, noun(op.kind))
		kind = EventFailed
		op.pkg.SetTag(manager.TagFailed)
		e.log.Error("%s of %s failed", op.kind, op.pkg)
	}

	op.mu.Lock()
	op.err = err
	op.mu.Unlock()
	op.setStatus(s, line)

	e.retire(op)
	e.emit(Event{Kind: kind, Op: op})
}

func pastTense(kind manager.OperationType) string {
	switch kind {
	case manager.OpInstall:
		return "installed"
	case manager.OpUpdate:
		return "updated"
	case manager.OpUninstall:
		return "uninstalled"
	}
	return string(kind)
}

func noun(kind manager.OperationType) string {
	switch kind {
	case manager.OpInstall:
		return "installation"
	case manager.OpUpdate:
		return "update"
	case manager.OpUninstall:
		return "uninstallation"
	}
	return string(kind)
}
