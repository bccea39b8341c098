package operation

import (
	"context"
	"fmt"
	"os"
	"slices"
	"sync"
	"time"

	"unipkg/internal/config"
	"unipkg/internal/executor"
	"unipkg/internal/logging"
	"unipkg/pkg/manager"
)

// Elevator runs commands with administrator rights.
type Elevator interface {
	Wrap(cmd executor.Command) (executor.Command, error)
	CacheRights(ctx context.Context, pid, minutes int) error
}

// DryRunner is implemented by runners that can print commands instead of
// starting them.
type DryRunner interface {
	DryRun() bool
}

// Option configures an Engine.
type Option func(*Engine)

// WithFailureHandler sets the handler asked whether a failed operation
// should be retried. Without one, failed operations are closed.
func WithFailureHandler(h FailureHandler) Option {
	return func(e *Engine) {
		e.failure = h
	}
}

// WithListener registers a listener at construction time.
func WithListener(l Listener) Option {
	return func(e *Engine) {
		e.listeners = append(e.listeners, l)
	}
}

// Engine creates operations and runs them against their backends.
type Engine struct {
	cfg      *config.Config
	runner   executor.Runner
	elevator Elevator
	log      *logging.Log
	queue    *Queue
	failure  FailureHandler
	pid      int

	mu             sync.Mutex
	listeners      []Listener
	active         []*Operation
	history        []*Operation
	rightsCachedAt time.Time
}

// NewEngine creates an engine. elevator may be nil when elevation is never
// needed.
func NewEngine(cfg *config.Config, runner executor.Runner, elevator Elevator, log *logging.Log, opts ...Option) *Engine {
	if cfg == nil {
		cfg = config.Default()
	}
	if log == nil {
		log = logging.Nop()
	}
	e := &Engine{
		cfg:      cfg,
		runner:   runner,
		elevator: elevator,
		log:      log,
		queue:    NewQueue(),
		pid:      os.Getpid(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Queue returns the engine's queue.
func (e *Engine) Queue() *Queue {
	return e.queue
}

// AddListener registers l for every later event.
func (e *Engine) AddListener(l Listener) {
	e.mu.Lock()
	e.listeners = append(e.listeners, l)
	e.mu.Unlock()
}

// NewOperation creates an operation for p. Its options are the backend's
// configured defaults overlaid with the package's own overrides, stripped
// of anything the backend does not support.
func (e *Engine) NewOperation(kind manager.OperationType, p *manager.Package) *Operation {
	return e.NewOperationWithOptions(kind, p, manager.InstallationOptions{})
}

// NewOperationWithOptions is NewOperation with extra options laid over the
// package's overrides. They apply to this operation only and are never
// saved on the package.
func (e *Engine) NewOperationWithOptions(kind manager.OperationType, p *manager.Package, extra manager.InstallationOptions) *Operation {
	mc := e.cfg.GetManagerConfig(p.ManagerName())
	defaults := manager.InstallationOptions{CustomParameters: slices.Clone(mc.CustomParameters)}
	opts := defaults.Merge(p.OverriddenOptions()).Merge(extra).Sanitize(p.Manager.Capabilities())
	return newOperation(e, kind, p, opts)
}

// Install creates an install operation.
func (e *Engine) Install(p *manager.Package) *Operation {
	return e.NewOperation(manager.OpInstall, p)
}

// Update creates an update operation.
func (e *Engine) Update(p *manager.Package) *Operation {
	return e.NewOperation(manager.OpUpdate, p)
}

// Uninstall creates an uninstall operation.
func (e *Engine) Uninstall(p *manager.Package) *Operation {
	return e.NewOperation(manager.OpUninstall, p)
}

// RunAll starts ops in order and waits for all of them. When the batch
// policy asks for it, elevation is cached once up front.
func (e *Engine) RunAll(ctx context.Context, ops []*Operation) []Status {
	if len(ops) > 1 && e.cfg.General.DoCacheAdminRightsForBatches && !e.dryRun() && e.anyElevated(ops) {
		e.cacheRights(ctx)
	}

	for _, op := range ops {
		if err := op.Start(ctx); err != nil {
			e.log.Warn("could not start %s of %s: %v", op.kind, op.pkg.ID, err)
		}
	}

	statuses := make([]Status, len(ops))
	for i, op := range ops {
		statuses[i] = op.Wait()
	}
	return statuses
}

// Active returns the operations that have started but not finished.
func (e *Engine) Active() []*Operation {
	e.mu.Lock()
	defer e.mu.Unlock()
	return slices.Clone(e.active)
}

// History returns finished operations, oldest first, capped at the
// configured history limit.
func (e *Engine) History() []*Operation {
	e.mu.Lock()
	defer e.mu.Unlock()
	return slices.Clone(e.history)
}

func (e *Engine) track(op *Operation) {
	e.mu.Lock()
	e.active = append(e.active, op)
	e.mu.Unlock()
}

func (e *Engine) retire(op *Operation) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if i := slices.Index(e.active, op); i >= 0 {
		e.active = slices.Delete(e.active, i, i+1)
	}
	e.history = append(e.history, op)
	if limit := e.cfg.General.OperationHistoryLimit; limit > 0 && len(e.history) > limit {
		e.history = slices.Clone(e.history[len(e.history)-limit:])
	}
}

func (e *Engine) emit(ev Event) {
	e.mu.Lock()
	listeners := slices.Clone(e.listeners)
	e.mu.Unlock()

	for _, l := range listeners {
		l.OperationChanged(ev)
	}
}

// dryRun reports whether the runner only simulates processes.
func (e *Engine) dryRun() bool {
	d, ok := e.runner.(DryRunner)
	return ok && d.DryRun()
}

func (e *Engine) elevated(op *Operation, opts manager.InstallationOptions) bool {
	return opts.RunAsAdministrator || e.cfg.AlwaysElevate(op.pkg.ManagerName())
}

func (e *Engine) anyElevated(ops []*Operation) bool {
	for _, op := range ops {
		if e.elevated(op, op.Options()) {
			return true
		}
	}
	return false
}

// cacheRights asks the elevation helper to remember the grant. A grant
// still within its validity window is reused.
func (e *Engine) cacheRights(ctx context.Context) {
	if e.elevator == nil {
		return
	}
	minutes := e.cfg.General.AdminRightsCacheMinutes

	e.mu.Lock()
	fresh := !e.rightsCachedAt.IsZero() && time.Since(e.rightsCachedAt) < time.Duration(minutes)*time.Minute
	e.mu.Unlock()
	if fresh {
		return
	}

	if err := e.elevator.CacheRights(ctx, e.pid, minutes); err != nil {
		e.log.Warn("could not cache administrator rights: %v", err)
		return
	}
	e.mu.Lock()
	e.rightsCachedAt = time.Now()
	e.mu.Unlock()
}

// execute runs the backend process once and classifies the result. Panics
// in the backend's parameter builder or verdict function become errors.
func (e *Engine) execute(ctx context.Context, op *Operation) (res manager.Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("backend %s panicked: %v", op.pkg.ManagerName(), r)
		}
	}()

	m := op.pkg.Manager
	opts := op.Options()
	props := m.Properties()

	args := manager.Parameters(m, op.kind, op.pkg, opts)
	cmd := executor.Command{
		Path: m.ExecutablePath(),
		Args: append(slices.Clone(props.ExecutableCallArgs), args...),
	}

	simulated := e.dryRun()

	if e.elevated(op, opts) {
		if e.elevator == nil {
			return res, executor.ErrNoPrivileges
		}
		if e.cfg.CacheAdminRights() && !simulated {
			e.cacheRights(ctx)
		}
		if cmd, err = e.elevator.Wrap(cmd); err != nil {
			return res, err
		}
	}

	op.appendOutput(
		fmt.Sprintf("Starting package %s operation for package id=%s with Manager name=%s", op.kind, op.pkg.ID, m.Name()),
		"Given options: "+opts.String(),
		"Executing process: "+cmd.String(),
	)
	e.log.Info("%s %s with %s", op.kind, op.pkg.ID, m.Name())
	e.log.Debug("executing %s", cmd)

	op.mu.Lock()
	op.runs++
	op.mu.Unlock()

	var processOutput []string
	code, err := e.runner.Run(ctx, cmd, func(line string) {
		processOutput = append(processOutput, line)
		op.appendOutput(line)
	})
	if err != nil {
		return res, err
	}

	op.appendOutput(fmt.Sprintf("Process exited with code %d", code))

	// Nothing ran, so there is no output to judge.
	if simulated {
		op.mu.Lock()
		op.simulated = true
		op.mu.Unlock()
		op.appendOutput("Dry run: the process was not started")
		return manager.Result{Verdict: manager.VerdictSucceeded, Options: opts, Scope: op.pkg.Scope()}, nil
	}

	res = manager.Classify(m, op.kind, op.pkg, opts, code, processOutput)
	if res.Verdict == manager.VerdictFailed {
		if d, ok := m.(manager.Diagnoser); ok {
			if msg := d.Diagnose(processOutput); msg != "" {
				op.appendOutput(msg)
				e.log.Warn("%s", msg)
			}
		}
	}
	return res, nil
}
