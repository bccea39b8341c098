package operation

import (
	"context"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"unipkg/internal/config"
	"unipkg/internal/executor"
	"unipkg/internal/logging"
	"unipkg/pkg/manager"
	"unipkg/pkg/manager/managertest"
	"unipkg/pkg/manager/native"
)

func testConfig() *config.Config {
	cfg := config.Default()
	cfg.General.QueuePollInterval = config.Duration{Duration: time.Millisecond}
	return cfg
}

// gatedRunner blocks the runs of gated package ids until released and
// records the order in which runs start. The package id is the last
// argument of the command.
type gatedRunner struct {
	mu      sync.Mutex
	started []string
	cmds    []executor.Command
	gates   map[string]chan struct{}
	startCh chan string
}

func newGatedRunner(gated ...string) *gatedRunner {
	r := &gatedRunner{gates: make(map[string]chan struct{}), startCh: make(chan string, 16)}
	for _, id := range gated {
		r.gates[id] = make(chan struct{})
	}
	return r
}

func (r *gatedRunner) Run(ctx context.Context, cmd executor.Command, onLine func(string)) (int, error) {
	id := cmd.Args[len(cmd.Args)-1]
	r.mu.Lock()
	r.started = append(r.started, id)
	r.cmds = append(r.cmds, cmd)
	gate := r.gates[id]
	r.mu.Unlock()
	r.startCh <- id

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return -1, ctx.Err()
		}
	}
	onLine("done " + id)
	return 0, nil
}

func (r *gatedRunner) release(id string) {
	close(r.gates[id])
}

func (r *gatedRunner) order() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.started...)
}

func (r *gatedRunner) waitStarted(t *testing.T, id string) {
	t.Helper()
	select {
	case got := <-r.startCh:
		require.Equal(t, id, got)
	case <-time.After(5 * time.Second):
		t.Fatalf("%s never started", id)
	}
}

// fakeElevator prefixes commands with "sudo" and counts cache requests.
type fakeElevator struct {
	mu     sync.Mutex
	cached int
}

func (f *fakeElevator) Wrap(cmd executor.Command) (executor.Command, error) {
	return executor.Command{Path: "sudo", Args: append([]string{cmd.Path}, cmd.Args...)}, nil
}

func (f *fakeElevator) CacheRights(context.Context, int, int) error {
	f.mu.Lock()
	f.cached++
	f.mu.Unlock()
	return nil
}

func TestQueueRunsInArrivalOrder(t *testing.T) {
	fake := managertest.New("fake")
	runner := newGatedRunner("a")
	e := NewEngine(testConfig(), runner, nil, logging.Nop())
	ctx := context.Background()

	a := e.Install(fake.Package("a", "1"))
	b := e.Install(fake.Package("b", "1"))
	c := e.Install(fake.Package("c", "1"))
	require.NoError(t, a.Start(ctx))
	require.NoError(t, b.Start(ctx))
	require.NoError(t, c.Start(ctx))

	runner.waitStarted(t, "a")
	assert.Equal(t, StatusRunning, a.Status())
	assert.Equal(t, StatusInQueue, b.Status())
	assert.Equal(t, "Operation on queue (position 1)...", b.StatusLine())
	assert.Equal(t, "Operation on queue (position 2)...", c.StatusLine())
	assert.Equal(t, manager.TagOnQueue, c.Package().Tag())

	b.Cancel()
	assert.Equal(t, StatusCancelled, b.Wait())
	assert.ErrorIs(t, b.Err(), ErrCancelled)
	assert.Zero(t, b.Runs())
	assert.Equal(t, "Operation on queue (position 1)...", c.StatusLine())

	runner.release("a")
	assert.Equal(t, StatusSucceeded, a.Wait())
	assert.Equal(t, StatusSucceeded, c.Wait())

	assert.Equal(t, []string{"a", "c"}, runner.order())
	assert.Zero(t, e.Queue().Len())
	assert.Equal(t, "c was installed successfully", c.StatusLine())
	assert.Equal(t, manager.TagAlreadyInstalled, c.Package().Tag())
}

func TestParallelInstallsBypassQueue(t *testing.T) {
	fake := managertest.New("fake")
	runner := newGatedRunner("a", "b")
	cfg := testConfig()
	cfg.Managers["fake"] = config.ManagerConfig{AllowParallelInstalls: true}
	e := NewEngine(cfg, runner, nil, nil)
	ctx := context.Background()

	a := e.Install(fake.Package("a", "1"))
	b := e.Install(fake.Package("b", "1"))
	require.NoError(t, a.Start(ctx))
	require.NoError(t, b.Start(ctx))

	// Both run although neither has finished.
	got := []string{<-runner.startCh, <-runner.startCh}
	assert.ElementsMatch(t, []string{"a", "b"}, got)
	assert.Zero(t, e.Queue().Len())

	runner.release("a")
	runner.release("b")
	assert.Equal(t, StatusSucceeded, a.Wait())
	assert.Equal(t, StatusSucceeded, b.Wait())
}

func TestCancelRunning(t *testing.T) {
	fake := managertest.New("fake")
	runner := newGatedRunner("a")
	e := NewEngine(testConfig(), runner, nil, nil)

	op := e.Uninstall(fake.Package("a", "1"))
	require.NoError(t, op.Start(context.Background()))
	runner.waitStarted(t, "a")

	op.Cancel()
	assert.Equal(t, StatusCancelled, op.Wait())
	assert.Equal(t, "Operation cancelled", op.StatusLine())
}

func TestCancelBeforeStart(t *testing.T) {
	fake := managertest.New("fake")
	e := NewEngine(testConfig(), newGatedRunner(), nil, nil)

	op := e.Install(fake.Package("a", "1"))
	op.Cancel()
	assert.Equal(t, StatusCancelled, op.Wait())
	assert.ErrorIs(t, op.Start(context.Background()), ErrAlreadyStarted)
}

func TestAutoRetryIsBounded(t *testing.T) {
	fake := managertest.New("fake")
	fake.VerdictFunc = func(_ manager.OperationType, p *manager.Package, opts manager.InstallationOptions, _ int, _ []string) manager.Result {
		return manager.Result{Verdict: manager.VerdictAutoRetry, Options: opts, Scope: p.Scope()}
	}
	cfg := testConfig()
	cfg.General.MaxAutoRetries = 3
	e := NewEngine(cfg, newGatedRunner(), nil, nil)

	op := e.Install(fake.Package("a", "1"))
	assert.Equal(t, StatusFailed, op.Run(context.Background()))
	assert.Equal(t, 4, op.Runs())
	assert.Equal(t, manager.TagFailed, op.Package().Tag())
	assert.Equal(t, "a installation failed", op.StatusLine())
}

func TestFailureHandlerRetry(t *testing.T) {
	fake := managertest.New("fake")
	var calls int
	fake.VerdictFunc = func(_ manager.OperationType, p *manager.Package, opts manager.InstallationOptions, _ int, _ []string) manager.Result {
		calls++
		if calls == 1 {
			return manager.Result{Verdict: manager.VerdictFailed, Options: opts, Scope: p.Scope()}
		}
		return manager.Result{Verdict: manager.VerdictSucceeded, Options: opts, Scope: p.Scope()}
	}

	var asked int
	handler := func(op *Operation) Action {
		asked++
		assert.Equal(t, StatusFailed, op.Status())
		return ActionRetry
	}
	e := NewEngine(testConfig(), newGatedRunner(), nil, nil, WithFailureHandler(handler))

	op := e.Update(fake.Package("a", "1"))
	assert.Equal(t, StatusSucceeded, op.Run(context.Background()))
	assert.Equal(t, 1, asked)
	assert.Equal(t, 2, op.Runs())
	assert.Equal(t, manager.TagDefault, op.Package().Tag())
}

func TestScoopAdminRetryScenario(t *testing.T) {
	scoop := native.NewScoop()
	p := manager.NewPackage("Git", "git", "2.40", scoop.SourceOrDefault("main"), scoop, manager.ScopeGlobal)

	var cmds []executor.Command
	runner := executor.RunnerFunc(func(_ context.Context, cmd executor.Command, onLine func(string)) (int, error) {
		cmds = append(cmds, cmd)
		if len(cmds) == 1 {
			onLine("ERROR: This operation requires admin rights.")
			return 1, nil
		}
		onLine("'git' was uninstalled.")
		return 0, nil
	})
	elevator := &fakeElevator{}
	e := NewEngine(testConfig(), runner, elevator, nil)

	op := e.Uninstall(p)
	assert.Equal(t, StatusSucceeded, op.Run(context.Background()))

	require.Len(t, cmds, 2)
	assert.NotEqual(t, "sudo", cmds[0].Path)
	assert.Equal(t, "sudo", cmds[1].Path)
	assert.True(t, op.Options().RunAsAdministrator)
	assert.False(t, p.OverriddenOptions().RunAsAdministrator, "retry options stay on the operation")

	output := strings.Join(op.Output(), "\n")
	assert.Contains(t, output, "Starting package uninstall operation for package id=git with Manager name=scoop")
	assert.Contains(t, output, "requires admin rights")
	assert.Contains(t, output, "was uninstalled")
}

func TestScoopScopeRetryScenario(t *testing.T) {
	scoop := native.NewScoop()
	p := manager.NewPackage("Git", "git", "2.40", scoop.SourceOrDefault("main"), scoop, manager.ScopeUser)

	var cmds []executor.Command
	runner := executor.RunnerFunc(func(_ context.Context, cmd executor.Command, onLine func(string)) (int, error) {
		cmds = append(cmds, cmd)
		if len(cmds) == 1 {
			onLine("ERROR 'git' isn't installed for your account. Try again with the --global (or -g) flag instead.")
			return 1, nil
		}
		onLine("'git' was uninstalled.")
		return 0, nil
	})
	e := NewEngine(testConfig(), runner, &fakeElevator{}, nil)

	assert.Equal(t, StatusSucceeded, e.Uninstall(p).Run(context.Background()))
	require.Len(t, cmds, 2)
	assert.NotContains(t, cmds[0].Args, "--global")
	assert.Contains(t, cmds[1].Args, "--global")
	assert.Equal(t, manager.ScopeGlobal, p.Scope())
}

func TestElevationPolicy(t *testing.T) {
	fake := managertest.New("fake")
	fake.Caps.CanRunAsAdmin = true
	runner := newGatedRunner()
	elevator := &fakeElevator{}

	cfg := testConfig()
	cfg.General.DoCacheAdminRights = true
	cfg.General.AdminRightsCacheMinutes = 5
	cfg.Managers["fake"] = config.ManagerConfig{AlwaysElevate: true}
	e := NewEngine(cfg, runner, elevator, nil)

	ops := []*Operation{e.Install(fake.Package("a", "1")), e.Install(fake.Package("b", "1"))}
	assert.Equal(t, []Status{StatusSucceeded, StatusSucceeded}, e.RunAll(context.Background(), ops))

	for _, cmd := range runner.cmds {
		assert.Equal(t, "sudo", cmd.Path)
		assert.Equal(t, "fake", cmd.Args[0])
	}
	assert.Equal(t, 1, elevator.cached, "a fresh grant is reused")
}

func TestElevationWithoutHelperFails(t *testing.T) {
	fake := managertest.New("fake")
	fake.Caps.CanRunAsAdmin = true
	p := fake.Package("a", "1")
	p.SetOverriddenOptions(manager.InstallationOptions{RunAsAdministrator: true})
	runner := newGatedRunner()
	e := NewEngine(testConfig(), runner, nil, nil)

	op := e.Install(p)
	assert.Equal(t, StatusFailed, op.Run(context.Background()))
	assert.Empty(t, runner.order())
	assert.Contains(t, strings.Join(op.Output(), "\n"), "root privileges")
}

func TestOptionsMergeAndSanitize(t *testing.T) {
	fake := managertest.New("fake")
	fake.Caps.SupportsCustomVersions = true
	cfg := testConfig()
	cfg.Managers["fake"] = config.ManagerConfig{CustomParameters: []string{"--quiet"}}
	e := NewEngine(cfg, newGatedRunner(), nil, nil)

	p := fake.Package("a", "1")
	p.SetOverriddenOptions(manager.InstallationOptions{
		Version:            "0.9",
		RunAsAdministrator: true,
		CustomParameters:   []string{"--force"},
	})

	opts := e.Install(p).Options()
	assert.Equal(t, "0.9", opts.Version)
	assert.False(t, opts.RunAsAdministrator, "backend cannot run as admin")
	assert.Equal(t, []string{"--quiet", "--force"}, opts.CustomParameters)
}

func TestBackendPanicBecomesFailure(t *testing.T) {
	fake := managertest.New("fake")
	fake.VerdictFunc = func(manager.OperationType, *manager.Package, manager.InstallationOptions, int, []string) manager.Result {
		panic("unexpected output")
	}
	e := NewEngine(testConfig(), newGatedRunner(), nil, nil)

	op := e.Install(fake.Package("a", "1"))
	assert.Equal(t, StatusFailed, op.Run(context.Background()))
	assert.Contains(t, strings.Join(op.Output(), "\n"), "panicked: unexpected output")
}

func TestListenersAndHistory(t *testing.T) {
	fake := managertest.New("fake")
	cfg := testConfig()
	cfg.General.OperationHistoryLimit = 2

	var (
		mu    sync.Mutex
		kinds []EventKind
	)
	e := NewEngine(cfg, newGatedRunner(), nil, nil, WithListener(ListenerFunc(func(ev Event) {
		mu.Lock()
		kinds = append(kinds, ev.Kind)
		mu.Unlock()
	})))

	first := e.Install(fake.Package("a", "1"))
	first.Run(context.Background())
	assert.Equal(t, []EventKind{EventQueued, EventStarted, EventSucceeded}, kinds)

	e.Install(fake.Package("b", "1")).Run(context.Background())
	e.Install(fake.Package("c", "1")).Run(context.Background())

	history := e.History()
	require.Len(t, history, 2)
	assert.Equal(t, "b", history[0].Package().ID)
	assert.Empty(t, e.Active())
	assert.NotEqual(t, history[0].ID(), history[1].ID())
}

func TestDryRunSkipsVerdict(t *testing.T) {
	scoop := native.NewScoop()
	runner := executor.New(true, false)
	runner.SetOutput(io.Discard)
	e := NewEngine(testConfig(), runner, nil, nil)

	p := manager.NewPackage("Git", "git", "2.40", scoop.SourceOrDefault("main"), scoop, manager.ScopeUser)
	op := e.Uninstall(p)
	assert.Equal(t, StatusSucceeded, op.Run(context.Background()))
	assert.True(t, op.Simulated())
	assert.Equal(t, 1, op.Runs())
	assert.Equal(t, manager.TagDefault, p.Tag())
	assert.Equal(t, "Git would have been uninstalled (dry run)", op.StatusLine())
	assert.Contains(t, strings.Join(op.Output(), "\n"), "Dry run")

	fresh := manager.NewPackage("Curl", "curl", "8.0", scoop.SourceOrDefault("main"), scoop, manager.ScopeUser)
	install := e.Install(fresh)
	assert.Equal(t, StatusSucceeded, install.Run(context.Background()))
	assert.True(t, install.Simulated())
	assert.Equal(t, manager.TagDefault, fresh.Tag())
}

func TestRealRunIsNotSimulated(t *testing.T) {
	fake := managertest.New("fake")
	e := NewEngine(testConfig(), newGatedRunner(), nil, nil)

	op := e.Install(fake.Package("a", "1"))
	assert.Equal(t, StatusSucceeded, op.Run(context.Background()))
	assert.False(t, op.Simulated())
}

func TestSingleElevatedRunCachesRightsForBatchPolicy(t *testing.T) {
	fake := managertest.New("fake")
	fake.Caps.CanRunAsAdmin = true
	elevator := &fakeElevator{}

	cfg := testConfig()
	cfg.General.DoCacheAdminRights = false
	cfg.General.DoCacheAdminRightsForBatches = true
	cfg.General.AdminRightsCacheMinutes = 5
	cfg.Managers["fake"] = config.ManagerConfig{AlwaysElevate: true}
	e := NewEngine(cfg, newGatedRunner(), elevator, nil)

	assert.Equal(t, StatusSucceeded, e.Install(fake.Package("a", "1")).Run(context.Background()))
	assert.Equal(t, 1, elevator.cached)
}

func TestNoRightsCachingWithoutPolicy(t *testing.T) {
	fake := managertest.New("fake")
	fake.Caps.CanRunAsAdmin = true
	elevator := &fakeElevator{}

	cfg := testConfig()
	cfg.General.DoCacheAdminRights = false
	cfg.General.DoCacheAdminRightsForBatches = false
	cfg.Managers["fake"] = config.ManagerConfig{AlwaysElevate: true}
	e := NewEngine(cfg, newGatedRunner(), elevator, nil)

	assert.Equal(t, StatusSucceeded, e.Install(fake.Package("a", "1")).Run(context.Background()))
	assert.Zero(t, elevator.cached)
}

func TestAutoRetryOptionsAreSanitized(t *testing.T) {
	fake := managertest.New("fake")
	var calls int
	fake.VerdictFunc = func(_ manager.OperationType, p *manager.Package, opts manager.InstallationOptions, _ int, _ []string) manager.Result {
		calls++
		if calls == 1 {
			opts.RunAsAdministrator = true
			return manager.Result{Verdict: manager.VerdictAutoRetry, Options: opts, Scope: p.Scope()}
		}
		return manager.Result{Verdict: manager.VerdictSucceeded, Options: opts, Scope: p.Scope()}
	}
	runner := newGatedRunner()
	e := NewEngine(testConfig(), runner, nil, nil)

	op := e.Install(fake.Package("a", "1"))
	assert.Equal(t, StatusSucceeded, op.Run(context.Background()))
	assert.Equal(t, 2, op.Runs())
	assert.False(t, op.Options().RunAsAdministrator, "backend cannot run as admin")
	for _, cmd := range runner.cmds {
		assert.NotEqual(t, "sudo", cmd.Path)
	}
}

func TestExtraOptionsStayOnTheOperation(t *testing.T) {
	fake := managertest.New("fake")
	fake.Caps.SupportsCustomVersions = true
	e := NewEngine(testConfig(), newGatedRunner(), nil, nil)

	p := fake.Package("a", "1")
	p.SetOverriddenOptions(manager.InstallationOptions{CustomParameters: []string{"--force"}})

	op := e.NewOperationWithOptions(manager.OpInstall, p, manager.InstallationOptions{
		Version:          "0.9",
		CustomParameters: []string{"--verbose"},
	})
	assert.Equal(t, "0.9", op.Options().Version)
	assert.Equal(t, []string{"--force", "--verbose"}, op.Options().CustomParameters)

	assert.Empty(t, p.OverriddenOptions().Version)
	assert.Equal(t, []string{"--force"}, p.OverriddenOptions().CustomParameters)
	assert.Empty(t, e.Install(p).Options().Version, "later operations do not inherit them")
}
