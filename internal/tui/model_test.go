package tui

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"unipkg/internal/config"
	"unipkg/internal/executor"
	"unipkg/internal/history"
	"unipkg/internal/logging"
	"unipkg/pkg/loader"
	"unipkg/pkg/manager"
	"unipkg/pkg/manager/managertest"
	"unipkg/pkg/operation"
)

func setupDeps(t *testing.T, installed int) (Deps, *managertest.Fake) {
	t.Helper()

	store, err := history.Open(filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	cfg := config.Default()
	cfg.General.QueuePollInterval = config.Duration{Duration: time.Millisecond}

	fake := managertest.New("fake")
	managers := []manager.Manager{fake}
	inst := loader.NewInstalledLoader(managers, nil)
	for i := 0; i < installed; i++ {
		inst.AddPackages(fake.Package(fmt.Sprintf("pkg%02d", i), "1.0"))
	}

	runner := executor.RunnerFunc(func(ctx context.Context, cmd executor.Command, onLine func(string)) (int, error) {
		return 0, nil
	})

	return Deps{
		Config:     cfg,
		Engine:     operation.NewEngine(cfg, runner, nil, nil),
		Installed:  inst,
		Upgradable: loader.NewUpgradableLoader(managers, nil, store),
		Search:     loader.NewSearchLoader(managers, nil, inst),
		History:    store,
		Log:        logging.Nop(),
	}, fake
}

func TestModelNavigation(t *testing.T) {
	deps, _ := setupDeps(t, 20)
	m := NewModel(deps)
	m.SetSize(80, 16)

	assert.Equal(t, 10, m.VisibleHeight())
	assert.Equal(t, "pkg00", m.SelectedPackage().ID)

	m.MoveCursor(12)
	assert.Equal(t, 12, m.Cursor())
	assert.Equal(t, 3, m.Scroll(), "cursor stays visible")

	m.MoveCursor(100)
	assert.Equal(t, 19, m.Cursor())

	m.GoToTop()
	assert.Equal(t, 0, m.Cursor())
	assert.Equal(t, 0, m.Scroll())

	m.GoToBottom()
	assert.Equal(t, 19, m.Cursor())
	assert.Equal(t, 10, m.Scroll())

	// Cursors are kept per view.
	m.NextTab()
	assert.Equal(t, ViewUpdates, m.activeView)
	assert.Equal(t, 0, m.Cursor())
	m.PrevTab()
	assert.Equal(t, 19, m.Cursor())
}

func TestModelFilter(t *testing.T) {
	deps, _ := setupDeps(t, 20)
	m := NewModel(deps)
	m.SetSize(80, 40)

	m.filterText = "pkg1"
	assert.Len(t, m.ListItems(), 10)

	m.SetTab(1)
	assert.Empty(t, m.filterText, "switching tabs clears the filter")
}

func TestModelDetails(t *testing.T) {
	deps, _ := setupDeps(t, 3)
	m := NewModel(deps)
	m.SetSize(80, 40)

	m.MoveCursor(1)
	m.ShowDetails()
	assert.Equal(t, ViewDetails, m.activeView)
	require.NotNil(t, m.selectedPkg)
	assert.Equal(t, "pkg01", m.selectedPkg.ID)

	m.GoBack()
	assert.Equal(t, ViewInstalled, m.activeView)

	// Nothing to show on an empty list.
	m.SetTab(1)
	m.ShowDetails()
	assert.Equal(t, ViewUpdates, m.activeView)
}

func TestModelConfirm(t *testing.T) {
	deps, _ := setupDeps(t, 0)
	m := NewModel(deps)

	var called bool
	m.ShowConfirm("Sure?", func() tea.Cmd {
		called = true
		return nil
	})
	assert.True(t, m.showConfirm)

	m.ConfirmYes()
	assert.True(t, called)
	assert.False(t, m.showConfirm)
	assert.Nil(t, m.confirmAction)
}

func TestModelInput(t *testing.T) {
	deps, _ := setupDeps(t, 0)
	m := NewModel(deps)

	var got string
	m.StartInput("Search: ", func(s string) tea.Cmd {
		got = s
		return nil
	})
	m.inputValue = "git"
	m.FinishInput()

	assert.Equal(t, "git", got)
	assert.False(t, m.inputMode)
}

func TestAppUninstall(t *testing.T) {
	deps, _ := setupDeps(t, 2)
	app := NewApp(deps)
	t.Cleanup(app.cancel)
	app.Update(tea.WindowSizeMsg{Width: 100, Height: 30})

	target := app.SelectedPackage()
	require.NotNil(t, target)

	app.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("x")})
	require.True(t, app.showConfirm)

	_, cmd := app.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("y")})
	runCmd(cmd)

	require.Eventually(t, func() bool {
		return len(deps.Engine.History()) == 1
	}, 5*time.Second, 5*time.Millisecond)

	op := deps.Engine.History()[0]
	assert.Equal(t, manager.OpUninstall, op.Type())
	assert.Equal(t, target.ID, op.Package().ID)
	assert.Equal(t, operation.StatusSucceeded, op.Status())
}

// runCmd executes cmd and any commands it batches.
func runCmd(cmd tea.Cmd) {
	if cmd == nil {
		return
	}
	if batch, ok := cmd().(tea.BatchMsg); ok {
		for _, c := range batch {
			runCmd(c)
		}
	}
}

func TestAppIgnoreUpdate(t *testing.T) {
	deps, fake := setupDeps(t, 0)
	p := fake.Upgradable("git", "2.40", "2.41")
	deps.Upgradable.AddPackages(p)

	app := NewApp(deps)
	t.Cleanup(app.cancel)
	app.Update(tea.WindowSizeMsg{Width: 100, Height: 30})
	app.SetTab(1)

	app.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("n")})
	require.True(t, app.showConfirm)
	app.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("y")})

	assert.Equal(t, 0, deps.Upgradable.Count())
	assert.True(t, deps.History.IsIgnored(p, "2.41"))
	assert.NotEmpty(t, app.successMsg)
}

func TestAppView(t *testing.T) {
	deps, _ := setupDeps(t, 3)
	app := NewApp(deps)
	t.Cleanup(app.cancel)

	assert.Equal(t, "Loading...", app.View())

	app.Update(tea.WindowSizeMsg{Width: 120, Height: 30})
	view := app.View()
	assert.Contains(t, view, "unipkg")
	assert.Contains(t, view, "Installed Packages (3)")
	assert.Contains(t, view, "pkg02")

	app.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("?")})
	assert.Contains(t, app.View(), "Keyboard Shortcuts")
}

func TestAppLogView(t *testing.T) {
	deps, _ := setupDeps(t, 0)
	deps.Log.Info("loaded 3 packages from fake")
	deps.Log.Warn("fake is slow to answer")
	deps.Log.Error("fake failed to list updates")

	app := NewApp(deps)
	t.Cleanup(app.cancel)
	app.Update(tea.WindowSizeMsg{Width: 120, Height: 30})

	app.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("6")})
	assert.Equal(t, ViewLog, app.activeView)
	assert.Equal(t, 2, app.Cursor(), "the newest entry is selected")

	view := app.View()
	assert.Contains(t, view, "Log (3)")
	assert.Contains(t, view, "fake is slow to answer")
	assert.Contains(t, view, "warning")

	app.filterText = "failed"
	require.Len(t, app.LogEntries(), 1)
	assert.Equal(t, logging.SeverityError, app.LogEntries()[0].Severity)
	assert.Contains(t, app.View(), "Log (1) - Filter: failed")
}

func TestLogViewWithoutLogger(t *testing.T) {
	deps, _ := setupDeps(t, 0)
	deps.Log = nil
	m := NewModel(deps)
	m.SetTab(5)

	assert.Empty(t, m.LogEntries())
	assert.Zero(t, m.ItemCount())
}
