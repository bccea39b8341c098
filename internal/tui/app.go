package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"unipkg/internal/history"
	"unipkg/pkg/manager"
	"unipkg/pkg/operation"
)

// Messages for async operations
type (
	loadedMsg struct {
		name string
		err  error
	}

	historyLoadedMsg struct {
		entries []history.Entry
		err     error
	}

	opEventMsg struct {
		ev operation.Event
	}

	errMsg struct {
		err error
	}
)

// reloader is implemented by every loader.
type reloader interface {
	ReloadPackages(ctx context.Context) error
}

// App wraps the Model with bubbletea components
type App struct {
	*Model
	spinner   spinner.Model
	textInput textinput.Model

	ctx    context.Context
	cancel context.CancelFunc
}

// NewApp creates a new TUI application
func NewApp(deps Deps) *App {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(ColorPrimary)

	ti := textinput.New()
	ti.Placeholder = "Type to search..."
	ti.CharLimit = 100
	ti.Width = 40

	ctx, cancel := context.WithCancel(context.Background())
	return &App{
		Model:     NewModel(deps),
		spinner:   sp,
		textInput: ti,
		ctx:       ctx,
		cancel:    cancel,
	}
}

// Init implements tea.Model
func (a *App) Init() tea.Cmd {
	return tea.Batch(
		a.spinner.Tick,
		a.reload("installed", a.deps.Installed),
		a.reload("updates", a.deps.Upgradable),
		a.loadHistory(),
	)
}

// Update implements tea.Model
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.SetSize(msg.Width, msg.Height)
		a.ready = true

	case tea.KeyMsg:
		// Handle confirmation dialog first
		if a.showConfirm {
			switch msg.String() {
			case "y", "Y", "enter":
				cmds = append(cmds, a.ConfirmYes())
			case "n", "N", "esc", "q":
				a.ConfirmNo()
			}
			return a, tea.Batch(cmds...)
		}

		// Handle input mode
		if a.inputMode {
			switch msg.String() {
			case "enter":
				a.textInput.Blur()
				return a, a.FinishInput()
			case "esc":
				a.textInput.Blur()
				a.CancelInput()
				return a, nil
			default:
				var cmd tea.Cmd
				a.textInput, cmd = a.textInput.Update(msg)
				a.inputValue = a.textInput.Value()
				return a, cmd
			}
		}

		cmds = append(cmds, a.handleKey(msg))

	case loadedMsg:
		a.SetLoading(msg.name, false)
		if msg.err != nil && a.ctx.Err() == nil {
			a.SetError(fmt.Sprintf("%s: %v", msg.name, msg.err))
		}
		a.ClampCursor()

	case historyLoadedMsg:
		if msg.err != nil {
			a.SetError(msg.err.Error())
		} else {
			a.historyEntries = msg.entries
		}

	case opEventMsg:
		op := msg.ev.Op
		switch msg.ev.Kind {
		case operation.EventSucceeded:
			a.SetSuccess(op.StatusLine())
			cmds = append(cmds, a.loadHistory())
		case operation.EventFailed:
			a.SetError(op.StatusLine())
			cmds = append(cmds, a.loadHistory())
		case operation.EventCancelled:
			a.SetSuccess(fmt.Sprintf("%s of %s cancelled", op.Type(), op.Package().Name))
			cmds = append(cmds, a.loadHistory())
		}
		a.ClampCursor()

	case errMsg:
		a.SetError(msg.err.Error())

	case spinner.TickMsg:
		var cmd tea.Cmd
		a.spinner, cmd = a.spinner.Update(msg)
		cmds = append(cmds, cmd)
	}

	return a, tea.Batch(cmds...)
}

func (a *App) handleKey(msg tea.KeyMsg) tea.Cmd {
	switch {
	case key.Matches(msg, a.keys.Quit):
		a.quitting = true
		a.cancel()
		return tea.Quit

	case key.Matches(msg, a.keys.Help):
		if a.activeView == ViewHelp {
			a.GoBack()
		} else {
			a.prevView = a.activeView
			a.activeView = ViewHelp
		}

	case key.Matches(msg, a.keys.Tab1):
		a.SetTab(0)
	case key.Matches(msg, a.keys.Tab2):
		a.SetTab(1)
	case key.Matches(msg, a.keys.Tab3):
		a.SetTab(2)
		if a.deps.Search.Query() == "" {
			a.startSearch()
		}
	case key.Matches(msg, a.keys.Tab4):
		a.SetTab(3)
	case key.Matches(msg, a.keys.Tab5):
		a.SetTab(4)
		return a.loadHistory()
	case key.Matches(msg, a.keys.Tab6):
		a.SetTab(5)
		a.GoToBottom()

	case key.Matches(msg, a.keys.Left):
		a.PrevTab()
	case key.Matches(msg, a.keys.Right):
		a.NextTab()

	case key.Matches(msg, a.keys.Back):
		a.GoBack()
		a.ClearMessages()

	// Navigation
	case key.Matches(msg, a.keys.Up):
		a.MoveCursor(-1)
	case key.Matches(msg, a.keys.Down):
		a.MoveCursor(1)
	case key.Matches(msg, a.keys.PageUp):
		a.MoveCursor(-a.VisibleHeight())
	case key.Matches(msg, a.keys.PageDown):
		a.MoveCursor(a.VisibleHeight())
	case key.Matches(msg, a.keys.Home):
		a.GoToTop()
	case key.Matches(msg, a.keys.End):
		a.GoToBottom()

	// Actions
	case key.Matches(msg, a.keys.Enter):
		a.ShowDetails()

	case key.Matches(msg, a.keys.Search):
		a.SetTab(2)
		a.startSearch()

	case key.Matches(msg, a.keys.Filter):
		a.startFilter()

	case key.Matches(msg, a.keys.Reload):
		switch a.activeView {
		case ViewInstalled:
			return a.reload("installed", a.deps.Installed)
		case ViewUpdates:
			return a.reload("updates", a.deps.Upgradable)
		case ViewSearch:
			return a.reload("search", a.deps.Search)
		case ViewHistory:
			return a.loadHistory()
		}

	case key.Matches(msg, a.keys.Install):
		if pkg := a.targetPackage(); pkg != nil && a.activeView == ViewSearch {
			a.ShowConfirm(fmt.Sprintf("Install %s from %s?", pkg.Name, pkg.ManagerName()), func() tea.Cmd {
				return a.startOperation(manager.OpInstall, pkg)
			})
		}

	case key.Matches(msg, a.keys.Uninstall):
		if pkg := a.targetPackage(); pkg != nil && a.activeView != ViewSearch {
			a.ShowConfirm(fmt.Sprintf("Uninstall %s?", pkg.Name), func() tea.Cmd {
				return a.startOperation(manager.OpUninstall, pkg)
			})
		}

	case key.Matches(msg, a.keys.Update):
		if pkg := a.targetPackage(); pkg != nil && pkg.IsUpgradable() {
			a.ShowConfirm(fmt.Sprintf("Update %s to %s?", pkg.Name, pkg.NewVersion), func() tea.Cmd {
				return a.startOperation(manager.OpUpdate, pkg)
			})
		}

	case key.Matches(msg, a.keys.UpdateAll):
		if n := a.deps.Upgradable.Count(); n > 0 {
			a.ShowConfirm(fmt.Sprintf("Update %d packages?", n), func() tea.Cmd {
				var cmds []tea.Cmd
				for _, p := range a.deps.Upgradable.Packages() {
					cmds = append(cmds, a.startOperation(manager.OpUpdate, p))
				}
				return tea.Batch(cmds...)
			})
		}

	case key.Matches(msg, a.keys.Ignore):
		if pkg := a.targetPackage(); pkg != nil && pkg.IsUpgradable() && a.deps.History != nil {
			a.ShowConfirm(fmt.Sprintf("Ignore %s %s?", pkg.Name, pkg.NewVersion), func() tea.Cmd {
				return a.ignoreUpdate(pkg)
			})
		}

	case key.Matches(msg, a.keys.CancelOp):
		if op := a.SelectedOperation(); op != nil && !op.Status().IsTerminal() {
			op.Cancel()
		}
	}
	return nil
}

// targetPackage is the package keys act on: the selection, or the package
// shown in the details view.
func (a *App) targetPackage() *manager.Package {
	if a.activeView == ViewDetails {
		return a.selectedPkg
	}
	return a.SelectedPackage()
}

// View implements tea.Model
func (a *App) View() string {
	if !a.ready {
		return "Loading..."
	}

	if a.quitting {
		return ""
	}

	if a.showConfirm {
		return a.renderDialog()
	}

	var b strings.Builder
	b.WriteString(a.renderHeader())
	b.WriteString("\n")
	b.WriteString(a.renderTabs())
	b.WriteString("\n")
	b.WriteString(a.renderContent())
	b.WriteString(a.renderFooter())
	return b.String()
}

// renderHeader renders the header bar
func (a *App) renderHeader() string {
	title := a.styles.Header.Render(" unipkg ")

	var right string
	switch {
	case a.inputMode:
		right = a.styles.InputPrompt.Render(a.inputPrompt) + a.textInput.View()
	case a.IsLoading():
		var names []string
		for name := range a.loading {
			names = append(names, name)
		}
		right = a.spinner.View() + " Loading " + strings.Join(names, ", ") + "..."
	case a.errorMsg != "":
		right = a.styles.Error.Render(a.errorMsg)
	case a.successMsg != "":
		right = a.styles.Success.Render(a.successMsg)
	}

	padding := max(a.width-lipgloss.Width(title)-lipgloss.Width(right)-2, 0)
	return title + strings.Repeat(" ", padding) + right
}

// renderTabs renders the tab bar
func (a *App) renderTabs() string {
	counts := []int{
		a.deps.Installed.Count(),
		a.deps.Upgradable.Count(),
		a.deps.Search.Count(),
		len(a.deps.Engine.Active()),
		len(a.historyEntries),
		len(a.LogEntries()),
	}

	var tabs []string
	for i, tab := range a.tabs {
		style := a.styles.TabInactive
		if i == a.activeTab {
			style = a.styles.TabActive
		}
		tabs = append(tabs, style.Render(fmt.Sprintf("[%d] %s (%d)", i+1, tab.Name, counts[i])))
	}

	return lipgloss.NewStyle().
		Width(a.width).
		Background(ColorBgAlt).
		Padding(0, 1).
		Render(strings.Join(tabs, " "))
}

// renderContent renders the main content area
func (a *App) renderContent() string {
	var content string
	switch a.activeView {
	case ViewInstalled:
		content = a.renderPackageList("Installed Packages", false)
	case ViewUpdates:
		content = a.renderPackageList("Available Updates", true)
	case ViewSearch:
		title := "Search"
		if q := a.deps.Search.Query(); q != "" {
			title = fmt.Sprintf("Results for '%s'", q)
		}
		content = a.renderPackageList(title, false)
	case ViewOperations:
		content = a.renderOperations()
	case ViewHistory:
		content = a.renderHistory()
	case ViewLog:
		content = a.renderLog()
	case ViewDetails:
		content = a.renderDetails()
	case ViewHelp:
		content = a.renderHelp()
	}

	return lipgloss.NewStyle().
		Width(a.width).
		Height(a.height - 3).
		Render(content)
}

// visibleRange returns the slice bounds of the rows on screen
func (a *App) visibleRange(count int) (int, int) {
	start := a.Scroll()
	end := min(start+a.VisibleHeight(), count)
	return start, end
}

func (a *App) cursorMark(i int) string {
	if i == a.Cursor() {
		return a.styles.ListItemSelected.Render("> ")
	}
	return "  "
}

// renderPackageList renders the packages of the current view
func (a *App) renderPackageList(title string, updates bool) string {
	var b strings.Builder

	items := a.ListItems()
	titleStr := fmt.Sprintf("%s (%d)", title, len(items))
	if a.filterText != "" {
		titleStr += fmt.Sprintf(" - Filter: %s", a.filterText)
	}
	b.WriteString(a.styles.Title.Render(titleStr))
	b.WriteString("\n\n")

	if len(items) == 0 {
		b.WriteString(a.styles.Description.Render("  No packages"))
		return b.String()
	}

	start, end := a.visibleRange(len(items))
	for i := start; i < end; i++ {
		p := items[i]
		name := a.styles.PackageName.Render(fmt.Sprintf("%-30.30s", p.Name))
		version := a.styles.PackageVersion.Render(fmt.Sprintf("%-16.16s", p.Version))
		if updates {
			version += " → " + a.styles.NewVersion.Render(fmt.Sprintf("%-16.16s", p.NewVersion))
		}
		line := fmt.Sprintf("%s%s %-30.30s %s %s %s", a.cursorMark(i), name, p.ID, version, ManagerBadge(p.ManagerName()), a.tagLabel(p.Tag()))
		b.WriteString(line)
		b.WriteString("\n")
	}

	return b.String()
}

func (a *App) tagLabel(t manager.PackageTag) string {
	switch t {
	case manager.TagAlreadyInstalled:
		return a.styles.Success.Render("installed")
	case manager.TagOnQueue:
		return a.styles.Description.Render("queued")
	case manager.TagBeingProcessed:
		return a.styles.Info.Render(a.spinner.View())
	case manager.TagFailed:
		return a.styles.Error.Render("failed")
	}
	return ""
}

// renderOperations renders running and finished operations
func (a *App) renderOperations() string {
	var b strings.Builder

	ops := a.Operations()
	b.WriteString(a.styles.Title.Render(fmt.Sprintf("Operations (%d)", len(ops))))
	b.WriteString("\n\n")

	if len(ops) == 0 {
		b.WriteString(a.styles.Description.Render("  No operations yet. Press i, u or x on a package."))
		return b.String()
	}

	start, end := a.visibleRange(len(ops))
	for i := start; i < end; i++ {
		op := ops[i]
		status := a.styles.Status(op.Status()).Render(fmt.Sprintf("%-10s", op.Status()))
		line := fmt.Sprintf("%s%-10s %-40.40s %s %s", a.cursorMark(i), op.Type(), op.Package().String(), status, a.styles.Description.Render(op.StatusLine()))
		b.WriteString(line)
		b.WriteString("\n")
	}

	return b.String()
}

// renderHistory renders recorded operations
func (a *App) renderHistory() string {
	var b strings.Builder

	b.WriteString(a.styles.Title.Render("Operation History"))
	b.WriteString("\n\n")

	if len(a.historyEntries) == 0 {
		b.WriteString(a.styles.Description.Render("  No history entries"))
		return b.String()
	}

	start, end := a.visibleRange(len(a.historyEntries))
	for i := start; i < end; i++ {
		entry := a.historyEntries[i]
		status := a.styles.Success.Render(entry.Status)
		if !entry.Success() {
			status = a.styles.Error.Render(entry.Status)
		}

		line := fmt.Sprintf("%s%s  %-10s  %-40.40s  %-8s %s", a.cursorMark(i), entry.Timestamp.Format("2006-01-02 15:04"), entry.Operation, entry.PackageID+" "+entry.Version, entry.Manager, status)
		b.WriteString(line)
		b.WriteString("\n")
	}

	return b.String()
}

// renderLog renders the in-memory application log
func (a *App) renderLog() string {
	var b strings.Builder

	entries := a.LogEntries()
	titleStr := fmt.Sprintf("Log (%d)", len(entries))
	if a.filterText != "" {
		titleStr += fmt.Sprintf(" - Filter: %s", a.filterText)
	}
	b.WriteString(a.styles.Title.Render(titleStr))
	b.WriteString("\n\n")

	if len(entries) == 0 {
		b.WriteString(a.styles.Description.Render("  Nothing logged yet"))
		return b.String()
	}

	start, end := a.visibleRange(len(entries))
	for i := start; i < end; i++ {
		e := entries[i]
		sev := a.styles.Severity(e.Severity).Render(fmt.Sprintf("%-8s", e.Severity))
		line := fmt.Sprintf("%s%s %s %s", a.cursorMark(i), e.Time.Format("15:04:05"), sev, e.Message)
		b.WriteString(line)
		b.WriteString("\n")
	}

	return b.String()
}

// renderDetails renders the selected package or operation
func (a *App) renderDetails() string {
	var b strings.Builder

	field := func(label, value string) {
		b.WriteString(a.styles.Subtitle.Render(fmt.Sprintf("%-12s", label)))
		b.WriteString(value)
		b.WriteString("\n")
	}

	switch {
	case a.selectedOp != nil:
		op := a.selectedOp
		b.WriteString(a.styles.Title.Render(fmt.Sprintf("%s %s", op.Type(), op.Package().Name)))
		b.WriteString("\n\n")
		field("Status", a.styles.Status(op.Status()).Render(op.Status().String()))
		field("Runs", fmt.Sprint(op.Runs()))
		field("Duration", op.Duration().Round(100*time.Millisecond).String())
		b.WriteString("\n")

		output := op.Output()
		if limit := a.height - 12; limit > 0 && len(output) > limit {
			output = output[len(output)-limit:]
		}
		for _, line := range output {
			b.WriteString(a.styles.Description.Render("  " + line))
			b.WriteString("\n")
		}

	case a.selectedPkg != nil:
		p := a.selectedPkg
		b.WriteString(a.styles.Title.Render(p.Name))
		b.WriteString(" ")
		b.WriteString(ManagerBadge(p.ManagerName()))
		b.WriteString("\n\n")
		field("Id", p.ID)
		field("Version", a.styles.PackageVersion.Render(p.Version))
		if p.IsUpgradable() {
			field("New version", a.styles.NewVersion.Render(p.NewVersion))
		}
		field("Source", p.SourceName())
		field("Scope", string(p.Scope()))
		field("Status", p.Tag().String())

		b.WriteString("\n")
		b.WriteString(a.styles.Subtitle.Render("Actions"))
		b.WriteString("\n")
		if p.IsUpgradable() {
			b.WriteString("  [u] Update  [n] Ignore this version\n")
		}
		if a.prevView == ViewSearch {
			b.WriteString("  [i] Install\n")
		} else {
			b.WriteString("  [x] Uninstall\n")
		}
		b.WriteString("  [esc] Back\n")

	default:
		b.WriteString(a.styles.Error.Render("Nothing selected"))
	}

	return b.String()
}

// renderHelp renders the help view
func (a *App) renderHelp() string {
	var b strings.Builder

	b.WriteString(a.styles.Title.Render("Keyboard Shortcuts"))
	b.WriteString("\n\n")

	for _, binding := range a.keys.HelpBindings() {
		h := binding.Help()
		b.WriteString(fmt.Sprintf("  %s %s\n",
			a.styles.HelpKey.Render(fmt.Sprintf("%-10s", h.Key)),
			a.styles.HelpDesc.Render(h.Desc)))
	}

	return b.String()
}

// renderFooter renders the footer bar
func (a *App) renderFooter() string {
	var hints []string

	switch a.activeView {
	case ViewInstalled:
		hints = []string{"x:uninstall", "f:filter", "r:reload", "enter:details"}
	case ViewUpdates:
		hints = []string{"u:update", "U:update all", "n:ignore", "r:reload"}
	case ViewSearch:
		hints = []string{"i:install", "/:search", "enter:details"}
	case ViewOperations:
		hints = []string{"c:cancel", "enter:output"}
	case ViewLog:
		hints = []string{"f:filter", "G:newest"}
	case ViewDetails:
		hints = []string{"esc:back"}
	}

	hints = append(hints, "?:help", "q:quit")

	return lipgloss.NewStyle().
		Width(a.width).
		Background(ColorBgAlt).
		Foreground(ColorMuted).
		Padding(0, 1).
		Render(strings.Join(hints, "  "))
}

// renderDialog renders the confirmation dialog
func (a *App) renderDialog() string {
	dialog := a.styles.Dialog.Render(
		a.styles.DialogTitle.Render(a.confirmTitle) + "\n\n" +
			a.styles.Success.Render("[Y]es") + "  " +
			a.styles.Description.Render("[N]o"),
	)

	return lipgloss.Place(a.width, a.height, lipgloss.Center, lipgloss.Center, dialog)
}

// startSearch initiates search input
func (a *App) startSearch() {
	a.textInput.SetValue("")
	a.textInput.Focus()
	a.StartInput("Search: ", func(query string) tea.Cmd {
		if query == "" {
			return nil
		}
		a.deps.Search.SetQuery(query)
		a.GoToTop()
		return a.reload("search", a.deps.Search)
	})
}

// startFilter initiates filter input
func (a *App) startFilter() {
	a.textInput.SetValue(a.filterText)
	a.textInput.Focus()
	a.StartInput("Filter: ", func(filter string) tea.Cmd {
		a.filterText = filter
		a.GoToTop()
		return nil
	})
}

// Async commands

func (a *App) reload(name string, l reloader) tea.Cmd {
	a.SetLoading(name, true)
	return func() tea.Msg {
		return loadedMsg{name: name, err: l.ReloadPackages(a.ctx)}
	}
}

func (a *App) loadHistory() tea.Cmd {
	store := a.deps.History
	return func() tea.Msg {
		if store == nil {
			return historyLoadedMsg{}
		}
		entries, err := store.List(a.deps.Config.General.OperationHistoryLimit)
		return historyLoadedMsg{entries: entries, err: err}
	}
}

func (a *App) startOperation(kind manager.OperationType, p *manager.Package) tea.Cmd {
	op := a.deps.Engine.NewOperation(kind, p)
	return func() tea.Msg {
		if err := op.Start(a.ctx); err != nil {
			return errMsg{err: err}
		}
		return nil
	}
}

func (a *App) ignoreUpdate(p *manager.Package) tea.Cmd {
	if err := a.deps.History.Ignore(p, p.NewVersion); err != nil {
		return func() tea.Msg { return errMsg{err: err} }
	}
	a.deps.Upgradable.Remove(p)
	a.SetSuccess(fmt.Sprintf("%s %s will no longer be offered", p.Name, p.NewVersion))
	a.ClampCursor()
	return nil
}

// Run starts the TUI application. Operations still running when it exits
// are cancelled.
func Run(deps Deps) error {
	app := NewApp(deps)
	p := tea.NewProgram(app, tea.WithAltScreen())

	deps.Engine.AddListener(operation.ListenerFunc(func(ev operation.Event) {
		p.Send(opEventMsg{ev: ev})
	}))

	_, err := p.Run()
	app.cancel()
	for _, op := range deps.Engine.Active() {
		op.Wait()
	}
	return err
}
