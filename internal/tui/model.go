package tui

import (
	"slices"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"unipkg/internal/config"
	"unipkg/internal/history"
	"unipkg/internal/logging"
	"unipkg/pkg/loader"
	"unipkg/pkg/manager"
	"unipkg/pkg/operation"
)

// View represents different views in the TUI
type View int

const (
	ViewInstalled View = iota
	ViewUpdates
	ViewSearch
	ViewOperations
	ViewHistory
	ViewLog
	ViewDetails
	ViewHelp
)

// Tab represents a navigable tab
type Tab struct {
	Name string
	View View
}

// DefaultTabs returns the default tab configuration
func DefaultTabs() []Tab {
	return []Tab{
		{Name: "Installed", View: ViewInstalled},
		{Name: "Updates", View: ViewUpdates},
		{Name: "Search", View: ViewSearch},
		{Name: "Operations", View: ViewOperations},
		{Name: "History", View: ViewHistory},
		{Name: "Log", View: ViewLog},
	}
}

// Deps are the engine parts the TUI drives. History and Log may be nil.
type Deps struct {
	Config     *config.Config
	Engine     *operation.Engine
	Installed  *loader.PackageLoader
	Upgradable *loader.PackageLoader
	Search     *loader.SearchLoader
	History    *history.Store
	Log        *logging.Log
}

// Model holds the application state
type Model struct {
	// Core state
	ready    bool
	quitting bool

	// Dimensions
	width  int
	height int

	// Navigation
	tabs       []Tab
	activeTab  int
	activeView View
	prevView   View

	// Data
	deps           Deps
	historyEntries []history.Entry
	selectedPkg    *manager.Package
	selectedOp     *operation.Operation

	// UI state
	loading      map[string]bool
	errorMsg     string
	successMsg   string
	filterText   string
	inputMode    bool
	inputPrompt  string
	inputValue   string
	inputHandler func(string) tea.Cmd

	// Cursor positions for each view
	cursors map[View]int

	// Scroll offsets for each view
	scrolls map[View]int

	// Styles and keys
	styles *Styles
	keys   KeyMap

	// Confirmation dialog
	showConfirm   bool
	confirmTitle  string
	confirmAction func() tea.Cmd
}

// NewModel creates a new TUI model
func NewModel(deps Deps) *Model {
	return &Model{
		tabs:       DefaultTabs(),
		activeView: ViewInstalled,
		deps:       deps,
		loading:    make(map[string]bool),
		cursors:    make(map[View]int),
		scrolls:    make(map[View]int),
		styles:     DefaultStyles(),
		keys:       DefaultKeyMap(),
	}
}

// SetSize sets the terminal size
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
}

// CurrentTab returns the current tab
func (m *Model) CurrentTab() Tab {
	if m.activeTab >= 0 && m.activeTab < len(m.tabs) {
		return m.tabs[m.activeTab]
	}
	return m.tabs[0]
}

// Cursor returns the cursor position for the current view
func (m *Model) Cursor() int {
	return m.cursors[m.activeView]
}

// SetCursor sets the cursor position for the current view
func (m *Model) SetCursor(pos int) {
	m.cursors[m.activeView] = pos
}

// Scroll returns the scroll offset for the current view
func (m *Model) Scroll() int {
	return m.scrolls[m.activeView]
}

// SetScroll sets the scroll offset for the current view
func (m *Model) SetScroll(offset int) {
	m.scrolls[m.activeView] = offset
}

// VisibleHeight returns the height available for list content
func (m *Model) VisibleHeight() int {
	// Account for header (1), tabs (1), title (2), footer (2)
	return max(m.height-6, 1)
}

// ListItems returns the packages of the current view
func (m *Model) ListItems() []*manager.Package {
	switch m.activeView {
	case ViewInstalled:
		return m.deps.Installed.Filter(m.filterText)
	case ViewUpdates:
		return m.deps.Upgradable.Filter(m.filterText)
	case ViewSearch:
		return m.deps.Search.Filter(m.filterText)
	}
	return nil
}

// Operations returns the running operations followed by finished ones,
// newest first.
func (m *Model) Operations() []*operation.Operation {
	ops := m.deps.Engine.Active()
	done := m.deps.Engine.History()
	slices.Reverse(done)
	return append(ops, done...)
}

// LogEntries returns the in-memory log, oldest first, narrowed by the
// filter text.
func (m *Model) LogEntries() []logging.Entry {
	if m.deps.Log == nil {
		return nil
	}
	entries := m.deps.Log.Entries()
	if m.filterText == "" || m.activeView != ViewLog {
		return entries
	}
	needle := strings.ToLower(m.filterText)
	return slices.DeleteFunc(entries, func(e logging.Entry) bool {
		return !strings.Contains(strings.ToLower(e.Message), needle)
	})
}

// ItemCount returns the length of the current view's list
func (m *Model) ItemCount() int {
	switch m.activeView {
	case ViewOperations:
		return len(m.Operations())
	case ViewHistory:
		return len(m.historyEntries)
	case ViewLog:
		return len(m.LogEntries())
	}
	return len(m.ListItems())
}

// SelectedPackage returns the currently selected package
func (m *Model) SelectedPackage() *manager.Package {
	items := m.ListItems()
	cursor := m.Cursor()
	if cursor >= 0 && cursor < len(items) {
		return items[cursor]
	}
	return nil
}

// SelectedOperation returns the currently selected operation
func (m *Model) SelectedOperation() *operation.Operation {
	if m.activeView != ViewOperations {
		return nil
	}
	ops := m.Operations()
	cursor := m.Cursor()
	if cursor >= 0 && cursor < len(ops) {
		return ops[cursor]
	}
	return nil
}

// MoveCursor moves the cursor by delta, clamping to valid range
func (m *Model) MoveCursor(delta int) {
	count := m.ItemCount()
	if count == 0 {
		return
	}

	newPos := min(max(m.Cursor()+delta, 0), count-1)
	m.SetCursor(newPos)

	// Adjust scroll to keep cursor visible
	visibleHeight := m.VisibleHeight()
	scroll := m.Scroll()

	if newPos < scroll {
		m.SetScroll(newPos)
	} else if newPos >= scroll+visibleHeight {
		m.SetScroll(newPos - visibleHeight + 1)
	}
}

// ClampCursor keeps the cursor inside a list that shrank
func (m *Model) ClampCursor() {
	m.MoveCursor(0)
	if m.ItemCount() == 0 {
		m.GoToTop()
	}
}

// GoToTop moves cursor to the top
func (m *Model) GoToTop() {
	m.SetCursor(0)
	m.SetScroll(0)
}

// GoToBottom moves cursor to the bottom
func (m *Model) GoToBottom() {
	count := m.ItemCount()
	if count == 0 {
		return
	}
	m.SetCursor(count - 1)

	visibleHeight := m.VisibleHeight()
	if count > visibleHeight {
		m.SetScroll(count - visibleHeight)
	}
}

// NextTab switches to the next tab
func (m *Model) NextTab() {
	m.SetTab((m.activeTab + 1) % len(m.tabs))
}

// PrevTab switches to the previous tab
func (m *Model) PrevTab() {
	m.SetTab((m.activeTab - 1 + len(m.tabs)) % len(m.tabs))
}

// SetTab switches to a specific tab by index
func (m *Model) SetTab(index int) {
	if index >= 0 && index < len(m.tabs) {
		m.activeTab = index
		m.activeView = m.tabs[m.activeTab].View
		m.filterText = ""
	}
}

// ShowDetails shows the details view for the selected package or
// operation
func (m *Model) ShowDetails() {
	m.selectedPkg, m.selectedOp = nil, nil
	if op := m.SelectedOperation(); op != nil {
		m.selectedOp = op
	} else if pkg := m.SelectedPackage(); pkg != nil {
		m.selectedPkg = pkg
	} else {
		return
	}
	m.prevView = m.activeView
	m.activeView = ViewDetails
}

// GoBack returns to the previous view
func (m *Model) GoBack() {
	if m.activeView == ViewDetails || m.activeView == ViewHelp {
		m.activeView = m.prevView
	}
}

// SetLoading marks a loader as loading or done
func (m *Model) SetLoading(name string, loading bool) {
	if loading {
		m.loading[name] = true
	} else {
		delete(m.loading, name)
	}
}

// IsLoading reports whether any loader is loading
func (m *Model) IsLoading() bool {
	return len(m.loading) > 0
}

// SetError sets an error message
func (m *Model) SetError(msg string) {
	m.errorMsg = msg
	m.successMsg = ""
}

// SetSuccess sets a success message
func (m *Model) SetSuccess(msg string) {
	m.successMsg = msg
	m.errorMsg = ""
}

// ClearMessages clears all messages
func (m *Model) ClearMessages() {
	m.errorMsg = ""
	m.successMsg = ""
}

// StartInput starts input mode
func (m *Model) StartInput(prompt string, handler func(string) tea.Cmd) {
	m.inputMode = true
	m.inputPrompt = prompt
	m.inputValue = ""
	m.inputHandler = handler
}

// FinishInput finishes input mode and calls the handler
func (m *Model) FinishInput() tea.Cmd {
	var cmd tea.Cmd
	if m.inputHandler != nil {
		cmd = m.inputHandler(m.inputValue)
	}
	m.CancelInput()
	return cmd
}

// CancelInput cancels input mode
func (m *Model) CancelInput() {
	m.inputMode = false
	m.inputPrompt = ""
	m.inputValue = ""
	m.inputHandler = nil
}

// ShowConfirm shows a confirmation dialog
func (m *Model) ShowConfirm(title string, action func() tea.Cmd) {
	m.showConfirm = true
	m.confirmTitle = title
	m.confirmAction = action
}

// ConfirmYes executes the confirmation action
func (m *Model) ConfirmYes() tea.Cmd {
	var cmd tea.Cmd
	if m.confirmAction != nil {
		cmd = m.confirmAction()
	}
	m.ConfirmNo()
	return cmd
}

// ConfirmNo cancels the confirmation
func (m *Model) ConfirmNo() {
	m.showConfirm = false
	m.confirmTitle = ""
	m.confirmAction = nil
}
