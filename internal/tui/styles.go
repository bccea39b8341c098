// Package tui provides an interactive terminal user interface for browsing
// packages and following operations as they run.
package tui

import (
	"github.com/charmbracelet/lipgloss"

	"unipkg/internal/logging"
	"unipkg/pkg/operation"
)

// Color palette - matches existing CLI colors
var (
	ColorPrimary   = lipgloss.Color("#7C3AED") // Purple
	ColorSecondary = lipgloss.Color("#06B6D4") // Cyan
	ColorSuccess   = lipgloss.Color("#10B981") // Green
	ColorWarning   = lipgloss.Color("#F59E0B") // Yellow
	ColorError     = lipgloss.Color("#EF4444") // Red
	ColorMuted     = lipgloss.Color("#6B7280") // Gray
	ColorText      = lipgloss.Color("#F3F4F6") // Light gray
	ColorBgAlt     = lipgloss.Color("#374151") // Slightly lighter
)

// ManagerColors for the supported package managers
var ManagerColors = map[string]lipgloss.Color{
	"scoop":  lipgloss.Color("#4D8FCC"), // Scoop blue
	"winget": lipgloss.Color("#0078D4"), // Windows blue
	"apt":    lipgloss.Color("#A80030"), // Debian red
	"pacman": lipgloss.Color("#1793D1"), // Arch blue
}

// Styles contains all the lipgloss styles used in the TUI
type Styles struct {
	// App frame
	Header lipgloss.Style
	Footer lipgloss.Style

	// Tabs
	TabActive   lipgloss.Style
	TabInactive lipgloss.Style

	// Content
	Title       lipgloss.Style
	Subtitle    lipgloss.Style
	Description lipgloss.Style

	// List items
	ListItemSelected lipgloss.Style

	// Package display
	PackageName    lipgloss.Style
	PackageVersion lipgloss.Style
	NewVersion     lipgloss.Style

	// Status indicators
	Success lipgloss.Style
	Warning lipgloss.Style
	Error   lipgloss.Style
	Info    lipgloss.Style

	// Input
	InputPrompt lipgloss.Style

	// Help
	HelpKey  lipgloss.Style
	HelpDesc lipgloss.Style

	// Dialog
	Dialog      lipgloss.Style
	DialogTitle lipgloss.Style
}

// DefaultStyles returns the default style configuration
func DefaultStyles() *Styles {
	s := &Styles{}

	s.Header = lipgloss.NewStyle().
		Foreground(ColorText).
		Background(ColorBgAlt).
		Padding(0, 1).
		Bold(true)

	s.Footer = lipgloss.NewStyle().
		Foreground(ColorMuted).
		Padding(0, 1)

	s.TabActive = lipgloss.NewStyle().
		Padding(0, 2).
		Foreground(ColorPrimary).
		Bold(true).
		Underline(true)

	s.TabInactive = lipgloss.NewStyle().
		Padding(0, 2).
		Foreground(ColorMuted)

	s.Title = lipgloss.NewStyle().
		Foreground(ColorText).
		Bold(true)

	s.Subtitle = lipgloss.NewStyle().
		Foreground(ColorSecondary).
		Bold(true)

	s.Description = lipgloss.NewStyle().
		Foreground(ColorMuted)

	s.ListItemSelected = lipgloss.NewStyle().
		Foreground(ColorPrimary).
		Bold(true)

	s.PackageName = lipgloss.NewStyle().
		Foreground(ColorText).
		Bold(true)

	s.PackageVersion = lipgloss.NewStyle().
		Foreground(ColorSuccess)

	s.NewVersion = lipgloss.NewStyle().
		Foreground(ColorWarning).
		Bold(true)

	s.Success = lipgloss.NewStyle().
		Foreground(ColorSuccess).
		Bold(true)

	s.Warning = lipgloss.NewStyle().
		Foreground(ColorWarning).
		Bold(true)

	s.Error = lipgloss.NewStyle().
		Foreground(ColorError).
		Bold(true)

	s.Info = lipgloss.NewStyle().
		Foreground(ColorSecondary)

	s.InputPrompt = lipgloss.NewStyle().
		Foreground(ColorPrimary).
		Bold(true)

	s.HelpKey = lipgloss.NewStyle().
		Foreground(ColorSecondary).
		Bold(true)

	s.HelpDesc = lipgloss.NewStyle().
		Foreground(ColorMuted)

	s.Dialog = lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(ColorPrimary).
		Padding(1, 2).
		Width(60)

	s.DialogTitle = lipgloss.NewStyle().
		Foreground(ColorText).
		Bold(true).
		MarginBottom(1)

	return s
}

// Status returns the style of an operation status.
func (s *Styles) Status(st operation.Status) lipgloss.Style {
	switch st {
	case operation.StatusSucceeded:
		return s.Success
	case operation.StatusFailed:
		return s.Error
	case operation.StatusCancelled:
		return s.Warning
	case operation.StatusRunning:
		return s.Info
	}
	return s.Description
}

// Severity returns the style of a log entry.
func (s *Styles) Severity(sev logging.Severity) lipgloss.Style {
	switch sev {
	case logging.SeverityError:
		return s.Error
	case logging.SeverityWarning:
		return s.Warning
	case logging.SeveritySuccess:
		return s.Success
	case logging.SeverityInfo:
		return s.Info
	}
	return s.Description
}

// Badge creates a badge-style label
func Badge(text string, color lipgloss.Color) string {
	return lipgloss.NewStyle().
		Foreground(lipgloss.Color("#FFFFFF")).
		Background(color).
		Padding(0, 1).
		Render(text)
}

// ManagerBadge creates a badge for a package manager
func ManagerBadge(name string) string {
	color, ok := ManagerColors[name]
	if !ok {
		color = ColorMuted
	}
	return Badge(name, color)
}
