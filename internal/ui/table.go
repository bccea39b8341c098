package ui

import (
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"unipkg/internal/history"
	"unipkg/pkg/manager"
	"unipkg/pkg/operation"
)

// Table wraps tabwriter for consistent styling.
type Table struct {
	writer  *tabwriter.Writer
	headers []string
}

// NewTable creates a new table writing to stdout.
func NewTable(header []string) *Table {
	return NewTableWriter(os.Stdout, header)
}

// NewTableWriter creates a new table that writes to a specific writer.
func NewTableWriter(w io.Writer, header []string) *Table {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	t := &Table{
		writer:  tw,
		headers: header,
	}
	if len(header) > 0 {
		headerRow := make([]string, len(header))
		for i, h := range header {
			headerRow[i] = Bold(strings.ToUpper(h))
		}
		fmt.Fprintln(tw, strings.Join(headerRow, "\t"))
	}
	return t
}

// AddRow adds a row to the table.
func (t *Table) AddRow(row ...string) {
	fmt.Fprintln(t.writer, strings.Join(row, "\t"))
}

// Render flushes the table.
func (t *Table) Render() {
	t.writer.Flush()
}

// PrintPackages prints packages in a formatted table.
func PrintPackages(w io.Writer, packages []*manager.Package) {
	if len(packages) == 0 {
		MutedMsg("No packages found")
		return
	}

	t := NewTableWriter(w, []string{"name", "id", "version", "source", ""})
	for _, p := range packages {
		t.AddRow(
			PackageName.Sprint(truncate(p.Name, 40)),
			p.ID,
			PackageVersion.Sprint(p.Version),
			PackageSource.Sprint(p.ManagerName()+": "+p.SourceName()),
			TagLabel(p.Tag()),
		)
	}
	t.Render()
}

// PrintUpdates prints upgradable packages with their new version.
func PrintUpdates(w io.Writer, packages []*manager.Package) {
	if len(packages) == 0 {
		MutedMsg("Everything is up to date")
		return
	}

	t := NewTableWriter(w, []string{"name", "id", "version", "", "new version", "source"})
	for _, p := range packages {
		t.AddRow(
			PackageName.Sprint(truncate(p.Name, 40)),
			p.ID,
			p.Version,
			SymbolArrow,
			NewVersion.Sprint(p.NewVersion),
			PackageSource.Sprint(p.ManagerName()+": "+p.SourceName()),
		)
	}
	t.Render()
}

// PrintManagers prints the registered backends.
func PrintManagers(w io.Writer, managers []manager.Manager, enabled func(string) bool) {
	t := NewTableWriter(w, []string{"name", "status", "executable", "default source", "features"})
	for _, m := range managers {
		status := Installed.Sprint("available")
		switch {
		case !enabled(m.Name()):
			status = Muted.Sprint("disabled")
		case !m.IsAvailable():
			status = NotInstalled.Sprint("not found")
		}

		def := ""
		if src := m.Properties().DefaultSource; src != nil {
			def = src.Name
		}
		t.AddRow(Bold(m.DisplayName()), status, m.ExecutablePath(), def, features(m.Capabilities()))
	}
	t.Render()
}

func features(c manager.Capabilities) string {
	var out []string
	add := func(ok bool, name string) {
		if ok {
			out = append(out, name)
		}
	}
	add(c.CanRunAsAdmin, "admin")
	add(c.CanSkipIntegrityChecks, "skip-hash")
	add(c.CanRunInteractively, "interactive")
	add(c.SupportsCustomVersions, "version")
	add(c.SupportsCustomArchitectures, "arch")
	add(c.SupportsCustomScopes, "scope")
	add(c.SupportsPreRelease, "prerelease")
	add(c.SupportsCustomSources, "sources")
	return strings.Join(out, ",")
}

// PrintOperations prints the state of a batch of operations.
func PrintOperations(w io.Writer, ops []*operation.Operation) {
	t := NewTableWriter(w, []string{"operation", "package", "status", "runs", "time"})
	for _, op := range ops {
		t.AddRow(
			string(op.Type()),
			op.Package().String(),
			StatusLabel(op.Status()),
			fmt.Sprint(op.Runs()),
			op.Duration().Round(100*time.Millisecond).String(),
		)
	}
	t.Render()
}

// PrintHistory prints recorded operations, newest first.
func PrintHistory(w io.Writer, entries []history.Entry) {
	if len(entries) == 0 {
		MutedMsg("No operations recorded")
		return
	}

	t := NewTableWriter(w, []string{"id", "time", "operation", "package", "manager", "status"})
	for _, e := range entries {
		status := Success.Sprint(e.Status)
		if !e.Success() {
			status = Error.Sprint(e.Status)
		}
		t.AddRow(Muted.Sprint(e.ID[:min(8, len(e.ID))]), e.FormatTime(), string(e.Operation), e.PackageID+" "+e.Version, e.Manager, status)
	}
	t.Render()
}

// PrintPackage prints the details of one package.
func PrintPackage(p *manager.Package) {
	HeaderMsg("%s", p.Name)

	printField("Id", p.ID)
	printField("Version", PackageVersion.Sprint(p.Version))
	if p.IsUpgradable() {
		printField("New version", NewVersion.Sprint(p.NewVersion))
	}
	printField("Manager", p.ManagerName())
	printField("Source", PackageSource.Sprint(p.SourceName()))
	if p.Scope() != manager.ScopeDefault {
		printField("Scope", string(p.Scope()))
	}
	if label := TagLabel(p.Tag()); label != "" {
		printField("Status", label)
	}
}

// PrintEntry prints one history entry with its output tail.
func PrintEntry(e *history.Entry) {
	HeaderMsg("Operation %s", e.ID)

	printField("Time", e.FormatTime())
	printField("Operation", string(e.Operation))
	printField("Package", fmt.Sprintf("%s (%s)", e.PackageName, e.PackageID))
	printField("Version", e.Version)
	printField("Source", e.Manager+": "+e.Source)
	printField("Status", e.Status)
	printField("Runs", fmt.Sprint(e.Runs))
	printField("Duration", e.Duration.Round(time.Millisecond).String())
	if e.Error != "" {
		printField("Error", e.Error)
	}

	if len(e.Output) > 0 {
		fmt.Println()
		for _, line := range e.Output {
			MutedMsg("  %s", line)
		}
	}
}

// printField prints a single field with formatting.
func printField(label, value string) {
	fmt.Printf("  %s: %s\n", Cyan(label), value)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-3] + "..."
}
