package native

import (
	"context"
	"strings"
	"unicode/utf8"

	"unipkg/pkg/manager"
)

// winget exit code for "no applicable update found".
const wingetUpdateNotApplicable = -1978335189

// Winget implements the Manager interface for the Windows Package Manager.
type Winget struct {
	*BaseManager
	localPC *manager.ManagerSource
}

// NewWinget creates a new Winget manager instance.
func NewWinget() *Winget {
	community := manager.NewSource("winget", "winget", "https://cdn.winget.microsoft.com/cache")
	store := manager.NewSource("winget", "msstore", "https://storeedgefd.dsx.mp.microsoft.com/v9.0")

	return &Winget{
		BaseManager: NewBaseManager(Definition{
			Properties: manager.Properties{
				Name:                   "winget",
				DisplayName:            "Winget",
				Description:            "Microsoft's official package manager.",
				IconID:                 "winget",
				ExecutableFriendlyName: "winget.exe",
				InstallVerb:            "install",
				UpdateVerb:             "upgrade",
				UninstallVerb:          "uninstall",
				KnownSources:           []*manager.ManagerSource{community, store},
				DefaultSource:          community,
			},
			Capabilities: manager.Capabilities{
				CanRunAsAdmin:               true,
				CanSkipIntegrityChecks:      true,
				CanRunInteractively:         true,
				CanRemoveDataOnUninstall:    true,
				SupportsCustomVersions:      true,
				SupportsCustomArchitectures: true,
				SupportedArchitectures:      []manager.Architecture{manager.ArchX86, manager.ArchX64, manager.ArchArm64},
				SupportsCustomScopes:        true,
				SupportsCustomSources:       true,
				CanAddSource:                true,
				CanRemoveSource:             true,
			},
			Binary:            "winget",
			FalsePackageIDs:   []string{"", "Id"},
			FalsePackageNames: []string{""},
		}),
		localPC: manager.NewVirtualSource("Local PC"),
	}
}

// FindPackages runs `winget search`.
func (w *Winget) FindPackages(ctx context.Context, query string) ([]*manager.Package, error) {
	lines, err := w.run(ctx, "search", query, "--accept-source-agreements", "--disable-interactivity")
	if err != nil {
		return nil, err
	}
	return w.packagesFromTable(lines, false), nil
}

// GetInstalledPackages runs `winget list`. Entries without a winget source
// were installed by other means and land in the virtual "Local PC" source.
func (w *Winget) GetInstalledPackages(ctx context.Context) ([]*manager.Package, error) {
	lines, err := w.run(ctx, "list", "--accept-source-agreements", "--disable-interactivity")
	if err != nil {
		return nil, err
	}
	return w.packagesFromTable(lines, false), nil
}

// GetAvailableUpdates runs `winget upgrade`.
func (w *Winget) GetAvailableUpdates(ctx context.Context) ([]*manager.Package, error) {
	lines, err := w.run(ctx, "upgrade", "--include-unknown", "--accept-source-agreements", "--disable-interactivity")
	if err != nil {
		return nil, err
	}
	return w.packagesFromTable(lines, true), nil
}

// RefreshPackageIndexes runs `winget source update`.
func (w *Winget) RefreshPackageIndexes(ctx context.Context) error {
	_, err := w.run(ctx, "source", "update", "--disable-interactivity")
	return err
}

func (w *Winget) packagesFromTable(lines []string, upgradable bool) []*manager.Package {
	var packages []*manager.Package
	for _, row := range parseFixedWidthTable(lines) {
		id, version := row["Id"], row["Version"]
		if id == "" || version == "" {
			continue
		}

		src := w.localPC
		if name := row["Source"]; name != "" {
			src = w.SourceOrDefault(name)
		}

		var p *manager.Package
		if upgradable {
			if row["Available"] == "" {
				continue
			}
			p = manager.NewUpgradablePackage(row["Name"], id, version, row["Available"], src, w, manager.ScopeDefault)
		} else {
			p = newPackage(w, row["Name"], id, version, src, manager.ScopeDefault)
		}

		if w.IsPlaceholder(p) {
			continue
		}
		packages = append(packages, p)
	}
	return packages
}

func (w *Winget) commonParameters(verb string, p *manager.Package, opts manager.InstallationOptions) []string {
	params := []string{verb, "--id", p.ID, "--exact"}
	if src := p.SourceName(); src != "" && (p.Source == nil || !p.Source.IsVirtualManager) {
		params = append(params, "--source", src)
	}
	params = append(params, "--accept-source-agreements", "--disable-interactivity")

	scope := opts.InstallationScope
	if s := p.Scope(); s != manager.ScopeDefault {
		scope = s
	}
	switch scope {
	case manager.ScopeGlobal:
		params = append(params, "--scope", "machine")
	case manager.ScopeUser:
		params = append(params, "--scope", "user")
	}

	if opts.InteractiveInstallation {
		params = append(params, "--interactive")
	} else {
		params = append(params, "--silent")
	}
	return params
}

// InstallParameters builds the `winget install` command line.
func (w *Winget) InstallParameters(p *manager.Package, opts manager.InstallationOptions) []string {
	params := w.commonParameters(w.def.Properties.InstallVerb, p, opts)
	params = append(params, "--accept-package-agreements")
	if opts.Version != "" {
		params = append(params, "--version", opts.Version)
	}
	if opts.Architecture != manager.ArchDefault {
		params = append(params, "--architecture", string(opts.Architecture))
	}
	if opts.SkipHashCheck {
		params = append(params, "--ignore-security-hash")
	}
	return append(params, opts.CustomParameters...)
}

// UpdateParameters builds the `winget upgrade` command line.
func (w *Winget) UpdateParameters(p *manager.Package, opts manager.InstallationOptions) []string {
	params := w.commonParameters(w.def.Properties.UpdateVerb, p, opts)
	params = append(params, "--accept-package-agreements", "--include-unknown")
	if opts.Architecture != manager.ArchDefault {
		params = append(params, "--architecture", string(opts.Architecture))
	}
	if opts.SkipHashCheck {
		params = append(params, "--ignore-security-hash")
	}
	return append(params, opts.CustomParameters...)
}

// UninstallParameters builds the `winget uninstall` command line.
func (w *Winget) UninstallParameters(p *manager.Package, opts manager.InstallationOptions) []string {
	params := w.commonParameters(w.def.Properties.UninstallVerb, p, opts)
	if opts.RemoveDataOnUninstall {
		params = append(params, "--purge")
	}
	return append(params, opts.CustomParameters...)
}

// InstallVerdict classifies an install run.
func (w *Winget) InstallVerdict(p *manager.Package, opts manager.InstallationOptions, code int, output []string) manager.Result {
	return w.verdict(p, opts, code, output)
}

// UpdateVerdict classifies an upgrade run. An upgrade that finds nothing
// applicable means the package is already current.
func (w *Winget) UpdateVerdict(p *manager.Package, opts manager.InstallationOptions, code int, output []string) manager.Result {
	if code == wingetUpdateNotApplicable {
		return manager.Result{Verdict: manager.VerdictSucceeded, Options: opts, Scope: p.Scope()}
	}
	return w.verdict(p, opts, code, output)
}

// UninstallVerdict classifies an uninstall run.
func (w *Winget) UninstallVerdict(p *manager.Package, opts manager.InstallationOptions, code int, output []string) manager.Result {
	return w.verdict(p, opts, code, output)
}

func (w *Winget) verdict(p *manager.Package, opts manager.InstallationOptions, code int, output []string) manager.Result {
	if code == 0 {
		return manager.Result{Verdict: manager.VerdictSucceeded, Options: opts, Scope: p.Scope()}
	}

	if !opts.RunAsAdministrator && containsAny(output, "administrator", "elevation is required") {
		retry := opts.Clone()
		retry.RunAsAdministrator = true
		return manager.Result{Verdict: manager.VerdictAutoRetry, Options: retry, Scope: p.Scope()}
	}

	// The requested scope has no installer; let winget pick one.
	if opts.InstallationScope != manager.ScopeDefault && containsAny(output, "No applicable installer found") {
		retry := opts.Clone()
		retry.InstallationScope = manager.ScopeDefault
		return manager.Result{Verdict: manager.VerdictAutoRetry, Options: retry, Scope: p.Scope()}
	}

	return manager.Result{Verdict: manager.VerdictFailed, Options: opts, Scope: p.Scope()}
}

// parseFixedWidthTable parses winget's column-aligned tables. Column
// boundaries come from the header row printed just above the "---"
// separator. A second separator starts a new table.
func parseFixedWidthTable(lines []string) []map[string]string {
	type column struct {
		name  string
		start int
	}

	var (
		rows    []map[string]string
		columns []column
		prev    string
	)

	for _, raw := range lines {
		line := raw
		if i := strings.LastIndex(line, "\r"); i >= 0 {
			line = line[i+1:]
		}

		if strings.HasPrefix(strings.TrimSpace(line), "---") {
			columns = columns[:0]
			offset := 0
			for _, field := range strings.Fields(prev) {
				idx := offset + strings.Index(prev[offset:], field)
				columns = append(columns, column{name: field, start: utf8.RuneCountInString(prev[:idx])})
				offset = idx + len(field)
			}
			continue
		}

		if len(columns) == 0 || strings.TrimSpace(line) == "" {
			prev = line
			continue
		}

		runes := []rune(line)
		row := make(map[string]string, len(columns))
		for i, col := range columns {
			if col.start >= len(runes) {
				break
			}
			end := len(runes)
			if i+1 < len(columns) && columns[i+1].start < end {
				end = columns[i+1].start
			}
			row[col.name] = strings.TrimSpace(string(runes[col.start:end]))
		}
		rows = append(rows, row)
		prev = line
	}

	return rows
}

var (
	_ manager.Manager   = (*Winget)(nil)
	_ manager.Refresher = (*Winget)(nil)
)
