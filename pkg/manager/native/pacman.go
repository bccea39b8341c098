package native

import (
	"context"
	"regexp"
	"strings"

	"unipkg/pkg/manager"
)

var (
	// "core/git 2.41.0-1 [installed]"
	pacmanSearchPattern = regexp.MustCompile(`^(\S+)/(\S+)\s+(\S+)`)

	// "git 2.41.0-1 -> 2.42.0-1"
	pacmanUpgradePattern = regexp.MustCompile(`^(\S+)\s+(\S+)\s+->\s+(\S+)`)
)

// Pacman implements the Manager interface for pacman (Arch Linux).
type Pacman struct {
	*BaseManager
}

// NewPacman creates a new Pacman manager instance.
func NewPacman() *Pacman {
	local := manager.NewSource("pacman", "local", "")
	known := []*manager.ManagerSource{
		manager.NewSource("pacman", "core", ""),
		manager.NewSource("pacman", "extra", ""),
		manager.NewSource("pacman", "multilib", ""),
	}

	return &Pacman{
		BaseManager: NewBaseManager(Definition{
			Properties: manager.Properties{
				Name:                   "pacman",
				DisplayName:            "Pacman (Arch Linux)",
				Description:            "The package manager of Arch Linux.",
				IconID:                 "pacman",
				ExecutableFriendlyName: "pacman",
				InstallVerb:            "-S",
				UpdateVerb:             "-S",
				UninstallVerb:          "-R",
				KnownSources:           known,
				DefaultSource:          local,
			},
			Capabilities: manager.Capabilities{
				CanRunAsAdmin:            true,
				CanRemoveDataOnUninstall: true,
				SupportsCustomSources:    true,
			},
			Binary:               "pacman",
			FalsePackageIDs:      []string{""},
			FalsePackageVersions: []string{""},
		}),
	}
}

// FindPackages runs `pacman -Ss`.
func (p *Pacman) FindPackages(ctx context.Context, query string) ([]*manager.Package, error) {
	lines, err := p.run(ctx, "-Ss", query)
	if err != nil {
		return nil, err
	}

	var packages []*manager.Package
	for _, line := range lines {
		// Descriptions are indented under their package.
		if strings.HasPrefix(line, " ") {
			continue
		}
		m := pacmanSearchPattern.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		pkg := newPackage(p, m[2], m[2], m[3], p.SourceOrDefault(m[1]), manager.ScopeGlobal)
		if p.IsPlaceholder(pkg) {
			continue
		}
		packages = append(packages, pkg)
	}
	return packages, nil
}

// GetInstalledPackages runs `pacman -Q`.
func (p *Pacman) GetInstalledPackages(ctx context.Context) ([]*manager.Package, error) {
	lines, err := p.run(ctx, "-Q")
	if err != nil {
		return nil, err
	}

	var packages []*manager.Package
	for _, line := range lines {
		fields := strings.Fields(line)
		if len(fields) != 2 {
			continue
		}
		pkg := newPackage(p, fields[0], fields[0], fields[1], p.def.Properties.DefaultSource, manager.ScopeGlobal)
		if p.IsPlaceholder(pkg) {
			continue
		}
		packages = append(packages, pkg)
	}
	return packages, nil
}

// GetAvailableUpdates runs `pacman -Qu` against the last synced database.
func (p *Pacman) GetAvailableUpdates(ctx context.Context) ([]*manager.Package, error) {
	lines, err := p.run(ctx, "-Qu")
	if err != nil {
		return nil, err
	}

	var packages []*manager.Package
	for _, line := range lines {
		m := pacmanUpgradePattern.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		pkg := manager.NewUpgradablePackage(m[1], m[1], m[2], m[3], p.def.Properties.DefaultSource, p, manager.ScopeGlobal)
		if p.IsPlaceholder(pkg) {
			continue
		}
		packages = append(packages, pkg)
	}
	return packages, nil
}

// InstallParameters builds `-S --noconfirm pkg`.
func (p *Pacman) InstallParameters(pkg *manager.Package, opts manager.InstallationOptions) []string {
	target := pkg.ID
	if src := pkg.SourceName(); src != "" && src != "local" {
		target = src + "/" + pkg.ID
	}
	params := []string{p.def.Properties.InstallVerb, "--noconfirm", target}
	return append(params, opts.CustomParameters...)
}

// UpdateParameters builds `-S --noconfirm pkg`.
func (p *Pacman) UpdateParameters(pkg *manager.Package, opts manager.InstallationOptions) []string {
	params := []string{p.def.Properties.UpdateVerb, "--noconfirm", pkg.ID}
	return append(params, opts.CustomParameters...)
}

// UninstallParameters builds `-R --noconfirm pkg`, or `-Rns` to also drop
// configuration and orphaned dependencies.
func (p *Pacman) UninstallParameters(pkg *manager.Package, opts manager.InstallationOptions) []string {
	verb := p.def.Properties.UninstallVerb
	if opts.RemoveDataOnUninstall {
		verb = "-Rns"
	}
	params := []string{verb, "--noconfirm", pkg.ID}
	return append(params, opts.CustomParameters...)
}

// InstallVerdict classifies an install run.
func (p *Pacman) InstallVerdict(pkg *manager.Package, opts manager.InstallationOptions, code int, output []string) manager.Result {
	return p.verdict(pkg, opts, code, output)
}

// UpdateVerdict classifies an upgrade run.
func (p *Pacman) UpdateVerdict(pkg *manager.Package, opts manager.InstallationOptions, code int, output []string) manager.Result {
	return p.verdict(pkg, opts, code, output)
}

// UninstallVerdict classifies a removal run.
func (p *Pacman) UninstallVerdict(pkg *manager.Package, opts manager.InstallationOptions, code int, output []string) manager.Result {
	return p.verdict(pkg, opts, code, output)
}

func (p *Pacman) verdict(pkg *manager.Package, opts manager.InstallationOptions, code int, output []string) manager.Result {
	if code == 0 {
		return manager.Result{Verdict: manager.VerdictSucceeded, Options: opts, Scope: pkg.Scope()}
	}

	switch d := DiagnosePacman(output); {
	case d == nil:
	case d.Kind == FailurePermissionDenied && !opts.RunAsAdministrator:
		retry := opts.Clone()
		retry.RunAsAdministrator = true
		return manager.Result{Verdict: manager.VerdictAutoRetry, Options: retry, Scope: pkg.Scope()}
	}

	return manager.Result{Verdict: manager.VerdictFailed, Options: opts, Scope: pkg.Scope()}
}

// Diagnose explains a failed run.
func (p *Pacman) Diagnose(output []string) string {
	if d := DiagnosePacman(output); d != nil {
		return d.String()
	}
	return ""
}

var (
	_ manager.Manager   = (*Pacman)(nil)
	_ manager.Diagnoser = (*Pacman)(nil)
)
