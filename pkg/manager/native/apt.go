package native

import (
	"context"
	"regexp"
	"strings"

	"unipkg/internal/executor"
	"unipkg/pkg/manager"
)

var (
	// "git/jammy-updates,jammy-security 1:2.34.1-1ubuntu1.10 amd64 [installed]"
	aptListPattern = regexp.MustCompile(`^(\S+)/(\S+)\s+(\S+)\s+(\S+)`)

	// "git/jammy-updates 1:2.34.1-1ubuntu1.11 amd64 [upgradable from: 1:2.34.1-1ubuntu1.10]"
	aptUpgradablePattern = regexp.MustCompile(`^(\S+)/(\S+)\s+(\S+)\s+\S+\s+\[upgradable from: ([^\]]+)\]`)
)

// APT implements the Manager interface for APT (Debian/Ubuntu).
type APT struct {
	*BaseManager
}

// NewAPT creates a new APT manager instance.
func NewAPT() *APT {
	src := manager.NewSource("apt", "apt", "")

	return &APT{
		BaseManager: NewBaseManager(Definition{
			Properties: manager.Properties{
				Name:                   "apt",
				DisplayName:            "APT (Debian/Ubuntu)",
				Description:            "The package manager of Debian and its derivatives.",
				IconID:                 "apt",
				ExecutableFriendlyName: "apt-get",
				InstallVerb:            "install",
				UpdateVerb:             "install",
				UninstallVerb:          "remove",
				KnownSources:           []*manager.ManagerSource{src},
				DefaultSource:          src,
			},
			Capabilities: manager.Capabilities{
				CanRunAsAdmin:            true,
				CanRemoveDataOnUninstall: true,
				SupportsCustomVersions:   true,
			},
			Binary:               "apt-get",
			FalsePackageIDs:      []string{"", "Listing..."},
			FalsePackageVersions: []string{""},
		}),
	}
}

// FindPackages runs `apt list` with a name pattern.
func (a *APT) FindPackages(ctx context.Context, query string) ([]*manager.Package, error) {
	lines, err := a.runCommand(ctx, executor.Command{Path: "apt", Args: []string{"list", "*" + query + "*"}})
	if err != nil {
		return nil, err
	}

	var packages []*manager.Package
	for _, line := range lines {
		m := aptListPattern.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		p := newPackage(a, m[1], m[1], m[3], a.def.Properties.DefaultSource, manager.ScopeGlobal)
		if a.IsPlaceholder(p) {
			continue
		}
		packages = append(packages, p)
	}
	return packages, nil
}

// GetInstalledPackages queries dpkg.
func (a *APT) GetInstalledPackages(ctx context.Context) ([]*manager.Package, error) {
	lines, err := a.runCommand(ctx, executor.Command{
		Path: "dpkg-query",
		Args: []string{"-W", "-f=${db:Status-Abbrev}\t${Package}\t${Version}\n"},
	})
	if err != nil {
		return nil, err
	}

	var packages []*manager.Package
	for _, line := range lines {
		fields := strings.Split(line, "\t")
		if len(fields) != 3 || !strings.HasPrefix(fields[0], "ii") {
			continue
		}
		p := newPackage(a, fields[1], fields[1], fields[2], a.def.Properties.DefaultSource, manager.ScopeGlobal)
		if a.IsPlaceholder(p) {
			continue
		}
		packages = append(packages, p)
	}
	return packages, nil
}

// GetAvailableUpdates parses `apt list --upgradable`.
func (a *APT) GetAvailableUpdates(ctx context.Context) ([]*manager.Package, error) {
	lines, err := a.runCommand(ctx, executor.Command{Path: "apt", Args: []string{"list", "--upgradable"}})
	if err != nil {
		return nil, err
	}

	var packages []*manager.Package
	for _, line := range lines {
		m := aptUpgradablePattern.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		p := manager.NewUpgradablePackage(m[1], m[1], m[4], m[3], a.def.Properties.DefaultSource, a, manager.ScopeGlobal)
		if a.IsPlaceholder(p) {
			continue
		}
		packages = append(packages, p)
	}
	return packages, nil
}

// InstallParameters builds `install -y pkg[=version]`.
func (a *APT) InstallParameters(p *manager.Package, opts manager.InstallationOptions) []string {
	target := p.ID
	if opts.Version != "" {
		target += "=" + opts.Version
	}
	params := []string{a.def.Properties.InstallVerb, "-y", target}
	return append(params, opts.CustomParameters...)
}

// UpdateParameters builds `install --only-upgrade -y pkg`.
func (a *APT) UpdateParameters(p *manager.Package, opts manager.InstallationOptions) []string {
	params := []string{a.def.Properties.UpdateVerb, "--only-upgrade", "-y", p.ID}
	return append(params, opts.CustomParameters...)
}

// UninstallParameters builds `remove -y pkg`, or `purge` when data is to be
// removed too.
func (a *APT) UninstallParameters(p *manager.Package, opts manager.InstallationOptions) []string {
	verb := a.def.Properties.UninstallVerb
	if opts.RemoveDataOnUninstall {
		verb = "purge"
	}
	params := []string{verb, "-y", p.ID}
	return append(params, opts.CustomParameters...)
}

// InstallVerdict classifies an install run.
func (a *APT) InstallVerdict(p *manager.Package, opts manager.InstallationOptions, code int, output []string) manager.Result {
	return a.verdict(p, opts, code, output)
}

// UpdateVerdict classifies an upgrade run.
func (a *APT) UpdateVerdict(p *manager.Package, opts manager.InstallationOptions, code int, output []string) manager.Result {
	return a.verdict(p, opts, code, output)
}

// UninstallVerdict classifies a removal run.
func (a *APT) UninstallVerdict(p *manager.Package, opts manager.InstallationOptions, code int, output []string) manager.Result {
	return a.verdict(p, opts, code, output)
}

func (a *APT) verdict(p *manager.Package, opts manager.InstallationOptions, code int, output []string) manager.Result {
	if code == 0 {
		return manager.Result{Verdict: manager.VerdictSucceeded, Options: opts, Scope: p.Scope()}
	}

	d := DiagnoseAPT(output)
	if d != nil && d.Kind == FailurePermissionDenied && !opts.RunAsAdministrator {
		retry := opts.Clone()
		retry.RunAsAdministrator = true
		return manager.Result{Verdict: manager.VerdictAutoRetry, Options: retry, Scope: p.Scope()}
	}
	// A held lock outlives an immediate retry; Diagnose reports it.
	return manager.Result{Verdict: manager.VerdictFailed, Options: opts, Scope: p.Scope()}
}

// Diagnose explains a failed run.
func (a *APT) Diagnose(output []string) string {
	if d := DiagnoseAPT(output); d != nil {
		return d.String()
	}
	return ""
}

var (
	_ manager.Manager   = (*APT)(nil)
	_ manager.Diagnoser = (*APT)(nil)
)
