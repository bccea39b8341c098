package native

import (
	"context"
	"os/exec"
	"runtime"
	"slices"
	"strconv"
	"strings"
	"time"

	"unipkg/internal/executor"
	"unipkg/pkg/manager"
)

const scoopSearchBinary = "scoop-search"

// Scoop implements the Manager interface for Scoop (Windows). Scoop is a
// PowerShell script, so every command runs through PowerShell.
type Scoop struct {
	*BaseManager
}

// NewScoop creates a new Scoop manager instance.
func NewScoop() *Scoop {
	main := manager.NewSource("scoop", "main", "https://github.com/ScoopInstaller/Main")
	known := []*manager.ManagerSource{
		main,
		manager.NewSource("scoop", "extras", "https://github.com/ScoopInstaller/Extras"),
		manager.NewSource("scoop", "versions", "https://github.com/ScoopInstaller/Versions"),
		manager.NewSource("scoop", "nirsoft", "https://github.com/kodybrown/scoop-nirsoft"),
		manager.NewSource("scoop", "sysinternals", "https://github.com/niheaven/scoop-sysinternals"),
		manager.NewSource("scoop", "php", "https://github.com/ScoopInstaller/PHP"),
		manager.NewSource("scoop", "nerd-fonts", "https://github.com/matthewjberger/scoop-nerd-fonts"),
		manager.NewSource("scoop", "nonportable", "https://github.com/ScoopInstaller/Nonportable"),
		manager.NewSource("scoop", "java", "https://github.com/ScoopInstaller/Java"),
		manager.NewSource("scoop", "games", "https://github.com/Calinou/scoop-games"),
	}

	shell := "pwsh"
	if runtime.GOOS == "windows" {
		shell = "powershell.exe"
	}

	return &Scoop{
		BaseManager: NewBaseManager(Definition{
			Properties: manager.Properties{
				Name:                   "scoop",
				DisplayName:            "Scoop",
				Description:            "Great repository with unknown but useful utilities and other interesting packages.",
				IconID:                 "scoop",
				ExecutableFriendlyName: "scoop",
				ExecutableCallArgs:     []string{"-NoProfile", "-ExecutionPolicy", "Bypass", "-Command", "scoop"},
				InstallVerb:            "install",
				UpdateVerb:             "update",
				UninstallVerb:          "uninstall",
				KnownSources:           known,
				DefaultSource:          main,
			},
			Capabilities: manager.Capabilities{
				CanRunAsAdmin:               true,
				CanSkipIntegrityChecks:      true,
				CanRemoveDataOnUninstall:    true,
				SupportsCustomArchitectures: true,
				SupportedArchitectures:      []manager.Architecture{manager.ArchX86, manager.ArchX64, manager.ArchArm64},
				SupportsCustomScopes:        true,
				SupportsCustomSources:       true,
				CanAddSource:                true,
				CanRemoveSource:             true,
				SourcesKnowPackageCount:     true,
				SourcesKnowUpdateDate:       true,
			},
			Binary:               "scoop",
			Executable:           shell,
			FalsePackageNames:    []string{""},
			FalsePackageIDs:      []string{"No"},
			FalsePackageVersions: []string{"Matches"},
		}),
	}
}

// FindPackages searches every bucket with scoop-search, installing it
// first if needed.
func (s *Scoop) FindPackages(ctx context.Context, query string) ([]*manager.Package, error) {
	search := scoopSearchBinary
	if path, err := exec.LookPath(scoopSearchBinary); err == nil {
		search = path
	} else {
		s.log.Warn("[scoop] %s was not found, installing it", scoopSearchBinary)
		if _, err := s.run(ctx, "install", "main/scoop-search"); err != nil {
			return nil, err
		}
	}

	lines, err := s.runCommand(ctx, executor.Command{Path: search, Args: []string{query}})
	if err != nil {
		return nil, err
	}
	return s.parseSearch(lines), nil
}

// parseSearch parses scoop-search output:
//
//	'main' bucket (install using 'scoop install main/<app>'):
//	    git (2.40.0)
func (s *Scoop) parseSearch(lines []string) []*manager.Package {
	var packages []*manager.Package
	source := s.def.Properties.DefaultSource

	for _, line := range lines {
		if strings.HasPrefix(line, "'") {
			bucket := strings.Trim(strings.Fields(line)[0], "'")
			source = s.SourceOrDefault(bucket)
			continue
		}

		elements := strings.Fields(line)
		if len(elements) < 2 {
			continue
		}

		id := elements[0]
		version := strings.Trim(elements[1], "()")
		p := newPackage(s, formatAsName(id), id, version, source, manager.ScopeUser)
		if s.IsPlaceholder(p) {
			continue
		}
		packages = append(packages, p)
	}

	return packages
}

// GetInstalledPackages parses `scoop list`.
func (s *Scoop) GetInstalledPackages(ctx context.Context) ([]*manager.Package, error) {
	lines, err := s.run(ctx, "list")
	if err != nil {
		return nil, err
	}

	var packages []*manager.Package
	for _, row := range tableRows(lines) {
		elements := strings.Fields(row)
		if len(elements) < 3 {
			continue
		}

		scope := manager.ScopeUser
		if strings.Contains(row, "Global install") {
			scope = manager.ScopeGlobal
		}

		p := newPackage(s, formatAsName(elements[0]), elements[0], elements[1], s.SourceOrDefault(elements[2]), scope)
		if s.IsPlaceholder(p) {
			continue
		}
		packages = append(packages, p)
	}

	return packages, nil
}

// GetAvailableUpdates parses `scoop status` and matches each row with an
// installed package to recover its bucket and scope.
func (s *Scoop) GetAvailableUpdates(ctx context.Context) ([]*manager.Package, error) {
	installed, err := s.GetInstalledPackages(ctx)
	if err != nil {
		return nil, err
	}
	byKey := make(map[string]*manager.Package, len(installed))
	for _, p := range installed {
		byKey[p.ID+"."+p.Version] = p
	}

	lines, err := s.run(ctx, "status")
	if err != nil {
		return nil, err
	}

	var packages []*manager.Package
	for _, row := range tableRows(lines) {
		elements := strings.Fields(row)
		if len(elements) < 3 {
			continue
		}

		current, ok := byKey[elements[0]+"."+elements[1]]
		if !ok {
			s.log.Warn("[scoop] upgradable package %s not found in installed packages", elements[0])
			continue
		}

		p := manager.NewUpgradablePackage(current.Name, current.ID, elements[1], elements[2], current.Source, s, current.Scope())
		if s.IsPlaceholder(p) {
			continue
		}
		packages = append(packages, p)
	}

	return packages, nil
}

// RefreshPackageIndexes updates every bucket.
func (s *Scoop) RefreshPackageIndexes(ctx context.Context) error {
	_, err := s.run(ctx, "update")
	return err
}

// Sources parses `scoop bucket list` and fills in package counts and
// update dates.
func (s *Scoop) Sources(ctx context.Context) ([]*manager.ManagerSource, error) {
	lines, err := s.run(ctx, "bucket", "list")
	if err != nil {
		return nil, err
	}

	var sources []*manager.ManagerSource
	for _, row := range tableRows(lines) {
		elements := strings.Fields(row)
		if len(elements) < 2 {
			continue
		}

		src := s.SourceOrDefault(elements[0])
		if src.URL == "" {
			src.URL = elements[1]
		}
		if len(elements) >= 5 {
			if t, err := time.ParseInLocation("2006-01-02 15:04:05", elements[2]+" "+elements[3], time.Local); err == nil {
				src.SetUpdateDate(t)
			}
			if n, err := strconv.Atoi(elements[4]); err == nil {
				src.SetPackageCount(n)
			}
		}
		sources = append(sources, src)
	}

	return sources, nil
}

// UninstallParameters builds `uninstall bucket/id [--global] [params] [--purge]`.
func (s *Scoop) UninstallParameters(p *manager.Package, opts manager.InstallationOptions) []string {
	params := []string{s.def.Properties.UninstallVerb, qualifiedID(p)}

	if isGlobal(p, opts) {
		params = append(params, "--global")
	}

	params = append(params, opts.CustomParameters...)

	if opts.RemoveDataOnUninstall {
		params = append(params, "--purge")
	}
	return params
}

// UpdateParameters builds the update command line from the uninstall one.
func (s *Scoop) UpdateParameters(p *manager.Package, opts manager.InstallationOptions) []string {
	params := s.UninstallParameters(p, opts)
	params[0] = s.def.Properties.UpdateVerb
	params = slices.DeleteFunc(params, func(arg string) bool { return arg == "--purge" })

	switch opts.Architecture {
	case manager.ArchX64:
		params = append(params, "--arch", "64bit")
	case manager.ArchX86:
		params = append(params, "--arch", "32bit")
	case manager.ArchArm64:
		params = append(params, "--arch", "arm64")
	}

	if opts.SkipHashCheck {
		params = append(params, "--skip")
	}
	return params
}

// InstallParameters builds the install command line from the update one.
func (s *Scoop) InstallParameters(p *manager.Package, opts manager.InstallationOptions) []string {
	params := s.UpdateParameters(p, opts)
	params[0] = s.def.Properties.InstallVerb
	return params
}

// UninstallVerdict classifies an uninstall run.
func (s *Scoop) UninstallVerdict(p *manager.Package, opts manager.InstallationOptions, _ int, output []string) manager.Result {
	if r, retry := scoopRetry(p, opts, output); retry {
		return r
	}
	if containsAny(output, "was uninstalled") {
		return manager.Result{Verdict: manager.VerdictSucceeded, Options: opts, Scope: p.Scope()}
	}
	return manager.Result{Verdict: manager.VerdictFailed, Options: opts, Scope: p.Scope()}
}

// InstallVerdict classifies an install run. Scoop often exits 0 on error,
// so the output decides.
func (s *Scoop) InstallVerdict(p *manager.Package, opts manager.InstallationOptions, _ int, output []string) manager.Result {
	if r, retry := scoopRetry(p, opts, output); retry {
		return r
	}
	if containsAny(output, "ERROR") {
		return manager.Result{Verdict: manager.VerdictFailed, Options: opts, Scope: p.Scope()}
	}
	return manager.Result{Verdict: manager.VerdictSucceeded, Options: opts, Scope: p.Scope()}
}

// UpdateVerdict classifies an update run like an install.
func (s *Scoop) UpdateVerdict(p *manager.Package, opts manager.InstallationOptions, code int, output []string) manager.Result {
	return s.InstallVerdict(p, opts, code, output)
}

// scoopRetry detects the two recoverable failures: a global package
// addressed without --global, and a global operation run without admin
// rights.
func scoopRetry(p *manager.Package, opts manager.InstallationOptions, output []string) (manager.Result, bool) {
	if containsAny(output, "Try again with the --global (or -g) flag instead") && p.Scope() != manager.ScopeGlobal {
		return manager.Result{Verdict: manager.VerdictAutoRetry, Options: opts, Scope: manager.ScopeGlobal}, true
	}

	if !opts.RunAsAdministrator && containsAny(output,
		"requires admin rights",
		"requires administrator rights",
		"you need admin rights to install global apps",
	) {
		retry := opts.Clone()
		retry.RunAsAdministrator = true
		return manager.Result{Verdict: manager.VerdictAutoRetry, Options: retry, Scope: p.Scope()}, true
	}

	return manager.Result{}, false
}

func qualifiedID(p *manager.Package) string {
	if src := p.SourceName(); src != "" {
		return src + "/" + p.ID
	}
	return p.ID
}

func isGlobal(p *manager.Package, opts manager.InstallationOptions) bool {
	switch p.Scope() {
	case manager.ScopeGlobal:
		return true
	case manager.ScopeDefault:
		return opts.InstallationScope == manager.ScopeGlobal
	}
	return false
}

// tableRows returns the rows that follow the "----" separator of a table.
func tableRows(lines []string) []string {
	var rows []string
	started := false
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if !started {
			started = strings.HasPrefix(trimmed, "---")
			continue
		}
		if trimmed != "" {
			rows = append(rows, line)
		}
	}
	return rows
}

var (
	_ manager.Manager   = (*Scoop)(nil)
	_ manager.Refresher = (*Scoop)(nil)
)
