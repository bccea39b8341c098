// Package managertest provides a scriptable Manager for tests.
package managertest

import (
	"context"
	"strings"
	"sync"

	"unipkg/pkg/manager"
)

// Fake is a Manager whose behavior is driven by its fields. The zero value
// plus a name is an available backend with no packages that succeeds on
// return code 0 and fails otherwise.
type Fake struct {
	ManagerName string
	Unavailable bool
	Caps        manager.Capabilities
	Executable  string
	CallArgs    []string

	// PlaceholderIDs are reported by IsPlaceholder.
	PlaceholderIDs []string

	FindFunc      func(ctx context.Context, query string) ([]*manager.Package, error)
	InstalledFunc func(ctx context.Context) ([]*manager.Package, error)
	UpdatesFunc   func(ctx context.Context) ([]*manager.Package, error)
	ParamsFunc    func(op manager.OperationType, p *manager.Package, opts manager.InstallationOptions) []string
	VerdictFunc   func(op manager.OperationType, p *manager.Package, opts manager.InstallationOptions, code int, output []string) manager.Result

	mu      sync.Mutex
	sources map[string]*manager.ManagerSource
}

// New returns an available fake backend.
func New(name string) *Fake {
	return &Fake{ManagerName: name}
}

// Package creates a package owned by f in its default source.
func (f *Fake) Package(id, version string) *manager.Package {
	return manager.NewPackage(id, id, version, f.SourceOrDefault(""), f, manager.ScopeDefault)
}

// Upgradable creates a package owned by f with an update to newVersion.
func (f *Fake) Upgradable(id, version, newVersion string) *manager.Package {
	return manager.NewUpgradablePackage(id, id, version, newVersion, f.SourceOrDefault(""), f, manager.ScopeDefault)
}

func (f *Fake) Name() string        { return f.ManagerName }
func (f *Fake) DisplayName() string { return strings.ToUpper(f.ManagerName) }
func (f *Fake) IsAvailable() bool   { return !f.Unavailable }

func (f *Fake) ExecutablePath() string {
	if f.Executable != "" {
		return f.Executable
	}
	return f.ManagerName
}

func (f *Fake) Capabilities() manager.Capabilities { return f.Caps }

func (f *Fake) Properties() manager.Properties {
	return manager.Properties{
		Name:               f.ManagerName,
		DisplayName:        f.DisplayName(),
		ExecutableCallArgs: f.CallArgs,
		InstallVerb:        "install",
		UpdateVerb:         "update",
		UninstallVerb:      "uninstall",
		DefaultSource:      f.SourceOrDefault(""),
	}
}

func (f *Fake) SourceOrDefault(name string) *manager.ManagerSource {
	if name == "" {
		name = f.ManagerName
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sources == nil {
		f.sources = make(map[string]*manager.ManagerSource)
	}
	src, ok := f.sources[name]
	if !ok {
		src = manager.NewSource(f.ManagerName, name, "")
		f.sources[name] = src
	}
	return src
}

func (f *Fake) IsPlaceholder(p *manager.Package) bool {
	for _, id := range f.PlaceholderIDs {
		if p.ID == id {
			return true
		}
	}
	return false
}

func (f *Fake) FindPackages(ctx context.Context, query string) ([]*manager.Package, error) {
	if f.FindFunc == nil {
		return nil, nil
	}
	return f.FindFunc(ctx, query)
}

func (f *Fake) GetInstalledPackages(ctx context.Context) ([]*manager.Package, error) {
	if f.InstalledFunc == nil {
		return nil, nil
	}
	return f.InstalledFunc(ctx)
}

func (f *Fake) GetAvailableUpdates(ctx context.Context) ([]*manager.Package, error) {
	if f.UpdatesFunc == nil {
		return nil, nil
	}
	return f.UpdatesFunc(ctx)
}

func (f *Fake) params(op manager.OperationType, p *manager.Package, opts manager.InstallationOptions) []string {
	if f.ParamsFunc != nil {
		return f.ParamsFunc(op, p, opts)
	}
	return []string{string(op), p.ID}
}

func (f *Fake) InstallParameters(p *manager.Package, opts manager.InstallationOptions) []string {
	return f.params(manager.OpInstall, p, opts)
}

func (f *Fake) UpdateParameters(p *manager.Package, opts manager.InstallationOptions) []string {
	return f.params(manager.OpUpdate, p, opts)
}

func (f *Fake) UninstallParameters(p *manager.Package, opts manager.InstallationOptions) []string {
	return f.params(manager.OpUninstall, p, opts)
}

func (f *Fake) verdict(op manager.OperationType, p *manager.Package, opts manager.InstallationOptions, code int, output []string) manager.Result {
	if f.VerdictFunc != nil {
		return f.VerdictFunc(op, p, opts, code, output)
	}
	v := manager.VerdictSucceeded
	if code != 0 {
		v = manager.VerdictFailed
	}
	return manager.Result{Verdict: v, Options: opts, Scope: p.Scope()}
}

func (f *Fake) InstallVerdict(p *manager.Package, opts manager.InstallationOptions, code int, output []string) manager.Result {
	return f.verdict(manager.OpInstall, p, opts, code, output)
}

func (f *Fake) UpdateVerdict(p *manager.Package, opts manager.InstallationOptions, code int, output []string) manager.Result {
	return f.verdict(manager.OpUpdate, p, opts, code, output)
}

func (f *Fake) UninstallVerdict(p *manager.Package, opts manager.InstallationOptions, code int, output []string) manager.Result {
	return f.verdict(manager.OpUninstall, p, opts, code, output)
}

var _ manager.Manager = (*Fake)(nil)
