package manager

import "context"

// Capabilities declares which options and features a backend supports.
// Options a backend does not support are stripped before parameters are
// built.
type Capabilities struct {
	CanRunAsAdmin               bool
	CanSkipIntegrityChecks      bool
	CanRunInteractively         bool
	CanRemoveDataOnUninstall    bool
	SupportsCustomVersions      bool
	SupportsCustomArchitectures bool
	SupportedArchitectures      []Architecture
	SupportsCustomScopes        bool
	SupportsPreRelease          bool
	SupportsCustomSources       bool
	SupportsCustomPackageIcons  bool

	// Source management.
	CanAddSource            bool
	CanRemoveSource         bool
	SourcesKnowPackageCount bool
	SourcesKnowUpdateDate   bool
}

// Properties is the static description of a backend.
type Properties struct {
	Name                   string
	DisplayName            string
	Description            string
	IconID                 string
	ExecutableFriendlyName string
	ExecutableCallArgs     []string
	InstallVerb            string
	UpdateVerb             string
	UninstallVerb          string
	KnownSources           []*ManagerSource
	DefaultSource          *ManagerSource
}

// Manager is the contract every package manager backend implements.
// Discovery methods run the backend's CLI and parse its output; the
// parameter and verdict methods are pure and never touch the system.
type Manager interface {
	// Name returns the short identifier (e.g. "scoop", "apt").
	Name() string

	// DisplayName returns a human-readable name.
	DisplayName() string

	Properties() Properties
	Capabilities() Capabilities

	// IsAvailable returns true if the backend's executable was found.
	IsAvailable() bool

	// ExecutablePath returns the resolved path of the backend executable.
	ExecutablePath() string

	// SourceOrDefault resolves a source by name, falling back to the
	// default source when the name is unknown or custom sources are not
	// supported.
	SourceOrDefault(name string) *ManagerSource

	// IsPlaceholder reports whether p is a parsing artifact (header row,
	// "No matches" line, ...) rather than a real package.
	IsPlaceholder(p *Package) bool

	FindPackages(ctx context.Context, query string) ([]*Package, error)
	GetInstalledPackages(ctx context.Context) ([]*Package, error)
	GetAvailableUpdates(ctx context.Context) ([]*Package, error)

	InstallParameters(p *Package, opts InstallationOptions) []string
	UpdateParameters(p *Package, opts InstallationOptions) []string
	UninstallParameters(p *Package, opts InstallationOptions) []string

	InstallVerdict(p *Package, opts InstallationOptions, returnCode int, output []string) Result
	UpdateVerdict(p *Package, opts InstallationOptions, returnCode int, output []string) Result
	UninstallVerdict(p *Package, opts InstallationOptions, returnCode int, output []string) Result
}

// Refresher is implemented by backends that can refresh their indexes
// before discovery.
type Refresher interface {
	RefreshPackageIndexes(ctx context.Context) error
}

// Parameters dispatches to the parameter builder for op.
func Parameters(m Manager, op OperationType, p *Package, opts InstallationOptions) []string {
	switch op {
	case OpInstall:
		return m.InstallParameters(p, opts)
	case OpUpdate:
		return m.UpdateParameters(p, opts)
	case OpUninstall:
		return m.UninstallParameters(p, opts)
	}
	return nil
}

// Classify dispatches to the verdict function for op.
func Classify(m Manager, op OperationType, p *Package, opts InstallationOptions, returnCode int, output []string) Result {
	switch op {
	case OpInstall:
		return m.InstallVerdict(p, opts, returnCode, output)
	case OpUpdate:
		return m.UpdateVerdict(p, opts, returnCode, output)
	case OpUninstall:
		return m.UninstallVerdict(p, opts, returnCode, output)
	}
	return Result{Verdict: VerdictFailed, Options: opts, Scope: p.Scope()}
}

// SourceLister is implemented by backends that can enumerate their
// configured sources.
type SourceLister interface {
	Sources(ctx context.Context) ([]*ManagerSource, error)
}

// Diagnoser is implemented by backends that can explain a failed run.
// Diagnose returns "" when the failure is not recognized.
type Diagnoser interface {
	Diagnose(output []string) string
}
