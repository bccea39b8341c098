package bundle

import (
	"errors"

	"unipkg/pkg/manager"
)

var (
	// ErrInvalidPackage is returned when an operation is requested for a
	// package that cannot be managed.
	ErrInvalidPackage = errors.New("package cannot be managed from a bundle")

	// ErrUnsupportedFormat is returned for unknown bundle file extensions.
	ErrUnsupportedFormat = errors.New("unsupported bundle format")

	// ErrInvalidBundle is returned when a file is not a bundle.
	ErrInvalidBundle = errors.New("invalid bundle")
)

// Item is one entry of a bundle.
type Item interface {
	manager.Identifiable

	// Valid reports whether the item can be installed.
	Valid() bool

	// Resolve returns the package to operate on, or ErrInvalidPackage.
	Resolve() (*manager.Package, error)

	// SourceString renders the source as "manager: source".
	SourceString() string
}

// IgnoreLookup reports ignored updates for a package.
type IgnoreLookup interface {
	IgnoredVersion(p *manager.Package) (string, bool)
}

// ImportedPackage is a bundle entry bound to a live backend.
type ImportedPackage struct {
	pkg     *manager.Package
	Updates UpdatesOptions
}

// FromRecord binds rec to m. The record's installation options become the
// package's overrides.
func FromRecord(rec ValidRecord, m manager.Manager) *ImportedPackage {
	p := manager.NewPackage(rec.Name, rec.ID, rec.Version, m.SourceOrDefault(rec.Source), m, rec.InstallationOptions.InstallationScope)
	p.SetOverriddenOptions(rec.InstallationOptions)
	return &ImportedPackage{pkg: p, Updates: rec.Updates}
}

// FromPackage wraps a discovered package for a bundle. Packages from a
// virtual source cannot be reinstalled and become invalid items.
func FromPackage(p *manager.Package, ignored IgnoreLookup) Item {
	if p.Manager == nil || p.Source == nil || p.Source.IsVirtualManager {
		return invalidFromPackage(p)
	}

	ip := &ImportedPackage{pkg: p}
	if ignored != nil {
		if v, ok := ignored.IgnoredVersion(p); ok {
			ip.Updates = UpdatesOptions{UpdatesIgnored: true, IgnoredVersion: v}
		}
	}
	return ip
}

// Identity implements manager.Identifiable.
func (ip *ImportedPackage) Identity() manager.Identity { return ip.pkg.Identity() }

// DisplayName implements manager.Identifiable.
func (ip *ImportedPackage) DisplayName() string { return ip.pkg.Name }

// Valid is always true.
func (ip *ImportedPackage) Valid() bool { return true }

// Resolve returns the bound package.
func (ip *ImportedPackage) Resolve() (*manager.Package, error) { return ip.pkg, nil }

// SourceString returns "manager: source".
func (ip *ImportedPackage) SourceString() string {
	return sourceString(ip.pkg.ManagerName(), ip.pkg.SourceName())
}

// Record returns the serializable form.
func (ip *ImportedPackage) Record() ValidRecord {
	return ValidRecord{
		ID:                  ip.pkg.ID,
		Name:                ip.pkg.Name,
		Version:             ip.pkg.Version,
		Source:              ip.pkg.SourceName(),
		ManagerName:         ip.pkg.ManagerName(),
		InstallationOptions: ip.pkg.OverriddenOptions(),
		Updates:             ip.Updates,
	}
}

// InvalidImportedPackage is a bundle entry that cannot be managed: its
// backend is missing or its source is virtual. It is kept for reference
// and refuses every operation.
type InvalidImportedPackage struct {
	name    string
	id      string
	version string
	source  string
}

// NewInvalidImportedPackage creates an invalid item from its record.
func NewInvalidImportedPackage(rec IncompatibleRecord) *InvalidImportedPackage {
	return &InvalidImportedPackage{
		name:    rec.Name,
		id:      rec.ID,
		version: rec.Version,
		source:  rec.Source,
	}
}

func invalidFromPackage(p *manager.Package) *InvalidImportedPackage {
	var managerName, source string
	switch {
	case p.Manager == nil:
		source = p.SourceName()
	case !p.Manager.Capabilities().SupportsCustomSources:
		managerName = p.ManagerName()
	case p.Source != nil && p.Source.IsVirtualManager:
		managerName = p.SourceName()
	default:
		managerName, source = p.ManagerName(), p.SourceName()
	}
	if managerName == "" {
		managerName, source = source, ""
	}

	return &InvalidImportedPackage{
		name:    p.Name,
		id:      p.ID,
		version: p.Version,
		source:  sourceString(managerName, source),
	}
}

// Identity implements manager.Identifiable.
func (ip *InvalidImportedPackage) Identity() manager.Identity {
	return manager.Identity{ID: ip.id, Version: ip.version, Source: ip.source}
}

// DisplayName implements manager.Identifiable.
func (ip *InvalidImportedPackage) DisplayName() string { return ip.name }

// Valid is always false.
func (ip *InvalidImportedPackage) Valid() bool { return false }

// Resolve always fails with ErrInvalidPackage.
func (ip *InvalidImportedPackage) Resolve() (*manager.Package, error) {
	return nil, ErrInvalidPackage
}

// SourceString returns the recorded source.
func (ip *InvalidImportedPackage) SourceString() string { return ip.source }

// Record returns the serializable form.
func (ip *InvalidImportedPackage) Record() IncompatibleRecord {
	return IncompatibleRecord{
		ID:      ip.id,
		Name:    ip.name,
		Version: ip.version,
		Source:  ip.source,
	}
}
