package manager

import (
	"hash/fnv"
	"sync"
	"sync/atomic"
)

// Identity is the tuple that distinguishes packages across backends.
type Identity struct {
	ID      string
	Version string
	Source  string
	Manager string
}

// Hash returns a stable key for the identity. When versioned is false the
// version is left out, so two versions of the same package collide.
func (i Identity) Hash(versioned bool) uint64 {
	h := fnv.New64a()
	for _, part := range []string{i.Manager, i.Source, i.ID} {
		h.Write([]byte(part))
		h.Write([]byte{0})
	}
	if versioned {
		h.Write([]byte(i.Version))
	}
	return h.Sum64()
}

// Identifiable is anything a loader can hold.
type Identifiable interface {
	Identity() Identity
	DisplayName() string
}

// Package is a package reported by a backend. Identity fields are fixed at
// construction; tag and scope change while operations run against it.
//
// An upgradable package is a Package with NewVersion set.
type Package struct {
	Name       string
	ID         string
	Version    string
	NewVersion string
	Source     *ManagerSource
	Manager    Manager

	tag atomic.Int32

	mu        sync.RWMutex
	scope     PackageScope
	overrides InstallationOptions
}

// NewPackage creates a package found by m in src.
func NewPackage(name, id, version string, src *ManagerSource, m Manager, scope PackageScope) *Package {
	return &Package{
		Name:    name,
		ID:      id,
		Version: version,
		Source:  src,
		Manager: m,
		scope:   scope,
	}
}

// NewUpgradablePackage creates a package with an available update.
func NewUpgradablePackage(name, id, version, newVersion string, src *ManagerSource, m Manager, scope PackageScope) *Package {
	p := NewPackage(name, id, version, src, m, scope)
	p.NewVersion = newVersion
	return p
}

// IsUpgradable reports whether an update is known for the package.
func (p *Package) IsUpgradable() bool {
	return p.NewVersion != ""
}

// ManagerName returns the owning backend's name.
func (p *Package) ManagerName() string {
	if p.Manager == nil {
		return ""
	}
	return p.Manager.Name()
}

// SourceName returns the source name, or "" if the package has none.
func (p *Package) SourceName() string {
	if p.Source == nil {
		return ""
	}
	return p.Source.Name
}

// Identity implements Identifiable.
func (p *Package) Identity() Identity {
	return Identity{
		ID:      p.ID,
		Version: p.Version,
		Source:  p.SourceName(),
		Manager: p.ManagerName(),
	}
}

// DisplayName implements Identifiable.
func (p *Package) DisplayName() string {
	return p.Name
}

// Tag returns the current tag.
func (p *Package) Tag() PackageTag {
	return PackageTag(p.tag.Load())
}

// SetTag replaces the tag.
func (p *Package) SetTag(t PackageTag) {
	p.tag.Store(int32(t))
}

// Scope returns the installation scope.
func (p *Package) Scope() PackageScope {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.scope
}

// SetScope changes the installation scope.
func (p *Package) SetScope(s PackageScope) {
	p.mu.Lock()
	p.scope = s
	p.mu.Unlock()
}

// OverriddenOptions returns the options pinned to this package.
func (p *Package) OverriddenOptions() InstallationOptions {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.overrides.Clone()
}

// SetOverriddenOptions pins options to this package; they are layered over
// the global defaults whenever an operation is created.
func (p *Package) SetOverriddenOptions(o InstallationOptions) {
	p.mu.Lock()
	p.overrides = o.Clone()
	p.mu.Unlock()
}

// String returns "id@version (manager)".
func (p *Package) String() string {
	s := p.ID
	if p.Version != "" {
		s += "@" + p.Version
	}
	if name := p.ManagerName(); name != "" {
		s += " (" + name + ")"
	}
	return s
}
