package loader

import (
	"context"
	"sync"

	"unipkg/internal/logging"
	"unipkg/pkg/manager"
)

// PackageLoader is a loader of backend packages.
type PackageLoader = Loader[*manager.Package]

// IgnoreList answers whether an update was ignored by the user.
type IgnoreList interface {
	IsIgnored(p *manager.Package, version string) bool
}

// ValidPackage rejects placeholder rows and packages without an owner.
func ValidPackage(p *manager.Package) bool {
	if p == nil || p.Manager == nil {
		return false
	}
	return !p.Manager.IsPlaceholder(p)
}

// NewInstalledLoader creates the loader of installed packages.
func NewInstalledLoader(managers []manager.Manager, log *logging.Log) *PackageLoader {
	return New(managers, log, Config[*manager.Package]{
		Name: "installed",
		Discover: func(ctx context.Context, m manager.Manager) ([]*manager.Package, error) {
			return m.GetInstalledPackages(ctx)
		},
		Validate: ValidPackage,
	})
}

// NewUpgradableLoader creates the loader of available updates. Backends
// that can refresh their indexes do so before listing updates. Updates in
// ignored are dropped; ignored may be nil.
func NewUpgradableLoader(managers []manager.Manager, log *logging.Log, ignored IgnoreList) *PackageLoader {
	if log == nil {
		log = logging.Nop()
	}
	return New(managers, log, Config[*manager.Package]{
		Name: "upgradable",
		Discover: func(ctx context.Context, m manager.Manager) ([]*manager.Package, error) {
			if r, ok := m.(manager.Refresher); ok {
				if err := r.RefreshPackageIndexes(ctx); err != nil {
					log.Warn("[upgradable] could not refresh %s indexes: %v", m.Name(), err)
				}
			}
			return m.GetAvailableUpdates(ctx)
		},
		Validate: func(p *manager.Package) bool {
			if !ValidPackage(p) || !p.IsUpgradable() {
				return false
			}
			return ignored == nil || !ignored.IsIgnored(p, p.NewVersion)
		},
		OnAdd: func(p *manager.Package) {
			p.SetTag(manager.TagIsUpgradable)
		},
	})
}

// SearchLoader is a package loader whose discovery is a search query.
type SearchLoader struct {
	*PackageLoader

	mu        sync.RWMutex
	query     string
	installed *PackageLoader
}

// NewSearchLoader creates a search loader. When installed is non-nil,
// results that are already installed are tagged as such.
func NewSearchLoader(managers []manager.Manager, log *logging.Log, installed *PackageLoader) *SearchLoader {
	s := &SearchLoader{installed: installed}
	s.PackageLoader = New(managers, log, Config[*manager.Package]{
		Name: "search",
		Discover: func(ctx context.Context, m manager.Manager) ([]*manager.Package, error) {
			q := s.Query()
			if q == "" {
				return nil, nil
			}
			return m.FindPackages(ctx, q)
		},
		Validate: ValidPackage,
		OnAdd:    s.tagInstalled,
	})
	return s
}

// SetQuery changes the query used by the next reload.
func (s *SearchLoader) SetQuery(q string) {
	s.mu.Lock()
	s.query = q
	s.mu.Unlock()
}

// Query returns the current query.
func (s *SearchLoader) Query() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.query
}

// Search sets the query and reloads.
func (s *SearchLoader) Search(ctx context.Context, q string) ([]*manager.Package, error) {
	s.SetQuery(q)
	if err := s.ReloadPackages(ctx); err != nil {
		return nil, err
	}
	return s.Packages(), nil
}

func (s *SearchLoader) tagInstalled(p *manager.Package) {
	if s.installed == nil {
		return
	}
	id := p.Identity()
	for _, inst := range s.installed.Packages() {
		other := inst.Identity()
		if other.Manager == id.Manager && other.ID == id.ID {
			p.SetTag(manager.TagAlreadyInstalled)
			return
		}
	}
}
