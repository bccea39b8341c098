package operation

import (
	"unipkg/internal/logging"
	"unipkg/pkg/loader"
	"unipkg/pkg/manager"
)

// UpdateIgnorer records updates that should stop being offered.
type UpdateIgnorer interface {
	Ignore(p *manager.Package, version string) error
}

// LoaderSync keeps the installed and upgradable collections in step with
// successful operations, so they need not be reloaded. Any field may be nil.
type LoaderSync struct {
	Installed  *loader.PackageLoader
	Upgradable *loader.PackageLoader
	Ignored    UpdateIgnorer
	Log        *logging.Log
}

// OperationChanged implements Listener.
func (s *LoaderSync) OperationChanged(ev Event) {
	if ev.Kind != EventSucceeded || ev.Op.Simulated() {
		return
	}
	p := ev.Op.Package()

	switch ev.Op.Type() {
	case manager.OpInstall:
		if s.Installed != nil {
			s.Installed.AddPackages(p)
		}

	case manager.OpUpdate:
		s.eachEquivalent(s.Installed, p, func(inst *manager.Package) {
			inst.SetTag(manager.TagDefault)
		})
		s.removeEquivalent(s.Upgradable, p)

		// Backends that cannot report the installed version would offer the
		// same update forever.
		if p.Version == "Unknown" && p.NewVersion != "" && s.Ignored != nil {
			if err := s.Ignored.Ignore(p, p.NewVersion); err != nil && s.Log != nil {
				s.Log.Warn("could not ignore update %s of %s: %v", p.NewVersion, p.ID, err)
			}
		}

	case manager.OpUninstall:
		s.removeEquivalent(s.Installed, p)
		s.removeEquivalent(s.Upgradable, p)
	}
}

// equivalent matches packages regardless of version.
func equivalent(a, b *manager.Package) bool {
	return a.ID == b.ID && a.ManagerName() == b.ManagerName() && a.SourceName() == b.SourceName()
}

func (s *LoaderSync) eachEquivalent(l *loader.PackageLoader, p *manager.Package, fn func(*manager.Package)) {
	if l == nil {
		return
	}
	for _, other := range l.Packages() {
		if equivalent(other, p) {
			fn(other)
		}
	}
}

func (s *LoaderSync) removeEquivalent(l *loader.PackageLoader, p *manager.Package) {
	if l == nil {
		return
	}
	l.RemoveWhere(func(other *manager.Package) bool {
		return equivalent(other, p)
	})
}
