package bundle

import (
	"unipkg/internal/logging"
	"unipkg/pkg/loader"
	"unipkg/pkg/manager"
)

// Loader holds the bundle being edited. It never reloads from backends and
// keeps several versions of the same package side by side.
type Loader struct {
	*loader.Loader[Item]

	log       *logging.Log
	installed *loader.PackageLoader
	ignored   IgnoreLookup
}

// NewLoader creates a bundle loader. installed and ignored may be nil; when
// installed is given, entries already installed are tagged as such.
func NewLoader(managers []manager.Manager, log *logging.Log, installed *loader.PackageLoader, ignored IgnoreLookup) *Loader {
	if log == nil {
		log = logging.Nop()
	}
	l := &Loader{log: log, installed: installed, ignored: ignored}
	l.Loader = loader.New(managers, log, loader.Config[Item]{
		Name:                  "bundles",
		AllowMultipleVersions: true,
		DisableReload:         true,
		OnAdd:                 l.tagInstalled,
	})
	return l
}

// AddPackages adds discovered packages and bundle items. Discovered
// packages from a virtual source are added as invalid items.
// PackagesChanged fires once.
func (l *Loader) AddPackages(values ...manager.Identifiable) {
	items := make([]Item, 0, len(values))
	for _, v := range values {
		switch it := v.(type) {
		case *manager.Package:
			item := FromPackage(it, l.ignored)
			if item.Valid() {
				l.log.Debug("adding package %s to bundle", it.ID)
			} else {
				l.log.Debug("adding package %s to bundle as incompatible", it.ID)
			}
			items = append(items, item)
		case Item:
			items = append(items, it)
		default:
			l.log.Error("cannot add %T %s to a bundle", v, v.Identity().ID)
		}
	}
	l.Loader.AddPackages(items...)
}

// Document exports the current contents.
func (l *Loader) Document() Document {
	return Export(l.Packages())
}

// Import resolves doc and adds its entries.
func (l *Loader) Import(doc Document, reg *manager.Registry) {
	items := Resolve(doc, reg)
	values := make([]manager.Identifiable, len(items))
	for i, item := range items {
		values[i] = item
	}
	l.AddPackages(values...)
}

// Installable returns the packages that can be installed, in order.
func (l *Loader) Installable() []*manager.Package {
	var out []*manager.Package
	for _, item := range l.Packages() {
		if p, err := item.Resolve(); err == nil {
			out = append(out, p)
		}
	}
	return out
}

func (l *Loader) tagInstalled(item Item) {
	if l.installed == nil {
		return
	}
	p, err := item.Resolve()
	if err != nil {
		return
	}
	for _, inst := range l.installed.Packages() {
		if inst.ID == p.ID && inst.ManagerName() == p.ManagerName() {
			p.SetTag(manager.TagAlreadyInstalled)
			return
		}
	}
}
