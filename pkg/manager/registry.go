package manager

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"unipkg/internal/config"
)

// Registry holds every backend the engine knows about.
type Registry struct {
	managers map[string]Manager
	cfg      *config.Config
	mu       sync.RWMutex
}

// NewRegistry creates an empty registry.
func NewRegistry(cfg *config.Config) *Registry {
	return &Registry{
		managers: make(map[string]Manager),
		cfg:      cfg,
	}
}

// Register adds a backend. A later registration under the same name
// replaces the earlier one.
func (r *Registry) Register(mgr Manager) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.managers[mgr.Name()] = mgr
}

// Get returns a backend by name.
func (r *Registry) Get(name string) (Manager, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	mgr, ok := r.managers[strings.ToLower(name)]
	return mgr, ok
}

// Lookup returns a backend by name, or ErrUnknownManager.
func (r *Registry) Lookup(name string) (Manager, error) {
	mgr, ok := r.Get(name)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownManager, name)
	}
	return mgr, nil
}

// Available returns the enabled backends whose executable was found,
// ordered by the configured source priority.
func (r *Registry) Available() []Manager {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var available []Manager
	for _, mgr := range r.managers {
		if r.enabled(mgr) && mgr.IsAvailable() {
			available = append(available, mgr)
		}
	}

	r.sortByPriority(available)
	return available
}

// All returns every registered backend, including unavailable ones.
func (r *Registry) All() []Manager {
	r.mu.RLock()
	defer r.mu.RUnlock()

	managers := make([]Manager, 0, len(r.managers))
	for _, mgr := range r.managers {
		managers = append(managers, mgr)
	}
	r.sortByPriority(managers)
	return managers
}

// ResolveSource parses a source string as written in bundles or on the
// command line: either "manager: source" or just "manager".
func (r *Registry) ResolveSource(s string) (Manager, *ManagerSource, error) {
	name, src, _ := strings.Cut(s, ":")
	mgr, err := r.Lookup(strings.TrimSpace(name))
	if err != nil {
		return nil, nil, err
	}
	return mgr, mgr.SourceOrDefault(strings.TrimSpace(src)), nil
}

func (r *Registry) enabled(mgr Manager) bool {
	if r.cfg == nil {
		return true
	}
	return r.cfg.ManagerEnabled(mgr.Name())
}

// sortByPriority sorts backends by the configured priority order, then by
// name so the result is stable across map iteration.
func (r *Registry) sortByPriority(managers []Manager) {
	priority := make(map[string]int)
	if r.cfg != nil {
		for i, name := range r.cfg.General.SourcePriority {
			priority[name] = i
		}
	}

	rank := func(m Manager) int {
		if p, ok := priority[m.Name()]; ok {
			return p
		}
		return len(priority)
	}

	sort.SliceStable(managers, func(i, j int) bool {
		pi, pj := rank(managers[i]), rank(managers[j])
		if pi != pj {
			return pi < pj
		}
		return managers[i].Name() < managers[j].Name()
	})
}
