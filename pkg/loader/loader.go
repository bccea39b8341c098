// Package loader keeps deduplicated package collections filled from every
// available backend.
package loader

import (
	"context"
	"fmt"
	"sync"

	"github.com/lithammer/fuzzysearch/fuzzy"
	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"

	"unipkg/internal/logging"
	"unipkg/pkg/manager"
)

// Event is a loader state transition.
type Event int

const (
	StartedLoading Event = iota
	FinishedLoading
	PackagesChanged
)

// String returns the event name.
func (e Event) String() string {
	switch e {
	case StartedLoading:
		return "started-loading"
	case FinishedLoading:
		return "finished-loading"
	case PackagesChanged:
		return "packages-changed"
	}
	return "unknown"
}

type state int

const (
	notLoaded state = iota
	loading
	loaded
)

// Config describes how a loader discovers and admits items.
type Config[T manager.Identifiable] struct {
	// Name identifies the loader in log messages.
	Name string

	// AllowMultipleVersions keeps several versions of the same package.
	AllowMultipleVersions bool

	// DisableReload turns ReloadPackages into a no-op. Items only arrive
	// through AddPackages.
	DisableReload bool

	// Discover asks one backend for its items.
	Discover func(ctx context.Context, m manager.Manager) ([]T, error)

	// Validate rejects items before admission. Nil admits everything.
	Validate func(item T) bool

	// OnAdd runs for every admitted item, before subscribers are notified.
	OnAdd func(item T)
}

// Loader owns one collection of items gathered from several backends.
// Items are keyed by identity hash; the first item seen for a key wins.
type Loader[T manager.Identifiable] struct {
	cfg      Config[T]
	managers []manager.Manager
	log      *logging.Log

	mu         sync.RWMutex
	items      map[uint64]T
	order      []uint64
	state      state
	generation uint64

	subMu   sync.Mutex
	subs    map[int]func(Event)
	nextSub int
}

// New creates a loader over managers.
func New[T manager.Identifiable](managers []manager.Manager, log *logging.Log, cfg Config[T]) *Loader[T] {
	if log == nil {
		log = logging.Nop()
	}
	return &Loader[T]{
		cfg:      cfg,
		managers: managers,
		log:      log,
		items:    make(map[uint64]T),
		subs:     make(map[int]func(Event)),
	}
}

// Name returns the loader name.
func (l *Loader[T]) Name() string {
	return l.cfg.Name
}

// Managers returns the backends this loader queries.
func (l *Loader[T]) Managers() []manager.Manager {
	return l.managers
}

// Subscribe registers fn for loader events and returns a function that
// removes it. fn is called without any loader lock held.
func (l *Loader[T]) Subscribe(fn func(Event)) func() {
	l.subMu.Lock()
	id := l.nextSub
	l.nextSub++
	l.subs[id] = fn
	l.subMu.Unlock()

	return func() {
		l.subMu.Lock()
		delete(l.subs, id)
		l.subMu.Unlock()
	}
}

func (l *Loader[T]) emit(e Event) {
	l.subMu.Lock()
	fns := make([]func(Event), 0, len(l.subs))
	for _, fn := range l.subs {
		fns = append(fns, fn)
	}
	l.subMu.Unlock()

	for _, fn := range fns {
		fn(e)
	}
}

// ReloadPackages clears the collection and queries every available backend
// concurrently. A backend that fails or panics is logged and skipped; the
// others are unaffected. The returned error is non-nil only when ctx ends.
//
// Starting a reload while another is running supersedes it: the older
// reload's results are dropped.
func (l *Loader[T]) ReloadPackages(ctx context.Context) error {
	if l.cfg.DisableReload || l.cfg.Discover == nil {
		return nil
	}

	l.mu.Lock()
	l.generation++
	gen := l.generation
	wasLoading := l.state == loading
	hadItems := len(l.order) > 0
	l.items = make(map[uint64]T)
	l.order = nil
	l.state = loading
	l.mu.Unlock()

	if !wasLoading {
		l.emit(StartedLoading)
	}
	if hadItems {
		l.emit(PackagesChanged)
	}

	var (
		g    errgroup.Group
		mu   sync.Mutex
		errs error
	)

	for _, mgr := range l.managers {
		if !mgr.IsAvailable() {
			l.log.Debug("[%s] skipping %s: not available", l.cfg.Name, mgr.Name())
			continue
		}

		m := mgr
		g.Go(func() (err error) {
			defer func() {
				if r := recover(); r != nil {
					err = fmt.Errorf("panic: %v", r)
				}
				if err != nil {
					mu.Lock()
					errs = multierr.Append(errs, fmt.Errorf("%s: %w", m.Name(), err))
					mu.Unlock()
				}
			}()

			found, err := l.cfg.Discover(ctx, m)
			if err != nil {
				return err
			}
			l.log.Debug("[%s] %s returned %d packages", l.cfg.Name, m.Name(), len(found))
			l.add(gen, found)
			return nil
		})
	}

	// Errors are collected above so that one backend never cancels the rest.
	_ = g.Wait()

	if errs != nil {
		for _, err := range multierr.Errors(errs) {
			l.log.Warn("[%s] discovery failed for %v", l.cfg.Name, err)
		}
	}

	l.mu.Lock()
	current := l.generation == gen
	if current {
		l.state = loaded
	}
	l.mu.Unlock()

	if current {
		l.emit(FinishedLoading)
		l.log.Debug("[%s] loaded %d packages", l.cfg.Name, l.Count())
	}

	return ctx.Err()
}

// AddPackages admits items that pass validation and are not yet present.
// PackagesChanged fires once if anything was added.
func (l *Loader[T]) AddPackages(items ...T) {
	l.mu.RLock()
	gen := l.generation
	l.mu.RUnlock()
	l.add(gen, items)
}

func (l *Loader[T]) add(gen uint64, items []T) {
	admitted := make([]T, 0, len(items))
	for _, item := range items {
		if l.cfg.Validate != nil && !l.cfg.Validate(item) {
			continue
		}
		admitted = append(admitted, item)
	}

	var added []T
	l.mu.Lock()
	if gen != l.generation {
		l.mu.Unlock()
		return
	}
	for _, item := range admitted {
		key := l.hash(item)
		if _, ok := l.items[key]; ok {
			continue
		}
		l.items[key] = item
		l.order = append(l.order, key)
		added = append(added, item)
	}
	l.mu.Unlock()

	if len(added) == 0 {
		return
	}
	if l.cfg.OnAdd != nil {
		for _, item := range added {
			l.cfg.OnAdd(item)
		}
	}
	l.emit(PackagesChanged)
}

func (l *Loader[T]) hash(item T) uint64 {
	return item.Identity().Hash(l.cfg.AllowMultipleVersions)
}

// Contains reports whether an item with the same identity is present.
func (l *Loader[T]) Contains(item T) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	_, ok := l.items[l.hash(item)]
	return ok
}

// Get returns the stored item matching id.
func (l *Loader[T]) Get(id manager.Identity) (T, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	item, ok := l.items[id.Hash(l.cfg.AllowMultipleVersions)]
	return item, ok
}

// Packages returns the items in insertion order.
func (l *Loader[T]) Packages() []T {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]T, 0, len(l.order))
	for _, key := range l.order {
		out = append(out, l.items[key])
	}
	return out
}

// Count returns the number of items.
func (l *Loader[T]) Count() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.order)
}

// Remove drops items with the same identity as the given ones and reports
// whether anything was removed.
func (l *Loader[T]) Remove(items ...T) bool {
	keys := make(map[uint64]bool, len(items))
	for _, item := range items {
		keys[l.hash(item)] = true
	}
	return l.removeKeys(func(key uint64, _ T) bool { return keys[key] }) > 0
}

// RemoveWhere drops every item matching fn and returns how many were
// removed.
func (l *Loader[T]) RemoveWhere(fn func(item T) bool) int {
	return l.removeKeys(func(_ uint64, item T) bool { return fn(item) })
}

func (l *Loader[T]) removeKeys(match func(key uint64, item T) bool) int {
	l.mu.Lock()
	kept := l.order[:0]
	removed := 0
	for _, key := range l.order {
		if match(key, l.items[key]) {
			delete(l.items, key)
			removed++
			continue
		}
		kept = append(kept, key)
	}
	l.order = kept
	l.mu.Unlock()

	if removed > 0 {
		l.emit(PackagesChanged)
	}
	return removed
}

// ClearPackages empties the collection and returns the loader to its
// not-yet-loaded state. A reload in progress is superseded.
func (l *Loader[T]) ClearPackages() {
	l.mu.Lock()
	l.generation++
	l.items = make(map[uint64]T)
	l.order = nil
	l.state = notLoaded
	l.mu.Unlock()

	l.emit(PackagesChanged)
}

// IsLoading reports whether a reload is in progress.
func (l *Loader[T]) IsLoading() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.state == loading
}

// IsLoaded reports whether the last reload finished.
func (l *Loader[T]) IsLoaded() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.state == loaded
}

// Filter returns the items whose display name or id fuzzy-matches query,
// in insertion order. An empty query returns everything.
func (l *Loader[T]) Filter(query string) []T {
	all := l.Packages()
	if query == "" {
		return all
	}

	var out []T
	for _, item := range all {
		if fuzzy.MatchNormalizedFold(query, item.DisplayName()) ||
			fuzzy.MatchNormalizedFold(query, item.Identity().ID) {
			out = append(out, item)
		}
	}
	return out
}
