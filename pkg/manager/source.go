package manager

import (
	"sync"
	"time"
)

// ManagerSource is a repository, bucket or feed of a backend.
type ManagerSource struct {
	Name    string
	URL     string
	Manager string

	// IsVirtualManager marks a source that belongs to no real backend, such
	// as the pseudo-source of packages found on the machine by other means.
	IsVirtualManager bool

	mu           sync.RWMutex
	packageCount int
	updateDate   time.Time
}

// NewSource creates a source owned by the named backend.
func NewSource(manager, name, url string) *ManagerSource {
	return &ManagerSource{Name: name, URL: url, Manager: manager}
}

// NewVirtualSource creates a source that no backend can operate on.
func NewVirtualSource(name string) *ManagerSource {
	return &ManagerSource{Name: name, IsVirtualManager: true}
}

// PackageCount returns the number of packages in the source, if known.
func (s *ManagerSource) PackageCount() (int, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.packageCount, s.packageCount > 0
}

// SetPackageCount records the number of packages in the source.
func (s *ManagerSource) SetPackageCount(n int) {
	s.mu.Lock()
	s.packageCount = n
	s.mu.Unlock()
}

// UpdateDate returns when the source was last refreshed, if known.
func (s *ManagerSource) UpdateDate() (time.Time, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.updateDate, !s.updateDate.IsZero()
}

// SetUpdateDate records when the source was last refreshed.
func (s *ManagerSource) SetUpdateDate(t time.Time) {
	s.mu.Lock()
	s.updateDate = t
	s.mu.Unlock()
}

// String renders the source as "manager: name", or just the name when the
// source belongs to a virtual backend.
func (s *ManagerSource) String() string {
	if s == nil {
		return ""
	}
	if s.IsVirtualManager || s.Manager == "" {
		return s.Name
	}
	return s.Manager + ": " + s.Name
}
