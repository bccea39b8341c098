package history

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.etcd.io/bbolt"

	"unipkg/pkg/manager"
)

const (
	bucketHistory = "history"
	bucketIgnored = "ignored_updates"

	// allVersions ignores every future update of a package.
	allVersions = "*"
)

// ErrNotFound is returned when an entry does not exist.
var ErrNotFound = errors.New("history entry not found")

// Store manages operation history and ignored updates using BoltDB.
type Store struct {
	db *bbolt.DB
}

// Open opens or creates the database at path.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	db, err := bbolt.Open(path, 0600, &bbolt.Options{
		Timeout: 1 * time.Second,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open history database: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		for _, name := range []string{bucketHistory, bucketIgnored} {
			if _, err := tx.CreateBucketIfNotExists([]byte(name)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize buckets: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// entryKey sorts chronologically; the id keeps simultaneous entries apart.
func entryKey(e *Entry) []byte {
	return []byte(e.Timestamp.UTC().Format("20060102T150405.000000000Z") + "/" + e.ID)
}

// Record saves an entry.
func (s *Store) Record(entry *Entry) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(bucketHistory))

		data, err := json.Marshal(entry)
		if err != nil {
			return fmt.Errorf("failed to marshal entry: %w", err)
		}
		if err := bucket.Put(entryKey(entry), data); err != nil {
			return fmt.Errorf("failed to save entry: %w", err)
		}
		return nil
	})
}

// List returns the most recent entries, newest first. A limit of zero or
// less returns everything.
func (s *Store) List(limit int) ([]Entry, error) {
	var entries []Entry

	err := s.db.View(func(tx *bbolt.Tx) error {
		cursor := tx.Bucket([]byte(bucketHistory)).Cursor()
		for k, v := cursor.Last(); k != nil && (limit <= 0 || len(entries) < limit); k, v = cursor.Prev() {
			var entry Entry
			if err := json.Unmarshal(v, &entry); err != nil {
				continue // Skip malformed entries
			}
			entries = append(entries, entry)
		}
		return nil
	})

	return entries, err
}

// Get retrieves an entry by id or id prefix.
func (s *Store) Get(id string) (*Entry, error) {
	var entry *Entry

	err := s.db.View(func(tx *bbolt.Tx) error {
		cursor := tx.Bucket([]byte(bucketHistory)).Cursor()
		for k, v := cursor.Last(); k != nil; k, v = cursor.Prev() {
			var e Entry
			if err := json.Unmarshal(v, &e); err != nil {
				continue
			}
			if e.ID == id || (len(id) >= 8 && strings.HasPrefix(e.ID, id)) {
				entry = &e
				return nil
			}
		}
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	})

	return entry, err
}

// Last returns the most recent entry, or nil if there is none.
func (s *Store) Last() (*Entry, error) {
	entries, err := s.List(1)
	if err != nil || len(entries) == 0 {
		return nil, err
	}
	return &entries[0], nil
}

// Count returns the total number of entries.
func (s *Store) Count() (int, error) {
	var count int
	err := s.db.View(func(tx *bbolt.Tx) error {
		count = tx.Bucket([]byte(bucketHistory)).Stats().KeyN
		return nil
	})
	return count, err
}

// Clear removes all history entries. Ignored updates are kept.
func (s *Store) Clear() error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		if err := tx.DeleteBucket([]byte(bucketHistory)); err != nil && !errors.Is(err, bbolt.ErrBucketNotFound) {
			return err
		}
		_, err := tx.CreateBucket([]byte(bucketHistory))
		return err
	})
}

// Prune removes entries older than maxAge.
func (s *Store) Prune(maxAge time.Duration) (int, error) {
	cutoff := time.Now().Add(-maxAge)
	return s.deleteWhere(func(i int, e *Entry) bool {
		return e.Timestamp.Before(cutoff)
	})
}

// Trim keeps only the newest max entries.
func (s *Store) Trim(max int) (int, error) {
	return s.deleteWhere(func(i int, _ *Entry) bool {
		return i >= max
	})
}

// deleteWhere walks entries newest first; i is the entry's rank.
func (s *Store) deleteWhere(match func(i int, e *Entry) bool) (int, error) {
	var deleted int

	err := s.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(bucketHistory))

		var toDelete [][]byte
		cursor := bucket.Cursor()
		i := 0
		for k, v := cursor.Last(); k != nil; k, v = cursor.Prev() {
			var e Entry
			if err := json.Unmarshal(v, &e); err == nil && match(i, &e) {
				toDelete = append(toDelete, append([]byte(nil), k...))
			}
			i++
		}

		for _, k := range toDelete {
			if err := bucket.Delete(k); err != nil {
				return err
			}
			deleted++
		}
		return nil
	})

	return deleted, err
}

func ignoreKey(p *manager.Package) []byte {
	return []byte(strings.ToLower(p.ManagerName()) + "\\" + p.ID)
}

// Ignore stops offering updates of p up to version. An empty version
// ignores every update.
func (s *Store) Ignore(p *manager.Package, version string) error {
	if version == "" {
		version = allVersions
	}
	return s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(bucketIgnored)).Put(ignoreKey(p), []byte(version))
	})
}

// Unignore offers updates of p again.
func (s *Store) Unignore(p *manager.Package) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(bucketIgnored)).Delete(ignoreKey(p))
	})
}

// IgnoredVersion returns the ignored version of p, "*" meaning all.
func (s *Store) IgnoredVersion(p *manager.Package) (string, bool) {
	var version string
	_ = s.db.View(func(tx *bbolt.Tx) error { //nolint:errcheck
		if v := tx.Bucket([]byte(bucketIgnored)).Get(ignoreKey(p)); v != nil {
			version = string(v)
		}
		return nil
	})
	return version, version != ""
}

// IsIgnored reports whether the update of p to version is ignored.
func (s *Store) IsIgnored(p *manager.Package, version string) bool {
	ignored, ok := s.IgnoredVersion(p)
	return ok && (ignored == allVersions || ignored == version)
}

// IgnoredUpdates returns every ignored update keyed by "manager\id".
func (s *Store) IgnoredUpdates() (map[string]string, error) {
	out := make(map[string]string)
	err := s.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(bucketIgnored)).ForEach(func(k, v []byte) error {
			out[string(k)] = string(v)
			return nil
		})
	})
	return out, err
}
