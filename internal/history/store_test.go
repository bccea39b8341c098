package history

import (
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"unipkg/pkg/manager"
	"unipkg/pkg/manager/managertest"
)

func setupTestStore(t *testing.T) *Store {
	t.Helper()

	store, err := Open(filepath.Join(t.TempDir(), "data", "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func testEntry(id string, ts time.Time) *Entry {
	return &Entry{
		ID:        id,
		Timestamp: ts,
		Operation: manager.OpInstall,
		Manager:   "scoop",
		Source:    "main",
		PackageID: "git",
		Version:   "2.41.0",
		Status:    "succeeded",
		Runs:      1,
	}
}

func TestRecordAndList(t *testing.T) {
	store := setupTestStore(t)
	base := time.Now()

	for i := 0; i < 5; i++ {
		require.NoError(t, store.Record(testEntry(fmt.Sprintf("op-%d", i), base.Add(time.Duration(i)*time.Second))))
	}

	count, err := store.Count()
	require.NoError(t, err)
	assert.Equal(t, 5, count)

	entries, err := store.List(3)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, "op-4", entries[0].ID, "newest first")
	assert.Equal(t, "op-2", entries[2].ID)

	all, err := store.List(0)
	require.NoError(t, err)
	assert.Len(t, all, 5)

	last, err := store.Last()
	require.NoError(t, err)
	assert.Equal(t, "op-4", last.ID)
}

func TestLastEmpty(t *testing.T) {
	store := setupTestStore(t)

	last, err := store.Last()
	require.NoError(t, err)
	assert.Nil(t, last)
}

func TestGet(t *testing.T) {
	store := setupTestStore(t)
	require.NoError(t, store.Record(testEntry("3f2c9a1e-0000-4000-8000-000000000001", time.Now())))

	e, err := store.Get("3f2c9a1e-0000-4000-8000-000000000001")
	require.NoError(t, err)
	assert.Equal(t, "git", e.PackageID)

	e, err = store.Get("3f2c9a1e")
	require.NoError(t, err, "prefix lookup")
	assert.Equal(t, "scoop", e.Manager)

	_, err = store.Get("3f2c")
	assert.ErrorIs(t, err, ErrNotFound, "short prefixes are not matched")
}

func TestTrimAndPrune(t *testing.T) {
	store := setupTestStore(t)
	now := time.Now()

	require.NoError(t, store.Record(testEntry("old", now.Add(-48*time.Hour))))
	for i := 0; i < 4; i++ {
		require.NoError(t, store.Record(testEntry(fmt.Sprintf("new-%d", i), now.Add(time.Duration(i)*time.Second))))
	}

	deleted, err := store.Prune(24 * time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 1, deleted)

	deleted, err = store.Trim(2)
	require.NoError(t, err)
	assert.Equal(t, 2, deleted)

	entries, err := store.List(0)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "new-3", entries[0].ID)
	assert.Equal(t, "new-2", entries[1].ID)
}

func TestClearKeepsIgnoredUpdates(t *testing.T) {
	store := setupTestStore(t)
	fake := managertest.New("scoop")
	p := fake.Package("git", "2.40")

	require.NoError(t, store.Record(testEntry("op", time.Now())))
	require.NoError(t, store.Ignore(p, "2.41"))
	require.NoError(t, store.Clear())

	count, err := store.Count()
	require.NoError(t, err)
	assert.Zero(t, count)
	assert.True(t, store.IsIgnored(p, "2.41"))
}

func TestIgnoredUpdates(t *testing.T) {
	store := setupTestStore(t)
	fake := managertest.New("Scoop")
	git := fake.Package("git", "2.40")
	curl := fake.Package("curl", "8.0")

	require.NoError(t, store.Ignore(git, "2.41"))
	require.NoError(t, store.Ignore(curl, ""))

	assert.True(t, store.IsIgnored(git, "2.41"))
	assert.False(t, store.IsIgnored(git, "2.42"), "only the ignored version")
	assert.True(t, store.IsIgnored(curl, "8.1"))
	assert.True(t, store.IsIgnored(curl, "9.0"), "empty version ignores all")

	v, ok := store.IgnoredVersion(curl)
	assert.True(t, ok)
	assert.Equal(t, "*", v)

	all, err := store.IgnoredUpdates()
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"scoop\\git": "2.41", "scoop\\curl": "*"}, all)

	require.NoError(t, store.Unignore(git))
	assert.False(t, store.IsIgnored(git, "2.41"))
	_, ok = store.IgnoredVersion(git)
	assert.False(t, ok)
}

func TestReopenPersists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")

	store, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, store.Record(testEntry("op", time.Now())))
	require.NoError(t, store.Close())

	store, err = Open(path)
	require.NoError(t, err)
	defer store.Close()

	count, err := store.Count()
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestEntryReverse(t *testing.T) {
	e := testEntry("op", time.Now())
	op, ok := e.Reverse()
	assert.True(t, ok)
	assert.Equal(t, manager.OpUninstall, op)

	e.Operation = manager.OpUninstall
	op, ok = e.Reverse()
	assert.True(t, ok)
	assert.Equal(t, manager.OpInstall, op)

	e.Operation = manager.OpUpdate
	_, ok = e.Reverse()
	assert.False(t, ok, "updates cannot be undone")

	e.Operation = manager.OpInstall
	e.Status = "failed"
	_, ok = e.Reverse()
	assert.False(t, ok)
	assert.Contains(t, e.Summary(), "install git [scoop] (failed)")
}
