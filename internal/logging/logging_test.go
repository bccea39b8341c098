package logging

import (
	"bytes"
	"errors"
	"io"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEntriesRecordEverySeverity(t *testing.T) {
	log := New(Config{Level: "error", Console: io.Discard})

	log.Debug("debug %d", 1)
	log.Info("info")
	log.Success("done")
	log.Warn("careful")
	log.Error("broken")

	entries := log.Entries()
	require.Len(t, entries, 5)

	var got []Severity
	for _, e := range entries {
		got = append(got, e.Severity)
	}
	assert.Equal(t, []Severity{SeverityDebug, SeverityInfo, SeveritySuccess, SeverityWarning, SeverityError}, got)
	assert.Equal(t, "debug 1", entries[0].Message)
}

func TestConsoleRespectsLevel(t *testing.T) {
	var out bytes.Buffer
	log := New(Config{Level: "warn", Console: &out, NoColor: true})

	log.Info("hidden")
	log.Warn("shown")

	assert.NotContains(t, out.String(), "hidden")
	assert.Contains(t, out.String(), "shown")
}

func TestErrIncludesError(t *testing.T) {
	log := Nop()
	log.Err(errors.New("exit status 1"), "scoop failed")

	entries := log.Entries()
	require.Len(t, entries, 1)
	assert.Equal(t, "scoop failed: exit status 1", entries[0].Message)
	assert.Equal(t, SeverityError, entries[0].Severity)
}

func TestFileSink(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "unipkg.log")
	log := New(Config{Level: "info", File: path, Console: io.Discard})
	log.Info("to file")

	assert.FileExists(t, path)
}

func TestBufferIsBounded(t *testing.T) {
	b := newBuffer(3)
	for i := 0; i < 5; i++ {
		b.add(Entry{Message: string(rune('a' + i))})
	}

	entries := b.snapshot()
	require.Len(t, entries, 3)
	assert.Equal(t, "c", entries[0].Message)
	assert.Equal(t, "e", entries[2].Message)
}

func TestSnapshotIsACopy(t *testing.T) {
	log := Nop()
	log.Info("one")

	snap := log.Entries()
	snap[0].Message = "changed"
	assert.Equal(t, "one", log.Entries()[0].Message)
}

func TestReadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "unipkg.log")
	log := New(Config{Level: "info", File: path, Console: io.Discard})

	log.Debug("below level")
	log.Info("first")
	log.Success("installed git")
	log.Warn("careful")
	log.Error("broken")

	entries, err := ReadFile(path, 0)
	require.NoError(t, err)
	require.Len(t, entries, 4)
	assert.Equal(t, "first", entries[0].Message)
	assert.Equal(t, SeveritySuccess, entries[1].Severity)
	assert.Equal(t, SeverityWarning, entries[2].Severity)
	assert.False(t, entries[0].Time.IsZero())

	last, err := ReadFile(path, 2)
	require.NoError(t, err)
	require.Len(t, last, 2)
	assert.Equal(t, "careful", last[0].Message)
	assert.Equal(t, "broken", last[1].Message)

	_, err = ReadFile(filepath.Join(t.TempDir(), "missing.log"), 0)
	assert.Error(t, err)
}
