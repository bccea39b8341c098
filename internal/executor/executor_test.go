package executor

import (
	"bytes"
	"context"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func skipOnWindows(t *testing.T) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("uses /bin/sh")
	}
}

func TestRunStreamsLines(t *testing.T) {
	skipOnWindows(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	lines, code, err := Lines(ctx, New(false, false), Command{
		Path: "/bin/sh",
		Args: []string{"-c", "echo one; echo two 1>&2; printf three"},
	})
	require.NoError(t, err)
	assert.Equal(t, 0, code)
	assert.ElementsMatch(t, []string{"one", "two", "three"}, lines)
}

func TestRunReturnsExitCode(t *testing.T) {
	skipOnWindows(t)

	code, err := New(false, false).Run(context.Background(), Command{
		Path: "/bin/sh",
		Args: []string{"-c", "exit 3"},
	}, nil)
	require.NoError(t, err)
	assert.Equal(t, 3, code)
}

func TestRunMissingExecutable(t *testing.T) {
	_, err := New(false, false).Run(context.Background(), Command{Path: "definitely-not-a-real-binary-xyz"}, nil)
	assert.Error(t, err)
}

func TestRunCancelled(t *testing.T) {
	skipOnWindows(t)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()

	start := time.Now()
	_, err := New(false, false).Run(ctx, Command{Path: "/bin/sh", Args: []string{"-c", "sleep 10"}}, nil)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestDryRunDoesNotExecute(t *testing.T) {
	var out bytes.Buffer
	exec := New(true, false)
	exec.SetOutput(&out)

	code, err := exec.Run(context.Background(), Command{Path: "scoop", Args: []string{"install", "git"}}, func(string) {
		t.Fatal("dry run must not produce process output")
	})
	require.NoError(t, err)
	assert.Equal(t, 0, code)
	assert.Contains(t, out.String(), "[dry-run] Would execute: scoop install git")
}

func TestLineWriterSplitsPartialWrites(t *testing.T) {
	var got []string
	w := &lineWriter{emit: func(s string) { got = append(got, s) }}

	_, _ = w.Write([]byte("hel"))
	_, _ = w.Write([]byte("lo\r\nwor"))
	_, _ = w.Write([]byte("ld\n"))
	_, _ = w.Write([]byte("tail"))
	w.flush()

	assert.Equal(t, []string{"hello", "world", "tail"}, got)
}

func TestCommandString(t *testing.T) {
	assert.Equal(t, "scoop", Command{Path: "scoop"}.String())
	assert.Equal(t, "scoop install git", Command{Path: "scoop", Args: []string{"install", "git"}}.String())
}
