// Package executor runs package manager processes, streaming their output
// line by line, with optional privilege elevation.
package executor

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"sync"
	"time"
)

// Command describes a process to start.
type Command struct {
	Path string
	Args []string
	Dir  string
	Env  []string
}

// String renders the command line for logs.
func (c Command) String() string {
	if len(c.Args) == 0 {
		return c.Path
	}
	return c.Path + " " + strings.Join(c.Args, " ")
}

// Runner starts a process and reports every stdout and stderr line to
// onLine as it arrives. A non-zero exit is not an error: the exit code is
// returned for the caller to classify. Cancelling ctx kills the process and
// returns ctx.Err().
type Runner interface {
	Run(ctx context.Context, cmd Command, onLine func(line string)) (int, error)
}

// RunnerFunc adapts a function to the Runner interface.
type RunnerFunc func(ctx context.Context, cmd Command, onLine func(line string)) (int, error)

// Run calls f.
func (f RunnerFunc) Run(ctx context.Context, cmd Command, onLine func(line string)) (int, error) {
	return f(ctx, cmd, onLine)
}

// Executor is the Runner backed by os/exec.
type Executor struct {
	dryRun  bool
	verbose bool
	out     io.Writer
}

// New creates a new Executor with the given options.
func New(dryRun, verbose bool) *Executor {
	return &Executor{
		dryRun:  dryRun,
		verbose: verbose,
		out:     os.Stdout,
	}
}

// SetDryRun enables or disables dry-run mode.
func (e *Executor) SetDryRun(dryRun bool) {
	e.dryRun = dryRun
}

// DryRun reports whether commands are printed instead of started.
func (e *Executor) DryRun() bool {
	return e.dryRun
}

// SetVerbose enables or disables verbose mode.
func (e *Executor) SetVerbose(verbose bool) {
	e.verbose = verbose
}

// SetOutput changes where dry-run and verbose notices are printed.
func (e *Executor) SetOutput(w io.Writer) {
	e.out = w
}

// Run implements Runner.
func (e *Executor) Run(ctx context.Context, c Command, onLine func(line string)) (int, error) {
	if e.dryRun {
		fmt.Fprintf(e.out, "[dry-run] Would execute: %s\n", c)
		return 0, nil
	}

	if e.verbose {
		fmt.Fprintf(e.out, "Executing: %s\n", c)
	}

	cmd := exec.CommandContext(ctx, c.Path, c.Args...)
	cmd.Dir = c.Dir
	if len(c.Env) > 0 {
		cmd.Env = append(os.Environ(), c.Env...)
	}
	// Children that inherit the pipes must not keep Wait blocked after a kill.
	cmd.WaitDelay = 2 * time.Second

	var mu sync.Mutex
	emit := func(line string) {
		if onLine == nil {
			return
		}
		mu.Lock()
		defer mu.Unlock()
		onLine(line)
	}
	stdout := &lineWriter{emit: emit}
	stderr := &lineWriter{emit: emit}
	cmd.Stdout = stdout
	cmd.Stderr = stderr

	err := cmd.Run()
	stdout.flush()
	stderr.flush()

	if ctxErr := ctx.Err(); ctxErr != nil {
		return -1, ctxErr
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode(), nil
	}
	if err != nil {
		return -1, fmt.Errorf("failed to run %s: %w", c.Path, err)
	}
	return 0, nil
}

// Lines runs cmd and collects its output.
func Lines(ctx context.Context, r Runner, cmd Command) ([]string, int, error) {
	var lines []string
	code, err := r.Run(ctx, cmd, func(line string) {
		lines = append(lines, line)
	})
	return lines, code, err
}

// lineWriter splits a byte stream into lines. Each instance is written by
// a single goroutine.
type lineWriter struct {
	emit func(string)
	buf  []byte
}

func (w *lineWriter) Write(p []byte) (int, error) {
	w.buf = append(w.buf, p...)
	for {
		i := bytes.IndexByte(w.buf, '\n')
		if i < 0 {
			break
		}
		w.emit(strings.TrimRight(string(w.buf[:i]), "\r"))
		w.buf = w.buf[i+1:]
	}
	return len(p), nil
}

func (w *lineWriter) flush() {
	if len(w.buf) > 0 {
		w.emit(strings.TrimRight(string(w.buf), "\r"))
		w.buf = nil
	}
}
