package executor

import (
	"context"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
)

// IsRoot returns true if the current process is running as root/administrator (exported version).
func IsRoot() bool {
	return isRoot()
}

// HasSudo returns true if an elevation helper is available on the system (exported version).
func HasSudo() bool {
	return findHelper() != ""
}

// CanElevate returns true if the process can elevate privileges.
func CanElevate() bool {
	return isRoot() || HasSudo()
}

// ErrNoPrivileges is returned when an operation requires root but cannot elevate.
type errNoPrivileges struct{}

func (e errNoPrivileges) Error() string {
	return "this operation requires root privileges, but neither running as root nor an elevation helper is available"
}

// ErrNoPrivileges is the error returned when privileges cannot be elevated.
var ErrNoPrivileges = errNoPrivileges{}

// Elevator rewrites commands to run through an elevation helper such as
// sudo or gsudo.
type Elevator struct {
	helper string
	runner Runner
	root   bool
}

// NewElevator creates an Elevator. An empty helper selects the platform
// default.
func NewElevator(helper string, runner Runner) *Elevator {
	if helper == "" {
		helper = findHelper()
	}
	return &Elevator{
		helper: helper,
		runner: runner,
		root:   isRoot(),
	}
}

// Helper returns the elevation helper in use, or "" if none was found.
func (e *Elevator) Helper() string {
	return e.helper
}

// Available reports whether commands can be elevated.
func (e *Elevator) Available() bool {
	return e.root || e.helper != ""
}

// Wrap returns cmd prefixed by the elevation helper. When the process is
// already elevated cmd is returned unchanged.
func (e *Elevator) Wrap(cmd Command) (Command, error) {
	if e.root {
		return cmd, nil
	}
	if e.helper == "" {
		return cmd, ErrNoPrivileges
	}
	return Command{
		Path: e.helper,
		Args: append([]string{cmd.Path}, cmd.Args...),
		Dir:  cmd.Dir,
		Env:  cmd.Env,
	}, nil
}

// CacheRights asks the helper to remember the granted elevation for the
// given process for a few minutes, so that later elevated commands do not
// prompt again.
func (e *Elevator) CacheRights(ctx context.Context, pid, minutes int) error {
	if e.root || e.helper == "" {
		return nil
	}

	cmd := Command{Path: e.helper, Args: cacheArgs(e.helper, pid, minutes)}
	code, err := e.runner.Run(ctx, cmd, nil)
	if err != nil {
		return fmt.Errorf("failed to cache admin rights: %w", err)
	}
	if code != 0 {
		return fmt.Errorf("failed to cache admin rights: %s exited with code %d", cmd, code)
	}
	return nil
}

func cacheArgs(helper string, pid, minutes int) []string {
	base := strings.TrimSuffix(strings.ToLower(filepath.Base(helper)), ".exe")
	if base == "gsudo" {
		return []string{"cache", "on", "--pid", strconv.Itoa(pid), "-d", strconv.Itoa(minutes)}
	}
	// sudo keeps a per-terminal timestamp; validating refreshes it.
	return []string{"-v"}
}
