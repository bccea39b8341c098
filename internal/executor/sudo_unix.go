//go:build !windows

package executor

import (
	"os"
	"os/exec"
)

// isRoot returns true if the current process is running as root.
func isRoot() bool {
	return os.Geteuid() == 0
}

// findHelper returns the path of sudo, or "" if it is not installed.
func findHelper() string {
	path, err := exec.LookPath("sudo")
	if err != nil {
		return ""
	}
	return path
}
