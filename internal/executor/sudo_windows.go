//go:build windows

package executor

import (
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/sys/windows"
)

// isRoot returns true if the current process is running with administrator privileges on Windows.
func isRoot() bool {
	var sid *windows.SID

	// Get the SID for the Administrators group
	err := windows.AllocateAndInitializeSid(
		&windows.SECURITY_NT_AUTHORITY,
		2,
		windows.SECURITY_BUILTIN_DOMAIN_RID,
		windows.DOMAIN_ALIAS_RID_ADMINS,
		0, 0, 0, 0, 0, 0,
		&sid)
	if err != nil {
		return false
	}
	defer windows.FreeSid(sid)

	// Check if the current process token is a member of the Administrators group
	token := windows.Token(0)
	member, err := token.IsMember(sid)
	if err != nil {
		return false
	}
	return member
}

// findHelper returns the path of gsudo or the built-in sudo.exe
// (Windows 11+). gsudo wins when both are installed.
func findHelper() string {
	for _, name := range []string{"gsudo.exe", "sudo.exe"} {
		for _, dir := range strings.Split(os.Getenv("PATH"), string(os.PathListSeparator)) {
			if dir == "" {
				continue
			}
			candidate := filepath.Join(dir, name)
			if _, err := os.Stat(candidate); err == nil {
				return candidate
			}
		}
	}
	return ""
}
