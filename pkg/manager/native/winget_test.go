package native

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"unipkg/pkg/manager"
)

var wingetUpgrade = []string{
	"\r   - \r   \\ \rName                 Id                   Version   Available  Source",
	"-------------------------------------------------------------------------------",
	"Git                  Git.Git              2.40.0    2.41.0     winget",
	"Microsoft Teams      Microsoft.Teams      1.6.00    1.6.01     winget",
	"2 upgrades available.",
}

func TestParseFixedWidthTable(t *testing.T) {
	rows := parseFixedWidthTable(wingetUpgrade)
	require.Len(t, rows, 3)

	assert.Equal(t, "Git", rows[0]["Name"])
	assert.Equal(t, "Git.Git", rows[0]["Id"])
	assert.Equal(t, "2.41.0", rows[0]["Available"])
	assert.Equal(t, "Microsoft Teams", rows[1]["Name"])
	assert.Equal(t, "winget", rows[1]["Source"])
	assert.Empty(t, rows[2]["Version"], "footer lines have no version")
}

func TestWingetPackagesFromTable(t *testing.T) {
	w := NewWinget()

	pkgs := w.packagesFromTable(wingetUpgrade, true)
	require.Len(t, pkgs, 2)
	assert.Equal(t, "Git.Git", pkgs[0].ID)
	assert.Equal(t, "2.40.0", pkgs[0].Version)
	assert.Equal(t, "2.41.0", pkgs[0].NewVersion)
	assert.Equal(t, "winget", pkgs[0].SourceName())

	list := []string{
		"Name          Id                        Version   Source",
		"---------------------------------------------------------",
		"Git           Git.Git                   2.41.0    winget",
		"Some Driver   ARP\\Machine\\X64\\Driver    1.0",
	}
	installed := w.packagesFromTable(list, false)
	require.Len(t, installed, 2)
	assert.False(t, installed[0].Source.IsVirtualManager)
	assert.True(t, installed[1].Source.IsVirtualManager)
	assert.Equal(t, "Local PC", installed[1].SourceName())
}

func TestWingetParameters(t *testing.T) {
	w := NewWinget()
	p := manager.NewPackage("Git", "Git.Git", "2.40.0", w.SourceOrDefault("winget"), w, manager.ScopeDefault)

	opts := manager.InstallationOptions{
		Version:           "2.39.0",
		InstallationScope: manager.ScopeGlobal,
		Architecture:      manager.ArchX64,
	}
	assert.Equal(t, []string{
		"install", "--id", "Git.Git", "--exact", "--source", "winget",
		"--accept-source-agreements", "--disable-interactivity",
		"--scope", "machine", "--silent",
		"--accept-package-agreements", "--version", "2.39.0", "--architecture", "x64",
	}, w.InstallParameters(p, opts))

	uninstall := w.UninstallParameters(p, manager.InstallationOptions{InteractiveInstallation: true, RemoveDataOnUninstall: true})
	assert.Contains(t, uninstall, "--interactive")
	assert.Contains(t, uninstall, "--purge")
	assert.Equal(t, "uninstall", uninstall[0])

	local := manager.NewPackage("Driver", "ARP\\Driver", "1.0", manager.NewVirtualSource("Local PC"), w, manager.ScopeDefault)
	assert.NotContains(t, w.UpdateParameters(local, manager.InstallationOptions{}), "--source")
}

func TestWingetVerdicts(t *testing.T) {
	w := NewWinget()
	p := manager.NewPackage("Git", "Git.Git", "2.40.0", w.SourceOrDefault(""), w, manager.ScopeDefault)

	assert.Equal(t, manager.VerdictSucceeded, w.InstallVerdict(p, manager.InstallationOptions{}, 0, nil).Verdict)
	assert.Equal(t, manager.VerdictSucceeded, w.UpdateVerdict(p, manager.InstallationOptions{}, wingetUpdateNotApplicable, nil).Verdict)
	assert.Equal(t, manager.VerdictFailed, w.UninstallVerdict(p, manager.InstallationOptions{}, 1, []string{"boom"}).Verdict)

	r := w.InstallVerdict(p, manager.InstallationOptions{}, 1, []string{"This package requires administrator privileges"})
	assert.Equal(t, manager.VerdictAutoRetry, r.Verdict)
	assert.True(t, r.Options.RunAsAdministrator)

	r = w.InstallVerdict(p, manager.InstallationOptions{InstallationScope: manager.ScopeUser}, 1, []string{"No applicable installer found; see logs for more details."})
	assert.Equal(t, manager.VerdictAutoRetry, r.Verdict)
	assert.Equal(t, manager.ScopeDefault, r.Options.InstallationScope)
}
