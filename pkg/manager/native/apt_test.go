package native

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"unipkg/pkg/manager"
)

func TestAPTDiscovery(t *testing.T) {
	a := NewAPT()
	a.SetRunner(&scriptedRunner{outputs: map[string]string{
		"list *git*": "Listing... Done\ngit/jammy-updates,jammy-security 1:2.34.1-1ubuntu1.10 amd64 [installed]\ngit-lfs/jammy 3.0.2-1 amd64",
		"list --upgradable": "Listing... Done\ngit/jammy-updates 1:2.34.1-1ubuntu1.11 amd64 [upgradable from: 1:2.34.1-1ubuntu1.10]",
		"-W -f=${db:Status-Abbrev}\t${Package}\t${Version}\n": "ii \tgit\t1:2.34.1-1ubuntu1.10\nrc \told\t1.0\nii \tvim\t2:8.2",
	}})
	ctx := context.Background()

	found, err := a.FindPackages(ctx, "git")
	require.NoError(t, err)
	require.Len(t, found, 2)
	assert.Equal(t, "git-lfs", found[1].ID)
	assert.Equal(t, "3.0.2-1", found[1].Version)

	installed, err := a.GetInstalledPackages(ctx)
	require.NoError(t, err)
	require.Len(t, installed, 2, "removed packages with leftover config are skipped")
	assert.Equal(t, "vim", installed[1].ID)

	updates, err := a.GetAvailableUpdates(ctx)
	require.NoError(t, err)
	require.Len(t, updates, 1)
	assert.Equal(t, "1:2.34.1-1ubuntu1.10", updates[0].Version)
	assert.Equal(t, "1:2.34.1-1ubuntu1.11", updates[0].NewVersion)
}

func TestAPTParametersAndVerdicts(t *testing.T) {
	a := NewAPT()
	p := manager.NewPackage("vim", "vim", "2:8.2", a.SourceOrDefault(""), a, manager.ScopeGlobal)

	assert.Equal(t, []string{"install", "-y", "vim=2:9.0"}, a.InstallParameters(p, manager.InstallationOptions{Version: "2:9.0"}))
	assert.Equal(t, []string{"install", "--only-upgrade", "-y", "vim"}, a.UpdateParameters(p, manager.InstallationOptions{}))
	assert.Equal(t, []string{"purge", "-y", "vim"}, a.UninstallParameters(p, manager.InstallationOptions{RemoveDataOnUninstall: true}))

	r := a.InstallVerdict(p, manager.InstallationOptions{}, 100, []string{"E: Could not open lock file /var/lib/dpkg/lock-frontend - open (13: Permission denied)", "E: Unable to acquire the dpkg frontend lock (/var/lib/dpkg/lock-frontend), are you root?"})
	assert.Equal(t, manager.VerdictAutoRetry, r.Verdict)
	assert.True(t, r.Options.RunAsAdministrator)

	locked := []string{
		"E: Could not get lock /var/lib/dpkg/lock-frontend. It is held by process 1234 (apt)",
		"E: Unable to acquire the dpkg frontend lock (/var/lib/dpkg/lock-frontend), is another process using it?",
	}
	r = a.InstallVerdict(p, manager.InstallationOptions{RunAsAdministrator: true}, 100, locked)
	assert.Equal(t, manager.VerdictFailed, r.Verdict)
	assert.Contains(t, a.Diagnose(locked), "Another package manager may be running")

	r = a.InstallVerdict(p, manager.InstallationOptions{}, 100, []string{"E: Unable to locate package vim"})
	assert.Equal(t, manager.VerdictFailed, r.Verdict)
	assert.Contains(t, a.Diagnose([]string{"E: Unable to locate package vim"}), "Package not found")
}

func TestPacmanDiscovery(t *testing.T) {
	p := NewPacman()
	p.SetRunner(&scriptedRunner{outputs: map[string]string{
		"-Ss git": "extra/git 2.41.0-1 [installed]\n    the fast distributed version control system\nextra/git-lfs 3.4.0-1\n    Git extension for versioning large files",
		"-Q":      "git 2.41.0-1\nvim 9.0.1-1",
		"-Qu":     "git 2.41.0-1 -> 2.42.0-1",
	}})
	ctx := context.Background()

	found, err := p.FindPackages(ctx, "git")
	require.NoError(t, err)
	require.Len(t, found, 2)
	assert.Equal(t, "extra", found[0].SourceName())

	installed, err := p.GetInstalledPackages(ctx)
	require.NoError(t, err)
	assert.Len(t, installed, 2)
	assert.Equal(t, "local", installed[0].SourceName())

	updates, err := p.GetAvailableUpdates(ctx)
	require.NoError(t, err)
	require.Len(t, updates, 1)
	assert.Equal(t, "2.42.0-1", updates[0].NewVersion)
}

func TestPacmanParametersAndVerdicts(t *testing.T) {
	pm := NewPacman()
	fromRepo := manager.NewPackage("git", "git", "2.41.0-1", pm.SourceOrDefault("extra"), pm, manager.ScopeGlobal)
	local := manager.NewPackage("git", "git", "2.41.0-1", pm.SourceOrDefault(""), pm, manager.ScopeGlobal)

	assert.Equal(t, []string{"-S", "--noconfirm", "extra/git"}, pm.InstallParameters(fromRepo, manager.InstallationOptions{}))
	assert.Equal(t, []string{"-S", "--noconfirm", "git"}, pm.InstallParameters(local, manager.InstallationOptions{}))
	assert.Equal(t, []string{"-Rns", "--noconfirm", "git"}, pm.UninstallParameters(local, manager.InstallationOptions{RemoveDataOnUninstall: true}))

	r := pm.InstallVerdict(local, manager.InstallationOptions{}, 1, []string{"error: you cannot perform this operation unless you are root."})
	assert.Equal(t, manager.VerdictAutoRetry, r.Verdict)
	assert.True(t, r.Options.RunAsAdministrator)

	r = pm.InstallVerdict(local, manager.InstallationOptions{}, 1, []string{"error: failed to init transaction (unable to lock database)"})
	assert.Equal(t, manager.VerdictFailed, r.Verdict)

	r = pm.UninstallVerdict(local, manager.InstallationOptions{}, 1, []string{"error: target not found: git"})
	assert.Equal(t, manager.VerdictFailed, r.Verdict)
	assert.Equal(t, manager.VerdictSucceeded, pm.UpdateVerdict(local, manager.InstallationOptions{}, 0, nil).Verdict)
}
