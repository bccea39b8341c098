package config

import (
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultPaths(t *testing.T) {
	t.Setenv(HomeEnv, "")
	p := DefaultPaths()

	assert.True(t, strings.HasSuffix(p.Config, "unipkg"))
	assert.True(t, strings.HasSuffix(p.Data, "unipkg"))
	assert.Equal(t, filepath.Join(p.Data, "bundles"), p.Bundles)

	assert.Equal(t, "config.toml", filepath.Base(p.ConfigFile()))
	assert.Equal(t, "history.db", filepath.Base(p.HistoryFile()))
	assert.Equal(t, "unipkg.log", filepath.Base(p.LogFile()))
}

func TestXDGDataHome(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("XDG not used on this platform")
	}
	dir := t.TempDir()
	t.Setenv(HomeEnv, "")
	t.Setenv("XDG_DATA_HOME", dir)

	assert.Equal(t, filepath.Join(dir, "unipkg"), DefaultPaths().Data)
}

func TestHomeOverride(t *testing.T) {
	home := t.TempDir()
	t.Setenv(HomeEnv, home)

	p := DefaultPaths()
	assert.Equal(t, home, p.Config)
	assert.Equal(t, home, p.Data)
	assert.Equal(t, filepath.Join(home, "unipkg.log"), p.LogFile())
	assert.Equal(t, p.LogFile(), Default().Logging.File, "the log command reads the file the logger writes")

	require.NoError(t, p.Ensure())
	assert.DirExists(t, p.Bundles)
}

func TestBundleFile(t *testing.T) {
	p := Paths{Bundles: filepath.Join("x", "bundles")}
	at := time.Date(2024, 3, 9, 14, 5, 7, 0, time.UTC)

	assert.Equal(t, filepath.Join("x", "bundles", "packages-20240309-140507.ubundle"), p.BundleFile(at))
}
