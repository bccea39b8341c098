package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"
)

// HomeEnv, when set, puts every unipkg file under one directory. Portable
// installs and tests use it.
const HomeEnv = "UNIPKG_HOME"

const (
	appName      = "unipkg"
	configFile   = "config.toml"
	historyFile  = "history.db"
	logFile      = "unipkg.log"
	bundleSubdir = "bundles"
)

// Paths are the directories unipkg reads and writes.
type Paths struct {
	// Config holds config.toml.
	Config string
	// Data holds the history database and the rotating log.
	Data string
	// Bundles is where exported bundles go when no file is named.
	Bundles string
}

// DefaultPaths resolves the directories for the current user.
func DefaultPaths() Paths {
	if home := os.Getenv(HomeEnv); home != "" {
		return Paths{Config: home, Data: home, Bundles: filepath.Join(home, bundleSubdir)}
	}

	base, err := os.UserConfigDir()
	if err != nil {
		base = os.TempDir()
	}
	data := userDataDir(base)
	return Paths{
		Config:  filepath.Join(base, appName),
		Data:    data,
		Bundles: filepath.Join(data, bundleSubdir),
	}
}

// userDataDir picks the per-user data directory. macOS keeps data next to
// the configuration.
func userDataDir(configBase string) string {
	if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
		return filepath.Join(xdg, appName)
	}
	switch runtime.GOOS {
	case "windows":
		if local := os.Getenv("LOCALAPPDATA"); local != "" {
			return filepath.Join(local, appName)
		}
	case "darwin", "ios", "plan9":
		return filepath.Join(configBase, appName)
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, ".local", "share", appName)
	}
	return filepath.Join(configBase, appName)
}

// ConfigFile is the default config file.
func (p Paths) ConfigFile() string {
	return filepath.Join(p.Config, configFile)
}

// HistoryFile is the bbolt history database.
func (p Paths) HistoryFile() string {
	return filepath.Join(p.Data, historyFile)
}

// LogFile is the rotating log that "unipkg log" reads.
func (p Paths) LogFile() string {
	return filepath.Join(p.Data, logFile)
}

// BundleFile names a fresh bundle in the bundle directory.
func (p Paths) BundleFile(now time.Time) string {
	return filepath.Join(p.Bundles, fmt.Sprintf("packages-%s.ubundle", now.Format("20060102-150405")))
}

// Ensure creates every directory.
func (p Paths) Ensure() error {
	for _, dir := range []string{p.Config, p.Data, p.Bundles} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create %s: %w", dir, err)
		}
	}
	return nil
}
