package config

import (
	"os"
	"time"

	"github.com/BurntSushi/toml"
)

// Config represents the complete unipkg configuration.
type Config struct {
	General   GeneralConfig            `toml:"general"`
	Output    OutputConfig             `toml:"output"`
	Logging   LoggingConfig            `toml:"logging"`
	Elevation ElevationConfig          `toml:"elevation"`
	Managers  map[string]ManagerConfig `toml:"managers"`
}

// GeneralConfig contains engine-wide settings.
type GeneralConfig struct {
	// AllowParallelInstalls lets every operation skip the queue.
	AllowParallelInstalls bool `toml:"allow_parallel_installs"`

	// MaxAutoRetries bounds how many times a backend may ask for a rerun
	// before the operation is failed.
	MaxAutoRetries int `toml:"max_auto_retries"`

	// QueuePollInterval is how often a queued operation checks its position.
	QueuePollInterval Duration `toml:"queue_poll_interval"`

	// OperationHistoryLimit caps the finished operations kept in memory and
	// in the history database.
	OperationHistoryLimit int `toml:"operation_history_limit"`

	// DoCacheAdminRights caches elevation before every elevated operation.
	DoCacheAdminRights bool `toml:"do_cache_admin_rights"`

	// DoCacheAdminRightsForBatches caches elevation before batch operations.
	DoCacheAdminRightsForBatches bool `toml:"do_cache_admin_rights_for_batches"`

	// AdminRightsCacheMinutes is how long cached elevation stays valid.
	AdminRightsCacheMinutes int `toml:"admin_rights_cache_minutes"`

	// SourcePriority orders backends in listings and results.
	SourcePriority []string `toml:"source_priority"`

	// AutoConfirm skips confirmation prompts when true (like -y flag).
	AutoConfirm bool `toml:"auto_confirm"`

	// DryRun prints commands instead of running them.
	DryRun bool `toml:"dry_run"`
}

// OutputConfig contains output formatting settings.
type OutputConfig struct {
	// Color enables colored output (respects NO_COLOR env var).
	Color bool `toml:"color"`

	// Unicode enables unicode symbols in output.
	Unicode bool `toml:"unicode"`

	// Verbose enables detailed output.
	Verbose bool `toml:"verbose"`
}

// LoggingConfig controls the console and file log sinks.
type LoggingConfig struct {
	Level string `toml:"level"`
	File  string `toml:"file"`
}

// ElevationConfig selects the elevation helper. An empty helper means the
// platform default (sudo, gsudo).
type ElevationConfig struct {
	Helper string `toml:"helper"`
}

// ManagerConfig contains per-backend settings.
type ManagerConfig struct {
	// Enabled defaults to true when unset.
	Enabled *bool `toml:"enabled"`

	// AllowParallelInstalls lets this backend's operations skip the queue.
	AllowParallelInstalls bool `toml:"allow_parallel_installs"`

	// AlwaysElevate runs every operation of this backend elevated.
	AlwaysElevate bool `toml:"always_elevate"`

	// ExecutablePath overrides the executable lookup.
	ExecutablePath string `toml:"executable_path"`

	// CustomParameters are appended to every operation of this backend.
	CustomParameters []string `toml:"custom_parameters"`
}

// Duration is a time.Duration that reads and writes as "100ms" in TOML.
type Duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Bool returns a pointer to b, for optional boolean settings.
func Bool(b bool) *bool {
	return &b
}

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		General: GeneralConfig{
			MaxAutoRetries:          3,
			QueuePollInterval:       Duration{100 * time.Millisecond},
			OperationHistoryLimit:   50,
			AdminRightsCacheMinutes: 1,
			SourcePriority:          []string{"winget", "scoop", "apt", "pacman"},
		},
		Output: OutputConfig{
			Color:   true,
			Unicode: true,
		},
		Logging: LoggingConfig{
			Level: "info",
			File:  DefaultPaths().LogFile(),
		},
		Managers: map[string]ManagerConfig{
			"apt": {
				AlwaysElevate: true,
			},
			"pacman": {
				AlwaysElevate: true,
			},
		},
	}
}

// Load loads the configuration from the default path.
// If the config file doesn't exist, it returns the default configuration.
func Load() (*Config, error) {
	return LoadFrom(DefaultPaths().ConfigFile())
}

// LoadFrom loads the configuration from a specific path.
// If the config file doesn't exist, it returns the default configuration.
func LoadFrom(path string) (*Config, error) {
	cfg := Default()

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil
	}

	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, err
	}

	cfg.normalize()
	return cfg, nil
}

// Save writes the configuration to the default path.
func (c *Config) Save() error {
	p := DefaultPaths()
	if err := os.MkdirAll(p.Config, 0755); err != nil {
		return err
	}
	return c.SaveTo(p.ConfigFile())
}

// SaveTo writes the configuration to a specific path.
func (c *Config) SaveTo(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	encoder := toml.NewEncoder(f)
	return encoder.Encode(c)
}

// normalize replaces out-of-range values with their defaults.
func (c *Config) normalize() {
	def := Default()
	if c.General.MaxAutoRetries < 0 {
		c.General.MaxAutoRetries = def.General.MaxAutoRetries
	}
	if c.General.QueuePollInterval.Duration <= 0 {
		c.General.QueuePollInterval = def.General.QueuePollInterval
	}
	if c.General.OperationHistoryLimit <= 0 {
		c.General.OperationHistoryLimit = def.General.OperationHistoryLimit
	}
	if c.General.AdminRightsCacheMinutes <= 0 {
		c.General.AdminRightsCacheMinutes = def.General.AdminRightsCacheMinutes
	}
	if c.Managers == nil {
		c.Managers = map[string]ManagerConfig{}
	}
}

// GetManagerConfig returns the configuration for a specific manager.
// Returns an empty config if no configuration exists for the manager.
func (c *Config) GetManagerConfig(name string) ManagerConfig {
	if cfg, ok := c.Managers[name]; ok {
		return cfg
	}
	return ManagerConfig{}
}

// ManagerEnabled reports whether the named backend may be used.
func (c *Config) ManagerEnabled(name string) bool {
	enabled := c.GetManagerConfig(name).Enabled
	return enabled == nil || *enabled
}

// ParallelAllowed reports whether operations of the named backend bypass
// the queue.
func (c *Config) ParallelAllowed(name string) bool {
	return c.General.AllowParallelInstalls || c.GetManagerConfig(name).AllowParallelInstalls
}

// AlwaysElevate reports whether the named backend always runs elevated.
func (c *Config) AlwaysElevate(name string) bool {
	return c.GetManagerConfig(name).AlwaysElevate
}

// CacheAdminRights reports whether elevation should be cached before an
// elevated run.
func (c *Config) CacheAdminRights() bool {
	return c.General.DoCacheAdminRights || c.General.DoCacheAdminRightsForBatches
}

// ShouldUseColor returns true if colored output should be used.
// Respects the NO_COLOR environment variable.
func (c *Config) ShouldUseColor() bool {
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	return c.Output.Color
}
