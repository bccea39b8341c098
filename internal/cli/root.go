// Package cli implements the command-line interface for unipkg.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"unipkg/internal/config"
	"unipkg/internal/executor"
	"unipkg/internal/history"
	"unipkg/internal/logging"
	"unipkg/internal/ui"
	"unipkg/pkg/loader"
	"unipkg/pkg/manager"
	"unipkg/pkg/manager/native"
	"unipkg/pkg/operation"
)

var (
	// Global flags
	cfgFile string
	source  string
	dryRun  bool
	yes     bool
	verbose bool
	noColor bool
	quiet   bool

	// Global state
	cfg      *config.Config
	log      *logging.Log
	registry *manager.Registry

	// runnerOutput receives dry-run and verbose notices of the engine's
	// runner.
	runnerOutput io.Writer = os.Stderr
)

// Build metadata - set at build time via ldflags
var (
	Version   = "0.1.0-dev"
	Commit    = "unknown"
	BuildTime = "unknown"
)

var rootCmd = &cobra.Command{
	Use:   "unipkg",
	Short: "One front end for Scoop, WinGet, APT and pacman",
	Long: `unipkg discovers, installs, updates and removes packages through
whichever package managers are present on the system, and keeps bundles
of packages that can be exported and installed elsewhere.

Supported package managers:
  Windows:  scoop, winget
  Linux:    apt, pacman

Examples:
  unipkg search git                 # Search every available manager
  unipkg install git -s scoop       # Install from Scoop
  unipkg updates                    # List available updates
  unipkg update --all               # Update everything
  unipkg bundle export dev.json     # Save installed packages to a bundle`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return initializeApp(cmd.Name() == "tui")
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file path")
	rootCmd.PersistentFlags().StringVarP(&source, "source", "s", "", `restrict to a manager, optionally with a source ("scoop" or "scoop: extras")`)
	rootCmd.PersistentFlags().BoolVarP(&dryRun, "dry-run", "n", false, "show what would happen without executing")
	rootCmd.PersistentFlags().BoolVarP(&yes, "yes", "y", false, "assume yes to all prompts")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "no spinners or progress bars")

	rootCmd.AddCommand(versionCmd)
}

// Execute runs the root command.
func Execute() error {
	err := rootCmd.Execute()
	if err != nil {
		ui.ErrorMsg("%v", err)
	}
	return err
}

// initializeApp sets up the application state. fullscreen keeps everything
// off the terminal except the TUI.
func initializeApp(fullscreen bool) error {
	var err error
	if cfgFile != "" {
		cfg, err = config.LoadFrom(cfgFile)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// Apply global flag overrides
	if yes {
		cfg.General.AutoConfirm = true
	}
	if dryRun {
		cfg.General.DryRun = true
	}
	if verbose {
		cfg.Output.Verbose = true
	}
	if noColor {
		cfg.Output.Color = false
	}

	ui.Init(cfg.ShouldUseColor(), cfg.Output.Unicode)
	ui.Quiet = quiet

	// The console only shows log lines in verbose mode; the file always
	// gets them.
	var console io.Writer = io.Discard
	level := cfg.Logging.Level
	if cfg.Output.Verbose {
		level = "debug"
		if !fullscreen {
			console = os.Stderr
		}
	}
	if fullscreen {
		runnerOutput = io.Discard
	}
	log = logging.New(logging.Config{
		Level:   level,
		File:    cfg.Logging.File,
		NoColor: !cfg.ShouldUseColor(),
		Console: console,
	})

	registry = manager.NewRegistry(cfg)
	registerManagers()
	return nil
}

// backend is what every native adapter exposes besides manager.Manager.
type backend interface {
	manager.Manager
	SetRunner(executor.Runner)
	SetLogger(*logging.Log)
	SetExecutablePath(string)
}

// registerManagers registers every supported package manager. Discovery
// always runs for real, even in dry-run mode.
func registerManagers() {
	runner := executor.New(false, false)
	for _, b := range []backend{
		native.NewScoop(),
		native.NewWinget(),
		native.NewAPT(),
		native.NewPacman(),
	} {
		b.SetRunner(runner)
		b.SetLogger(log)
		if path := cfg.GetManagerConfig(b.Name()).ExecutablePath; path != "" {
			b.SetExecutablePath(path)
		}
		registry.Register(b)
	}
}

// selectedManagers returns the available managers, or only the one named
// by --source.
func selectedManagers() ([]manager.Manager, error) {
	if source != "" {
		mgr, _, err := registry.ResolveSource(source)
		if err != nil {
			return nil, err
		}
		if !mgr.IsAvailable() {
			return nil, fmt.Errorf("%w: %s", ErrSourceNotFound, mgr.DisplayName())
		}
		return []manager.Manager{mgr}, nil
	}

	managers := registry.Available()
	if len(managers) == 0 {
		return nil, ErrNoManager
	}
	return managers, nil
}

// signalContext is cancelled on interrupt, which cancels running
// operations.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt)
}

// openHistory opens the persistent store. Callers must close it.
func openHistory() (*history.Store, error) {
	store, err := history.Open(config.DefaultPaths().HistoryFile())
	if err != nil {
		return nil, fmt.Errorf("failed to open history: %w", err)
	}
	return store, nil
}

// session bundles the loaders and the engine used by one command.
type session struct {
	managers   []manager.Manager
	store      *history.Store
	installed  *loader.PackageLoader
	upgradable *loader.PackageLoader
	engine     *operation.Engine
}

// newSession wires loaders, history and the operation engine. interactive
// enables the retry prompt on failures.
func newSession(interactive bool) (*session, error) {
	managers, err := selectedManagers()
	if err != nil {
		return nil, err
	}

	store, err := openHistory()
	if err != nil {
		return nil, err
	}

	s := &session{
		managers:   managers,
		store:      store,
		installed:  loader.NewInstalledLoader(managers, log),
		upgradable: loader.NewUpgradableLoader(managers, log, store),
	}

	runner := executor.New(cfg.General.DryRun, cfg.Output.Verbose)
	runner.SetOutput(runnerOutput)
	elevator := executor.NewElevator(cfg.Elevation.Helper, runner)

	opts := []operation.Option{
		operation.WithListener(history.NewRecorder(store, cfg.General.OperationHistoryLimit, log)),
		operation.WithListener(&operation.LoaderSync{
			Installed:  s.installed,
			Upgradable: s.upgradable,
			Ignored:    store,
			Log:        log,
		}),
	}
	if interactive {
		opts = append(opts, operation.WithFailureHandler(ui.FailureHandler(cfg.General.AutoConfirm)))
	}
	s.engine = operation.NewEngine(cfg, runner, elevator, log, opts...)
	return s, nil
}

// Close releases the history store.
func (s *session) Close() error {
	return s.store.Close()
}

// reload refreshes l behind a spinner.
func reload(ctx context.Context, l *loader.PackageLoader, message string) error {
	return ui.WithSpinner(message, func() error {
		return l.ReloadPackages(ctx)
	})
}

// Version command
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print unipkg version",
	Run: func(cmd *cobra.Command, args []string) {
		ui.InfoMsg("unipkg version %s", Version)
		if Commit != "unknown" {
			ui.MutedMsg("  Commit: %s", Commit)
		}
		if BuildTime != "unknown" {
			ui.MutedMsg("  Built:  %s", BuildTime)
		}
	},
}
