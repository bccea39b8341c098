package cli

import (
	"context"
	"errors"
	"os"
	"time"

	"github.com/spf13/cobra"

	"unipkg/internal/config"
	"unipkg/internal/executor"
	"unipkg/internal/ui"
	"unipkg/pkg/manager"
)

// doctorProbeTimeout bounds the read-only query run against each backend.
const doctorProbeTimeout = 30 * time.Second

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Diagnose system issues",
	Long: `Check the package managers, configuration and data files unipkg
depends on.

Every available manager is asked for its installed packages, which is
read-only and does not need elevation.

Examples:
  unipkg doctor              # Check everything
  unipkg doctor -s winget    # Check only WinGet`,
	RunE: runDoctor,
}

func init() {
	rootCmd.AddCommand(doctorCmd)
}

func runDoctor(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	issues := 0

	ui.HeaderMsg("Package Managers")
	managers := registry.All()
	if source != "" {
		mgr, _, err := registry.ResolveSource(source)
		if err != nil {
			return err
		}
		managers = []manager.Manager{mgr}
	}

	available := 0
	for _, mgr := range managers {
		switch {
		case !cfg.ManagerEnabled(mgr.Name()):
			ui.MutedMsg("%s is disabled in the configuration", mgr.DisplayName())
		case !mgr.IsAvailable():
			ui.MutedMsg("%s is not installed", mgr.DisplayName())
		default:
			available++
			ui.SuccessMsg("%s found at %s", mgr.DisplayName(), mgr.ExecutablePath())
			if err := probe(ctx, mgr); err != nil {
				ui.ErrorMsg("  listing installed packages failed: %v", err)
				issues++
			}
		}
	}
	if available == 0 {
		ui.ErrorMsg("No package manager is available")
		issues++
	}

	ui.HeaderMsg("Elevation")
	elevator := executor.NewElevator(cfg.Elevation.Helper, nil)
	switch {
	case executor.IsRoot():
		ui.SuccessMsg("Running elevated")
	case elevator.Available():
		ui.SuccessMsg("Elevation helper: %s", elevator.Helper())
	default:
		ui.WarningMsg("No elevation helper found; operations needing administrator rights will fail")
		issues++
	}

	ui.HeaderMsg("Configuration")
	path := cfgFile
	if path == "" {
		path = config.DefaultPaths().ConfigFile()
	}
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		ui.MutedMsg("No config file at %s, using defaults", path)
	} else {
		ui.SuccessMsg("Config file: %s", path)
	}

	store, err := openHistory()
	if err != nil {
		ui.ErrorMsg("%v", err)
		issues++
	} else {
		count, _ := store.Count() //nolint:errcheck
		ui.SuccessMsg("History: %s (%d entries)", config.DefaultPaths().HistoryFile(), count)
		store.Close()
	}
	if cfg.Logging.File != "" {
		ui.SuccessMsg("Log file: %s", cfg.Logging.File)
	}
	ui.MutedMsg("Bundles are exported to %s", config.DefaultPaths().Bundles)

	ui.HeaderMsg("Summary")
	if issues == 0 {
		ui.SuccessMsg("No issues found! unipkg is ready to use.")
	} else {
		ui.WarningMsg("Found %d issue(s). Some features may not work correctly.", issues)
	}

	return nil
}

// probe runs a read-only query against mgr.
func probe(ctx context.Context, mgr manager.Manager) error {
	ctx, cancel := context.WithTimeout(ctx, doctorProbeTimeout)
	defer cancel()

	var pkgs []*manager.Package
	err := ui.WithSpinner("Querying "+mgr.DisplayName()+"...", func() error {
		var perr error
		pkgs, perr = mgr.GetInstalledPackages(ctx)
		return perr
	})
	if err != nil {
		return err
	}
	ui.MutedMsg("  %d packages installed", len(pkgs))
	return nil
}
