package cli

import (
	"github.com/spf13/cobra"

	"unipkg/internal/ui"
	"unipkg/pkg/manager"
)

var (
	updateFlags optionFlags
	updateAll   bool
)

var updateCmd = &cobra.Command{
	Use:   "update [packages...]",
	Short: "Update packages",
	Long: `Update the given packages, or every package with an available update.
Updates that were ignored with "unipkg ignore" are skipped.

Examples:
  unipkg update git             # Update one package
  unipkg update --all           # Update everything
  unipkg update --all -s scoop  # Update everything installed with Scoop`,
	RunE: runUpdate,
}

func init() {
	updateFlags.register(updateCmd, manager.OpUpdate)
	updateCmd.Flags().BoolVarP(&updateAll, "all", "a", false, "update every package")
	rootCmd.AddCommand(updateCmd)
}

func runUpdate(cmd *cobra.Command, args []string) error {
	if len(args) == 0 && !updateAll {
		return ErrNoPackages
	}

	ctx, cancel := signalContext()
	defer cancel()

	s, err := newSession(true)
	if err != nil {
		return err
	}
	defer s.Close()

	if err := reload(ctx, s.upgradable, "Checking for updates..."); err != nil {
		return err
	}

	packages := s.upgradable.Packages()
	if !updateAll {
		packages, err = s.pick(packages, args)
		if err != nil {
			return err
		}
	}
	if len(packages) == 0 {
		ui.SuccessMsg("Everything is up to date")
		return nil
	}

	extra, err := updateFlags.options()
	if err != nil {
		return err
	}
	if err := confirmPlan(manager.OpUpdate, packages); err != nil {
		return err
	}
	return s.runOperations(ctx, manager.OpUpdate, packages, extra)
}
