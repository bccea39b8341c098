package cli

import (
	"github.com/spf13/cobra"

	"unipkg/pkg/manager"
)

var uninstallFlags optionFlags

var uninstallCmd = &cobra.Command{
	Use:     "uninstall [packages...]",
	Aliases: []string{"remove", "rm"},
	Short:   "Uninstall one or more packages",
	Long: `Uninstall installed packages by id or name.

Examples:
  unipkg uninstall git          # Remove a package
  unipkg uninstall git --purge  # Also remove its user data
  unipkg rm git -s scoop        # Remove the Scoop copy only`,
	Args: cobra.MinimumNArgs(1),
	RunE: runUninstall,
}

func init() {
	uninstallFlags.register(uninstallCmd, manager.OpUninstall)
	rootCmd.AddCommand(uninstallCmd)
}

func runUninstall(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	s, err := newSession(true)
	if err != nil {
		return err
	}
	defer s.Close()

	if err := reload(ctx, s.installed, "Reading installed packages..."); err != nil {
		return err
	}

	packages, err := s.pick(filterSource(s.installed.Packages()), args)
	if err != nil {
		return err
	}

	extra, err := uninstallFlags.options()
	if err != nil {
		return err
	}
	if err := confirmPlan(manager.OpUninstall, packages); err != nil {
		return err
	}
	return s.runOperations(ctx, manager.OpUninstall, packages, extra)
}
