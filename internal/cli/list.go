package cli

import (
	"os"

	"github.com/spf13/cobra"

	"unipkg/internal/ui"
	"unipkg/pkg/loader"
)

var listFilter string

var listCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List installed packages",
	Long: `List the packages installed through every available manager.

Examples:
  unipkg list              # Everything
  unipkg list -s pacman    # Only pacman packages
  unipkg list -f git       # Fuzzy filter by name or id`,
	RunE: runList,
}

var updatesCmd = &cobra.Command{
	Use:   "updates",
	Short: "List packages with an available update",
	Long: `List installed packages that have a newer version available.
Package indexes are refreshed first where the manager supports it.

Examples:
  unipkg updates
  unipkg updates -s winget`,
	RunE: runUpdates,
}

func init() {
	listCmd.Flags().StringVarP(&listFilter, "filter", "f", "", "fuzzy filter by name or id")
	updatesCmd.Flags().StringVarP(&listFilter, "filter", "f", "", "fuzzy filter by name or id")
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(updatesCmd)
}

func runList(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	managers, err := selectedManagers()
	if err != nil {
		return err
	}

	installed := loader.NewInstalledLoader(managers, log)
	if err := reload(ctx, installed, "Reading installed packages..."); err != nil {
		return err
	}

	packages := filterSource(installed.Filter(listFilter))
	ui.HeaderMsg("%d installed packages", len(packages))
	ui.PrintPackages(os.Stdout, packages)
	return nil
}

func runUpdates(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	managers, err := selectedManagers()
	if err != nil {
		return err
	}

	store, err := openHistory()
	if err != nil {
		return err
	}
	defer store.Close()

	upgradable := loader.NewUpgradableLoader(managers, log, store)
	if err := reload(ctx, upgradable, "Checking for updates..."); err != nil {
		return err
	}

	packages := filterSource(upgradable.Filter(listFilter))
	if len(packages) > 0 {
		ui.HeaderMsg("%d updates available", len(packages))
	}
	ui.PrintUpdates(os.Stdout, packages)
	return nil
}
