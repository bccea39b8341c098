package cli

import (
	"context"
	"os"
	"time"

	"github.com/spf13/cobra"

	"unipkg/internal/ui"
	"unipkg/pkg/manager"
)

var managersCmd = &cobra.Command{
	Use:   "managers",
	Short: "Show the supported package managers and their status",
	RunE: func(cmd *cobra.Command, args []string) error {
		ui.HeaderMsg("Package managers")
		ui.PrintManagers(os.Stdout, registry.All(), cfg.ManagerEnabled)
		return nil
	},
}

var managersSourcesCmd = &cobra.Command{
	Use:   "sources <manager>",
	Short: "List the sources (buckets, repositories) of a manager",
	Args:  cobra.ExactArgs(1),
	RunE:  runManagerSources,
}

func init() {
	managersCmd.AddCommand(managersSourcesCmd)
	rootCmd.AddCommand(managersCmd)
}

func runManagerSources(cmd *cobra.Command, args []string) error {
	mgr, err := registry.Lookup(args[0])
	if err != nil {
		return err
	}

	sources := mgr.Properties().KnownSources
	if lister, ok := mgr.(manager.SourceLister); ok && mgr.IsAvailable() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		err := ui.WithSpinner("Reading sources...", func() error {
			found, err := lister.Sources(ctx)
			if err == nil {
				sources = found
			}
			return err
		})
		if err != nil {
			ui.WarningMsg("Could not list sources, showing the known ones: %v", err)
		}
	}

	ui.HeaderMsg("%s sources", mgr.DisplayName())
	t := ui.NewTableWriter(os.Stdout, []string{"name", "url"})
	for _, src := range sources {
		t.AddRow(src.Name, src.URL)
	}
	t.Render()
	return nil
}
