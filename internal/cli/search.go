package cli

import (
	"os"

	"github.com/spf13/cobra"

	"unipkg/internal/ui"
	"unipkg/pkg/loader"
)

var searchMarkInstalled bool

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search packages in every available manager",
	Long: `Search for packages across every available package manager, or the
one named by --source. Results are deduplicated per manager and source.

Examples:
  unipkg search git              # Search everywhere
  unipkg search git -s winget    # Search WinGet only
  unipkg search git --installed  # Mark packages that are already installed`,
	Args: cobra.ExactArgs(1),
	RunE: runSearch,
}

func init() {
	searchCmd.Flags().BoolVarP(&searchMarkInstalled, "installed", "i", false, "mark installed packages (slower)")
	rootCmd.AddCommand(searchCmd)
}

func runSearch(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	managers, err := selectedManagers()
	if err != nil {
		return err
	}

	var installed *loader.PackageLoader
	if searchMarkInstalled {
		installed = loader.NewInstalledLoader(managers, log)
		if err := reload(ctx, installed, "Reading installed packages..."); err != nil {
			return err
		}
	}

	search := loader.NewSearchLoader(managers, log, installed)
	err = ui.WithSpinner("Searching...", func() error {
		_, err := search.Search(ctx, args[0])
		return err
	})
	if err != nil {
		return err
	}

	results := filterSource(search.Packages())
	ui.HeaderMsg("Found %d packages", len(results))
	ui.PrintPackages(os.Stdout, results)
	return nil
}
