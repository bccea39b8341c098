package cli

import (
	"github.com/spf13/cobra"

	"unipkg/internal/tui"
	"unipkg/pkg/loader"
)

var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Launch interactive terminal user interface",
	Long: `Launch the interactive terminal user interface (TUI) for unipkg.

The TUI provides a visual way to:
  - Browse installed packages and available updates
  - Search every manager for new packages
  - Install, update and remove packages
  - Follow running operations and cancel them
  - Browse the operation history
  - Read the application log

Navigation:
  - Use arrow keys or j/k to navigate
  - Press 1-6 to switch tabs
  - Press / to search, f to filter
  - Press i to install, u to update, x to uninstall
  - Press ? for help
  - Press q to quit`,
	RunE: runTUI,
}

func init() {
	rootCmd.AddCommand(tuiCmd)
}

func runTUI(cmd *cobra.Command, args []string) error {
	// Failures close by default; prompts cannot run inside the TUI.
	s, err := newSession(false)
	if err != nil {
		return err
	}
	defer s.Close()

	return tui.Run(tui.Deps{
		Config:     cfg,
		Engine:     s.engine,
		Installed:  s.installed,
		Upgradable: s.upgradable,
		Search:     loader.NewSearchLoader(s.managers, log, s.installed),
		History:    s.store,
		Log:        log,
	})
}
