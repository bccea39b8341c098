package cli

import (
	"github.com/spf13/cobra"

	"unipkg/internal/ui"
	"unipkg/pkg/loader"
	"unipkg/pkg/manager"
)

var installFlags optionFlags

var installCmd = &cobra.Command{
	Use:   "install [packages...]",
	Short: "Install one or more packages",
	Long: `Install packages by id or name. Every available package manager is
searched unless --source restricts it; when several managers offer the
package you are asked which one to use.

Examples:
  unipkg install git curl              # Search and install
  unipkg install git -s scoop          # Install from Scoop
  unipkg install 7zip -s "scoop: main" # Install from a specific bucket
  unipkg install node --version 20.0.0 # Install a specific version
  unipkg install vscode --scope global # Install machine-wide`,
	Args: cobra.MinimumNArgs(1),
	RunE: runInstall,
}

func init() {
	installFlags.register(installCmd, manager.OpInstall)
	rootCmd.AddCommand(installCmd)
}

func runInstall(cmd *cobra.Command, args []string) error {
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

	search := loader.NewSearchLoader(s.managers, log, s.installed)
	var candidates []*manager.Package
	for _, id := range args {
		var found []*manager.Package
		err := ui.WithSpinner("Searching for "+id+"...", func() error {
			var serr error
			found, serr = search.Search(ctx, id)
			return serr
		})
		if err != nil {
			return err
		}
		candidates = append(candidates, found...)
	}
	candidates = filterSource(candidates)

	packages, err := s.pick(candidates, args)
	if err != nil {
		return err
	}

	for _, p := range packages {
		if p.Tag() == manager.TagAlreadyInstalled {
			ui.WarningMsg("%s is already installed", p)
		}
	}

	extra, err := installFlags.options()
	if err != nil {
		return err
	}
	if err := confirmPlan(manager.OpInstall, packages); err != nil {
		return err
	}
	return s.runOperations(ctx, manager.OpInstall, packages, extra)
}

// filterSource keeps the packages from the source named by --source, if it
// names one.
func filterSource(packages []*manager.Package) []*manager.Package {
	if source == "" {
		return packages
	}
	mgr, src, err := registry.ResolveSource(source)
	if err != nil {
		return packages
	}
	var out []*manager.Package
	for _, p := range packages {
		if p.ManagerName() != mgr.Name() {
			continue
		}
		if src != nil && src != mgr.Properties().DefaultSource && p.SourceName() != src.Name {
			continue
		}
		out = append(out, p)
	}
	return out
}
