package cli

import (
	"os"
	"time"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"unipkg/internal/config"
	"unipkg/internal/ui"
	"unipkg/pkg/bundle"
	"unipkg/pkg/manager"
)

var bundleCmd = &cobra.Command{
	Use:   "bundle",
	Short: "Export, inspect and install package bundles",
	Long: `A bundle is a list of packages with their installation options that
can be installed on another machine in one go. The format follows the file
extension: .json or .ubundle (JSON), .yaml/.yml, or .xml.

Examples:
  unipkg bundle export                    # Every installed package, into the bundle directory
  unipkg bundle export dev.json           # Every installed package
  unipkg bundle export tools.yaml git jq  # Only the given packages
  unipkg bundle import dev.json           # Show what a bundle contains
  unipkg bundle install dev.json          # Install a bundle`,
}

var bundleExportCmd = &cobra.Command{
	Use:   "export [file] [packages...]",
	Short: "Write installed packages to a bundle file",
	Long: `Write installed packages to a bundle file. Without a file name ending
in .json, .ubundle, .yaml, .yml or .xml, the bundle is written to the
bundle directory under a timestamped name.`,
	RunE:  runBundleExport,
}

var bundleImportCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Show the contents of a bundle file",
	Args:  cobra.ExactArgs(1),
	RunE:  runBundleImport,
}

var bundleInstallCmd = &cobra.Command{
	Use:   "install <file>",
	Short: "Install every package of a bundle file",
	Args:  cobra.ExactArgs(1),
	RunE:  runBundleInstall,
}

var bundleSkipInstalled bool

func init() {
	bundleInstallCmd.Flags().BoolVar(&bundleSkipInstalled, "skip-installed", true, "skip packages that are already installed")

	bundleCmd.AddCommand(bundleExportCmd)
	bundleCmd.AddCommand(bundleImportCmd)
	bundleCmd.AddCommand(bundleInstallCmd)
	rootCmd.AddCommand(bundleCmd)
}

var bundleFs = afero.NewOsFs()

// exportTarget splits export arguments into the bundle path and the
// requested package ids.
func exportTarget(args []string, paths config.Paths, now time.Time) (string, []string) {
	if len(args) > 0 {
		if _, err := bundle.FormatFromPath(args[0]); err == nil {
			return args[0], args[1:]
		}
	}
	return paths.BundleFile(now), args
}

func runBundleExport(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	s, err := newSession(false)
	if err != nil {
		return err
	}
	defer s.Close()

	if err := reload(ctx, s.installed, "Reading installed packages..."); err != nil {
		return err
	}

	path, ids := exportTarget(args, config.DefaultPaths(), time.Now())
	packages := filterSource(s.installed.Packages())
	if len(ids) > 0 {
		packages, err = s.pick(packages, ids)
		if err != nil {
			return err
		}
	}

	bl := bundle.NewLoader(s.managers, log, nil, s.store)
	values := make([]manager.Identifiable, len(packages))
	for i, p := range packages {
		values[i] = p
	}
	bl.AddPackages(values...)

	doc := bl.Document()
	if err := bundle.Save(bundleFs, path, doc); err != nil {
		return err
	}

	ui.SuccessMsg("Exported %d packages to %s", len(doc.Packages), path)
	if n := len(doc.IncompatiblePackages); n > 0 {
		ui.WarningMsg("%d packages cannot be reinstalled and were listed as incompatible", n)
	}
	return nil
}

// loadBundle reads path into a bundle loader bound to s.
func (s *session) loadBundle(path string) (*bundle.Loader, error) {
	doc, err := bundle.Load(bundleFs, path)
	if err != nil {
		return nil, err
	}

	bl := bundle.NewLoader(s.managers, log, s.installed, s.store)
	bl.Import(doc, registry)
	return bl, nil
}

func runBundleImport(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	s, err := newSession(false)
	if err != nil {
		return err
	}
	defer s.Close()

	if err := reload(ctx, s.installed, "Reading installed packages..."); err != nil {
		return err
	}

	bl, err := s.loadBundle(args[0])
	if err != nil {
		return err
	}

	ui.HeaderMsg("Bundle %s (%d packages)", args[0], bl.Count())
	t := ui.NewTableWriter(os.Stdout, []string{"name", "id", "version", "source", ""})
	for _, item := range bl.Packages() {
		p, err := item.Resolve()
		if err != nil {
			t.AddRow(item.DisplayName(), item.Identity().ID, item.Identity().Version, item.SourceString(), ui.Error.Sprint("[incompatible]"))
			continue
		}
		t.AddRow(ui.PackageName.Sprint(p.Name), p.ID, p.Version, ui.PackageSource.Sprint(item.SourceString()), ui.TagLabel(p.Tag()))
	}
	t.Render()
	return nil
}

func runBundleInstall(cmd *cobra.Command, args []string) error {
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

	bl, err := s.loadBundle(args[0])
	if err != nil {
		return err
	}

	var packages []*manager.Package
	for _, item := range bl.Packages() {
		p, err := item.Resolve()
		if err != nil {
			ui.WarningMsg("Skipping %s: %v", item.DisplayName(), err)
			continue
		}
		if !p.Manager.IsAvailable() {
			ui.WarningMsg("Skipping %s: %s is not available", p.Name, p.Manager.DisplayName())
			continue
		}
		if bundleSkipInstalled && p.Tag() == manager.TagAlreadyInstalled {
			ui.MutedMsg("%s is already installed", p)
			continue
		}
		packages = append(packages, p)
		s.restoreIgnoredUpdates(item)
	}

	if len(packages) == 0 {
		ui.SuccessMsg("Nothing to install")
		return nil
	}
	if err := confirmPlan(manager.OpInstall, packages); err != nil {
		return err
	}
	return s.runOperations(ctx, manager.OpInstall, packages, manager.InstallationOptions{})
}

// restoreIgnoredUpdates carries the bundle's ignored updates over to this
// machine.
func (s *session) restoreIgnoredUpdates(item bundle.Item) {
	ip, ok := item.(*bundle.ImportedPackage)
	if !ok || !ip.Updates.UpdatesIgnored {
		return
	}
	p, _ := ip.Resolve()
	if err := s.store.Ignore(p, ip.Updates.IgnoredVersion); err != nil {
		log.Warn("could not ignore updates of %s: %v", p.ID, err)
		return
	}
	log.Info("updates of %s (%q) are ignored as recorded in the bundle", p.ID, ip.Updates.IgnoredVersion)
}
