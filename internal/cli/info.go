package cli

import (
	"strings"

	"github.com/spf13/cobra"

	"unipkg/internal/history"
	"unipkg/internal/ui"
	"unipkg/pkg/loader"
	"unipkg/pkg/manager"
)

// infoHistoryLimit is how many past operations info shows per package.
const infoHistoryLimit = 5

var infoCmd = &cobra.Command{
	Use:   "info [package]",
	Short: "Show package information",
	Long: `Display what unipkg knows about a package: every manager offering it,
installed and available versions, ignored updates and recent operations.
Installed packages are matched first; otherwise the managers are searched.

Examples:
  unipkg info git             # Show git from every manager
  unipkg info git -s scoop    # Only Scoop`,
	Args: cobra.ExactArgs(1),
	RunE: runInfo,
}

func init() {
	rootCmd.AddCommand(infoCmd)
}

func runInfo(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	s, err := newSession(false)
	if err != nil {
		return err
	}
	defer s.Close()

	id := args[0]
	if err := reload(ctx, s.installed, "Reading installed packages..."); err != nil {
		return err
	}
	if err := reload(ctx, s.upgradable, "Checking for updates..."); err != nil {
		return err
	}

	// Upgradable entries carry the new version.
	found, _ := matchPackages(s.upgradable.Packages(), []string{id})
	matches := found[id]
	for _, p := range s.installed.Packages() {
		if matchesID(p, id) && !containsEquivalent(matches, p) {
			matches = append(matches, p)
		}
	}

	if len(matches) == 0 {
		search := loader.NewSearchLoader(s.managers, log, s.installed)
		var results []*manager.Package
		err := ui.WithSpinner("Searching for "+id+"...", func() error {
			var serr error
			results, serr = search.Search(ctx, id)
			return serr
		})
		if err != nil {
			return err
		}
		found, _ := matchPackages(filterSource(results), []string{id})
		matches = found[id]
	}
	if len(matches) == 0 {
		return ErrPackageNotFound
	}

	entries, err := s.store.List(0)
	if err != nil {
		return err
	}

	for _, p := range matches {
		ui.PrintPackage(p)
		if v, ok := s.store.IgnoredVersion(p); ok {
			if v == "*" {
				v = "all"
			}
			ui.WarningMsg("  Ignored updates: %s", v)
		}
		printPackageHistory(p, entries)
	}
	return nil
}

func matchesID(p *manager.Package, id string) bool {
	return strings.EqualFold(p.ID, id) || strings.EqualFold(p.Name, id)
}

func containsEquivalent(pkgs []*manager.Package, p *manager.Package) bool {
	for _, q := range pkgs {
		if q.ID == p.ID && q.ManagerName() == p.ManagerName() && q.SourceName() == p.SourceName() {
			return true
		}
	}
	return false
}

// printPackageHistory prints the latest operations on p.
func printPackageHistory(p *manager.Package, entries []history.Entry) {
	shown := 0
	for i := range entries {
		e := &entries[i]
		if e.PackageID != p.ID || e.Manager != p.ManagerName() {
			continue
		}
		if shown == 0 {
			ui.MutedMsg("  Recent operations:")
		}
		ui.MutedMsg("    %s", e.Summary())
		if shown++; shown == infoHistoryLimit {
			break
		}
	}
}
