package cli

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"unipkg/internal/ui"
	"unipkg/pkg/manager"
)

var ignoreCmd = &cobra.Command{
	Use:   "ignore",
	Short: "Manage ignored updates",
	Long: `Ignored updates are not offered by "unipkg updates" nor applied by
"unipkg update --all". An update can be ignored for one version or for good.

Examples:
  unipkg ignore add scoop git 2.42.0  # Skip this version only
  unipkg ignore add winget Git.Git    # Skip every future version
  unipkg ignore remove scoop git
  unipkg ignore list`,
	RunE: runIgnoreList,
}

var ignoreAddCmd = &cobra.Command{
	Use:   "add <manager> <id> [version]",
	Short: "Ignore updates of a package",
	Args:  cobra.RangeArgs(2, 3),
	RunE:  runIgnoreAdd,
}

var ignoreRemoveCmd = &cobra.Command{
	Use:   "remove <manager> <id>",
	Short: "Offer updates of a package again",
	Args:  cobra.ExactArgs(2),
	RunE:  runIgnoreRemove,
}

var ignoreListCmd = &cobra.Command{
	Use:   "list",
	Short: "List ignored updates",
	RunE:  runIgnoreList,
}

func init() {
	ignoreCmd.AddCommand(ignoreAddCmd)
	ignoreCmd.AddCommand(ignoreRemoveCmd)
	ignoreCmd.AddCommand(ignoreListCmd)
	rootCmd.AddCommand(ignoreCmd)
}

// ignoredPackage builds the package an ignore entry is keyed on.
func ignoredPackage(managerName, id string) (*manager.Package, error) {
	mgr, err := registry.Lookup(managerName)
	if err != nil {
		return nil, err
	}
	return manager.NewPackage(id, id, "", mgr.SourceOrDefault(""), mgr, manager.ScopeDefault), nil
}

func runIgnoreAdd(cmd *cobra.Command, args []string) error {
	p, err := ignoredPackage(args[0], args[1])
	if err != nil {
		return err
	}
	version := ""
	if len(args) == 3 {
		version = args[2]
	}

	store, err := openHistory()
	if err != nil {
		return err
	}
	defer store.Close()

	if err := store.Ignore(p, version); err != nil {
		return fmt.Errorf("failed to ignore updates: %w", err)
	}
	if version == "" {
		ui.SuccessMsg("Updates of %s will no longer be offered", p.ID)
	} else {
		ui.SuccessMsg("Update of %s to %s will no longer be offered", p.ID, version)
	}
	return nil
}

func runIgnoreRemove(cmd *cobra.Command, args []string) error {
	p, err := ignoredPackage(args[0], args[1])
	if err != nil {
		return err
	}

	store, err := openHistory()
	if err != nil {
		return err
	}
	defer store.Close()

	if err := store.Unignore(p); err != nil {
		return fmt.Errorf("failed to remove ignored update: %w", err)
	}
	ui.SuccessMsg("Updates of %s will be offered again", p.ID)
	return nil
}

func runIgnoreList(cmd *cobra.Command, args []string) error {
	store, err := openHistory()
	if err != nil {
		return err
	}
	defer store.Close()

	ignored, err := store.IgnoredUpdates()
	if err != nil {
		return err
	}
	if len(ignored) == 0 {
		ui.MutedMsg("No ignored updates")
		return nil
	}

	keys := make([]string, 0, len(ignored))
	for k := range ignored {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	t := ui.NewTableWriter(os.Stdout, []string{"manager", "id", "version"})
	for _, k := range keys {
		mgr, id, _ := strings.Cut(k, "\\")
		version := ignored[k]
		if version == "*" {
			version = ui.Muted.Sprint("all")
		}
		t.AddRow(mgr, id, version)
	}
	t.Render()
	return nil
}
