package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"unipkg/internal/ui"
	"unipkg/pkg/manager"
)

var historyLimit int

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show operation history",
	Long: `Display the history of package operations performed by unipkg.

Examples:
  unipkg history              # Show recent history
  unipkg history -l 20        # Show last 20 operations
  unipkg history show 3f2c9a1e
  unipkg history undo 3f2c9a1e`,
	RunE: runHistory,
}

var historyShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show one operation with its output",
	Args:  cobra.ExactArgs(1),
	RunE:  runHistoryShow,
}

var historyClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete the operation history",
	RunE:  runHistoryClear,
}

var historyUndoCmd = &cobra.Command{
	Use:   "undo [id]",
	Short: "Reverse an install or uninstall (the last one by default)",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runHistoryUndo,
}

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "l", 10, "number of entries to show")
	historyCmd.AddCommand(historyShowCmd)
	historyCmd.AddCommand(historyClearCmd)
	historyCmd.AddCommand(historyUndoCmd)
	rootCmd.AddCommand(historyCmd)
}

func runHistory(cmd *cobra.Command, args []string) error {
	store, err := openHistory()
	if err != nil {
		return err
	}
	defer store.Close()

	entries, err := store.List(historyLimit)
	if err != nil {
		return fmt.Errorf("failed to read history: %w", err)
	}

	ui.HeaderMsg("Operation History")
	ui.PrintHistory(os.Stdout, entries)

	if total, err := store.Count(); err == nil && total > 0 {
		ui.MutedMsg("\nShowing %d of %d total entries", len(entries), total)
	}
	return nil
}

func runHistoryShow(cmd *cobra.Command, args []string) error {
	store, err := openHistory()
	if err != nil {
		return err
	}
	defer store.Close()

	entry, err := store.Get(args[0])
	if err != nil {
		return err
	}
	ui.PrintEntry(entry)
	return nil
}

func runHistoryClear(cmd *cobra.Command, args []string) error {
	if !cfg.General.AutoConfirm {
		ok, err := ui.Confirm("Delete the whole operation history?", false)
		if err != nil {
			return err
		}
		if !ok {
			return ErrAborted
		}
	}

	store, err := openHistory()
	if err != nil {
		return err
	}
	defer store.Close()

	if err := store.Clear(); err != nil {
		return fmt.Errorf("failed to clear history: %w", err)
	}
	ui.SuccessMsg("History cleared")
	return nil
}

func runHistoryUndo(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	s, err := newSession(true)
	if err != nil {
		return err
	}
	defer s.Close()

	entry, err := s.store.Last()
	if len(args) == 1 {
		entry, err = s.store.Get(args[0])
	}
	if err != nil {
		return err
	}
	if entry == nil {
		return fmt.Errorf("nothing to undo")
	}

	reverse, ok := entry.Reverse()
	if !ok {
		return fmt.Errorf("%s of %s cannot be undone", entry.Operation, entry.PackageID)
	}

	mgr, err := registry.Lookup(entry.Manager)
	if err != nil {
		return err
	}
	p := manager.NewPackage(entry.PackageName, entry.PackageID, entry.Version, mgr.SourceOrDefault(entry.Source), mgr, manager.ScopeDefault)

	packages := []*manager.Package{p}
	if err := confirmPlan(reverse, packages); err != nil {
		return err
	}
	return s.runOperations(ctx, reverse, packages, manager.InstallationOptions{})
}
