package cli

import (
	"context"
	"fmt"
	"os"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"unipkg/internal/ui"
	"unipkg/pkg/manager"
	"unipkg/pkg/operation"
)

// optionFlags are the per-operation installation options on the command
// line. They are layered over the package's own overrides for one run and
// never saved on the package.
type optionFlags struct {
	admin       bool
	interactive bool
	skipHash    bool
	preRelease  bool
	removeData  bool
	arch        string
	scope       string
	version     string
	params      []string
}

func (f *optionFlags) register(cmd *cobra.Command, op manager.OperationType) {
	flags := cmd.Flags()
	flags.BoolVar(&f.admin, "admin", false, "run the package manager elevated")
	flags.BoolVar(&f.interactive, "interactive", false, "let the installer show its own UI")
	flags.StringSliceVar(&f.params, "param", nil, "extra argument passed to the package manager (repeatable)")
	flags.StringVar(&f.scope, "scope", "", "installation scope (user or global)")

	if op == manager.OpUninstall {
		flags.BoolVar(&f.removeData, "purge", false, "remove user data as well")
		return
	}
	flags.BoolVar(&f.skipHash, "skip-hash", false, "skip integrity checks")
	flags.BoolVar(&f.preRelease, "pre", false, "allow pre-release versions")
	flags.StringVar(&f.arch, "arch", "", "target architecture (x86, x64, arm64, arm)")
	if op == manager.OpInstall {
		flags.StringVar(&f.version, "version", "", "install a specific version")
	}
}

func (f *optionFlags) options() (manager.InstallationOptions, error) {
	opts := manager.InstallationOptions{
		SkipHashCheck:           f.skipHash,
		InteractiveInstallation: f.interactive,
		RunAsAdministrator:      f.admin,
		PreRelease:              f.preRelease,
		RemoveDataOnUninstall:   f.removeData,
		Version:                 f.version,
		CustomParameters:        f.params,
	}

	switch arch := manager.Architecture(strings.ToLower(f.arch)); arch {
	case manager.ArchDefault, manager.ArchX86, manager.ArchX64, manager.ArchArm64, manager.ArchArm:
		opts.Architecture = arch
	default:
		return opts, fmt.Errorf("unknown architecture %q", f.arch)
	}

	switch scope := manager.PackageScope(strings.ToLower(f.scope)); scope {
	case manager.ScopeDefault, manager.ScopeUser, manager.ScopeGlobal:
		opts.InstallationScope = scope
	default:
		return opts, fmt.Errorf("unknown scope %q", f.scope)
	}
	return opts, nil
}

// matchPackages picks, for every requested id, the packages whose id or
// name matches it exactly, ignoring case. Requests without a match are
// returned separately.
func matchPackages(candidates []*manager.Package, ids []string) (map[string][]*manager.Package, []string) {
	found := make(map[string][]*manager.Package)
	var missing []string
	for _, id := range ids {
		for _, p := range candidates {
			if strings.EqualFold(p.ID, id) || strings.EqualFold(p.Name, id) {
				found[id] = append(found[id], p)
			}
		}
		if len(found[id]) == 0 {
			missing = append(missing, id)
		}
	}
	return found, missing
}

// choose picks one package among several matches. Without a terminal
// prompt the highest-priority manager wins.
func (s *session) choose(id string, matches []*manager.Package) (*manager.Package, error) {
	rank := func(p *manager.Package) int {
		return slices.IndexFunc(s.managers, func(m manager.Manager) bool { return m.Name() == p.ManagerName() })
	}
	slices.SortStableFunc(matches, func(a, b *manager.Package) int { return rank(a) - rank(b) })

	if len(matches) == 1 || cfg.General.AutoConfirm {
		return matches[0], nil
	}
	return ui.SelectPackage(matches, fmt.Sprintf("Several packages match %q", id))
}

// pick resolves every requested id against candidates.
func (s *session) pick(candidates []*manager.Package, ids []string) ([]*manager.Package, error) {
	found, missing := matchPackages(candidates, ids)
	if len(missing) > 0 {
		ui.WarningMsg("Could not find: %s", strings.Join(missing, ", "))
		if len(missing) == len(ids) {
			return nil, ErrPackageNotFound
		}
	}

	var out []*manager.Package
	for _, id := range ids {
		if matches := found[id]; len(matches) > 0 {
			p, err := s.choose(id, matches)
			if err != nil {
				return nil, err
			}
			out = append(out, p)
		}
	}
	return out, nil
}

// confirmPlan shows what is about to happen and asks to proceed.
func confirmPlan(kind manager.OperationType, packages []*manager.Package) error {
	ui.InfoMsg("About to %s:", kind)
	for _, p := range packages {
		line := "  - " + p.String()
		if kind == manager.OpUpdate && p.NewVersion != "" {
			line += " " + ui.SymbolArrow + " " + p.NewVersion
		}
		ui.MutedMsg("%s", line)
	}

	if cfg.General.AutoConfirm || cfg.General.DryRun {
		return nil
	}
	ok, err := ui.Confirm("Proceed?", true)
	if err != nil {
		return err
	}
	if !ok {
		return ErrAborted
	}
	return nil
}

// runOperations runs one operation of kind per package, with a progress
// bar for batches, and prints a summary. extra applies to these operations
// only.
func (s *session) runOperations(ctx context.Context, kind manager.OperationType, packages []*manager.Package, extra manager.InstallationOptions) error {
	ops := make([]*operation.Operation, len(packages))
	for i, p := range packages {
		ops[i] = s.engine.NewOperationWithOptions(kind, p, extra)
	}

	var progress *ui.Progress
	if len(ops) > 1 {
		progress = ui.NewProgress(len(ops), string(kind))
		s.engine.AddListener(operation.ListenerFunc(func(ev operation.Event) {
			switch ev.Kind {
			case operation.EventStarted:
				progress.Describe(ev.Op.StatusLine())
			case operation.EventSucceeded, operation.EventFailed, operation.EventCancelled:
				progress.Step()
			}
		}))
	}

	statuses := s.engine.RunAll(ctx, ops)
	if progress != nil {
		progress.Done()
	}

	fmt.Println()
	ui.PrintOperations(os.Stdout, ops)

	failed := 0
	for i, st := range statuses {
		switch st {
		case operation.StatusSucceeded:
			ui.SuccessMsg("%s", ops[i].StatusLine())
		case operation.StatusCancelled:
			failed++
			ui.WarningMsg("%s: %s", ops[i].Package().Name, ops[i].StatusLine())
		default:
			failed++
			ui.ErrorMsg("%s", ops[i].StatusLine())
		}
	}
	if failed > 0 {
		return fmt.Errorf("%w: %d of %d", ErrOperationsFailed, failed, len(ops))
	}
	return nil
}
