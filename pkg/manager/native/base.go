// Package native implements the package manager backends.
package native

import (
	"context"
	"os"
	"os/exec"
	"slices"
	"strings"
	"sync"
	"unicode"

	"unipkg/internal/executor"
	"unipkg/internal/logging"
	"unipkg/pkg/manager"
)

// Definition is the static description a backend hands to NewBaseManager.
type Definition struct {
	Properties   manager.Properties
	Capabilities manager.Capabilities

	// Binary is looked up on PATH to decide availability.
	Binary string
	// Executable is what actually runs; defaults to Binary.
	Executable string

	// Parsing artifacts that IsPlaceholder rejects.
	FalsePackageNames    []string
	FalsePackageIDs      []string
	FalsePackageVersions []string
}

// BaseManager provides common functionality for all backends.
type BaseManager struct {
	def      Definition
	execPath string
	runner   executor.Runner
	log      *logging.Log

	mu      sync.Mutex
	sources map[string]*manager.ManagerSource
}

// NewBaseManager creates a new BaseManager from def.
func NewBaseManager(def Definition) *BaseManager {
	b := &BaseManager{
		def:     def,
		runner:  executor.New(false, false),
		log:     logging.Nop(),
		sources: make(map[string]*manager.ManagerSource),
	}
	for _, src := range def.Properties.KnownSources {
		b.sources[src.Name] = src
	}
	if src := def.Properties.DefaultSource; src != nil {
		b.sources[src.Name] = src
	}
	return b
}

// Name returns the short identifier for this manager.
func (b *BaseManager) Name() string {
	return b.def.Properties.Name
}

// DisplayName returns the human-readable name.
func (b *BaseManager) DisplayName() string {
	return b.def.Properties.DisplayName
}

// Properties returns the static description.
func (b *BaseManager) Properties() manager.Properties {
	p := b.def.Properties
	p.ExecutableCallArgs = slices.Clone(p.ExecutableCallArgs)
	p.KnownSources = slices.Clone(p.KnownSources)
	return p
}

// Capabilities returns the supported features.
func (b *BaseManager) Capabilities() manager.Capabilities {
	return b.def.Capabilities
}

// IsAvailable returns true if this package manager is installed.
func (b *BaseManager) IsAvailable() bool {
	if b.execPath != "" {
		_, err := os.Stat(b.execPath)
		return err == nil
	}
	_, err := exec.LookPath(b.def.Binary)
	return err == nil
}

// ExecutablePath returns the configured path, or the executable found on PATH.
func (b *BaseManager) ExecutablePath() string {
	if b.execPath != "" {
		return b.execPath
	}
	name := b.def.Executable
	if name == "" {
		name = b.def.Binary
	}
	if path, err := exec.LookPath(name); err == nil {
		return path
	}
	return name
}

// SetExecutablePath overrides the executable lookup.
func (b *BaseManager) SetExecutablePath(path string) {
	b.execPath = path
}

// Runner returns the process runner.
func (b *BaseManager) Runner() executor.Runner {
	return b.runner
}

// SetRunner sets the process runner used for discovery.
func (b *BaseManager) SetRunner(r executor.Runner) {
	b.runner = r
}

// SetLogger sets the logger.
func (b *BaseManager) SetLogger(log *logging.Log) {
	b.log = log
}

// Logger returns the logger.
func (b *BaseManager) Logger() *logging.Log {
	return b.log
}

// SourceOrDefault resolves a source by name. Unknown names become new
// sources when the backend supports custom sources.
func (b *BaseManager) SourceOrDefault(name string) *manager.ManagerSource {
	def := b.def.Properties.DefaultSource
	if name == "" || !b.def.Capabilities.SupportsCustomSources {
		return def
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if src, ok := b.sources[name]; ok {
		return src
	}
	src := manager.NewSource(b.Name(), name, "")
	b.sources[name] = src
	return src
}

// IsPlaceholder reports whether p is a parsing artifact.
func (b *BaseManager) IsPlaceholder(p *manager.Package) bool {
	return slices.Contains(b.def.FalsePackageNames, p.Name) ||
		slices.Contains(b.def.FalsePackageIDs, p.ID) ||
		slices.Contains(b.def.FalsePackageVersions, p.Version)
}

// command builds the backend command line for args.
func (b *BaseManager) command(args ...string) executor.Command {
	callArgs := slices.Clone(b.def.Properties.ExecutableCallArgs)
	return executor.Command{
		Path: b.ExecutablePath(),
		Args: append(callArgs, args...),
	}
}

// run executes the backend with args and returns its output lines. A
// non-zero exit is logged but the output is still returned for parsing.
func (b *BaseManager) run(ctx context.Context, args ...string) ([]string, error) {
	return b.runCommand(ctx, b.command(args...))
}

func (b *BaseManager) runCommand(ctx context.Context, cmd executor.Command) ([]string, error) {
	b.log.Debug("[%s] running %s", b.Name(), cmd)
	lines, code, err := executor.Lines(ctx, b.runner, cmd)
	if err != nil {
		return nil, err
	}
	if code != 0 {
		b.log.Warn("[%s] %s exited with code %d", b.Name(), cmd, code)
	}
	return lines, nil
}

// newPackage creates a package owned by m.
func newPackage(m manager.Manager, name, id, version string, src *manager.ManagerSource, scope manager.PackageScope) *manager.Package {
	return manager.NewPackage(name, id, version, src, m, scope)
}

// formatAsName turns a package id such as "visual-studio_code" into a
// display name ("Visual Studio Code").
func formatAsName(id string) string {
	words := strings.FieldsFunc(id, func(r rune) bool {
		return r == '-' || r == '_' || r == '.' || r == ' '
	})
	for i, w := range words {
		runes := []rune(w)
		runes[0] = unicode.ToUpper(runes[0])
		words[i] = string(runes)
	}
	return strings.Join(words, " ")
}

// splitColumns splits a table row on runs of two or more spaces.
func splitColumns(line string) []string {
	var cols []string
	for _, part := range strings.Split(strings.TrimSpace(line), "  ") {
		if part = strings.TrimSpace(part); part != "" {
			cols = append(cols, part)
		}
	}
	return cols
}

// containsAny reports whether any line contains any of the needles.
func containsAny(output []string, needles ...string) bool {
	for _, line := range output {
		for _, n := range needles {
			if strings.Contains(line, n) {
				return true
			}
		}
	}
	return false
}
