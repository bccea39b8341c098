// Package manager defines the normalized package model shared by every
// package manager backend, and the contract those backends implement.
package manager

// PackageScope is the installation scope of a package.
type PackageScope string

const (
	// ScopeDefault leaves the scope decision to the backend.
	ScopeDefault PackageScope = ""
	// ScopeUser installs for the current user only.
	ScopeUser PackageScope = "user"
	// ScopeGlobal installs machine-wide.
	ScopeGlobal PackageScope = "global"
)

// Architecture is a CPU architecture a backend can target.
type Architecture string

const (
	ArchDefault Architecture = ""
	ArchX86     Architecture = "x86"
	ArchX64     Architecture = "x64"
	ArchArm64   Architecture = "arm64"
	ArchArm     Architecture = "arm"
)

// PackageTag is the UI-visible state of a package.
type PackageTag int32

const (
	TagDefault PackageTag = iota
	TagAlreadyInstalled
	TagIsUpgradable
	TagPinned
	TagOnQueue
	TagBeingProcessed
	TagFailed
	TagUnavailable
)

// String returns the tag name.
func (t PackageTag) String() string {
	switch t {
	case TagDefault:
		return "default"
	case TagAlreadyInstalled:
		return "installed"
	case TagIsUpgradable:
		return "upgradable"
	case TagPinned:
		return "pinned"
	case TagOnQueue:
		return "queued"
	case TagBeingProcessed:
		return "processing"
	case TagFailed:
		return "failed"
	case TagUnavailable:
		return "unavailable"
	}
	return "unknown"
}

// OperationType is the kind of mutating operation run against a package.
type OperationType string

const (
	OpInstall   OperationType = "install"
	OpUpdate    OperationType = "update"
	OpUninstall OperationType = "uninstall"
)

// Verdict is the classification of a finished package manager process.
type Verdict int

const (
	VerdictSucceeded Verdict = iota
	VerdictFailed
	// VerdictAutoRetry means the backend adjusted the options or the scope
	// and wants the engine to run the operation again.
	VerdictAutoRetry
)

// String returns the verdict name.
func (v Verdict) String() string {
	switch v {
	case VerdictSucceeded:
		return "succeeded"
	case VerdictFailed:
		return "failed"
	case VerdictAutoRetry:
		return "auto-retry"
	}
	return "unknown"
}

// Result is returned by the verdict functions. Options and Scope carry the
// values the next attempt must use; a backend that changes nothing returns
// them unchanged.
type Result struct {
	Verdict Verdict
	Options InstallationOptions
	Scope   PackageScope
}
