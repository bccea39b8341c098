package manager

import (
	"fmt"
	"slices"
	"strings"
)

// InstallationOptions are the knobs a user can turn for a single operation.
// Field names match the bundle file format.
type InstallationOptions struct {
	SkipHashCheck           bool         `json:"SkipHashCheck" yaml:"SkipHashCheck" xml:"SkipHashCheck"`
	InteractiveInstallation bool         `json:"InteractiveInstallation" yaml:"InteractiveInstallation" xml:"InteractiveInstallation"`
	RunAsAdministrator      bool         `json:"RunAsAdministrator" yaml:"RunAsAdministrator" xml:"RunAsAdministrator"`
	PreRelease              bool         `json:"PreRelease" yaml:"PreRelease" xml:"PreRelease"`
	RemoveDataOnUninstall   bool         `json:"RemoveDataOnUninstall" yaml:"RemoveDataOnUninstall" xml:"RemoveDataOnUninstall"`
	Architecture            Architecture `json:"Architecture" yaml:"Architecture" xml:"Architecture"`
	InstallationScope       PackageScope `json:"InstallationScope" yaml:"InstallationScope" xml:"InstallationScope"`
	Version                 string       `json:"Version" yaml:"Version" xml:"Version"`
	CustomParameters        []string     `json:"CustomParameters" yaml:"CustomParameters" xml:"CustomParameters>Parameter"`
}

// Clone returns a deep copy.
func (o InstallationOptions) Clone() InstallationOptions {
	o.CustomParameters = slices.Clone(o.CustomParameters)
	return o
}

// Merge layers overrides on top of o. Set flags and non-empty values in
// overrides win; custom parameters are appended after the defaults.
func (o InstallationOptions) Merge(overrides InstallationOptions) InstallationOptions {
	merged := o.Clone()
	merged.SkipHashCheck = o.SkipHashCheck || overrides.SkipHashCheck
	merged.InteractiveInstallation = o.InteractiveInstallation || overrides.InteractiveInstallation
	merged.RunAsAdministrator = o.RunAsAdministrator || overrides.RunAsAdministrator
	merged.PreRelease = o.PreRelease || overrides.PreRelease
	merged.RemoveDataOnUninstall = o.RemoveDataOnUninstall || overrides.RemoveDataOnUninstall
	if overrides.Architecture != ArchDefault {
		merged.Architecture = overrides.Architecture
	}
	if overrides.InstallationScope != ScopeDefault {
		merged.InstallationScope = overrides.InstallationScope
	}
	if overrides.Version != "" {
		merged.Version = overrides.Version
	}
	merged.CustomParameters = append(merged.CustomParameters, overrides.CustomParameters...)
	return merged
}

// Sanitize clears every option the backend cannot honor.
func (o InstallationOptions) Sanitize(caps Capabilities) InstallationOptions {
	s := o.Clone()
	if !caps.CanRunAsAdmin {
		s.RunAsAdministrator = false
	}
	if !caps.CanSkipIntegrityChecks {
		s.SkipHashCheck = false
	}
	if !caps.CanRunInteractively {
		s.InteractiveInstallation = false
	}
	if !caps.CanRemoveDataOnUninstall {
		s.RemoveDataOnUninstall = false
	}
	if !caps.SupportsPreRelease {
		s.PreRelease = false
	}
	if !caps.SupportsCustomVersions {
		s.Version = ""
	}
	if !caps.SupportsCustomScopes {
		s.InstallationScope = ScopeDefault
	}
	if !caps.SupportsCustomArchitectures || !slices.Contains(caps.SupportedArchitectures, s.Architecture) {
		s.Architecture = ArchDefault
	}
	return s
}

// String renders the options for operation log headers.
func (o InstallationOptions) String() string {
	var parts []string
	add := func(name string, on bool) {
		if on {
			parts = append(parts, name)
		}
	}
	add("skip-hash-check", o.SkipHashCheck)
	add("interactive", o.InteractiveInstallation)
	add("run-as-admin", o.RunAsAdministrator)
	add("pre-release", o.PreRelease)
	add("remove-data", o.RemoveDataOnUninstall)
	if o.Architecture != ArchDefault {
		parts = append(parts, "arch="+string(o.Architecture))
	}
	if o.InstallationScope != ScopeDefault {
		parts = append(parts, "scope="+string(o.InstallationScope))
	}
	if o.Version != "" {
		parts = append(parts, "version="+o.Version)
	}
	if len(o.CustomParameters) > 0 {
		parts = append(parts, fmt.Sprintf("params=%q", o.CustomParameters))
	}
	if len(parts) == 0 {
		return "<defaults>"
	}
	return strings.Join(parts, " ")
}
