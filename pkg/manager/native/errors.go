package native

import (
	"regexp"
	"strings"
)

// FailureKind is a recognized cause of a failed backend run.
type FailureKind int

const (
	FailureUnknown FailureKind = iota
	FailureDependencyConflict
	FailurePackageNotFound
	FailureDatabaseLocked
	FailurePermissionDenied
)

// String returns the failure kind name.
func (k FailureKind) String() string {
	switch k {
	case FailureDependencyConflict:
		return "dependency conflict"
	case FailurePackageNotFound:
		return "package not found"
	case FailureDatabaseLocked:
		return "database locked"
	case FailurePermissionDenied:
		return "permission denied"
	}
	return "unknown"
}

// Diagnosis explains why a backend run failed.
type Diagnosis struct {
	Kind       FailureKind
	Packages   []string // Affected packages
	Suggestion string
}

// String renders the diagnosis for the terminal.
func (d *Diagnosis) String() string {
	var sb strings.Builder
	sb.WriteString(strings.ToUpper(d.Kind.String()[:1]) + d.Kind.String()[1:] + " detected")
	if d.Suggestion != "" {
		sb.WriteString("\n-> Suggestion: ")
		sb.WriteString(d.Suggestion)
	}
	if len(d.Packages) > 0 {
		sb.WriteString("\n  Affected packages:")
		for _, pkg := range d.Packages {
			sb.WriteString("\n    - ")
			sb.WriteString(pkg)
		}
	}
	return sb.String()
}

var (
	// "error: failed to prepare transaction (could not satisfy dependencies)"
	dependencyFailurePattern = regexp.MustCompile(`failed to prepare transaction.*could not satisfy dependencies`)

	// ":: installing pkg (1.2.3-4) breaks dependency 'pkg=1.2.3-1' required by other-pkg"
	breaksDepPattern = regexp.MustCompile(`:: installing (\S+) .* breaks dependency .* required by (\S+)`)

	// ":: pkg and other-pkg are in conflict"
	conflictPattern = regexp.MustCompile(`:: (\S+) and (\S+) are in conflict`)

	// "error: target not found: pkg"
	notFoundPattern = regexp.MustCompile(`error: target not found: (\S+)`)

	// "error: failed to init transaction (unable to lock database)"
	dbLockedPattern = regexp.MustCompile(`failed to init transaction.*unable to lock database`)

	// "E: Unable to locate package pkg"
	aptNotFoundPattern = regexp.MustCompile(`E: Unable to locate package (\S+)`)

	// "E: Could not get lock /var/lib/dpkg/lock-frontend. It is held by process 1234 (apt)"
	aptLockedPattern = regexp.MustCompile(`E: Could not get lock|Unable to acquire the dpkg frontend lock`)

	// "E: Unmet dependencies." / " pkg : Depends: other (>= 1.0) but it is not going to be installed"
	aptDependsPattern = regexp.MustCompile(`^\s*(\S+) : Depends: (\S+)`)
)

// DiagnosePacman classifies pacman output. It returns nil when the failure
// is not recognized.
func DiagnosePacman(output []string) *Diagnosis {
	text := strings.Join(output, "\n")

	switch {
	case dependencyFailurePattern.MatchString(text), conflictPattern.MatchString(text):
		return &Diagnosis{
			Kind:       FailureDependencyConflict,
			Packages:   affectedPackages(text),
			Suggestion: "Run 'unipkg update' to bring your system up to date first",
		}

	case notFoundPattern.MatchString(text):
		d := &Diagnosis{Kind: FailurePackageNotFound}
		for _, m := range notFoundPattern.FindAllStringSubmatch(text, -1) {
			d.Packages = append(d.Packages, m[1])
		}
		return d

	case dbLockedPattern.MatchString(text):
		return &Diagnosis{
			Kind:       FailureDatabaseLocked,
			Suggestion: "Another package manager may be running. Wait for it to finish or remove /var/lib/pacman/db.lck",
		}

	case strings.Contains(text, "you cannot perform this operation unless you are root"):
		return &Diagnosis{Kind: FailurePermissionDenied}
	}

	return nil
}

// DiagnoseAPT classifies apt-get output. It returns nil when the failure is
// not recognized.
func DiagnoseAPT(output []string) *Diagnosis {
	var dependencies *Diagnosis

	for _, line := range output {
		switch {
		case aptLockedPattern.MatchString(line):
			return &Diagnosis{
				Kind:       FailureDatabaseLocked,
				Suggestion: "Another package manager may be running. Wait for it to finish",
			}

		case strings.Contains(line, "are you root?"), strings.Contains(line, "Permission denied"):
			return &Diagnosis{Kind: FailurePermissionDenied}

		case aptNotFoundPattern.MatchString(line):
			return &Diagnosis{
				Kind:     FailurePackageNotFound,
				Packages: []string{aptNotFoundPattern.FindStringSubmatch(line)[1]},
			}

		case aptDependsPattern.MatchString(line):
			if dependencies == nil {
				dependencies = &Diagnosis{
					Kind:       FailureDependencyConflict,
					Suggestion: "Run 'apt-get -f install' to repair broken dependencies",
				}
			}
			m := aptDependsPattern.FindStringSubmatch(line)
			dependencies.Packages = appendUnique(dependencies.Packages, m[1], m[2])
		}
	}

	return dependencies
}

// affectedPackages extracts package names from pacman conflict messages.
func affectedPackages(text string) []string {
	var packages []string
	for _, pattern := range []*regexp.Regexp{breaksDepPattern, conflictPattern} {
		for _, m := range pattern.FindAllStringSubmatch(text, -1) {
			packages = appendUnique(packages, m[1:]...)
		}
	}
	return packages
}

func appendUnique(list []string, items ...string) []string {
	for _, item := range items {
		found := false
		for _, existing := range list {
			if existing == item {
				found = true
				break
			}
		}
		if !found {
			list = append(list, item)
		}
	}
	return list
}
