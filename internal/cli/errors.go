package cli

import "errors"

var (
	// ErrNoManager is returned when no package manager is available.
	ErrNoManager = errors.New("no supported package manager found; install one or enable it in the config")

	// ErrNoPackages is returned when no packages are specified.
	ErrNoPackages = errors.New("no packages specified")

	// ErrSourceNotFound is returned when the specified source is not available.
	ErrSourceNotFound = errors.New("specified package manager is not available")

	// ErrPackageNotFound is returned when a package cannot be found.
	ErrPackageNotFound = errors.New("package not found")

	// ErrAborted is returned when the user aborts an operation.
	ErrAborted = errors.New("operation aborted by user")

	// ErrOperationsFailed is returned when at least one operation did not
	// succeed.
	ErrOperationsFailed = errors.New("some operations did not succeed")
)
