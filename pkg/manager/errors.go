package manager

import "errors"

var (
	// ErrUnknownManager is returned when a backend name is not registered.
	ErrUnknownManager = errors.New("unknown package manager")

	// ErrUnknownSource is returned when a source cannot be resolved.
	ErrUnknownSource = errors.New("unknown package source")

	// ErrNoManagers is returned when no registered backend is available.
	ErrNoManagers = errors.New("no package managers available")
)
