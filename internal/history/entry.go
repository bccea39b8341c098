// Package history persists finished operations and ignored updates with
// BoltDB.
package history

import (
	"fmt"
	"time"

	"unipkg/pkg/manager"
	"unipkg/pkg/operation"
)

// outputTail is how many output lines are kept per entry.
const outputTail = 20

// Entry is one finished operation.
type Entry struct {
	ID          string                `json:"id"`
	Timestamp   time.Time             `json:"timestamp"`
	Operation   manager.OperationType `json:"operation"`
	Manager     string                `json:"manager"`
	Source      string                `json:"source"`
	PackageID   string                `json:"package_id"`
	PackageName string                `json:"package_name"`
	Version     string                `json:"version"`
	Status      string                `json:"status"`
	Runs        int                   `json:"runs"`
	Duration    time.Duration         `json:"duration"`
	Error       string                `json:"error,omitempty"`
	Output      []string              `json:"output,omitempty"`
}

// FromOperation builds an entry from a finished operation.
func FromOperation(op *operation.Operation) *Entry {
	p := op.Package()
	e := &Entry{
		ID:          op.ID(),
		Timestamp:   time.Now(),
		Operation:   op.Type(),
		Manager:     p.ManagerName(),
		Source:      p.SourceName(),
		PackageID:   p.ID,
		PackageName: p.Name,
		Version:     p.Version,
		Status:      op.Status().String(),
		Runs:        op.Runs(),
		Duration:    op.Duration(),
	}
	if err := op.Err(); err != nil {
		e.Error = err.Error()
	}

	output := op.Output()
	if len(output) > outputTail {
		output = output[len(output)-outputTail:]
	}
	e.Output = output
	return e
}

// Success reports whether the operation succeeded.
func (e *Entry) Success() bool {
	return e.Status == operation.StatusSucceeded.String()
}

// Reverse returns the operation that undoes this one. Only successful
// installs and uninstalls can be undone.
func (e *Entry) Reverse() (manager.OperationType, bool) {
	if !e.Success() {
		return "", false
	}
	switch e.Operation {
	case manager.OpInstall:
		return manager.OpUninstall, true
	case manager.OpUninstall:
		return manager.OpInstall, true
	}
	return "", false
}

// FormatTime returns a human-readable timestamp.
func (e *Entry) FormatTime() string {
	return e.Timestamp.Format("2006-01-02 15:04:05")
}

// Summary returns a one-line description.
func (e *Entry) Summary() string {
	return fmt.Sprintf("%s %s %s [%s] (%s)", e.FormatTime(), e.Operation, e.PackageID, e.Manager, e.Status)
}
