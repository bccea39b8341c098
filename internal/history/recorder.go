package history

import (
	"unipkg/internal/logging"
	"unipkg/pkg/operation"
)

// Recorder stores every finished operation except dry runs.
type Recorder struct {
	store *Store
	limit int
	log   *logging.Log
}

// NewRecorder creates a recorder keeping at most limit entries.
func NewRecorder(store *Store, limit int, log *logging.Log) *Recorder {
	if log == nil {
		log = logging.Nop()
	}
	return &Recorder{store: store, limit: limit, log: log}
}

// OperationChanged implements operation.Listener.
func (r *Recorder) OperationChanged(ev operation.Event) {
	switch ev.Kind {
	case operation.EventSucceeded, operation.EventFailed, operation.EventCancelled:
	default:
		return
	}
	if ev.Op.Simulated() {
		return
	}

	if err := r.store.Record(FromOperation(ev.Op)); err != nil {
		r.log.Err(err, "failed to record operation %s", ev.Op.ID())
		return
	}
	if r.limit > 0 {
		if _, err := r.store.Trim(r.limit); err != nil {
			r.log.Err(err, "failed to trim history")
		}
	}
}
