package logging

import (
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// DefaultCapacity is the number of entries kept in memory.
const DefaultCapacity = 5000

// Severity of an in-memory entry.
type Severity int

const (
	SeverityDebug Severity = iota
	SeverityInfo
	SeveritySuccess
	SeverityWarning
	SeverityError
)

// String returns the severity name.
func (s Severity) String() string {
	switch s {
	case SeverityDebug:
		return "debug"
	case SeverityInfo:
		return "info"
	case SeveritySuccess:
		return "success"
	case SeverityWarning:
		return "warning"
	case SeverityError:
		return "error"
	}
	return "unknown"
}

// Entry is one in-memory log line.
type Entry struct {
	Time     time.Time
	Severity Severity
	Message  string
}

type buffer struct {
	mu      sync.Mutex
	cap     int
	entries []Entry
}

func newBuffer(capacity int) *buffer {
	return &buffer{cap: capacity}
}

func (b *buffer) add(e Entry) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.entries) >= b.cap {
		drop := len(b.entries) - b.cap + 1
		b.entries = append(b.entries[:0], b.entries[drop:]...)
	}
	b.entries = append(b.entries, e)
}

func (b *buffer) snapshot() []Entry {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]Entry, len(b.entries))
	copy(out, b.entries)
	return out
}

type bufferHook struct {
	buf     *buffer
	success bool
}

func (h bufferHook) Run(_ *zerolog.Event, level zerolog.Level, msg string) {
	if msg == "" {
		return
	}
	sev := fromLevel(level)
	if h.success {
		sev = SeveritySuccess
	}
	h.buf.add(Entry{Time: time.Now(), Severity: sev, Message: msg})
}

func fromLevel(level zerolog.Level) Severity {
	switch {
	case level <= zerolog.DebugLevel:
		return SeverityDebug
	case level == zerolog.InfoLevel:
		return SeverityInfo
	case level == zerolog.WarnLevel:
		return SeverityWarning
	default:
		return SeverityError
	}
}
