package logging

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// fileLine is a JSON line as written by zerolog.
type fileLine struct {
	Time     time.Time `json:"time"`
	Level    string    `json:"level"`
	Message  string    `json:"message"`
	Severity string    `json:"severity"`
	Error    string    `json:"error"`
}

// ReadFile returns the last n entries of a log file written by New, oldest
// first. A non-positive n returns every entry. Lines that are not log
// entries are skipped.
func ReadFile(path string, n int) ([]Entry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}
	defer f.Close()

	var entries []Entry
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		var line fileLine
		if err := json.Unmarshal(scanner.Bytes(), &line); err != nil || line.Message == "" {
			continue
		}

		level, err := zerolog.ParseLevel(line.Level)
		if err != nil {
			level = zerolog.InfoLevel
		}
		sev := fromLevel(level)
		if line.Severity == SeveritySuccess.String() {
			sev = SeveritySuccess
		}

		entries = append(entries, Entry{Time: line.Time, Severity: sev, Message: line.Message})
		if n > 0 && len(entries) > n {
			entries = entries[1:]
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read log file: %w", err)
	}
	return entries, nil
}
