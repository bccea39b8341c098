// Package logging wires zerolog for unipkg: a console sink, a rotating file
// sink and an in-memory buffer the log view reads back.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Config holds logger configuration.
type Config struct {
	Level   string
	File    string
	NoColor bool

	// Console is where console output goes. Nil means stderr; use
	// io.Discard to silence the console.
	Console io.Writer
}

// Log is the application logger. Every event, regardless of the configured
// level, is also kept in memory.
type Log struct {
	zl      zerolog.Logger
	success zerolog.Logger
	buf     *buffer
}

// New creates a logger with console and optional file output.
func New(cfg Config) *Log {
	level := parseLevel(cfg.Level)

	out := cfg.Console
	if out == nil {
		out = os.Stderr
	}

	var writers []io.Writer
	if out != io.Discard {
		consoleWriter := zerolog.ConsoleWriter{
			Out:        out,
			TimeFormat: "15:04:05",
			NoColor:    cfg.NoColor,
		}
		writers = append(writers, filtered(consoleWriter, level))
	}

	if cfg.File != "" {
		dir := filepath.Dir(cfg.File)
		if err := os.MkdirAll(dir, 0755); err == nil {
			fileWriter := &lumberjack.Logger{
				Filename:   cfg.File,
				MaxSize:    10, // MB
				MaxBackups: 3,
				MaxAge:     28, // days
				Compress:   true,
			}
			writers = append(writers, filtered(fileWriter, level))
		}
	}

	return newLog(zerolog.MultiLevelWriter(writers...), newBuffer(DefaultCapacity))
}

// Nop returns a logger that only records into memory.
func Nop() *Log {
	return newLog(zerolog.MultiLevelWriter(), newBuffer(DefaultCapacity))
}

// NewTest returns a logger that writes JSON lines to w.
func NewTest(w io.Writer) *Log {
	return newLog(zerolog.MultiLevelWriter(w), newBuffer(DefaultCapacity))
}

func newLog(w zerolog.LevelWriter, buf *buffer) *Log {
	base := zerolog.New(w).Level(zerolog.DebugLevel).With().Timestamp().Logger()
	return &Log{
		zl:      base.Hook(bufferHook{buf: buf}),
		success: base.With().Str("severity", "success").Logger().Hook(bufferHook{buf: buf, success: true}),
		buf:     buf,
	}
}

func filtered(w io.Writer, level zerolog.Level) zerolog.LevelWriter {
	return &zerolog.FilteredLevelWriter{
		Writer: zerolog.LevelWriterAdapter{Writer: w},
		Level:  level,
	}
}

// Logger returns the underlying zerolog logger for structured events.
func (l *Log) Logger() *zerolog.Logger {
	return &l.zl
}

// Debug logs a debug message.
func (l *Log) Debug(format string, args ...interface{}) {
	l.zl.Debug().Msg(fmt.Sprintf(format, args...))
}

// Info logs an informational message.
func (l *Log) Info(format string, args ...interface{}) {
	l.zl.Info().Msg(fmt.Sprintf(format, args...))
}

// Success logs an important informational message, such as a finished
// operation.
func (l *Log) Success(format string, args ...interface{}) {
	l.success.Info().Msg(fmt.Sprintf(format, args...))
}

// Warn logs a warning.
func (l *Log) Warn(format string, args ...interface{}) {
	l.zl.Warn().Msg(fmt.Sprintf(format, args...))
}

// Error logs an error message.
func (l *Log) Error(format string, args ...interface{}) {
	l.zl.Error().Msg(fmt.Sprintf(format, args...))
}

// Err logs err with a message.
func (l *Log) Err(err error, format string, args ...interface{}) {
	l.zl.Error().Err(err).Msg(fmt.Sprintf(format, args...) + ": " + err.Error())
}

// Entries returns a snapshot of the in-memory log, oldest first.
func (l *Log) Entries() []Entry {
	return l.buf.snapshot()
}

// parseLevel converts string level to zerolog.Level
func parseLevel(level string) zerolog.Level {
	switch strings.ToLower(level) {
	case "trace":
		return zerolog.TraceLevel
	case "debug":
		return zerolog.DebugLevel
	case "info":
		return zerolog.InfoLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}
