// Package applog provides file-based logging for sessiondex's daemon
// and CLI. It is a separate package so every other internal package can
// depend on it without risking an import cycle.
package applog

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"
)

// level orders the severities a Logger can be filtered to. Higher is
// more severe.
type level int

const (
	levelDebug level = iota
	levelInfo
	levelWarn
	levelError
)

// parseLevel maps a config.LoggingConfig.Level string onto a level,
// defaulting to levelDebug (everything) for an empty or unrecognized
// value so a typo in config.json degrades to verbose logging rather
// than silent logging.
func parseLevel(s string) level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "info":
		return levelInfo
	case "warn", "warning":
		return levelWarn
	case "error":
		return levelError
	default:
		return levelDebug
	}
}

// Logger writes timestamped, leveled lines to a single log file,
// dropping any line below its configured minimum level.
type Logger struct {
	mu      sync.Mutex
	file    *os.File
	enabled bool
	minimum level
}

var (
	// Log is the process-wide logger instance.
	Log     = &Logger{}
	logOnce sync.Once
)

// Init opens the global logger against path at the given minimum level
// ("debug", "info", "warn", or "error"; anything else logs everything).
// If path is empty, logging is disabled and every call becomes a
// no-op. Safe to call once per process; subsequent calls are ignored.
func Init(path, minLevel string) error {
	if path == "" {
		Log.enabled = false
		return nil
	}

	var initErr error
	logOnce.Do(func() {
		f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			initErr = err
			return
		}
		Log.file = f
		Log.enabled = true
		Log.minimum = parseLevel(minLevel)
		Log.Info("logger initialized", "path", path, "level", minLevel)
	})
	return initErr
}

// Close closes the log file.
func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.file != nil {
		return l.file.Close()
	}
	return nil
}

// Enabled reports whether logging is active.
func (l *Logger) Enabled() bool {
	return l.enabled
}

// Writer exposes the underlying file for libraries that want an
// io.Writer (e.g. an HTTP access-log middleware).
func (l *Logger) Writer() io.Writer {
	if !l.enabled || l.file == nil {
		return io.Discard
	}
	return l.file
}

func (l *Logger) log(lvl level, label, msg string, keyvals ...any) {
	if !l.enabled || l.file == nil || lvl < l.minimum {
		return
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	timestamp := time.Now().Format("15:04:05.000")
	line := fmt.Sprintf("%s [%s] %s", timestamp, label, msg)
	for i := 0; i < len(keyvals)-1; i += 2 {
		line += fmt.Sprintf(" %v=%v", keyvals[i], keyvals[i+1])
	}

	fmt.Fprintln(l.file, line)
	l.file.Sync()
}

func (l *Logger) Debug(msg string, keyvals ...any) { l.log(levelDebug, "DEBUG", msg, keyvals...) }
func (l *Logger) Info(msg string, keyvals ...any)  { l.log(levelInfo, "INFO", msg, keyvals...) }
func (l *Logger) Warn(msg string, keyvals ...any)  { l.log(levelWarn, "WARN", msg, keyvals...) }
func (l *Logger) Error(msg string, keyvals ...any) { l.log(levelError, "ERROR", msg, keyvals...) }

func (l *Logger) Debugf(format string, args ...any) {
	l.log(levelDebug, "DEBUG", fmt.Sprintf(format, args...))
}
func (l *Logger) Infof(format string, args ...any) {
	l.log(levelInfo, "INFO", fmt.Sprintf(format, args...))
}
func (l *Logger) Warnf(format string, args ...any) {
	l.log(levelWarn, "WARN", fmt.Sprintf(format, args...))
}
func (l *Logger) Errorf(format string, args ...any) {
	l.log(levelError, "ERROR", fmt.Sprintf(format, args...))
}

// Timed logs the duration of an operation at debug level. Usage:
//
//	defer applog.Log.Timed("index run")()
func (l *Logger) Timed(operation string) func() {
	if !l.enabled || levelDebug < l.minimum {
		return func() {}
	}
	start := time.Now()
	l.Debug(operation, "status", "started")
	return func() {
		l.Debug(operation, "status", "completed", "duration", time.Since(start))
	}
}
