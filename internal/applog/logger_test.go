package applog

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]level{
		"debug":   levelDebug,
		"":        levelDebug,
		"bogus":   levelDebug,
		"info":    levelInfo,
		"INFO":    levelInfo,
		"warn":    levelWarn,
		"warning": levelWarn,
		"error":   levelError,
		" Error ": levelError,
	}
	for in, want := range cases {
		if got := parseLevel(in); got != want {
			t.Errorf("parseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func newFileLogger(t *testing.T, minLevel string) (*Logger, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.log")
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { f.Close() })
	return &Logger{file: f, enabled: true, minimum: parseLevel(minLevel)}, path
}

func TestLoggerDropsLinesBelowMinimumLevel(t *testing.T) {
	l, path := newFileLogger(t, "warn")

	l.Debug("debug line")
	l.Info("info line")
	l.Warn("warn line")
	l.Error("error line")

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	out := string(data)

	if strings.Contains(out, "debug line") || strings.Contains(out, "info line") {
		t.Fatalf("expected debug/info lines to be dropped at warn level, got:\n%s", out)
	}
	if !strings.Contains(out, "warn line") || !strings.Contains(out, "error line") {
		t.Fatalf("expected warn/error lines to be written, got:\n%s", out)
	}
}

func TestLoggerAtDebugLevelWritesEverything(t *testing.T) {
	l, path := newFileLogger(t, "debug")

	l.Debug("debug line")
	l.Error("error line")

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	out := string(data)
	if !strings.Contains(out, "debug line") || !strings.Contains(out, "error line") {
		t.Fatalf("expected both lines written at debug level, got:\n%s", out)
	}
}

func TestTimedSkipsStartLogBelowDebugVisibility(t *testing.T) {
	l, path := newFileLogger(t, "error")

	done := l.Timed("some operation")
	done()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(string(data), "some operation") {
		t.Fatalf("expected Timed's debug-level lines to be suppressed at error level, got:\n%s", string(data))
	}
}
