package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/sessiondex/sessiondex/internal/canon"
)

func withHome(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("HOME", dir)
	return dir
}

func TestLoadCreatesDefaultConfig(t *testing.T) {
	withHome(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !cfg.Indexer.Watch {
		t.Fatal("expected default Indexer.Watch=true")
	}
	if cfg.Indexer.DebounceDuration().Seconds() != 2 {
		t.Fatalf("expected default debounce of 2s, got %v", cfg.Indexer.DebounceDuration())
	}

	path, err := Path()
	if err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("expected config.json to be persisted: %v", err)
	}
}

func TestLoadMergesRulesOverride(t *testing.T) {
	home := withHome(t)

	dir, err := Dir()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	rulesPath := filepath.Join(home, ".sessiondex", "rules.toml")
	const toml = `
claude = ["^You are Claude Code"]
codex = []
`
	if err := os.WriteFile(rulesPath, []byte(toml), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(cfg.SystemMessageRules[canon.ProviderClaude]) != 1 {
		t.Fatalf("expected one claude override rule, got %v", cfg.SystemMessageRules[canon.ProviderClaude])
	}
	codexRules, ok := cfg.SystemMessageRules[canon.ProviderCodex]
	if !ok || len(codexRules) != 0 {
		t.Fatalf("expected an explicit empty codex override, got %v (ok=%v)", codexRules, ok)
	}
	if _, ok := cfg.SystemMessageRules[canon.ProviderGemini]; ok {
		t.Fatal("expected no gemini override present")
	}
}

func TestDebounceDurationFallsBackOnInvalidInput(t *testing.T) {
	c := IndexerConfig{Debounce: "not-a-duration"}
	if c.DebounceDuration().Seconds() != 2 {
		t.Fatalf("expected fallback of 2s, got %v", c.DebounceDuration())
	}
}
