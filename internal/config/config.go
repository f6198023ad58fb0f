// Package config loads sessiondex's configuration: daemon socket and
// HTTP addresses, discovery roots, indexer watch/debounce settings, and
// per-provider system-message rule overrides.
package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/sessiondex/sessiondex/internal/canon"
	"github.com/sessiondex/sessiondex/internal/store"
)

// Config holds sessiondex's full runtime configuration.
type Config struct {
	Socket   string `json:"socket"`
	HTTPAddr string `json:"httpAddr,omitempty"`
	DataDir  string `json:"dataDir"`

	Discovery DiscoveryConfig `json:"discovery"`
	Indexer   IndexerConfig   `json:"indexer"`
	Logging   LoggingConfig   `json:"logging"`

	// SystemMessageRules overrides the default per-provider regex
	// patterns used by the system-message rule engine; an empty slice
	// disables the rule for that provider. Loaded from rules.toml
	// beside config.json when present.
	SystemMessageRules map[canon.Provider][]string `json:"-"`
}

// DiscoveryConfig names each provider's discovery root. Empty strings
// fall back to that provider's DefaultRoot().
type DiscoveryConfig struct {
	ClaudeRoot        string `json:"claudeRoot,omitempty"`
	CodexRoot         string `json:"codexRoot,omitempty"`
	GeminiRoot        string `json:"geminiRoot,omitempty"`
	GeminiHistoryRoot string `json:"geminiHistoryRoot,omitempty"`
}

// IndexerConfig controls the filesystem-watch indexer trigger.
type IndexerConfig struct {
	Watch      bool   `json:"watch"`
	Debounce   string `json:"debounce"`
	WorkerPath string `json:"workerPath,omitempty"`
}

// DebounceDuration parses Debounce, defaulting to 2s on empty/invalid
// input.
func (c IndexerConfig) DebounceDuration() time.Duration {
	if c.Debounce != "" {
		if d, err := time.ParseDuration(c.Debounce); err == nil {
			return d
		}
	}
	return 2 * time.Second
}

// LoggingConfig controls the application logger.
type LoggingConfig struct {
	Path  string `json:"path"`
	Level string `json:"level,omitempty"`
}

// Dir returns the sessiondex config directory (~/.sessiondex).
func Dir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".sessiondex"), nil
}

// Path returns the path to the main config file.
func Path() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.json"), nil
}

// RulesPath returns the path to the system-message rule override file.
func RulesPath() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "rules.toml"), nil
}

// Default returns the configuration used when no config.json exists
// yet.
func Default() Config {
	return Config{
		Socket:  filepath.Join(store.DataDir(), "sessiondex.sock"),
		DataDir: store.DataDir(),
		Indexer: IndexerConfig{
			Watch:    true,
			Debounce: "2s",
		},
		Logging: LoggingConfig{
			Path: filepath.Join(store.DataDir(), "sessiondex.log"),
		},
	}
}

// Load reads config.json, falling back to and persisting Default() if
// it does not exist yet, then merges rules.toml on top if present.
func Load() (Config, error) {
	path, err := Path()
	if err != nil {
		return Config{}, err
	}

	cfg := Default()
	data, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
		_ = Save(cfg)
	case err != nil:
		return Config{}, err
	default:
		if err := json.Unmarshal(data, &cfg); err != nil {
			return Config{}, err
		}
	}

	rules, err := loadRulesOverride()
	if err != nil {
		return Config{}, err
	}
	cfg.SystemMessageRules = rules

	return cfg, nil
}

// Save persists cfg to config.json.
func Save(cfg Config) error {
	path, err := Path()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// rulesFile is the decoded shape of rules.toml: one key per provider,
// each an array of regex patterns.
type rulesFile struct {
	Claude []string `toml:"claude"`
	Codex  []string `toml:"codex"`
	Gemini []string `toml:"gemini"`
}

func loadRulesOverride() (map[canon.Provider][]string, error) {
	path, err := RulesPath()
	if err != nil {
		return nil, err
	}
	var rf rulesFile
	if _, err := toml.DecodeFile(path, &rf); err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	out := map[canon.Provider][]string{}
	if rf.Claude != nil {
		out[canon.ProviderClaude] = rf.Claude
	}
	if rf.Codex != nil {
		out[canon.ProviderCodex] = rf.Codex
	}
	if rf.Gemini != nil {
		out[canon.ProviderGemini] = rf.Gemini
	}
	if len(out) == 0 {
		return nil, nil
	}
	return out, nil
}
