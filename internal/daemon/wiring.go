// Package daemon builds the shared set of discoverers, parsers, and the
// system-message rule engine from a loaded config.Config, so
// cmd/sessiondexd and cmd/sessiondex-worker construct an
// identical runner.Options without duplicating the wiring.
package daemon

import (
	"github.com/sessiondex/sessiondex/internal/canon"
	"github.com/sessiondex/sessiondex/internal/config"
	"github.com/sessiondex/sessiondex/internal/sources"
	"github.com/sessiondex/sessiondex/internal/sources/claude"
	"github.com/sessiondex/sessiondex/internal/sources/codex"
	"github.com/sessiondex/sessiondex/internal/sources/gemini"
	"github.com/sessiondex/sessiondex/internal/sysrules"
)

// Discoverers builds one Discoverer per provider, rooted at cfg's
// configured (or default) discovery roots.
func Discoverers(cfg config.Config) []sources.Discoverer {
	return []sources.Discoverer{
		claude.NewDiscoverer(cfg.Discovery.ClaudeRoot),
		codex.NewDiscoverer(cfg.Discovery.CodexRoot),
		gemini.NewDiscoverer(cfg.Discovery.GeminiRoot, cfg.Discovery.GeminiHistoryRoot),
	}
}

// Parsers builds the provider->Parser map the indexer and worker share.
func Parsers() map[canon.Provider]sources.Parser {
	return map[canon.Provider]sources.Parser{
		canon.ProviderClaude: claude.NewParser(),
		canon.ProviderCodex:  codex.NewParser(),
		canon.ProviderGemini: gemini.NewParser(),
	}
}

// Rules builds the system-message rule engine with cfg's per-provider
// overrides (rules.toml) layered on top of the compiled-in defaults.
func Rules(cfg config.Config) (*sysrules.Engine, error) {
	engine, err := sysrules.NewEngine()
	if err != nil {
		return nil, err
	}
	if cfg.SystemMessageRules != nil {
		if err := engine.WithOverrides(cfg.SystemMessageRules); err != nil {
			return nil, err
		}
	}
	return engine, nil
}

// WatchRoots collects the non-empty discovery roots to pass to
// runner.Runner.Watch.
func WatchRoots(cfg config.Config) []string {
	var roots []string
	for _, root := range []string{
		cfg.Discovery.ClaudeRoot,
		cfg.Discovery.CodexRoot,
		cfg.Discovery.GeminiRoot,
		cfg.Discovery.GeminiHistoryRoot,
	} {
		if root != "" {
			roots = append(roots, root)
		}
	}
	if len(roots) == 0 {
		roots = []string{claude.DefaultRoot(), codex.DefaultRoot(), gemini.DefaultRoot(), gemini.DefaultHistoryRoot()}
	}
	return roots
}
