// Package sysrules reclassifies boilerplate user/assistant messages as
// system messages using per-provider regular expressions, applied after
// a provider parser has produced its canonical messages.
package sysrules

import (
	"regexp"
	"sync"

	"github.com/sessiondex/sessiondex/internal/canon"
)

// defaultPatterns are the compiled-in regexes applied when a provider
// has no override. Each targets the boilerplate a given provider
// injects into the user/assistant turn (CLI banners, tool-use system
// reminders, environment context blocks).
var defaultPatterns = map[canon.Provider][]string{
	canon.ProviderClaude: {
		`(?s)^<system-reminder>.*</system-reminder>$`,
		`(?s)^Caveat: The messages below were generated by the user while running local commands`,
	},
	canon.ProviderCodex: {
		`(?s)^<environment_context>.*</environment_context>$`,
		`(?s)^<user_instructions>.*</user_instructions>$`,
	},
	canon.ProviderGemini: {
		`(?s)^\[System\]`,
	},
}

// Engine holds compiled rules per provider. Overrides replace the
// compiled-in defaults wholesale for that provider; an empty override
// slice disables reclassification for that provider entirely.
type Engine struct {
	mu    sync.RWMutex
	rules map[canon.Provider][]*regexp.Regexp
}

// NewEngine compiles the default rule set. Use WithOverrides to layer
// per-provider regex lists (e.g. loaded from rules.toml) on top.
func NewEngine() (*Engine, error) {
	e := &Engine{rules: map[canon.Provider][]*regexp.Regexp{}}
	for p, patterns := range defaultPatterns {
		compiled, err := compileAll(patterns)
		if err != nil {
			return nil, err
		}
		e.rules[p] = compiled
	}
	return e, nil
}

// WithOverrides replaces the rule set for each provider present in
// overrides. A present-but-empty slice disables the provider's rules.
func (e *Engine) WithOverrides(overrides map[canon.Provider][]string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	for p, patterns := range overrides {
		compiled, err := compileAll(patterns)
		if err != nil {
			return err
		}
		e.rules[p] = compiled
	}
	return nil
}

func compileAll(patterns []string) ([]*regexp.Regexp, error) {
	out := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, err
		}
		out = append(out, re)
	}
	return out, nil
}

// Apply reclassifies msg's category to system in place when msg is a
// user or assistant message whose content matches one of the provider's
// configured rules. Messages of any other category are left untouched.
func (e *Engine) Apply(msg *canon.Message) {
	if msg.Category != canon.CategoryUser && msg.Category != canon.CategoryAssistant {
		return
	}
	e.mu.RLock()
	rules := e.rules[msg.Provider]
	e.mu.RUnlock()
	for _, re := range rules {
		if re.MatchString(msg.Content) {
			msg.Category = canon.CategorySystem
			return
		}
	}
}

// ApplyAll runs Apply over every message in msgs.
func (e *Engine) ApplyAll(msgs []canon.Message) {
	for i := range msgs {
		e.Apply(&msgs[i])
	}
}
