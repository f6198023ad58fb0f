// Package canon defines the canonical message model shared by every
// provider parser, the defensive readers used to extract it from
// untyped event payloads, and the category alias table.
package canon

import "fmt"

// Provider identifies which coding-assistant produced a transcript.
type Provider string

const (
	ProviderClaude Provider = "claude"
	ProviderCodex  Provider = "codex"
	ProviderGemini Provider = "gemini"
)

// Valid reports whether p is one of the three known providers.
func (p Provider) Valid() bool {
	switch p {
	case ProviderClaude, ProviderCodex, ProviderGemini:
		return true
	default:
		return false
	}
}

// Category classifies a canonical message's role in the conversation.
type Category string

const (
	CategoryUser      Category = "user"
	CategoryAssistant Category = "assistant"
	CategoryToolUse   Category = "tool_use"
	CategoryToolEdit  Category = "tool_edit"
	CategoryToolResult Category = "tool_result"
	CategoryThinking  Category = "thinking"
	CategorySystem    Category = "system"
)

// categoryAliases maps legacy/alternate spellings to their canonical
// form. Applied on ingress, before any message is persisted.
var categoryAliases = map[Category]Category{
	"tool_call": CategoryToolUse,
	"tool-edit": CategoryToolEdit,
}

// NormalizeCategory resolves aliases and validates the result. Unknown
// categories are rejected so callers can emit
// parser.invalid_canonical_message diagnostics.
func NormalizeCategory(c Category) (Category, bool) {
	if alias, ok := categoryAliases[c]; ok {
		c = alias
	}
	switch c {
	case CategoryUser, CategoryAssistant, CategoryToolUse, CategoryToolEdit,
		CategoryToolResult, CategoryThinking, CategorySystem:
		return c, true
	default:
		return c, false
	}
}

// DurationSource records whether an operation duration was reported by
// the provider directly or derived from timestamps.
type DurationSource string

const (
	DurationNative  DurationSource = "native"
	DurationDerived DurationSource = "derived"
)

// DurationConfidence qualifies a derived/native duration's reliability.
type DurationConfidence string

const (
	ConfidenceHigh DurationConfidence = "high"
	ConfidenceLow  DurationConfidence = "low"
)

// Message is the canonical, provider-independent unit of search and
// display. SourceID is the id assigned by the provider parser: the
// first segment of a source event inherits the raw source id, later
// segments append "#2", "#3", and so on.
type Message struct {
	SourceID  string
	Provider  Provider
	Category  Category
	Content   string
	CreatedAt string // ISO-8601 UTC

	TokenInput  *int
	TokenOutput *int

	OperationDurationMs         *int64
	OperationDurationSource     *DurationSource
	OperationDurationConfidence *DurationConfidence
}

// Validate enforces the canonical-message invariants: known provider,
// known (post-alias) category, non-empty content, non-empty source id.
// Errors are wrapped so callers can attach parser.invalid_canonical_message.
func (m Message) Validate() error {
	if !m.Provider.Valid() {
		return fmt.Errorf("canon: unknown provider %q", m.Provider)
	}
	if _, ok := NormalizeCategory(m.Category); !ok {
		return fmt.Errorf("canon: unknown category %q", m.Category)
	}
	if m.SourceID == "" {
		return fmt.Errorf("canon: empty source id")
	}
	if m.CreatedAt == "" {
		return fmt.Errorf("canon: empty createdAt")
	}
	return nil
}

// Diagnostic records a parser-level observation that must never abort a
// run.
type Diagnostic struct {
	Severity   string // "warning" | "error"
	Code       string
	Provider   Provider
	SessionID  string
	EventIndex *int
	Message    string
}

// Known diagnostic codes.
const (
	CodeNonObjectEvent         = "parser.non_object_event"
	CodeUnknownEventShape      = "parser.unknown_event_shape"
	CodeInvalidCanonicalMessage = "parser.invalid_canonical_message"
	CodeNoEventsFound          = "parser.no_events_found"
)
