package codex

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/sessiondex/sessiondex/internal/canon"
	"github.com/sessiondex/sessiondex/internal/jsonl"
	"github.com/sessiondex/sessiondex/internal/sources"
)

// logLine is the envelope every Codex transcript line shares.
type logLine struct {
	Timestamp string          `json:"timestamp"`
	Type      string          `json:"type"` // "session_meta" | "event_msg" | "response_item"
	Payload   json.RawMessage `json:"payload"`
}

// Parser converts Codex's mixed event_msg/response_item stream into
// canonical messages, deduplicating the event_msg/response_item pairs
// Codex commonly emits for the same logical turn.
type Parser struct{}

func NewParser() *Parser { return &Parser{} }

func (p *Parser) Provider() canon.Provider { return canon.ProviderCodex }

func (p *Parser) Parse(sessionID, filePath string) (sources.ParseResult, error) {
	r, err := jsonl.Open(filePath)
	if err != nil {
		return sources.ParseResult{}, err
	}
	defer r.Close()

	var result sources.ParseResult
	var pending *parsedEntry
	eventIndex := 0

	emit := func(pe parsedEntry, idx int) {
		if pe.category == "" {
			return
		}
		seg := []sources.Segment{{
			Category:                    pe.category,
			Content:                     pe.content,
			OperationDurationMs:         pe.durationMs,
			OperationDurationSource:     pe.durationSource,
			OperationDurationConfidence: pe.durationConfidence,
		}}
		sources.PromoteEditSegments(seg)
		msgs := sources.Finalize(canon.ProviderCodex, composeUUID(sessionID, idx, pe.kind), pe.timestamp, seg)
		for _, m := range msgs {
			if err := m.Validate(); err != nil {
				result.Diagnostics = append(result.Diagnostics, canon.Diagnostic{
					Severity: "error", Code: canon.CodeInvalidCanonicalMessage,
					Provider: canon.ProviderCodex, SessionID: sessionID, EventIndex: &idx, Message: err.Error(),
				})
				continue
			}
			result.Messages = append(result.Messages, m)
		}
	}

	for {
		line, err := r.Next()
		if err != nil {
			break
		}
		idx := eventIndex
		eventIndex++

		var ll logLine
		if err := json.Unmarshal(line, &ll); err != nil {
			result.Diagnostics = append(result.Diagnostics, canon.Diagnostic{
				Severity: "warning", Code: canon.CodeNonObjectEvent,
				Provider: canon.ProviderCodex, SessionID: sessionID, EventIndex: &idx, Message: err.Error(),
			})
			continue
		}

		switch ll.Type {
		case "session_meta":
			if model := sessionMetaModel(ll.Payload); model != "" {
				result.Models = appendUnique(result.Models, model)
			}
			continue
		case "event_msg":
			pe := convertEventMsg(ll)
			if pe == nil {
				continue
			}
			if pending != nil {
				emit(*pending, idx-1)
			}
			pending = pe
		case "response_item":
			pe := convertResponseItem(ll)
			if pe == nil {
				continue
			}
			if pending != nil && isDuplicateEventResponsePair(*pending, *pe) {
				emit(*pe, idx)
				pending = nil
				continue
			}
			if pending != nil {
				emit(*pending, idx-1)
				pending = nil
			}
			emit(*pe, idx)
		default:
			result.Diagnostics = append(result.Diagnostics, canon.Diagnostic{
				Severity: "warning", Code: canon.CodeUnknownEventShape,
				Provider: canon.ProviderCodex, SessionID: sessionID, EventIndex: &idx,
				Message: fmt.Sprintf("unknown line type %q", ll.Type),
			})
		}
	}
	if pending != nil {
		emit(*pending, eventIndex)
	}

	if len(result.Messages) == 0 {
		result.Diagnostics = append(result.Diagnostics, canon.Diagnostic{
			Severity: "warning", Code: canon.CodeNoEventsFound,
			Provider: canon.ProviderCodex, SessionID: sessionID, Message: "no canonical messages produced",
		})
	}
	return result, nil
}

type parsedEntry struct {
	kind                        string
	category                    canon.Category
	content                     string
	timestamp                   string
	durationMs                  *int64
	durationSource              *canon.DurationSource
	durationConfidence          *canon.DurationConfidence
}

func convertEventMsg(ll logLine) *parsedEntry {
	var env struct {
		Type    string `json:"type"`
		Message string `json:"message"`
		Text    string `json:"text"`
	}
	if err := json.Unmarshal(ll.Payload, &env); err != nil {
		return nil
	}
	text := env.Message
	if text == "" {
		text = env.Text
	}
	var cat canon.Category
	switch env.Type {
	case "user_message":
		cat = canon.CategoryUser
	case "agent_message":
		cat = canon.CategoryAssistant
	case "agent_reasoning":
		cat = canon.CategoryThinking
	default:
		return nil
	}
	return &parsedEntry{kind: "event:" + env.Type, category: cat, content: text, timestamp: ll.Timestamp}
}

func convertResponseItem(ll logLine) *parsedEntry {
	var env struct {
		Type    string          `json:"type"`
		Role    string          `json:"role"`
		Content json.RawMessage `json:"content"`
		Summary json.RawMessage `json:"summary"`
		Text    string          `json:"text"`
		Name    string          `json:"name"`
		CallID  string          `json:"call_id"`
		Arguments string        `json:"arguments"`
		Input     string        `json:"input"`
		Output    json.RawMessage `json:"output"`
	}
	if err := json.Unmarshal(ll.Payload, &env); err != nil {
		return nil
	}

	switch env.Type {
	case "message":
		text := extractMessageText(env.Content)
		cat := canon.CategoryAssistant
		if env.Role == "user" {
			cat = canon.CategoryUser
		}
		return &parsedEntry{kind: "response:message", category: cat, content: text, timestamp: ll.Timestamp}

	case "reasoning":
		text := extractReasoningText(env.Summary, env.Text)
		return &parsedEntry{kind: "response:reasoning", category: canon.CategoryThinking, content: text, timestamp: ll.Timestamp}

	case "function_call", "custom_tool_call":
		input := parseToolInput(env.Arguments, env.Input)
		payload := fmt.Sprintf(`{"name":%q,"call_id":%q,"input":%s}`, env.Name, env.CallID, input)
		return &parsedEntry{kind: "response:tool_call:" + env.CallID, category: canon.CategoryToolUse, content: payload, timestamp: ll.Timestamp}

	case "function_call_output", "custom_tool_call_output":
		normalized, durMs, durSrc, durConf := normalizeToolOutput(env.Output)
		return &parsedEntry{
			kind: "response:tool_output:" + env.CallID, category: canon.CategoryToolResult, content: normalized,
			timestamp: ll.Timestamp, durationMs: durMs, durationSource: durSrc, durationConfidence: durConf,
		}

	default:
		return nil
	}
}

func extractMessageText(content json.RawMessage) string {
	var blocks []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	}
	if err := json.Unmarshal(content, &blocks); err != nil {
		var s string
		if json.Unmarshal(content, &s) == nil {
			return s
		}
		return ""
	}
	var b strings.Builder
	for _, blk := range blocks {
		switch blk.Type {
		case "text", "input_text", "output_text":
			if b.Len() > 0 {
				b.WriteByte('\n')
			}
			b.WriteString(blk.Text)
		}
	}
	return b.String()
}

func extractReasoningText(summary json.RawMessage, fallback string) string {
	var items []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	}
	if err := json.Unmarshal(summary, &items); err == nil {
		var b strings.Builder
		for _, it := range items {
			if it.Type == "summary_text" {
				if b.Len() > 0 {
					b.WriteByte('\n')
				}
				b.WriteString(it.Text)
			}
		}
		if b.Len() > 0 {
			return b.String()
		}
	}
	return fallback
}

func parseToolInput(arguments, input string) string {
	if arguments != "" {
		var v any
		if json.Unmarshal([]byte(arguments), &v) == nil {
			return arguments
		}
	}
	if input != "" {
		b, _ := json.Marshal(input)
		return string(b)
	}
	return "null"
}

// normalizeToolOutput unwraps a Codex tool output, which is either a
// raw value or a JSON-object/string wrapper of the form
// {"output": "<json-string-or-plain-text>"}. It also looks for a
// native duration reported by the provider: check a top-level numeric
// duration_seconds/durationSeconds field, then the same two field
// names one level inside an unwrapped "output" string.
func normalizeToolOutput(raw json.RawMessage) (content string, durMs *int64, src *canon.DurationSource, conf *canon.DurationConfidence) {
	if len(raw) == 0 {
		return "", nil, nil, nil
	}

	var obj map[string]any
	if err := json.Unmarshal(raw, &obj); err == nil {
		if d, ok := durationSeconds(obj); ok {
			return marshalOrRaw(raw), toMs(d), nativeSrc(), highConf()
		}
		if outStr, ok := obj["output"].(string); ok {
			var inner map[string]any
			if json.Unmarshal([]byte(outStr), &inner) == nil {
				if d, ok := durationSeconds(inner); ok {
					return outStr, toMs(d), nativeSrc(), highConf()
				}
			}
			return outStr, nil, nil, nil
		}
	}

	var s string
	if json.Unmarshal(raw, &s) == nil {
		return s, nil, nil, nil
	}

	return string(raw), nil, nil, nil
}

func durationSeconds(m map[string]any) (float64, bool) {
	for _, key := range []string{"duration_seconds", "durationSeconds"} {
		if v, ok := m[key]; ok {
			if f, ok := v.(float64); ok {
				return f, true
			}
			if s, ok := v.(string); ok {
				if f, err := strconv.ParseFloat(s, 64); err == nil {
					return f, true
				}
			}
		}
	}
	return 0, false
}

func toMs(seconds float64) *int64 {
	ms := int64(seconds * 1000)
	return &ms
}

func nativeSrc() *canon.DurationSource {
	v := canon.DurationNative
	return &v
}

func highConf() *canon.DurationConfidence {
	v := canon.ConfidenceHigh
	return &v
}

func marshalOrRaw(raw json.RawMessage) string { return string(raw) }

// isDuplicateEventResponsePair reports whether a pending event_msg and a
// following response_item describe the same logical turn (Codex emits
// both for user/assistant messages); when true, only the response_item
// (the richer of the two) is kept.
func isDuplicateEventResponsePair(pending, next parsedEntry) bool {
	if pending.category != next.category {
		return false
	}
	return comparableEntryText(pending.content) == comparableEntryText(next.content)
}

func comparableEntryText(s string) string {
	return strings.TrimSpace(s)
}

func composeUUID(sessionID string, lineNo int, kind string) string {
	return fmt.Sprintf("%s:%d:%s", sessionID, lineNo, kind)
}

// sessionMetaModel reads the "model" field Codex writes into a
// session_meta line's payload, if present. Defensive: an older Codex
// release or a hand-edited transcript may omit it entirely.
func sessionMetaModel(payload json.RawMessage) string {
	var v any
	if err := json.Unmarshal(payload, &v); err != nil {
		return ""
	}
	rec, ok := canon.AsRecord(v)
	if !ok {
		return ""
	}
	return canon.ReadString(rec, "model")
}

func appendUnique(list []string, v string) []string {
	for _, existing := range list {
		if existing == v {
			return list
		}
	}
	return append(list, v)
}
