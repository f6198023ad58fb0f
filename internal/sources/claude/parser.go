package claude

import (
	"encoding/json"
	"fmt"

	"github.com/sessiondex/sessiondex/internal/canon"
	"github.com/sessiondex/sessiondex/internal/jsonl"
	"github.com/sessiondex/sessiondex/internal/sources"
)

// Parser converts Claude's line-delimited transcript events into
// canonical messages.
type Parser struct{}

func NewParser() *Parser { return &Parser{} }

func (p *Parser) Provider() canon.Provider { return canon.ProviderClaude }

func (p *Parser) Parse(sessionID, filePath string) (sources.ParseResult, error) {
	r, err := jsonl.Open(filePath)
	if err != nil {
		return sources.ParseResult{}, err
	}
	defer r.Close()

	var result sources.ParseResult
	eventIndex := 0
	for {
		line, err := r.Next()
		if err != nil {
			break
		}
		idx := eventIndex
		eventIndex++

		var raw rawEntry
		if err := json.Unmarshal(line, &raw); err != nil {
			result.Diagnostics = append(result.Diagnostics, canon.Diagnostic{
				Severity: "warning", Code: canon.CodeNonObjectEvent,
				Provider: canon.ProviderClaude, SessionID: sessionID, EventIndex: &idx,
				Message: err.Error(),
			})
			continue
		}

		segments, diag := p.segmentsForEntry(raw, sessionID, idx)
		result.Diagnostics = append(result.Diagnostics, diag...)
		if raw.Type == entryAssistant {
			var am assistantMessage
			if json.Unmarshal(raw.Message, &am) == nil && am.Model != "" {
				result.Models = appendUnique(result.Models, am.Model)
			}
		}
		if len(segments) == 0 {
			continue
		}
		sources.PromoteEditSegments(segments)
		msgs := sources.Finalize(canon.ProviderClaude, raw.UUID, raw.Timestamp, segments)
		for _, m := range msgs {
			if err := m.Validate(); err != nil {
				result.Diagnostics = append(result.Diagnostics, canon.Diagnostic{
					Severity: "error", Code: canon.CodeInvalidCanonicalMessage,
					Provider: canon.ProviderClaude, SessionID: sessionID, EventIndex: &idx,
					Message: err.Error(),
				})
				continue
			}
			result.Messages = append(result.Messages, m)
		}
	}

	if len(result.Messages) == 0 {
		result.Diagnostics = append(result.Diagnostics, canon.Diagnostic{
			Severity: "warning", Code: canon.CodeNoEventsFound,
			Provider: canon.ProviderClaude, SessionID: sessionID,
			Message: "no canonical messages produced",
		})
	}
	return result, nil
}

func (p *Parser) segmentsForEntry(raw rawEntry, sessionID string, idx int) ([]sources.Segment, []canon.Diagnostic) {
	switch raw.Type {
	case entryUser:
		var um userMessage
		if err := json.Unmarshal(raw.Message, &um); err != nil {
			return nil, []canon.Diagnostic{{
				Severity: "warning", Code: canon.CodeUnknownEventShape,
				Provider: canon.ProviderClaude, SessionID: sessionID, EventIndex: &idx,
				Message: err.Error(),
			}}
		}
		return segmentsFromUser(um), nil

	case entryAssistant:
		var am assistantMessage
		if err := json.Unmarshal(raw.Message, &am); err != nil {
			return nil, []canon.Diagnostic{{
				Severity: "warning", Code: canon.CodeUnknownEventShape,
				Provider: canon.ProviderClaude, SessionID: sessionID, EventIndex: &idx,
				Message: err.Error(),
			}}
		}
		return segmentsFromAssistant(am), nil

	case entrySummary:
		return nil, nil

	default:
		return []sources.Segment{{
			Category: canon.CategorySystem,
			Content:  string(raw.Message),
		}}, []canon.Diagnostic{{
			Severity: "warning", Code: canon.CodeUnknownEventShape,
			Provider: canon.ProviderClaude, SessionID: sessionID, EventIndex: &idx,
			Message: fmt.Sprintf("unknown entry type %q", raw.Type),
		}}
	}
}

func segmentsFromUser(um userMessage) []sources.Segment {
	if um.Content.text != "" {
		return []sources.Segment{{Category: canon.CategoryUser, Content: um.Content.text}}
	}
	var out []sources.Segment
	for _, b := range um.Content.blocks {
		switch b.Type {
		case "text":
			if b.Text != "" {
				out = append(out, sources.Segment{Category: canon.CategoryUser, Content: b.Text})
			}
		case "tool_result":
			out = append(out, sources.Segment{Category: canon.CategoryToolResult, Content: string(b.Content)})
		}
	}
	return out
}

func segmentsFromAssistant(am assistantMessage) []sources.Segment {
	var out []sources.Segment
	first := true
	attach := func(seg sources.Segment) sources.Segment {
		if first && am.Usage != nil {
			in, outTok := am.Usage.InputTokens, am.Usage.OutputTokens
			seg.TokenInput = &in
			seg.TokenOutput = &outTok
			first = false
		}
		return seg
	}
	for _, b := range am.Content {
		switch b.Type {
		case "thinking":
			out = append(out, attach(sources.Segment{Category: canon.CategoryThinking, Content: b.Thinking}))
		case "text":
			out = append(out, attach(sources.Segment{Category: canon.CategoryAssistant, Content: b.Text}))
		case "tool_use":
			payload := fmt.Sprintf(`{"name":%q,"input":%s}`, b.Name, orNullRaw(b.Input))
			out = append(out, attach(sources.Segment{Category: canon.CategoryToolUse, Content: payload}))
		}
	}
	return out
}

func orNullRaw(raw json.RawMessage) string {
	if len(raw) == 0 {
		return "null"
	}
	return string(raw)
}

func appendUnique(list []string, v string) []string {
	for _, existing := range list {
		if existing == v {
			return list
		}
	}
	return append(list, v)
}
