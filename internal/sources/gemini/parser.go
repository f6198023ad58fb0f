package gemini

import (
	"encoding/json"
	"os"
	"strings"

	"github.com/sessiondex/sessiondex/internal/canon"
	"github.com/sessiondex/sessiondex/internal/sources"
)

// document is the single-JSON-document shape of a Gemini chat file:
// one object holding an ordered messages array, rather than a
// line-delimited stream.
type document struct {
	Messages []message `json:"messages"`
}

type message struct {
	Role      string          `json:"role"`
	Timestamp string          `json:"timestamp"`
	Content   messageContent  `json:"content"`
	ToolCalls []toolCall      `json:"toolCalls,omitempty"`
	Thoughts  []thought       `json:"thoughts,omitempty"`
	Tokens    *tokens         `json:"tokens,omitempty"`
}

// messageContent is either a plain string or a structured
// {text, functionCall, functionResponse} object.
type messageContent struct {
	text string
	rich *richContent
}

type richContent struct {
	Text             string           `json:"text"`
	FunctionCall     *functionCall    `json:"functionCall"`
	FunctionResponse *functionResponse `json:"functionResponse"`
}

type functionCall struct {
	Name string          `json:"name"`
	Args json.RawMessage `json:"args"`
}

type functionResponse struct {
	Name     string          `json:"name"`
	Response json.RawMessage `json:"response"`
}

type toolCall struct {
	Name string          `json:"name"`
	Args json.RawMessage `json:"args"`
}

type thought struct {
	Text string `json:"text"`
}

type tokens struct {
	Input  int `json:"input"`
	Output int `json:"output"`
}

func (c *messageContent) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		c.text = s
		return nil
	}
	var rc richContent
	if err := json.Unmarshal(data, &rc); err != nil {
		return err
	}
	c.rich = &rc
	return nil
}

// Parser converts Gemini's single-document session format into
// canonical messages.
type Parser struct{}

func NewParser() *Parser { return &Parser{} }

func (p *Parser) Provider() canon.Provider { return canon.ProviderGemini }

func (p *Parser) Parse(sessionID, filePath string) (sources.ParseResult, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return sources.ParseResult{}, err
	}

	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		idx := 0
		return sources.ParseResult{
			Diagnostics: []canon.Diagnostic{{
				Severity: "error", Code: canon.CodeNonObjectEvent,
				Provider: canon.ProviderGemini, SessionID: sessionID, EventIndex: &idx,
				Message: err.Error(),
			}},
		}, nil
	}

	var result sources.ParseResult
	for i, m := range doc.Messages {
		idx := i
		segments := segmentsForMessage(m)
		if len(segments) == 0 {
			result.Diagnostics = append(result.Diagnostics, canon.Diagnostic{
				Severity: "warning", Code: canon.CodeUnknownEventShape,
				Provider: canon.ProviderGemini, SessionID: sessionID, EventIndex: &idx,
				Message: "message produced no segments",
			})
			continue
		}
		sources.PromoteEditSegments(segments)
		sourceID := sessionID + ":" + itoa(i)
		msgs := sources.Finalize(canon.ProviderGemini, sourceID, m.Timestamp, segments)
		for _, cm := range msgs {
			if err := cm.Validate(); err != nil {
				result.Diagnostics = append(result.Diagnostics, canon.Diagnostic{
					Severity: "error", Code: canon.CodeInvalidCanonicalMessage,
					Provider: canon.ProviderGemini, SessionID: sessionID, EventIndex: &idx, Message: err.Error(),
				})
				continue
			}
			result.Messages = append(result.Messages, cm)
		}
	}

	if len(result.Messages) == 0 {
		result.Diagnostics = append(result.Diagnostics, canon.Diagnostic{
			Severity: "warning", Code: canon.CodeNoEventsFound,
			Provider: canon.ProviderGemini, SessionID: sessionID, Message: "no canonical messages produced",
		})
	}
	return result, nil
}

func segmentsForMessage(m message) []sources.Segment {
	var out []sources.Segment

	first := true
	attach := func(seg sources.Segment) sources.Segment {
		if first && m.Tokens != nil {
			in, outTok := m.Tokens.Input, m.Tokens.Output
			seg.TokenInput = &in
			seg.TokenOutput = &outTok
			first = false
		}
		return seg
	}

	for _, th := range m.Thoughts {
		if th.Text != "" {
			out = append(out, attach(sources.Segment{Category: canon.CategoryThinking, Content: th.Text}))
		}
	}

	baseCategory := canon.CategoryAssistant
	if strings.EqualFold(m.Role, "user") {
		baseCategory = canon.CategoryUser
	}

	switch {
	case m.Content.text != "":
		out = append(out, attach(sources.Segment{Category: baseCategory, Content: m.Content.text}))
	case m.Content.rich != nil:
		rc := m.Content.rich
		if rc.Text != "" {
			out = append(out, attach(sources.Segment{Category: baseCategory, Content: rc.Text}))
		}
		if rc.FunctionCall != nil {
			payload := marshalToolCall(rc.FunctionCall.Name, rc.FunctionCall.Args)
			out = append(out, attach(sources.Segment{Category: canon.CategoryToolUse, Content: payload}))
		}
		if rc.FunctionResponse != nil {
			out = append(out, attach(sources.Segment{Category: canon.CategoryToolResult, Content: string(rc.FunctionResponse.Response)}))
		}
	}

	for _, tc := range m.ToolCalls {
		payload := marshalToolCall(tc.Name, tc.Args)
		out = append(out, attach(sources.Segment{Category: canon.CategoryToolUse, Content: payload}))
	}

	return out
}

func marshalToolCall(name string, args json.RawMessage) string {
	argsStr := "null"
	if len(args) > 0 {
		argsStr = string(args)
	}
	return `{"name":"` + name + `","args":` + argsStr + `}`
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	return string(buf[i:])
}
