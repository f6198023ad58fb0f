package claude

import "encoding/json"

// entryType is the discriminant on the top-level "type" field of a
// Claude transcript line.
type entryType string

const (
	entryUser      entryType = "user"
	entryAssistant entryType = "assistant"
	entrySummary   entryType = "summary"
)

// rawEntry is the superset of fields that appear across Claude
// transcript line shapes. Only the fields relevant to canonicalization
// are modeled; anything else is ignored by the decoder.
type rawEntry struct {
	Type      entryType       `json:"type"`
	UUID      string          `json:"uuid"`
	Timestamp string          `json:"timestamp"`
	Message   json.RawMessage `json:"message"`
}

// userContent is a Claude user message's content, which is either a
// plain string or an array of content blocks.
type userContent struct {
	text   string
	blocks []contentBlock
}

func (c *userContent) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		c.text = s
		return nil
	}
	var blocks []contentBlock
	if err := json.Unmarshal(data, &blocks); err != nil {
		return err
	}
	c.blocks = blocks
	return nil
}

type userMessage struct {
	Role    string      `json:"role"`
	Content userContent `json:"content"`
}

type usage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

type assistantMessage struct {
	Role    string         `json:"role"`
	Model   string         `json:"model"`
	Content []contentBlock `json:"content"`
	Usage   *usage         `json:"usage"`
}

// contentBlock is one multi-modal content unit within a user or
// assistant message.
type contentBlock struct {
	Type      string          `json:"type"`
	Text      string          `json:"text,omitempty"`
	Thinking  string          `json:"thinking,omitempty"`
	Name      string          `json:"name,omitempty"`
	ID        string          `json:"id,omitempty"`
	Input     json.RawMessage `json:"input,omitempty"`
	ToolUseID string          `json:"tool_use_id,omitempty"`
	Content   json.RawMessage `json:"content,omitempty"`
}
