package codex

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/sessiondex/sessiondex/internal/canon"
)

func writeTemp(t *testing.T, lines ...string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "session.jsonl")
	content := ""
	for _, l := range lines {
		content += l + "\n"
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestParseDedupesEventAndResponseItem(t *testing.T) {
	path := writeTemp(t,
		`{"timestamp":"2026-01-01T00:00:00Z","type":"event_msg","payload":{"type":"agent_message","message":"hi there"}}`,
		`{"timestamp":"2026-01-01T00:00:01Z","type":"response_item","payload":{"type":"message","role":"assistant","content":[{"type":"output_text","text":"hi there"}]}}`,
	)
	p := NewParser()
	res, err := p.Parse("sess-1", path)
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Messages) != 1 {
		t.Fatalf("expected deduped single message, got %d: %+v", len(res.Messages), res.Messages)
	}
	if res.Messages[0].Category != canon.CategoryAssistant {
		t.Fatalf("expected assistant category, got %s", res.Messages[0].Category)
	}
}

func TestParseNativeDuration(t *testing.T) {
	path := writeTemp(t,
		`{"timestamp":"2026-01-01T00:00:00Z","type":"response_item","payload":{"type":"function_call","name":"shell","call_id":"c1","arguments":"{\"cmd\":\"ls\"}"}}`,
		`{"timestamp":"2026-01-01T00:00:02Z","type":"response_item","payload":{"type":"function_call_output","call_id":"c1","output":{"duration_seconds":2.5,"content":"ok"}}}`,
	)
	p := NewParser()
	res, err := p.Parse("sess-1", path)
	if err != nil {
		t.Fatal(err)
	}
	var result *canon.Message
	for i := range res.Messages {
		if res.Messages[i].Category == canon.CategoryToolResult {
			result = &res.Messages[i]
		}
	}
	if result == nil {
		t.Fatalf("expected a tool_result message, got %+v", res.Messages)
	}
	if result.OperationDurationMs == nil || *result.OperationDurationMs != 2500 {
		t.Fatalf("expected 2500ms native duration, got %+v", result.OperationDurationMs)
	}
	if result.OperationDurationSource == nil || *result.OperationDurationSource != canon.DurationNative {
		t.Fatalf("expected native duration source")
	}
}

func TestParseCollectsModelFromSessionMeta(t *testing.T) {
	path := writeTemp(t,
		`{"timestamp":"2026-01-01T00:00:00Z","type":"session_meta","payload":{"id":"sess-1","model":"o4-mini"}}`,
		`{"timestamp":"2026-01-01T00:00:01Z","type":"event_msg","payload":{"type":"user_message","message":"hi"}}`,
	)
	p := NewParser()
	res, err := p.Parse("sess-1", path)
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Models) != 1 || res.Models[0] != "o4-mini" {
		t.Fatalf("expected Models = [o4-mini], got %+v", res.Models)
	}
}

func TestParseIgnoresSessionMetaWithoutModel(t *testing.T) {
	path := writeTemp(t,
		`{"timestamp":"2026-01-01T00:00:00Z","type":"session_meta","payload":{"id":"sess-1"}}`,
		`{"timestamp":"2026-01-01T00:00:01Z","type":"event_msg","payload":{"type":"user_message","message":"hi"}}`,
	)
	p := NewParser()
	res, err := p.Parse("sess-1", path)
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Models) != 0 {
		t.Fatalf("expected no models, got %+v", res.Models)
	}
}

func TestParseNonDuplicateEventAndResponseBothKept(t *testing.T) {
	path := writeTemp(t,
		`{"timestamp":"2026-01-01T00:00:00Z","type":"event_msg","payload":{"type":"user_message","message":"first question"}}`,
		`{"timestamp":"2026-01-01T00:00:01Z","type":"response_item","payload":{"type":"message","role":"assistant","content":[{"type":"output_text","text":"an answer"}]}}`,
	)
	p := NewParser()
	res, err := p.Parse("sess-1", path)
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Messages) != 2 {
		t.Fatalf("expected both messages kept, got %d: %+v", len(res.Messages), res.Messages)
	}
}
