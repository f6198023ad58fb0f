package claude

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/sessiondex/sessiondex/internal/canon"
)

func writeTemp(t *testing.T, contents string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "session.jsonl")
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestParseSplitAssistantMessage(t *testing.T) {
	line := `{"type":"assistant","uuid":"c-a-1","timestamp":"2026-01-01T00:00:00Z","message":` +
		`{"role":"assistant","model":"claude","usage":{"input_tokens":10,"output_tokens":5},` +
		`"content":[{"type":"thinking","thinking":"let me think"},` +
		`{"type":"text","text":"here is the answer"},` +
		`{"type":"tool_use","id":"t1","name":"Read","input":{"path":"/a"}}]}}` + "\n"
	path := writeTemp(t, line)

	p := NewParser()
	res, err := p.Parse("sess-1", path)
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Messages) != 3 {
		t.Fatalf("expected 3 messages, got %d: %+v", len(res.Messages), res.Messages)
	}

	wantIDs := []string{"c-a-1", "c-a-1#2", "c-a-1#3"}
	wantCats := []canon.Category{canon.CategoryThinking, canon.CategoryAssistant, canon.CategoryToolUse}
	for i, m := range res.Messages {
		if m.SourceID != wantIDs[i] {
			t.Errorf("message %d: want id %s, got %s", i, wantIDs[i], m.SourceID)
		}
		if m.Category != wantCats[i] {
			t.Errorf("message %d: want category %s, got %s", i, wantCats[i], m.Category)
		}
	}

	if res.Messages[0].TokenInput == nil || *res.Messages[0].TokenInput != 10 {
		t.Errorf("expected token usage on first split message")
	}
	for i := 1; i < len(res.Messages); i++ {
		if res.Messages[i].TokenInput != nil || res.Messages[i].TokenOutput != nil {
			t.Errorf("message %d: expected nil token usage, got input=%v output=%v", i, res.Messages[i].TokenInput, res.Messages[i].TokenOutput)
		}
	}
}

func TestParseUserPlainString(t *testing.T) {
	line := `{"type":"user","uuid":"u-1","timestamp":"2026-01-01T00:00:00Z","message":{"role":"user","content":"hello there"}}` + "\n"
	path := writeTemp(t, line)

	p := NewParser()
	res, err := p.Parse("sess-1", path)
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Messages) != 1 || res.Messages[0].Content != "hello there" {
		t.Fatalf("unexpected result: %+v", res.Messages)
	}
}

func TestParseUnknownEntryTypeEmitsSystemDiagnostic(t *testing.T) {
	line := `{"type":"file-history-snapshot","uuid":"f-1","timestamp":"2026-01-01T00:00:00Z","message":{"foo":"bar"}}` + "\n"
	path := writeTemp(t, line)

	p := NewParser()
	res, err := p.Parse("sess-1", path)
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Messages) != 1 || res.Messages[0].Category != canon.CategorySystem {
		t.Fatalf("expected one system message, got %+v", res.Messages)
	}
	found := false
	for _, d := range res.Diagnostics {
		if d.Code == canon.CodeUnknownEventShape {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected unknown_event_shape diagnostic")
	}
}
