package sources

import (
	"fmt"

	"github.com/sessiondex/sessiondex/internal/canon"
)

// Segment is one provider-agnostic content unit extracted from a
// source event, before ids are assigned and consecutive duplicates are
// collapsed. One source event may yield several segments (e.g. an
// assistant turn containing thinking + text + a tool call).
type Segment struct {
	Category canon.Category
	Content  string

	TokenInput  *int
	TokenOutput *int

	OperationDurationMs         *int64
	OperationDurationSource     *canon.DurationSource
	OperationDurationConfidence *canon.DurationConfidence
}

// Finalize implements spec steps 4–5 of the common parser pipeline:
// dedupe consecutive segments by (category, content), then emit one
// canonical message per remaining segment in order, with the first
// segment inheriting sourceID verbatim and later segments appending
// "#2", "#3", .... Token usage is attached only to the first emitted
// message, taken from the first remaining segment; token fields on
// later segments are dropped.
func Finalize(provider canon.Provider, sourceID, createdAt string, segments []Segment) []canon.Message {
	deduped := dedupeConsecutive(segments)
	if len(deduped) == 0 {
		return nil
	}

	out := make([]canon.Message, 0, len(deduped))
	for i, seg := range deduped {
		id := sourceID
		if i > 0 {
			id = fmt.Sprintf("%s#%d", sourceID, i+1)
		}
		msg := canon.Message{
			SourceID:  id,
			Provider:  provider,
			Category:  seg.Category,
			Content:   seg.Content,
			CreatedAt: createdAt,
		}
		if i == 0 {
			msg.TokenInput = seg.TokenInput
			msg.TokenOutput = seg.TokenOutput
		}
		msg.OperationDurationMs = seg.OperationDurationMs
		msg.OperationDurationSource = seg.OperationDurationSource
		msg.OperationDurationConfidence = seg.OperationDurationConfidence
		out = append(out, msg)
	}
	return out
}

func dedupeConsecutive(segments []Segment) []Segment {
	out := make([]Segment, 0, len(segments))
	for _, seg := range segments {
		if n := len(out); n > 0 && out[n-1].Category == seg.Category && out[n-1].Content == seg.Content {
			continue
		}
		out = append(out, seg)
	}
	return out
}

// editHints are substrings in a serialized tool_use payload that
// promote it from tool_use to tool_edit (spec step 6).
var editHints = []string{"edit", "write", "apply_patch", "str_replace", "multi_edit"}

// PromoteEditSegments walks segments in place, reclassifying tool_use
// segments whose Content (the serialized tool call, name+args) matches
// one of the edit-operation hints.
func PromoteEditSegments(segments []Segment) {
	for i := range segments {
		if segments[i].Category != canon.CategoryToolUse {
			continue
		}
		if containsAnyFold(segments[i].Content, editHints) {
			segments[i].Category = canon.CategoryToolEdit
		}
	}
}

func containsAnyFold(s string, hints []string) bool {
	lower := canon.LowerString(s)
	for _, h := range hints {
		if indexOf(lower, h) >= 0 {
			return true
		}
	}
	return false
}

func indexOf(haystack, needle string) int {
	n, m := len(haystack), len(needle)
	if m == 0 {
		return 0
	}
	for i := 0; i+m <= n; i++ {
		if haystack[i:i+m] == needle {
			return i
		}
	}
	return -1
}
