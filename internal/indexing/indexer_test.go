package indexing

import (
	"database/sql"
	"os"
	"path/filepath"
	"testing"

	"github.com/sessiondex/sessiondex/internal/canon"
	"github.com/sessiondex/sessiondex/internal/sources"
	"github.com/sessiondex/sessiondex/internal/sources/claude"
	"github.com/sessiondex/sessiondex/internal/store"
)

const claudeTranscript = `{"type":"user","uuid":"u-1","timestamp":"2026-01-01T00:00:00Z","message":{"role":"user","content":"hello there"}}
{"type":"assistant","uuid":"a-1","timestamp":"2026-01-01T00:00:01Z","message":{"role":"assistant","model":"claude-opus","content":[{"type":"text","text":"hi"}],"usage":{"input_tokens":3,"output_tokens":5}}}
`

// stubDiscoverer lets the test control exactly which files are
// "discovered" without touching a real Claude home directory.
type stubDiscoverer struct {
	files []sources.DiscoveredFile
}

func (s *stubDiscoverer) Provider() canon.Provider { return canon.ProviderClaude }
func (s *stubDiscoverer) Discover() ([]sources.DiscoveredFile, error) {
	return s.files, nil
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func discoveredFor(t *testing.T, path string) sources.DiscoveredFile {
	t.Helper()
	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	return sources.DiscoveredFile{
		FilePath:        path,
		Provider:        canon.ProviderClaude,
		ProjectPath:     "/home/dev/project",
		ProjectName:     "project",
		SessionIdentity: "claude:session-1",
		SourceSessionID: "session-1",
		FileSize:        info.Size(),
		FileMtimeMs:     info.ModTime().UnixMilli(),
	}
}

func newOpts(dbPath string, files []sources.DiscoveredFile) Options {
	return Options{
		DBPath:       dbPath,
		Discoverers:  []sources.Discoverer{&stubDiscoverer{files: files}},
		Parsers:      map[canon.Provider]sources.Parser{canon.ProviderClaude: claude.NewParser()},
	}
}

func TestRunIncrementalIndexesDiscoveredFile(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "session-1.jsonl", claudeTranscript)
	dbPath := filepath.Join(dir, "index.db")

	result, err := RunIncremental(newOpts(dbPath, []sources.DiscoveredFile{discoveredFor(t, path)}))
	if err != nil {
		t.Fatal(err)
	}
	if result.DiscoveredFiles != 1 || result.IndexedFiles != 1 || result.SkippedFiles != 0 {
		t.Fatalf("unexpected result: %+v", result)
	}

	db, err := store.Open(dbPath)
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	var sessionCount, messageCount int
	if err := db.QueryRow("SELECT count(*) FROM sessions").Scan(&sessionCount); err != nil {
		t.Fatal(err)
	}
	if sessionCount != 1 {
		t.Fatalf("expected 1 session, got %d", sessionCount)
	}
	if err := db.QueryRow("SELECT count(*) FROM messages").Scan(&messageCount); err != nil {
		t.Fatal(err)
	}
	if messageCount != 2 {
		t.Fatalf("expected 2 messages, got %d", messageCount)
	}

	var modelNames string
	if err := db.QueryRow("SELECT model_names FROM sessions").Scan(&modelNames); err != nil {
		t.Fatal(err)
	}
	if modelNames != "claude-opus" {
		t.Fatalf("expected model_names=claude-opus, got %q", modelNames)
	}

	var durationMs int64
	if err := db.QueryRow("SELECT duration_ms FROM sessions").Scan(&durationMs); err != nil {
		t.Fatal(err)
	}
	if durationMs != 1000 {
		t.Fatalf("expected duration_ms=1000 (1s between the two messages), got %d", durationMs)
	}
}

// TestAggregateDurationMsIsNullWhenTimestampsMissingOrEqual validates
// that duration_ms is only ever written when startedAt/endedAt actually
// bracket a nonzero span, per the session data model's "or null" rule.
func TestAggregateDurationMsIsNullWhenTimestampsMissingOrEqual(t *testing.T) {
	dir := t.TempDir()
	transcript := `{"type":"user","uuid":"u-1","timestamp":"2026-01-01T00:00:00Z","message":{"role":"user","content":"hi"}}
`
	path := writeFile(t, dir, "session-1.jsonl", transcript)
	dbPath := filepath.Join(dir, "index.db")

	if _, err := RunIncremental(newOpts(dbPath, []sources.DiscoveredFile{discoveredFor(t, path)})); err != nil {
		t.Fatal(err)
	}

	db, err := store.Open(dbPath)
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	var durationMs sql.NullInt64
	if err := db.QueryRow("SELECT duration_ms FROM sessions").Scan(&durationMs); err != nil {
		t.Fatal(err)
	}
	if durationMs.Valid {
		t.Fatalf("expected duration_ms NULL for a single-message session, got %d", durationMs.Int64)
	}
}

// TestRunIncrementalIsIdempotent validates property P5: reindexing an
// unchanged file neither duplicates rows nor re-parses it.
func TestRunIncrementalIsIdempotent(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "session-1.jsonl", claudeTranscript)
	dbPath := filepath.Join(dir, "index.db")
	df := discoveredFor(t, path)

	if _, err := RunIncremental(newOpts(dbPath, []sources.DiscoveredFile{df})); err != nil {
		t.Fatal(err)
	}
	result, err := RunIncremental(newOpts(dbPath, []sources.DiscoveredFile{df}))
	if err != nil {
		t.Fatal(err)
	}
	if result.SkippedFiles != 1 || result.IndexedFiles != 0 {
		t.Fatalf("expected second run to skip unchanged file, got %+v", result)
	}

	db, err := store.Open(dbPath)
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()
	var messageCount int
	if err := db.QueryRow("SELECT count(*) FROM messages").Scan(&messageCount); err != nil {
		t.Fatal(err)
	}
	if messageCount != 2 {
		t.Fatalf("expected messages to stay at 2 after idempotent rerun, got %d", messageCount)
	}
}

// TestRunIncrementalForceReindexReparsesUnchangedFile validates P6: a
// forced reindex reparses every discovered file regardless of the
// size/mtime/session signature matching what's on record.
func TestRunIncrementalForceReindexReparsesUnchangedFile(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "session-1.jsonl", claudeTranscript)
	dbPath := filepath.Join(dir, "index.db")
	df := discoveredFor(t, path)

	if _, err := RunIncremental(newOpts(dbPath, []sources.DiscoveredFile{df})); err != nil {
		t.Fatal(err)
	}

	opts := newOpts(dbPath, []sources.DiscoveredFile{df})
	opts.ForceReindex = true
	result, err := RunIncremental(opts)
	if err != nil {
		t.Fatal(err)
	}
	if result.IndexedFiles != 1 || result.SkippedFiles != 0 {
		t.Fatalf("expected force reindex to reparse the file, got %+v", result)
	}
}

// TestRunIncrementalRemovesDeletedFileAndOrphanedProject validates P7:
// a file that disappears from discovery has its session removed, and a
// project left with no remaining sessions is swept.
func TestRunIncrementalRemovesDeletedFileAndOrphanedProject(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "session-1.jsonl", claudeTranscript)
	dbPath := filepath.Join(dir, "index.db")
	df := discoveredFor(t, path)

	if _, err := RunIncremental(newOpts(dbPath, []sources.DiscoveredFile{df})); err != nil {
		t.Fatal(err)
	}

	result, err := RunIncremental(newOpts(dbPath, nil))
	if err != nil {
		t.Fatal(err)
	}
	if result.RemovedFiles != 1 {
		t.Fatalf("expected 1 removed file, got %+v", result)
	}

	db, err := store.Open(dbPath)
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	var sessionCount, projectCount int
	db.QueryRow("SELECT count(*) FROM sessions").Scan(&sessionCount)
	db.QueryRow("SELECT count(*) FROM projects").Scan(&projectCount)
	if sessionCount != 0 {
		t.Fatalf("expected sessions table empty after removal, got %d", sessionCount)
	}
	if projectCount != 0 {
		t.Fatalf("expected orphaned project swept, got %d", projectCount)
	}
}
