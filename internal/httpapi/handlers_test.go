package httpapi

import (
	"encoding/json"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sessiondex/sessiondex/internal/bookmarks"
	"github.com/sessiondex/sessiondex/internal/canon"
	"github.com/sessiondex/sessiondex/internal/config"
	"github.com/sessiondex/sessiondex/internal/ipc"
	"github.com/sessiondex/sessiondex/internal/query"
	"github.com/sessiondex/sessiondex/internal/runner"
	"github.com/sessiondex/sessiondex/internal/sources"
	"github.com/sessiondex/sessiondex/internal/sources/claude"
	"github.com/sessiondex/sessiondex/internal/store"
)

// newSeededTestServer builds a Server over a database pre-populated
// with one project, one session, and one message, so bookmark-toggle
// scope checks have a real row to match (or deliberately mismatch)
// against.
func newSeededTestServer(t *testing.T) *Server {
	t.Helper()
	dir := t.TempDir()

	db, err := store.Open(filepath.Join(dir, "index.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	now := store.Now()
	if _, err := db.Exec(`INSERT INTO projects (id, provider, name, path, created_at, updated_at) VALUES (?,?,?,?,?,?)`,
		"project_1", "claude", "demo", "/home/dev/demo", now, now); err != nil {
		t.Fatalf("seed project: %v", err)
	}
	if _, err := db.Exec(`INSERT INTO sessions (id, project_id, provider, file_path, model_names, started_at, ended_at, message_count, token_input_total, token_output_total)
		VALUES (?,?,?,?,?,?,?,?,?,?)`,
		"session_1", "project_1", "claude", "/tmp/s1.jsonl", "claude-opus", "2026-01-01T00:00:00Z", "2026-01-01T00:00:05Z", 1, 3, 5); err != nil {
		t.Fatalf("seed session: %v", err)
	}
	if _, err := db.Exec(`INSERT INTO messages (id, source_id, session_id, provider, category, content, created_at) VALUES (?,?,?,?,?,?,?)`,
		"msg_1", "m1", "session_1", "claude", "user", "please fix the parser bug", "2026-01-01T00:00:00Z"); err != nil {
		t.Fatalf("seed message: %v", err)
	}

	bm, err := bookmarks.Open(filepath.Join(dir, "bookmarks.db"))
	if err != nil {
		t.Fatalf("open bookmarks: %v", err)
	}
	t.Cleanup(func() { bm.Close() })

	r := runner.New(runner.Options{
		DBPath:      filepath.Join(dir, "index.db"),
		Discoverers: []sources.Discoverer{noopDiscoverer{}},
		Parsers:     map[canon.Provider]sources.Parser{canon.ProviderClaude: claude.NewParser()},
	})

	cfg := config.Default()
	cfg.DataDir = dir

	return NewServer(query.NewService(db), bm, r, cfg)
}

func TestProjectsListChannelRoundTrip(t *testing.T) {
	s := newTestServer(t)

	body := strings.NewReader(`{}`)
	req := httptest.NewRequest("POST", "/api/projects-list", body)
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)

	if rec.Code != 200 {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var resp ipc.ProjectsListResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Projects == nil {
		t.Errorf("expected a non-nil (possibly empty) projects slice")
	}
}

func TestAppGetHealthChannelRoundTrip(t *testing.T) {
	s := newTestServer(t)

	req := httptest.NewRequest("POST", "/api/app-getHealth", strings.NewReader(`{}`))
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)

	if rec.Code != 200 {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var resp ipc.HealthResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Status != "ok" {
		t.Errorf("status = %q, want ok", resp.Status)
	}
}

func TestValidationErrorMapsToBadRequest(t *testing.T) {
	s := newTestServer(t)

	// An empty sessions:getDetail body leaves pageSize at 0, outside
	// [1,500]; it should fail validation rather than panic or 500.
	req := httptest.NewRequest("POST", "/api/sessions-getDetail", strings.NewReader(`{}`))
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)

	if rec.Code != 400 {
		t.Fatalf("status = %d, want 400, body = %s", rec.Code, rec.Body.String())
	}
	var resp ErrorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode error response: %v", err)
	}
	if resp.Error != "validation_error" {
		t.Errorf("error = %q, want validation_error", resp.Error)
	}
}

func postBookmarksToggle(t *testing.T, s *Server, body string) (int, ipc.BookmarksToggleResponse) {
	t.Helper()
	req := httptest.NewRequest("POST", "/api/bookmarks-toggle", strings.NewReader(body))
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)
	if rec.Code != 200 {
		return rec.Code, ipc.BookmarksToggleResponse{}
	}
	var resp ipc.BookmarksToggleResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v, body = %s", err, rec.Body.String())
	}
	return rec.Code, resp
}

func TestBookmarksToggleSucceedsOnMatchingQuadruple(t *testing.T) {
	s := newSeededTestServer(t)

	code, resp := postBookmarksToggle(t, s, `{"projectId":"project_1","sessionId":"session_1","messageId":"msg_1","messageSourceId":"m1"}`)
	if code != 200 {
		t.Fatalf("status = %d", code)
	}
	if !resp.Bookmarked {
		t.Fatalf("expected bookmarked=true on first toggle, got %+v", resp)
	}
}

func TestBookmarksToggleRejectsMismatchedProjectID(t *testing.T) {
	s := newSeededTestServer(t)

	code, resp := postBookmarksToggle(t, s, `{"projectId":"wrong_project","sessionId":"session_1","messageId":"msg_1","messageSourceId":"m1"}`)
	if code != 200 {
		t.Fatalf("status = %d", code)
	}
	if resp.Bookmarked {
		t.Fatalf("expected bookmarked=false for mismatched projectId, got %+v", resp)
	}
}

func TestBookmarksToggleRejectsMismatchedSessionID(t *testing.T) {
	s := newSeededTestServer(t)

	code, resp := postBookmarksToggle(t, s, `{"projectId":"project_1","sessionId":"wrong_session","messageId":"msg_1","messageSourceId":"m1"}`)
	if code != 200 {
		t.Fatalf("status = %d", code)
	}
	if resp.Bookmarked {
		t.Fatalf("expected bookmarked=false for mismatched sessionId, got %+v", resp)
	}
}

func TestBookmarksToggleRejectsMismatchedMessageSourceID(t *testing.T) {
	s := newSeededTestServer(t)

	code, resp := postBookmarksToggle(t, s, `{"projectId":"project_1","sessionId":"session_1","messageId":"msg_1","messageSourceId":"not-m1"}`)
	if code != 200 {
		t.Fatalf("status = %d", code)
	}
	if resp.Bookmarked {
		t.Fatalf("expected bookmarked=false for mismatched messageSourceId, got %+v", resp)
	}
}

func TestBookmarksToggleReturnsFalseOnMissingRows(t *testing.T) {
	s := newSeededTestServer(t)

	code, resp := postBookmarksToggle(t, s, `{"projectId":"project_1","sessionId":"session_1","messageId":"does-not-exist","messageSourceId":"m1"}`)
	if code != 200 {
		t.Fatalf("status = %d", code)
	}
	if resp.Bookmarked {
		t.Fatalf("expected bookmarked=false for a missing message, got %+v", resp)
	}
}

func TestMalformedJSONBodyIsRejected(t *testing.T) {
	s := newTestServer(t)

	req := httptest.NewRequest("POST", "/api/projects-list", strings.NewReader(`{not json`))
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)

	if rec.Code != 400 {
		t.Fatalf("status = %d, want 400, body = %s", rec.Code, rec.Body.String())
	}
}
