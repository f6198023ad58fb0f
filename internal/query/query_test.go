package query

import (
	"path/filepath"
	"testing"

	"github.com/sessiondex/sessiondex/internal/canon"
	"github.com/sessiondex/sessiondex/internal/store"
)

func seedDB(t *testing.T) *store.DB {
	t.Helper()
	dir := t.TempDir()
	db, err := store.Open(filepath.Join(dir, "index.db"))
	if err != nil {
		t.Fatal(err)
	}

	now := store.Now()
	if _, err := db.Exec(`INSERT INTO projects (id, provider, name, path, created_at, updated_at) VALUES (?,?,?,?,?,?)`,
		"project_1", "claude", "demo", "/home/dev/demo", now, now); err != nil {
		t.Fatal(err)
	}
	if _, err := db.Exec(`INSERT INTO sessions (id, project_id, provider, file_path, model_names, started_at, ended_at, message_count, token_input_total, token_output_total)
		VALUES (?,?,?,?,?,?,?,?,?,?)`,
		"session_1", "project_1", "claude", "/tmp/s1.jsonl", "claude-opus", "2026-01-01T00:00:00Z", "2026-01-01T00:00:05Z", 3, 3, 5); err != nil {
		t.Fatal(err)
	}

	messages := []struct {
		id, sourceID, category, content, createdAt string
	}{
		{"msg_1", "m1", "user", "please fix the parser bug", "2026-01-01T00:00:00Z"},
		{"msg_2", "m2", "assistant", "looking at the parser now", "2026-01-01T00:00:02Z"},
		{"msg_3", "m3", "tool_use", `{"name":"edit"}`, "2026-01-01T00:00:05Z"},
	}
	for _, m := range messages {
		if _, err := db.Exec(`INSERT INTO messages (id, source_id, session_id, provider, category, content, created_at) VALUES (?,?,?,?,?,?,?)`,
			m.id, m.sourceID, "session_1", "claude", m.category, m.content, m.createdAt); err != nil {
			t.Fatal(err)
		}
		if _, err := db.Exec(`INSERT INTO message_fts (message_id, session_id, provider, category, content) VALUES (?,?,?,?,?)`,
			m.id, "session_1", "claude", m.category, m.content); err != nil {
			t.Fatal(err)
		}
	}
	return db
}

func TestListProjects(t *testing.T) {
	db := seedDB(t)
	defer db.Close()
	svc := NewService(db)

	projects, err := svc.ListProjects(nil, "")
	if err != nil {
		t.Fatal(err)
	}
	if len(projects) != 1 || projects[0].SessionCount != 1 {
		t.Fatalf("unexpected projects: %+v", projects)
	}

	empty, err := svc.ListProjects([]canon.Provider{}, "")
	if err != nil {
		t.Fatal(err)
	}
	if len(empty) != 0 {
		t.Fatalf("expected empty providers to return no projects, got %d", len(empty))
	}
}

func TestListSessionsComputesTitle(t *testing.T) {
	db := seedDB(t)
	defer db.Close()
	svc := NewService(db)

	sessions, err := svc.ListSessions("project_1")
	if err != nil {
		t.Fatal(err)
	}
	if len(sessions) != 1 {
		t.Fatalf("expected 1 session, got %d", len(sessions))
	}
	if sessions[0].Title != "please fix the parser bug" {
		t.Fatalf("expected title from first user message, got %q", sessions[0].Title)
	}
}

func TestGetSessionDetailFacetInvariant(t *testing.T) {
	db := seedDB(t)
	defer db.Close()
	svc := NewService(db)

	withAll, err := svc.GetSessionDetail(DetailParams{SessionID: "session_1", PageSize: 50, SortDirection: "asc"})
	if err != nil {
		t.Fatal(err)
	}
	withFilter, err := svc.GetSessionDetail(DetailParams{
		SessionID: "session_1", PageSize: 50, SortDirection: "asc",
		Categories: []canon.Category{canon.CategoryUser}, CategoriesSet: true,
	})
	if err != nil {
		t.Fatal(err)
	}

	if len(withFilter.Messages) != 1 {
		t.Fatalf("expected category filter to narrow to 1 message, got %d", len(withFilter.Messages))
	}
	if withAll.CategoryCounts["user"] != withFilter.CategoryCounts["user"] {
		t.Fatalf("facet invariant violated: %v vs %v", withAll.CategoryCounts, withFilter.CategoryCounts)
	}
}

func TestGetSessionDetailFocusTargeting(t *testing.T) {
	db := seedDB(t)
	defer db.Close()
	svc := NewService(db)

	detail, err := svc.GetSessionDetail(DetailParams{
		SessionID: "session_1", Page: 0, PageSize: 1, SortDirection: "asc", FocusSourceID: "m3",
	})
	if err != nil {
		t.Fatal(err)
	}
	if detail.FocusIndex == nil || *detail.FocusIndex != detail.TotalCount-1 {
		t.Fatalf("expected focusIndex=totalCount-1, got %+v (total=%d)", detail.FocusIndex, detail.TotalCount)
	}
	if detail.Page != detail.TotalCount-1 {
		t.Fatalf("expected page=totalCount-1 at pageSize=1, got %d", detail.Page)
	}
	if len(detail.Messages) != 1 {
		t.Fatalf("expected exactly 1 message at pageSize=1, got %d", len(detail.Messages))
	}
}

func TestSearchProviderFilterAndEscaping(t *testing.T) {
	db := seedDB(t)
	defer db.Close()
	svc := NewService(db)

	none, err := svc.Search(SearchParams{Query: "parser", Providers: []canon.Provider{canon.ProviderCodex}})
	if err != nil {
		t.Fatal(err)
	}
	if none.TotalCount != 0 {
		t.Fatalf("expected 0 results filtering to codex, got %d", none.TotalCount)
	}

	some, err := svc.Search(SearchParams{Query: "parser", Providers: []canon.Provider{canon.ProviderClaude}})
	if err != nil {
		t.Fatal(err)
	}
	if some.TotalCount == 0 || len(some.Results) == 0 {
		t.Fatalf("expected >=1 claude result, got %+v", some)
	}

	unbalanced, err := svc.Search(SearchParams{Query: `parser"bug`})
	if err != nil {
		t.Fatalf("unbalanced quote must not raise an error: %v", err)
	}
	_ = unbalanced
}

func TestEscapeFTSQueryEscapesQuotes(t *testing.T) {
	got := EscapeFTSQuery(`foo"bar baz`)
	want := `"foo""bar" "baz"`
	if got != want {
		t.Fatalf("got %q want %q", got, want)
	}
}
