package bookmarks

import (
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/sessiondex/sessiondex/internal/canon"

	_ "modernc.org/sqlite"
)

func openIndexFixture(t *testing.T, dir string) (string, func(projectExists, messageExists bool)) {
	t.Helper()
	path := filepath.Join(dir, "index.db")
	db, err := sql.Open("sqlite", path)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })

	for _, stmt := range []string{
		`CREATE TABLE projects (id TEXT PRIMARY KEY)`,
		`CREATE TABLE messages (id TEXT PRIMARY KEY, session_id TEXT NOT NULL)`,
	} {
		if _, err := db.Exec(stmt); err != nil {
			t.Fatal(err)
		}
	}

	set := func(projectExists, messageExists bool) {
		db.Exec(`DELETE FROM projects`)
		db.Exec(`DELETE FROM messages`)
		if projectExists {
			db.Exec(`INSERT INTO projects (id) VALUES ('project_1')`)
		}
		if messageExists {
			db.Exec(`INSERT INTO messages (id, session_id) VALUES ('msg_1', 'session_1')`)
		}
	}
	return path, set
}

func seedBookmark(t *testing.T, db *DB) {
	t.Helper()
	err := db.UpsertBookmark(Snapshot{
		ProjectID: "project_1", MessageID: "msg_1", SessionID: "session_1",
		MessageSourceID: "m1", Provider: canon.ProviderClaude, SessionTitle: "demo",
		MessageCategory: canon.CategoryUser, MessageContent: "hello", MessageCreated: "2026-01-01T00:00:00Z",
	}, "2026-01-01T00:00:00Z")
	if err != nil {
		t.Fatal(err)
	}
}

func TestUpsertAndRemoveBookmark(t *testing.T) {
	dir := t.TempDir()
	db, err := Open(filepath.Join(dir, "index.db.bookmarks"))
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	seedBookmark(t, db)
	rows, err := db.ListProjectBookmarks("project_1", "")
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 1 {
		t.Fatalf("expected 1 bookmark, got %d", len(rows))
	}

	removed, err := db.RemoveBookmark("project_1", "msg_1")
	if err != nil {
		t.Fatal(err)
	}
	if !removed {
		t.Fatal("expected removal to report true")
	}
	removedAgain, err := db.RemoveBookmark("project_1", "msg_1")
	if err != nil {
		t.Fatal(err)
	}
	if removedAgain {
		t.Fatal("expected second removal to report false")
	}
}

func TestReconcileMarksOrphanedAndRestores(t *testing.T) {
	dir := t.TempDir()
	indexPath, setFixture := openIndexFixture(t, dir)
	db, err := Open(filepath.Join(dir, "index.db.bookmarks"))
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()
	seedBookmark(t, db)

	// P7: message removed -> orphaned.
	setFixture(true, false)
	result, err := db.ReconcileWithIndexedData(indexPath, "2026-01-02T00:00:00Z")
	if err != nil {
		t.Fatal(err)
	}
	if result.MarkedOrphaned != 1 {
		t.Fatalf("expected 1 marked orphaned, got %+v", result)
	}
	rows, _ := db.ListProjectBookmarks("project_1", "")
	if !rows[0].IsOrphaned {
		t.Fatal("expected bookmark to be orphaned")
	}

	// P8: message reappears -> restored.
	setFixture(true, true)
	result, err = db.ReconcileWithIndexedData(indexPath, "2026-01-03T00:00:00Z")
	if err != nil {
		t.Fatal(err)
	}
	if result.Restored != 1 {
		t.Fatalf("expected 1 restored, got %+v", result)
	}
	rows, _ = db.ListProjectBookmarks("project_1", "")
	if rows[0].IsOrphaned {
		t.Fatal("expected bookmark to be restored")
	}
}

func TestReconcileDeletesBookmarksOfMissingProjects(t *testing.T) {
	dir := t.TempDir()
	indexPath, setFixture := openIndexFixture(t, dir)
	db, err := Open(filepath.Join(dir, "index.db.bookmarks"))
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()
	seedBookmark(t, db)

	setFixture(false, false)
	result, err := db.ReconcileWithIndexedData(indexPath, "2026-01-02T00:00:00Z")
	if err != nil {
		t.Fatal(err)
	}
	if result.DeletedMissingProjects != 1 {
		t.Fatalf("expected 1 deleted, got %+v", result)
	}
	rows, _ := db.ListProjectBookmarks("project_1", "")
	if len(rows) != 0 {
		t.Fatalf("expected bookmark gone, got %d", len(rows))
	}
}

func TestToggleBookmark(t *testing.T) {
	dir := t.TempDir()
	db, err := Open(filepath.Join(dir, "index.db.bookmarks"))
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	snap := Snapshot{
		ProjectID: "project_1", MessageID: "msg_1", SessionID: "session_1",
		MessageSourceID: "m1", Provider: canon.ProviderClaude, SessionTitle: "demo",
		MessageCategory: canon.CategoryUser, MessageContent: "hello", MessageCreated: "2026-01-01T00:00:00Z",
	}

	bookmarked, err := db.ToggleBookmark(snap, "2026-01-01T00:00:00Z")
	if err != nil {
		t.Fatal(err)
	}
	if !bookmarked {
		t.Fatal("expected first toggle to bookmark")
	}

	bookmarked, err = db.ToggleBookmark(snap, "2026-01-01T00:00:01Z")
	if err != nil {
		t.Fatal(err)
	}
	if bookmarked {
		t.Fatal("expected second toggle to remove the bookmark")
	}
}
