package store

import (
	"path/filepath"
	"testing"
)

func TestOpenBootstrapsSchema(t *testing.T) {
	dir := t.TempDir()
	db, err := Open(filepath.Join(dir, "index.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	if !db.SchemaRebuilt {
		t.Fatalf("expected first-open SchemaRebuilt=true")
	}

	var count int
	if err := db.QueryRow("SELECT count(*) FROM projects").Scan(&count); err != nil {
		t.Fatalf("projects table missing: %v", err)
	}
	if _, err := db.Exec("INSERT INTO message_fts(message_id, session_id, provider, category, content) VALUES ('m1','s1','claude','user','hello world')"); err != nil {
		t.Fatalf("fts insert failed: %v", err)
	}
}

func TestReopenSamePathSkipsRebuild(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "index.db")

	db1, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	db1.Close()

	db2, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer db2.Close()
	if db2.SchemaRebuilt {
		t.Fatalf("expected second open to skip rebuild")
	}
}
