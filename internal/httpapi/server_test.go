package httpapi

import (
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/sessiondex/sessiondex/internal/bookmarks"
	"github.com/sessiondex/sessiondex/internal/canon"
	"github.com/sessiondex/sessiondex/internal/config"
	"github.com/sessiondex/sessiondex/internal/query"
	"github.com/sessiondex/sessiondex/internal/runner"
	"github.com/sessiondex/sessiondex/internal/sources"
	"github.com/sessiondex/sessiondex/internal/sources/claude"
	"github.com/sessiondex/sessiondex/internal/store"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	dir := t.TempDir()

	db, err := store.Open(filepath.Join(dir, "index.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { db.Close() })

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

type noopDiscoverer struct{}

func (noopDiscoverer) Provider() canon.Provider                    { return canon.ProviderClaude }
func (noopDiscoverer) Discover() ([]sources.DiscoveredFile, error) { return nil, nil }

func TestDashPathConvertsColonsToDashes(t *testing.T) {
	cases := map[string]string{
		"projects:list":      "projects-list",
		"sessions:getDetail": "sessions-getDetail",
		"app:getHealth":      "app-getHealth",
		"noColonsHere":       "noColonsHere",
	}
	for in, want := range cases {
		if got := dashPath(in); got != want {
			t.Errorf("dashPath(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestHandleHealthReturnsOKStatus(t *testing.T) {
	s := newTestServer(t)

	req := httptest.NewRequest("GET", "/api/health", nil)
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)

	if rec.Code != 200 {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("content-type = %q", ct)
	}
}
