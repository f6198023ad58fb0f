package ipcserver

import (
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/sessiondex/sessiondex/internal/bookmarks"
	"github.com/sessiondex/sessiondex/internal/canon"
	"github.com/sessiondex/sessiondex/internal/config"
	"github.com/sessiondex/sessiondex/internal/httpapi"
	"github.com/sessiondex/sessiondex/internal/ipc"
	"github.com/sessiondex/sessiondex/internal/query"
	"github.com/sessiondex/sessiondex/internal/runner"
	"github.com/sessiondex/sessiondex/internal/sources"
	"github.com/sessiondex/sessiondex/internal/sources/claude"
	"github.com/sessiondex/sessiondex/internal/store"
)

type noopDiscoverer struct{}

func (noopDiscoverer) Provider() canon.Provider                    { return canon.ProviderClaude }
func (noopDiscoverer) Discover() ([]sources.DiscoveredFile, error) { return nil, nil }

func startTestServer(t *testing.T) string {
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
	hs := httpapi.NewServer(query.NewService(db), bm, r, cfg)

	socketPath := DefaultSocketPath(dir)
	srv := New(socketPath, hs)
	go srv.ListenAndServe()
	t.Cleanup(func() { srv.Close() })

	for i := 0; i < 50; i++ {
		if Available(socketPath) {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}
	return socketPath
}

func TestCallRoundTripsHealthChannel(t *testing.T) {
	socketPath := startTestServer(t)

	payload, err := Call(socketPath, ipc.ChannelAppGetHealth, struct{}{})
	if err != nil {
		t.Fatalf("Call: %v", err)
	}
	var resp ipc.HealthResponse
	if err := json.Unmarshal(payload, &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Status != "ok" {
		t.Errorf("status = %q, want ok", resp.Status)
	}
}

func TestCallReportsValidationErrors(t *testing.T) {
	socketPath := startTestServer(t)

	_, err := Call(socketPath, ipc.ChannelSessionsGetDetail, map[string]any{})
	if err == nil {
		t.Fatal("expected a validation error, got nil")
	}
}

func TestAvailableReflectsListenerState(t *testing.T) {
	dir := t.TempDir()
	socketPath := DefaultSocketPath(dir)
	if Available(socketPath) {
		t.Fatal("expected Available to be false before any listener starts")
	}
}
