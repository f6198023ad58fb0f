package runner

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sessiondex/sessiondex/internal/canon"
	"github.com/sessiondex/sessiondex/internal/sources"
	"github.com/sessiondex/sessiondex/internal/sources/claude"
)

func TestWatchCoalescesBurstIntoOneEnqueue(t *testing.T) {
	dir := t.TempDir()
	root := filepath.Join(dir, "watched")
	if err := os.MkdirAll(root, 0o755); err != nil {
		t.Fatalf("mkdir root: %v", err)
	}

	r := New(Options{
		DBPath:      filepath.Join(dir, "index.db"),
		Discoverers: []sources.Discoverer{emptyDiscoverer{}},
		Parsers:     map[canon.Provider]sources.Parser{canon.ProviderClaude: claude.NewParser()},
	})

	stop := r.Watch(WatchOptions{Roots: []string{root}, Debounce: 50 * time.Millisecond})
	defer stop()

	file := filepath.Join(root, "session.jsonl")
	for i := 0; i < 5; i++ {
		if err := os.WriteFile(file, []byte("{}"), 0o644); err != nil {
			t.Fatalf("write %d: %v", i, err)
		}
		time.Sleep(5 * time.Millisecond)
	}

	r.mu.Lock()
	before := r.nextID
	r.mu.Unlock()
	if before != 0 {
		t.Fatalf("expected no job enqueued before debounce fires, got nextID=%d", before)
	}

	time.Sleep(300 * time.Millisecond)

	r.mu.Lock()
	after := r.nextID
	r.mu.Unlock()
	if after != 1 {
		t.Fatalf("expected exactly one coalesced job, got nextID=%d", after)
	}
}

func TestWatchReturnsNoopStopOnMissingRoots(t *testing.T) {
	dir := t.TempDir()
	r := New(Options{
		DBPath:      filepath.Join(dir, "index.db"),
		Discoverers: []sources.Discoverer{emptyDiscoverer{}},
		Parsers:     map[canon.Provider]sources.Parser{canon.ProviderClaude: claude.NewParser()},
	})

	stop := r.Watch(WatchOptions{Roots: []string{filepath.Join(dir, "does-not-exist")}})
	stop()
}
