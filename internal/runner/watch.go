package runner

import (
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/sessiondex/sessiondex/internal/applog"
	"github.com/sessiondex/sessiondex/internal/metrics"
)

// WatchOptions configures the optional filesystem-watch trigger.
type WatchOptions struct {
	Roots    []string // provider roots to watch, recursively
	Debounce time.Duration
}

// Watch starts an fsnotify watcher over opts.Roots. Writes, creates, and
// renames of .jsonl session files are coalesced: however many events
// arrive within the debounce window, only one enqueue(force=false) call
// follows, so a burst of writes from an active assistant session
// produces one refresh job rather than one per event. Newly created
// directories are added to the watch as they appear, since a provider
// may create a project's directory only once its first session starts.
//
// Watch returns a stop func; the caller is responsible for calling it
// on shutdown. A watcher construction failure is logged and Watch
// returns a no-op stop func rather than failing daemon startup.
func (r *Runner) Watch(opts WatchOptions) func() {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		applog.Log.Warnf("runner: filesystem watch disabled, fsnotify init failed: %v", err)
		return func() {}
	}

	debounce := opts.Debounce
	if debounce <= 0 {
		debounce = 2 * time.Second
	}

	for _, root := range opts.Roots {
		if root == "" {
			continue
		}
		addTreeToWatch(fw, root)
	}

	done := make(chan struct{})
	go r.watchLoop(fw, debounce, done)

	return func() {
		close(done)
		fw.Close()
	}
}

// addTreeToWatch walks root and adds every directory it finds to fw.
// Missing roots (a provider never installed on this machine) are
// silently skipped.
func addTreeToWatch(fw *fsnotify.Watcher, root string) {
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil // unreadable subtree; keep walking siblings
		}
		if d.IsDir() {
			if addErr := fw.Add(path); addErr != nil {
				applog.Log.Debugf("runner: watch add %s: %v", path, addErr)
			}
		}
		return nil
	})
	if err != nil {
		applog.Log.Debugf("runner: walk %s: %v", root, err)
	}
}

func (r *Runner) watchLoop(fw *fsnotify.Watcher, debounce time.Duration, done chan struct{}) {
	var timer *time.Timer
	fire := func() {
		metrics.WatchEventsTotal.WithLabelValues("coalesced").Inc()
		r.Enqueue(false)
	}

	for {
		select {
		case event, ok := <-fw.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename) == 0 {
				continue
			}
			if event.Op&fsnotify.Create != 0 {
				if info, err := statIsDir(event.Name); err == nil && info {
					addTreeToWatch(fw, event.Name)
				}
			}
			if !strings.HasSuffix(event.Name, ".jsonl") {
				continue
			}

			provider := providerForPath(event.Name)
			metrics.WatchEventsTotal.WithLabelValues(provider).Inc()

			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(debounce, fire)

		case err, ok := <-fw.Errors:
			if !ok {
				return
			}
			applog.Log.Warnf("runner: fsnotify error: %v", err)

		case <-done:
			if timer != nil {
				timer.Stop()
			}
			return
		}
	}
}

func statIsDir(path string) (bool, error) {
	info, err := os.Stat(path)
	if err != nil {
		return false, err
	}
	return info.IsDir(), nil
}

// providerForPath guesses a provider label for watch-event metrics from
// well-known path fragments; "unknown" otherwise. This is best-effort
// labeling only, never used for indexing decisions.
func providerForPath(path string) string {
	switch {
	case strings.Contains(path, ".claude"):
		return "claude"
	case strings.Contains(path, ".codex"):
		return "codex"
	case strings.Contains(path, ".gemini"):
		return "gemini"
	default:
		return "unknown"
	}
}
