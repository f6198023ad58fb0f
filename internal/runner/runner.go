// Package runner serializes indexing refresh jobs: a FIFO queue with an
// optional one-shot worker offload and an in-process fallback, followed
// by bookmark reconciliation after every job.
package runner

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/sessiondex/sessiondex/internal/applog"
	"github.com/sessiondex/sessiondex/internal/bookmarks"
	"github.com/sessiondex/sessiondex/internal/canon"
	"github.com/sessiondex/sessiondex/internal/indexing"
	"github.com/sessiondex/sessiondex/internal/metrics"
	"github.com/sessiondex/sessiondex/internal/sources"
	"github.com/sessiondex/sessiondex/internal/store"
	"github.com/sessiondex/sessiondex/internal/sysrules"
)

// Options configures a Runner's indexing dependencies and its optional
// worker offload path.
type Options struct {
	DBPath      string
	WorkerPath  string // path to the sessiondex-worker binary; empty disables offload
	Discoverers []sources.Discoverer
	Parsers     map[canon.Provider]sources.Parser
	Rules       *sysrules.Engine
}

// WorkerJob is the JSON document written to the worker's stdin.
type WorkerJob struct {
	DBPath       string `json:"dbPath"`
	ForceReindex bool   `json:"forceReindex"`
}

// WorkerResult is the JSON document the worker writes to stdout before
// exiting.
type WorkerResult struct {
	OK      bool   `json:"ok"`
	Message string `json:"message,omitempty"`
}

type jobRequest struct {
	id    string
	force bool
	done  chan error
}

// Runner is a single-writer FIFO refresh queue. Jobs enqueued
// concurrently run strictly one at a time, in enqueue order.
type Runner struct {
	opts Options

	mu     sync.Mutex
	nextID int

	jobs chan jobRequest
}

// New starts a Runner's processing goroutine. The queue has ample
// buffering; callers are not expected to block on Enqueue.
func New(opts Options) *Runner {
	r := &Runner{opts: opts, jobs: make(chan jobRequest, 256)}
	go r.loop()
	return r
}

// Enqueue assigns a new jobId synchronously, in strict creation order,
// and schedules the refresh. The returned channel receives the job's
// terminal error (nil on success) exactly once.
func (r *Runner) Enqueue(force bool) (string, <-chan error) {
	r.mu.Lock()
	r.nextID++
	id := fmt.Sprintf("refresh-%d-%s", r.nextID, uuid.New().String())
	r.mu.Unlock()

	req := jobRequest{id: id, force: force, done: make(chan error, 1)}
	r.jobs <- req
	return id, req.done
}

func (r *Runner) loop() {
	for req := range r.jobs {
		done := applog.Log.Timed(req.id)
		err := r.runOne(req.force)
		done()
		req.done <- err
		close(req.done)
	}
}

func (r *Runner) runOne(force bool) error {
	start := time.Now()
	path, indexErr := r.runIndexing(force)
	metrics.IndexDurationSeconds.Observe(time.Since(start).Seconds())

	outcome := metrics.OutcomeOK
	if indexErr != nil {
		outcome = metrics.OutcomeError
		applog.Log.Warnf("indexing failed: %v", indexErr)
	}
	metrics.IndexRunsTotal.WithLabelValues(outcome, path).Inc()

	// Bookmark reconciliation runs after every job, regardless of the
	// indexing path taken, and never precedes the job's commit.
	reconcileErr := r.reconcileBookmarks()
	if reconcileErr != nil {
		applog.Log.Warnf("bookmark reconciliation failed: %v", reconcileErr)
	}

	if indexErr != nil {
		return indexErr
	}
	return reconcileErr
}

// runIndexing picks the worker-offload path when configured, falling
// back in-process on any worker failure, and reports which path
// actually ran for metrics.
func (r *Runner) runIndexing(force bool) (string, error) {
	if r.opts.WorkerPath != "" {
		err := r.runViaWorker(force)
		if err == nil {
			return metrics.PathWorker, nil
		}
		applog.Log.Warnf("worker offload unavailable, falling back in-process: %v", err)
	}
	return metrics.PathInProcess, r.runInProcess(force)
}

func (r *Runner) runInProcess(force bool) error {
	result, err := indexing.RunIncremental(indexing.Options{
		DBPath:       r.opts.DBPath,
		ForceReindex: force,
		Discoverers:  r.opts.Discoverers,
		Parsers:      r.opts.Parsers,
		Rules:        r.opts.Rules,
	})
	if err != nil {
		return err
	}
	metrics.IndexedFiles.Set(float64(result.IndexedFiles + result.SkippedFiles))
	return nil
}

// runViaWorker offloads one indexing run to a one-shot
// sessiondex-worker subprocess: write a WorkerJob to its stdin, read
// exactly one WorkerResult line from its stdout. Any failure here
// (spawn, timeout, non-ok result) is reported to the caller, who falls
// back to in-process indexing.
func (r *Runner) runViaWorker(force bool) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	cmd := exec.CommandContext(ctx, r.opts.WorkerPath)
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("runner: worker stdin pipe: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("runner: worker stdout pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("runner: worker start: %w", err)
	}

	job := WorkerJob{DBPath: r.opts.DBPath, ForceReindex: force}
	enc := json.NewEncoder(stdin)
	if err := enc.Encode(job); err != nil {
		stdin.Close()
		cmd.Process.Kill()
		return fmt.Errorf("runner: write worker job: %w", err)
	}
	stdin.Close()

	scanner := bufio.NewScanner(stdout)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	var result WorkerResult
	var gotResult bool
	for scanner.Scan() {
		if err := json.Unmarshal(scanner.Bytes(), &result); err == nil {
			gotResult = true
			break
		}
	}

	waitErr := cmd.Wait()
	if !gotResult {
		return fmt.Errorf("runner: worker exited without a result (wait: %v)", waitErr)
	}
	if waitErr != nil {
		return fmt.Errorf("runner: worker exited with error: %w", waitErr)
	}
	if !result.OK {
		return fmt.Errorf("runner: worker reported failure: %s", result.Message)
	}
	return nil
}

func (r *Runner) reconcileBookmarks() error {
	bmPath := bookmarks.DefaultPath(r.opts.DBPath)
	bmDB, err := bookmarks.Open(bmPath)
	if err != nil {
		return fmt.Errorf("runner: open bookmarks: %w", err)
	}
	defer bmDB.Close()

	result, err := bmDB.ReconcileWithIndexedData(r.opts.DBPath, store.Now())
	if err != nil {
		return err
	}
	metrics.BookmarksReconcileTotal.WithLabelValues("orphaned").Add(float64(result.MarkedOrphaned))
	metrics.BookmarksReconcileTotal.WithLabelValues("restored").Add(float64(result.Restored))
	metrics.BookmarksReconcileTotal.WithLabelValues("deleted").Add(float64(result.DeletedMissingProjects))
	return nil
}
