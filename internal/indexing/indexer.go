// Package indexing reconciles discovered provider session files against
// the persistent index, transactionally rewriting changed sessions and
// maintaining the full-text index.
package indexing

import (
	"database/sql"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/sessiondex/sessiondex/internal/applog"
	"github.com/sessiondex/sessiondex/internal/canon"
	"github.com/sessiondex/sessiondex/internal/ident"
	"github.com/sessiondex/sessiondex/internal/sources"
	"github.com/sessiondex/sessiondex/internal/store"
	"github.com/sessiondex/sessiondex/internal/sysrules"
)

// Options parametrizes one run of the incremental indexer.
type Options struct {
	DBPath       string
	ForceReindex bool
	Discoverers  []sources.Discoverer
	Parsers      map[canon.Provider]sources.Parser
	Rules        *sysrules.Engine
}

// Result reports what one run of RunIncremental did, mirroring the
// runIncrementalIndexing contract.
type Result struct {
	DiscoveredFiles int
	IndexedFiles    int
	SkippedFiles    int
	RemovedFiles    int
	SchemaRebuilt   bool
	Warnings        int
	Errors          int
}

type indexedFileRow struct {
	Provider        string
	SessionIdentity string
	FileSize        int64
	FileMtimeMs     int64
}

// RunIncremental executes one reconciliation pass: discover files,
// diff against the indexed_files table, transactionally rewrite
// changed sessions, and sweep orphaned projects.
func RunIncremental(opts Options) (Result, error) {
	db, err := store.Open(opts.DBPath)
	if err != nil {
		return Result{}, fmt.Errorf("indexing: open db: %w", err)
	}
	defer db.Close()

	var result Result
	result.SchemaRebuilt = db.SchemaRebuilt

	if opts.ForceReindex && !db.SchemaRebuilt {
		if err := db.ClearAll(); err != nil {
			return result, fmt.Errorf("indexing: force clear: %w", err)
		}
	}

	indexed, err := loadIndexedFiles(db)
	if err != nil {
		return result, err
	}
	existingSessions, err := loadSessionFilePaths(db)
	if err != nil {
		return result, err
	}

	discovered, discoveryWarnings := discoverAll(opts.Discoverers)
	result.Warnings += discoveryWarnings
	result.DiscoveredFiles = len(discovered)

	discoveredByPath := make(map[string]sources.DiscoveredFile, len(discovered))
	for _, f := range discovered {
		discoveredByPath[f.FilePath] = f
	}

	// Step 4: remove indexed files no longer discovered.
	for filePath, row := range indexed {
		if _, ok := discoveredByPath[filePath]; ok {
			continue
		}
		if err := removeFile(db, filePath); err != nil {
			applog.Log.Warnf("remove stale file %s: %v", filePath, err)
			result.Errors++
			continue
		}
		_ = row
		result.RemovedFiles++
	}

	// Step 5: reconcile each discovered file.
	for _, f := range discovered {
		sessionID := ident.Session(string(f.Provider), f.SessionIdentity)

		if !opts.ForceReindex {
			if row, ok := indexed[f.FilePath]; ok &&
				row.FileSize == f.FileSize && row.FileMtimeMs == f.FileMtimeMs &&
				row.SessionIdentity == f.SessionIdentity {
				if _, hasSession := existingSessions[f.FilePath]; hasSession {
					result.SkippedFiles++
					continue
				}
			}
		}

		parser, ok := opts.Parsers[f.Provider]
		if !ok {
			applog.Log.Warnf("no parser registered for provider %s", f.Provider)
			result.Errors++
			continue
		}

		parsed, err := parser.Parse(sessionID, f.FilePath)
		if err != nil {
			applog.Log.Warnf("parse failed for %s: %v", f.FilePath, err)
			result.Errors++
			continue
		}
		if opts.Rules != nil {
			opts.Rules.ApplyAll(parsed.Messages)
		}
		for _, d := range parsed.Diagnostics {
			if d.Severity == "error" {
				result.Errors++
			} else {
				result.Warnings++
			}
		}

		if err := writeSession(db, f, sessionID, parsed); err != nil {
			applog.Log.Warnf("write session failed for %s: %v", f.FilePath, err)
			result.Errors++
			continue
		}
		result.IndexedFiles++
	}

	if err := sweepOrphanProjects(db); err != nil {
		return result, fmt.Errorf("indexing: sweep projects: %w", err)
	}

	return result, nil
}

// discoverAll runs every provider's Discover concurrently; a single slow
// or unresponsive filesystem root (a stale network mount, a huge
// project tree) shouldn't serialize behind the other two providers.
func discoverAll(discoverers []sources.Discoverer) ([]sources.DiscoveredFile, int) {
	var (
		g        errgroup.Group
		mu       sync.Mutex
		all      []sources.DiscoveredFile
		warnings int
	)

	for _, d := range discoverers {
		d := d
		g.Go(func() error {
			files, err := d.Discover()
			if err != nil {
				applog.Log.Warnf("discovery failed for %s: %v", d.Provider(), err)
				mu.Lock()
				warnings++
				mu.Unlock()
				return nil
			}
			mu.Lock()
			all = append(all, files...)
			mu.Unlock()
			return nil
		})
	}
	g.Wait()

	return all, warnings
}

func loadIndexedFiles(db *store.DB) (map[string]indexedFileRow, error) {
	rows, err := db.Query(`SELECT file_path, provider, session_identity, file_size, file_mtime_ms FROM indexed_files`)
	if err != nil {
		return nil, fmt.Errorf("indexing: load indexed_files: %w", err)
	}
	defer rows.Close()

	out := make(map[string]indexedFileRow)
	for rows.Next() {
		var path string
		var row indexedFileRow
		if err := rows.Scan(&path, &row.Provider, &row.SessionIdentity, &row.FileSize, &row.FileMtimeMs); err != nil {
			return nil, err
		}
		out[path] = row
	}
	return out, rows.Err()
}

func loadSessionFilePaths(db *store.DB) (map[string]string, error) {
	rows, err := db.Query(`SELECT file_path, id FROM sessions`)
	if err != nil {
		return nil, fmt.Errorf("indexing: load sessions: %w", err)
	}
	defer rows.Close()

	out := make(map[string]string)
	for rows.Next() {
		var path, id string
		if err := rows.Scan(&path, &id); err != nil {
			return nil, err
		}
		out[path] = id
	}
	return out, rows.Err()
}

func removeFile(db *store.DB, filePath string) error {
	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	rows, err := tx.Query(`SELECT id FROM sessions WHERE file_path = ?`, filePath)
	if err != nil {
		return err
	}
	var sessionIDs []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return err
		}
		sessionIDs = append(sessionIDs, id)
	}
	rows.Close()

	for _, sid := range sessionIDs {
		if err := deleteSessionCascade(tx, sid); err != nil {
			return err
		}
	}
	if _, err := tx.Exec(`DELETE FROM indexed_files WHERE file_path = ?`, filePath); err != nil {
		return err
	}
	return tx.Commit()
}

func deleteSessionCascade(tx *sql.Tx, sessionID string) error {
	if _, err := tx.Exec(`DELETE FROM tool_calls WHERE message_id IN (SELECT id FROM messages WHERE session_id = ?)`, sessionID); err != nil {
		return err
	}
	if _, err := tx.Exec(`DELETE FROM message_fts WHERE session_id = ?`, sessionID); err != nil {
		return err
	}
	if _, err := tx.Exec(`DELETE FROM messages WHERE session_id = ?`, sessionID); err != nil {
		return err
	}
	if _, err := tx.Exec(`DELETE FROM sessions WHERE id = ?`, sessionID); err != nil {
		return err
	}
	return nil
}

func sweepOrphanProjects(db *store.DB) error {
	_, err := db.Exec(`DELETE FROM projects WHERE id NOT IN (SELECT DISTINCT project_id FROM sessions)`)
	return err
}

func writeSession(db *store.DB, f sources.DiscoveredFile, sessionID string, parsed sources.ParseResult) error {
	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	// Delete any existing Session rows for this filePath *and* for this
	// sessionDbId (covers path-rename and id-collision).
	rows, err := tx.Query(`SELECT DISTINCT id FROM sessions WHERE file_path = ? OR id = ?`, f.FilePath, sessionID)
	if err != nil {
		return err
	}
	var toDelete []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return err
		}
		toDelete = append(toDelete, id)
	}
	rows.Close()
	for _, id := range toDelete {
		if err := deleteSessionCascade(tx, id); err != nil {
			return err
		}
	}

	projectID := ident.Project(string(f.Provider), f.ProjectPath)
	now := store.Now()
	if _, err := tx.Exec(
		`INSERT INTO projects (id, provider, name, path, created_at, updated_at) VALUES (?,?,?,?,?,?)
		 ON CONFLICT(id) DO UPDATE SET updated_at = excluded.updated_at`,
		projectID, string(f.Provider), f.ProjectName, f.ProjectPath, now, now,
	); err != nil {
		return err
	}

	agg := aggregate(parsed.Messages)
	models := mergeModels(parsed.Models)

	if _, err := tx.Exec(
		`INSERT INTO sessions (id, project_id, provider, file_path, model_names, started_at, ended_at, duration_ms, git_branch, cwd, message_count, token_input_total, token_output_total)
		 VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?)
		 ON CONFLICT(id) DO UPDATE SET
		   project_id=excluded.project_id, model_names=excluded.model_names, started_at=excluded.started_at,
		   ended_at=excluded.ended_at, duration_ms=excluded.duration_ms, git_branch=excluded.git_branch, cwd=excluded.cwd,
		   message_count=excluded.message_count, token_input_total=excluded.token_input_total, token_output_total=excluded.token_output_total`,
		sessionID, projectID, string(f.Provider), f.FilePath, models,
		nullableString(agg.startedAt), nullableString(agg.endedAt), nullableInt64(agg.durationMs),
		nullableString(f.Metadata.GitBranch), nullableString(f.Metadata.CWD),
		agg.messageCount, agg.tokenInputTotal, agg.tokenOutputTotal,
	); err != nil {
		return err
	}

	for _, m := range parsed.Messages {
		msgID := ident.Message(sessionID, m.SourceID)
		if _, err := tx.Exec(
			`INSERT INTO messages (id, source_id, session_id, provider, category, content, created_at, token_input, token_output, operation_duration_ms, operation_duration_source, operation_duration_confidence)
			 VALUES (?,?,?,?,?,?,?,?,?,?,?,?)`,
			msgID, m.SourceID, sessionID, string(m.Provider), string(m.Category), m.Content, m.CreatedAt,
			nullableIntPtr(m.TokenInput), nullableIntPtr(m.TokenOutput),
			nullableInt64Ptr(m.OperationDurationMs), nullableDurationSource(m.OperationDurationSource),
			nullableDurationConfidence(m.OperationDurationConfidence),
		); err != nil {
			return err
		}
		if _, err := tx.Exec(
			`INSERT INTO message_fts (message_id, session_id, provider, category, content) VALUES (?,?,?,?,?)`,
			msgID, sessionID, string(m.Provider), string(m.Category), m.Content,
		); err != nil {
			return err
		}
		if m.Category == canon.CategoryToolUse || m.Category == canon.CategoryToolEdit {
			toolID := ident.Tool(msgID, 0)
			if _, err := tx.Exec(
				`INSERT INTO tool_calls (id, message_id, tool_name, args_json, result_json, started_at, completed_at) VALUES (?,?,?,?,?,?,?)`,
				toolID, msgID, toolNameFromContent(m.Content), m.Content, "", m.CreatedAt, nil,
			); err != nil {
				return err
			}
		}
	}

	if _, err := tx.Exec(
		`INSERT INTO indexed_files (file_path, provider, project_path, session_identity, file_size, file_mtime_ms, indexed_at)
		 VALUES (?,?,?,?,?,?,?)
		 ON CONFLICT(file_path) DO UPDATE SET
		   provider=excluded.provider, project_path=excluded.project_path, session_identity=excluded.session_identity,
		   file_size=excluded.file_size, file_mtime_ms=excluded.file_mtime_ms, indexed_at=excluded.indexed_at`,
		f.FilePath, string(f.Provider), f.ProjectPath, f.SessionIdentity, f.FileSize, f.FileMtimeMs, now,
	); err != nil {
		return err
	}

	return tx.Commit()
}

type sessionAggregate struct {
	messageCount     int
	tokenInputTotal  int
	tokenOutputTotal int
	startedAt        string
	endedAt          string
	durationMs       int64
}

func aggregate(messages []canon.Message) sessionAggregate {
	var agg sessionAggregate
	agg.messageCount = len(messages)
	for _, m := range messages {
		if m.TokenInput != nil {
			agg.tokenInputTotal += *m.TokenInput
		}
		if m.TokenOutput != nil {
			agg.tokenOutputTotal += *m.TokenOutput
		}
		if m.CreatedAt == "" {
			continue
		}
		if agg.startedAt == "" || m.CreatedAt < agg.startedAt {
			agg.startedAt = m.CreatedAt
		}
		if agg.endedAt == "" || m.CreatedAt > agg.endedAt {
			agg.endedAt = m.CreatedAt
		}
	}
	if d, ok := elapsedMs(agg.startedAt, agg.endedAt); ok {
		agg.durationMs = d
	}
	return agg
}

// elapsedMs parses two ISO-8601 timestamps and returns the elapsed time
// between them in milliseconds. Returns false if either is empty or
// unparseable, or if they parse to the same instant (no signal, not a
// zero-duration session).
func elapsedMs(startedAt, endedAt string) (int64, bool) {
	if startedAt == "" || endedAt == "" {
		return 0, false
	}
	start, err := time.Parse(time.RFC3339Nano, startedAt)
	if err != nil {
		return 0, false
	}
	end, err := time.Parse(time.RFC3339Nano, endedAt)
	if err != nil {
		return 0, false
	}
	d := end.Sub(start)
	if d <= 0 {
		return 0, false
	}
	return d.Milliseconds(), true
}

func mergeModels(models []string) string {
	set := make(map[string]struct{}, len(models))
	for _, m := range models {
		if m != "" {
			set[m] = struct{}{}
		}
	}
	out := make([]string, 0, len(set))
	for m := range set {
		out = append(out, m)
	}
	sort.Strings(out)
	return strings.Join(out, ",")
}

func toolNameFromContent(content string) string {
	const marker = `"name":"`
	i := strings.Index(content, marker)
	if i < 0 {
		return ""
	}
	rest := content[i+len(marker):]
	j := strings.IndexByte(rest, '"')
	if j < 0 {
		return ""
	}
	return rest[:j]
}

// nullable helpers keep the SQL call sites above readable.

func nullableString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func nullableInt64(v int64) any {
	if v == 0 {
		return nil
	}
	return v
}

func nullableIntPtr(v *int) any {
	if v == nil {
		return nil
	}
	return *v
}

func nullableInt64Ptr(v *int64) any {
	if v == nil {
		return nil
	}
	return *v
}

func nullableDurationSource(v *canon.DurationSource) any {
	if v == nil {
		return nil
	}
	return string(*v)
}

func nullableDurationConfidence(v *canon.DurationConfidence) any {
	if v == nil {
		return nil
	}
	return string(*v)
}
