// Package bookmarks manages the bookmark database: a sibling SQLite
// file that tolerates divergence from the index (orphaning a bookmark
// whose backing message disappears, restoring it if the message
// reappears) and is reconciled after every indexing run.
package bookmarks

import (
	"database/sql"
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	_ "modernc.org/sqlite"

	"github.com/sessiondex/sessiondex/internal/canon"
)

//go:embed schema.sql
var schemaSQL string

// SchemaVersion is the compiled bookmarks schema version.
const SchemaVersion = 1

// DefaultPath derives the conventional bookmarks database path from an
// index database path: "<index-basename>.bookmarks" alongside it.
func DefaultPath(indexDBPath string) string {
	return indexDBPath + ".bookmarks"
}

// DB wraps the bookmarks SQLite connection.
type DB struct {
	*sql.DB
	path string
}

// Open opens (creating if necessary) the bookmarks database at path and
// applies its schema.
func Open(path string) (*DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("bookmarks: mkdir: %w", err)
	}
	sqlDB, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("bookmarks: open: %w", err)
	}
	if _, err := sqlDB.Exec("PRAGMA journal_mode=WAL"); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("bookmarks: wal mode: %w", err)
	}

	db := &DB{DB: sqlDB, path: path}
	if err := db.bootstrap(); err != nil {
		sqlDB.Close()
		return nil, err
	}
	return db, nil
}

func (db *DB) bootstrap() error {
	for _, stmt := range splitStatements(schemaSQL) {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("bookmarks: apply schema: %w", err)
		}
	}
	var v string
	err := db.QueryRow(`SELECT value FROM meta WHERE key = 'schema_version'`).Scan(&v)
	if err != nil && err != sql.ErrNoRows {
		return fmt.Errorf("bookmarks: read schema_version: %w", err)
	}
	_, err = db.Exec(
		`INSERT INTO meta (key, value) VALUES ('schema_version', ?)
		 ON CONFLICT (key) DO UPDATE SET value = excluded.value`,
		strconv.Itoa(SchemaVersion),
	)
	return err
}

func splitStatements(schema string) []string {
	parts := strings.Split(schema, ";")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		out = append(out, p)
	}
	return out
}

// Snapshot is a versioned copy of the bookmarked message, stored
// alongside the bookmark so it can still be displayed once the message
// is orphaned.
type Snapshot struct {
	ProjectID       string
	MessageID       string
	SessionID       string
	MessageSourceID string
	Provider        canon.Provider
	SessionTitle    string
	MessageCategory canon.Category
	MessageContent  string
	MessageCreated  string
}

// UpsertBookmark inserts or updates a bookmark by (project_id,
// message_id), clearing any orphan flag and storing a fresh snapshot.
func (db *DB) UpsertBookmark(snap Snapshot, now string) error {
	_, err := db.Exec(
		`INSERT INTO bookmarks (project_id, message_id, session_id, message_source_id, provider, session_title,
		        message_category, message_content, message_created_at, bookmarked_at, is_orphaned, orphaned_at, snapshot_version, snapshot_json)
		 VALUES (?,?,?,?,?,?,?,?,?,?,0,NULL,1,'')
		 ON CONFLICT(project_id, message_id) DO UPDATE SET
		   session_id=excluded.session_id, message_source_id=excluded.message_source_id, provider=excluded.provider,
		   session_title=excluded.session_title, message_category=excluded.message_category, message_content=excluded.message_content,
		   message_created_at=excluded.message_created_at, bookmarked_at=excluded.bookmarked_at, is_orphaned=0, orphaned_at=NULL`,
		snap.ProjectID, snap.MessageID, snap.SessionID, snap.MessageSourceID, string(snap.Provider), snap.SessionTitle,
		string(snap.MessageCategory), snap.MessageContent, snap.MessageCreated, now,
	)
	if err != nil {
		return fmt.Errorf("bookmarks: upsert: %w", err)
	}
	return nil
}

// RemoveBookmark deletes a bookmark, reporting whether a row existed.
func (db *DB) RemoveBookmark(projectID, messageID string) (bool, error) {
	res, err := db.Exec(`DELETE FROM bookmarks WHERE project_id = ? AND message_id = ?`, projectID, messageID)
	if err != nil {
		return false, fmt.Errorf("bookmarks: remove: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// BookmarkRow is one stored bookmark row, as persisted (not yet joined
// against live message data).
type BookmarkRow struct {
	Snapshot
	BookmarkedAt string
	IsOrphaned   bool
	OrphanedAt   string
}

// ListProjectBookmarks returns a project's bookmarks ordered by
// message_created_at DESC, message_id DESC, optionally filtered by a
// case-insensitive substring of message_content.
func (db *DB) ListProjectBookmarks(projectID, query string) ([]BookmarkRow, error) {
	sqlStr := `SELECT project_id, message_id, session_id, message_source_id, provider, session_title,
	                  message_category, message_content, message_created_at, bookmarked_at, is_orphaned, orphaned_at
	           FROM bookmarks WHERE project_id = ?`
	args := []any{projectID}
	query = strings.TrimSpace(query)
	if query != "" {
		sqlStr += " AND lower(message_content) LIKE ?"
		args = append(args, "%"+strings.ToLower(query)+"%")
	}
	sqlStr += " ORDER BY message_created_at DESC, message_id DESC"

	rows, err := db.Query(sqlStr, args...)
	if err != nil {
		return nil, fmt.Errorf("bookmarks: list project: %w", err)
	}
	defer rows.Close()

	out := []BookmarkRow{}
	for rows.Next() {
		var row BookmarkRow
		var orphanedAt sql.NullString
		var isOrphaned int
		if err := rows.Scan(&row.ProjectID, &row.MessageID, &row.SessionID, &row.MessageSourceID, &row.Provider,
			&row.SessionTitle, &row.MessageCategory, &row.MessageContent, &row.MessageCreated, &row.BookmarkedAt,
			&isOrphaned, &orphanedAt); err != nil {
			return nil, err
		}
		row.IsOrphaned = isOrphaned != 0
		row.OrphanedAt = orphanedAt.String
		out = append(out, row)
	}
	return out, rows.Err()
}

// ReconcileResult reports what one reconciliation pass did.
type ReconcileResult struct {
	MarkedOrphaned          int
	Restored                int
	DeletedMissingProjects  int
}

// ReconcileWithIndexedData runs the three-step bookmark reconciliation
// against the index database at indexedDBPath: delete bookmarks whose
// project no longer exists, orphan bookmarks whose session/message pair
// is gone, and restore bookmarks whose backing message has reappeared.
func (db *DB) ReconcileWithIndexedData(indexedDBPath string, now string) (ReconcileResult, error) {
	indexDB, err := sql.Open("sqlite", "file:"+indexedDBPath+"?mode=ro")
	if err != nil {
		return ReconcileResult{}, fmt.Errorf("bookmarks: open index for reconcile: %w", err)
	}
	defer indexDB.Close()

	tx, err := db.Begin()
	if err != nil {
		return ReconcileResult{}, err
	}
	defer tx.Rollback()

	rows, err := tx.Query(`SELECT project_id, message_id, session_id, is_orphaned FROM bookmarks`)
	if err != nil {
		return ReconcileResult{}, err
	}
	type bm struct {
		projectID, messageID, sessionID string
		isOrphaned                     bool
	}
	var all []bm
	for rows.Next() {
		var b bm
		var orphaned int
		if err := rows.Scan(&b.projectID, &b.messageID, &b.sessionID, &orphaned); err != nil {
			rows.Close()
			return ReconcileResult{}, err
		}
		b.isOrphaned = orphaned != 0
		all = append(all, b)
	}
	rows.Close()

	var result ReconcileResult
	for _, b := range all {
		var exists int
		if err := indexDB.QueryRow(`SELECT count(*) FROM projects WHERE id = ?`, b.projectID).Scan(&exists); err != nil {
			return ReconcileResult{}, fmt.Errorf("bookmarks: check project: %w", err)
		}
		if exists == 0 {
			if _, err := tx.Exec(`DELETE FROM bookmarks WHERE project_id = ? AND message_id = ?`, b.projectID, b.messageID); err != nil {
				return ReconcileResult{}, err
			}
			result.DeletedMissingProjects++
			continue
		}

		var messageExists int
		if err := indexDB.QueryRow(
			`SELECT count(*) FROM messages WHERE id = ? AND session_id = ?`, b.messageID, b.sessionID,
		).Scan(&messageExists); err != nil {
			return ReconcileResult{}, fmt.Errorf("bookmarks: check message: %w", err)
		}

		if messageExists == 0 {
			if !b.isOrphaned {
				if _, err := tx.Exec(
					`UPDATE bookmarks SET is_orphaned = 1, orphaned_at = ? WHERE project_id = ? AND message_id = ? AND orphaned_at IS NULL`,
					now, b.projectID, b.messageID,
				); err != nil {
					return ReconcileResult{}, err
				}
				result.MarkedOrphaned++
			}
			continue
		}

		if b.isOrphaned {
			if _, err := tx.Exec(
				`UPDATE bookmarks SET is_orphaned = 0, orphaned_at = NULL WHERE project_id = ? AND message_id = ?`,
				b.projectID, b.messageID,
			); err != nil {
				return ReconcileResult{}, err
			}
			result.Restored++
		}
	}

	return result, tx.Commit()
}

// ToggleBookmark flips a bookmark's existence. If one already exists it
// is removed. Otherwise the caller-supplied live triple is trusted (the
// caller, httpapi's bookmarksToggle handler, verifies it against the
// index database first) and a fresh snapshot is stored.
func (db *DB) ToggleBookmark(snap Snapshot, now string) (bool, error) {
	var exists int
	if err := db.QueryRow(`SELECT count(*) FROM bookmarks WHERE project_id = ? AND message_id = ?`,
		snap.ProjectID, snap.MessageID).Scan(&exists); err != nil {
		return false, fmt.Errorf("bookmarks: toggle lookup: %w", err)
	}
	if exists > 0 {
		if _, err := db.RemoveBookmark(snap.ProjectID, snap.MessageID); err != nil {
			return false, err
		}
		return false, nil
	}
	if err := db.UpsertBookmark(snap, now); err != nil {
		return false, err
	}
	return true, nil
}

// Close closes the bookmarks database connection.
func (db *DB) Close() error {
	return db.DB.Close()
}
