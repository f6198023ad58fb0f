// Package store bootstraps the embedded SQLite index database: schema
// creation, schema-version tracking, and the destructive-clear path
// used when the compiled schema has moved on from what's on disk.
package store

import (
	"database/sql"
	_ "embed"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

//go:embed schema.sql
var indexSchemaSQL string

// SchemaVersion is the compiled schema version. Bumping it forces every
// existing index database to be destructively cleared and rebuilt on
// next open.
const SchemaVersion = 1

const envDataDirOverride = "SESSIONDEX_DATA_DIR"

// DataDir returns the directory holding the index and bookmark
// databases, honoring SESSIONDEX_DATA_DIR, falling back to
// ~/.sessiondex.
func DataDir() string {
	if v := os.Getenv(envDataDirOverride); v != "" {
		return v
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".sessiondex"
	}
	return filepath.Join(home, ".sessiondex")
}

// DefaultPath returns the default index database path.
func DefaultPath() string {
	return filepath.Join(DataDir(), "index.db")
}

// DB wraps a *sql.DB for the index database, tracking whether the open
// triggered a destructive schema rebuild.
type DB struct {
	*sql.DB
	path          string
	SchemaRebuilt bool
}

// Open opens (creating if necessary) the index database at path,
// applies the schema, and reconciles schema_version — destructively
// clearing all indexed tables when the stored version differs from
// SchemaVersion.
func Open(path string) (*DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("store: mkdir: %w", err)
	}
	sqlDB, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("store: open: %w", err)
	}
	if _, err := sqlDB.Exec("PRAGMA journal_mode=WAL"); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("store: wal mode: %w", err)
	}
	if _, err := sqlDB.Exec("PRAGMA foreign_keys=ON"); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("store: foreign keys: %w", err)
	}

	db := &DB{DB: sqlDB, path: path}
	if err := db.bootstrap(); err != nil {
		sqlDB.Close()
		return nil, err
	}
	return db, nil
}

func (db *DB) bootstrap() error {
	for _, stmt := range splitStatements(indexSchemaSQL) {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("store: apply schema: %w", err)
		}
	}

	stored, err := db.readSchemaVersion()
	if err != nil {
		return err
	}
	if stored == SchemaVersion {
		return nil
	}

	if err := db.clearIndexedTables(); err != nil {
		return err
	}
	db.SchemaRebuilt = true
	return db.writeSchemaVersion(SchemaVersion)
}

func (db *DB) readSchemaVersion() (int, error) {
	var v string
	err := db.QueryRow(`SELECT value FROM meta WHERE key = 'schema_version'`).Scan(&v)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("store: read schema_version: %w", err)
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, nil
	}
	return n, nil
}

func (db *DB) writeSchemaVersion(v int) error {
	_, err := db.Exec(
		`INSERT INTO meta (key, value) VALUES ('schema_version', ?)
		 ON CONFLICT (key) DO UPDATE SET value = excluded.value`,
		strconv.Itoa(v),
	)
	return err
}

// clearIndexedTables destructively empties every indexed (not raw
// provider) table. Used both for schema rebuilds and force-reindex.
func (db *DB) clearIndexedTables() error {
	tables := []string{"tool_calls", "message_fts", "messages", "sessions", "projects", "indexed_files"}
	tx, err := db.Begin()
	if err != nil {
		return err
	}
	for _, t := range tables {
		if _, err := tx.Exec("DELETE FROM " + t); err != nil {
			tx.Rollback()
			return fmt.Errorf("store: clear %s: %w", t, err)
		}
	}
	return tx.Commit()
}

// ClearAll is the exported form of clearIndexedTables, used by the
// indexer's forceReindex path.
func (db *DB) ClearAll() error { return db.clearIndexedTables() }

// Path returns the filesystem path this DB was opened from.
func (db *DB) Path() string { return db.path }

// OpenReadOnly opens path for read-only access, retrying once via a
// stable temp-file copy if the primary file is lock-contended by an
// in-progress writer, so long indexing jobs never block a reader
// outright.
func OpenReadOnly(path string) (*DB, error) {
	sqlDB, err := sql.Open("sqlite", "file:"+path+"?mode=ro&_pragma=busy_timeout(2000)")
	if err == nil {
		if pingErr := sqlDB.Ping(); pingErr == nil {
			return &DB{DB: sqlDB, path: path}, nil
		}
		sqlDB.Close()
	}

	copyPath, err := stableCopy(path)
	if err != nil {
		return nil, fmt.Errorf("store: read-only fallback copy: %w", err)
	}
	sqlDB, err = sql.Open("sqlite", "file:"+copyPath+"?mode=ro")
	if err != nil {
		return nil, err
	}
	return &DB{DB: sqlDB, path: copyPath}, nil
}

func stableCopy(path string) (string, error) {
	src, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer src.Close()

	info, err := src.Stat()
	if err != nil {
		return "", err
	}

	dst, err := os.CreateTemp("", "sessiondex-ro-*.db")
	if err != nil {
		return "", err
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		return "", err
	}

	after, err := os.Stat(path)
	if err != nil {
		return "", err
	}
	if after.Size() != info.Size() {
		return "", fmt.Errorf("store: source file changed size during copy")
	}
	return dst.Name(), nil
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

// Now marks the current instant as an ISO-8601 UTC string, the wire
// format used by every timestamp in the canonical model.
func Now() string {
	return time.Now().UTC().Format(time.RFC3339Nano)
}
