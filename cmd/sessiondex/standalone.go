package main

import (
	"path/filepath"

	"github.com/sessiondex/sessiondex/internal/config"
	"github.com/sessiondex/sessiondex/internal/query"
	"github.com/sessiondex/sessiondex/internal/store"
)

// openStandaloneService opens the index database read-only and wraps
// it in a query.Service, for --standalone commands that don't require
// a running daemon. The returned close func must be called when done.
func openStandaloneService() (*query.Service, func(), error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	dbPath := store.DefaultPath()
	if cfg.DataDir != "" {
		dbPath = filepath.Join(cfg.DataDir, "index.db")
	}
	db, err := store.OpenReadOnly(dbPath)
	if err != nil {
		return nil, nil, err
	}
	return query.NewService(db), func() { db.Close() }, nil
}
