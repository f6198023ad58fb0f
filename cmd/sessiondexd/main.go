// sessiondexd is the long-running daemon: it owns the index and
// bookmark databases, runs the indexing job runner (with filesystem
// watch), and serves the IPC channel catalog over a Unix domain socket
// and, optionally, a loopback HTTP gateway.
package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/sessiondex/sessiondex/internal/applog"
	"github.com/sessiondex/sessiondex/internal/bookmarks"
	"github.com/sessiondex/sessiondex/internal/config"
	"github.com/sessiondex/sessiondex/internal/daemon"
	"github.com/sessiondex/sessiondex/internal/httpapi"
	"github.com/sessiondex/sessiondex/internal/ipcserver"
	"github.com/sessiondex/sessiondex/internal/query"
	"github.com/sessiondex/sessiondex/internal/runner"
	"github.com/sessiondex/sessiondex/internal/store"
)

// version is set via ldflags at build time.
var version = "dev"

func main() {
	var (
		httpAddr    string
		showVersion bool
	)
	flag.StringVar(&httpAddr, "http", "", "loopback HTTP gateway address (e.g. 127.0.0.1:8795); overrides config httpAddr")
	flag.BoolVar(&showVersion, "version", false, "print version and exit")
	flag.Parse()

	if showVersion {
		fmt.Printf("sessiondexd %s\n", version)
		os.Exit(0)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "sessiondexd: load config: %v\n", err)
		os.Exit(1)
	}
	if httpAddr != "" {
		cfg.HTTPAddr = httpAddr
	}

	if err := applog.Init(cfg.Logging.Path, cfg.Logging.Level); err != nil {
		fmt.Fprintf(os.Stderr, "sessiondexd: init log: %v\n", err)
		os.Exit(1)
	}
	defer applog.Log.Close()

	httpapi.Version = version
	applog.Log.Infof("sessiondexd %s starting, dataDir=%s", version, cfg.DataDir)

	indexDBPath := store.DefaultPath()
	if cfg.DataDir != "" {
		indexDBPath = filepath.Join(cfg.DataDir, "index.db")
	}

	db, err := store.Open(indexDBPath)
	if err != nil {
		applog.Log.Errorf("open index db: %v", err)
		os.Exit(1)
	}
	defer db.Close()

	bmDB, err := bookmarks.Open(bookmarks.DefaultPath(indexDBPath))
	if err != nil {
		applog.Log.Errorf("open bookmarks db: %v", err)
		os.Exit(1)
	}
	defer bmDB.Close()

	rules, err := daemon.Rules(cfg)
	if err != nil {
		applog.Log.Errorf("compile system-message rules: %v", err)
		os.Exit(1)
	}

	r := runner.New(runner.Options{
		DBPath:      indexDBPath,
		WorkerPath:  cfg.Indexer.WorkerPath,
		Discoverers: daemon.Discoverers(cfg),
		Parsers:     daemon.Parsers(),
		Rules:       rules,
	})

	if cfg.Indexer.Watch {
		stopWatch := r.Watch(runner.WatchOptions{
			Roots:    daemon.WatchRoots(cfg),
			Debounce: cfg.Indexer.DebounceDuration(),
		})
		defer stopWatch()
	}

	svc := query.NewService(db)
	hs := httpapi.NewServer(svc, bmDB, r, cfg)

	ipcSrv := ipcserver.New(cfg.Socket, hs)
	go func() {
		if err := ipcSrv.ListenAndServe(); err != nil {
			applog.Log.Errorf("ipc server: %v", err)
		}
	}()
	defer ipcSrv.Close()

	if cfg.HTTPAddr != "" {
		go func() {
			if err := hs.ListenAndServe(cfg.HTTPAddr); err != nil {
				applog.Log.Errorf("http gateway: %v", err)
			}
		}()
	}

	// Run an initial refresh so a freshly-started daemon serves queries
	// against an up-to-date index without waiting for the first watch
	// event or client-triggered refresh.
	_, done := r.Enqueue(false)
	if err := <-done; err != nil {
		applog.Log.Warnf("initial refresh failed: %v", err)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh
	applog.Log.Infof("sessiondexd shutting down")
}
