// sessiondex-worker is the one-shot subprocess the indexing runner
// offloads a refresh job to: it reads one runner.WorkerJob from stdin,
// runs the incremental indexer, and writes one runner.WorkerResult line
// to stdout before exiting.
package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"

	"github.com/sessiondex/sessiondex/internal/config"
	"github.com/sessiondex/sessiondex/internal/daemon"
	"github.com/sessiondex/sessiondex/internal/indexing"
	"github.com/sessiondex/sessiondex/internal/runner"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "sessiondex-worker: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	reader := bufio.NewReader(os.Stdin)
	line, err := reader.ReadBytes('\n')
	if err != nil && len(line) == 0 {
		return fmt.Errorf("read job: %w", err)
	}

	var job runner.WorkerJob
	if err := json.Unmarshal(line, &job); err != nil {
		return writeResult(runner.WorkerResult{OK: false, Message: fmt.Sprintf("decode job: %v", err)})
	}

	cfg, err := config.Load()
	if err != nil {
		return writeResult(runner.WorkerResult{OK: false, Message: fmt.Sprintf("load config: %v", err)})
	}

	rules, err := daemon.Rules(cfg)
	if err != nil {
		return writeResult(runner.WorkerResult{OK: false, Message: fmt.Sprintf("compile rules: %v", err)})
	}

	_, err = indexing.RunIncremental(indexing.Options{
		DBPath:       job.DBPath,
		ForceReindex: job.ForceReindex,
		Discoverers:  daemon.Discoverers(cfg),
		Parsers:      daemon.Parsers(),
		Rules:        rules,
	})
	if err != nil {
		return writeResult(runner.WorkerResult{OK: false, Message: err.Error()})
	}
	return writeResult(runner.WorkerResult{OK: true})
}

func writeResult(result runner.WorkerResult) error {
	enc := json.NewEncoder(os.Stdout)
	return enc.Encode(result)
}
