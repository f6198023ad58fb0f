// sessiondex is the CLI client: it calls sessiondexd's Unix socket for
// the same request/response catalog the daemon and HTTP gateway serve,
// or, with --standalone, opens the index database directly and runs
// queries in-process without a running daemon.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/sessiondex/sessiondex/internal/config"
)

var (
	standalone bool
	socketPath string
	jsonOutput bool
)

var rootCmd = &cobra.Command{
	Use:   "sessiondex",
	Short: "Query and manage the sessiondex index",
	Long: `sessiondex is the CLI client for the sessiondex daemon.

By default it talks to sessiondexd over its Unix domain socket. Pass
--standalone to read the index database directly, without requiring a
running daemon (index refreshes are unavailable in this mode).`,
}

func main() {
	rootCmd.PersistentFlags().BoolVar(&standalone, "standalone", false, "query the index database directly instead of the daemon socket")
	rootCmd.PersistentFlags().StringVar(&socketPath, "socket", "", "daemon socket path (default from config)")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "print raw JSON instead of a formatted table")

	rootCmd.AddCommand(newProjectsCmd())
	rootCmd.AddCommand(newSessionsCmd())
	rootCmd.AddCommand(newSearchCmd())
	rootCmd.AddCommand(newIndexCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "sessiondex: %v\n", err)
		os.Exit(1)
	}
}

// resolveSocketPath returns the --socket flag if set, else the
// configured socket path.
func resolveSocketPath() (string, error) {
	if socketPath != "" {
		return socketPath, nil
	}
	cfg, err := config.Load()
	if err != nil {
		return "", err
	}
	return cfg.Socket, nil
}
