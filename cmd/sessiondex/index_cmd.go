package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sessiondex/sessiondex/internal/ipc"
	"github.com/sessiondex/sessiondex/internal/ipcserver"
)

func newIndexCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "index",
		Short: "Trigger and inspect indexing",
	}
	cmd.AddCommand(newIndexRefreshCmd())
	return cmd
}

func newIndexRefreshCmd() *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "refresh",
		Short: "Enqueue an indexer:refresh job on the running daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			if standalone {
				return fmt.Errorf("index refresh requires a running daemon; --standalone only reads the index")
			}
			path, err := resolveSocketPath()
			if err != nil {
				return err
			}
			payload, err := ipcserver.Call(path, ipc.ChannelIndexerRefresh, ipc.RefreshRequest{Force: force})
			if err != nil {
				return err
			}
			if jsonOutput {
				fmt.Println(string(payload))
				return nil
			}
			var resp ipc.RefreshResponse
			if err := json.Unmarshal(payload, &resp); err != nil {
				return err
			}
			fmt.Printf("enqueued job %s\n", resp.JobID)
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "force re-indexing of every session, not just changed ones")
	return cmd
}
