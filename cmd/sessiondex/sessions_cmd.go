package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sessiondex/sessiondex/internal/ipc"
	"github.com/sessiondex/sessiondex/internal/ipcserver"
)

func newSessionsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sessions",
		Short: "List sessions within a project",
	}
	cmd.AddCommand(newSessionsListCmd())
	return cmd
}

func newSessionsListCmd() *cobra.Command {
	var projectID string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List sessions, optionally scoped to a project",
		RunE: func(cmd *cobra.Command, args []string) error {
			if standalone {
				svc, closeDB, err := openStandaloneService()
				if err != nil {
					return err
				}
				defer closeDB()
				sessions, err := svc.ListSessions(projectID)
				if err != nil {
					return err
				}
				if jsonOutput {
					return printJSON(sessions)
				}
				for _, s := range sessions {
					fmt.Printf("%-12s %-8s %-40s %d msgs\n", s.ID, s.Provider, s.Title, s.MessageCount)
				}
				return nil
			}

			path, err := resolveSocketPath()
			if err != nil {
				return err
			}
			payload, err := ipcserver.Call(path, ipc.ChannelSessionsList, ipc.SessionsListRequest{ProjectID: projectID})
			if err != nil {
				return err
			}
			if jsonOutput {
				fmt.Println(string(payload))
				return nil
			}
			var resp ipc.SessionsListResponse
			if err := json.Unmarshal(payload, &resp); err != nil {
				return err
			}
			for _, s := range resp.Sessions {
				fmt.Printf("%-12s %-8s %-40s %d msgs\n", s.ID, s.Provider, s.Title, s.MessageCount)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&projectID, "project", "", "project id to scope the listing to")
	return cmd
}
