package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sessiondex/sessiondex/internal/ipc"
	"github.com/sessiondex/sessiondex/internal/ipcserver"
)

func newProjectsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "projects",
		Short: "List and inspect indexed projects",
	}
	cmd.AddCommand(newProjectsListCmd())
	return cmd
}

func newProjectsListCmd() *cobra.Command {
	var query string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List indexed projects",
		RunE: func(cmd *cobra.Command, args []string) error {
			req := ipc.ProjectsListRequest{Query: query}

			if standalone {
				svc, closeDB, err := openStandaloneService()
				if err != nil {
					return err
				}
				defer closeDB()
				projects, err := svc.ListProjects(nil, query)
				if err != nil {
					return err
				}
				if jsonOutput {
					return printJSON(projects)
				}
				for _, p := range projects {
					fmt.Printf("%-12s %-8s %-40s %d sessions\n", p.ID, p.Provider, p.Name, p.SessionCount)
				}
				return nil
			}

			path, err := resolveSocketPath()
			if err != nil {
				return err
			}
			payload, err := ipcserver.Call(path, ipc.ChannelProjectsList, req)
			if err != nil {
				return err
			}
			if jsonOutput {
				fmt.Println(string(payload))
				return nil
			}
			var resp ipc.ProjectsListResponse
			if err := json.Unmarshal(payload, &resp); err != nil {
				return err
			}
			for _, p := range resp.Projects {
				fmt.Printf("%-12s %-8s %-40s %d sessions\n", p.ID, p.Provider, p.Name, p.SessionCount)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&query, "query", "", "filter by name/path substring")
	return cmd
}

func printJSON(v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(data))
	return nil
}
