package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sessiondex/sessiondex/internal/ipc"
	"github.com/sessiondex/sessiondex/internal/ipcserver"
	"github.com/sessiondex/sessiondex/internal/query"
)

func newSearchCmd() *cobra.Command {
	var limit, offset int
	cmd := &cobra.Command{
		Use:   "search [query]",
		Short: "Full-text search across indexed message content",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			q := args[0]

			if standalone {
				svc, closeDB, err := openStandaloneService()
				if err != nil {
					return err
				}
				defer closeDB()
				result, err := svc.Search(query.SearchParams{Query: q, Limit: limit, Offset: offset})
				if err != nil {
					return err
				}
				if jsonOutput {
					return printJSON(result)
				}
				printSearchHits(result.TotalCount, hitLines(result.Results))
				return nil
			}

			path, err := resolveSocketPath()
			if err != nil {
				return err
			}
			payload, err := ipcserver.Call(path, ipc.ChannelSearchQuery, ipc.SearchQueryRequest{Query: q, Limit: limit, Offset: offset})
			if err != nil {
				return err
			}
			if jsonOutput {
				fmt.Println(string(payload))
				return nil
			}
			var resp ipc.SearchQueryResponse
			if err := json.Unmarshal(payload, &resp); err != nil {
				return err
			}
			lines := make([]string, 0, len(resp.Results))
			for _, hit := range resp.Results {
				lines = append(lines, fmt.Sprintf("[%s] %s: %s", hit.SessionID, hit.Category, hit.Snippet))
			}
			printSearchHits(resp.TotalCount, lines)
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 50, "maximum number of results")
	cmd.Flags().IntVar(&offset, "offset", 0, "result offset for pagination")
	return cmd
}

func hitLines(hits []query.SearchHit) []string {
	lines := make([]string, 0, len(hits))
	for _, hit := range hits {
		lines = append(lines, fmt.Sprintf("[%s] %s: %s", hit.SessionID, hit.Category, hit.Snippet))
	}
	return lines
}

func printSearchHits(total int, lines []string) {
	fmt.Printf("%d matches\n", total)
	for _, line := range lines {
		fmt.Println(line)
	}
}
