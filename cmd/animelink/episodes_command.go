package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/example/animelink/internal/domain"
)

func newEpisodesCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "episodes <catalog-id>",
		Short: "List the episodes of a catalog entry",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			// An explicit catalog id is trusted like a direct match.
			res := domain.Resolution{ExternalID: strings.TrimSpace(args[0]), Confidence: domain.ConfidenceDirect}
			list, err := a.watch.Episodes(cmd.Context(), res)
			if err != nil {
				return err
			}
			if a.jsonOut {
				return writeJSON(cmd, list)
			}
			if len(list.Items) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No episodes available yet.")
				return nil
			}
			rows := make([][]string, 0, len(list.Items))
			for _, ep := range list.Items {
				rows = append(rows, []string{strconv.Itoa(ep.Number), ep.Title, ep.EpisodeID})
			}
			printTable(cmd, []string{"#", "Title", "Episode ID"}, rows, []columnAlignment{alignRight})
			return nil
		},
	}
}
