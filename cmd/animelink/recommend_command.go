package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

func newRecommendCommand(a *app) *cobra.Command {
	var community bool
	cmd := &cobra.Command{
		Use:   "recommend <mal-id>",
		Short: "Suggest what to watch after a title",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			malID, err := parseMalID(args[0])
			if err != nil {
				return err
			}
			if community {
				return printCommunity(cmd, a, malID)
			}
			res, err := a.recommend.For(cmd.Context(), malID)
			if err != nil {
				return err
			}
			if a.jsonOut {
				return writeJSON(cmd, res)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Recommendations (%s):\n", res.Kind)
			printTable(cmd, animeHeaders, animeRows(res.Items), animeAligns)
			return nil
		},
	}
	cmd.Flags().BoolVar(&community, "community", false, "Show MyAnimeList user recommendations instead")
	return cmd
}

func printCommunity(cmd *cobra.Command, a *app, malID int) error {
	resp, err := a.meta.GetRecommendations(cmd.Context(), malID)
	if err != nil {
		return err
	}
	if a.jsonOut {
		return writeJSON(cmd, resp.Data)
	}
	rows := make([][]string, 0, len(resp.Data))
	for _, r := range resp.Data {
		rows = append(rows, []string{strconv.Itoa(r.Entry.MalID), r.Entry.Title, strconv.Itoa(r.Votes)})
	}
	printTable(cmd, []string{"MAL ID", "Title", "Votes"}, rows, []columnAlignment{alignRight, alignLeft, alignRight})
	return nil
}
