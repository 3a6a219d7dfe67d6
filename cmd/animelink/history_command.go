package main

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

func newHistoryCommand(a *app) *cobra.Command {
	var (
		clearAll bool
		remove   string
	)
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show or edit recent searches",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			switch {
			case clearAll:
				if err := a.history.Clear(ctx); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Search history cleared.")
				return nil
			case strings.TrimSpace(remove) != "":
				if err := a.history.Remove(ctx, remove); err != nil {
					return err
				}
			}

			items := a.history.List(ctx)
			if a.jsonOut {
				return writeJSON(cmd, items)
			}
			if len(items) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No recent searches.")
				return nil
			}
			const stampLayout = "2006-01-02 15:04"
			rows := make([][]string, 0, len(items))
			for i, it := range items {
				rows = append(rows, []string{
					strconv.Itoa(i + 1),
					it.Query,
					time.UnixMilli(it.Timestamp).Local().Format(stampLayout),
				})
			}
			printTable(cmd, []string{"#", "Query", "Searched"}, rows, []columnAlignment{alignRight})
			return nil
		},
	}
	cmd.Flags().BoolVar(&clearAll, "clear", false, "Forget every search")
	cmd.Flags().StringVar(&remove, "remove", "", "Forget one search")
	cmd.MarkFlagsMutuallyExclusive("clear", "remove")
	return cmd
}
