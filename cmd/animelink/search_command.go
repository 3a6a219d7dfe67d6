package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/example/animelink/internal/fetch"
	"github.com/example/animelink/internal/jikan"
	"github.com/example/animelink/internal/platform/analytics"
	"github.com/example/animelink/internal/retry"
)

func newSearchCommand(a *app) *cobra.Command {
	var p jikan.SearchParams
	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search MyAnimeList and remember the query",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p.Query = strings.TrimSpace(strings.Join(args, " "))
			r := retry.Do(cmd.Context(), a.queryPolicy(), func(ctx context.Context) (*jikan.AnimeListResponse, error) {
				return a.meta.Search(ctx, p)
			}, fetch.Retryable)
			if r.Err != nil {
				return r.Err
			}
			if err := a.history.Add(cmd.Context(), p.Query); err != nil {
				a.log.Warn("search history not saved", zap.Error(err))
			}
			a.events.Publish(analytics.SubjectSearchPerformed, "search_performed", uuid.NewString(), map[string]any{
				"query":   p.Query,
				"results": len(r.Value.Data),
				"page":    p.Page,
			})

			if a.jsonOut {
				return writeJSON(cmd, r.Value)
			}
			if len(r.Value.Data) == 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "No results for %q.\n", p.Query)
				return nil
			}
			printTable(cmd, animeHeaders, animeRows(r.Value.Data), animeAligns)
			if r.Value.Pagination.HasNextPage {
				fmt.Fprintf(cmd.OutOrStdout(), "More results: --page %d\n", max(p.Page, 1)+1)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&p.Type, "type", "", "Filter by format: tv, movie, ova, special, ona, music")
	cmd.Flags().StringVar(&p.Status, "status", "", "Filter by status: airing, complete, upcoming")
	cmd.Flags().StringVar(&p.Genre, "genre", "", "Comma separated genre ids")
	cmd.Flags().IntVar(&p.Page, "page", 1, "Result page")
	cmd.Flags().IntVar(&p.Limit, "limit", 24, "Results per page")
	return cmd
}

func newTopCommand(a *app) *cobra.Command {
	var (
		filter    string
		limit     int
		seasonNow bool
	)
	cmd := &cobra.Command{
		Use:   "top",
		Short: "Show a MyAnimeList chart or the current season",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := jikan.ParseTopFilter(filter)
			if err != nil {
				return err
			}
			r := retry.Do(cmd.Context(), a.queryPolicy(), func(ctx context.Context) (*jikan.AnimeListResponse, error) {
				if seasonNow {
					return a.meta.GetSeasonNow(ctx, limit)
				}
				return a.meta.GetTop(ctx, f, limit)
			}, fetch.Retryable)
			if r.Err != nil {
				return r.Err
			}
			if a.jsonOut {
				return writeJSON(cmd, r.Value)
			}
			printTable(cmd, animeHeaders, animeRows(r.Value.Data), animeAligns)
			return nil
		},
	}
	cmd.Flags().StringVar(&filter, "filter", "popular", "Chart: airing, popular, favorite, completed or all")
	cmd.Flags().IntVar(&limit, "limit", 20, "Number of entries")
	cmd.Flags().BoolVar(&seasonNow, "season-now", false, "Show the current season instead of a chart")
	return cmd
}
