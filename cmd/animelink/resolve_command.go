package main

import (
	"context"
	"strings"

	"github.com/spf13/cobra"

	"github.com/example/animelink/internal/domain"
	"github.com/example/animelink/internal/fetch"
	"github.com/example/animelink/internal/resolver"
	"github.com/example/animelink/internal/retry"
)

type resolveOutput struct {
	Query      domain.TitleQuery `json:"query"`
	Resolution domain.Resolution `json:"resolution"`
	Outcome    string            `json:"outcome"`
	Attempts   int               `json:"attempts"`
}

func newResolveCommand(a *app) *cobra.Command {
	var (
		typ      string
		year     int
		season   string
		episodes int
		alt      string
		direct   bool
	)
	cmd := &cobra.Command{
		Use:   "resolve <title>",
		Short: "Map a title onto a streaming catalog id",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			q := domain.TitleQuery{Title: strings.Join(args, " ")}
			md := &domain.ContentMetadata{
				Type:         domain.ParseContentType(typ),
				Year:         year,
				Season:       season,
				EpisodeCount: episodes,
				AltTitle:     alt,
			}
			if *md != (domain.ContentMetadata{}) {
				q.Metadata = md
			}

			resolve := a.resolver.ResolveWithFallback
			if direct {
				resolve = a.resolver.Resolve
			}
			r := retry.Do(cmd.Context(), a.queryPolicy(), func(ctx context.Context) (domain.Resolution, error) {
				return resolve(ctx, q)
			}, fetch.Retryable)

			out := resolveOutput{
				Query:      q,
				Resolution: r.Value,
				Outcome:    resolver.Classify(r.Value, r.Err).String(),
				Attempts:   r.Attempts,
			}
			if r.Err != nil {
				return r.Err
			}
			if a.jsonOut {
				return writeJSON(cmd, out)
			}
			printResolution(cmd, out)
			return nil
		},
	}
	cmd.Flags().StringVar(&typ, "type", "", "Release format: TV, Movie, OVA, Special, ONA")
	cmd.Flags().IntVar(&year, "year", 0, "Release year")
	cmd.Flags().StringVar(&season, "season", "", "Season number or name")
	cmd.Flags().IntVar(&episodes, "episodes", 0, "Episode count")
	cmd.Flags().StringVar(&alt, "alt-title", "", "Alternate title for the second strategy")
	cmd.Flags().BoolVar(&direct, "direct", false, "Only try the title as given")
	return cmd
}

func printResolution(cmd *cobra.Command, out resolveOutput) {
	res := out.Resolution
	if !res.Resolved() {
		printFields(cmd, [][2]string{
			{"Title", out.Query.Title},
			{"Outcome", out.Outcome},
		})
		return
	}
	printFields(cmd, [][2]string{
		{"Title", out.Query.Title},
		{"Catalog ID", res.ExternalID},
		{"Catalog title", res.CatalogTitle},
		{"Matched query", res.MatchedTitle},
		{"Strategy", res.Strategy},
		{"Confidence", confidenceText(res.Confidence)},
		{"Playable", yesNo(res.Playable())},
		{"Outcome", out.Outcome},
	})
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
