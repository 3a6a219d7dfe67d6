package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/example/animelink/internal/domain"
	"github.com/example/animelink/internal/hianime"
)

func newWatchCommand(a *app) *cobra.Command {
	var (
		episode int
		lang    string
		server  string
	)
	cmd := &cobra.Command{
		Use:   "watch <mal-id>",
		Short: "Resolve a MyAnimeList id and print the player URL for an episode",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			malID, err := parseMalID(args[0])
			if err != nil {
				return err
			}
			l, err := hianime.ParseLang(lang)
			if err != nil {
				return err
			}
			s, err := hianime.ParseServer(server)
			if err != nil {
				return err
			}
			pb, err := a.watch.Player(cmd.Context(), malID, episode, l, s)
			if err != nil {
				return err
			}
			if a.jsonOut {
				return writeJSON(cmd, pb)
			}
			printFields(cmd, [][2]string{
				{"Title", pb.Title},
				{"Catalog ID", pb.Resolution.ExternalID},
				{"Confidence", confidenceText(pb.Resolution.Confidence)},
				{"Episode", fmt.Sprintf("%d of %d", pb.Episode.Number, pb.Total)},
				{"Episode title", pb.Episode.Title},
				{"Previous", neighbour(pb.Prev)},
				{"Next", neighbour(pb.Next)},
				{"Server", string(pb.Server) + " / " + string(pb.Lang)},
				{"Player", pb.URL},
			})
			return nil
		},
	}
	cmd.Flags().IntVarP(&episode, "episode", "e", 0, "Episode number (default: first)")
	cmd.Flags().StringVar(&lang, "lang", "sub", "Audio: sub or dub")
	cmd.Flags().StringVar(&server, "server", "HD-1", "Player server: HD-1, HD-2 or HD-3")
	return cmd
}

func neighbour(ep *domain.EpisodeItem) string {
	if ep == nil {
		return "-"
	}
	return strconv.Itoa(ep.Number) + " " + ep.Title
}

func parseMalID(s string) (int, error) {
	id, err := strconv.Atoi(s)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid MyAnimeList id %q", s)
	}
	return id, nil
}
