package main

import (
	"github.com/spf13/cobra"
)

func newRootCommand(a *app) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "animelink",
		Short:         "Resolve MyAnimeList titles to streaming catalog episodes",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.ensure(cmd.Context())
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	rootCmd.PersistentFlags().StringVarP(&a.configPath, "config", "c", "", "TOML configuration file")
	rootCmd.PersistentFlags().BoolVar(&a.jsonOut, "json", false, "Print JSON instead of tables")

	rootCmd.AddCommand(newResolveCommand(a))
	rootCmd.AddCommand(newEpisodesCommand(a))
	rootCmd.AddCommand(newWatchCommand(a))
	rootCmd.AddCommand(newSearchCommand(a))
	rootCmd.AddCommand(newTopCommand(a))
	rootCmd.AddCommand(newHistoryCommand(a))
	rootCmd.AddCommand(newRecommendCommand(a))
	rootCmd.AddCommand(newCacheCommand(a))

	return rootCmd
}
