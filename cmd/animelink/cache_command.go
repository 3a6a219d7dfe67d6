package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func newCacheCommand(a *app) *cobra.Command {
	cacheCmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect and manage the lookup cache",
	}

	cacheCmd.AddCommand(newCacheSweepCommand(a))
	cacheCmd.AddCommand(newCacheInvalidateCommand(a))

	return cacheCmd
}

func newCacheSweepCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "sweep",
		Short: "Delete expired entries from the durable cache",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := a.durable.ClearExpired(cmd.Context())
			if err != nil {
				return err
			}
			if a.jsonOut {
				return writeJSON(cmd, map[string]any{"backend": a.backend.Name(), "evicted": n})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Evicted %d expired entries from %s cache.\n", n, a.backend.Name())
			return nil
		},
	}
}

func newCacheInvalidateCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "invalidate [key|ALL]",
		Short: "Tell running processes to drop in-memory entries",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			subject := a.cfg.CacheInvalidateSubject
			if a.nc == nil || subject == "" {
				return errors.New("cache invalidate needs NATS_URL and CACHE_INVALIDATE_SUBJECT")
			}
			key := "ALL"
			if len(args) == 1 && strings.TrimSpace(args[0]) != "" {
				key = strings.TrimSpace(args[0])
			}
			if err := a.nc.Publish(subject, []byte(key)); err != nil {
				return fmt.Errorf("publish invalidation: %w", err)
			}
			if err := a.nc.FlushWithContext(cmd.Context()); err != nil {
				return fmt.Errorf("flush invalidation: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Invalidated %s on %s.\n", key, subject)
			return nil
		},
	}
}
