package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newCacheCommand(ctx *commandContext) *cobra.Command {
	cacheCmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect and reset the response cache",
	}
	cacheCmd.AddCommand(newCacheStatsCommand(ctx))
	cacheCmd.AddCommand(newCacheClearCommand(ctx))
	return cacheCmd
}

func newCacheStatsCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show cache location and entry counts",
		RunE: func(cmd *cobra.Command, args []string) error {
			store := ctx.openCache()
			if store == nil {
				return fmt.Errorf("cache unavailable")
			}
			defer store.Close()

			stats, err := store.Stats(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Cache database: %s\n", store.Path())
			fmt.Fprintf(out, "Entries: %d (%d live, %d expired)\n",
				stats.Entries, stats.Live, stats.Entries-stats.Live)
			return nil
		},
	}
}

func newCacheClearCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Remove every cached response",
		RunE: func(cmd *cobra.Command, args []string) error {
			store := ctx.openCache()
			if store == nil {
				return fmt.Errorf("cache unavailable")
			}
			defer store.Close()

			if err := store.Clear(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Cache cleared")
			return nil
		},
	}
}
