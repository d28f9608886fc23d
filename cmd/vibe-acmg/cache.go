package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

func newCacheCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect and maintain the response cache",
		Long:  "Inspect and maintain the DuckDB database at cache.path holding cached service responses and stored classifications.",
	}
	cmd.AddCommand(newCacheStatsCmd(a), newCacheClearCmd(a), newCachePruneCmd(a))
	return cmd
}

func newCacheStatsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show cache statistics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := a.openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			st, err := store.Stats(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Path:            %s\n", store.Path())
			fmt.Fprintf(out, "Responses:       %d\n", st.Responses)
			fmt.Fprintf(out, "Classifications: %d\n", st.Classifications)
			if st.Responses > 0 {
				fmt.Fprintf(out, "Oldest response: %s\n", st.Oldest.Format(time.RFC3339))
				fmt.Fprintf(out, "Newest response: %s\n", st.Newest.Format(time.RFC3339))
			}
			return nil
		},
	}
}

func newCacheClearCmd(a *app) *cobra.Command {
	var results bool
	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Remove all cached responses",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := a.openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			if err := store.ClearResponses(cmd.Context()); err != nil {
				return fmt.Errorf("clear responses: %w", err)
			}
			if results {
				if err := store.ClearResults(cmd.Context()); err != nil {
					return fmt.Errorf("clear results: %w", err)
				}
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Cleared %s\n", store.Path())
			return nil
		},
	}
	cmd.Flags().BoolVar(&results, "results", false, "also remove stored classifications")
	return cmd
}

func newCachePruneCmd(a *app) *cobra.Command {
	var olderThan time.Duration
	cmd := &cobra.Command{
		Use:     "prune",
		Short:   "Remove cached responses older than a given age",
		Example: "  vibe-acmg cache prune --older-than 720h",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if olderThan <= 0 {
				return &usageError{msg: "--older-than must be positive"}
			}
			store, err := a.openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			n, err := store.PruneResponses(cmd.Context(), olderThan)
			if err != nil {
				return fmt.Errorf("prune responses: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed %d responses older than %s\n", n, olderThan)
			return nil
		},
	}
	cmd.Flags().DurationVar(&olderThan, "older-than", 30*24*time.Hour, "maximum age of kept responses")
	return cmd
}
