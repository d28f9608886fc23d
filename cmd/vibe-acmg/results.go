package main

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/inodb/vibe-acmg/internal/duckdb"
)

func newResultsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "results",
		Short: "Query classifications stored with classify --store",
	}
	cmd.AddCommand(newResultsShowCmd(a), newResultsSearchCmd(a))
	return cmd
}

func newResultsShowCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:     "show <variant>",
		Short:   "Show the stored criteria of a variant",
		Example: "  vibe-acmg results show GRCh38-17-7675088-C-T",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.queryResults(cmd.Context(), cmd.OutOrStdout(), func(ctx context.Context, s *duckdb.Store) ([]duckdb.ResultRow, error) {
				return s.LookupResults(ctx, args[0], a.cfg.Build().String())
			})
		},
	}
}

func newResultsSearchCmd(a *app) *cobra.Command {
	var gene, prediction string
	cmd := &cobra.Command{
		Use:     "search",
		Short:   "Find stored criteria by gene and prediction",
		Example: "  vibe-acmg results search --gene BRCA1 --prediction Met",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if gene == "" {
				return &usageError{msg: "--gene is required"}
			}
			return a.queryResults(cmd.Context(), cmd.OutOrStdout(), func(ctx context.Context, s *duckdb.Store) ([]duckdb.ResultRow, error) {
				return s.SearchByGene(ctx, gene, prediction)
			})
		},
	}
	cmd.Flags().StringVar(&gene, "gene", "", "gene symbol")
	cmd.Flags().StringVar(&prediction, "prediction", "Met", "prediction: Met, NotMet, NotApplicable, Failed")
	return cmd
}

func (a *app) queryResults(ctx context.Context, out io.Writer, query func(context.Context, *duckdb.Store) ([]duckdb.ResultRow, error)) error {
	store, err := a.openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	rows, err := query(ctx, store)
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		return fmt.Errorf("no stored results")
	}

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "VARIANT\tGENE\tTRANSCRIPT\tCRITERION\tPREDICTION\tSTRENGTH\tSUMMARY")
	for _, r := range rows {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			r.VariantID, r.GeneSymbol, r.TranscriptID, r.Criterion, r.Prediction, r.Strength, r.Summary)
	}
	return tw.Flush()
}
