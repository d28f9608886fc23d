package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/inodb/vibe-acmg/internal/datasource/alphamissense"
)

func newAlphaMissenseCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "alphamissense",
		Short: "Manage the local AlphaMissense score store",
	}
	cmd.AddCommand(newAlphaMissenseLoadCmd(a))
	return cmd
}

func newAlphaMissenseLoadCmd(a *app) *cobra.Command {
	var dbPath string
	cmd := &cobra.Command{
		Use:   "load <AlphaMissense_hg38.tsv.gz>",
		Short: "Load AlphaMissense scores from the official TSV",
		Long: `Load AlphaMissense scores from the official TSV (AlphaMissense_hg19.tsv.gz or
AlphaMissense_hg38.tsv.gz) into a DuckDB store. Rows for the file's genome
build are replaced. Set alphamissense.path to use the store when classifying.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if dbPath == "" {
				dbPath = a.cfg.AlphaMissense.Path
			}
			if dbPath == "" {
				return &usageError{msg: "set alphamissense.path or pass --db"}
			}

			store, err := alphamissense.Open(dbPath)
			if err != nil {
				return err
			}
			defer store.Close()

			start := time.Now()
			a.logger.Info("loading alphamissense", zap.String("tsv", args[0]), zap.String("db", dbPath))
			if err := store.Load(args[0]); err != nil {
				return err
			}
			n, err := store.Count()
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Loaded %d AlphaMissense scores into %s in %s\n", n, dbPath, time.Since(start).Round(time.Second))
			if viper.GetString("alphamissense.path") == "" {
				fmt.Fprintf(cmd.OutOrStdout(), "Enable with: vibe-acmg config set alphamissense.path %s\n", dbPath)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&dbPath, "db", "", "DuckDB file (default: alphamissense.path)")
	return cmd
}
