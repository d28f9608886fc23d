package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func newPanelsCmd(a *app) *cobra.Command {
	var genes bool
	cmd := &cobra.Command{
		Use:   "panels",
		Short: "List the gene panels and the genes they cover",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			reg, err := a.loadPanels()
			if err != nil {
				return err
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			if genes {
				fmt.Fprintln(tw, "SYMBOL\tHGNC_ID\tPANEL")
				for _, g := range reg.Genes() {
					fmt.Fprintf(tw, "%s\t%s\t%s\n", g.Symbol, g.ID, g.Panel)
				}
				return tw.Flush()
			}

			fmt.Fprintln(tw, "PANEL\tGENES\tTITLE")
			for _, p := range reg.Panels() {
				fmt.Fprintf(tw, "%s\t%d\t%s\n", p.Name, len(p.Genes), p.Title)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().BoolVar(&genes, "genes", false, "list genes instead of panels")
	return cmd
}
