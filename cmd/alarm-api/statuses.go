package main

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"example.com/homealarm/internal/domain"
)

var statusesJSON bool

var statusesCmd = &cobra.Command{
	Use:   "statuses",
	Short: "List the accepted status tokens per event category",
	RunE: func(cmd *cobra.Command, _ []string) error {
		defs := domain.MustStatusRegistry(domain.DefaultStatuses).Definitions()

		if statusesJSON {
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(defs)
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 3, ' ', 0)
		fmt.Fprintln(w, "CATEGORY\tSTATUS")
		fmt.Fprintln(w, "--------\t------")
		for _, d := range defs {
			fmt.Fprintf(w, "%s\t%s\n", d.Category, d.Token)
		}
		return w.Flush()
	},
}

func init() {
	statusesCmd.Flags().BoolVar(&statusesJSON, "json", false, "Output results as JSON")
}
