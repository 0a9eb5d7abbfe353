package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newReferencesCommand(opts *rootOptions) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "references",
		Short: "List recently imported reference listings",
		RunE: func(cmd *cobra.Command, _ []string) error {
			api, err := opts.newClient()
			if err != nil {
				return err
			}
			refs, err := api.RecentReferences(cmd.Context(), limit)
			if err != nil {
				return err
			}

			if opts.outputFormat == "json" {
				return printJSON(cmd.OutOrStdout(), refs)
			}
			if len(refs) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "no reference listings")
				return nil
			}
			for _, ref := range refs {
				price := "-"
				if ref.Price != nil {
					price = fmt.Sprintf("$%.2f", *ref.Price)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s  %-40s  %-12s  %s\n", ref.ID, ref.Title, ref.Brand, price)
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "maximum listings to return")
	return cmd
}

func newHistoryCommand(opts *rootOptions) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent analysis results",
		RunE: func(cmd *cobra.Command, _ []string) error {
			api, err := opts.newClient()
			if err != nil {
				return err
			}
			results, err := api.History(cmd.Context(), limit)
			if err != nil {
				return err
			}

			if opts.outputFormat == "json" {
				return printJSON(cmd.OutOrStdout(), results)
			}
			if len(results) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "no analysis history")
				return nil
			}
			for _, res := range results {
				fmt.Fprintf(cmd.OutOrStdout(), "%s  score=%.3f  tier=%-9s  %s\n",
					res.AnalyzedAt.Format("2006-01-02 15:04:05"), res.Score, res.Tier, res.ListingID)
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "maximum results to return")
	return cmd
}
