package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/trustside/listing-sentinel/pkg/client"
)

func newAnalyzeCommand(opts *rootOptions) *cobra.Command {
	var (
		title       string
		description string
		brand       string
		price       float64
		sourceURL   string
		fromFile    string
	)

	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Analyze a listing for counterfeit risk",
		Example: `  sentinel analyze --title "Aple iPhone 15 Pro" --brand Aple --price 99
  sentinel analyze --file listing.json`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var l client.Listing
			if fromFile != "" {
				raw, err := os.ReadFile(fromFile)
				if err != nil {
					return fmt.Errorf("read listing file: %w", err)
				}
				if err := json.Unmarshal(raw, &l); err != nil {
					return fmt.Errorf("parse listing file: %w", err)
				}
			} else {
				if title == "" {
					return fmt.Errorf("--title or --file is required")
				}
				l = client.Listing{
					Title:       title,
					Description: description,
					Brand:       brand,
					SourceURL:   sourceURL,
				}
				if cmd.Flags().Changed("price") {
					l.Price = &price
				}
			}

			api, err := opts.newClient()
			if err != nil {
				return err
			}
			res, err := api.Analyze(cmd.Context(), &l)
			if err != nil {
				return err
			}

			if opts.outputFormat == "json" {
				return printJSON(cmd.OutOrStdout(), res)
			}
			printResult(cmd.OutOrStdout(), res)
			return nil
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&title, "title", "", "listing title")
	flags.StringVar(&description, "description", "", "listing description")
	flags.StringVar(&brand, "brand", "", "claimed brand")
	flags.Float64Var(&price, "price", 0, "listing price")
	flags.StringVar(&sourceURL, "url", "", "listing source URL")
	flags.StringVar(&fromFile, "file", "", "JSON file with the listing")
	return cmd
}
