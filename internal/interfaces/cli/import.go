package cli

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/trustside/listing-sentinel/pkg/client"
)

func newImportCommand(opts *rootOptions) *cobra.Command {
	var fromFile string

	cmd := &cobra.Command{
		Use:   "import",
		Short: "Import verified reference listings from a CSV file",
		Long: `Import reads a CSV file with a header row and imports every record as a
verified reference listing.  Recognized columns: title, description, brand,
price, source_url.  Title is required; other columns are optional.`,
		Example: `  sentinel import --file sample_products.csv`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if fromFile == "" {
				return fmt.Errorf("--file is required")
			}
			f, err := os.Open(fromFile)
			if err != nil {
				return fmt.Errorf("open csv file: %w", err)
			}
			defer f.Close()

			listings, err := parseReferenceCSV(f)
			if err != nil {
				return err
			}

			api, err := opts.newClient()
			if err != nil {
				return err
			}

			imported := 0
			for i, l := range listings {
				if _, err := api.ImportReference(cmd.Context(), l); err != nil {
					fmt.Fprintf(cmd.ErrOrStderr(), "record %d (%q): %v\n", i+1, l.Title, err)
					continue
				}
				imported++
			}
			fmt.Fprintf(cmd.OutOrStdout(), "imported %d of %d reference listings\n", imported, len(listings))
			return nil
		},
	}

	cmd.Flags().StringVar(&fromFile, "file", "", "CSV file with reference listings")
	return cmd
}

// parseReferenceCSV reads listings from a headed CSV stream.  Unknown columns
// are ignored; rows with an empty title are skipped.
func parseReferenceCSV(r io.Reader) ([]*client.Listing, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("read csv header: %w", err)
	}
	cols := make(map[string]int, len(header))
	for i, name := range header {
		cols[strings.ToLower(strings.TrimSpace(name))] = i
	}
	if _, ok := cols["title"]; !ok {
		return nil, fmt.Errorf("csv header must contain a title column")
	}

	field := func(record []string, name string) string {
		idx, ok := cols[name]
		if !ok || idx >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[idx])
	}

	var out []*client.Listing
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read csv record: %w", err)
		}

		title := field(record, "title")
		if title == "" {
			continue
		}
		l := &client.Listing{
			Title:       title,
			Description: field(record, "description"),
			Brand:       field(record, "brand"),
			SourceURL:   field(record, "source_url"),
		}
		if raw := field(record, "price"); raw != "" {
			if p, err := strconv.ParseFloat(raw, 64); err == nil {
				l.Price = &p
			}
		}
		out = append(out, l)
	}
	return out, nil
}
