// Package cli implements the sentinel command-line tool, a thin client over
// the REST API for analysts and operators.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/trustside/listing-sentinel/pkg/client"
)

// Build-time variables injected via ldflags.
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// rootOptions holds the global flags.
type rootOptions struct {
	serverAddr   string
	outputFormat string
	timeout      time.Duration
}

func (o *rootOptions) newClient() (*client.Client, error) {
	return client.New(o.serverAddr, client.WithTimeout(o.timeout))
}

// NewRootCommand builds the sentinel command tree.
func NewRootCommand() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "sentinel",
		Short: "Counterfeit-listing risk analysis",
		Long: `sentinel analyzes marketplace listings for counterfeit risk and manages
the verified reference corpus, talking to a running listing-sentinel server.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := cmd.PersistentFlags()
	flags.StringVarP(&opts.serverAddr, "server", "s", "http://localhost:8080", "server base URL")
	flags.StringVarP(&opts.outputFormat, "output", "o", "text", "output format: text or json")
	flags.DurationVar(&opts.timeout, "timeout", 30*time.Second, "request timeout")

	cmd.AddCommand(
		newAnalyzeCommand(opts),
		newImportCommand(opts),
		newReferencesCommand(opts),
		newHistoryCommand(opts),
		newVersionCommand(),
	)
	return cmd
}

// printJSON writes v as indented JSON.
func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// printResult renders an analysis result for terminals.
func printResult(w io.Writer, res *client.AnalysisResult) {
	fmt.Fprintf(w, "Listing:  %s\n", res.ListingID)
	fmt.Fprintf(w, "Score:    %.3f\n", res.Score)
	fmt.Fprintf(w, "Tier:     %s\n", res.Tier)

	if len(res.Signals) > 0 {
		fmt.Fprintln(w, "Signals:")
		for _, s := range res.Signals {
			if s.Diagnostic {
				fmt.Fprintf(w, "  - [%s] %s: did not run (%s)\n", s.Category, s.Name, s.Evidence)
				continue
			}
			fmt.Fprintf(w, "  - [%s] %s (%.2f): %s\n", s.Category, s.Name, s.Contribution, s.Evidence)
		}
	}
	if len(res.Neighbors) > 0 {
		fmt.Fprintln(w, "Similar references:")
		for _, n := range res.Neighbors {
			title := ""
			if n.Listing != nil {
				title = n.Listing.Title
			}
			fmt.Fprintf(w, "  %d. %s (similarity %.2f)\n", n.Rank+1, title, n.Similarity)
		}
	}
	if res.Explanation != nil && res.Explanation.Summary != "" {
		fmt.Fprintf(w, "Explanation: %s\n", res.Explanation.Summary)
	}
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "sentinel %s (commit %s, built %s)\n", Version, GitCommit, BuildDate)
		},
	}
}
