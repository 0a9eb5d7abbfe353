// Command sentinel is the command-line client for a running listing-sentinel
// API server.
package main

import (
	"fmt"
	"os"

	"github.com/trustside/listing-sentinel/internal/interfaces/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "sentinel: %v\n", err)
		os.Exit(1)
	}
}
