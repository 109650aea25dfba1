// Package main provides the entry point for the sn2n service.
//
// sn2n converts ServiceNow documentation HTML into Notion pages. It
// runs as an HTTP service that walks the source DOM, assembles Notion
// blocks, uploads them within the API's limits, and validates the
// created page against the source text.
package main

import (
	"os"

	"github.com/adamancini/sn2n/internal/cli"
)

// Version information set by build flags.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	cli.SetVersion(version, commit, date)
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
