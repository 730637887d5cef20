// =============================================================================
// LEI Enricher - Main Entry Point
// =============================================================================
//
// This is the main entry point for the LEI Enricher CLI application. It
// delegates command execution to the cmd package.
//
// USAGE:
//   enricher                - Enrich Data.csv into Output.csv
//   enricher enrich         - Enrich a chosen input file
//   enricher lookup LEI...  - Print registry records
//   enricher version        - Display the application version
//
// ARCHITECTURE:
//   - cmd/           : CLI command definitions (Cobra)
//   - internal/      : Core logic (registry client, enrichment, pipeline)
//   - pkg/           : Shared file utilities
//
// =============================================================================

package main

import (
	"github.com/ginjaninja78/lei-enricher/cmd"
)

func main() {
	cmd.Execute()
}
