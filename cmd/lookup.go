package cmd

import (
	"fmt"
	"io"
	"net/http"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/ginjaninja78/lei-enricher/internal/enrichment"
	"github.com/ginjaninja78/lei-enricher/internal/logger"
	"github.com/ginjaninja78/lei-enricher/internal/registry"
)

// lookupFormat selects the lookup output format.
var lookupFormat string

// lookupCmd fetches and prints registry records without touching any file.
var lookupCmd = &cobra.Command{
	Use:   "lookup LEI [LEI...]",
	Short: "Fetch and print registry records for one or more LEIs",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		log := logger.FromContext(cmd.Context())
		client := registry.NewClient(mainConfig.Registry, &http.Client{}, log)

		leis := uniqueArgs(args)
		entities, err := client.Lookup(cmd.Context(), leis)
		if err != nil {
			return err
		}

		switch lookupFormat {
		case "yaml":
			return printEntitiesYAML(cmd.OutOrStdout(), entities)
		case "table", "":
			printEntitiesTable(cmd.OutOrStdout(), leis, entities)
			return nil
		default:
			return fmt.Errorf("unknown format %q (want table or yaml)", lookupFormat)
		}
	},
}

func init() {
	rootCmd.AddCommand(lookupCmd)
	lookupCmd.Flags().StringVar(&lookupFormat, "format", "table", "Output format: table or yaml")
}

// uniqueArgs trims and deduplicates identifiers, keeping first-seen order.
func uniqueArgs(args []string) []string {
	seen := make(map[string]bool, len(args))
	var out []string
	for _, a := range args {
		a = strings.TrimSpace(a)
		if a == "" || seen[a] {
			continue
		}
		seen[a] = true
		out = append(out, a)
	}
	return out
}

func printEntitiesTable(out io.Writer, requested []string, entities []registry.Entity) {
	index := registry.NewIndex(entities)

	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "LEI\tNAME\tBIC\tCOUNTRY\tCOSTS")
	for _, lei := range requested {
		e, ok := index.Get(lei)
		if !ok {
			fmt.Fprintf(tw, "%s\t(not found)\t\t\t\n", lei)
			continue
		}
		costs := "unsupported"
		if enrichment.Supported(e.Country) {
			costs = "supported"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
			e.LEI, e.LegalName, strings.Join(e.BIC, enrichment.BICSeparator), e.Country, costs)
	}
	tw.Flush()
}

func printEntitiesYAML(out io.Writer, entities []registry.Entity) error {
	enc := yaml.NewEncoder(out)
	enc.SetIndent(2)
	if err := enc.Encode(entities); err != nil {
		return fmt.Errorf("failed to encode records: %w", err)
	}
	return enc.Close()
}
