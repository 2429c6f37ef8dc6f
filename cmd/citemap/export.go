package main

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matsen/citemap/internal/bibtex"
	"github.com/matsen/citemap/internal/config"
	"github.com/matsen/citemap/internal/storage"
)

var (
	exportSynthetic bool
	exportKeys      string
)

func init() {
	exportCmd.Flags().BoolVar(&exportSynthetic, "synthetic", false, "Export only records that are not in the bibliography")
	exportCmd.Flags().StringVar(&exportKeys, "keys", "", "Export only specified keys (comma-separated)")
	rootCmd.AddCommand(exportCmd)
}

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export records as BibTeX",
	Long: `Export records from references.json as BibTeX, sorted by key.

With --synthetic only records the builder had to synthesize are written, so
they can be reviewed and promoted into the canonical bibliography.

Examples:
  citemap export > all.bib
  citemap export --synthetic >> references.bib
  citemap export --keys smith2020foo,lee2019bar`,
	Args: cobra.NoArgs,
	RunE: runExport,
}

func runExport(cmd *cobra.Command, args []string) error {
	root := mustFindProject()
	cfg := mustLoadConfig(root)
	stores := mustLoadStores(cfg)

	keys := exportSelection(cfg, stores)

	var b strings.Builder
	for i, key := range keys {
		rec := stores.Records[key]
		names := make([]string, 0, len(rec.Authors))
		for _, akey := range rec.Authors {
			if a, ok := stores.Authors[akey]; ok && a.DisplayName != "" {
				names = append(names, a.DisplayName)
			}
		}
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(bibtex.ToBibTeX(key, rec, names))
	}
	fmt.Print(b.String())
	return nil
}

// exportSelection returns the keys to export in sorted order.
func exportSelection(cfg *config.Config, stores *storage.Stores) []string {
	var keys []string
	if exportKeys != "" {
		for _, k := range strings.Split(exportKeys, ",") {
			k = strings.TrimSpace(k)
			if _, ok := stores.Records[k]; !ok {
				exitWithError(ExitError, "unknown key: %s", k)
			}
			keys = append(keys, k)
		}
	} else {
		for k := range stores.Records {
			keys = append(keys, k)
		}
	}

	if exportSynthetic {
		log := newLogger(cfg)
		bib := mustParseBibliography(cfg, &log)
		var synthetic []string
		for _, k := range keys {
			if _, ok := bib.Lookup(k); !ok {
				synthetic = append(synthetic, k)
			}
		}
		keys = synthetic
	}

	sort.Strings(keys)
	return keys
}
