package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matsen/citemap/internal/reference"
	"github.com/matsen/citemap/internal/storage"
)

var (
	searchLimit int
	searchYear  int
	searchType  string
)

func init() {
	searchCmd.Flags().IntVar(&searchLimit, "limit", DefaultSearchLimit, "Maximum results to return")
	searchCmd.Flags().IntVar(&searchYear, "year", 0, "Filter by exact year")
	searchCmd.Flags().StringVar(&searchType, "type", "", "Filter by record type (journal, conference, preprint, ...)")
	rootCmd.AddCommand(searchCmd)
}

var searchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Search records by title, author, venue or key",
	Long: `Full-text search over the query index. Run 'citemap index' after a
build to refresh it.

Examples:
  citemap search phylogenetic
  citemap search "variational inference" --year 2020
  citemap search --type preprint`,
	Args: cobra.MaximumNArgs(1),
	RunE: runSearch,
}

func runSearch(cmd *cobra.Command, args []string) error {
	root := mustFindProject()
	cfg := mustLoadConfig(root)
	ix := mustOpenIndex(cfg)
	defer ix.Close()

	filters := storage.SearchFilters{Year: searchYear, Type: reference.RecordType(searchType)}
	if len(args) == 1 {
		filters.Query = args[0]
	}
	if filters.Query == "" && filters.Year == 0 && filters.Type == "" {
		exitWithError(ExitError, "give a query, --year or --type")
	}

	hits, err := ix.Search(filters, searchLimit)
	if err != nil {
		exitWithError(ExitError, "%v", err)
	}
	if hits == nil {
		hits = []storage.Hit{}
	}

	if humanOutput {
		if len(hits) == 0 {
			fmt.Println("No records found")
			return nil
		}
		fmt.Printf("Found %d records:\n\n", len(hits))
		for i, h := range hits {
			printHitSummary(i+1, h)
		}
	} else {
		outputJSON(hits)
	}
	return nil
}

func printHitSummary(num int, h storage.Hit) {
	fmt.Printf("%d. %s\n", num, h.Key)
	fmt.Printf("   %s\n", truncateString(h.Title, SearchTitleMaxLen))
	meta := []string{string(h.Type)}
	if h.Year > 0 {
		meta = append(meta, fmt.Sprint(h.Year))
	}
	if h.Venue != "" {
		meta = append(meta, truncateString(h.Venue, 40))
	}
	fmt.Printf("   %s\n\n", strings.Join(meta, " | "))
}
