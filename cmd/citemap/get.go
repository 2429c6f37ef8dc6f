package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matsen/citemap/internal/reference"
	"github.com/matsen/citemap/internal/storage"
)

func init() {
	rootCmd.AddCommand(getCmd)
}

var getCmd = &cobra.Command{
	Use:   "get <key>",
	Short: "Get a single record by key",
	Long: `Get a single record by its canonical key, with the places it is cited.

Example:
  citemap get smith2020foo`,
	Args: cobra.ExactArgs(1),
	RunE: runGet,
}

// GetResult is the response for the get command.
type GetResult struct {
	Key     string               `json:"key"`
	Record  reference.Record     `json:"record"`
	CitedBy []reference.Location `json:"cited_by"`
}

func runGet(cmd *cobra.Command, args []string) error {
	root := mustFindProject()
	cfg := mustLoadConfig(root)
	stores := mustLoadStores(cfg)

	key := args[0]
	rec, ok := stores.Records[key]
	if !ok {
		exitWithError(ExitError, "record not found: %s", key)
	}

	order := make([]string, len(cfg.Documents))
	for i, d := range cfg.Documents {
		order[i] = d.Slug
	}
	locs := stores.ChapterMap.Locations(order)[key]
	if locs == nil {
		locs = []reference.Location{}
	}

	if humanOutput {
		printRecordDetail(key, rec, locs, stores)
	} else {
		outputJSON(GetResult{Key: key, Record: rec, CitedBy: locs})
	}
	return nil
}

func printRecordDetail(key string, rec reference.Record, locs []reference.Location, stores *storage.Stores) {
	fmt.Println(key)
	fmt.Println(strings.Repeat("=", DetailTitleMaxLen))
	fmt.Println()

	fmt.Printf("Title:    %s\n", wrapText(rec.Title, TextWrapWidth, "          "))
	if len(rec.Authors) > 0 {
		names := make([]string, len(rec.Authors))
		for i, k := range rec.Authors {
			names[i] = k
			if a, ok := stores.Authors[k]; ok && a.DisplayName != "" {
				names[i] = a.DisplayName
			}
		}
		fmt.Printf("Authors:  %s\n", wrapText(strings.Join(names, ", "), TextWrapWidth, "          "))
	}
	if rec.Year > 0 {
		fmt.Printf("Year:     %d\n", rec.Year)
	}
	if rec.Venue != "" {
		fmt.Printf("Venue:    %s\n", rec.Venue)
	}
	fmt.Printf("Type:     %s\n", rec.Type)
	if rec.URL != "" {
		fmt.Printf("URL:      %s\n", rec.URL)
	}
	if rec.DOI != "" {
		fmt.Printf("DOI:      %s\n", rec.DOI)
	}
	if len(locs) > 0 {
		where := make([]string, len(locs))
		for i, l := range locs {
			where[i] = l.String()
		}
		fmt.Printf("Cited in: %s\n", wrapText(strings.Join(where, ", "), TextWrapWidth, "          "))
	}
}
