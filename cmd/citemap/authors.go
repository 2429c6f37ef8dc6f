package main

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matsen/citemap/internal/author"
)

var authorsEnrichTargets bool

func init() {
	authorsCmd.Flags().BoolVar(&authorsEnrichTargets, "enrich-targets", false, "List person authors missing an affiliation or headshot")
	rootCmd.AddCommand(authorsCmd)
}

var authorsCmd = &cobra.Command{
	Use:   "authors",
	Short: "List author records",
	Long: `List author records from authors.json.

With --enrich-targets, list only people (not organizations) that are still
missing an affiliation or headshot. This is the hand-off to enrichment tools,
which write those fields directly into authors.json.`,
	Args: cobra.NoArgs,
	RunE: runAuthors,
}

// AuthorSummary is one row of the authors listing.
type AuthorSummary struct {
	Key          string `json:"key"`
	DisplayName  string `json:"displayName"`
	Organization bool   `json:"organization"`
	Records      int    `json:"records"`
}

func runAuthors(cmd *cobra.Command, args []string) error {
	root := mustFindProject()
	cfg := mustLoadConfig(root)
	stores := mustLoadStores(cfg)

	if authorsEnrichTargets {
		targets := author.EnrichTargets(stores.Authors)
		if targets == nil {
			targets = []author.Target{}
		}
		if humanOutput {
			fmt.Printf("%d authors need enrichment:\n\n", len(targets))
			for _, t := range targets {
				fmt.Printf("  %-30s %-30s missing %s\n", t.Key, t.DisplayName, strings.Join(t.Missing, ", "))
			}
		} else {
			outputJSON(targets)
		}
		return nil
	}

	counts := make(map[string]int)
	for _, rec := range stores.Records {
		for _, a := range rec.Authors {
			counts[a]++
		}
	}

	summaries := make([]AuthorSummary, 0, len(stores.Authors))
	for key, a := range stores.Authors {
		summaries = append(summaries, AuthorSummary{
			Key:          key,
			DisplayName:  a.DisplayName,
			Organization: author.IsOrganization(key, a.DisplayName),
			Records:      counts[key],
		})
	}
	sort.Slice(summaries, func(i, j int) bool { return summaries[i].Key < summaries[j].Key })

	if humanOutput {
		for _, s := range summaries {
			kind := ""
			if s.Organization {
				kind = " (org)"
			}
			fmt.Printf("%-30s %s%s  [%d]\n", s.Key, s.DisplayName, kind, s.Records)
		}
	} else {
		outputJSON(summaries)
	}
	return nil
}
