package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/matsen/citemap/internal/builder"
	"github.com/matsen/citemap/internal/matcher"
	"github.com/matsen/citemap/internal/storage"
)

var buildDryRun bool

func init() {
	buildCmd.Flags().BoolVar(&buildDryRun, "dry-run", false, "Match and report without writing the stores")
	rootCmd.AddCommand(buildCmd)
}

var buildCmd = &cobra.Command{
	Use:   "build",
	Short: "Resolve every reference list and update the stores",
	Long: `Parse the bibliography and every configured document, match each
reference-list entry to a bibliography key, and merge the result into the
stores. Fields owned by other tools are preserved. Entries that match
nothing get a synthesized record and are listed as unmatched.

Examples:
  citemap build
  citemap build --dry-run --human`,
	Args: cobra.NoArgs,
	RunE: runBuild,
}

// BuildResult is the response for the build command.
type BuildResult struct {
	Status    string              `json:"status"`
	DryRun    bool                `json:"dry_run"`
	Documents int                 `json:"documents"`
	Entries   int                 `json:"entries"`
	Records   int                 `json:"records"`
	Authors   int                 `json:"authors"`
	Stats     matcher.Stats       `json:"stats"`
	Unmatched []builder.Unmatched `json:"unmatched"`
}

func runBuild(cmd *cobra.Command, args []string) error {
	root := mustFindProject()
	cfg := mustLoadConfig(root)
	log := newLogger(cfg)

	bib := mustParseBibliography(cfg, &log)
	docs := mustParseDocuments(cfg, "")

	prior, err := storage.LoadPrior(cfg.DataPath())
	if err != nil {
		exitWithError(ExitDataError, "loading prior stores: %v", err)
	}

	res, err := builder.Build(bib, docs, builder.Prior{Records: prior.Records, Authors: prior.Authors}, builder.Options{
		Thresholds: cfg.Matcher,
		Logger:     &log,
	})
	if err != nil {
		exitWithError(ExitDataError, "%v", err)
	}

	if !buildDryRun {
		s := &storage.Stores{ChapterMap: res.ChapterMap, Records: res.Records, Authors: res.Authors}
		if err := storage.Save(cfg.DataPath(), s); err != nil {
			exitWithError(ExitError, "writing stores: %v", err)
		}
	}

	result := BuildResult{
		Status:    "built",
		DryRun:    buildDryRun,
		Documents: len(docs),
		Entries:   res.Stats.Total(),
		Records:   len(res.Records),
		Authors:   len(res.Authors),
		Stats:     res.Stats,
		Unmatched: res.Unmatched,
	}
	if buildDryRun {
		result.Status = "dry-run"
	}
	if result.Unmatched == nil {
		result.Unmatched = []builder.Unmatched{}
	}

	if humanOutput {
		printBuildHuman(result)
	} else {
		outputJSON(result)
	}
	return nil
}

func printBuildHuman(r BuildResult) {
	if r.DryRun {
		fmt.Println("Dry run: stores not written")
	}
	fmt.Printf("Documents: %d\n", r.Documents)
	fmt.Printf("Entries:   %d\n", r.Entries)
	fmt.Printf("Records:   %d\n", r.Records)
	fmt.Printf("Authors:   %d\n", r.Authors)
	fmt.Println()
	fmt.Println("Matched by:")
	for _, m := range matcher.Methods {
		fmt.Printf("  %-12s %d\n", m, r.Stats[m])
	}
	if len(r.Unmatched) > 0 {
		fmt.Printf("\nUnmatched (%d, synthesized):\n", len(r.Unmatched))
		for _, u := range r.Unmatched {
			fmt.Printf("  %s/ref-%d -> %s  %s\n", u.Slug, u.Number, u.Key, truncateString(u.Title, SearchTitleMaxLen))
		}
	}
}
