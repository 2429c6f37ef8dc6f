package main

import (
	"fmt"
	"os"
	"sort"
	"strconv"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/matsen/citemap/internal/document"
	"github.com/matsen/citemap/internal/renumber"
	"github.com/matsen/citemap/internal/storage"
)

var (
	dedupDryRun  bool
	dedupDoc     string
	pruneDoc     string
	pruneOrphans bool
	pruneDryRun  bool
)

func init() {
	dedupCmd.Flags().BoolVar(&dedupDryRun, "dry-run", false, "Report the plan without rewriting anything")
	dedupCmd.Flags().StringVar(&dedupDoc, "doc", "", "Only process the document with this slug")
	rootCmd.AddCommand(dedupCmd)

	pruneCmd.Flags().StringVar(&pruneDoc, "doc", "", "Document slug (required)")
	pruneCmd.Flags().BoolVar(&pruneOrphans, "orphans", false, "Remove every entry that is never cited")
	pruneCmd.Flags().BoolVar(&pruneDryRun, "dry-run", false, "Report the plan without rewriting anything")
	pruneCmd.MarkFlagRequired("doc")
	rootCmd.AddCommand(pruneCmd)
}

var dedupCmd = &cobra.Command{
	Use:   "dedup",
	Short: "Collapse duplicate citations and renumber reference lists",
	Long: `For each document, entries that resolve to the same key are collapsed
onto the lowest number, citations are redirected, and the remaining entries
are renumbered 1..K. The HTML and the chapter map are rewritten in place;
run 'citemap build' afterwards.

Examples:
  citemap dedup --dry-run
  citemap dedup --doc chapter2`,
	Args: cobra.NoArgs,
	RunE: runDedup,
}

var pruneCmd = &cobra.Command{
	Use:   "prune --doc <slug> [number...]",
	Short: "Remove reference-list entries and renumber",
	Long: `Remove the given entries (or, with --orphans, every uncited entry) from
one document and renumber the rest 1..K. Cited entries cannot be removed.

Examples:
  citemap prune --doc index --orphans
  citemap prune --doc chapter2 14 15`,
	RunE: runPrune,
}

// DocumentChange describes what a plan did to one document.
type DocumentChange struct {
	Slug      string      `json:"slug"`
	Changed   bool        `json:"changed"`
	Entries   int         `json:"entries"`
	Kept      int         `json:"kept"`
	Removed   []int       `json:"removed"`
	Redirects map[int]int `json:"redirects,omitempty"`
	Unremoved []int       `json:"unremoved,omitempty"`
	Unlocated []int       `json:"unlocated,omitempty"`
	Rewritten int         `json:"citations_rewritten"`
}

// RenumberResult is the response for the dedup and prune commands.
type RenumberResult struct {
	Status    string           `json:"status"`
	DryRun    bool             `json:"dry_run"`
	Documents []DocumentChange `json:"documents"`
}

func runDedup(cmd *cobra.Command, args []string) error {
	root := mustFindProject()
	cfg := mustLoadConfig(root)
	log := newLogger(cfg)

	stores := mustLoadStores(cfg)
	docs := mustParseDocuments(cfg, dedupDoc)

	plans := make([]*renumber.Plan, len(docs))
	for i, doc := range docs {
		plans[i] = renumber.PlanDedup(stores.ChapterMap[doc.Slug])
	}
	runRenumber(docs, plans, stores, cfg.DataPath(), dedupDryRun, &log)
	return nil
}

func runPrune(cmd *cobra.Command, args []string) error {
	if pruneOrphans == (len(args) > 0) {
		exitWithError(ExitError, "give either entry numbers or --orphans")
	}

	root := mustFindProject()
	cfg := mustLoadConfig(root)
	log := newLogger(cfg)

	stores := mustLoadStores(cfg)
	doc := mustParseDocuments(cfg, pruneDoc)[0]
	counts := doc.CitationCounts()

	var remove []int
	if pruneOrphans {
		for _, n := range doc.EntryNumbers() {
			if counts[n] == 0 {
				remove = append(remove, n)
			}
		}
	} else {
		for _, a := range args {
			n, err := strconv.Atoi(a)
			if err != nil || n < 1 {
				exitWithError(ExitError, "invalid entry number: %s", a)
			}
			if counts[n] > 0 {
				exitWithError(ExitDataError, "%s/ref-%d is cited %d times; remove its citations first", doc.Slug, n, counts[n])
			}
			remove = append(remove, n)
		}
	}
	sort.Ints(remove)

	plan := renumber.PlanRemoval(stores.ChapterMap[doc.Slug], remove)
	runRenumber([]*document.Document{doc}, []*renumber.Plan{plan}, stores, cfg.DataPath(), pruneDryRun, &log)
	return nil
}

// runRenumber applies one plan per document, writes the changed documents
// and the chapter map, and reports. Entries that could not be removed and
// markers that could not be renumbered are reported and turn the exit
// status into a data error after everything else has been written.
func runRenumber(docs []*document.Document, plans []*renumber.Plan, stores *storage.Stores, dataDir string, dryRun bool, log *zerolog.Logger) {
	result := RenumberResult{Status: "unchanged", DryRun: dryRun, Documents: []DocumentChange{}}
	unremoved := false

	for i, doc := range docs {
		plan := plans[i]
		frag := stores.ChapterMap[doc.Slug]
		change := DocumentChange{
			Slug:      doc.Slug,
			Changed:   plan.Changed(),
			Entries:   len(plan.Numbers),
			Kept:      len(plan.Kept),
			Removed:   nonNilInts(plan.Removed),
			Redirects: plan.Redirect,
		}
		if len(change.Redirects) == 0 {
			change.Redirects = nil
		}
		if !change.Changed {
			result.Documents = append(result.Documents, change)
			continue
		}
		result.Status = "changed"

		out, err := renumber.Apply(doc, frag, plan, log)
		if err != nil {
			exitWithError(ExitDataError, "%v", err)
		}
		change.Unremoved = out.Unremoved
		change.Unlocated = out.Unlocated
		change.Rewritten = out.Rewritten
		if len(out.Unremoved) > 0 || len(out.Unlocated) > 0 {
			unremoved = true
		}
		result.Documents = append(result.Documents, change)

		if dryRun {
			continue
		}
		if err := storage.WriteFileAtomic(doc.Path, out.HTML); err != nil {
			exitWithError(ExitError, "writing %s: %v", doc.Path, err)
		}
		stores.ChapterMap[doc.Slug] = out.Fragment
	}

	if result.Status == "changed" && !dryRun {
		if err := storage.Save(dataDir, stores); err != nil {
			exitWithError(ExitError, "writing stores: %v", err)
		}
	}
	if dryRun && result.Status == "changed" {
		result.Status = "dry-run"
	}

	if humanOutput {
		printRenumberHuman(result)
	} else {
		outputJSON(result)
	}
	if unremoved {
		os.Exit(ExitDataError)
	}
}

func printRenumberHuman(r RenumberResult) {
	if r.DryRun {
		fmt.Println("Dry run: nothing written")
	}
	for _, d := range r.Documents {
		if !d.Changed {
			fmt.Printf("%s: no changes needed\n", d.Slug)
			continue
		}
		fmt.Printf("%s: %d -> %d entries", d.Slug, d.Entries, d.Kept)
		if len(d.Removed) > 0 {
			fmt.Printf(", removed %v", d.Removed)
		}
		fmt.Printf(", %d citations rewritten\n", d.Rewritten)
		for _, n := range d.Unremoved {
			fmt.Printf("  could not remove ref-%d, fix it by hand\n", n)
		}
		for _, n := range d.Unlocated {
			fmt.Printf("  could not renumber a marker or id for ref-%d, fix it by hand\n", n)
		}
	}
	if r.Status == "changed" {
		fmt.Println("\nRun 'citemap build' to refresh the stores.")
	}
}

func nonNilInts(s []int) []int {
	if s == nil {
		return []int{}
	}
	return s
}
