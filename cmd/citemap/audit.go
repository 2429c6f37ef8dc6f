package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/matsen/citemap/internal/audit"
)

func init() {
	rootCmd.AddCommand(auditCmd)
}

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Check documents and stores for referential integrity",
	Long: `Re-parse every document and check it against the stores.

Exit status is 0 when clean, 3 when errors were found and 4 when only
warnings were found, so the command can gate automation.`,
	Args: cobra.NoArgs,
	RunE: runAudit,
}

// AuditResult is the response for the audit command.
type AuditResult struct {
	Status audit.Status `json:"status"`
	*audit.Report
}

func runAudit(cmd *cobra.Command, args []string) error {
	root := mustFindProject()
	cfg := mustLoadConfig(root)

	docs := mustParseDocuments(cfg, "")
	stores := mustLoadStores(cfg)

	report := audit.Run(docs, stores)

	if humanOutput {
		printAuditHuman(report)
	} else {
		outputJSON(AuditResult{Status: report.Status(), Report: report})
	}

	switch report.Status() {
	case audit.StatusErrors:
		os.Exit(ExitDataError)
	case audit.StatusWarnings:
		os.Exit(ExitAuditWarnings)
	}
	return nil
}

func printAuditHuman(r *audit.Report) {
	for _, d := range r.Documents {
		fmt.Printf("%s\n", d.Slug)
		if !d.Reference {
			fmt.Println("  no references section")
		}
		fmt.Printf("  cited: %d  entries: %d  mapped: %d\n", d.Cited, d.Entries, d.Mapped)
	}
	fmt.Printf("\nRecords: %d  Authors: %d\n", r.Records, r.Authors)

	if len(r.Errors) > 0 {
		fmt.Printf("\nErrors (%d):\n", len(r.Errors))
		for _, f := range r.Errors {
			fmt.Printf("  %s\n", f)
		}
	}
	if len(r.Warnings) > 0 {
		fmt.Printf("\nWarnings (%d):\n", len(r.Warnings))
		for _, f := range r.Warnings {
			fmt.Printf("  %s\n", f)
		}
	}
	if len(r.Info) > 0 {
		fmt.Printf("\nInfo: %d unreferenced authors\n", len(r.Info))
	}
	if r.Status() == audit.StatusClean {
		fmt.Println("\nAll checks passed.")
	}
}
