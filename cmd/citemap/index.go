package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/matsen/citemap/internal/storage"
)

func init() {
	rootCmd.AddCommand(indexCmd)
}

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Rebuild the SQLite query index from the stores",
	Long: `Rebuild the SQLite query index used by 'citemap search'.

The index is disposable: it is derived entirely from the JSON stores and
can be deleted at any time.`,
	Args: cobra.NoArgs,
	RunE: runIndex,
}

// IndexResult is the response for the index command.
type IndexResult struct {
	Status          string  `json:"status"`
	Records         int     `json:"records"`
	Path            string  `json:"path"`
	DurationSeconds float64 `json:"duration_seconds"`
}

func runIndex(cmd *cobra.Command, args []string) error {
	root := mustFindProject()
	cfg := mustLoadConfig(root)
	stores := mustLoadStores(cfg)

	start := time.Now()
	if err := os.MkdirAll(filepath.Dir(cfg.IndexPath()), 0755); err != nil {
		exitWithError(ExitError, "creating data directory: %v", err)
	}
	ix, err := storage.OpenIndex(cfg.IndexPath())
	if err != nil {
		exitWithError(ExitError, "opening index: %v", err)
	}
	defer ix.Close()

	n, err := ix.Rebuild(stores)
	if err != nil {
		exitWithError(ExitError, "rebuilding index: %v", err)
	}

	result := IndexResult{
		Status:          "indexed",
		Records:         n,
		Path:            cfg.IndexPath(),
		DurationSeconds: time.Since(start).Seconds(),
	}
	if humanOutput {
		fmt.Printf("Indexed %d records in %.2fs\n", n, result.DurationSeconds)
	} else {
		outputJSON(result)
	}
	return nil
}
