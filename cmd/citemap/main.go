// Package main provides the citemap CLI entry point.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/matsen/citemap/internal/bibtex"
	"github.com/matsen/citemap/internal/config"
	"github.com/matsen/citemap/internal/document"
	"github.com/matsen/citemap/internal/logging"
	"github.com/matsen/citemap/internal/storage"
)

// Version is set at build time via ldflags
var Version = "dev"

var (
	// humanOutput controls whether to use human-readable output
	humanOutput bool
	// logLevel overrides LOG_LEVEL and the config's log_level
	logLevel string
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		// Print the error since we have SilenceErrors: true
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(ExitError)
	}
}

var rootCmd = &cobra.Command{
	Use:   "citemap",
	Short: "Resolve a publication's citations into a shared bibliography",
	Long: `citemap resolves every document's reference list against one BibTeX
file and maintains three JSON stores:

  chapter-map.json  document slug -> local number -> canonical key
  references.json   canonical key -> bibliographic record
  authors.json      author key -> author record

Fields written by other tools (screenshots, affiliations, links) survive
rebuilds. All commands output JSON by default.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&humanOutput, "human", false, "Use human-readable output instead of JSON")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (trace, debug, info, warn, error)")
	rootCmd.Version = Version
}

// mustFindProject finds the project root and loads its .env, exits on error.
func mustFindProject() string {
	root, err := config.FindProject("")
	if err != nil {
		if errors.Is(err, config.ErrNoProject) {
			exitWithError(ExitConfigError, "%v\n\nRun 'citemap init' to create one.", err)
		}
		exitWithError(ExitConfigError, "finding project: %v", err)
	}
	if err := config.LoadEnv(root); err != nil {
		exitWithError(ExitConfigError, "%v", err)
	}
	return root
}

// mustLoadConfig loads configuration, exits on error.
func mustLoadConfig(root string) *config.Config {
	cfg, err := config.Load(root)
	if err != nil {
		exitWithError(ExitConfigError, "loading config: %v", err)
	}
	return cfg
}

// newLogger builds the command logger. --log-level beats LOG_LEVEL, which
// beats the config's log_level.
func newLogger(cfg *config.Config) zerolog.Logger {
	lc := logging.DefaultConfig()
	if lc.Level == "" && cfg != nil {
		lc.Level = cfg.LogLevel
	}
	if logLevel != "" {
		lc.Level = logLevel
	}
	return logging.New(lc)
}

// mustParseBibliography parses the configured BibTeX file, exits on error.
// Malformed entries are logged and skipped.
func mustParseBibliography(cfg *config.Config, log *zerolog.Logger) *bibtex.Bibliography {
	bib, err := bibtex.ParseFile(cfg.BibliographyPath())
	if err != nil {
		exitWithError(ExitDataError, "%v", err)
	}
	for _, pe := range bib.Errors {
		log.Warn().Int("line", pe.Line).Str("error", pe.Message).Msg("Skipped malformed bibliography entry")
	}
	return bib
}

// mustParseDocuments parses the selected documents in declared order. An
// empty only selects every document.
func mustParseDocuments(cfg *config.Config, only string) []*document.Document {
	var docs []*document.Document
	for _, d := range cfg.Documents {
		if only != "" && d.Slug != only {
			continue
		}
		doc, err := document.ParseFile(d.Slug, cfg.Resolve(d.Path))
		if err != nil {
			exitWithError(ExitDataError, "%v", err)
		}
		docs = append(docs, doc)
	}
	if only != "" && len(docs) == 0 {
		exitWithError(ExitConfigError, "unknown document: %s", only)
	}
	return docs
}

// mustLoadStores loads the JSON stores, exits on error.
func mustLoadStores(cfg *config.Config) *storage.Stores {
	s, err := storage.Load(cfg.DataPath())
	if err != nil {
		if errors.Is(err, storage.ErrStoreNotFound) {
			exitWithError(ExitDataError, "%v\n\nRun 'citemap build' first.", err)
		}
		exitWithError(ExitDataError, "loading stores: %v", err)
	}
	return s
}

// mustOpenIndex opens the SQLite query index, exits on error.
// The caller is responsible for calling Close() on the returned Index.
func mustOpenIndex(cfg *config.Config) *storage.Index {
	if _, err := os.Stat(cfg.IndexPath()); os.IsNotExist(err) {
		exitWithError(ExitConfigError, "query index not found\n\nRun 'citemap index' to create it.")
	}
	ix, err := storage.OpenIndex(cfg.IndexPath())
	if err != nil {
		exitWithError(ExitError, "opening index: %v", err)
	}
	return ix
}
