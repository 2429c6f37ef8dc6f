package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/matsen/citemap/internal/config"
)

func init() {
	rootCmd.AddCommand(initCmd)
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a starter citemap.yml",
	Long: `Create a starter citemap.yml in the current directory.

Edit it to point at the BibTeX file and list the HTML documents in the
order they should be processed, then run 'citemap build'.`,
	Args: cobra.NoArgs,
	RunE: runInit,
}

func runInit(cmd *cobra.Command, args []string) error {
	root, err := os.Getwd()
	if err != nil {
		exitWithError(ExitError, "getting current directory: %v", err)
	}

	if config.IsProject(root) {
		exitWithError(ExitError, "directory already contains %s", config.ConfigFile)
	}

	if err := config.Starter().Save(root); err != nil {
		exitWithError(ExitError, "%v", err)
	}

	path := config.ConfigPath(root)
	if humanOutput {
		fmt.Printf("Created %s\n", path)
	} else {
		outputJSON(StatusResponse{Status: "created", Path: path})
	}
	return nil
}
