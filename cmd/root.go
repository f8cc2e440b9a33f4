package cmd

import (
	"fmt"

	"github.com/driftlog/driftlog/internal/embed"
	"github.com/driftlog/driftlog/internal/pattern"
	"github.com/spf13/cobra"
)

// Build-time variables
var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

// SetVersion sets the version info from main
func SetVersion(v, c, d string) {
	Version = v
	Commit = c
	Date = d
}

var rootCmd = &cobra.Command{
	Use:   "driftlog",
	Short: "Driftlog - long-term pattern memory for a journaling assistant",
	Long: `Driftlog turns journal conversations into durable, scored, decaying
patterns and retrieves the most relevant ones under a token budget.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmd.Help()
	},
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the driftlog command
func Execute() error {
	return rootCmd.Execute()
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("driftlog %s (commit %s, built %s)\n", Version, Commit, Date)
	},
}

func init() {
	rootCmd.AddCommand(compactCmd)
	rootCmd.AddCommand(recallCmd)
	rootCmd.AddCommand(patternsCmd)
	rootCmd.AddCommand(pruneCmd)
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(journalCmd)
	rootCmd.AddCommand(importCmd)
	rootCmd.AddCommand(versionCmd)
}

// openStore opens the pattern store sized to the configured embedder.
func openStore() (*pattern.Store, embed.Embedder, error) {
	embedder := embed.NewDefault()
	store, err := pattern.NewStore(embedder.Dimensions())
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open pattern store: %w", err)
	}
	return store, embedder, nil
}
