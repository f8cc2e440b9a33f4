package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var pruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Deprecate event memories past their expiry",
	RunE: func(cmd *cobra.Command, args []string) error {
		dryRun, _ := cmd.Flags().GetBool("dry-run")
		return runPrune(dryRun)
	},
}

func init() {
	pruneCmd.Flags().Bool("dry-run", false, "Report stale memories without deprecating them")
}

func runPrune(dryRun bool) error {
	store, _, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	ctx := context.Background()
	now := time.Now()

	if dryRun {
		stale, err := store.CountStale(ctx, now)
		if err != nil {
			return fmt.Errorf("failed to count stale memories: %w", err)
		}
		fmt.Printf("%d event memories past expiry.\n", stale)
		return nil
	}

	expired, err := store.ExpireEventPatterns(ctx, now)
	if err != nil {
		return fmt.Errorf("prune failed: %w", err)
	}
	fmt.Printf("Deprecated %d expired event memories.\n", expired)
	return nil
}
