package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show memory store statistics",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runStats()
	},
}

func runStats() error {
	store, _, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	ctx := context.Background()

	total, err := store.Count(ctx)
	if err != nil {
		return fmt.Errorf("failed to count memories: %w", err)
	}
	active, err := store.CountActive(ctx)
	if err != nil {
		return fmt.Errorf("failed to count active memories: %w", err)
	}
	stale, err := store.CountStale(ctx, time.Now())
	if err != nil {
		return fmt.Errorf("failed to count stale memories: %w", err)
	}
	size, err := store.Size()
	if err != nil {
		return fmt.Errorf("failed to read store size: %w", err)
	}

	fmt.Printf("Memories:       %d (%d active)\n", total, active)
	fmt.Printf("Stale events:   %d\n", stale)
	fmt.Printf("Store size:     %s\n", size)

	last, err := store.LastActivity(ctx)
	if err == nil && !last.IsZero() {
		fmt.Printf("Last activity:  %s\n", last.Format("2006-01-02 15:04:05"))
	}
	return nil
}
