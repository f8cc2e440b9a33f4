package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/driftlog/driftlog/internal/pattern"
	"github.com/spf13/cobra"
)

var patternsCmd = &cobra.Command{
	Use:   "patterns",
	Short: "List the strongest active memories",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")
		return runPatterns(limit)
	},
}

func init() {
	patternsCmd.Flags().Int("limit", 20, "Maximum number of memories to list")
}

func runPatterns(limit int) error {
	store, _, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	patterns, err := store.ListTopByStrength(context.Background(), limit)
	if err != nil {
		return fmt.Errorf("failed to list memories: %w", err)
	}

	if len(patterns) == 0 {
		fmt.Println("No memories yet.")
		return nil
	}

	now := time.Now()
	for _, p := range patterns {
		decay := pattern.Decay(p.Kind, pattern.DaysSince(p.LastSeen, now))
		fmt.Printf("[%s] %s\n", p.Kind, p.Content)
		fmt.Printf("  strength %.2f  decayed %.2f  seen %dx  conf %.2f  last %s\n",
			p.Strength, p.Strength*decay, p.TimesSeen, p.Confidence,
			p.LastSeen.Format("2006-01-02"))
	}
	return nil
}
