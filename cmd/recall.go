package cmd

import (
	"context"
	"fmt"

	"github.com/driftlog/driftlog/internal/pattern"
	"github.com/spf13/cobra"
)

var recallCmd = &cobra.Command{
	Use:   "recall <query>",
	Short: "Retrieve memories relevant to a prompt",
	Long: `Retrieve the memories most relevant to a prompt, ranked by similarity
weighted with reinforcement strength and decay, then diversified and
trimmed to a token budget.

Examples:
  driftlog recall "how do I handle conflict at work"
  driftlog recall "sleep" --budget 200 --limit 5`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		budget, _ := cmd.Flags().GetInt("budget")
		limit, _ := cmd.Flags().GetInt("limit")
		return runRecall(args[0], budget, limit)
	},
}

func init() {
	recallCmd.Flags().Int("budget", 600, "Token budget for recalled memories")
	recallCmd.Flags().Int("limit", 10, "Maximum number of memories to recall")
}

func runRecall(query string, budget, limit int) error {
	store, embedder, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	queryEmbedding, err := embedder.Embed(query)
	if err != nil {
		return fmt.Errorf("failed to embed query: %w", err)
	}
	ctx := context.Background()

	retriever := pattern.NewRetriever(store)
	retrieval, err := retriever.RetrieveForPrompt(ctx, queryEmbedding, budget, limit)
	if err != nil {
		return fmt.Errorf("recall failed: %w", err)
	}

	if len(retrieval.Results) == 0 {
		fmt.Println("No relevant memories.")
		return nil
	}

	for i, res := range retrieval.Results {
		fmt.Printf("%d. [%s] %s\n", i+1, res.Pattern.Kind, res.Pattern.Content)
		fmt.Printf("   score %.3f  sim %.3f  seen %dx  last %s\n",
			res.Score, res.Similarity, res.Pattern.TimesSeen,
			res.Pattern.LastSeen.Format("2006-01-02"))
	}
	if len(retrieval.ExcludedIDs) > 0 {
		fmt.Printf("(%d more relevant memories excluded by token budget)\n", len(retrieval.ExcludedIDs))
	}
	return nil
}
