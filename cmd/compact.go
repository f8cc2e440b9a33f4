package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/driftlog/driftlog/internal/extract"
	"github.com/driftlog/driftlog/internal/journal"
	"github.com/driftlog/driftlog/internal/pattern"
	"github.com/spf13/cobra"
)

var compactCmd = &cobra.Command{
	Use:   "compact <conversation-id>",
	Short: "Run one compaction over a message batch",
	Long: `Run one compaction over a message batch read from --file or stdin.

The batch is a JSON array of messages:
  [{"id": "m1", "role": "user", "content": "...", "timestamp": "2026-08-01T09:00:00Z"}, ...]

Examples:
  driftlog compact morning-chat --file batch.json
  cat batch.json | driftlog compact morning-chat`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		file, _ := cmd.Flags().GetString("file")
		return runCompact(args[0], file)
	},
}

func init() {
	compactCmd.Flags().String("file", "", "Batch JSON file (defaults to stdin)")
}

func runCompact(conversationID, file string) error {
	var r io.Reader = os.Stdin
	if file != "" {
		f, err := os.Open(file)
		if err != nil {
			return fmt.Errorf("failed to open batch file: %w", err)
		}
		defer f.Close()
		r = f
	}

	var messages []extract.Message
	if err := json.NewDecoder(r).Decode(&messages); err != nil {
		return fmt.Errorf("failed to decode batch: %w", err)
	}
	if len(messages) == 0 {
		fmt.Println("Nothing to compact.")
		return nil
	}

	extractor, err := extract.NewAnthropicExtractor()
	if err != nil {
		return fmt.Errorf("extraction unavailable: %w", err)
	}

	store, embedder, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	jstore, err := journal.NewStore(store.GetDB())
	if err != nil {
		return err
	}

	compactor := pattern.NewCompactor(store, extractor, embedder, jstore)
	summary, err := compactor.Run(context.Background(), extract.Batch{
		ConversationID: conversationID,
		Messages:       messages,
	})
	if err != nil {
		if errors.Is(err, pattern.ErrRunInFlight) {
			fmt.Println("Compaction already running for this conversation; dropped.")
			return nil
		}
		return fmt.Errorf("compaction failed: %w", err)
	}

	fmt.Printf("Compacted: %d created, %d reinforced", summary.Created, summary.Reinforced)
	if summary.StaleEventCount > 0 {
		fmt.Printf(" (%d stale event memories awaiting prune)", summary.StaleEventCount)
	}
	fmt.Println()
	return nil
}
