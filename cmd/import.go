package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/driftlog/driftlog/internal/extract"
	"github.com/driftlog/driftlog/internal/importer"
	"github.com/driftlog/driftlog/internal/journal"
	"github.com/driftlog/driftlog/internal/pattern"
	"github.com/spf13/cobra"
)

var importCmd = &cobra.Command{
	Use:   "import <chatgpt|claude> <path>",
	Short: "Backfill memory from a chat-history export",
	Long: `Backfill pattern memory from a ChatGPT or Claude conversation export.
Conversations are replayed through the normal compaction pipeline, so
imported history is deduplicated and reinforced like live conversation.

Examples:
  driftlog import chatgpt conversations.json
  driftlog import claude export.jsonl
  driftlog import claude ./exports/`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runImport(args[0], args[1])
	},
}

func runImport(source, path string) error {
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

	im := importer.New(pattern.NewCompactor(store, extractor, embedder, jstore))
	ctx := context.Background()

	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("failed to stat %s: %w", path, err)
	}

	var result *importer.Result
	switch source {
	case "chatgpt":
		if info.IsDir() {
			result, err = im.ImportChatGPTDirectory(ctx, path)
		} else {
			result, err = im.ImportChatGPTFile(ctx, path)
		}
	case "claude":
		if info.IsDir() {
			result, err = im.ImportClaudeDirectory(ctx, path)
		} else {
			result, err = im.ImportClaudeFile(ctx, path)
		}
	default:
		return fmt.Errorf("unknown import source %q (want chatgpt or claude)", source)
	}
	if err != nil {
		return fmt.Errorf("import failed: %w", err)
	}

	fmt.Printf("Imported %d conversations in %s: %d created, %d reinforced\n",
		result.ConversationsProcessed, result.Duration.Round(time.Millisecond),
		result.PatternsCreated, result.PatternsReinforced)
	for _, e := range result.Errors {
		fmt.Fprintf(os.Stderr, "warning: %s\n", e)
	}
	return nil
}
