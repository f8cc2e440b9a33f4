package cmd

import (
	"context"
	"fmt"

	"github.com/driftlog/driftlog/internal/journal"
	"github.com/spf13/cobra"
)

var journalCmd = &cobra.Command{
	Use:   "journal",
	Short: "Manage journal entries",
}

var journalAddCmd = &cobra.Command{
	Use:   "add <title> <content>",
	Short: "Add a journal entry",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runJournalAdd(args[0], args[1])
	},
}

var journalListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recent journal entries",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")
		return runJournalList(limit)
	},
}

func init() {
	journalListCmd.Flags().Int("limit", 20, "Maximum number of entries to list")
	journalCmd.AddCommand(journalAddCmd)
	journalCmd.AddCommand(journalListCmd)
}

func runJournalAdd(title, content string) error {
	store, _, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	jstore, err := journal.NewStore(store.GetDB())
	if err != nil {
		return err
	}

	entry, err := jstore.Add(context.Background(), title, content)
	if err != nil {
		return fmt.Errorf("failed to add journal entry: %w", err)
	}
	fmt.Printf("Added entry %s\n", entry.ID)
	return nil
}

func runJournalList(limit int) error {
	store, _, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	jstore, err := journal.NewStore(store.GetDB())
	if err != nil {
		return err
	}

	entries, err := jstore.List(context.Background(), limit)
	if err != nil {
		return fmt.Errorf("failed to list journal entries: %w", err)
	}

	if len(entries) == 0 {
		fmt.Println("No journal entries.")
		return nil
	}
	for _, e := range entries {
		fmt.Printf("%s  %s  %s\n", e.ID, e.CreatedAt.Format("2006-01-02"), e.Title)
	}
	return nil
}
