// Package importer backfills pattern memory from chat-history exports.
// Each exported conversation is replayed through the normal compaction
// pipeline, so imported history obeys the same dedup, reinforcement, and
// contradiction rules as live conversation.
package importer

import (
	"context"
	"fmt"
	"time"

	"github.com/driftlog/driftlog/internal/extract"
	"github.com/driftlog/driftlog/internal/pattern"
)

// Result tracks import statistics
type Result struct {
	ConversationsProcessed int
	BatchesCompacted       int
	PatternsCreated        int
	PatternsReinforced     int
	Errors                 []string
	Duration               time.Duration
}

// Importer replays exported conversations through a compactor.
type Importer struct {
	compactor *pattern.Compactor

	// batchChars caps one extraction call's transcript size; long
	// conversations are split to stay within it.
	batchChars int
}

// New creates an importer over the compaction pipeline.
func New(compactor *pattern.Compactor) *Importer {
	return &Importer{
		compactor:  compactor,
		batchChars: pattern.DefaultTriggerPolicy.MaxUncompactedChars,
	}
}

// compactConversation splits one conversation's messages into size-bounded
// batches and runs each through the compactor. Per-batch failures are
// recorded and the rest of the conversation proceeds.
func (im *Importer) compactConversation(ctx context.Context, conversationID string, messages []extract.Message, result *Result) {
	if len(messages) == 0 {
		return
	}
	result.ConversationsProcessed++

	var batch []extract.Message
	chars := 0
	flush := func() {
		if len(batch) == 0 {
			return
		}
		summary, err := im.compactor.Run(ctx, extract.Batch{
			ConversationID: conversationID,
			Messages:       batch,
		})
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("conversation %s: %v", conversationID, err))
		} else {
			result.BatchesCompacted++
			result.PatternsCreated += summary.Created
			result.PatternsReinforced += summary.Reinforced
		}
		batch = nil
		chars = 0
	}

	for _, m := range messages {
		if len(batch) > 0 && chars+len(m.Content) > im.batchChars {
			flush()
		}
		batch = append(batch, m)
		chars += len(m.Content)
	}
	flush()
}
