// Package extract turns conversation batches into candidate patterns via an
// external language-model call. The compactor consumes Candidates; it never
// sees the transport.
package extract

import "time"

// Message is one conversation message in a batch. Batches arrive ordered and
// deduplicated from the chat transport.
type Message struct {
	ID        string    `json:"id"`
	Role      string    `json:"role"` // "user", "assistant", "tool"
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// Batch is the unit of work handed to extraction: all uncompacted messages
// for one conversation.
type Batch struct {
	ConversationID string    `json:"conversation_id"`
	Messages       []Message `json:"messages"`
}

// Chars returns the total content length of the batch, used by the
// compaction trigger policy.
func (b Batch) Chars() int {
	n := 0
	for _, m := range b.Messages {
		n += len(m.Content)
	}
	return n
}

// Candidate is one proposed pattern from the extraction call.
type Candidate struct {
	Content          string   `json:"content"`
	Kind             string   `json:"kind"`
	Confidence       float64  `json:"confidence"`
	Evidence         string   `json:"evidence"`
	SourceMessageIDs []string `json:"source_message_ids"`
	Role             string   `json:"role"`     // evidence origin: "user" or "tool"
	EntryID          string   `json:"entry_id"` // journal entry this touches, if any
	Temporal         string   `json:"temporal,omitempty"`
	ExpiresAt        string   `json:"expires_at,omitempty"` // RFC 3339, event/fact only

	// Contradicts flags that the model believes this statement conflicts
	// with something previously said. Supersedes additionally signals that
	// the old statement should be retired, not just disputed.
	Contradicts bool `json:"contradicts,omitempty"`
	Supersedes  bool `json:"supersedes,omitempty"`
}
