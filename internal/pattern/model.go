// Package pattern implements Driftlog's long-term pattern memory: durable,
// scored, decaying, deduplicated belief-like records extracted from
// conversation, and budget-capped retrieval over them.
package pattern

import (
	"errors"
	"time"
)

// Kind classifies what a pattern asserts. Immutable after creation; a kind
// change is modeled as supersession, never mutation.
type Kind string

const (
	KindBehavior   Kind = "behavior"
	KindEmotion    Kind = "emotion"
	KindBelief     Kind = "belief"
	KindGoal       Kind = "goal"
	KindPreference Kind = "preference"
	KindTemporal   Kind = "temporal"
	KindCausal     Kind = "causal"
	KindFact       Kind = "fact"
	KindEvent      Kind = "event"
)

// validKinds is the closed set of recognized kinds.
var validKinds = map[Kind]bool{
	KindBehavior: true, KindEmotion: true, KindBelief: true,
	KindGoal: true, KindPreference: true, KindTemporal: true,
	KindCausal: true, KindFact: true, KindEvent: true,
}

// ValidKind reports whether s names a recognized pattern kind.
func ValidKind(s string) bool {
	return validKinds[Kind(s)]
}

// Status is the lifecycle state of a pattern. Transitions only move forward:
// active is initial, deprecated and superseded are terminal.
type Status string

const (
	StatusActive     Status = "active"
	StatusDeprecated Status = "deprecated"
	StatusSuperseded Status = "superseded"
)

// Relation types between patterns.
const (
	RelSupports    = "supports"
	RelContradicts = "contradicts"
	RelSupersedes  = "supersedes"
)

// Entry link sources.
const (
	LinkSourceCompaction = "compaction"
	LinkSourceToolLoop   = "tool_loop"
)

// Sentinel errors surfaced by the store.
var (
	// ErrDuplicateCanonicalHash means an active pattern with the same
	// canonical hash and kind already exists. The compactor recovers this
	// as a reinforcement.
	ErrDuplicateCanonicalHash = errors.New("duplicate canonical hash")

	// ErrNotFound means the referenced pattern id does not exist.
	ErrNotFound = errors.New("pattern not found")
)

// Pattern is a single durable memory unit.
type Pattern struct {
	ID            string     `json:"id"`
	Content       string     `json:"content"`
	Kind          Kind       `json:"kind"`
	Confidence    float64    `json:"confidence"` // belief the statement is currently true, [0,1]
	Strength      float64    `json:"strength"`   // accessibility weight; decay is applied at read time
	TimesSeen     int        `json:"times_seen"`
	FirstSeen     time.Time  `json:"first_seen"`
	LastSeen      time.Time  `json:"last_seen"`
	Status        Status     `json:"status"`
	CanonicalHash string     `json:"canonical_hash"`
	Embedding     []float32  `json:"embedding,omitempty"` // nil when the embed call failed
	Temporal      string     `json:"temporal,omitempty"`  // contextual annotation, not scored
	ExpiresAt     *time.Time `json:"expires_at,omitempty"`
}

// Terminal reports whether the pattern can no longer change status.
func (p *Pattern) Terminal() bool {
	return p.Status == StatusDeprecated || p.Status == StatusSuperseded
}

// Observation is the evidence trail for one creation or reinforcement event.
// Rows are append-only and never mutated.
type Observation struct {
	ID               string    `json:"id"`
	PatternID        string    `json:"pattern_id"`
	SourceMessageIDs []string  `json:"source_message_ids"`
	Excerpt          string    `json:"excerpt"`
	Role             string    `json:"role"`       // "user" or "tool"
	Confidence       float64   `json:"confidence"` // per-role: user statements outweigh tool inference
	CreatedAt        time.Time `json:"created_at"`
}

// Relation is a directed typed edge between two patterns. Insertion is
// idempotent on the (from, to, relation) triple.
type Relation struct {
	ID        string    `json:"id"`
	FromID    string    `json:"from_id"`
	ToID      string    `json:"to_id"`
	Relation  string    `json:"relation"`
	CreatedAt time.Time `json:"created_at"`
}

// Alias is an alternate phrasing of a pattern with its own embedding. It
// widens the similarity-match surface of its parent and is never scored.
type Alias struct {
	ID        string    `json:"id"`
	PatternID string    `json:"pattern_id"`
	Content   string    `json:"content"`
	Embedding []float32 `json:"embedding,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// EntryLink associates a pattern with a journal entry. Repeated linking
// increments TimesLinked instead of duplicating rows.
type EntryLink struct {
	ID          string    `json:"id"`
	PatternID   string    `json:"pattern_id"`
	EntryID     string    `json:"entry_id"`
	Source      string    `json:"source"` // compaction or tool_loop
	Confidence  float64   `json:"confidence"`
	TimesLinked int       `json:"times_linked"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Match pairs a pattern with the cosine similarity that retrieved it.
type Match struct {
	Pattern    *Pattern
	Similarity float64
}
