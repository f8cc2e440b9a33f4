package pattern

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/driftlog/driftlog/internal/embed"
	"github.com/driftlog/driftlog/internal/extract"
)

// approxMatchThreshold is the cosine similarity above which a candidate is
// treated as a paraphrase of an existing pattern and merged into it.
const approxMatchThreshold = 0.82

// contradictionThreshold is the lower similarity bound for the contradiction
// check: close enough to be about the same thing, not close enough to merge.
const contradictionThreshold = 0.55

// Per-role evidence confidence: the user's own statement outweighs anything
// inferred from a tool result.
var roleConfidence = map[string]float64{
	"user": 1.0,
	"tool": 0.6,
}

// ErrRunInFlight means a compaction run is already active for the
// conversation. The trigger is dropped, not queued; the next natural trigger
// re-covers the same unprocessed messages.
var ErrRunInFlight = errors.New("compaction already in flight for conversation")

// JournalChecker validates entry link targets. Satisfied by journal.Store.
type JournalChecker interface {
	Exists(ctx context.Context, entryID string) (bool, error)
}

// Summary reports one compaction run for the user-facing memory note.
type Summary struct {
	Created         int `json:"created"`
	Reinforced      int `json:"reinforced"`
	StaleEventCount int `json:"stale_event_count"`
}

// TriggerPolicy decides when a conversation's accumulated messages warrant a
// compaction run: either enough uncompacted text, or enough elapsed time and
// enough new messages together.
type TriggerPolicy struct {
	MaxUncompactedChars int
	MinInterval         time.Duration
	MinNewMessages      int
}

// DefaultTriggerPolicy matches typical journaling cadence.
var DefaultTriggerPolicy = TriggerPolicy{
	MaxUncompactedChars: 4000,
	MinInterval:         30 * time.Minute,
	MinNewMessages:      5,
}

// ShouldRun reports whether a compaction run is due.
func (p TriggerPolicy) ShouldRun(uncompactedChars int, sinceLast time.Duration, newMessages int) bool {
	if uncompactedChars >= p.MaxUncompactedChars {
		return true
	}
	return sinceLast >= p.MinInterval && newMessages >= p.MinNewMessages
}

// Compactor turns extraction batches into store mutations: reinforcements,
// aliases, contradiction/supersession links, and new patterns. Runs are
// serialized per conversation; cross-conversation runs proceed in parallel.
type Compactor struct {
	store     *Store
	extractor extract.Extractor
	embedder  embed.Embedder
	journal   JournalChecker

	mu       sync.Mutex
	inflight map[string]bool
}

// NewCompactor wires the pipeline. journal may be nil, in which case entry
// links are skipped.
func NewCompactor(store *Store, extractor extract.Extractor, embedder embed.Embedder, journal JournalChecker) *Compactor {
	return &Compactor{
		store:     store,
		extractor: extractor,
		embedder:  embedder,
		journal:   journal,
		inflight:  make(map[string]bool),
	}
}

// tryAcquire takes the per-conversation serialization token.
func (c *Compactor) tryAcquire(conversationID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.inflight[conversationID] {
		return false
	}
	c.inflight[conversationID] = true
	return true
}

func (c *Compactor) release(conversationID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.inflight, conversationID)
}

// Run executes one compaction over a batch. Returns ErrRunInFlight when a
// run for the same conversation is already active. An extraction failure
// aborts the run with nothing written; per-candidate progress after a
// successful extraction is durable even if a later candidate fails.
func (c *Compactor) Run(ctx context.Context, batch extract.Batch) (Summary, error) {
	var summary Summary

	if !c.tryAcquire(batch.ConversationID) {
		return summary, fmt.Errorf("%w: %s", ErrRunInFlight, batch.ConversationID)
	}
	defer c.release(batch.ConversationID)

	priorContext := c.priorContextHint(ctx)

	candidates, err := c.extractor.Extract(ctx, batch, priorContext)
	if err != nil {
		return summary, fmt.Errorf("extraction failed: %w", err)
	}

	for _, cand := range candidates {
		created, err := c.processCandidate(ctx, cand)
		if err != nil {
			log.Printf("compaction: skipping candidate %q: %v", truncate(cand.Content, 60), err)
			continue
		}
		if created {
			summary.Created++
		} else {
			summary.Reinforced++
		}
	}

	// Stale episodic memories are reported, never auto-deleted here; the
	// prune maintenance operation does the actual status flips.
	stale, err := c.store.CountStale(ctx, time.Now())
	if err == nil {
		summary.StaleEventCount = stale
	}

	return summary, nil
}

// priorContextHint summarizes the strongest known patterns for the
// extraction prompt, so the model can flag contradictions itself.
func (c *Compactor) priorContextHint(ctx context.Context) string {
	top, err := c.store.ListTopByStrength(ctx, 5)
	if err != nil || len(top) == 0 {
		return ""
	}
	var b strings.Builder
	for _, p := range top {
		fmt.Fprintf(&b, "- [%s] %s\n", p.Kind, p.Content)
	}
	return b.String()
}

// processCandidate routes one candidate through exact match, approximate
// match, contradiction check, and creation. Returns true when a new pattern
// row was created.
func (c *Compactor) processCandidate(ctx context.Context, cand extract.Candidate) (bool, error) {
	if !ValidKind(cand.Kind) {
		return false, fmt.Errorf("unknown kind %q", cand.Kind)
	}
	kind := Kind(cand.Kind)
	hash := CanonicalHash(cand.Content)

	// Exact match: same canonical hash and kind means the same statement.
	if existing, err := c.store.GetByHashAndKind(ctx, hash, kind); err == nil && existing != nil {
		return false, c.reinforce(ctx, existing, cand)
	}

	// Embedding failure is a degraded state, not an error: the pattern is
	// stored without semantic retrievability.
	vector, err := c.embedder.Embed(cand.Content)
	if err != nil {
		log.Printf("compaction: embedding unavailable for %q: %v", truncate(cand.Content, 60), err)
		vector = nil
	}

	// Approximate match: a close paraphrase reinforces instead of
	// duplicating, and the new phrasing widens the match surface.
	if len(vector) > 0 {
		matches, err := c.store.FindByEmbedding(ctx, vector, 5, approxMatchThreshold)
		if err == nil && len(matches) > 0 {
			target := matches[0].Pattern
			if err := c.reinforce(ctx, target, cand); err != nil {
				return false, err
			}
			if Normalize(cand.Content) != Normalize(target.Content) {
				if _, err := c.store.AddAlias(ctx, target.ID, cand.Content, vector); err != nil {
					log.Printf("compaction: alias for %s: %v", target.ID, err)
				}
			}
			return false, nil
		}
	}

	// Contradiction check against same-kind neighbors: recorded, not
	// resolved, unless the extraction explicitly signaled supersession.
	var contradicted *Pattern
	if len(vector) > 0 {
		contradicted = c.findContradicted(ctx, cand, kind, vector)
	}

	created, err := c.create(ctx, cand, kind, hash, vector)
	if err != nil {
		// Lost race on the hash between the check and the insert; recover
		// as reinforcement.
		if errors.Is(err, ErrDuplicateCanonicalHash) {
			if existing, gerr := c.store.GetByHashAndKind(ctx, hash, kind); gerr == nil && existing != nil {
				return false, c.reinforce(ctx, existing, cand)
			}
		}
		return false, err
	}

	if contradicted != nil {
		if err := c.store.AddRelation(ctx, created.ID, contradicted.ID, RelContradicts); err != nil {
			log.Printf("compaction: contradicts relation: %v", err)
		}
		if cand.Supersedes {
			if err := c.store.SetStatus(ctx, contradicted.ID, StatusSuperseded); err != nil {
				log.Printf("compaction: supersede %s: %v", contradicted.ID, err)
			} else if err := c.store.AddRelation(ctx, created.ID, contradicted.ID, RelSupersedes); err != nil {
				log.Printf("compaction: supersedes relation: %v", err)
			}
		}
	}

	return true, nil
}

// findContradicted looks for an active same-kind pattern the candidate
// opposes: semantically adjacent but on the other side of a negation.
func (c *Compactor) findContradicted(ctx context.Context, cand extract.Candidate, kind Kind, vector []float32) *Pattern {
	matches, err := c.store.FindByEmbedding(ctx, vector, 10, contradictionThreshold)
	if err != nil {
		return nil
	}
	for _, m := range matches {
		if m.Pattern.Kind != kind {
			continue
		}
		if cand.Contradicts || Opposes(cand.Content, m.Pattern.Content) {
			return m.Pattern
		}
	}
	return nil
}

func (c *Compactor) create(ctx context.Context, cand extract.Candidate, kind Kind, hash string, vector []float32) (*Pattern, error) {
	var expiresAt *time.Time
	if cand.ExpiresAt != "" && (kind == KindEvent || kind == KindFact) {
		if t, err := time.Parse(time.RFC3339, cand.ExpiresAt); err == nil {
			expiresAt = &t
		}
	}

	p, err := c.store.Create(ctx, CreateParams{
		Content:       cand.Content,
		Kind:          kind,
		Confidence:    cand.Confidence,
		Embedding:     vector,
		Temporal:      cand.Temporal,
		CanonicalHash: hash,
		ExpiresAt:     expiresAt,
	})
	if err != nil {
		return nil, err
	}

	c.recordEvidence(ctx, p.ID, cand)
	return p, nil
}

func (c *Compactor) reinforce(ctx context.Context, target *Pattern, cand extract.Candidate) error {
	if _, err := c.store.Reinforce(ctx, target.ID, cand.Confidence); err != nil {
		return err
	}
	c.recordEvidence(ctx, target.ID, cand)
	return nil
}

// recordEvidence appends the observation row and upserts the entry link.
// Both are best-effort relative to the pattern mutation itself.
func (c *Compactor) recordEvidence(ctx context.Context, patternID string, cand extract.Candidate) {
	conf, ok := roleConfidence[cand.Role]
	if !ok {
		conf = roleConfidence["tool"]
	}
	err := c.store.AddObservation(ctx, Observation{
		PatternID:        patternID,
		SourceMessageIDs: cand.SourceMessageIDs,
		Excerpt:          cand.Evidence,
		Role:             cand.Role,
		Confidence:       conf,
	})
	if err != nil {
		log.Printf("compaction: observation for %s: %v", patternID, err)
	}

	if cand.EntryID == "" || c.journal == nil {
		return
	}
	exists, err := c.journal.Exists(ctx, cand.EntryID)
	if err != nil || !exists {
		return
	}
	if _, err := c.store.UpsertEntryLink(ctx, patternID, cand.EntryID, LinkSourceCompaction, cand.Confidence); err != nil {
		log.Printf("compaction: entry link for %s: %v", patternID, err)
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "…"
}
