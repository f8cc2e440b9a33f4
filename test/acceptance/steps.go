package acceptance

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/driftlog/driftlog/internal/extract"
	"github.com/driftlog/driftlog/internal/pattern"
)

// vecEmbedder returns canned 4-dimensional vectors per statement, so every
// similarity in the scenarios is exact.
type vecEmbedder struct {
	vectors map[string][]float32
}

func (e *vecEmbedder) Embed(text string) ([]float32, error) {
	if v, ok := e.vectors[text]; ok {
		return v, nil
	}
	return []float32{0, 0, 0, 1}, nil
}

func (e *vecEmbedder) EmbedBatch(texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i], _ = e.Embed(t)
	}
	return out, nil
}

func (e *vecEmbedder) Dimensions() int { return 4 }

// TestContext holds state between steps
type TestContext struct {
	ctx      context.Context
	tmpDir   string
	oldDir   string
	store    *pattern.Store
	embedder *vecEmbedder

	lastRetrieval pattern.Retrieval
}

func (tc *TestContext) reset() error {
	tc.close()

	tmpDir, err := os.MkdirTemp("", "driftlog-acceptance-*")
	if err != nil {
		return err
	}
	tc.tmpDir = tmpDir
	tc.oldDir = os.Getenv("DRIFTLOG_DATA_DIR")
	os.Setenv("DRIFTLOG_DATA_DIR", tmpDir)

	tc.embedder = &vecEmbedder{vectors: make(map[string][]float32)}
	store, err := pattern.NewStore(tc.embedder.Dimensions())
	if err != nil {
		return err
	}
	tc.store = store
	tc.lastRetrieval = pattern.Retrieval{}
	return nil
}

func (tc *TestContext) close() {
	if tc.store != nil {
		tc.store.Close()
		tc.store = nil
	}
	if tc.tmpDir != "" {
		os.RemoveAll(tc.tmpDir)
		os.Setenv("DRIFTLOG_DATA_DIR", tc.oldDir)
		tc.tmpDir = ""
	}
}

func parseVector(spec string) ([]float32, error) {
	parts := strings.Split(spec, ",")
	vec := make([]float32, len(parts))
	for i, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 32)
		if err != nil {
			return nil, fmt.Errorf("bad vector component %q: %w", p, err)
		}
		vec[i] = float32(f)
	}
	return vec, nil
}

// =============================================================================
// Given steps
// =============================================================================

func (tc *TestContext) emptyMemoryStore() error {
	return tc.reset()
}

func (tc *TestContext) statementEmbedsAs(statement, vectorSpec string) error {
	vec, err := parseVector(vectorSpec)
	if err != nil {
		return err
	}
	tc.embedder.vectors[statement] = vec
	return nil
}

func (tc *TestContext) storedMemoryEmbeddedAs(kind, content, vectorSpec string) error {
	vec, err := parseVector(vectorSpec)
	if err != nil {
		return err
	}
	_, err = tc.store.Create(tc.ctx, pattern.CreateParams{
		Content:    content,
		Kind:       pattern.Kind(kind),
		Confidence: 0.8,
		Embedding:  vec,
	})
	return err
}

func (tc *TestContext) storedMemoryExpiredDaysAgo(kind, content string, days int) error {
	expired := time.Now().UTC().Add(-time.Duration(days) * 24 * time.Hour)
	_, err := tc.store.Create(tc.ctx, pattern.CreateParams{
		Content:    content,
		Kind:       pattern.Kind(kind),
		Confidence: 0.9,
		ExpiresAt:  &expired,
	})
	return err
}

// =============================================================================
// When steps
// =============================================================================

func (tc *TestContext) compact(kind, content string, contradicts, supersedes bool) error {
	compactor := pattern.NewCompactor(tc.store, &extract.MockExtractor{
		Candidates: []extract.Candidate{{
			Content:     content,
			Kind:        kind,
			Confidence:  0.8,
			Role:        "user",
			Contradicts: contradicts,
			Supersedes:  supersedes,
		}},
	}, tc.embedder, nil)

	_, err := compactor.Run(tc.ctx, extract.Batch{ConversationID: "acceptance"})
	return err
}

func (tc *TestContext) compactionProcesses(kind, content string) error {
	return tc.compact(kind, content, false, false)
}

func (tc *TestContext) compactionProcessesContradicting(kind, content string) error {
	return tc.compact(kind, content, true, false)
}

func (tc *TestContext) compactionProcessesSuperseding(kind, content string) error {
	return tc.compact(kind, content, true, true)
}

func (tc *TestContext) recall(vectorSpec string, budget, limit int) error {
	vec, err := parseVector(vectorSpec)
	if err != nil {
		return err
	}
	retriever := pattern.NewRetriever(tc.store)
	out, err := retriever.RetrieveForPrompt(tc.ctx, vec, budget, limit)
	if err != nil {
		return err
	}
	tc.lastRetrieval = out
	return nil
}

func (tc *TestContext) pruneRuns() error {
	_, err := tc.store.ExpireEventPatterns(tc.ctx, time.Now())
	return err
}

// =============================================================================
// Then steps
// =============================================================================

func (tc *TestContext) activeMemory(content string) (*pattern.Pattern, error) {
	p, err := tc.store.GetByCanonicalHash(tc.ctx, pattern.CanonicalHash(content))
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, fmt.Errorf("no active memory %q", content)
	}
	return p, nil
}

func (tc *TestContext) activeMemoryOfKind(kind, content string) error {
	p, err := tc.activeMemory(content)
	if err != nil {
		return err
	}
	if string(p.Kind) != kind {
		return fmt.Errorf("expected kind %s, got %s", kind, p.Kind)
	}
	return nil
}

func (tc *TestContext) memorySeenTimes(content string, times int) error {
	p, err := tc.activeMemory(content)
	if err != nil {
		return err
	}
	if p.TimesSeen != times {
		return fmt.Errorf("expected %d sightings, got %d", times, p.TimesSeen)
	}
	return nil
}

func (tc *TestContext) memoryHasObservations(content string, count int) error {
	p, err := tc.activeMemory(content)
	if err != nil {
		return err
	}
	obs, err := tc.store.Observations(tc.ctx, p.ID)
	if err != nil {
		return err
	}
	if len(obs) != count {
		return fmt.Errorf("expected %d observations, got %d", count, len(obs))
	}
	return nil
}

func (tc *TestContext) storeHolds(count int) error {
	n, err := tc.store.Count(tc.ctx)
	if err != nil {
		return err
	}
	if n != count {
		return fmt.Errorf("expected %d memories in the store, got %d", count, n)
	}
	return nil
}

func (tc *TestContext) memoryHasAlias(content, alias string) error {
	p, err := tc.activeMemory(content)
	if err != nil {
		return err
	}
	aliases, err := tc.store.Aliases(tc.ctx, p.ID)
	if err != nil {
		return err
	}
	for _, a := range aliases {
		if a.Content == alias {
			return nil
		}
	}
	return fmt.Errorf("expected alias %q on memory %q", alias, content)
}

func (tc *TestContext) memoryContradicts(newContent, oldContent string) error {
	newP, err := tc.activeMemory(newContent)
	if err != nil {
		return err
	}
	oldP, err := tc.activeMemory(oldContent)
	if err != nil {
		return err
	}
	rels, err := tc.store.RelationsFrom(tc.ctx, newP.ID, pattern.RelContradicts)
	if err != nil {
		return err
	}
	for _, r := range rels {
		if r.ToID == oldP.ID {
			return nil
		}
	}
	return fmt.Errorf("expected contradicts edge from %q to %q", newContent, oldContent)
}

func (tc *TestContext) memorySuperseded(content string) error {
	// A superseded memory leaves the active hash surface.
	p, err := tc.store.GetByCanonicalHash(tc.ctx, pattern.CanonicalHash(content))
	if err != nil {
		return err
	}
	if p != nil {
		return fmt.Errorf("expected %q to be retired, still active", content)
	}
	return nil
}

func (tc *TestContext) memoryNoLongerActive(content string) error {
	return tc.memorySuperseded(content)
}

func (tc *TestContext) firstRecalledIs(content string) error {
	if len(tc.lastRetrieval.Results) == 0 {
		return fmt.Errorf("nothing recalled")
	}
	if got := tc.lastRetrieval.Results[0].Pattern.Content; got != content {
		return fmt.Errorf("expected %q first, got %q", content, got)
	}
	return nil
}

func (tc *TestContext) memoryNotRecalled(content string) error {
	for _, r := range tc.lastRetrieval.Results {
		if r.Pattern.Content == content {
			return fmt.Errorf("expected %q not recalled", content)
		}
	}
	return nil
}

func (tc *TestContext) recalledCount(count int) error {
	if len(tc.lastRetrieval.Results) != count {
		return fmt.Errorf("expected %d recalled, got %d", count, len(tc.lastRetrieval.Results))
	}
	return nil
}

func (tc *TestContext) excludedByBudget(count int) error {
	if len(tc.lastRetrieval.ExcludedIDs) != count {
		return fmt.Errorf("expected %d budget exclusions, got %d", count, len(tc.lastRetrieval.ExcludedIDs))
	}
	return nil
}
