package pattern

import (
	"context"
	"sort"
	"time"
)

// Retrieval defaults. The candidate window is wider than any sane limit so
// the diversity rerank has something to trade off against.
const (
	defaultCandidateWindow = 20
	defaultMMRLambda       = 0.3
	minRetrievalSimilarity = 0.2
)

// Result is one retrieved pattern with its scoring breakdown.
type Result struct {
	Pattern    *Pattern `json:"pattern"`
	Similarity float64  `json:"similarity"`
	Score      float64  `json:"score"`
}

// Retrieval is the budget-capped output of RetrieveForPrompt, plus the
// observability fields an external telemetry collaborator consumes.
type Retrieval struct {
	Results       []Result `json:"results"`
	ExcludedIDs   []string `json:"excluded_ids"` // selected by rerank, dropped by budget
	TopSimilarity float64  `json:"top_similarity"`
}

// Retriever ranks and selects patterns for prompt injection.
type Retriever struct {
	store  *Store
	window int
	lambda float64
	now    func() time.Time
}

// NewRetriever creates a retriever over the store.
func NewRetriever(store *Store) *Retriever {
	return &Retriever{
		store:  store,
		window: defaultCandidateWindow,
		lambda: defaultMMRLambda,
		now:    time.Now,
	}
}

// RetrieveForPrompt returns the most relevant, diverse set of patterns that
// fits the token budget. Patterns are included whole or not at all.
func (r *Retriever) RetrieveForPrompt(ctx context.Context, queryEmbedding []float32, tokenBudget, limit int) (Retrieval, error) {
	var out Retrieval
	if limit <= 0 {
		limit = 10
	}

	window := r.window
	if window < limit {
		window = limit
	}

	matches, err := r.store.FindByEmbedding(ctx, queryEmbedding, window, minRetrievalSimilarity)
	if err != nil {
		return out, err
	}
	if len(matches) == 0 {
		return out, nil
	}

	now := r.now()
	candidates := make([]Result, len(matches))
	for i, m := range matches {
		candidates[i] = Result{
			Pattern:    m.Pattern,
			Similarity: m.Similarity,
			Score:      Score(m.Pattern, m.Similarity, now),
		}
		if m.Similarity > out.TopSimilarity {
			out.TopSimilarity = m.Similarity
		}
	}

	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].Score > candidates[j].Score
	})

	selected := rerankMMR(candidates, limit, r.lambda)

	// Budget cap: stop at the first overflow, never mid-pattern. Later
	// selections are excluded too, so rerank order is preserved in the
	// results.
	used := 0
	for i, res := range selected {
		cost := EstimateTokens(res.Pattern.Content)
		if tokenBudget > 0 && used+cost > tokenBudget {
			for _, rest := range selected[i:] {
				out.ExcludedIDs = append(out.ExcludedIDs, rest.Pattern.ID)
			}
			break
		}
		out.Results = append(out.Results, res)
		used += cost
	}
	return out, nil
}

// rerankMMR greedily selects up to limit results, each step taking the
// candidate maximizing score - lambda*maxSimilarityToSelected. The
// similarity-to-selected term is maintained incrementally per candidate, not
// recomputed pairwise each step.
func rerankMMR(candidates []Result, limit int, lambda float64) []Result {
	if len(candidates) <= 1 {
		return candidates
	}

	maxSimToSelected := make([]float64, len(candidates))
	picked := make([]bool, len(candidates))
	var selected []Result

	for len(selected) < limit {
		bestIdx := -1
		bestVal := 0.0
		for i := range candidates {
			if picked[i] {
				continue
			}
			val := candidates[i].Score - lambda*maxSimToSelected[i]
			if bestIdx == -1 || val > bestVal {
				bestIdx = i
				bestVal = val
			}
		}
		if bestIdx == -1 {
			break
		}

		picked[bestIdx] = true
		selected = append(selected, candidates[bestIdx])

		// Fold the new selection into each remaining candidate's penalty.
		pickedEmb := candidates[bestIdx].Pattern.Embedding
		for i := range candidates {
			if picked[i] || len(pickedEmb) == 0 {
				continue
			}
			sim := CosineSimilarity(candidates[i].Pattern.Embedding, pickedEmb)
			if sim > maxSimToSelected[i] {
				maxSimToSelected[i] = sim
			}
		}
	}
	return selected
}

// EstimateTokens approximates the prompt cost of a pattern's content.
// Four characters per token is close enough for budget capping.
func EstimateTokens(content string) int {
	n := (len(content) + 3) / 4
	if n < 1 {
		n = 1
	}
	return n
}
