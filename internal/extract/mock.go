package extract

import (
	"context"
	"fmt"
)

// MockExtractor returns canned candidates. Used in tests and by the
// acceptance suite to drive compaction without an API key.
type MockExtractor struct {
	Candidates []Candidate
	Err        error
	Calls      int
}

func (m *MockExtractor) Extract(ctx context.Context, batch Batch, priorContext string) ([]Candidate, error) {
	m.Calls++
	if m.Err != nil {
		return nil, fmt.Errorf("mock extraction: %w", m.Err)
	}
	return m.Candidates, nil
}
