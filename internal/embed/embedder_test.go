package embed

import (
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
)

// failingEmbedder always errors, to exercise the fallback path.
type failingEmbedder struct {
	calls atomic.Int64
}

func (f *failingEmbedder) Embed(text string) ([]float32, error) {
	f.calls.Add(1)
	return nil, fmt.Errorf("boom")
}

func (f *failingEmbedder) EmbedBatch(texts []string) ([][]float32, error) {
	f.calls.Add(1)
	return nil, fmt.Errorf("boom")
}

func (f *failingEmbedder) Dimensions() int { return 1536 }

func TestFallbackEmbedder_StickyFailure(t *testing.T) {
	primary := &failingEmbedder{}
	f := NewFallbackEmbedder(primary)

	v, err := f.Embed("some text")
	if err != nil {
		t.Fatalf("expected fallback to cover the failure, got %v", err)
	}
	if len(v) != NewLocalEmbedder().Dimensions() {
		t.Errorf("expected local dimensions after fallback, got %d", len(v))
	}

	// Sticky: the primary is not retried within the session.
	f.Embed("more text")
	f.Embed("even more text")
	if got := primary.calls.Load(); got != 1 {
		t.Errorf("expected primary tried once, got %d calls", got)
	}

	if f.Dimensions() != NewLocalEmbedder().Dimensions() {
		t.Errorf("expected dimensions to follow the fallback, got %d", f.Dimensions())
	}
}

func TestFallbackEmbedder_ConcurrentEmbeds(t *testing.T) {
	primary := &failingEmbedder{}
	f := NewFallbackEmbedder(primary)

	// Compaction runs for different conversations share one embedder, so
	// the sticky flag must hold up under parallel Embed calls.
	var wg sync.WaitGroup
	errs := make(chan error, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			v, err := f.Embed(fmt.Sprintf("text %d", n))
			if err != nil {
				errs <- err
				return
			}
			if len(v) != NewLocalEmbedder().Dimensions() {
				errs <- fmt.Errorf("unexpected vector length %d", len(v))
			}
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Errorf("concurrent embed: %v", err)
	}
}

func TestCachedEmbedder_ConsistentResults(t *testing.T) {
	c, err := NewCachedEmbedder(NewLocalEmbedder())
	if err != nil {
		t.Fatalf("NewCachedEmbedder failed: %v", err)
	}

	a, err := c.Embed("I run every morning")
	if err != nil {
		t.Fatalf("Embed failed: %v", err)
	}
	b, err := c.Embed("I run every morning")
	if err != nil {
		t.Fatalf("Embed failed: %v", err)
	}

	if len(a) != len(b) {
		t.Fatal("expected consistent vector lengths")
	}
	for i := range a {
		if a[i] != b[i] {
			t.Fatal("expected cache-backed embeds to agree")
		}
	}
}

func TestCachedEmbedder_BatchMatchesSingle(t *testing.T) {
	c, err := NewCachedEmbedder(NewLocalEmbedder())
	if err != nil {
		t.Fatalf("NewCachedEmbedder failed: %v", err)
	}

	single, _ := c.Embed("alpha")
	batch, err := c.EmbedBatch([]string{"alpha", "beta"})
	if err != nil {
		t.Fatalf("EmbedBatch failed: %v", err)
	}
	if len(batch) != 2 {
		t.Fatalf("expected 2 vectors, got %d", len(batch))
	}
	for i := range single {
		if batch[0][i] != single[i] {
			t.Fatal("expected batch result to match single embed")
		}
	}

	if c.Dimensions() != NewLocalEmbedder().Dimensions() {
		t.Errorf("unexpected dimensions %d", c.Dimensions())
	}
}

func TestNewDefault_WithoutAPIKey(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")

	e := NewDefault()
	v, err := e.Embed("offline embedding")
	if err != nil {
		t.Fatalf("expected keyless default to work offline, got %v", err)
	}
	if len(v) != 256 {
		t.Errorf("expected local 256-dim embedding, got %d", len(v))
	}
}
