package pattern

import (
	"math"
	"testing"
	"time"
)

func TestDecay_FreshIsUnattenuated(t *testing.T) {
	if got := Decay(KindBehavior, 0); got != 1 {
		t.Errorf("expected Decay(0) == 1, got %f", got)
	}
	if got := Decay(KindBehavior, -3); got != 1 {
		t.Errorf("expected negative gap clamped to 1, got %f", got)
	}
}

func TestDecay_HalfLife(t *testing.T) {
	// At exactly one half-life, decay is 0.5 for every kind.
	cases := []struct {
		kind Kind
		days float64
	}{
		{KindEmotion, 7},
		{KindEvent, 14},
		{KindBehavior, 30},
		{KindBelief, 120},
		{KindFact, 180},
	}
	for _, c := range cases {
		got := Decay(c.kind, c.days)
		if math.Abs(got-0.5) > 1e-9 {
			t.Errorf("Decay(%s, %v) = %f, expected 0.5", c.kind, c.days, got)
		}
	}
}

func TestDecay_VolatileFadesFaster(t *testing.T) {
	days := 30.0
	emotion := Decay(KindEmotion, days)
	fact := Decay(KindFact, days)
	if emotion >= fact {
		t.Errorf("expected emotion (%f) to decay faster than fact (%f)", emotion, fact)
	}
}

func TestDecay_UnknownKindUsesDefault(t *testing.T) {
	got := Decay(Kind("mystery"), 45)
	if math.Abs(got-0.5) > 1e-9 {
		t.Errorf("expected default half-life of 45 days, got decay %f", got)
	}
}

func TestBoost_SpacingSensitive(t *testing.T) {
	sameDay := Boost(0)
	if math.Abs(sameDay-0.1) > 1e-9 {
		t.Errorf("expected same-day boost 0.1, got %f", sameDay)
	}

	week := Boost(7)
	month := Boost(30)
	if week <= sameDay {
		t.Errorf("expected a week's gap (%f) to out-boost same-day (%f)", week, sameDay)
	}
	if month <= week {
		t.Errorf("expected a month's gap (%f) to out-boost a week (%f)", month, week)
	}
	if month >= 1.0 {
		t.Errorf("expected boost to saturate below 1.0, got %f", month)
	}
}

func TestReinforced_Monotonic(t *testing.T) {
	for _, gap := range []float64{0, 0.5, 1, 7, 30, 365} {
		if got := Reinforced(2.0, gap); got < 2.0 {
			t.Errorf("Reinforced(2.0, %v) = %f, expected >= 2.0", gap, got)
		}
	}
}

// A pattern seen many times long ago should lose to a pattern seen recently
// with comparable relevance, once enough time has passed.
func TestScore_RecencyBeatsStaleRepetition(t *testing.T) {
	now := time.Now()

	stale := &Pattern{
		Kind:     KindEmotion,
		Strength: 5.0,
		LastSeen: now.Add(-60 * 24 * time.Hour),
	}
	recent := &Pattern{
		Kind:     KindEmotion,
		Strength: 1.5,
		LastSeen: now.Add(-1 * 24 * time.Hour),
	}

	if Score(stale, 0.8, now) >= Score(recent, 0.8, now) {
		t.Errorf("expected recent pattern to outscore stale one: stale=%f recent=%f",
			Score(stale, 0.8, now), Score(recent, 0.8, now))
	}
}

func TestScore_SimilarityScales(t *testing.T) {
	now := time.Now()
	p := &Pattern{Kind: KindBehavior, Strength: 2.0, LastSeen: now}

	if Score(p, 0.9, now) <= Score(p, 0.4, now) {
		t.Error("expected higher similarity to yield higher score")
	}
	if Score(p, 0, now) != 0 {
		t.Error("expected zero similarity to zero the score")
	}
}

func TestCosineSimilarity(t *testing.T) {
	a := []float32{1, 0, 0}
	b := []float32{0, 1, 0}

	if got := CosineSimilarity(a, a); math.Abs(got-1) > 1e-6 {
		t.Errorf("expected self-similarity 1, got %f", got)
	}
	if got := CosineSimilarity(a, b); math.Abs(got) > 1e-6 {
		t.Errorf("expected orthogonal similarity 0, got %f", got)
	}
	if got := CosineSimilarity(a, []float32{1, 0}); got != 0 {
		t.Errorf("expected mismatched lengths to return 0, got %f", got)
	}
	if got := CosineSimilarity(nil, nil); got != 0 {
		t.Errorf("expected empty vectors to return 0, got %f", got)
	}
}

func TestDaysSince(t *testing.T) {
	now := time.Now()
	if got := DaysSince(now.Add(-48*time.Hour), now); math.Abs(got-2) > 1e-9 {
		t.Errorf("expected 2 days, got %f", got)
	}
	if got := DaysSince(now.Add(time.Hour), now); got != 0 {
		t.Errorf("expected future timestamps clamped to 0, got %f", got)
	}
}
