package pattern

import (
	"math"
	"time"
)

// Per-kind retrieval half-lives, in days. Volatile kinds fade within a week;
// stable kinds hold their weight for months. New kinds extend this table,
// not the scoring functions.
var halfLifeDays = map[Kind]float64{
	KindEmotion:    7,
	KindTemporal:   7,
	KindEvent:      14,
	KindBehavior:   30,
	KindPreference: 45,
	KindCausal:     60,
	KindBelief:     120,
	KindGoal:       120,
	KindFact:       180,
}

// defaultHalfLifeDays covers any kind missing from the table.
const defaultHalfLifeDays = 45

// Reinforcement boost constants. A same-day repeat adds little; a
// reinforcement after a meaningful gap adds up to boostMax, saturating so no
// single event dominates.
const (
	boostMin     = 0.1
	boostMax     = 1.0
	boostTauDays = 7.0
)

// Decay returns the time attenuation factor for a kind after the given
// number of days without reinforcement. Decay(kind, 0) == 1 and the result
// is always in (0, 1].
func Decay(kind Kind, days float64) float64 {
	if days <= 0 {
		return 1
	}
	halfLife, ok := halfLifeDays[kind]
	if !ok {
		halfLife = defaultHalfLifeDays
	}
	return math.Exp(-math.Ln2 * days / halfLife)
}

// Boost returns the strength increment for a reinforcement arriving gapDays
// after the previous one. Spacing-sensitive: conversational repetition within
// the same day earns the minimum, recurring evidence across days earns more.
func Boost(gapDays float64) float64 {
	if gapDays < 0 {
		gapDays = 0
	}
	return boostMin + (boostMax-boostMin)*(1-math.Exp(-gapDays/boostTauDays))
}

// Score computes the retrieval score of a pattern for a query at time now:
// similarity * ln(strength * decay + 1). Stored strength is never decayed in
// place; the age term is applied here, at read time.
func Score(p *Pattern, similarity float64, now time.Time) float64 {
	days := DaysSince(p.LastSeen, now)
	return similarity * math.Log(p.Strength*Decay(p.Kind, days)+1)
}

// DaysSince returns the fractional number of days between then and now,
// clamped at zero.
func DaysSince(then, now time.Time) float64 {
	d := now.Sub(then).Hours() / 24
	if d < 0 {
		return 0
	}
	return d
}

// Reinforced returns the updated strength after a reinforcement with the
// given gap. Monotonic: the result is always >= old for any gap >= 0.
func Reinforced(old float64, gapDays float64) float64 {
	return old + Boost(gapDays)
}

// CosineSimilarity computes cosine similarity between two vectors. Returns 0
// for mismatched or empty inputs.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i] * b[i])
		normA += float64(a[i] * a[i])
		normB += float64(b[i] * b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
