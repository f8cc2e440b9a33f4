package pattern

import "testing"

func TestOpposes(t *testing.T) {
	cases := []struct {
		a, b string
		want bool
	}{
		// Same subject, opposite polarity.
		{"user likes running", "user doesn't like running", true},
		{"drinks coffee every morning", "stopped drinking coffee", true},
		{"enjoys team meetings", "hates team meetings", true},

		// Same polarity: reinforcement, not contradiction.
		{"user likes running", "user enjoys running outdoors", false},
		{"never eats breakfast", "doesn't eat breakfast", false},

		// Different subjects entirely.
		{"user likes running", "user doesn't enjoy opera", false},
	}
	for _, c := range cases {
		if got := Opposes(c.a, c.b); got != c.want {
			t.Errorf("Opposes(%q, %q) = %v, want %v", c.a, c.b, got, c.want)
		}
	}
}

func TestOpposes_Symmetric(t *testing.T) {
	a, b := "user likes running", "user doesn't like running"
	if Opposes(a, b) != Opposes(b, a) {
		t.Error("expected Opposes to be symmetric")
	}
}

func TestSplitPolarity_DoubleNegation(t *testing.T) {
	_, negated := splitPolarity([]string{"don't", "never", "skip", "breakfast"})
	if negated {
		t.Error("expected double negation to cancel")
	}
}

func TestStem(t *testing.T) {
	cases := map[string]string{
		"likes":   "lik",
		"running": "runn",
		"walked":  "walk",
		"run":     "run",
		"es":      "es", // too short to strip
	}
	for in, want := range cases {
		if got := stem(in); got != want {
			t.Errorf("stem(%q) = %q, want %q", in, got, want)
		}
	}
}
