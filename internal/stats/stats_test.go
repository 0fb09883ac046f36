package stats

import (
	"math"
	"strings"
	"testing"
)

func repeat(v float64, n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = v
	}
	return out
}

func TestBootstrapMeanCI(t *testing.T) {
	lo, hi := BootstrapMeanCI(repeat(5, 20), 1000, 0.95, 42)
	if lo != 5 || hi != 5 {
		t.Errorf("constant sample CI = [%g, %g], want [5, 5]", lo, hi)
	}

	values := []float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}
	lo, hi = BootstrapMeanCI(values, 2000, 0.95, 42)
	if lo > 5.5 || hi < 5.5 {
		t.Errorf("CI [%g, %g] does not cover the sample mean 5.5", lo, hi)
	}
	if lo >= hi {
		t.Errorf("degenerate CI [%g, %g]", lo, hi)
	}

	lo2, hi2 := BootstrapMeanCI(values, 2000, 0.95, 42)
	if lo2 != lo || hi2 != hi {
		t.Error("same seed must reproduce the same interval")
	}

	if lo, hi := BootstrapMeanCI(nil, 1000, 0.95, 42); lo != 0 || hi != 0 {
		t.Errorf("empty sample CI = [%g, %g]", lo, hi)
	}
}

func TestBootstrapDeltaCI(t *testing.T) {
	lo, hi := BootstrapDeltaCI(repeat(1, 15), repeat(0, 15), 1000, 0.95, 7)
	if lo != 1 || hi != 1 {
		t.Errorf("constant delta CI = [%g, %g], want [1, 1]", lo, hi)
	}
}

func TestPermutationPValue(t *testing.T) {
	// Clearly separated groups.
	p := PermutationPValue(repeat(1, 20), repeat(0, 20), 2000, 42)
	if p >= 0.05 {
		t.Errorf("separated groups p = %g, want < 0.05", p)
	}

	// Identical means short-circuit to 1.
	if p := PermutationPValue(repeat(1, 10), repeat(1, 10), 2000, 42); p != 1 {
		t.Errorf("constant pool p = %g, want 1", p)
	}
	if p := PermutationPValue([]float64{0, 1}, []float64{1, 0}, 2000, 42); p != 1 {
		t.Errorf("zero observed delta p = %g, want 1", p)
	}
	if p := PermutationPValue(nil, repeat(1, 5), 2000, 42); p != 1 {
		t.Errorf("empty group p = %g, want 1", p)
	}
}

func TestCohensH(t *testing.T) {
	if h := CohensH(0.5, 0.5); h != 0 {
		t.Errorf("equal proportions h = %g, want 0", h)
	}
	// h(1, 0) = pi, the maximum.
	if h := CohensH(1, 0); math.Abs(h-math.Pi) > 1e-9 {
		t.Errorf("h(1,0) = %g, want pi", h)
	}

	bands := []struct {
		h    float64
		want string
	}{
		{0.1, MagnitudeNegligible},
		{0.3, MagnitudeSmall},
		{0.6, MagnitudeMedium},
		{1.2, MagnitudeLarge},
		{-1.2, MagnitudeLarge},
	}
	for _, tc := range bands {
		if got := HMagnitude(tc.h); got != tc.want {
			t.Errorf("HMagnitude(%g) = %s, want %s", tc.h, got, tc.want)
		}
	}
}

func TestCliffsDelta(t *testing.T) {
	if d := CliffsDelta([]float64{2, 3}, []float64{0, 1}); d != 1 {
		t.Errorf("fully dominant delta = %g, want 1", d)
	}
	if d := CliffsDelta([]float64{0, 1}, []float64{2, 3}); d != -1 {
		t.Errorf("fully dominated delta = %g, want -1", d)
	}
	if d := CliffsDelta([]float64{1, 2}, []float64{1, 2}); d != 0 {
		t.Errorf("identical groups delta = %g, want 0", d)
	}

	bands := []struct {
		d    float64
		want string
	}{
		{0.1, MagnitudeNegligible},
		{0.2, MagnitudeSmall},
		{0.4, MagnitudeMedium},
		{0.6, MagnitudeLarge},
	}
	for _, tc := range bands {
		if got := DeltaMagnitude(tc.d); got != tc.want {
			t.Errorf("DeltaMagnitude(%g) = %s, want %s", tc.d, got, tc.want)
		}
	}
}

// A run that wins every game with low ACPL against a run that loses every
// game with high ACPL: both metrics significant, large effects, and a
// recommendation naming run A.
func TestCompare_DominantRun(t *testing.T) {
	acplA := make([]float64, 30)
	acplB := make([]float64, 30)
	for i := range acplA {
		acplA[i] = 20 + float64(i%3) - 1   // 19..21
		acplB[i] = 120 + 2*float64(i%3) - 2 // 118..122
	}
	a := Sample{Name: "A", WinScores: repeat(1, 30), ACPL: acplA}
	b := Sample{Name: "B", WinScores: repeat(0, 30), ACPL: acplB}

	cmp := Compare(a, b, DefaultOptions())

	if !cmp.WinRate.Significant {
		t.Errorf("win rate not significant: p = %g", cmp.WinRate.PValue)
	}
	if cmp.WinRate.Delta <= 0.9 {
		t.Errorf("win delta = %g, want > 0.9", cmp.WinRate.Delta)
	}
	if cmp.WinRate.Magnitude != MagnitudeLarge {
		t.Errorf("win magnitude = %s, want large", cmp.WinRate.Magnitude)
	}
	if cmp.ACPL == nil {
		t.Fatal("no acpl metric")
	}
	if !cmp.ACPL.Significant {
		t.Errorf("acpl not significant: p = %g", cmp.ACPL.PValue)
	}
	if cmp.ACPL.Delta >= 0 {
		t.Errorf("acpl delta = %g, want negative", cmp.ACPL.Delta)
	}
	if cmp.ACPL.Magnitude != MagnitudeLarge {
		t.Errorf("acpl magnitude = %s, want large", cmp.ACPL.Magnitude)
	}
	if !strings.HasPrefix(cmp.Recommendation, "Run A") {
		t.Errorf("recommendation = %q, want it to begin with \"Run A\"", cmp.Recommendation)
	}
	if !strings.HasPrefix(cmp.ConfidenceNote, "high confidence") {
		t.Errorf("confidence note = %q", cmp.ConfidenceNote)
	}
}

func TestCompare_MetricsDisagree(t *testing.T) {
	// A wins games but plays worse moves.
	acplA := make([]float64, 30)
	acplB := make([]float64, 30)
	for i := range acplA {
		acplA[i] = 120 + float64(i%3)
		acplB[i] = 20 + float64(i%3)
	}
	a := Sample{Name: "A", WinScores: repeat(1, 30), ACPL: acplA}
	b := Sample{Name: "B", WinScores: repeat(0, 30), ACPL: acplB}

	cmp := Compare(a, b, DefaultOptions())
	if !strings.Contains(cmp.Recommendation, "No clear winner") {
		t.Errorf("recommendation = %q, want no clear winner", cmp.Recommendation)
	}
}

func TestCompare_WinRateOnly(t *testing.T) {
	a := Sample{Name: "A", WinScores: repeat(1, 5)}
	b := Sample{Name: "B", WinScores: repeat(0, 5)}

	cmp := Compare(a, b, DefaultOptions())
	if cmp.ACPL != nil {
		t.Fatal("unexpected acpl metric")
	}
	if len(cmp.Notes) == 0 || !strings.Contains(cmp.Notes[0], "win rate only") {
		t.Errorf("notes = %v, want a win-rate-only note", cmp.Notes)
	}
	if !strings.HasPrefix(cmp.ConfidenceNote, "low confidence") {
		t.Errorf("confidence note = %q, want low confidence", cmp.ConfidenceNote)
	}
}

func TestCompare_NoDifference(t *testing.T) {
	a := Sample{Name: "A", WinScores: []float64{1, 0, 0.5, 1, 0, 0.5, 1, 0, 0.5, 1, 0, 0.5}}
	b := Sample{Name: "B", WinScores: []float64{0.5, 1, 0, 0.5, 1, 0, 0.5, 1, 0, 0.5, 1, 0}}

	cmp := Compare(a, b, DefaultOptions())
	if cmp.WinRate.Significant {
		t.Errorf("identical distributions flagged significant: p = %g", cmp.WinRate.PValue)
	}
	if !strings.Contains(cmp.Recommendation, "No significant difference") {
		t.Errorf("recommendation = %q", cmp.Recommendation)
	}
}
