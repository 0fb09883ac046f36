package stats

import "fmt"

// Sample is one run's comparison inputs: win scores in {0, 0.5, 1} per valid
// game and optionally the per-move ACPL samples.
type Sample struct {
	Name      string
	WinScores []float64
	ACPL      []float64
}

// Options tunes the resampling machinery.
type Options struct {
	Iterations   int
	Permutations int
	Confidence   float64
	Alpha        float64
	Seed         int64
}

// DefaultOptions matches the harness defaults.
func DefaultOptions() Options {
	return Options{
		Iterations:   5000,
		Permutations: 5000,
		Confidence:   0.95,
		Alpha:        0.05,
		Seed:         42,
	}
}

// Metric is one compared quantity between the two runs.
type Metric struct {
	Name        string  `json:"name"`
	MeanA       float64 `json:"mean_a"`
	MeanB       float64 `json:"mean_b"`
	Delta       float64 `json:"delta"`
	CILow       float64 `json:"ci_low"`
	CIHigh      float64 `json:"ci_high"`
	PValue      float64 `json:"p_value"`
	EffectSize  float64 `json:"effect_size"`
	Magnitude   string  `json:"magnitude"`
	Significant bool    `json:"significant"`
}

// Comparison is the full two-run verdict.
type Comparison struct {
	RunA           string   `json:"run_a"`
	RunB           string   `json:"run_b"`
	WinRate        Metric   `json:"win_rate"`
	ACPL           *Metric  `json:"acpl,omitempty"`
	Recommendation string   `json:"recommendation"`
	ConfidenceNote string   `json:"confidence_note"`
	Notes          []string `json:"notes,omitempty"`
}

// Compare runs the full statistical comparison between two samples.
func Compare(a, b Sample, opts Options) Comparison {
	cmp := Comparison{RunA: a.Name, RunB: b.Name}

	winA, winB := mean(a.WinScores), mean(b.WinScores)
	winLo, winHi := BootstrapDeltaCI(a.WinScores, b.WinScores, opts.Iterations, opts.Confidence, opts.Seed)
	winP := PermutationPValue(a.WinScores, b.WinScores, opts.Permutations, opts.Seed)
	winH := CohensH(winA, winB)
	cmp.WinRate = Metric{
		Name:        "win_rate",
		MeanA:       winA,
		MeanB:       winB,
		Delta:       winA - winB,
		CILow:       winLo,
		CIHigh:      winHi,
		PValue:      winP,
		EffectSize:  winH,
		Magnitude:   HMagnitude(winH),
		Significant: winP < opts.Alpha,
	}

	if len(a.ACPL) > 0 && len(b.ACPL) > 0 {
		acplA, acplB := mean(a.ACPL), mean(b.ACPL)
		lo, hi := BootstrapDeltaCI(a.ACPL, b.ACPL, opts.Iterations, opts.Confidence, opts.Seed)
		p := PermutationPValue(a.ACPL, b.ACPL, opts.Permutations, opts.Seed)
		d := CliffsDelta(a.ACPL, b.ACPL)
		cmp.ACPL = &Metric{
			Name:        "acpl",
			MeanA:       acplA,
			MeanB:       acplB,
			Delta:       acplA - acplB,
			CILow:       lo,
			CIHigh:      hi,
			PValue:      p,
			EffectSize:  d,
			Magnitude:   DeltaMagnitude(d),
			Significant: p < opts.Alpha,
		}
	} else {
		cmp.Notes = append(cmp.Notes, "move-quality samples unavailable; comparison uses win rate only")
	}

	cmp.Recommendation = recommend(&cmp)
	cmp.ConfidenceNote = confidenceNote(len(a.WinScores), len(b.WinScores))
	return cmp
}

// winner resolves a metric to the favored run name. higherBetter flips the
// sense for metrics where lower is better (ACPL).
func winner(m *Metric, runA, runB string, higherBetter bool) string {
	delta := m.Delta
	if !higherBetter {
		delta = -delta
	}
	switch {
	case delta > 0:
		return runA
	case delta < 0:
		return runB
	default:
		return ""
	}
}

func recommend(cmp *Comparison) string {
	winWinner := winner(&cmp.WinRate, cmp.RunA, cmp.RunB, true)

	if cmp.ACPL == nil {
		if cmp.WinRate.Significant && winWinner != "" {
			return fmt.Sprintf("Run %s wins significantly on win rate.", winWinner)
		}
		return "No significant difference between the runs."
	}

	acplWinner := winner(cmp.ACPL, cmp.RunA, cmp.RunB, false)
	switch {
	case cmp.WinRate.Significant && cmp.ACPL.Significant:
		if winWinner == acplWinner && winWinner != "" {
			return fmt.Sprintf("Run %s is significantly better on both win rate and move quality.", winWinner)
		}
		return "No clear winner: win rate and move quality disagree."
	case cmp.WinRate.Significant && winWinner != "":
		return fmt.Sprintf("Run %s wins significantly on win rate.", winWinner)
	case cmp.ACPL.Significant && acplWinner != "":
		return fmt.Sprintf("Run %s wins significantly on move quality.", acplWinner)
	default:
		return "No significant difference between the runs."
	}
}

func confidenceNote(nA, nB int) string {
	n := nA
	if nB < n {
		n = nB
	}
	switch {
	case n < 10:
		return fmt.Sprintf("low confidence: only %d games in the smaller run", n)
	case n < 30:
		return fmt.Sprintf("moderate confidence: %d games in the smaller run", n)
	default:
		return fmt.Sprintf("high confidence: %d games in the smaller run", n)
	}
}
