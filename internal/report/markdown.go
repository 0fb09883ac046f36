package report

import (
	"fmt"
	"strings"

	"chessbench/internal/stats"
)

// SummaryMarkdown renders one run's report as markdown for the terminal.
func SummaryMarkdown(r *Run) string {
	rep := r.Report
	var b strings.Builder
	fmt.Fprintf(&b, "# Run %s\n\n", r.Name())
	fmt.Fprintf(&b, "- Games: %d (%d valid, completion %.0f%%)\n",
		rep.GamesTotal, rep.ValidGames, rep.CompletionRate*100)
	fmt.Fprintf(&b, "- Record: %d-%d-%d (W-L-D)\n",
		rep.Results.Wins, rep.Results.Losses, rep.Results.Draws)
	fmt.Fprintf(&b, "- Illegal-move rate: %.1f%%, retry success: %.0f%%\n",
		rep.IllegalMoveRate*100, rep.RetrySuccessRate*100)
	fmt.Fprintf(&b, "- Tokens: %d in / %d out, cost $%.4f (%.0f%% of budget)\n",
		rep.TokenUsage.Input, rep.TokenUsage.Output, rep.CostUSD, rep.Budget.Utilization*100)
	fmt.Fprintf(&b, "- p95 decision latency: %.0f ms\n", rep.P95LatencyMS)
	if rep.Stop.Stopped {
		fmt.Fprintf(&b, "- Stopped early: %s\n", strings.Join(rep.Stop.Reasons, ", "))
	}

	if len(rep.Terminations) > 0 {
		b.WriteString("\n## Terminations\n\n")
		b.WriteString("| Termination | Games |\n|---|---|\n")
		for _, term := range sortedKeys(rep.Terminations) {
			fmt.Fprintf(&b, "| %s | %d |\n", term, rep.Terminations[term])
		}
	}

	if q := rep.Quality; q != nil {
		b.WriteString("\n## Move quality\n\n")
		fmt.Fprintf(&b, "- Player color: %s (requested %s)\n", q.PlayerColor, q.PlayerColorRequested)
		fmt.Fprintf(&b, "- Moves evaluated: %d\n", q.MovesEvaluated)
		fmt.Fprintf(&b, "- ACPL %.1f, blunder rate %.1f%%, best-move agreement %.1f%%\n",
			q.Overall.ACPL, q.Overall.BlunderRate*100, q.Overall.BestMoveAgreement*100)
		for _, phase := range phaseOrder {
			pq, ok := q.ByPhase[phase]
			if !ok {
				continue
			}
			fmt.Fprintf(&b, "  - %s: %d moves, ACPL %.1f\n", phase, pq.Moves, pq.ACPL)
		}
		if q.Elo != nil {
			fmt.Fprintf(&b, "- Elo estimate: %.0f ± %.0f (95%% CI %.0f–%.0f over %d games)\n",
				q.Elo.Estimate, q.Elo.StdError, q.Elo.CILow, q.Elo.CIHigh, q.Elo.Games)
		}
		if q.Retrieval != nil {
			fmt.Fprintf(&b, "- Retrieval: hit ACPL %.1f over %d moves vs no-hit %.1f over %d; hit/loss r=%.2f\n",
				q.Retrieval.Hit.ACPL, q.Retrieval.Hit.Moves,
				q.Retrieval.NoHit.ACPL, q.Retrieval.NoHit.Moves,
				q.Retrieval.HitLossPearson)
		}
	}
	return b.String()
}

// ComparisonMarkdown renders the two-run comparison as markdown.
func ComparisonMarkdown(cmp stats.Comparison) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s vs %s\n\n", cmp.RunA, cmp.RunB)

	b.WriteString("| Metric | A | B | Delta | 95% CI | p | Effect | Significant |\n")
	b.WriteString("|---|---|---|---|---|---|---|---|\n")
	writeMetricRow(&b, &cmp.WinRate)
	if cmp.ACPL != nil {
		writeMetricRow(&b, cmp.ACPL)
	}

	fmt.Fprintf(&b, "\n**Recommendation**: %s\n\n", cmp.Recommendation)
	fmt.Fprintf(&b, "_%s_\n", cmp.ConfidenceNote)
	for _, note := range cmp.Notes {
		fmt.Fprintf(&b, "\n- %s\n", note)
	}
	return b.String()
}

func writeMetricRow(b *strings.Builder, m *stats.Metric) {
	sig := "no"
	if m.Significant {
		sig = "yes"
	}
	fmt.Fprintf(b, "| %s | %.3f | %.3f | %+.3f | [%.3f, %.3f] | %.4f | %.2f (%s) | %s |\n",
		m.Name, m.MeanA, m.MeanB, m.Delta, m.CILow, m.CIHigh, m.PValue, m.EffectSize, m.Magnitude, sig)
}
