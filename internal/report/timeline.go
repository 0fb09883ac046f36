package report

import "chessbench/internal/types"

// TimelinePoint is one game's slice of the run, with the running cost so
// budget burn can be plotted over game number.
type TimelinePoint struct {
	GameNumber        int          `json:"game_number"`
	Valid             bool         `json:"valid"`
	Result            types.Result `json:"result"`
	Termination       string       `json:"termination"`
	Plies             int          `json:"plies"`
	TokensInput       int          `json:"tokens_input"`
	TokensOutput      int          `json:"tokens_output"`
	CostUSD           float64      `json:"cost_usd"`
	CumulativeCostUSD float64      `json:"cumulative_cost_usd"`
	DurationSeconds   float64      `json:"duration_seconds"`
}

// Timeline aggregates game records into per-game points, in input order.
func Timeline(games []types.GameRecord) []TimelinePoint {
	out := make([]TimelinePoint, 0, len(games))
	total := 0.0
	for i := range games {
		g := &games[i]
		total += g.CostUSD
		out = append(out, TimelinePoint{
			GameNumber:        g.GameNumber,
			Valid:             types.IsValidTermination(g.Termination),
			Result:            g.Result,
			Termination:       g.Termination,
			Plies:             len(g.Moves),
			TokensInput:       g.TokenUsage.Input,
			TokensOutput:      g.TokenUsage.Output,
			CostUSD:           g.CostUSD,
			CumulativeCostUSD: total,
			DurationSeconds:   g.DurationSeconds,
		})
	}
	return out
}
