package usage

// TokenCounts accumulates tokens and spend for one aggregation key.
type TokenCounts struct {
	Input   int     `json:"input_tokens"`
	Output  int     `json:"output_tokens"`
	Total   int     `json:"total_tokens"`
	Calls   int     `json:"calls"`
	CostUSD float64 `json:"cost_usd"`
}

// Add folds one provider call into the counts.
func (tc *TokenCounts) Add(input, output int, cost float64) {
	tc.Input += input
	tc.Output += output
	tc.Total += input + output
	tc.Calls++
	tc.CostUSD += cost
}

// AggregatedStats breaks usage down along the axes the report cares about.
type AggregatedStats struct {
	TotalRun   TokenCounts            `json:"total_run"`
	ByProvider map[string]TokenCounts `json:"by_provider"`
	ByModel    map[string]TokenCounts `json:"by_model"`
	ByColor    map[string]TokenCounts `json:"by_color"`
	ByPhase    map[string]TokenCounts `json:"by_phase"`
	ByGame     map[string]TokenCounts `json:"by_game"`
}

// UsageData is the persisted shape of a run's usage file.
type UsageData struct {
	Version   string          `json:"version"`
	RunID     string          `json:"run_id"`
	Aggregate AggregatedStats `json:"aggregate"`
}
