// Package usage accumulates per-run token and cost accounting across every
// provider call, keyed by provider, model, color, phase, and game.
package usage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"chessbench/internal/types"
)

// Event is one provider call attributed to a point in the run.
type Event struct {
	Provider string
	Model    string
	Color    types.Color
	Phase    types.Phase
	GameID   string
	Tokens   types.TokenUsage
	CostUSD  float64
}

// Tracker manages usage recording and persistence for one run.
type Tracker struct {
	mu       sync.Mutex
	data     UsageData
	filePath string
}

// NewTracker creates a tracker persisting to usage.json under the run
// directory. Existing data is loaded so resumed runs keep accumulating.
func NewTracker(runDir, runID string) (*Tracker, error) {
	if err := os.MkdirAll(runDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating run dir: %w", err)
	}
	t := &Tracker{
		filePath: filepath.Join(runDir, "usage.json"),
		data: UsageData{
			Version: "1.0",
			RunID:   runID,
			Aggregate: AggregatedStats{
				ByProvider: make(map[string]TokenCounts),
				ByModel:    make(map[string]TokenCounts),
				ByColor:    make(map[string]TokenCounts),
				ByPhase:    make(map[string]TokenCounts),
				ByGame:     make(map[string]TokenCounts),
			},
		},
	}
	if err := t.load(); err != nil {
		return nil, err
	}
	return t, nil
}

func (t *Tracker) load() error {
	data, err := os.ReadFile(t.filePath)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, &t.data); err != nil {
		return fmt.Errorf("parsing %s: %w", t.filePath, err)
	}
	agg := &t.data.Aggregate
	if agg.ByProvider == nil {
		agg.ByProvider = make(map[string]TokenCounts)
	}
	if agg.ByModel == nil {
		agg.ByModel = make(map[string]TokenCounts)
	}
	if agg.ByColor == nil {
		agg.ByColor = make(map[string]TokenCounts)
	}
	if agg.ByPhase == nil {
		agg.ByPhase = make(map[string]TokenCounts)
	}
	if agg.ByGame == nil {
		agg.ByGame = make(map[string]TokenCounts)
	}
	return nil
}

// Save writes the usage data to disk.
func (t *Tracker) Save() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	data, err := json.MarshalIndent(t.data, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(t.filePath, data, 0o644)
}

// Track folds one provider call into the aggregates.
func (t *Tracker) Track(ev Event) {
	t.mu.Lock()
	defer t.mu.Unlock()

	in, out := ev.Tokens.Input, ev.Tokens.Output
	t.data.Aggregate.TotalRun.Add(in, out, ev.CostUSD)
	addToMap(t.data.Aggregate.ByProvider, ev.Provider, in, out, ev.CostUSD)
	addToMap(t.data.Aggregate.ByModel, ev.Model, in, out, ev.CostUSD)
	addToMap(t.data.Aggregate.ByColor, string(ev.Color), in, out, ev.CostUSD)
	addToMap(t.data.Aggregate.ByPhase, string(ev.Phase), in, out, ev.CostUSD)
	if ev.GameID != "" {
		addToMap(t.data.Aggregate.ByGame, ev.GameID, in, out, ev.CostUSD)
	}
}

// TotalCost returns the spend accumulated so far.
func (t *Tracker) TotalCost() float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.data.Aggregate.TotalRun.CostUSD
}

// TotalTokens returns the run-wide token usage.
func (t *Tracker) TotalTokens() types.TokenUsage {
	t.mu.Lock()
	defer t.mu.Unlock()
	tot := t.data.Aggregate.TotalRun
	return types.TokenUsage{Input: tot.Input, Output: tot.Output}
}

// Stats returns a copy of the aggregated stats.
func (t *Tracker) Stats() AggregatedStats {
	t.mu.Lock()
	defer t.mu.Unlock()
	stats := t.data.Aggregate
	stats.ByProvider = copyTokenCountsMap(stats.ByProvider)
	stats.ByModel = copyTokenCountsMap(stats.ByModel)
	stats.ByColor = copyTokenCountsMap(stats.ByColor)
	stats.ByPhase = copyTokenCountsMap(stats.ByPhase)
	stats.ByGame = copyTokenCountsMap(stats.ByGame)
	return stats
}

func copyTokenCountsMap(src map[string]TokenCounts) map[string]TokenCounts {
	dst := make(map[string]TokenCounts, len(src))
	for key, counts := range src {
		dst[key] = counts
	}
	return dst
}

func addToMap(m map[string]TokenCounts, key string, input, output int, cost float64) {
	entry := m[key]
	entry.Add(input, output, cost)
	m[key] = entry
}
