package runner

import (
	"sort"
	"time"

	"chessbench/internal/config"
	"chessbench/internal/decision"
	"chessbench/internal/player"
	"chessbench/internal/types"
)

// typeRank orders player types for tracked-color inference: the LLM player
// is the one under study, an engine beats a random baseline.
func typeRank(playerType string) int {
	switch playerType {
	case player.TypeLLM:
		return 3
	case player.TypeEngine:
		return 2
	default:
		return 1
	}
}

// InferPlayerColor picks the tracked side: the higher-ranked player type,
// ties resolving to black.
func InferPlayerColor(players config.PlayersConfig) types.Color {
	if typeRank(players.White.Type) > typeRank(players.Black.Type) {
		return types.ColorWhite
	}
	return types.ColorBlack
}

// BuildReport aggregates finished games into the end-of-run report.
func BuildReport(games []types.GameRecord, cfg *config.Resolved, configHash, runID string, stop types.StopInfo) types.ExperimentReport {
	rep := types.ExperimentReport{
		SchemaVersion: types.SchemaVersionRun,
		ExperimentID:  runID,
		ConfigHash:    configHash,
		GamesTotal:    len(games),
		Terminations:  make(map[string]int),
		Stop:          stop,
		GeneratedAt:   time.Now().UTC(),
	}

	tracked := InferPlayerColor(cfg.Players)

	var (
		latencies      []float64
		totalDecisions int
		illegalFinal   int
		retried        int
		retriedOK      int
		moaMoves       int
		retrievalMoves int
		retrievalHits  int
	)

	for i := range games {
		g := &games[i]
		rep.Terminations[g.Termination]++
		rep.TokenUsage.Add(g.TokenUsage.Input, g.TokenUsage.Output)
		rep.CostUSD += g.CostUSD
		if types.IsValidTermination(g.Termination) {
			rep.ValidGames++
			switch {
			case g.Result == types.ResultDraw:
				rep.Results.Draws++
			case g.Result == types.ResultWhiteWins && tracked == types.ColorWhite,
				g.Result == types.ResultBlackWins && tracked == types.ColorBlack:
				rep.Results.Wins++
			case g.Result == types.ResultWhiteWins || g.Result == types.ResultBlackWins:
				rep.Results.Losses++
			}
		}

		for j := range g.Moves {
			d := &g.Moves[j].Decision
			totalDecisions++
			if d.LatencyMS > 0 {
				latencies = append(latencies, d.LatencyMS)
			}
			if d.Error == "illegal_move" || d.Error == decision.ErrFallbackRandom {
				illegalFinal++
			}
			if d.RetryCount > 0 {
				retried++
				if d.IsLegal && d.ParseOK {
					retriedOK++
				}
			}
			if d.DecisionMode == types.DecisionCapabilityMoA {
				moaMoves++
			}
			if d.Retrieval != nil && d.Retrieval.Enabled {
				retrievalMoves++
				if d.Retrieval.HitCount > 0 {
					retrievalHits++
				}
			}
		}
	}

	if len(games) > 0 {
		rep.CompletionRate = float64(rep.ValidGames) / float64(len(games))
	}
	if totalDecisions > 0 {
		rep.IllegalMoveRate = float64(illegalFinal) / float64(totalDecisions)
		rep.MoAMoveShare = float64(moaMoves) / float64(totalDecisions)
	}
	if retried > 0 {
		rep.RetrySuccessRate = float64(retriedOK) / float64(retried)
	}
	if retrievalMoves > 0 {
		rep.RetrievalHitRate = float64(retrievalHits) / float64(retrievalMoves)
	}
	rep.P95LatencyMS = percentile(latencies, 0.95)

	rep.Budget = types.BudgetReport{
		CapUSD:           cfg.Budget.MaxTotalUSD,
		SpentUSD:         rep.CostUSD,
		EstimatedPerGame: cfg.Budget.EstimatedAvgCostPerGameUSD,
	}
	if cfg.Budget.MaxTotalUSD > 0 {
		rep.Budget.Utilization = rep.CostUSD / cfg.Budget.MaxTotalUSD
	}
	return rep
}

// percentile returns the p-quantile by the nearest-rank method.
func percentile(values []float64, p float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	rank := int(p*float64(len(sorted))+0.5) - 1
	if rank < 0 {
		rank = 0
	}
	if rank >= len(sorted) {
		rank = len(sorted) - 1
	}
	return sorted[rank]
}
