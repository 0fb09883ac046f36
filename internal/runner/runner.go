// Package runner plans and executes an experiment: sequential games with
// budget and reliability gates, durable per-game artifacts, resume, and the
// end-of-run report.
package runner

import (
	"context"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"time"

	"chessbench/internal/board"
	"chessbench/internal/config"
	"chessbench/internal/game"
	"chessbench/internal/ident"
	"chessbench/internal/knowledge"
	"chessbench/internal/logging"
	"chessbench/internal/player"
	"chessbench/internal/provider"
	"chessbench/internal/types"
	"chessbench/internal/usage"
)

// Plan is the pre-flight schedule for a run.
type Plan struct {
	ScheduledGames   int     `json:"scheduled_games"`
	TargetValidGames int     `json:"target_valid_games"`
	ProjectedCostUSD float64 `json:"projected_cost_usd"`
	BudgetCapUSD     float64 `json:"budget_cap_usd"`
	WithinBudget     bool    `json:"within_budget"`
}

// ComputePlan sizes the schedule: enough games that the expected completion
// rate still yields the target, capped at max_games.
func ComputePlan(cfg *config.Resolved) Plan {
	exp := cfg.Experiment
	needed := int(math.Ceil(float64(exp.TargetValidGames) / exp.ExpectedCompletionRate))
	scheduled := needed
	if exp.MaxGames > 0 && exp.MaxGames < scheduled {
		scheduled = exp.MaxGames
	}
	projected := cfg.Budget.EstimatedAvgCostPerGameUSD * float64(scheduled)
	return Plan{
		ScheduledGames:   scheduled,
		TargetValidGames: exp.TargetValidGames,
		ProjectedCostUSD: projected,
		BudgetCapUSD:     cfg.Budget.MaxTotalUSD,
		WithinBudget:     projected <= cfg.Budget.MaxTotalUSD,
	}
}

// Runner executes one experiment run.
type Runner struct {
	Res       *config.Resolution
	Knowledge *knowledge.Service

	// Now is injectable for deterministic run ids in tests.
	Now func() time.Time
	// NewPlayer is injectable so tests can seat scripted players.
	NewPlayer func(pc config.PlayerConfig, deps player.Deps) (player.Player, error)
	// EvalFunc runs the post-run evaluation pipeline when auto-eval is on.
	EvalFunc func(runDir string) error
}

func (r *Runner) now() time.Time {
	if r.Now != nil {
		return r.Now()
	}
	return time.Now()
}

func (r *Runner) newPlayer(pc config.PlayerConfig, deps player.Deps) (player.Player, error) {
	if r.NewPlayer != nil {
		return r.NewPlayer(pc, deps)
	}
	return player.New(pc, deps)
}

// Run executes the experiment to completion, a stop gate, or an error.
func (r *Runner) Run(ctx context.Context) (*types.RunResult, error) {
	cfg := r.Res.Config
	plan := ComputePlan(cfg)
	log := logging.Get(logging.CategoryRun)

	runDir, runID, existing, err := r.prepareRunDir(plan)
	if err != nil {
		return nil, err
	}
	resumedFrom := len(existing)
	games := existing

	tracker, err := usage.NewTracker(runDir, runID)
	if err != nil {
		return nil, fmt.Errorf("opening usage tracker: %w", err)
	}

	stop := types.StopInfo{}
	target := cfg.Experiment.TargetValidGames
	log.Info("run %s: scheduled=%d target=%d resumed_games=%d", runID, plan.ScheduledGames, target, resumedFrom)

	for n := maxGameNumber(games) + 1; n <= plan.ScheduledGames; n++ {
		if validGames(games) >= target {
			break
		}
		if reason := r.budgetGate(games, plan); reason != "" {
			stop.Stopped = true
			stop.Reasons = append(stop.Reasons, reason)
			log.Warn("run %s: stopping before game %d: %s", runID, n, reason)
			break
		}

		rec, err := r.playGame(ctx, n, runID, tracker)
		if err != nil {
			return nil, err
		}
		if err := WriteJSONAtomic(filepath.Join(runDir, "games", GameFileName(n)), rec); err != nil {
			return nil, err
		}
		games = append(games, *rec)

		if reason := r.reliabilityGate(games); reason != "" {
			stop.Stopped = true
			stop.Reasons = append(stop.Reasons, reason)
			log.Warn("run %s: stopping after game %d: %s", runID, n, reason)
			break
		}
	}

	report := BuildReport(games, cfg, r.Res.Hash, runID, stop)
	report.Budget.ProjectedUSD = plan.ProjectedCostUSD
	if err := WriteJSONAtomic(filepath.Join(runDir, "experiment_report.json"), report); err != nil {
		return nil, err
	}
	if err := tracker.Save(); err != nil {
		log.Warn("saving usage: %v", err)
	}

	result := &types.RunResult{
		RunID:        runID,
		RunDir:       runDir,
		GamesWritten: len(games) - resumedFrom,
		ValidGames:   report.ValidGames,
		Stop:         stop,
		CostUSD:      report.CostUSD,
	}

	if cfg.Evaluation.Auto.Enabled {
		result.Evaluation = r.autoEval(runDir)
		if result.Evaluation.Status == types.EvalFailed && cfg.Evaluation.Auto.FailOnError {
			return result, fmt.Errorf("auto evaluation failed: %s", result.Evaluation.Message)
		}
	}
	return result, nil
}

// prepareRunDir resolves resume-or-fresh and writes the start-of-run
// artifacts. It returns the run directory, run id, and any resumed games.
func (r *Runner) prepareRunDir(plan Plan) (string, string, []types.GameRecord, error) {
	cfg := r.Res.Config
	outputDir := cfg.Runtime.OutputDir

	var runDir, runID string
	var existing []types.GameRecord
	resumed := false

	if cfg.Runtime.Resume || cfg.Runtime.ResumeRunID != "" {
		dir, err := resumeTarget(outputDir, cfg.Experiment.Name, r.Res.Hash, cfg.Runtime.ResumeRunID)
		if err != nil {
			return "", "", nil, err
		}
		if dir != "" {
			runDir, runID, resumed = dir, filepath.Base(dir), true
			existing, err = loadExistingGames(dir)
			if err != nil {
				return "", "", nil, err
			}
		}
	}
	if runDir == "" {
		runID = ident.RunID(cfg.Experiment.Name, r.Res.Hash, r.now())
		runDir = filepath.Join(outputDir, runID)
	}

	if err := os.MkdirAll(filepath.Join(runDir, "games"), 0o755); err != nil {
		return "", "", nil, fmt.Errorf("creating run dir: %w", err)
	}
	if err := config.WriteResolvedYAML(filepath.Join(runDir, "resolved_config.yaml"), r.Res.Map); err != nil {
		return "", "", nil, err
	}
	if err := os.WriteFile(filepath.Join(runDir, "config_hash.txt"), []byte(r.Res.Hash+"\n"), 0o644); err != nil {
		return "", "", nil, err
	}

	meta := types.RunMetadata{
		SchemaVersion:   types.SchemaVersionRun,
		RunID:           runID,
		ExperimentName:  cfg.Experiment.Name,
		ConfigHash:      r.Res.Hash,
		Config:          Redact(r.Res.Map),
		RequiredEnvVars: requiredEnvVars(cfg),
		StartedAt:       r.now().UTC(),
		Resumed:         resumed,
	}
	if resumed {
		meta.ResumedFromGame = maxGameNumber(existing) + 1
	}
	if err := WriteJSONAtomic(filepath.Join(runDir, "_run.json"), meta); err != nil {
		return "", "", nil, err
	}
	return runDir, runID, existing, nil
}

// playGame seats fresh players, plays one game, and folds its usage into the
// tracker. Players are always closed before returning.
func (r *Runner) playGame(ctx context.Context, n int, runID string, tracker *usage.Tracker) (*types.GameRecord, error) {
	cfg := r.Res.Config
	seed := ident.GameSeed(cfg.Experiment.BaseSeed, n)
	deps := player.Deps{
		Protocol:  cfg.Protocol,
		Strategy:  cfg.Strategy,
		Knowledge: r.Knowledge,
		Seed:      seed,
	}

	white, err := r.newPlayer(cfg.Players.White, deps)
	if err != nil {
		return nil, fmt.Errorf("building white player: %w", err)
	}
	defer white.Close()
	black, err := r.newPlayer(cfg.Players.Black, deps)
	if err != nil {
		return nil, fmt.Errorf("building black player: %w", err)
	}
	defer black.Close()

	loop := &game.Loop{
		White:    white,
		Black:    black,
		MaxPlies: cfg.Protocol.MaxPlies,
		Mode:     cfg.Protocol.Mode,
		Fallback: player.NewRandom("fallback", seed),
	}
	out := loop.Play(ctx)

	rec := &types.GameRecord{
		ExperimentID:    runID,
		GameNumber:      n,
		ConfigHash:      r.Res.Hash,
		Seed:            seed,
		Players:         types.PlayersSnapshot{White: white.Spec(), Black: black.Spec()},
		Moves:           out.Moves,
		Result:          out.Result,
		Termination:     out.Termination,
		TokenUsage:      out.TokenUsage,
		CostUSD:         out.CostUSD,
		DurationSeconds: out.DurationSeconds,
		TimestampUTC:    r.now().UTC(),
	}

	specs := map[types.Color]types.PlayerSpec{
		types.ColorWhite: rec.Players.White,
		types.ColorBlack: rec.Players.Black,
	}
	for i := range rec.Moves {
		m := &rec.Moves[i]
		if m.Decision.ProviderCalls == 0 {
			continue
		}
		tracker.Track(usage.Event{
			Provider: specs[m.Color].Provider,
			Model:    m.Decision.ProviderModel,
			Color:    m.Color,
			Phase:    board.PhaseOfFEN(m.FENBefore),
			GameID:   GameFileName(n),
			Tokens:   types.TokenUsage{Input: m.Decision.TokensInput, Output: m.Decision.TokensOutput},
			CostUSD:  m.Decision.CostUSD,
		})
	}
	return rec, nil
}

// budgetGate runs before each game.
func (r *Runner) budgetGate(games []types.GameRecord, plan Plan) string {
	budget := r.Res.Config.Budget
	total := totalCost(games)
	if total >= budget.MaxTotalUSD {
		return types.StopBudgetCapReached
	}

	projectionRate := budget.EstimatedAvgCostPerGameUSD
	if len(games) > 0 {
		if observed := total / float64(len(games)); observed > projectionRate {
			projectionRate = observed
		}
	}
	remaining := plan.ScheduledGames - len(games)
	if remaining < 0 {
		remaining = 0
	}
	if total+projectionRate*float64(remaining) > budget.MaxTotalUSD {
		return types.StopProjectedBudgetExceeded
	}
	return ""
}

// reliabilityGate runs after each game.
func (r *Runner) reliabilityGate(games []types.GameRecord) string {
	policy := r.Res.Config.Runtime.TimeoutPolicy
	if !policy.Enabled || policy.Action != "stop_run" || len(games) < policy.MinGamesBeforeEnforcement {
		return ""
	}

	timeouts := 0
	for i := range games {
		if games[i].HasProviderTimeout() {
			timeouts++
		}
	}
	if rate := float64(timeouts) / float64(len(games)); rate > policy.MaxProviderTimeoutGameRate {
		return types.StopProviderTimeoutRate
	}
	if rate := float64(validGames(games)) / float64(len(games)); rate < policy.MinObservedCompletionRate {
		return types.StopCompletionRateBelowFloor
	}
	return ""
}

func (r *Runner) autoEval(runDir string) *types.EvalOutcome {
	if r.EvalFunc == nil {
		return &types.EvalOutcome{Status: types.EvalSkipped, Message: "no evaluation pipeline wired"}
	}
	if err := r.EvalFunc(runDir); err != nil {
		return &types.EvalOutcome{Status: types.EvalFailed, Message: err.Error()}
	}
	return &types.EvalOutcome{Status: types.EvalCompleted}
}

func validGames(games []types.GameRecord) int {
	n := 0
	for i := range games {
		if types.IsValidTermination(games[i].Termination) {
			n++
		}
	}
	return n
}

func totalCost(games []types.GameRecord) float64 {
	var total float64
	for i := range games {
		total += games[i].CostUSD
	}
	return total
}

func maxGameNumber(games []types.GameRecord) int {
	max := 0
	for i := range games {
		if games[i].GameNumber > max {
			max = games[i].GameNumber
		}
	}
	return max
}

// requiredEnvVars derives the env vars the configured providers read.
func requiredEnvVars(cfg *config.Resolved) []string {
	seen := map[string]bool{}
	var out []string
	for _, pc := range []config.PlayerConfig{cfg.Players.White, cfg.Players.Black} {
		if pc.Type != player.TypeLLM || pc.APIKey != "" {
			continue
		}
		if v, ok := provider.APIKeyEnvVar(pc.Provider); ok && !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}
	return out
}
