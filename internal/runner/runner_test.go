package runner

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"chessbench/internal/board"
	"chessbench/internal/config"
	"chessbench/internal/player"
	"chessbench/internal/types"
)

// stubPlayer returns the same decision template every ply, with a fresh
// random legal move when the template carries none.
type stubPlayer struct {
	template types.MoveDecision
	random   *player.Random
}

func (p *stubPlayer) Spec() types.PlayerSpec { return types.PlayerSpec{Type: "llm", Name: "stub"} }

func (p *stubPlayer) ChooseMove(ctx context.Context, st board.State) types.MoveDecision {
	d := p.template
	if d.Error == "" && p.random != nil {
		return p.random.ChooseMove(ctx, st)
	}
	return d
}

func (p *stubPlayer) Close() error { return nil }

func resolve(t *testing.T, overrides ...string) *config.Resolution {
	t.Helper()
	base := []string{
		"tracking.enabled=false",
		"players.white.type=random",
		"protocol.max_plies=4",
		"experiment.target_valid_games=2",
		"experiment.expected_completion_rate=1.0",
	}
	res, err := config.LoadLayered("", "", "", append(base, overrides...), config.Options{})
	if err != nil {
		t.Fatalf("LoadLayered: %v", err)
	}
	return res
}

func fixedNow() time.Time {
	return time.Date(2026, 8, 29, 12, 0, 0, 0, time.UTC)
}

func TestComputePlan(t *testing.T) {
	res := resolve(t,
		"experiment.target_valid_games=10",
		"experiment.expected_completion_rate=0.9",
		"experiment.max_games=40",
	)
	plan := ComputePlan(res.Config)
	if plan.ScheduledGames != 12 {
		t.Fatalf("scheduled = %d, want ceil(10/0.9)=12", plan.ScheduledGames)
	}
	if plan.ProjectedCostUSD != 3.0 {
		t.Fatalf("projected = %g, want 3.0", plan.ProjectedCostUSD)
	}
	if !plan.WithinBudget {
		t.Fatal("plan should fit the default budget")
	}

	capped := resolve(t, "experiment.target_valid_games=10", "experiment.max_games=5")
	if got := ComputePlan(capped.Config).ScheduledGames; got != 5 {
		t.Fatalf("scheduled = %d, want max_games cap 5", got)
	}
}

func TestRun_WritesArtifactsAndReport(t *testing.T) {
	dir := t.TempDir()
	res := resolve(t, "runtime.output_dir="+dir)
	r := &Runner{Res: res, Now: fixedNow}

	result, err := r.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.GamesWritten != 2 || result.ValidGames != 2 {
		t.Fatalf("result = %+v, want 2 games / 2 valid", result)
	}
	if result.Stop.Stopped {
		t.Fatalf("unexpected stop: %+v", result.Stop)
	}

	for _, name := range []string{
		"resolved_config.yaml", "config_hash.txt", "_run.json",
		"experiment_report.json", "usage.json",
		filepath.Join("games", "game_0001.json"),
		filepath.Join("games", "game_0002.json"),
	} {
		if _, err := os.Stat(filepath.Join(result.RunDir, name)); err != nil {
			t.Errorf("missing artifact %s: %v", name, err)
		}
	}

	hash, err := os.ReadFile(filepath.Join(result.RunDir, "config_hash.txt"))
	if err != nil {
		t.Fatalf("reading hash: %v", err)
	}
	if strings.TrimSpace(string(hash)) != res.Hash {
		t.Fatal("config_hash.txt does not match resolution hash")
	}
	if !strings.HasPrefix(filepath.Base(result.RunDir), "baseline-") {
		t.Fatalf("run dir %s missing experiment prefix", result.RunDir)
	}
}

func TestRun_ResumeContinuesNumbering(t *testing.T) {
	dir := t.TempDir()
	res := resolve(t, "runtime.output_dir="+dir, "experiment.target_valid_games=3", "experiment.max_games=2")
	r := &Runner{Res: res, Now: fixedNow}

	first, err := r.Run(context.Background())
	if err != nil {
		t.Fatalf("first Run: %v", err)
	}
	if first.GamesWritten != 2 {
		t.Fatalf("first run wrote %d games", first.GamesWritten)
	}

	// Same config, bumped schedule, resume on: must continue in the same
	// directory at game 3.
	res2 := resolve(t, "runtime.output_dir="+dir, "experiment.target_valid_games=3", "experiment.max_games=2", "runtime.resume=true")
	if res2.Hash != res.Hash {
		t.Fatal("resume flag must not change the config hash")
	}
	r2 := &Runner{Res: res2, Now: func() time.Time { return fixedNow().Add(time.Hour) }}
	second, err := r2.Run(context.Background())
	if err != nil {
		t.Fatalf("resumed Run: %v", err)
	}
	if second.RunDir != first.RunDir {
		t.Fatalf("resume created new dir %s, want %s", second.RunDir, first.RunDir)
	}
	if second.GamesWritten != 0 {
		// max_games=2 exhausted; resume must not rewrite games 1-2.
		t.Fatalf("resumed run wrote %d new games", second.GamesWritten)
	}
	if second.ValidGames != 2 {
		t.Fatalf("resumed valid games = %d, want 2 from disk", second.ValidGames)
	}
}

func readReportFile(t *testing.T, runDir string) types.ExperimentReport {
	t.Helper()
	raw, err := os.ReadFile(filepath.Join(runDir, "experiment_report.json"))
	if err != nil {
		t.Fatalf("reading report: %v", err)
	}
	var rep types.ExperimentReport
	if err := json.Unmarshal(raw, &rep); err != nil {
		t.Fatalf("parsing report: %v", err)
	}
	return rep
}

func readGameRecords(t *testing.T, runDir string) []types.GameRecord {
	t.Helper()
	games, err := loadExistingGames(runDir)
	if err != nil {
		t.Fatalf("loading games: %v", err)
	}
	return games
}

func TestRun_SameConfigProducesIdenticalRecords(t *testing.T) {
	var games [2][]types.GameRecord
	var reports [2]types.ExperimentReport
	for i := range games {
		dir := t.TempDir()
		res := resolve(t, "runtime.output_dir="+dir)
		result, err := (&Runner{Res: res, Now: fixedNow}).Run(context.Background())
		if err != nil {
			t.Fatalf("run %d: %v", i+1, err)
		}
		games[i] = readGameRecords(t, result.RunDir)
		reports[i] = readReportFile(t, result.RunDir)
	}

	// Wall-clock durations are the only permitted difference.
	ignoreDur := cmpopts.IgnoreFields(types.GameRecord{}, "DurationSeconds")
	if diff := cmp.Diff(games[0], games[1], ignoreDur); diff != "" {
		t.Errorf("game records differ between identical runs (-first +second):\n%s", diff)
	}
	ignoreGen := cmpopts.IgnoreFields(types.ExperimentReport{}, "GeneratedAt")
	if diff := cmp.Diff(reports[0], reports[1], ignoreGen); diff != "" {
		t.Errorf("reports differ between identical runs (-first +second):\n%s", diff)
	}
}

func TestRun_ResumedRunMatchesUninterrupted(t *testing.T) {
	refDir := t.TempDir()
	refRes := resolve(t, "runtime.output_dir="+refDir)
	ref, err := (&Runner{Res: refRes, Now: fixedNow}).Run(context.Background())
	if err != nil {
		t.Fatalf("reference run: %v", err)
	}

	// Play the same experiment, then drop the last game and the report to
	// simulate a crash after game 1.
	dir := t.TempDir()
	res := resolve(t, "runtime.output_dir="+dir)
	first, err := (&Runner{Res: res, Now: fixedNow}).Run(context.Background())
	if err != nil {
		t.Fatalf("interrupted run: %v", err)
	}
	for _, name := range []string{filepath.Join("games", "game_0002.json"), "experiment_report.json"} {
		if err := os.Remove(filepath.Join(first.RunDir, name)); err != nil {
			t.Fatal(err)
		}
	}

	res2 := resolve(t, "runtime.output_dir="+dir, "runtime.resume=true")
	second, err := (&Runner{Res: res2, Now: fixedNow}).Run(context.Background())
	if err != nil {
		t.Fatalf("resumed run: %v", err)
	}
	if second.RunDir != first.RunDir {
		t.Fatalf("resume created new dir %s, want %s", second.RunDir, first.RunDir)
	}
	if second.GamesWritten != 1 {
		t.Fatalf("resumed run wrote %d games, want 1", second.GamesWritten)
	}

	ignoreDur := cmpopts.IgnoreFields(types.GameRecord{}, "DurationSeconds")
	if diff := cmp.Diff(readGameRecords(t, ref.RunDir), readGameRecords(t, second.RunDir), ignoreDur); diff != "" {
		t.Errorf("resumed game records differ from uninterrupted run (-ref +resumed):\n%s", diff)
	}
	ignoreGen := cmpopts.IgnoreFields(types.ExperimentReport{}, "GeneratedAt")
	if diff := cmp.Diff(readReportFile(t, ref.RunDir), readReportFile(t, second.RunDir), ignoreGen); diff != "" {
		t.Errorf("resumed report differs from uninterrupted run (-ref +resumed):\n%s", diff)
	}
}

func TestRun_ResumeExplicitIDHashMismatchFails(t *testing.T) {
	dir := t.TempDir()
	runDir := filepath.Join(dir, "baseline-20260101T000000Z-deadbeef")
	if err := os.MkdirAll(runDir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(runDir, "config_hash.txt"), []byte("0000000000000000\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	res := resolve(t, "runtime.output_dir="+dir, "runtime.resume_run_id=baseline-20260101T000000Z-deadbeef")
	r := &Runner{Res: res, Now: fixedNow}
	if _, err := r.Run(context.Background()); err == nil || !strings.Contains(err.Error(), "hash mismatch") {
		t.Fatalf("expected hash mismatch error, got %v", err)
	}
}

func TestRun_BudgetCapStopsRun(t *testing.T) {
	dir := t.TempDir()
	res := resolve(t,
		"runtime.output_dir="+dir,
		"experiment.target_valid_games=10",
		"experiment.expected_completion_rate=1.0",
		"experiment.max_games=10",
		"budget.max_total_usd=0.5",
		"budget.estimated_avg_cost_per_game_usd=0.01",
		"runtime.timeout_policy.enabled=false",
	)
	r := &Runner{
		Res: res,
		Now: fixedNow,
		NewPlayer: func(pc config.PlayerConfig, deps player.Deps) (player.Player, error) {
			p := &stubPlayer{random: player.NewRandom("s", deps.Seed)}
			return &costlyPlayer{inner: p, costPerMove: 0.15}, nil
		},
	}

	result, err := r.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !result.Stop.Stopped {
		t.Fatal("budget gate did not stop the run")
	}
	if result.Stop.Reasons[0] != types.StopBudgetCapReached {
		t.Fatalf("stop reason = %v, want budget_cap_reached", result.Stop.Reasons)
	}
	// 4 plies at 0.15 = 0.6 per game; the first game already exceeds 0.5.
	if result.GamesWritten != 1 {
		t.Fatalf("games written = %d, want 1", result.GamesWritten)
	}
}

func TestRun_ProjectedBudgetStopsRun(t *testing.T) {
	dir := t.TempDir()
	res := resolve(t,
		"runtime.output_dir="+dir,
		"experiment.target_valid_games=100",
		"experiment.expected_completion_rate=1.0",
		"experiment.max_games=100",
		"budget.max_total_usd=1.0",
		"budget.estimated_avg_cost_per_game_usd=0.5",
		"runtime.timeout_policy.enabled=false",
	)
	r := &Runner{Res: res, Now: fixedNow}

	result, err := r.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	// 100 games at 0.5 estimated projects far past the 1.0 cap before any
	// game is played.
	if !result.Stop.Stopped || result.Stop.Reasons[0] != types.StopProjectedBudgetExceeded {
		t.Fatalf("stop = %+v, want projected_budget_exceeded", result.Stop)
	}
	if result.GamesWritten != 0 {
		t.Fatalf("games written = %d, want 0", result.GamesWritten)
	}
}

func TestRun_TimeoutRateGateStopsRun(t *testing.T) {
	dir := t.TempDir()
	res := resolve(t,
		"runtime.output_dir="+dir,
		"experiment.target_valid_games=10",
		"experiment.max_games=10",
		"runtime.timeout_policy.min_games_before_enforcement=1",
		"runtime.timeout_policy.max_provider_timeout_game_rate=0.4",
	)
	r := &Runner{
		Res: res,
		Now: fixedNow,
		NewPlayer: func(pc config.PlayerConfig, deps player.Deps) (player.Player, error) {
			return &stubPlayer{template: types.MoveDecision{Error: "provider_timeout"}}, nil
		},
	}

	result, err := r.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !result.Stop.Stopped || result.Stop.Reasons[0] != types.StopProviderTimeoutRate {
		t.Fatalf("stop = %+v, want provider_timeout_rate_exceeded", result.Stop)
	}
	if result.GamesWritten != 1 {
		t.Fatalf("games written = %d, want 1", result.GamesWritten)
	}
}

func TestRun_CompletionRateGateStopsRun(t *testing.T) {
	dir := t.TempDir()
	res := resolve(t,
		"runtime.output_dir="+dir,
		"experiment.target_valid_games=10",
		"experiment.max_games=10",
		"protocol.mode=research_strict",
		"runtime.timeout_policy.min_games_before_enforcement=1",
		"runtime.timeout_policy.min_observed_completion_rate=0.5",
	)
	r := &Runner{
		Res: res,
		Now: fixedNow,
		NewPlayer: func(pc config.PlayerConfig, deps player.Deps) (player.Player, error) {
			return &stubPlayer{template: types.MoveDecision{Error: "illegal_move"}}, nil
		},
	}

	result, err := r.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !result.Stop.Stopped || result.Stop.Reasons[0] != types.StopCompletionRateBelowFloor {
		t.Fatalf("stop = %+v, want completion_rate_below_threshold", result.Stop)
	}
	if result.ValidGames != 0 {
		t.Fatalf("valid games = %d, want 0", result.ValidGames)
	}
}

func TestRedact(t *testing.T) {
	in := map[string]any{
		"players": map[string]any{
			"white": map[string]any{
				"api_key": "sk-secret",
				"model":   "gpt-4o-mini",
			},
		},
		"auth_token":  "abc",
		"private_key": "pem",
		"nested": []any{
			map[string]any{"password": "hunter2", "depth": 12},
		},
		"name": "baseline",
	}
	out := Redact(in)

	white := out["players"].(map[string]any)["white"].(map[string]any)
	if white["api_key"] != RedactedValue {
		t.Fatalf("api_key = %v", white["api_key"])
	}
	if white["model"] != "gpt-4o-mini" {
		t.Fatal("non-secret value was altered")
	}
	if out["auth_token"] != RedactedValue || out["private_key"] != RedactedValue {
		t.Fatal("token/private_key not redacted")
	}
	inner := out["nested"].([]any)[0].(map[string]any)
	if inner["password"] != RedactedValue || inner["depth"] != 12 {
		t.Fatalf("list redaction wrong: %v", inner)
	}
	// Original untouched.
	if in["players"].(map[string]any)["white"].(map[string]any)["api_key"] != "sk-secret" {
		t.Fatal("Redact mutated its input")
	}
}

// costlyPlayer wraps another player and attaches a fixed per-move cost.
type costlyPlayer struct {
	inner       player.Player
	costPerMove float64
}

func (c *costlyPlayer) Spec() types.PlayerSpec { return c.inner.Spec() }

func (c *costlyPlayer) ChooseMove(ctx context.Context, st board.State) types.MoveDecision {
	d := c.inner.ChooseMove(ctx, st)
	d.CostUSD = c.costPerMove
	d.ProviderCalls = 1
	return d
}

func (c *costlyPlayer) Close() error { return c.inner.Close() }
