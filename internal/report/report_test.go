package report

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"chessbench/internal/evaluation"
	"chessbench/internal/stats"
	"chessbench/internal/types"
)

func writeJSON(t *testing.T, path string, v any) {
	t.Helper()
	data, err := json.Marshal(v)
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}
}

func game(n int, result types.Result, termination string, cost float64) types.GameRecord {
	return types.GameRecord{
		GameNumber:  n,
		Players:     types.PlayersSnapshot{White: types.PlayerSpec{Type: "llm"}, Black: types.PlayerSpec{Type: "random"}},
		Result:      result,
		Termination: termination,
		TokenUsage:  types.TokenUsage{Input: 100, Output: 20},
		CostUSD:     cost,
	}
}

func writeRun(t *testing.T, evaluated bool, games ...types.GameRecord) string {
	t.Helper()
	dir := t.TempDir()
	rep := types.ExperimentReport{
		SchemaVersion: types.SchemaVersionRun,
		ExperimentID:  filepath.Base(dir),
		GamesTotal:    len(games),
	}
	writeJSON(t, filepath.Join(dir, "experiment_report.json"), rep)
	if evaluated {
		rep.SchemaVersion = types.SchemaVersionEvaluated
		rep.Quality = &types.QualityReport{PlayerColor: types.ColorWhite, PlayerColorRequested: "auto"}
		writeJSON(t, filepath.Join(dir, evaluation.EvaluatedReportFile), rep)
		writeJSON(t, filepath.Join(dir, evaluation.MoveEvalsFile), []evaluation.ScoredMove{
			{GameNumber: 1, PlyNumber: 1, Phase: types.PhaseOpening, CPLoss: 15},
			{GameNumber: 1, PlyNumber: 3, Phase: types.PhaseOpening, CPLoss: 45, Best: false},
		})
	}
	if err := os.MkdirAll(filepath.Join(dir, "games"), 0o755); err != nil {
		t.Fatal(err)
	}
	for i, g := range games {
		writeJSON(t, filepath.Join(dir, "games", fmt.Sprintf("game_%04d.json", i+1)), g)
	}
	return dir
}

func TestLoad_PrefersEvaluatedReport(t *testing.T) {
	dir := writeRun(t, true,
		game(1, types.ResultWhiteWins, types.TerminationCheckmate, 0.1),
		game(2, types.ResultDraw, types.TerminationMaxMoves, 0.2),
		game(3, types.ResultBlackWins, types.TerminationError, 0.05),
	)
	r, err := Load(dir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !r.Evaluated {
		t.Fatal("evaluated report not preferred")
	}
	if r.Report.SchemaVersion != types.SchemaVersionEvaluated {
		t.Errorf("schema = %s", r.Report.SchemaVersion)
	}
	if len(r.Games) != 3 || len(r.Scored) != 2 {
		t.Fatalf("games/scored = %d/%d, want 3/2", len(r.Games), len(r.Scored))
	}

	// Error-terminated game excluded; white tracked: win then draw.
	scores := r.WinScores()
	if len(scores) != 2 || scores[0] != 1 || scores[1] != 0.5 {
		t.Errorf("win scores = %v, want [1 0.5]", scores)
	}
	acpl := r.ACPLSamples()
	if len(acpl) != 2 || acpl[0] != 15 || acpl[1] != 45 {
		t.Errorf("acpl samples = %v", acpl)
	}
}

func TestLoad_FallsBackToRunReport(t *testing.T) {
	dir := writeRun(t, false, game(1, types.ResultWhiteWins, types.TerminationCheckmate, 0.1))
	r, err := Load(dir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if r.Evaluated {
		t.Fatal("run without evaluation flagged evaluated")
	}
	// Tracked color inferred from the players snapshot.
	if scores := r.WinScores(); len(scores) != 1 || scores[0] != 1 {
		t.Errorf("win scores = %v, want [1]", scores)
	}
	if len(r.ACPLSamples()) != 0 {
		t.Error("unexpected acpl samples without evaluation")
	}
}

func TestLoad_MissingReportFails(t *testing.T) {
	if _, err := Load(t.TempDir()); err == nil {
		t.Fatal("expected error for empty directory")
	}
}

func TestTimeline(t *testing.T) {
	games := []types.GameRecord{
		game(1, types.ResultWhiteWins, types.TerminationCheckmate, 0.10),
		game(2, types.ResultBlackWins, types.TerminationError, 0.25),
	}
	points := Timeline(games)
	if len(points) != 2 {
		t.Fatalf("points = %d", len(points))
	}
	if !points[0].Valid || points[1].Valid {
		t.Error("validity flags wrong")
	}
	if points[0].CumulativeCostUSD != 0.10 || points[1].CumulativeCostUSD != 0.35 {
		t.Errorf("cumulative cost = %g/%g", points[0].CumulativeCostUSD, points[1].CumulativeCostUSD)
	}
	if points[0].TokensInput != 100 {
		t.Errorf("tokens input = %d", points[0].TokensInput)
	}
}

func TestComparisonMarkdown(t *testing.T) {
	a := stats.Sample{Name: "run-a", WinScores: []float64{1, 1, 1, 1, 1, 1, 1, 1, 1, 1}}
	b := stats.Sample{Name: "run-b", WinScores: []float64{0, 0, 0, 0, 0, 0, 0, 0, 0, 0}}
	cmp := stats.Compare(a, b, stats.DefaultOptions())

	md := ComparisonMarkdown(cmp)
	for _, want := range []string{"# run-a vs run-b", "win_rate", "Recommendation", cmp.ConfidenceNote} {
		if !strings.Contains(md, want) {
			t.Errorf("markdown missing %q:\n%s", want, md)
		}
	}
}

func TestSummaryMarkdown(t *testing.T) {
	r := &Run{
		Dir: "/tmp/runs/baseline-20260829T120000Z-abcd1234",
		Report: &types.ExperimentReport{
			GamesTotal:     4,
			ValidGames:     3,
			CompletionRate: 0.75,
			Results:        types.ResultCounts{Wins: 2, Losses: 1},
			Terminations:   map[string]int{"checkmate": 3, "error": 1},
			Quality: &types.QualityReport{
				PlayerColor:          types.ColorWhite,
				PlayerColorRequested: "auto",
				MovesEvaluated:       40,
				Overall:              types.PhaseQuality{Moves: 40, ACPL: 85.5, BlunderRate: 0.1, BestMoveAgreement: 0.3},
				Elo:                  &types.EloEstimate{Estimate: 1450, StdError: 120, CILow: 1215, CIHigh: 1685, Games: 3},
			},
		},
	}
	md := SummaryMarkdown(r)
	for _, want := range []string{"baseline-20260829T120000Z-abcd1234", "checkmate", "Move quality", "Elo estimate", "1450"} {
		if !strings.Contains(md, want) {
			t.Errorf("summary missing %q", want)
		}
	}
}
