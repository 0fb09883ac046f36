// Package evaluation scores finished games against a chess engine and
// rewrites the run report with move-quality metrics, an Elo estimate, and
// retrieval-usefulness attribution.
package evaluation

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"time"

	"gonum.org/v1/gonum/stat"
	"gopkg.in/yaml.v3"

	"chessbench/internal/board"
	"chessbench/internal/config"
	"chessbench/internal/engine"
	"chessbench/internal/logging"
	"chessbench/internal/player"
	"chessbench/internal/runner"
	"chessbench/internal/types"
)

// EvaluatedReportFile is the artifact written into the run directory.
const EvaluatedReportFile = "experiment_report_evaluated.json"

// MoveEvalsFile holds the per-move engine scores behind the aggregates, the
// raw samples the run comparator resamples from.
const MoveEvalsFile = "move_evals.json"

// ScoredMove is one engine-scored move, persisted for later comparison.
type ScoredMove struct {
	GameNumber int         `json:"game_number"`
	PlyNumber  int         `json:"ply_number"`
	Phase      types.Phase `json:"phase"`
	CPLoss     int         `json:"centipawn_loss"`
	Best       bool        `json:"best"`
}

// Move quality classes, keyed by centipawn loss.
const (
	ClassBest       = "best"
	ClassExcellent  = "excellent"
	ClassGood       = "good"
	ClassInaccuracy = "inaccuracy"
	ClassMistake    = "mistake"
	ClassBlunder    = "blunder"
)

// ClassifyCPLoss maps a centipawn loss onto its quality class.
func ClassifyCPLoss(cpLoss int) string {
	switch {
	case cpLoss == 0:
		return ClassBest
	case cpLoss <= 10:
		return ClassExcellent
	case cpLoss <= 30:
		return ClassGood
	case cpLoss <= 100:
		return ClassInaccuracy
	case cpLoss <= 200:
		return ClassMistake
	default:
		return ClassBlunder
	}
}

// Analyzer is the slice of the engine the evaluator needs. *engine.Engine
// satisfies it; tests substitute a scripted analyzer.
type Analyzer interface {
	Analyze(fen string) (engine.Analysis, error)
}

// MoveEvaluation is the engine's verdict on one played move.
type MoveEvaluation struct {
	BestMoveUCI  string `json:"best_move_uci"`
	CPLoss       int    `json:"centipawn_loss"`
	EvalBeforeCP int    `json:"eval_before_cp"`
	EvalAfterCP  int    `json:"eval_after_cp"`
}

// EvaluateMove scores a single move: the position before it and the position
// after it, with the after-score flipped back to the mover's point of view.
func EvaluateMove(a Analyzer, fen, moveUCI string) (MoveEvaluation, error) {
	before, err := a.Analyze(fen)
	if err != nil {
		return MoveEvaluation{}, fmt.Errorf("analyzing position: %w", err)
	}
	afterFEN, err := board.ApplyToFEN(fen, moveUCI)
	if err != nil {
		return MoveEvaluation{}, err
	}
	after, err := a.Analyze(afterFEN)
	if err != nil {
		return MoveEvaluation{}, fmt.Errorf("analyzing reply position: %w", err)
	}

	// The engine scores from the side to move; after our move that is the
	// opponent, so negate to get the mover's view.
	evalAfter := -after.ScoreCP
	cpLoss := before.ScoreCP - evalAfter
	if cpLoss < 0 {
		cpLoss = 0
	}
	return MoveEvaluation{
		BestMoveUCI:  before.BestMoveUCI,
		CPLoss:       cpLoss,
		EvalBeforeCP: before.ScoreCP,
		EvalAfterCP:  evalAfter,
	}, nil
}

// InferColor picks the side under study from a game's player snapshot:
// llm beats engine beats random, ties resolve to black.
func InferColor(players types.PlayersSnapshot) types.Color {
	if specRank(players.White) > specRank(players.Black) {
		return types.ColorWhite
	}
	return types.ColorBlack
}

func specRank(spec types.PlayerSpec) int {
	switch spec.Type {
	case player.TypeLLM:
		return 3
	case player.TypeEngine:
		return 2
	default:
		return 1
	}
}

// Evaluator scores a run directory with a configured engine.
type Evaluator struct {
	an    Analyzer
	cfg   *config.Resolved
	close func()
}

// New starts the evaluation engine from config.
func New(cfg *config.Resolved) (*Evaluator, error) {
	eng, err := engine.New(cfg.Evaluation.Engine)
	if err != nil {
		return nil, err
	}
	return &Evaluator{an: eng, cfg: cfg, close: eng.Close}, nil
}

// NewWith builds an evaluator around an existing analyzer.
func NewWith(an Analyzer, cfg *config.Resolved) *Evaluator {
	return &Evaluator{an: an, cfg: cfg}
}

// Close shuts the engine down.
func (e *Evaluator) Close() {
	if e.close != nil {
		e.close()
	}
}

// EvaluateRun scores every player-side move in a run directory and writes
// experiment_report_evaluated.json. Per-move engine failures are logged and
// skipped; the evaluation proceeds on the moves that scored.
func (e *Evaluator) EvaluateRun(runDir string) (*types.ExperimentReport, error) {
	rep, err := readReport(runDir)
	if err != nil {
		return nil, err
	}
	games, err := LoadGames(runDir)
	if err != nil {
		return nil, err
	}

	requested := e.cfg.Evaluation.PlayerColor
	if requested == "" {
		requested = "auto"
	}
	var color types.Color
	switch requested {
	case "white":
		color = types.ColorWhite
	case "black":
		color = types.ColorBlack
	default:
		color = types.ColorBlack
		if len(games) > 0 {
			color = InferColor(games[0].Players)
		}
	}

	quality, scored := e.scoreGames(games, color)
	quality.PlayerColor = color
	quality.PlayerColorRequested = requested
	quality.Elo = e.estimateElo(games, color)

	rep.Quality = quality
	rep.SchemaVersion = types.SchemaVersionEvaluated
	rep.GeneratedAt = time.Now().UTC()

	if err := runner.WriteJSONAtomic(filepath.Join(runDir, MoveEvalsFile), scored); err != nil {
		return nil, err
	}
	path := filepath.Join(runDir, EvaluatedReportFile)
	if err := runner.WriteJSONAtomic(path, rep); err != nil {
		return nil, err
	}
	logging.Eval("evaluated %d moves across %d games: acpl=%.1f agreement=%.2f",
		quality.MovesEvaluated, len(games), quality.Overall.ACPL, quality.Overall.BestMoveAgreement)
	return rep, nil
}

// EvaluateRunDir loads the resolved config stored in a run directory, builds
// an engine-backed evaluator, and scores the run. This is the entry point the
// CLI and the runner's auto-evaluation hook share.
func EvaluateRunDir(runDir string) error {
	cfg, err := loadRunConfig(runDir)
	if err != nil {
		return err
	}
	ev, err := New(cfg)
	if err != nil {
		return err
	}
	defer ev.Close()
	_, err = ev.EvaluateRun(runDir)
	return err
}

// qualityAccum folds per-move results into one PhaseQuality bucket.
type qualityAccum struct {
	moves     int
	lossSum   float64
	blunders  int
	agreement int
}

func (q *qualityAccum) add(cpLoss int, agree bool) {
	q.moves++
	q.lossSum += float64(cpLoss)
	if cpLoss > 200 {
		q.blunders++
	}
	if agree {
		q.agreement++
	}
}

func (q *qualityAccum) quality() types.PhaseQuality {
	out := types.PhaseQuality{Moves: q.moves}
	if q.moves == 0 {
		return out
	}
	out.ACPL = q.lossSum / float64(q.moves)
	out.BlunderRate = float64(q.blunders) / float64(q.moves)
	out.BestMoveAgreement = float64(q.agreement) / float64(q.moves)
	return out
}

func (q *qualityAccum) bucket() types.RetrievalBucket {
	pq := q.quality()
	return types.RetrievalBucket{Moves: pq.Moves, ACPL: pq.ACPL, BestMoveAgreement: pq.BestMoveAgreement}
}

func (e *Evaluator) scoreGames(games []types.GameRecord, color types.Color) (*types.QualityReport, []ScoredMove) {
	var (
		overall     qualityAccum
		byPhase     = map[types.Phase]*qualityAccum{}
		classCounts = map[string]int{}
		scored      []ScoredMove

		sawRetrieval bool
		hit, noHit   qualityAccum
		hitByPhase   = map[types.Phase]*qualityAccum{}
		hitCounts    []float64
		cpLosses     []float64
	)

	for i := range games {
		g := &games[i]
		for j := range g.Moves {
			m := &g.Moves[j]
			d := &m.Decision
			if m.Color != color || !d.IsLegal || d.UCI() == "" {
				continue
			}
			ev, err := EvaluateMove(e.an, m.FENBefore, d.UCI())
			if err != nil {
				logging.Get(logging.CategoryEval).Warn("game %d ply %d: %v", g.GameNumber, m.PlyNumber, err)
				continue
			}

			agree := ev.BestMoveUCI == d.UCI()
			phase := board.PhaseOfFEN(m.FENBefore)
			overall.add(ev.CPLoss, agree)
			accum(byPhase, phase).add(ev.CPLoss, agree)
			classCounts[ClassifyCPLoss(ev.CPLoss)]++
			scored = append(scored, ScoredMove{
				GameNumber: g.GameNumber,
				PlyNumber:  m.PlyNumber,
				Phase:      phase,
				CPLoss:     ev.CPLoss,
				Best:       agree,
			})

			if d.Retrieval != nil && d.Retrieval.Enabled {
				sawRetrieval = true
				hitCounts = append(hitCounts, float64(d.Retrieval.HitCount))
				cpLosses = append(cpLosses, float64(ev.CPLoss))
				if d.Retrieval.HitCount > 0 {
					hit.add(ev.CPLoss, agree)
					accum(hitByPhase, phase).add(ev.CPLoss, agree)
				} else {
					noHit.add(ev.CPLoss, agree)
				}
			}
		}
	}

	q := &types.QualityReport{
		MovesEvaluated: overall.moves,
		Overall:        overall.quality(),
		ByPhase:        map[types.Phase]types.PhaseQuality{},
		ClassCounts:    classCounts,
	}
	for phase, a := range byPhase {
		q.ByPhase[phase] = a.quality()
	}

	if sawRetrieval {
		usefulness := &types.RetrievalUsefulness{
			Hit:            hit.bucket(),
			NoHit:          noHit.bucket(),
			HitLossPearson: pearson(hitCounts, cpLosses),
		}
		if len(hitByPhase) > 0 {
			usefulness.ByPhase = map[types.Phase]types.RetrievalBucket{}
			for phase, a := range hitByPhase {
				usefulness.ByPhase[phase] = a.bucket()
			}
		}
		q.Retrieval = usefulness
	}
	return q, scored
}

// estimateElo builds (opponent elo, score) observations from valid games and
// runs the MLE. The configured opponent_elo backfills opponents that carry no
// rating of their own; games with no rating at all are skipped.
func (e *Evaluator) estimateElo(games []types.GameRecord, color types.Color) *types.EloEstimate {
	var obs []EloObservation
	for i := range games {
		g := &games[i]
		if !types.IsValidTermination(g.Termination) {
			continue
		}
		opp := g.Players.Black
		if color == types.ColorBlack {
			opp = g.Players.White
		}
		oppElo := float64(opp.Elo)
		if oppElo == 0 {
			oppElo = float64(e.cfg.Evaluation.OpponentElo)
		}
		if oppElo == 0 {
			continue
		}

		var score float64
		switch {
		case g.Result == types.ResultDraw:
			score = 0.5
		case g.Result == types.ResultWhiteWins && color == types.ColorWhite,
			g.Result == types.ResultBlackWins && color == types.ColorBlack:
			score = 1
		case g.Result == types.ResultWhiteWins || g.Result == types.ResultBlackWins:
			score = 0
		default:
			continue
		}
		obs = append(obs, EloObservation{OpponentElo: oppElo, Score: score})
	}

	est := EstimateElo(obs)
	if est == nil {
		return nil
	}
	if corr := e.cfg.Evaluation.ColorCorrection; corr != 0 {
		// First-move advantage: discount it when the player held white.
		applied := corr
		if color == types.ColorWhite {
			applied = -corr
		}
		est.Estimate += applied
		est.CILow += applied
		est.CIHigh += applied
		est.ColorCorrection = applied
	}
	return est
}

func accum(m map[types.Phase]*qualityAccum, phase types.Phase) *qualityAccum {
	a, ok := m[phase]
	if !ok {
		a = &qualityAccum{}
		m[phase] = a
	}
	return a
}

// pearson guards gonum's correlation against degenerate samples.
func pearson(x, y []float64) float64 {
	if len(x) < 2 {
		return 0
	}
	r := stat.Correlation(x, y, nil)
	if math.IsNaN(r) {
		return 0
	}
	return r
}

func readReport(runDir string) (*types.ExperimentReport, error) {
	path := filepath.Join(runDir, "experiment_report.json")
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	var rep types.ExperimentReport
	if err := json.Unmarshal(data, &rep); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return &rep, nil
}

// LoadGames reads every game artifact in a run directory, ordered by game
// number. Corrupt files are skipped with a warning.
func LoadGames(runDir string) ([]types.GameRecord, error) {
	gamesDir := filepath.Join(runDir, "games")
	entries, err := os.ReadDir(gamesDir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scanning %s: %w", gamesDir, err)
	}

	var out []types.GameRecord
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".json" {
			continue
		}
		path := filepath.Join(gamesDir, entry.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", path, err)
		}
		var rec types.GameRecord
		if err := json.Unmarshal(data, &rec); err != nil {
			logging.Get(logging.CategoryEval).Warn("skipping corrupt game file %s: %v", path, err)
			continue
		}
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].GameNumber < out[j].GameNumber })
	return out, nil
}

func loadRunConfig(runDir string) (*config.Resolved, error) {
	path := filepath.Join(runDir, "resolved_config.yaml")
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	var m map[string]any
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	res, err := config.Finalize(m)
	if err != nil {
		return nil, err
	}
	return res.Config, nil
}
