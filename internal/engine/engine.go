// Package engine drives a UCI chess engine subprocess, both as a player and
// as the post-hoc evaluator.
package engine

import (
	"fmt"
	"strconv"

	"github.com/notnil/chess"
	"github.com/notnil/chess/uci"

	"chessbench/internal/config"
	"chessbench/internal/logging"
	"chessbench/internal/provider"
)

// MateScoreCP is the centipawn value substituted for a forced mate.
const MateScoreCP = 100000

// DefaultDepth is used when the config leaves depth unset.
const DefaultDepth = 12

// Analysis is the result of searching one position.
type Analysis struct {
	BestMoveUCI string
	// ScoreCP is from the side-to-move's point of view, with mates mapped
	// to +/- MateScoreCP.
	ScoreCP int
	IsMate  bool
}

// Engine wraps one UCI subprocess.
type Engine struct {
	eng   *uci.Engine
	depth int
}

// New starts and configures the engine binary.
func New(cfg config.EngineConfig) (*Engine, error) {
	if cfg.Path == "" {
		return nil, &provider.Error{Category: provider.CategoryEngineUnavailable, Msg: "engine path not configured"}
	}
	eng, err := uci.New(cfg.Path)
	if err != nil {
		return nil, &provider.Error{
			Category: provider.CategoryEngineUnavailable,
			Msg:      fmt.Sprintf("starting engine %s", cfg.Path),
			Err:      err,
		}
	}

	cmds := []uci.Cmd{uci.CmdUCI}
	if cfg.Threads > 0 {
		cmds = append(cmds, uci.CmdSetOption{Name: "Threads", Value: strconv.Itoa(cfg.Threads)})
	}
	if cfg.HashMB > 0 {
		cmds = append(cmds, uci.CmdSetOption{Name: "Hash", Value: strconv.Itoa(cfg.HashMB)})
	}
	if cfg.Elo > 0 {
		cmds = append(cmds,
			uci.CmdSetOption{Name: "UCI_LimitStrength", Value: "true"},
			uci.CmdSetOption{Name: "UCI_Elo", Value: strconv.Itoa(cfg.Elo)},
		)
	}
	cmds = append(cmds, uci.CmdIsReady, uci.CmdUCINewGame)
	if err := eng.Run(cmds...); err != nil {
		eng.Close()
		return nil, &provider.Error{
			Category: provider.CategoryEngineUnavailable,
			Msg:      "configuring engine",
			Err:      err,
		}
	}

	depth := cfg.Depth
	if depth <= 0 {
		depth = DefaultDepth
	}
	logging.Get(logging.CategoryEngine).Info("engine ready: path=%s depth=%d elo=%d", cfg.Path, depth, cfg.Elo)
	return &Engine{eng: eng, depth: depth}, nil
}

// Analyze searches a position to the configured depth.
func (e *Engine) Analyze(fen string) (Analysis, error) {
	opt, err := chess.FEN(fen)
	if err != nil {
		return Analysis{}, fmt.Errorf("invalid FEN %q: %w", fen, err)
	}
	game := chess.NewGame(opt)
	pos := game.Position()

	if err := e.eng.Run(uci.CmdPosition{Position: pos}, uci.CmdGo{Depth: e.depth}); err != nil {
		return Analysis{}, &provider.Error{
			Category: provider.CategoryEngineUnavailable,
			Msg:      "search failed",
			Err:      err,
		}
	}

	results := e.eng.SearchResults()
	if results.BestMove == nil {
		return Analysis{}, fmt.Errorf("engine returned no best move for %q", fen)
	}

	a := Analysis{BestMoveUCI: chess.UCINotation{}.Encode(pos, results.BestMove)}
	score := results.Info.Score
	switch {
	case score.Mate > 0:
		a.IsMate = true
		a.ScoreCP = MateScoreCP
	case score.Mate < 0:
		a.IsMate = true
		a.ScoreCP = -MateScoreCP
	default:
		a.ScoreCP = score.CP
	}
	return a, nil
}

// BestMove returns just the engine's chosen move for a position.
func (e *Engine) BestMove(fen string) (string, error) {
	a, err := e.Analyze(fen)
	if err != nil {
		return "", err
	}
	return a.BestMoveUCI, nil
}

// Close shuts the subprocess down.
func (e *Engine) Close() {
	if e.eng != nil {
		e.eng.Close()
	}
}
