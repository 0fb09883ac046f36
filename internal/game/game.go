// Package game runs one chess game ply by ply and produces the move records
// the runner persists.
package game

import (
	"context"
	"strings"
	"time"

	"chessbench/internal/board"
	"chessbench/internal/decision"
	"chessbench/internal/logging"
	"chessbench/internal/player"
	"chessbench/internal/provider"
	"chessbench/internal/types"
)

// Outcome is what one finished game hands back to the runner.
type Outcome struct {
	Moves           []types.MoveRecord
	Result          types.Result
	Termination     string
	TokenUsage      types.TokenUsage
	CostUSD         float64
	DurationSeconds float64
}

// Loop plays one game between two players.
type Loop struct {
	White    player.Player
	Black    player.Player
	MaxPlies int
	// Mode is the protocol mode; research_strict propagates decision
	// failures instead of substituting random moves.
	Mode string
	// Fallback backs the random-move substitution; seeded per game.
	Fallback *player.Random
}

// hardFailureCategories end the game instead of triggering random fallback:
// retrying or substituting moves cannot recover a run that cannot reach its
// provider at all.
var hardFailureCategories = map[string]bool{
	"provider_" + string(provider.CategoryAuth):            true,
	"provider_" + string(provider.CategoryUnknownProvider): true,
	"provider_" + string(provider.CategoryEngineUnavailable): true,
}

// Play runs the game to termination or the ply cap.
func (l *Loop) Play(ctx context.Context) Outcome {
	start := time.Now()
	b := board.New()
	out := Outcome{}
	log := logging.Get(logging.CategoryGame)

	for ply := 1; ply <= l.MaxPlies; ply++ {
		st := b.State()
		if st.Terminal {
			out.Termination = st.Termination
			break
		}
		if ctx.Err() != nil {
			out.Termination = types.TerminationTimeout
			break
		}

		active := l.White
		if st.ActiveColor == types.ColorBlack {
			active = l.Black
		}

		d := active.ChooseMove(ctx, st)
		out.TokenUsage.Add(d.TokensInput, d.TokensOutput)
		out.CostUSD += d.CostUSD

		if d.UCI() == "" {
			if l.Mode == decision.ModeResearchStrict {
				out.Moves = append(out.Moves, record(ply, st, d))
				out.Termination = types.TerminationError
				break
			}
			if hardFailureCategories[d.Error] {
				out.Moves = append(out.Moves, record(ply, st, d))
				out.Termination = types.TerminationProviderFailure
				break
			}
			l.substituteRandom(&d, st)
		}

		san, err := b.Push(d.UCI())
		if err != nil {
			// Defensive: a decision marked legal that fails to apply.
			if l.Mode == decision.ModeResearchStrict {
				d.Error = "illegal_move"
				out.Moves = append(out.Moves, record(ply, st, d))
				out.Termination = types.TerminationError
				break
			}
			log.Warn("ply %d: move %s failed to apply: %v", ply, d.UCI(), err)
			l.substituteRandom(&d, st)
			if d.UCI() == "" {
				out.Moves = append(out.Moves, record(ply, st, d))
				out.Termination = types.TerminationError
				break
			}
			if san, err = b.Push(d.UCI()); err != nil {
				out.Moves = append(out.Moves, record(ply, st, d))
				out.Termination = types.TerminationError
				break
			}
		}
		d.MoveSAN = san
		out.Moves = append(out.Moves, record(ply, st, d))
	}

	if out.Termination == "" {
		if terminal, reason := b.Terminal(); terminal {
			out.Termination = reason
		} else {
			out.Termination = types.TerminationMaxMoves
		}
	}
	out.Result = b.Result()
	out.DurationSeconds = time.Since(start).Seconds()
	log.Info("game over: termination=%s result=%s plies=%d", out.Termination, out.Result, len(out.Moves))
	return out
}

// substituteRandom replaces a failed decision with a uniform random legal
// move, preserving the provider error when one caused the failure.
func (l *Loop) substituteRandom(d *types.MoveDecision, st board.State) {
	if len(st.LegalUCI) == 0 {
		return
	}
	d.SetUCI(l.Fallback.FallbackMove(st))
	d.IsLegal = true
	d.ParseOK = false
	if !strings.HasPrefix(d.Error, "provider_") {
		d.Error = decision.ErrFallbackRandom
	}
}

func record(ply int, st board.State, d types.MoveDecision) types.MoveRecord {
	return types.MoveRecord{
		PlyNumber: ply,
		Color:     st.ActiveColor,
		FENBefore: st.FEN,
		Decision:  d,
	}
}
