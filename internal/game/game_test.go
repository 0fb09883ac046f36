package game

import (
	"context"
	"testing"

	"chessbench/internal/board"
	"chessbench/internal/decision"
	"chessbench/internal/player"
	"chessbench/internal/types"
)

// scriptedPlayer returns canned decisions in order.
type scriptedPlayer struct {
	decisions []types.MoveDecision
	next      int
}

func (p *scriptedPlayer) Spec() types.PlayerSpec { return types.PlayerSpec{Type: "llm", Name: "scripted"} }

func (p *scriptedPlayer) ChooseMove(ctx context.Context, st board.State) types.MoveDecision {
	if p.next >= len(p.decisions) {
		return types.MoveDecision{}
	}
	d := p.decisions[p.next]
	p.next++
	return d
}

func (p *scriptedPlayer) Close() error { return nil }

func moveDecision(uci string) types.MoveDecision {
	d := types.MoveDecision{ParseOK: true, IsLegal: true, DecisionMode: types.DecisionSingleAgent}
	d.SetUCI(uci)
	return d
}

func newLoop(white, black player.Player, mode string, maxPlies int) *Loop {
	return &Loop{
		White:    white,
		Black:    black,
		MaxPlies: maxPlies,
		Mode:     mode,
		Fallback: player.NewRandom("fallback", 7),
	}
}

func TestPlay_FoolsMateCheckmate(t *testing.T) {
	white := &scriptedPlayer{decisions: []types.MoveDecision{moveDecision("f2f3"), moveDecision("g2g4")}}
	black := &scriptedPlayer{decisions: []types.MoveDecision{moveDecision("e7e5"), moveDecision("d8h4")}}

	out := newLoop(white, black, decision.ModeDirect, 200).Play(context.Background())
	if out.Termination != types.TerminationCheckmate {
		t.Fatalf("termination = %q, want checkmate", out.Termination)
	}
	if out.Result != types.ResultBlackWins {
		t.Fatalf("result = %q, want 0-1", out.Result)
	}
	if len(out.Moves) != 4 {
		t.Fatalf("recorded %d moves, want 4", len(out.Moves))
	}

	// Records carry fen_before, alternating colors, and 1-based plies.
	if out.Moves[0].FENBefore != board.StartFEN {
		t.Fatalf("first fen_before = %q", out.Moves[0].FENBefore)
	}
	for i, m := range out.Moves {
		if m.PlyNumber != i+1 {
			t.Fatalf("ply %d numbered %d", i, m.PlyNumber)
		}
		wantColor := types.ColorWhite
		if i%2 == 1 {
			wantColor = types.ColorBlack
		}
		if m.Color != wantColor {
			t.Fatalf("ply %d color = %s", i+1, m.Color)
		}
	}
	if out.Moves[3].Decision.MoveSAN != "Qh4#" {
		t.Fatalf("mating SAN = %q, want Qh4#", out.Moves[3].Decision.MoveSAN)
	}
}

func TestPlay_MaxPliesTermination(t *testing.T) {
	white := player.NewRandom("w", 1)
	black := player.NewRandom("b", 2)

	out := newLoop(white, black, decision.ModeDirect, 6).Play(context.Background())
	if out.Termination != types.TerminationMaxMoves {
		t.Fatalf("termination = %q, want max_moves", out.Termination)
	}
	if len(out.Moves) != 6 {
		t.Fatalf("recorded %d moves, want 6", len(out.Moves))
	}
	if !types.IsValidTermination(out.Termination) {
		t.Fatal("max_moves must count as a valid termination")
	}
}

func TestPlay_FallbackRandomOutsideStrict(t *testing.T) {
	// White's first decision carries no move; the loop must substitute a
	// random legal one and flag it.
	failed := types.MoveDecision{Error: "illegal_move"}
	white := &scriptedPlayer{decisions: []types.MoveDecision{failed, moveDecision("d2d4")}}
	black := &scriptedPlayer{decisions: []types.MoveDecision{moveDecision("e7e5"), moveDecision("b8c6")}}

	out := newLoop(white, black, decision.ModeDirect, 4).Play(context.Background())
	first := out.Moves[0].Decision
	if first.UCI() == "" || !first.IsLegal {
		t.Fatalf("fallback not applied: %+v", first)
	}
	if first.ParseOK {
		t.Fatal("fallback decision must keep parse_ok=false")
	}
	if first.Error != decision.ErrFallbackRandom {
		t.Fatalf("error = %q, want fallback_random", first.Error)
	}
	if len(out.Moves) != 4 {
		t.Fatalf("game did not continue after fallback: %d moves", len(out.Moves))
	}
}

func TestPlay_FallbackPreservesProviderError(t *testing.T) {
	failed := types.MoveDecision{Error: "provider_timeout"}
	white := &scriptedPlayer{decisions: []types.MoveDecision{failed}}
	black := &scriptedPlayer{decisions: []types.MoveDecision{moveDecision("e7e5")}}

	out := newLoop(white, black, decision.ModeDirect, 2).Play(context.Background())
	if got := out.Moves[0].Decision.Error; got != "provider_timeout" {
		t.Fatalf("error = %q, want provider_timeout preserved", got)
	}
}

func TestPlay_ResearchStrictTerminatesOnFailure(t *testing.T) {
	failed := types.MoveDecision{Error: "illegal_move"}
	white := &scriptedPlayer{decisions: []types.MoveDecision{failed}}
	black := &scriptedPlayer{}

	out := newLoop(white, black, decision.ModeResearchStrict, 10).Play(context.Background())
	if out.Termination != types.TerminationError {
		t.Fatalf("termination = %q, want error", out.Termination)
	}
	if len(out.Moves) != 1 {
		t.Fatalf("recorded %d moves, want 1", len(out.Moves))
	}
	if out.Moves[0].Decision.MoveUCI != nil {
		t.Fatal("strict failure must keep move_uci null")
	}
	if out.Moves[0].Decision.Error != "illegal_move" {
		t.Fatalf("strict decision error = %q, want illegal_move", out.Moves[0].Decision.Error)
	}
	if types.IsValidTermination(out.Termination) {
		t.Fatal("error termination must not count as valid")
	}
}

func TestPlay_HardProviderFailureEndsGame(t *testing.T) {
	failed := types.MoveDecision{Error: "provider_auth"}
	white := &scriptedPlayer{decisions: []types.MoveDecision{failed}}
	black := &scriptedPlayer{}

	out := newLoop(white, black, decision.ModeDirect, 10).Play(context.Background())
	if out.Termination != types.TerminationProviderFailure {
		t.Fatalf("termination = %q, want provider_failure", out.Termination)
	}
}

func TestPlay_TokenAndCostAccumulation(t *testing.T) {
	d1 := moveDecision("e2e4")
	d1.TokensInput, d1.TokensOutput, d1.CostUSD = 100, 10, 0.002
	d2 := moveDecision("e7e5")
	d2.TokensInput, d2.TokensOutput, d2.CostUSD = 120, 12, 0.003

	white := &scriptedPlayer{decisions: []types.MoveDecision{d1}}
	black := &scriptedPlayer{decisions: []types.MoveDecision{d2}}

	out := newLoop(white, black, decision.ModeDirect, 2).Play(context.Background())
	if out.TokenUsage.Input != 220 || out.TokenUsage.Output != 22 {
		t.Fatalf("token usage = %+v", out.TokenUsage)
	}
	if out.CostUSD < 0.0049 || out.CostUSD > 0.0051 {
		t.Fatalf("cost = %g, want 0.005", out.CostUSD)
	}
}
