// Package player builds the three player kinds the harness can seat at the
// board: seeded random, LLM-backed, and UCI engine.
package player

import (
	"context"
	"fmt"
	"math/rand"

	"chessbench/internal/board"
	"chessbench/internal/config"
	"chessbench/internal/decision"
	"chessbench/internal/engine"
	"chessbench/internal/knowledge"
	"chessbench/internal/prompt"
	"chessbench/internal/provider"
	"chessbench/internal/types"
)

// Player types accepted in config.
const (
	TypeRandom = "random"
	TypeLLM    = "llm"
	TypeEngine = "engine"
)

// Player chooses one move per ply.
type Player interface {
	Spec() types.PlayerSpec
	ChooseMove(ctx context.Context, st board.State) types.MoveDecision
	Close() error
}

// Deps carries the shared services a player may need.
type Deps struct {
	Protocol  config.ProtocolConfig
	Strategy  config.StrategyConfig
	Knowledge *knowledge.Service
	// Seed drives the random player; derived per game.
	Seed uint32
}

// New builds a player from its config slot.
func New(pc config.PlayerConfig, deps Deps) (Player, error) {
	switch pc.Type {
	case TypeRandom:
		return NewRandom(pc.Name, deps.Seed), nil
	case TypeLLM:
		return NewLLM(pc, deps)
	case TypeEngine:
		return NewEngine(pc)
	default:
		return nil, fmt.Errorf("unknown player type %q", pc.Type)
	}
}

// Random picks uniformly among legal moves with a per-game seed.
type Random struct {
	name string
	rng  *rand.Rand
}

// NewRandom builds a seeded random player.
func NewRandom(name string, seed uint32) *Random {
	return &Random{name: name, rng: rand.New(rand.NewSource(int64(seed)))}
}

// Spec implements Player.
func (r *Random) Spec() types.PlayerSpec {
	return types.PlayerSpec{Type: TypeRandom, Name: r.name}
}

// ChooseMove implements Player.
func (r *Random) ChooseMove(ctx context.Context, st board.State) types.MoveDecision {
	d := types.MoveDecision{DecisionMode: types.DecisionSingleAgent, ParseOK: true}
	if len(st.LegalUCI) == 0 {
		d.ParseOK = false
		d.Error = "no_legal_moves"
		return d
	}
	d.SetUCI(st.LegalUCI[r.rng.Intn(len(st.LegalUCI))])
	d.IsLegal = true
	return d
}

// Close implements Player.
func (r *Random) Close() error { return nil }

// FallbackMove picks a uniform random legal move using the player's RNG
// stream; the game loop calls this when an LLM decision comes back empty.
func (r *Random) FallbackMove(st board.State) string {
	if len(st.LegalUCI) == 0 {
		return ""
	}
	return st.LegalUCI[r.rng.Intn(len(st.LegalUCI))]
}

// LLM wraps a provider-backed decision pipeline as a player.
type LLM struct {
	spec     types.PlayerSpec
	prov     provider.Provider
	pipeline *decision.Pipeline
	strategy config.StrategyConfig
	svc      *knowledge.Service
	index    *knowledge.Index
}

// NewLLM builds the provider adapter, the decision pipeline, and, when
// retrieval is enabled, the knowledge index.
func NewLLM(pc config.PlayerConfig, deps Deps) (*LLM, error) {
	prov, err := provider.New(pc)
	if err != nil {
		return nil, err
	}
	p := &LLM{
		spec:     types.PlayerSpec{Type: TypeLLM, Name: pc.Name, Provider: pc.Provider, Model: pc.Model},
		prov:     prov,
		pipeline: decision.New(prov, pc, deps.Protocol, deps.Strategy, nil),
		strategy: deps.Strategy,
		svc:      deps.Knowledge,
	}
	kc := deps.Strategy.Knowledge
	if kc.Enabled && deps.Knowledge != nil {
		sources := knowledge.SourcesFromConfig(kc, nil)
		idx, err := deps.Knowledge.IndexFor(sources)
		if err != nil {
			prov.Close()
			return nil, fmt.Errorf("building knowledge index: %w", err)
		}
		p.index = idx
	}
	return p, nil
}

// Spec implements Player.
func (l *LLM) Spec() types.PlayerSpec { return l.spec }

// ChooseMove implements Player.
func (l *LLM) ChooseMove(ctx context.Context, st board.State) types.MoveDecision {
	in := decision.Input{State: st}
	if l.index != nil {
		kc := l.strategy.Knowledge
		res := l.svc.Lookup(l.index, st.FEN, st.Phase, kc.TopK, kc.MinSimilarity)
		in.Retrieval = &res.Meta
		for _, h := range res.Hits {
			in.Knowledge = append(in.Knowledge, prompt.KnowledgeItem{
				Title:   h.Chunk.Title,
				Content: h.Chunk.Content,
			})
		}
	}
	return l.pipeline.Decide(ctx, in)
}

// Close implements Player.
func (l *LLM) Close() error { return l.prov.Close() }

// EnginePlayer seats a UCI engine at the board.
type EnginePlayer struct {
	spec types.PlayerSpec
	eng  *engine.Engine
}

// NewEngine starts the configured engine subprocess.
func NewEngine(pc config.PlayerConfig) (*EnginePlayer, error) {
	eng, err := engine.New(pc.Engine)
	if err != nil {
		return nil, err
	}
	return &EnginePlayer{
		spec: types.PlayerSpec{Type: TypeEngine, Name: pc.Name, Elo: pc.Engine.Elo},
		eng:  eng,
	}, nil
}

// Spec implements Player.
func (e *EnginePlayer) Spec() types.PlayerSpec { return e.spec }

// ChooseMove implements Player.
func (e *EnginePlayer) ChooseMove(ctx context.Context, st board.State) types.MoveDecision {
	d := types.MoveDecision{DecisionMode: types.DecisionSingleAgent}
	move, err := e.eng.BestMove(st.FEN)
	if err != nil {
		d.Error = "provider_" + string(provider.CategoryEngineUnavailable)
		return d
	}
	d.SetUCI(move)
	d.ParseOK = true
	d.IsLegal = true
	return d
}

// Close implements Player.
func (e *EnginePlayer) Close() error {
	e.eng.Close()
	return nil
}
