// Package decision implements the per-ply protocol: prompt the provider,
// validate the reply, retry with feedback, and optionally orchestrate a
// multi-agent proposer/aggregator round.
package decision

import (
	"context"
	"errors"
	"time"

	"chessbench/internal/board"
	"chessbench/internal/config"
	"chessbench/internal/logging"
	"chessbench/internal/prompt"
	"chessbench/internal/provider"
	"chessbench/internal/types"
	"chessbench/internal/validator"
)

// Protocol modes.
const (
	ModeDirect         = "direct"
	ModeResearchStrict = "research_strict"
	ModeAgenticCompat  = "agentic_compat"
)

// ErrFallbackRandom is the error code stamped on a decision after the game
// loop substitutes a random legal move.
const ErrFallbackRandom = "fallback_random"

// Pipeline decides moves for one LLM player.
type Pipeline struct {
	prov     provider.Provider
	model    string
	temp     float64
	protocol config.ProtocolConfig
	strategy config.StrategyConfig
	sleep    func(time.Duration)
}

// New builds a pipeline. The sleep hook exists so tests can skip real
// backoff waits; pass nil for time.Sleep.
func New(prov provider.Provider, pc config.PlayerConfig, protocol config.ProtocolConfig, strategy config.StrategyConfig, sleep func(time.Duration)) *Pipeline {
	if sleep == nil {
		sleep = time.Sleep
	}
	return &Pipeline{
		prov:     prov,
		model:    pc.Model,
		temp:     pc.Temperature,
		protocol: protocol,
		strategy: strategy,
		sleep:    sleep,
	}
}

// Input is everything one decision needs beyond the pipeline itself.
type Input struct {
	State     board.State
	Knowledge []prompt.KnowledgeItem
	Retrieval *types.RetrievalMeta
}

// Decide runs the configured protocol for one ply.
func (p *Pipeline) Decide(ctx context.Context, in Input) types.MoveDecision {
	if p.strategy.MultiAgent.Enabled {
		return p.decideMoA(ctx, in)
	}
	switch p.protocol.Mode {
	case ModeAgenticCompat:
		return p.decideAgentic(ctx, in)
	default:
		// direct and research_strict share the loop; the game loop
		// differs in how it treats an empty decision.
		return p.decideDirect(ctx, in)
	}
}

func (p *Pipeline) decideDirect(ctx context.Context, in Input) types.MoveDecision {
	d := types.MoveDecision{
		DecisionMode:  types.DecisionSingleAgent,
		FeedbackLevel: p.protocol.FeedbackLevel,
		Retrieval:     in.Retrieval,
	}

	feedback := ""
	for attempt := 0; attempt <= p.protocol.MoveRetries; attempt++ {
		d.RetryCount = attempt
		built := prompt.Build(prompt.Input{
			State:     in.State,
			Strategy:  p.strategy,
			Knowledge: in.Knowledge,
			Feedback:  feedback,
		})

		resp, err := p.callProvider(ctx, []provider.Message{
			{Role: provider.RoleSystem, Content: prompt.SystemPrompt(p.strategy.SystemPromptEffective)},
			{Role: provider.RoleUser, Content: built.Text},
		}, &d)
		if err != nil {
			d.Error = providerCode(err)
			if !provider.ShouldRetry(err) {
				break
			}
			continue
		}

		d.RawResponse = resp.Text
		v := validator.Validate(resp.Text, in.State.LegalUCI, in.State.FEN)
		d.ParseOK = v.ParseOK
		if v.IsLegal {
			d.SetUCI(v.MoveUCI)
			d.IsLegal = true
			d.Error = ""
			return d
		}
		d.Error = v.ErrorCode
		feedback = validator.BuildRetryFeedback(v, p.protocol.FeedbackLevel, in.State.LegalUCI, in.State.Phase)
	}

	// All attempts exhausted. move_uci stays null; the game loop decides
	// between random fallback and strict termination.
	d.ParseOK = false
	d.IsLegal = false
	return d
}

// callProvider runs one completion with the inner retry loop: up to
// provider_retries extra attempts, exponential 2^attempt backoff, honoring
// retryability. Token, cost, and latency totals accumulate on the decision.
func (p *Pipeline) callProvider(ctx context.Context, messages []provider.Message, d *types.MoveDecision) (provider.Response, error) {
	var lastErr error
	for attempt := 0; attempt <= p.protocol.ProviderRetries; attempt++ {
		if attempt > 0 {
			backoff := p.protocol.ProviderBackoffSeconds * float64(int(1)<<uint(attempt-1))
			p.sleep(time.Duration(backoff * float64(time.Second)))
		}

		d.ProviderCalls++
		resp, err := p.prov.Complete(ctx, provider.Request{
			Messages:    messages,
			Model:       p.model,
			Temperature: p.temp,
		})
		d.TokensInput += resp.Tokens.Input
		d.TokensOutput += resp.Tokens.Output
		d.LatencyMS += resp.LatencyMS
		d.CostUSD += resp.CostUSD
		if err == nil {
			if d.ProviderModel == "" {
				d.ProviderModel = resp.Model
			}
			return resp, nil
		}

		lastErr = err
		logging.Get(logging.CategoryProvider).Warn("provider call failed (attempt %d/%d): %v",
			attempt+1, p.protocol.ProviderRetries+1, err)
		if !provider.ShouldRetry(err) {
			break
		}
	}
	return provider.Response{}, lastErr
}

// providerCode renders the error code recorded on the decision.
func providerCode(err error) string {
	var pe *provider.Error
	if errors.As(err, &pe) {
		return pe.Code()
	}
	return "provider_" + string(provider.CategoryUnknown)
}
