package decision

import (
	"context"
	"testing"
	"time"

	"chessbench/internal/board"
	"chessbench/internal/config"
	"chessbench/internal/prompt"
	"chessbench/internal/provider"
	"chessbench/internal/types"
)

func noSleep(time.Duration) {}

func startInput(t *testing.T) Input {
	t.Helper()
	return Input{State: board.New().State()}
}

func newPipeline(prov provider.Provider, protocol config.ProtocolConfig, strategy config.StrategyConfig) *Pipeline {
	if strategy.BoardFormat == "" {
		strategy.BoardFormat = prompt.FormatFEN
	}
	if strategy.SystemPromptEffective == "" {
		strategy.SystemPromptEffective = prompt.DefaultSystemPromptID
	}
	return New(prov, config.PlayerConfig{Model: "scripted"}, protocol, strategy, noSleep)
}

func TestDirect_FirstTrySuccess(t *testing.T) {
	prov := provider.NewScripted([]provider.ScriptStep{
		{Text: "e2e4", Tokens: types.TokenUsage{Input: 50, Output: 5}, Cost: 0.001},
	})
	p := newPipeline(prov, config.ProtocolConfig{Mode: ModeDirect, MoveRetries: 2, FeedbackLevel: "moderate"}, config.StrategyConfig{})

	d := p.Decide(context.Background(), startInput(t))
	if d.UCI() != "e2e4" || !d.ParseOK || !d.IsLegal {
		t.Fatalf("decision = %+v", d)
	}
	if d.RetryCount != 0 || d.ProviderCalls != 1 {
		t.Fatalf("retries=%d calls=%d, want 0/1", d.RetryCount, d.ProviderCalls)
	}
	if d.TokensInput != 50 || d.TokensOutput != 5 || d.CostUSD != 0.001 {
		t.Fatalf("usage not accumulated: %+v", d)
	}
	if d.DecisionMode != types.DecisionSingleAgent {
		t.Fatalf("decision mode = %s", d.DecisionMode)
	}
}

func TestDirect_RetriesAfterIllegalMove(t *testing.T) {
	prov := provider.NewScripted([]provider.ScriptStep{
		{Text: "e2e5"}, // parses but illegal
		{Text: "g1f3"},
	})
	p := newPipeline(prov, config.ProtocolConfig{Mode: ModeDirect, MoveRetries: 2, FeedbackLevel: "rich"}, config.StrategyConfig{})

	d := p.Decide(context.Background(), startInput(t))
	if d.UCI() != "g1f3" || !d.IsLegal {
		t.Fatalf("decision = %+v", d)
	}
	if d.RetryCount != 1 || d.ProviderCalls != 2 {
		t.Fatalf("retries=%d calls=%d, want 1/2", d.RetryCount, d.ProviderCalls)
	}
	if d.Error != "" {
		t.Fatalf("successful decision carries error %q", d.Error)
	}
}

func TestDirect_ProviderRetryWithBackoff(t *testing.T) {
	var slept []time.Duration
	prov := provider.NewScripted([]provider.ScriptStep{
		{Err: &provider.Error{Category: provider.CategoryServer, Status: 503}},
		{Err: &provider.Error{Category: provider.CategoryServer, Status: 503}},
		{Text: "e2e4"},
	})
	p := New(prov, config.PlayerConfig{},
		config.ProtocolConfig{Mode: ModeDirect, MoveRetries: 0, ProviderRetries: 2, ProviderBackoffSeconds: 1},
		config.StrategyConfig{BoardFormat: prompt.FormatFEN},
		func(d time.Duration) { slept = append(slept, d) })

	d := p.Decide(context.Background(), startInput(t))
	if d.UCI() != "e2e4" {
		t.Fatalf("decision = %+v", d)
	}
	if d.ProviderCalls != 3 {
		t.Fatalf("provider calls = %d, want 3", d.ProviderCalls)
	}
	// Exponential backoff: 1s then 2s.
	if len(slept) != 2 || slept[0] != time.Second || slept[1] != 2*time.Second {
		t.Fatalf("backoff sleeps = %v", slept)
	}
}

func TestDirect_NonRetryableProviderErrorBreaksOut(t *testing.T) {
	prov := provider.NewScripted([]provider.ScriptStep{
		{Err: &provider.Error{Category: provider.CategoryAuth, Status: 401}},
	})
	p := newPipeline(prov, config.ProtocolConfig{Mode: ModeDirect, MoveRetries: 3, ProviderRetries: 3}, config.StrategyConfig{})

	d := p.Decide(context.Background(), startInput(t))
	if d.MoveUCI != nil {
		t.Fatalf("move = %v, want nil", *d.MoveUCI)
	}
	if d.Error != "provider_auth" {
		t.Fatalf("error = %q, want provider_auth", d.Error)
	}
	if prov.Calls() != 1 {
		t.Fatalf("auth error retried: %d calls", prov.Calls())
	}
}

func TestResearchStrict_NoFallbackAfterExhaustion(t *testing.T) {
	prov := provider.NewScripted([]provider.ScriptStep{
		{Text: "e2e5"},
		{Text: "e2e5"},
	})
	p := newPipeline(prov, config.ProtocolConfig{Mode: ModeResearchStrict, MoveRetries: 1, FeedbackLevel: "moderate"}, config.StrategyConfig{})

	d := p.Decide(context.Background(), startInput(t))
	if d.MoveUCI != nil {
		t.Fatal("research_strict exhaustion must leave move_uci null")
	}
	if d.ParseOK || d.IsLegal {
		t.Fatalf("flags = parse_ok=%v is_legal=%v, want false/false", d.ParseOK, d.IsLegal)
	}
	if d.Error != "illegal_move" {
		t.Fatalf("error = %q, want illegal_move", d.Error)
	}
	if d.RetryCount != 1 {
		t.Fatalf("retry count = %d, want 1", d.RetryCount)
	}
}

func TestAgentic_ToolConversation(t *testing.T) {
	prov := provider.NewScripted([]provider.ScriptStep{
		{Text: "get_legal_moves"},
		{Text: "get_current_board"},
		{Text: "make_move e2e4"},
	})
	p := newPipeline(prov, config.ProtocolConfig{
		Mode: ModeAgenticCompat, MoveRetries: 0, MaxAgenticTurns: 5, FeedbackLevel: "moderate",
	}, config.StrategyConfig{})

	d := p.Decide(context.Background(), startInput(t))
	if d.UCI() != "e2e4" || !d.IsLegal {
		t.Fatalf("decision = %+v", d)
	}
	if len(d.AgentTrace) != 3 {
		t.Fatalf("agent trace has %d steps, want 3", len(d.AgentTrace))
	}
	for _, step := range d.AgentTrace {
		if step.ID == "" {
			t.Fatal("agent step missing id")
		}
	}
	if d.AgentTrace[2].MoveUCI != "e2e4" {
		t.Fatalf("final step move = %q", d.AgentTrace[2].MoveUCI)
	}
}

func TestAgentic_IllegalMoveGetsFeedbackThenSucceeds(t *testing.T) {
	prov := provider.NewScripted([]provider.ScriptStep{
		{Text: "make_move e2e5"},
		{Text: "make_move d2d4"},
	})
	p := newPipeline(prov, config.ProtocolConfig{
		Mode: ModeAgenticCompat, MoveRetries: 0, MaxAgenticTurns: 4, FeedbackLevel: "rich",
	}, config.StrategyConfig{})

	d := p.Decide(context.Background(), startInput(t))
	if d.UCI() != "d2d4" {
		t.Fatalf("decision = %+v", d)
	}
	if d.ProviderCalls != 2 {
		t.Fatalf("provider calls = %d, want 2", d.ProviderCalls)
	}
}

func TestAgentic_TurnLimitExhaustion(t *testing.T) {
	prov := provider.NewScripted([]provider.ScriptStep{{Text: "get_legal_moves"}})
	p := newPipeline(prov, config.ProtocolConfig{
		Mode: ModeAgenticCompat, MoveRetries: 1, MaxAgenticTurns: 2,
	}, config.StrategyConfig{})

	d := p.Decide(context.Background(), startInput(t))
	if d.MoveUCI != nil {
		t.Fatal("exhausted agentic decision must leave move_uci null")
	}
	// Two restarts of two turns each.
	if prov.Calls() != 4 {
		t.Fatalf("provider calls = %d, want 4", prov.Calls())
	}
}
