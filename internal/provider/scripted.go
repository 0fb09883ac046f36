package provider

import (
	"context"
	"sync"

	"chessbench/internal/types"
)

// ScriptStep is one canned completion, or one canned failure.
type ScriptStep struct {
	Text   string
	Tokens types.TokenUsage
	Cost   float64
	Err    error
}

// Scripted replays a fixed sequence of responses. It backs deterministic
// game tests and the replay player; once the script runs out it repeats the
// final step.
type Scripted struct {
	mu    sync.Mutex
	steps []ScriptStep
	calls int
}

// NewScripted builds a scripted provider from its steps.
func NewScripted(steps []ScriptStep) *Scripted {
	return &Scripted{steps: steps}
}

// Calls reports how many completions were requested.
func (s *Scripted) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

// Name implements Provider.
func (s *Scripted) Name() string { return "scripted" }

// Complete implements Provider.
func (s *Scripted) Complete(ctx context.Context, req Request) (Response, error) {
	if err := ctx.Err(); err != nil {
		return Response{}, Categorize("scripted", 0, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.steps) == 0 {
		return Response{}, &Error{Category: CategoryInvalidResponse, Provider: "scripted", Msg: "empty script"}
	}
	i := s.calls
	if i >= len(s.steps) {
		i = len(s.steps) - 1
	}
	s.calls++

	step := s.steps[i]
	if step.Err != nil {
		return Response{}, step.Err
	}
	return Response{
		Text:    step.Text,
		Model:   "scripted",
		Tokens:  step.Tokens,
		CostUSD: step.Cost,
	}, nil
}

// Close implements Provider.
func (s *Scripted) Close() error { return nil }
