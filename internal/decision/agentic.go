package decision

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"chessbench/internal/prompt"
	"chessbench/internal/provider"
	"chessbench/internal/types"
	"chessbench/internal/validator"
)

// Agentic tool verbs the model may emit.
const (
	toolGetBoard = "get_current_board"
	toolGetLegal = "get_legal_moves"
	toolMakeMove = "make_move"
)

const agenticInstructions = "You interact with a chess harness using tool commands. Reply with exactly one of:\n" +
	"get_current_board  - see the position again\n" +
	"get_legal_moves    - list the legal moves\n" +
	"make_move <uci>    - play a move, e.g. make_move e2e4\n" +
	"End the exchange by playing a legal move."

// decideAgentic runs the tool-style conversation: up to max_agentic_turns
// turns per restart, up to move_retries+1 restarts. A non-retryable provider
// failure breaks out of everything.
func (p *Pipeline) decideAgentic(ctx context.Context, in Input) types.MoveDecision {
	d := types.MoveDecision{
		DecisionMode:  types.DecisionSingleAgent,
		FeedbackLevel: p.protocol.FeedbackLevel,
		Retrieval:     in.Retrieval,
	}

	base := prompt.Build(prompt.Input{State: in.State, Strategy: p.strategy, Knowledge: in.Knowledge})

	for restart := 0; restart <= p.protocol.MoveRetries; restart++ {
		d.RetryCount = restart
		messages := []provider.Message{
			{Role: provider.RoleSystem, Content: prompt.SystemPrompt(p.strategy.SystemPromptEffective) + "\n\n" + agenticInstructions},
			{Role: provider.RoleUser, Content: base.Text},
		}

		for turn := 0; turn < p.protocol.MaxAgenticTurns; turn++ {
			resp, err := p.callProvider(ctx, messages, &d)
			if err != nil {
				d.Error = providerCode(err)
				if !provider.ShouldRetry(err) {
					d.ParseOK = false
					d.IsLegal = false
					return d
				}
				break // restart the conversation
			}
			d.RawResponse = resp.Text

			step := types.AgentStep{ID: uuid.NewString(), Role: "agent", Response: resp.Text}
			verb, arg := parseToolCall(resp.Text)
			var observation string
			switch verb {
			case toolGetBoard:
				observation = "Current position:\n" + prompt.RenderBoard(in.State, p.strategy.BoardFormat)
			case toolGetLegal:
				observation = "Legal moves: " + strings.Join(in.State.LegalUCI, " ")
			case toolMakeMove:
				v := validator.Validate(arg, in.State.LegalUCI, in.State.FEN)
				d.ParseOK = v.ParseOK
				if v.IsLegal {
					step.MoveUCI = v.MoveUCI
					d.AgentTrace = append(d.AgentTrace, step)
					d.SetUCI(v.MoveUCI)
					d.IsLegal = true
					d.Error = ""
					return d
				}
				d.Error = v.ErrorCode
				observation = validator.BuildRetryFeedback(v, p.protocol.FeedbackLevel, in.State.LegalUCI, in.State.Phase)
			default:
				d.Error = validator.ErrParseFailed
				observation = "Unrecognized command. " + agenticInstructions
			}
			d.AgentTrace = append(d.AgentTrace, step)

			messages = append(messages,
				provider.Message{Role: provider.RoleAssistant, Content: resp.Text},
				provider.Message{Role: provider.RoleUser, Content: observation},
			)
		}
	}

	d.ParseOK = false
	d.IsLegal = false
	return d
}

// parseToolCall extracts the verb and argument from an agentic reply. The
// first recognized verb wins; everything after make_move is treated as the
// move text.
func parseToolCall(text string) (verb, arg string) {
	lower := strings.ToLower(text)
	if i := strings.Index(lower, toolMakeMove); i >= 0 {
		rest := strings.TrimSpace(text[i+len(toolMakeMove):])
		if j := strings.IndexAny(rest, "\n"); j >= 0 {
			rest = rest[:j]
		}
		return toolMakeMove, strings.TrimSpace(rest)
	}
	if strings.Contains(lower, toolGetLegal) {
		return toolGetLegal, ""
	}
	if strings.Contains(lower, toolGetBoard) {
		return toolGetBoard, ""
	}
	return "", ""
}
