package decision

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"

	"chessbench/internal/prompt"
	"chessbench/internal/provider"
	"chessbench/internal/types"
	"chessbench/internal/validator"
)

// MoA modes.
const (
	MoACapability  = "capability_moa"
	MoASpecialist  = "specialist_moa"
	MoAPhaseRouter = "hybrid_phase_router"
)

// MoAPolicyShared is the only arbitration policy; unknown policies normalize
// to it.
const MoAPolicyShared = "shared_model"

// ErrMoAAggregatorFallback marks a decision where the aggregator output was
// unusable and a plurality proposer candidate was substituted.
const ErrMoAAggregatorFallback = "moa_aggregator_invalid_fallback_candidate"

// ErrMoANoLegalCandidate marks a round where neither the aggregator nor any
// proposer produced a legal move.
const ErrMoANoLegalCandidate = "moa_no_legal_candidate"

// roleGuidance is the extra instruction appended per proposer role.
var roleGuidance = map[string]string{
	"reasoning":  "Reason carefully through candidate moves, tactics, and threats before choosing.",
	"compliance": "Prioritize producing a strictly legal move in exact UCI notation.",
	"safety":     "Prefer solid, low-risk moves; avoid speculative sacrifices.",
	"tactical":   "Hunt for tactics: checks, captures, forks, pins, and forcing lines.",
	"positional": "Favor long-term positional factors: structure, piece activity, king safety.",
	"endgame":    "Apply endgame technique: king activity, passed pawns, and simplification.",
}

// ResolveRoles maps (mode, phase, proposer_count, configured roles) onto the
// proposer role list. Explicit roles win; a proposer count larger than the
// role set does not duplicate roles.
func ResolveRoles(mode string, phase types.Phase, proposerCount int, configured []string) []string {
	roles := configured
	if len(roles) == 0 {
		switch mode {
		case MoASpecialist:
			roles = []string{"tactical", "positional", "endgame"}
		case MoAPhaseRouter:
			switch phase {
			case types.PhaseOpening:
				roles = []string{"positional", "compliance"}
			case types.PhaseEndgame:
				roles = []string{"endgame", "compliance"}
			default:
				roles = []string{"tactical", "positional", "compliance"}
			}
		default: // capability_moa, and any unknown mode
			roles = []string{"reasoning", "compliance", "safety"}
		}
	}
	if proposerCount > 0 && proposerCount < len(roles) {
		roles = roles[:proposerCount]
	}
	return roles
}

// decideMoA runs one proposer round plus one aggregator call, sequentially
// in role order.
func (p *Pipeline) decideMoA(ctx context.Context, in Input) types.MoveDecision {
	d := types.MoveDecision{
		DecisionMode:  types.DecisionCapabilityMoA,
		FeedbackLevel: p.protocol.FeedbackLevel,
		Retrieval:     in.Retrieval,
	}

	ma := p.strategy.MultiAgent
	roles := ResolveRoles(ma.Mode, in.State.Phase, ma.ProposerCount, ma.Roles)
	base := prompt.Build(prompt.Input{State: in.State, Strategy: p.strategy, Knowledge: in.Knowledge})
	system := prompt.SystemPrompt(p.strategy.SystemPromptEffective)

	// Proposer round. Only legal candidates enter arbitration; proposer
	// calls are what provider_calls counts for an MoA decision.
	type proposal struct {
		role string
		uci  string
	}
	var proposals []proposal
	for _, role := range roles {
		content := base.Text + "\n\nRole: " + role + ". " + roleGuidance[role] +
			"\nReply with exactly one legal move in UCI notation and nothing else."
		resp, err := p.callProvider(ctx, []provider.Message{
			{Role: provider.RoleSystem, Content: system},
			{Role: provider.RoleUser, Content: content},
		}, &d)

		step := types.AgentStep{ID: uuid.NewString(), Role: role}
		if err != nil {
			d.Error = providerCode(err)
			step.Response = d.Error
			d.AgentTrace = append(d.AgentTrace, step)
			if !provider.ShouldRetry(err) {
				d.ParseOK = false
				return d
			}
			continue
		}
		step.Response = resp.Text
		if v := validator.Validate(resp.Text, in.State.LegalUCI, in.State.FEN); v.IsLegal {
			step.MoveUCI = v.MoveUCI
			proposals = append(proposals, proposal{role: role, uci: v.MoveUCI})
		}
		d.AgentTrace = append(d.AgentTrace, step)
	}
	proposerCalls := d.ProviderCalls

	// Aggregator call.
	var candidates []string
	for _, pr := range proposals {
		candidates = append(candidates, fmt.Sprintf("%s: %s", pr.role, pr.uci))
	}
	aggContent := base.Text + "\n\nProposed moves:\n" + strings.Join(candidates, "\n") +
		"\n\nSelect the single best move. Reply with exactly one legal move in UCI notation and nothing else."
	if ma.AggregatorSeesLegal {
		aggContent += "\nLegal moves: " + strings.Join(in.State.LegalUCI, " ")
	}

	aggStep := types.AgentStep{ID: uuid.NewString(), Role: "aggregator"}
	resp, err := p.callProvider(ctx, []provider.Message{
		{Role: provider.RoleSystem, Content: system},
		{Role: provider.RoleUser, Content: aggContent},
	}, &d)
	d.ProviderCalls = proposerCalls

	aggLegal := false
	var aggMove string
	if err == nil {
		d.RawResponse = resp.Text
		aggStep.Response = resp.Text
		if v := validator.Validate(resp.Text, in.State.LegalUCI, in.State.FEN); v.IsLegal {
			aggLegal = true
			aggMove = v.MoveUCI
			aggStep.MoveUCI = v.MoveUCI
		}
	} else {
		aggStep.Response = providerCode(err)
	}
	d.AgentTrace = append(d.AgentTrace, aggStep)

	// Arbitration.
	votes := make(map[string]int)
	for _, pr := range proposals {
		votes[pr.uci]++
	}
	topMove, topVotes := plurality(votes)

	switch {
	case aggLegal:
		d.SetUCI(aggMove)
		d.ParseOK = true
		d.IsLegal = true
		d.Error = ""
		d.Rationale = fmt.Sprintf("accepted: aggregator chose %s with %d/%d proposer support; top vote %s (%d)",
			aggMove, votes[aggMove], len(proposals), topMove, topVotes)
	case topMove != "":
		d.SetUCI(topMove)
		d.ParseOK = true
		d.IsLegal = true
		d.Error = ErrMoAAggregatorFallback
		d.Rationale = fmt.Sprintf("fallback used: plurality candidate %s with %d/%d proposer support; aggregator output invalid (%s)",
			topMove, topVotes, len(proposals), ErrMoAAggregatorFallback)
	default:
		d.ParseOK = false
		d.IsLegal = false
		d.Error = ErrMoANoLegalCandidate
		d.Rationale = "no legal candidate: neither aggregator nor any proposer produced a legal move"
	}
	return d
}

// plurality returns the most-voted move, ties broken lexicographically.
func plurality(votes map[string]int) (string, int) {
	moves := make([]string, 0, len(votes))
	for m := range votes {
		moves = append(moves, m)
	}
	sort.Strings(moves)
	best, bestVotes := "", 0
	for _, m := range moves {
		if votes[m] > bestVotes {
			best, bestVotes = m, votes[m]
		}
	}
	return best, bestVotes
}
