// Package types defines the shared record schema for the experiment harness:
// move decisions, game records, run metadata, and aggregate reports.
// All serialization is driven by the declared fields here; nothing is derived
// by reflection at runtime.
package types

import "time"

// SchemaVersionRun is the schema version stamped into _run.json and
// experiment_report.json.
const SchemaVersionRun = "1.0"

// SchemaVersionEvaluated is the schema version of the post-hoc evaluated report.
const SchemaVersionEvaluated = "2.0"

// Phase identifies the stage of a chess game.
type Phase string

const (
	PhaseOpening    Phase = "opening"
	PhaseMiddlegame Phase = "middlegame"
	PhaseEndgame    Phase = "endgame"
)

// Color is the side to move.
type Color string

const (
	ColorWhite Color = "white"
	ColorBlack Color = "black"
)

// Other returns the opposite color.
func (c Color) Other() Color {
	if c == ColorWhite {
		return ColorBlack
	}
	return ColorWhite
}

// Result is a PGN-style game result.
type Result string

const (
	ResultWhiteWins Result = "1-0"
	ResultBlackWins Result = "0-1"
	ResultDraw      Result = "1/2-1/2"
	ResultUnknown   Result = "*"
)

// Termination reasons recorded on a finished game.
const (
	TerminationCheckmate            = "checkmate"
	TerminationStalemate            = "stalemate"
	TerminationDrawMoveRule         = "draw_move_rule"
	TerminationDrawRepetition       = "draw_repetition"
	TerminationDrawInsufficient     = "draw_insufficient_material"
	TerminationDrawRule             = "draw_rule"
	TerminationMaxMoves             = "max_moves"
	TerminationError                = "error"
	TerminationTimeout              = "timeout"
	TerminationProviderFailure      = "provider_failure"
)

// IsValidTermination reports whether a termination counts toward valid games.
// Games that ended in error, timeout, or provider failure are excluded.
func IsValidTermination(termination string) bool {
	switch termination {
	case TerminationError, TerminationTimeout, TerminationProviderFailure:
		return false
	}
	return true
}

// DecisionMode records how a move was chosen.
type DecisionMode string

const (
	DecisionSingleAgent   DecisionMode = "single_agent"
	DecisionCapabilityMoA DecisionMode = "capability_moa"
)

// RetrievalMeta captures knowledge-retrieval metadata attached to a decision.
// Fields flatten into the move_decision JSON object.
type RetrievalMeta struct {
	Enabled   bool     `json:"retrieval_enabled"`
	HitCount  int      `json:"retrieval_hit_count"`
	LatencyMS float64  `json:"retrieval_latency_ms"`
	Sources   []string `json:"retrieval_sources,omitempty"`
	Phase     Phase    `json:"retrieval_phase,omitempty"`
}

// AgentStep is one turn of an agentic or MoA exchange, kept for audit.
type AgentStep struct {
	ID       string `json:"id"`
	Role     string `json:"role"`
	Request  string `json:"request,omitempty"`
	Response string `json:"response"`
	MoveUCI  string `json:"move_uci,omitempty"`
}

// MoveDecision is the output of the per-ply decision pipeline.
// MoveUCI is nil when no legal move could be produced (research_strict).
type MoveDecision struct {
	MoveUCI       *string        `json:"move_uci"`
	MoveSAN       string         `json:"move_san"`
	RawResponse   string         `json:"raw_response"`
	ParseOK       bool           `json:"parse_ok"`
	IsLegal       bool           `json:"is_legal"`
	RetryCount    int            `json:"retry_count"`
	TokensInput   int            `json:"tokens_input"`
	TokensOutput  int            `json:"tokens_output"`
	LatencyMS     float64        `json:"latency_ms"`
	ProviderModel string         `json:"provider_model"`
	ProviderCalls int            `json:"provider_calls"`
	FeedbackLevel string         `json:"feedback_level"`
	Error         string         `json:"error,omitempty"`
	CostUSD       float64        `json:"cost_usd"`
	Retrieval     *RetrievalMeta `json:"retrieval,omitempty"`
	DecisionMode  DecisionMode   `json:"decision_mode"`
	AgentTrace    []AgentStep    `json:"agent_trace,omitempty"`
	Rationale     string         `json:"rationale,omitempty"`
}

// UCI returns the decided move or "" when the decision carries none.
func (d *MoveDecision) UCI() string {
	if d.MoveUCI == nil {
		return ""
	}
	return *d.MoveUCI
}

// SetUCI records a concrete move on the decision.
func (d *MoveDecision) SetUCI(uci string) {
	d.MoveUCI = &uci
}

// MoveRecord is one ply of a recorded game.
type MoveRecord struct {
	PlyNumber int          `json:"ply_number"`
	Color     Color        `json:"color"`
	FENBefore string       `json:"fen_before"`
	Decision  MoveDecision `json:"move_decision"`
}

// PlayerSpec is the configuration snapshot of one player in a game.
type PlayerSpec struct {
	Type     string `json:"type"`
	Name     string `json:"name,omitempty"`
	Provider string `json:"provider,omitempty"`
	Model    string `json:"model,omitempty"`
	Elo      int    `json:"elo,omitempty"`
}

// PlayersSnapshot pins both players of a game.
type PlayersSnapshot struct {
	White PlayerSpec `json:"white"`
	Black PlayerSpec `json:"black"`
}

// TokenUsage accumulates input/output token counts.
type TokenUsage struct {
	Input  int `json:"input"`
	Output int `json:"output"`
}

// Add folds another usage into this one.
func (u *TokenUsage) Add(input, output int) {
	u.Input += input
	u.Output += output
}

// GameRecord is the whole-game artifact persisted as games/game_NNNN.json.
type GameRecord struct {
	ExperimentID    string          `json:"experiment_id"`
	GameNumber      int             `json:"game_number"`
	ConfigHash      string          `json:"config_hash"`
	Seed            uint32          `json:"seed"`
	Players         PlayersSnapshot `json:"players"`
	Moves           []MoveRecord    `json:"moves"`
	Result          Result          `json:"result"`
	Termination     string          `json:"termination"`
	TokenUsage      TokenUsage      `json:"token_usage"`
	CostUSD         float64         `json:"cost_usd"`
	DurationSeconds float64         `json:"duration_seconds"`
	TimestampUTC    time.Time       `json:"timestamp_utc"`
}

// HasProviderTimeout reports whether any move in the game carries a
// provider_timeout error, the signal consumed by the reliability gate.
func (g *GameRecord) HasProviderTimeout() bool {
	for i := range g.Moves {
		if hasPrefix(g.Moves[i].Decision.Error, "provider_timeout") {
			return true
		}
	}
	return false
}

func hasPrefix(s, prefix string) bool {
	return len(s) >= len(prefix) && s[:len(prefix)] == prefix
}

// JobRecord is the boundary type for the external job journal. The core
// declares the schema but never reads or writes journal files itself.
type JobRecord struct {
	ID         string            `json:"id"`
	Type       string            `json:"type"`
	Status     string            `json:"status"`
	PID        int               `json:"pid,omitempty"`
	Command    string            `json:"command,omitempty"`
	StdoutPath string            `json:"stdout_path,omitempty"`
	StderrPath string            `json:"stderr_path,omitempty"`
	RunID      string            `json:"run_id,omitempty"`
	RunDir     string            `json:"run_dir,omitempty"`
	Meta       map[string]string `json:"meta,omitempty"`
}
