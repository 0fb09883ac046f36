package types

import "time"

// StopInfo records why the runner halted before exhausting its schedule.
type StopInfo struct {
	Stopped bool     `json:"stopped"`
	Reasons []string `json:"reasons,omitempty"`
}

// Runner stop reasons.
const (
	StopBudgetCapReached          = "budget_cap_reached"
	StopProjectedBudgetExceeded   = "projected_budget_exceeded"
	StopProviderTimeoutRate       = "provider_timeout_rate_exceeded"
	StopCompletionRateBelowFloor  = "completion_rate_below_threshold"
)

// ResultCounts tallies outcomes from the tracked player's point of view.
type ResultCounts struct {
	Wins   int `json:"wins"`
	Losses int `json:"losses"`
	Draws  int `json:"draws"`
}

// BudgetReport summarizes spend against the configured cap.
type BudgetReport struct {
	CapUSD         float64 `json:"cap_usd"`
	SpentUSD       float64 `json:"spent_usd"`
	Utilization    float64 `json:"utilization"`
	ProjectedUSD   float64 `json:"projected_usd,omitempty"`
	EstimatedPerGame float64 `json:"estimated_per_game_usd,omitempty"`
}

// PhaseQuality holds engine-scored quality metrics for one phase bucket.
type PhaseQuality struct {
	Moves             int     `json:"moves"`
	ACPL              float64 `json:"acpl"`
	BlunderRate       float64 `json:"blunder_rate"`
	BestMoveAgreement float64 `json:"best_move_agreement"`
}

// QualityReport is the engine-derived quality section of an evaluated report.
type QualityReport struct {
	PlayerColor          Color                  `json:"player_color"`
	PlayerColorRequested string                 `json:"player_color_requested"`
	MovesEvaluated       int                    `json:"moves_evaluated"`
	Overall              PhaseQuality           `json:"overall"`
	ByPhase              map[Phase]PhaseQuality `json:"by_phase"`
	ClassCounts          map[string]int         `json:"class_counts"`
	Elo                  *EloEstimate           `json:"elo,omitempty"`
	Retrieval            *RetrievalUsefulness   `json:"retrieval,omitempty"`
}

// EloEstimate is the MLE rating with its uncertainty.
type EloEstimate struct {
	Estimate        float64 `json:"estimate"`
	StdError        float64 `json:"std_error"`
	CILow           float64 `json:"ci_low"`
	CIHigh          float64 `json:"ci_high"`
	Games           int     `json:"games"`
	ColorCorrection float64 `json:"color_correction,omitempty"`
}

// RetrievalBucket compares quality between retrieval-hit and no-hit moves.
type RetrievalBucket struct {
	Moves             int     `json:"moves"`
	ACPL              float64 `json:"acpl"`
	BestMoveAgreement float64 `json:"best_move_agreement"`
}

// RetrievalUsefulness attributes move quality to knowledge retrieval.
type RetrievalUsefulness struct {
	Hit            RetrievalBucket            `json:"hit"`
	NoHit          RetrievalBucket            `json:"no_hit"`
	HitLossPearson float64                    `json:"hit_count_cp_loss_pearson"`
	ByPhase        map[Phase]RetrievalBucket  `json:"by_phase,omitempty"`
}

// ExperimentReport is the aggregate artifact written at the end of a run.
// The evaluation pipeline rewrites it with SchemaVersionEvaluated and a
// populated Quality section.
type ExperimentReport struct {
	SchemaVersion    string         `json:"schema_version"`
	ExperimentID     string         `json:"experiment_id"`
	ConfigHash       string         `json:"config_hash"`
	GamesTotal       int            `json:"games_total"`
	ValidGames       int            `json:"valid_games"`
	CompletionRate   float64        `json:"completion_rate"`
	Results          ResultCounts   `json:"results"`
	IllegalMoveRate  float64        `json:"illegal_move_rate"`
	RetrySuccessRate float64        `json:"retry_success_rate"`
	P95LatencyMS     float64        `json:"p95_latency_ms"`
	TokenUsage       TokenUsage     `json:"token_usage"`
	CostUSD          float64        `json:"cost_usd"`
	Budget           BudgetReport   `json:"budget"`
	Stop             StopInfo       `json:"stop"`
	MoAMoveShare     float64        `json:"moa_move_share"`
	RetrievalHitRate float64        `json:"retrieval_hit_rate"`
	Terminations     map[string]int `json:"terminations"`
	Quality          *QualityReport `json:"quality,omitempty"`
	GeneratedAt      time.Time      `json:"generated_at"`
}

// RunMetadata is the _run.json payload. Secret-bearing config values are
// redacted before this is written.
type RunMetadata struct {
	SchemaVersion   string         `json:"schema_version"`
	RunID           string         `json:"run_id"`
	ExperimentName  string         `json:"experiment_name"`
	ConfigHash      string         `json:"config_hash"`
	Config          map[string]any `json:"config"`
	RequiredEnvVars []string       `json:"required_env_vars"`
	StartedAt       time.Time      `json:"started_at"`
	Resumed         bool           `json:"resumed,omitempty"`
	ResumedFromGame int            `json:"resumed_from_game,omitempty"`
}

// RunResult is the structured final payload handed back to the CLI boundary,
// success or failure.
type RunResult struct {
	RunID        string    `json:"run_id"`
	RunDir       string    `json:"run_dir"`
	GamesWritten int       `json:"games_written"`
	ValidGames   int       `json:"valid_games"`
	Stop         StopInfo  `json:"stop"`
	CostUSD      float64   `json:"cost_usd"`
	Evaluation   *EvalOutcome `json:"evaluation,omitempty"`
}

// EvalOutcome reports the auto-evaluation sub-result on a RunResult.
type EvalOutcome struct {
	Status  string `json:"status"` // completed, failed, skipped
	Message string `json:"message,omitempty"`
}

// Evaluation statuses.
const (
	EvalCompleted = "completed"
	EvalFailed    = "failed"
	EvalSkipped   = "skipped"
)
