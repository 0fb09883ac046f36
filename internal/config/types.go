package config

// Resolved is the typed view of a fully merged, validated configuration.
// It is decoded from the canonical map after hashing and never mutated
// afterward.
type Resolved struct {
	Experiment ExperimentConfig `yaml:"experiment"`
	Players    PlayersConfig    `yaml:"players"`
	Protocol   ProtocolConfig   `yaml:"protocol"`
	Strategy   StrategyConfig   `yaml:"strategy"`
	Evaluation EvaluationConfig `yaml:"evaluation"`
	Runtime    RuntimeConfig    `yaml:"runtime"`
	Budget     BudgetConfig     `yaml:"budget"`
	Tracking   TrackingConfig   `yaml:"tracking"`
}

// ExperimentConfig names the experiment and sizes the run.
type ExperimentConfig struct {
	Name                   string  `yaml:"name"`
	TargetValidGames       int     `yaml:"target_valid_games"`
	ExpectedCompletionRate float64 `yaml:"expected_completion_rate"`
	MaxGames               int     `yaml:"max_games"`
	BaseSeed               int     `yaml:"base_seed"`
}

// PlayersConfig holds both sides of every scheduled game.
type PlayersConfig struct {
	White PlayerConfig `yaml:"white"`
	Black PlayerConfig `yaml:"black"`
}

// PlayerConfig configures one player slot. Type is one of random, llm,
// engine.
type PlayerConfig struct {
	Type        string       `yaml:"type"`
	Name        string       `yaml:"name"`
	Provider    string       `yaml:"provider"`
	Model       string       `yaml:"model"`
	APIKey      string       `yaml:"api_key"`
	BaseURL     string       `yaml:"base_url"`
	Temperature float64      `yaml:"temperature"`
	Engine      EngineConfig `yaml:"engine"`
}

// EngineConfig configures a UCI engine, either as a player or as the
// post-hoc evaluator.
type EngineConfig struct {
	Path    string `yaml:"path"`
	Depth   int    `yaml:"depth"`
	Threads int    `yaml:"threads"`
	HashMB  int    `yaml:"hash_mb"`
	Elo     int    `yaml:"elo"`
}

// ProtocolConfig governs the per-ply decision protocol.
type ProtocolConfig struct {
	Mode                   string  `yaml:"mode"` // direct, agentic_compat, research_strict
	MoveRetries            int     `yaml:"move_retries"`
	ProviderRetries        int     `yaml:"provider_retries"`
	ProviderBackoffSeconds float64 `yaml:"provider_backoff_seconds"`
	MaxAgenticTurns        int     `yaml:"max_agentic_turns"`
	FeedbackLevel          string  `yaml:"feedback_level"` // minimal, moderate, rich
	MaxPlies               int     `yaml:"max_plies"`
}

// StrategyConfig shapes prompts and move selection.
type StrategyConfig struct {
	SystemPromptID        string           `yaml:"system_prompt_id"`
	SystemPromptRequested string           `yaml:"system_prompt_requested"`
	SystemPromptEffective string           `yaml:"system_prompt_effective"`
	BoardFormat           string           `yaml:"board_format"` // fen, ascii, combined, unicode, pgn
	Context               ContextConfig    `yaml:"context"`
	FewShot               FewShotConfig    `yaml:"few_shot"`
	Knowledge             KnowledgeConfig  `yaml:"knowledge"`
	MultiAgent            MultiAgentConfig `yaml:"multi_agent"`
}

// ContextConfig bounds the assembled prompt.
type ContextConfig struct {
	HistoryPlies     int      `yaml:"history_plies"`
	MaxPromptChars   int      `yaml:"max_prompt_chars"`
	CompressionOrder []string `yaml:"compression_order"`
}

// FewShotConfig selects worked examples for the prompt.
type FewShotConfig struct {
	Enabled     bool            `yaml:"enabled"`
	MaxExamples int             `yaml:"max_examples"`
	Inline      []InlineExample `yaml:"inline"`
}

// InlineExample is a few-shot example supplied directly in config.
type InlineExample struct {
	Phase   string `yaml:"phase"`
	FEN     string `yaml:"fen"`
	MoveUCI string `yaml:"move_uci"`
	Note    string `yaml:"note"`
}

// KnowledgeConfig enables retrieval-augmented prompting.
type KnowledgeConfig struct {
	Enabled       bool     `yaml:"enabled"`
	Sources       []string `yaml:"sources"`
	SQLitePath    string   `yaml:"sqlite_path"`
	TopK          int      `yaml:"top_k"`
	MinSimilarity float64  `yaml:"min_similarity"`
}

// MultiAgentConfig configures the MoA orchestrator.
type MultiAgentConfig struct {
	Enabled                bool     `yaml:"enabled"`
	Mode                   string   `yaml:"mode"`   // capability_moa, specialist_moa, hybrid_phase_router
	Policy                 string   `yaml:"policy"` // shared_model
	ProposerCount          int      `yaml:"proposer_count"`
	Roles                  []string `yaml:"roles"`
	AggregatorSeesLegal    bool     `yaml:"aggregator_sees_legal_moves"`
}

// EvaluationConfig configures post-hoc engine scoring.
type EvaluationConfig struct {
	Auto            AutoEvalConfig `yaml:"auto"`
	Engine          EngineConfig   `yaml:"engine"`
	PlayerColor     string         `yaml:"player_color"` // auto, white, black
	OpponentElo     int            `yaml:"opponent_elo"`
	ColorCorrection float64        `yaml:"color_correction"`
}

// AutoEvalConfig runs evaluation immediately after the experiment.
type AutoEvalConfig struct {
	Enabled     bool `yaml:"enabled"`
	FailOnError bool `yaml:"fail_on_error"`
}

// RuntimeConfig controls where and how the run executes.
type RuntimeConfig struct {
	OutputDir     string              `yaml:"output_dir"`
	Resume        bool                `yaml:"resume"`
	ResumeRunID   string              `yaml:"resume_run_id"`
	TimeoutPolicy TimeoutPolicyConfig `yaml:"timeout_policy"`
}

// TimeoutPolicyConfig is the reliability gate.
type TimeoutPolicyConfig struct {
	Enabled                    bool    `yaml:"enabled"`
	Action                     string  `yaml:"action"` // stop_run
	MinGamesBeforeEnforcement  int     `yaml:"min_games_before_enforcement"`
	MaxProviderTimeoutGameRate float64 `yaml:"max_provider_timeout_game_rate"`
	MinObservedCompletionRate  float64 `yaml:"min_observed_completion_rate"`
}

// BudgetConfig caps total spend.
type BudgetConfig struct {
	MaxTotalUSD                float64 `yaml:"max_total_usd"`
	EstimatedAvgCostPerGameUSD float64 `yaml:"estimated_avg_cost_per_game_usd"`
}

// TrackingConfig controls the category file logger.
type TrackingConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Debug    bool   `yaml:"debug"`
	LogLevel string `yaml:"log_level"`
}
