package config

// Enum domains for validation.
var (
	protocolModes  = map[string]bool{"direct": true, "agentic_compat": true, "research_strict": true}
	boardFormats   = map[string]bool{"fen": true, "ascii": true, "combined": true, "unicode": true, "pgn": true}
	feedbackLevels = map[string]bool{"minimal": true, "moderate": true, "rich": true}
	playerTypes    = map[string]bool{"random": true, "llm": true, "engine": true}
	playerColors   = map[string]bool{"auto": true, "white": true, "black": true}
)

// Validate checks enum membership and numeric ranges on a decoded config.
// The first violation found is returned as a ValidationError.
func Validate(cfg *Resolved) error {
	if cfg.Experiment.Name == "" {
		return Validationf("experiment.name", "required")
	}
	if cfg.Experiment.TargetValidGames <= 0 {
		return Validationf("experiment.target_valid_games", "must be > 0, got %d", cfg.Experiment.TargetValidGames)
	}
	if cfg.Experiment.MaxGames <= 0 {
		return Validationf("experiment.max_games", "must be > 0, got %d", cfg.Experiment.MaxGames)
	}
	if r := cfg.Experiment.ExpectedCompletionRate; r <= 0 || r > 1 {
		return Validationf("experiment.expected_completion_rate", "must be in (0, 1], got %g", r)
	}

	if err := validatePlayer("players.white", &cfg.Players.White); err != nil {
		return err
	}
	if err := validatePlayer("players.black", &cfg.Players.Black); err != nil {
		return err
	}

	if !protocolModes[cfg.Protocol.Mode] {
		return Validationf("protocol.mode", "unknown mode %q", cfg.Protocol.Mode)
	}
	if !feedbackLevels[cfg.Protocol.FeedbackLevel] {
		return Validationf("protocol.feedback_level", "unknown level %q", cfg.Protocol.FeedbackLevel)
	}
	if cfg.Protocol.MoveRetries < 0 {
		return Validationf("protocol.move_retries", "must be >= 0, got %d", cfg.Protocol.MoveRetries)
	}
	if cfg.Protocol.ProviderRetries < 0 {
		return Validationf("protocol.provider_retries", "must be >= 0, got %d", cfg.Protocol.ProviderRetries)
	}
	if cfg.Protocol.MaxPlies < 0 {
		return Validationf("protocol.max_plies", "must be >= 0, got %d", cfg.Protocol.MaxPlies)
	}

	if !boardFormats[cfg.Strategy.BoardFormat] {
		return Validationf("strategy.board_format", "unknown format %q", cfg.Strategy.BoardFormat)
	}
	if cfg.Strategy.SystemPromptEffective == "" {
		return Validationf("strategy.system_prompt_effective", "missing; config was not resolved")
	}
	if k := cfg.Strategy.Knowledge; k.Enabled {
		if k.TopK <= 0 {
			return Validationf("strategy.knowledge.top_k", "must be > 0, got %d", k.TopK)
		}
		if k.MinSimilarity < 0 || k.MinSimilarity > 1 {
			return Validationf("strategy.knowledge.min_similarity", "must be in [0, 1], got %g", k.MinSimilarity)
		}
	}
	if ma := cfg.Strategy.MultiAgent; ma.Enabled && ma.ProposerCount <= 0 {
		return Validationf("strategy.multi_agent.proposer_count", "must be > 0, got %d", ma.ProposerCount)
	}

	if !playerColors[cfg.Evaluation.PlayerColor] {
		return Validationf("evaluation.player_color", "unknown color %q", cfg.Evaluation.PlayerColor)
	}

	if cfg.Budget.MaxTotalUSD <= 0 {
		return Validationf("budget.max_total_usd", "must be > 0, got %g", cfg.Budget.MaxTotalUSD)
	}
	if cfg.Budget.EstimatedAvgCostPerGameUSD < 0 {
		return Validationf("budget.estimated_avg_cost_per_game_usd", "must be >= 0, got %g", cfg.Budget.EstimatedAvgCostPerGameUSD)
	}

	if tp := cfg.Runtime.TimeoutPolicy; tp.Enabled {
		if tp.MaxProviderTimeoutGameRate < 0 || tp.MaxProviderTimeoutGameRate > 1 {
			return Validationf("runtime.timeout_policy.max_provider_timeout_game_rate", "must be in [0, 1], got %g", tp.MaxProviderTimeoutGameRate)
		}
		if tp.MinObservedCompletionRate < 0 || tp.MinObservedCompletionRate > 1 {
			return Validationf("runtime.timeout_policy.min_observed_completion_rate", "must be in [0, 1], got %g", tp.MinObservedCompletionRate)
		}
	}
	if cfg.Runtime.OutputDir == "" {
		return Validationf("runtime.output_dir", "required")
	}

	return nil
}

func validatePlayer(field string, p *PlayerConfig) error {
	if !playerTypes[p.Type] {
		return Validationf(field+".type", "unknown player type %q", p.Type)
	}
	if p.Type == "llm" {
		if p.Provider == "" {
			return Validationf(field+".provider", "required for llm players")
		}
		if p.Model == "" {
			return Validationf(field+".model", "required for llm players")
		}
	}
	if p.Type == "engine" && p.Engine.Path == "" {
		return Validationf(field+".engine.path", "required for engine players")
	}
	return nil
}
