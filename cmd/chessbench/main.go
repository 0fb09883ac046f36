package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"chessbench/internal/config"
	"chessbench/internal/logging"
	"chessbench/internal/prompt"
)

var (
	// Global flags
	verbose      bool
	experiment   string
	modelProfile string
	defaults     string
	overrides    []string

	// Logger
	logger *zap.Logger
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "chessbench",
	Short: "chessbench - LLM chess experiment harness",
	Long: `chessbench runs reproducible chess experiments that pit LLM players
against random, engine, or other LLM opponents.

Configuration is layered (defaults < model profile < experiment file < --set
overrides) and content-hashed so every run is attributable to an exact
configuration. Finished runs can be scored post-hoc against a UCI engine and
compared statistically.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg := zap.NewProductionConfig()
		if verbose {
			cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		var err error
		logger, err = cfg.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
		logging.CloseAll()
	},
}

// resolveConfig layers the configured files and overrides and brings the
// category file logger up against the resolved output directory.
func resolveConfig() (*config.Resolution, error) {
	res, err := config.LoadLayered(defaults, modelProfile, experiment, overrides, config.Options{
		KnownSystemPrompt: prompt.KnownSystemPrompt,
	})
	if err != nil {
		return nil, err
	}

	cfg := res.Config
	err = logging.Initialize(logging.Settings{
		Enabled: cfg.Tracking.Enabled,
		Debug:   cfg.Tracking.Debug || verbose,
		Level:   cfg.Tracking.LogLevel,
		Dir:     filepath.Join(cfg.Runtime.OutputDir, ".chessbench", "logs"),
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().StringVarP(&experiment, "config", "c", "", "Experiment config file (YAML)")
	rootCmd.PersistentFlags().StringVar(&modelProfile, "profile", "", "Model profile layered under the experiment file")
	rootCmd.PersistentFlags().StringVar(&defaults, "defaults", "", "Defaults file (built-in defaults when unset)")
	rootCmd.PersistentFlags().StringArrayVar(&overrides, "set", nil, "Config override as dotted.path=value (repeatable)")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(planCmd)
	rootCmd.AddCommand(evaluateCmd)
	rootCmd.AddCommand(compareCmd)
	rootCmd.AddCommand(knowledgeCmd)
}

// exitCode maps an Execute error to the process exit code: 1 for bad input
// (config parse, override, or validation errors), 2 for runtime failures.
func exitCode(err error) int {
	var cfgErr *config.Error
	var valErr *config.ValidationError
	if errors.As(err, &cfgErr) || errors.As(err, &valErr) {
		return 1
	}
	return 2
}

func main() {
	// Provider keys commonly live in .env during development.
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(exitCode(err))
	}
}
