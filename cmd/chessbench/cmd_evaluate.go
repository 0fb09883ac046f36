package main

import (
	"fmt"

	"github.com/charmbracelet/glamour"
	"github.com/spf13/cobra"

	"chessbench/internal/evaluation"
	"chessbench/internal/report"
	"chessbench/internal/stats"
)

var (
	compareJSON  bool
	compareAlpha float64
	compareIters int
	compareSeed  int64
)

// evaluateCmd scores a finished run against the configured engine.
var evaluateCmd = &cobra.Command{
	Use:   "evaluate [run-dir]",
	Short: "Score a finished run's moves with the evaluation engine",
	Long: `Reads the run directory's resolved config, starts the evaluation engine,
scores every player-side move, and writes experiment_report_evaluated.json
next to the original report.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		runDir := args[0]
		if err := evaluation.EvaluateRunDir(runDir); err != nil {
			return err
		}
		run, err := report.Load(runDir)
		if err != nil {
			return err
		}
		return renderMarkdown(report.SummaryMarkdown(run))
	},
}

// compareCmd runs the statistical comparison between two finished runs.
var compareCmd = &cobra.Command{
	Use:   "compare [run-dir-a] [run-dir-b]",
	Short: "Statistically compare two finished runs",
	Long: `Loads both run directories, extracts win scores (and per-move centipawn
losses when the runs have been evaluated), and reports bootstrap confidence
intervals, a permutation test, effect sizes, and a recommendation.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := report.Load(args[0])
		if err != nil {
			return err
		}
		b, err := report.Load(args[1])
		if err != nil {
			return err
		}

		opts := stats.DefaultOptions()
		opts.Alpha = compareAlpha
		opts.Iterations = compareIters
		opts.Permutations = compareIters
		opts.Seed = compareSeed

		cmp := report.Compare(a, b, opts)
		if compareJSON {
			return printJSON(cmp)
		}
		return renderMarkdown(report.ComparisonMarkdown(cmp))
	},
}

// renderMarkdown pretty-prints markdown for the terminal, falling back to the
// raw text when the renderer cannot start.
func renderMarkdown(md string) error {
	renderer, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(100),
	)
	if err != nil {
		fmt.Println(md)
		return nil
	}
	out, err := renderer.Render(md)
	if err != nil {
		fmt.Println(md)
		return nil
	}
	fmt.Print(out)
	return nil
}

func init() {
	compareCmd.Flags().BoolVar(&compareJSON, "json", false, "Emit the raw comparison as JSON")
	compareCmd.Flags().Float64Var(&compareAlpha, "alpha", 0.05, "Significance threshold")
	compareCmd.Flags().IntVar(&compareIters, "iterations", 5000, "Bootstrap/permutation iterations")
	compareCmd.Flags().Int64Var(&compareSeed, "seed", 42, "Resampling seed")
}
