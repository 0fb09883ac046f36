package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"chessbench/internal/evaluation"
	"chessbench/internal/knowledge"
	"chessbench/internal/runner"
)

// runCmd executes an experiment end to end.
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Execute the configured experiment",
	Long: `Plays the scheduled games sequentially, writing one JSON artifact per
game plus the aggregate report into a content-addressed run directory.

Budget and reliability gates can stop the run early; pass runtime.resume=true
(or runtime.resume_run_id=<id>) via --set to continue an interrupted run.`,
	RunE: executeRun,
}

// planCmd prints the schedule a run would follow, without playing anything.
var planCmd = &cobra.Command{
	Use:   "plan",
	Short: "Show the game schedule and cost projection (dry run)",
	RunE: func(cmd *cobra.Command, args []string) error {
		res, err := resolveConfig()
		if err != nil {
			return err
		}
		plan := runner.ComputePlan(res.Config)
		return printJSON(struct {
			ConfigHash string `json:"config_hash"`
			runner.Plan
		}{res.Hash, plan})
	},
}

func executeRun(cmd *cobra.Command, args []string) error {
	res, err := resolveConfig()
	if err != nil {
		return err
	}
	logger.Info("starting run",
		zap.String("experiment", res.Config.Experiment.Name),
		zap.String("config_hash", res.Hash))

	r := &runner.Runner{
		Res:       res,
		Knowledge: knowledge.NewService(),
		EvalFunc:  evaluation.EvaluateRunDir,
	}
	result, runErr := r.Run(cmd.Context())
	if result != nil {
		// The structured payload is printed success or failure.
		if err := printJSON(result); err != nil {
			return err
		}
	}
	return runErr
}

func printJSON(v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(data))
	return nil
}
