package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/inodb/promoscan/internal/config"
	"github.com/inodb/promoscan/internal/engine"
	"github.com/inodb/promoscan/internal/output"
)

func (a *app) compareCmd() *cobra.Command {
	var bf baselineFlags
	cmd := &cobra.Command{
		Use:   "compare",
		Short: "Run every strategy and check each against the sequential result",
		Long: `Run the sequential strategy, then the worker pool and pipeline strategies
at every stage, one after another. With --runs N every strategy runs N times.
Print each strategy's counts, mean and fastest duration, speedup over the
sequential mean, and whether every run's consensus models equal the
sequential ones. Exits with status 3 if any strategy diverged.`,
		Example: `  promoscan compare --workers 8
  promoscan compare --runs 10 --chunk 64`,
		Args: usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runCompare(cmd.Context(), bf)
		},
	}
	cmd.Flags().Int("runs", 1, "Times to run each strategy; timings are averaged")
	bf.register(cmd)
	a.bind(cmd.Flags(), map[string]string{config.KeyRuns: "runs"})
	return cmd
}

func (a *app) runCompare(ctx context.Context, bf baselineFlags) error {
	cfg, err := a.load()
	if err != nil {
		return err
	}
	refs, recs, err := a.loadInputs(ctx, cfg)
	if err != nil {
		return err
	}

	cmp, err := a.newEngine(cfg).Compare(ctx, engine.Sequential{},
		engine.AllStrategies(cfg.Workers, cfg.Chunk), cfg.Runs, recs, refs)
	if err != nil {
		return err
	}

	cw := output.NewCompareWriter(a.stdout)
	if err := cw.Write(cmp); err != nil {
		return fmt.Errorf("write comparison: %w", err)
	}
	cw.WriteSummary(cmp)

	if err := a.finishBaseline(ctx, cfg, bf, cmp.Baseline); err != nil {
		return err
	}
	if !cmp.Equivalent() {
		return errMismatch
	}
	return nil
}
