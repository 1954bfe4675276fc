package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/inodb/promoscan/internal/baseline"
	"github.com/inodb/promoscan/internal/config"
	"github.com/inodb/promoscan/internal/consensus"
	"github.com/inodb/promoscan/internal/engine"
	"github.com/inodb/promoscan/internal/output"
)

// baselineFlags selects what happens to a result after it is printed.
type baselineFlags struct {
	verify bool
	save   bool
}

func (b *baselineFlags) register(cmd *cobra.Command) {
	cmd.Flags().BoolVar(&b.verify, "verify", false, "Check the result against the baseline file or the latest stored run")
	cmd.Flags().BoolVar(&b.save, "save-baseline", false, "Record the result as a baseline")
}

func (a *app) scanCmd() *cobra.Command {
	var (
		bf      baselineFlags
		profile bool
	)
	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Run one strategy and print the consensus models",
		Long: `Run one execution strategy over every record × reference × gene task and
print the consensus model of each reference and of all references together.`,
		Example: `  promoscan scan --references refs.txt --records genomes/
  promoscan scan --strategy pool --stage reduce --workers 4
  promoscan scan --profile --save-baseline --baseline-file consensus.json`,
		Args: usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runScan(cmd.Context(), bf, profile)
		},
	}
	cmd.Flags().String("strategy", engine.NamePipeline, "Strategy: sequential, pool, pipeline")
	cmd.Flags().String("stage", "", "Stage to parallelise: filter, compute, merge, reduce")
	cmd.Flags().BoolVar(&profile, "profile", false, "Also print per-position base counts")
	bf.register(cmd)
	a.bind(cmd.Flags(), map[string]string{
		config.KeyStrategy: "strategy",
		config.KeyStage:    "stage",
	})
	return cmd
}

func (a *app) runScan(ctx context.Context, bf baselineFlags, profile bool) error {
	cfg, err := a.load()
	if err != nil {
		return err
	}
	strategy, err := engine.NewStrategy(cfg.Strategy, cfg.Workers, cfg.Chunk, cfg.Stage)
	if err != nil {
		return usageError{err}
	}
	refs, recs, err := a.loadInputs(ctx, cfg)
	if err != nil {
		return err
	}

	res, err := a.newEngine(cfg).Run(ctx, strategy, recs, refs)
	if err != nil {
		return err
	}

	if err := output.NewTabWriter(a.stdout).WriteAggregate(res.Aggregate); err != nil {
		return fmt.Errorf("write consensus: %w", err)
	}
	if profile {
		fmt.Fprintln(a.stdout)
		if err := output.NewProfileWriter(a.stdout).WriteAggregate(res.Aggregate); err != nil {
			return fmt.Errorf("write profile: %w", err)
		}
	}
	fmt.Fprintf(a.stderr, "%s: %d tasks, %d homologous, %d predictions, %d failed in %s\n",
		res.Strategy, res.Stats.Tasks, res.Stats.Homologous, res.Stats.Predictions,
		len(res.Stats.Failures), res.Stats.Duration)

	return a.finishBaseline(ctx, cfg, bf, res)
}

// finishBaseline verifies res against the stored baseline and then saves it,
// as requested by bf. Verification runs first so a run never matches itself.
func (a *app) finishBaseline(ctx context.Context, cfg config.Config, bf baselineFlags, res *engine.Result) error {
	var mismatch bool
	if bf.verify {
		v, source, err := a.verify(ctx, cfg, res.Aggregate)
		if err != nil {
			return err
		}
		output.WriteVerification(a.stdout, source, v)
		mismatch = !v.Equal
	}
	if bf.save {
		if err := a.saveBaseline(ctx, cfg, res); err != nil {
			return err
		}
	}
	if mismatch {
		return errMismatch
	}
	return nil
}

// verify compares agg with the baseline file, or with the latest run in the
// history database when no file is configured.
func (a *app) verify(ctx context.Context, cfg config.Config, agg *consensus.Aggregate) (consensus.Verification, string, error) {
	var (
		want   []byte
		source string
	)
	switch {
	case cfg.BaselineFile != "":
		b, err := baseline.ReadFile(cfg.BaselineFile)
		if err != nil {
			return consensus.Verification{}, "", err
		}
		want, source = b, cfg.BaselineFile
	case cfg.BaselineDB != "":
		store, err := baseline.Open(cfg.BaselineDB)
		if err != nil {
			return consensus.Verification{}, "", err
		}
		defer store.Close()
		run, err := store.Latest(ctx, "")
		if err != nil {
			return consensus.Verification{}, "", fmt.Errorf("latest baseline run: %w", err)
		}
		want, source = run.Canonical, "run "+run.ID
	default:
		return consensus.Verification{}, "", config.Invalid(config.KeyBaselineFile,
			"--verify needs a baseline file or database")
	}

	v, err := consensus.VerifyCanonical(agg, want)
	if err != nil {
		return consensus.Verification{}, "", fmt.Errorf("verify against %s: %w", source, err)
	}
	return v, source, nil
}

// saveBaseline writes res to the baseline file and appends it to the history
// database, whichever are configured.
func (a *app) saveBaseline(ctx context.Context, cfg config.Config, res *engine.Result) error {
	if cfg.BaselineFile == "" && cfg.BaselineDB == "" {
		return config.Invalid(config.KeyBaselineFile, "--save-baseline needs a baseline file or database")
	}
	if cfg.BaselineFile != "" {
		if err := baseline.WriteFile(cfg.BaselineFile, res.Aggregate); err != nil {
			return err
		}
		a.logger.Info("wrote baseline", zap.String("path", cfg.BaselineFile))
	}
	if cfg.BaselineDB != "" {
		store, err := baseline.Open(cfg.BaselineDB)
		if err != nil {
			return err
		}
		defer store.Close()
		id, err := store.SaveRun(ctx, baseline.Run{
			Strategy:    res.Strategy,
			Tasks:       res.Stats.Tasks,
			Predictions: res.Stats.Predictions,
			Duration:    res.Stats.Duration,
		}, res.Aggregate)
		if err != nil {
			return err
		}
		fmt.Fprintf(a.stderr, "Saved run %s to %s\n", id, cfg.BaselineDB)
	}
	return nil
}

// usageArgs marks argument validation failures as usage errors.
func usageArgs(fn cobra.PositionalArgs) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if err := fn(cmd, args); err != nil {
			return usageError{err}
		}
		return nil
	}
}
