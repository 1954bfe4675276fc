package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/inodb/promoscan/internal/baseline"
	"github.com/inodb/promoscan/internal/config"
	"github.com/inodb/promoscan/internal/output"
)

func (a *app) baselineCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "baseline",
		Short: "Inspect the stored run history",
		Long:  "List, show or export runs saved with --save-baseline to the baseline database.",
		Example: `  promoscan baseline list --baseline-db runs.duckdb
  promoscan baseline show 1b4e28ba-2fa1-11d2-883f-0016d3cca427
  promoscan baseline export 1b4e28ba-2fa1-11d2-883f-0016d3cca427 consensus.json`,
		Args: usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runBaselineList(cmd.Context())
		},
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List stored runs, oldest first",
		Args:  usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runBaselineList(cmd.Context())
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "show <run-id>",
		Short: "Print the consensus models of a stored run",
		Args:  usageArgs(cobra.ExactArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runBaselineShow(cmd.Context(), args[0])
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "export <run-id> <file>",
		Short: "Write a stored run as a canonical JSON baseline file",
		Args:  usageArgs(cobra.ExactArgs(2)),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runBaselineExport(cmd.Context(), args[0], args[1])
		},
	})
	return cmd
}

// openStore opens the configured history database.
func (a *app) openStore() (*baseline.Store, error) {
	cfg, err := a.load()
	if err != nil {
		return nil, err
	}
	if cfg.BaselineDB == "" {
		return nil, config.Invalid(config.KeyBaselineDB, "a baseline database is required")
	}
	return baseline.Open(cfg.BaselineDB)
}

func (a *app) runBaselineList(ctx context.Context) error {
	store, err := a.openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	runs, err := store.Runs(ctx)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Fprintf(a.stdout, "# No runs stored in %s\n", store.Path())
		return nil
	}
	return output.WriteRuns(a.stdout, runs)
}

func (a *app) loadRun(ctx context.Context, store *baseline.Store, id string) (*baseline.Run, error) {
	run, err := store.Load(ctx, id)
	if errors.Is(err, baseline.ErrNotFound) {
		return nil, usageError{fmt.Errorf("no stored run %q", id)}
	}
	return run, err
}

func (a *app) runBaselineShow(ctx context.Context, id string) error {
	store, err := a.openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	run, err := a.loadRun(ctx, store, id)
	if err != nil {
		return err
	}
	agg, err := run.Aggregate()
	if err != nil {
		return fmt.Errorf("decode run %s: %w", id, err)
	}
	if err := output.WriteRuns(a.stdout, []baseline.Run{*run}); err != nil {
		return err
	}
	fmt.Fprintln(a.stdout)
	return output.NewTabWriter(a.stdout).WriteAggregate(agg)
}

func (a *app) runBaselineExport(ctx context.Context, id, path string) error {
	store, err := a.openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	run, err := a.loadRun(ctx, store, id)
	if err != nil {
		return err
	}
	agg, err := run.Aggregate()
	if err != nil {
		return fmt.Errorf("decode run %s: %w", id, err)
	}
	if err := baseline.WriteFile(path, agg); err != nil {
		return err
	}
	fmt.Fprintf(a.stdout, "Exported run %s to %s\n", id, path)
	return nil
}
