// Package engine generates comparison tasks, executes them under a pluggable
// Strategy and folds the predictions into a consensus aggregate.
package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/inodb/promoscan/internal/consensus"
	"github.com/inodb/promoscan/internal/metrics"
	"github.com/inodb/promoscan/internal/sequence"
	"github.com/inodb/promoscan/internal/task"
)

const tracerName = "github.com/inodb/promoscan/internal/engine"

// Phase is the lifecycle position of a run.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseGenerating
	PhaseExecuting
	PhaseMerged
	PhaseDone
)

func (p Phase) String() string {
	switch p {
	case PhaseGenerating:
		return "generating"
	case PhaseExecuting:
		return "executing"
	case PhaseMerged:
		return "merged"
	case PhaseDone:
		return "done"
	}
	return "idle"
}

// Observer is told about every phase transition of a run.
type Observer func(strategy string, p Phase)

// Result is a finished run.
type Result struct {
	Strategy  string
	Aggregate *consensus.Aggregate
	Stats     Stats
}

// Engine drives strategies over one task universe.
type Engine struct {
	env      Env
	logger   *zap.Logger
	metrics  *metrics.Recorder
	tracer   trace.Tracer
	observer Observer
}

// New creates an engine running tasks with env.
func New(env Env) *Engine {
	return &Engine{
		env:    env,
		logger: zap.NewNop(),
		tracer: otel.Tracer(tracerName),
	}
}

// SetLogger sets the logger for run and task failure messages.
func (e *Engine) SetLogger(logger *zap.Logger) {
	e.logger = logger
}

// SetMetrics sets the recorder runs are reported to. Nil disables metrics.
func (e *Engine) SetMetrics(r *metrics.Recorder) {
	e.metrics = r
}

// SetTracer replaces the global otel tracer.
func (e *Engine) SetTracer(t trace.Tracer) {
	e.tracer = t
}

// SetObserver installs a phase observer.
func (e *Engine) SetObserver(o Observer) {
	e.observer = o
}

func (e *Engine) enter(strategy string, p Phase) {
	e.logger.Debug("phase", zap.String("strategy", strategy), zap.Stringer("phase", p))
	if e.observer != nil {
		e.observer(strategy, p)
	}
}

// Run generates the tasks for records × references and executes them with s.
// The returned aggregate has one key per reference plus consensus.AllKey.
// Task failures are reported in Stats; an error means the run was aborted.
func (e *Engine) Run(ctx context.Context, s Strategy, records []*sequence.Record, references []*sequence.Gene) (*Result, error) {
	name := s.Name()
	ctx, span := e.tracer.Start(ctx, "engine.Run", trace.WithAttributes(
		attribute.String("strategy", name),
		attribute.Int("records", len(records)),
		attribute.Int("references", len(references)),
	))
	defer span.End()

	e.enter(name, PhaseGenerating)
	agg, err := consensus.NewAggregate(task.Names(references))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "invalid references")
		return nil, fmt.Errorf("create aggregate: %w", err)
	}
	tasks := task.Generate(records, references)
	span.SetAttributes(attribute.Int("tasks", len(tasks)))

	e.enter(name, PhaseExecuting)
	start := time.Now()
	stats, err := s.Execute(ctx, tasks, e.env, agg)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "execute failed")
		return nil, fmt.Errorf("execute %s: %w", name, err)
	}
	stats.Duration = time.Since(start)
	e.enter(name, PhaseMerged)

	for _, f := range stats.Failures {
		e.logger.Warn("task failed",
			zap.String("record", f.Task.RecordID),
			zap.String("reference", f.Task.Reference.Name),
			zap.String("gene", f.Task.Candidate.Name),
			zap.Error(f.Err))
	}
	e.metrics.Observe(metrics.Run{
		Strategy:    name,
		Tasks:       stats.Tasks,
		Homologous:  stats.Homologous,
		Predictions: stats.Predictions,
		Failures:    len(stats.Failures),
		Duration:    stats.Duration,
	})
	span.SetAttributes(
		attribute.Int("homologous", stats.Homologous),
		attribute.Int("predictions", stats.Predictions),
		attribute.Int("failures", len(stats.Failures)),
	)

	e.enter(name, PhaseDone)
	e.logger.Info("run complete",
		zap.String("strategy", name),
		zap.Int("tasks", stats.Tasks),
		zap.Int("homologous", stats.Homologous),
		zap.Int("predictions", stats.Predictions),
		zap.Int("failures", len(stats.Failures)),
		zap.Duration("duration", stats.Duration))

	return &Result{Strategy: name, Aggregate: agg, Stats: stats}, nil
}

// Timing summarises the durations of repeated runs of one strategy.
type Timing struct {
	Runs int
	Mean time.Duration
	Min  time.Duration
}

func newTiming(durations []time.Duration) Timing {
	t := Timing{Runs: len(durations)}
	if len(durations) == 0 {
		return t
	}
	var total time.Duration
	t.Min = durations[0]
	for _, d := range durations {
		total += d
		t.Min = min(t.Min, d)
	}
	t.Mean = total / time.Duration(len(durations))
	return t
}

// Entry is one strategy's runs measured against the baseline.
type Entry struct {
	Result     *Result // last run
	Timing     Timing
	Verified   int     // runs whose aggregate equals the baseline's
	Speedup    float64 // baseline mean / this mean
	Equivalent bool    // every run verified
}

// Comparison holds a baseline run and every strategy checked against it.
type Comparison struct {
	Baseline       *Result // first baseline run
	BaselineTiming Timing
	Entries        []Entry
}

// Equivalent reports whether every entry matched the baseline.
func (c *Comparison) Equivalent() bool {
	for _, en := range c.Entries {
		if !en.Equivalent {
			return false
		}
	}
	return true
}

// Mismatches returns the names of the strategies that diverged.
func (c *Comparison) Mismatches() []string {
	var out []string
	for _, en := range c.Entries {
		if !en.Equivalent {
			out = append(out, en.Result.Strategy)
		}
	}
	return out
}

// Compare runs baseline and then each strategy in turn, runs times each and
// one run at a time so the timings do not interfere. Every run is checked
// against the first baseline run and speedups compare mean durations.
// runs <= 0 means one run.
func (e *Engine) Compare(ctx context.Context, baseline Strategy, strategies []Strategy, runs int, records []*sequence.Record, references []*sequence.Gene) (*Comparison, error) {
	if baseline == nil {
		return nil, errors.New("compare: no baseline strategy")
	}
	runs = max(runs, 1)
	ctx, span := e.tracer.Start(ctx, "engine.Compare", trace.WithAttributes(
		attribute.String("baseline", baseline.Name()),
		attribute.Int("strategies", len(strategies)),
		attribute.Int("runs", runs),
	))
	defer span.End()

	fail := func(err error, status string) (*Comparison, error) {
		span.RecordError(err)
		span.SetStatus(codes.Error, status)
		return nil, err
	}

	var base *Result
	_, baseTiming, stable, err := e.repeat(ctx, baseline, runs, records, references, func(r *Result) bool {
		if base == nil {
			base = r
			return true
		}
		return consensus.Verify(r.Aggregate, base.Aggregate)
	})
	if err != nil {
		return fail(err, "baseline failed")
	}
	if stable != runs {
		return fail(fmt.Errorf("compare: baseline %s agreed with itself in %d of %d runs",
			baseline.Name(), stable, runs), "baseline unstable")
	}

	cmp := &Comparison{Baseline: base, BaselineTiming: baseTiming}
	for _, s := range strategies {
		r, timing, verified, err := e.repeat(ctx, s, runs, records, references, func(r *Result) bool {
			return consensus.Verify(r.Aggregate, base.Aggregate)
		})
		if err != nil {
			return fail(err, "strategy failed")
		}
		en := Entry{Result: r, Timing: timing, Verified: verified, Equivalent: verified == runs}
		if timing.Mean > 0 {
			en.Speedup = baseTiming.Mean.Seconds() / timing.Mean.Seconds()
		}
		if !en.Equivalent {
			e.logger.Warn("strategy diverged from baseline",
				zap.String("strategy", r.Strategy),
				zap.String("baseline", base.Strategy),
				zap.Int("verified", verified),
				zap.Int("runs", runs))
		}
		cmp.Entries = append(cmp.Entries, en)
	}
	span.SetAttributes(attribute.Bool("equivalent", cmp.Equivalent()))
	return cmp, nil
}

// repeat runs s n times and passes every result to check. It returns the last
// result, the timing over all runs and how many results check accepted.
func (e *Engine) repeat(ctx context.Context, s Strategy, n int, records []*sequence.Record, references []*sequence.Gene, check func(*Result) bool) (*Result, Timing, int, error) {
	var (
		last      *Result
		accepted  int
		durations = make([]time.Duration, 0, n)
	)
	for range n {
		r, err := e.Run(ctx, s, records, references)
		if err != nil {
			return nil, Timing{}, 0, err
		}
		durations = append(durations, r.Stats.Duration)
		if check(r) {
			accepted++
		}
		last = r
	}
	return last, newTiming(durations), accepted, nil
}

// AllStrategies returns every parallel strategy at every stage.
func AllStrategies(workers, chunk int) []Strategy {
	var out []Strategy
	for _, st := range Stages() {
		out = append(out, WorkerPool{Workers: workers, Stage: st})
	}
	for _, st := range Stages() {
		out = append(out, DataParallel{Workers: workers, Chunk: chunk, Stage: st})
	}
	return out
}
