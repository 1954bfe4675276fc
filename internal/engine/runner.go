package engine

import (
	"fmt"

	"github.com/inodb/promoscan/internal/homology"
	"github.com/inodb/promoscan/internal/promoter"
	"github.com/inodb/promoscan/internal/sequence"
	"github.com/inodb/promoscan/internal/task"
)

// Env holds the collaborators a strategy runs tasks with.
type Env struct {
	Oracle     homology.Oracle  // shared; must be safe for concurrent use
	Predictors promoter.Factory // called once per worker
}

// DefaultEnv returns the BLOSUM62 oracle and sigma-70 predictor at the given
// thresholds. Zero thresholds select the package defaults.
func DefaultEnv(homologyThreshold, promoterCutoff float64) Env {
	return Env{
		Oracle:     homology.NewOracle(homologyThreshold),
		Predictors: promoter.NewFactory(promoterCutoff),
	}
}

// NewRunner returns a Runner owning a fresh predictor.
func (e Env) NewRunner() *Runner {
	return &Runner{oracle: e.Oracle, predictor: e.Predictors()}
}

// Outcome is the result of running one task. Strategies that split compute
// from merge pass outcomes back to the merging goroutine instead of writing
// into the task.
type Outcome struct {
	Task       task.Task
	Homologous bool
	Predicted  bool
	Match      promoter.Match
	Err        error
}

// PanicError is a panic recovered from an oracle.
type PanicError struct {
	Stage string
	Value any
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("%s panicked: %v", e.Stage, e.Value)
}

// Runner executes the filter, extract and predict steps for one worker.
// A Runner is not safe for concurrent use.
type Runner struct {
	oracle    homology.Oracle
	predictor promoter.Predictor
}

// Filter runs the homology check.
func (r *Runner) Filter(t task.Task) (o Outcome) {
	o.Task = t
	defer func() {
		if v := recover(); v != nil {
			o.Homologous = false
			o.Err = &PanicError{Stage: "homology", Value: v}
		}
	}()
	ok, err := r.oracle.Homologous(t.Candidate.Sequence, t.Reference.Sequence)
	if err != nil {
		o.Err = fmt.Errorf("homology: %w", err)
		return o
	}
	o.Homologous = ok
	return o
}

// Complete extracts the upstream region of a homologous outcome and predicts
// its promoter. Other outcomes are returned unchanged.
func (r *Runner) Complete(in Outcome) (o Outcome) {
	o = in
	if !o.Homologous || o.Err != nil {
		return o
	}
	defer func() {
		if v := recover(); v != nil {
			o.Predicted = false
			o.Err = &PanicError{Stage: "promoter", Value: v}
		}
	}()
	region := sequence.Upstream(o.Task.Source, o.Task.Candidate)
	m, ok, err := r.predictor.Predict(region)
	if err != nil {
		o.Err = fmt.Errorf("promoter: %w", err)
		return o
	}
	o.Match, o.Predicted = m, ok
	return o
}

// Run filters and, when homologous, completes t.
func (r *Runner) Run(t task.Task) Outcome {
	return r.Complete(r.Filter(t))
}
