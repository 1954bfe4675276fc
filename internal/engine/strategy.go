package engine

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/inodb/promoscan/internal/consensus"
	"github.com/inodb/promoscan/internal/task"
)

// Strategy schedules tasks and folds their predictions into an aggregate.
// Every strategy must leave agg canonically identical to Sequential.
type Strategy interface {
	Name() string
	Execute(ctx context.Context, tasks []task.Task, env Env, agg *consensus.Aggregate) (Stats, error)
}

// Stage selects how much of a task runs in parallel.
type Stage int

const (
	StageDefault Stage = iota
	StageFilter        // homology in parallel; extract, predict and merge on the caller
	StageCompute       // homology, extract and predict in parallel; merge on the caller
	StageMerge         // everything in parallel, merging under per-key locks
	StageReduce        // everything in parallel into per-worker partials, combined at the end
)

var stageNames = map[Stage]string{
	StageFilter:  "filter",
	StageCompute: "compute",
	StageMerge:   "merge",
	StageReduce:  "reduce",
}

func (s Stage) String() string {
	if n, ok := stageNames[s]; ok {
		return n
	}
	return "default"
}

// Stages lists every explicit stage.
func Stages() []Stage {
	return []Stage{StageFilter, StageCompute, StageMerge, StageReduce}
}

// ParseStage converts a stage name. The empty string is StageDefault.
func ParseStage(name string) (Stage, error) {
	if name == "" {
		return StageDefault, nil
	}
	for s, n := range stageNames {
		if n == name {
			return s, nil
		}
	}
	return StageDefault, fmt.Errorf("unknown stage %q (want filter, compute, merge or reduce)", name)
}

func (s Stage) or(def Stage) Stage {
	if s == StageDefault {
		return def
	}
	return s
}

// Strategy names accepted by NewStrategy.
const (
	NameSequential = "sequential"
	NamePool       = "pool"
	NamePipeline   = "pipeline"
)

// NewStrategy builds a strategy by name. Zero workers, chunk and stage select
// defaults.
func NewStrategy(name string, workers, chunk int, stage Stage) (Strategy, error) {
	switch name {
	case NameSequential:
		return Sequential{}, nil
	case NamePool:
		return WorkerPool{Workers: workers, Stage: stage}, nil
	case NamePipeline:
		return DataParallel{Workers: workers, Chunk: chunk, Stage: stage}, nil
	}
	return nil, fmt.Errorf("unknown strategy %q (want sequential, pool or pipeline)", name)
}

// Stats summarizes one execution.
type Stats struct {
	Tasks       int
	Homologous  int
	Predictions int
	Failures    []TaskError
	Duration    time.Duration
}

// TaskError records a task whose oracle failed. The task contributed nothing
// to the aggregate.
type TaskError struct {
	Task task.Task
	Err  error
}

func (e TaskError) Error() string {
	return fmt.Sprintf("task %s/%s/%s: %v", e.Task.RecordID, e.Task.Reference.Name, e.Task.Candidate.Name, e.Err)
}

func (e TaskError) Unwrap() error { return e.Err }

// tally accumulates Stats from outcomes delivered by any goroutine.
type tally struct {
	mu    sync.Mutex
	stats Stats
}

func (t *tally) record(o Outcome) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stats.Tasks++
	if o.Err != nil {
		t.stats.Failures = append(t.stats.Failures, TaskError{Task: o.Task, Err: o.Err})
		return
	}
	if o.Homologous {
		t.stats.Homologous++
	}
	if o.Predicted {
		t.stats.Predictions++
	}
}

// result returns the totals. Failures are sorted by record ID, reference
// name, candidate name and candidate location so every strategy reports them
// in the same order.
func (t *tally) result() Stats {
	t.mu.Lock()
	defer t.mu.Unlock()
	s := t.stats
	s.Failures = append([]TaskError(nil), s.Failures...)
	sort.SliceStable(s.Failures, func(i, j int) bool {
		a, b := s.Failures[i].Task, s.Failures[j].Task
		if a.RecordID != b.RecordID {
			return a.RecordID < b.RecordID
		}
		if a.Reference.Name != b.Reference.Name {
			return a.Reference.Name < b.Reference.Name
		}
		if a.Candidate.Name != b.Candidate.Name {
			return a.Candidate.Name < b.Candidate.Name
		}
		return a.Candidate.Location < b.Candidate.Location
	})
	return s
}

// apply records o and folds its prediction, if any, into agg.
func apply(agg *consensus.Aggregate, t *tally, o Outcome) error {
	t.record(o)
	if !o.Predicted {
		return nil
	}
	return agg.Merge(o.Task.Reference.Name, o.Match)
}

// worker is the per-goroutine state of the parallel strategies.
type worker struct {
	runner  *Runner
	partial *consensus.Aggregate // StageReduce only
}

func (w *worker) run(t task.Task) (Outcome, error) {
	o := w.runner.Run(t)
	if !o.Predicted {
		return o, nil
	}
	return o, w.partial.Merge(t.Reference.Name, o.Match)
}

func combine(agg *consensus.Aggregate, workers []*worker) error {
	for _, w := range workers {
		if err := agg.Combine(w.partial); err != nil {
			return err
		}
	}
	return nil
}
