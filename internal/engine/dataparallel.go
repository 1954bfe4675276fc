package engine

import (
	"context"

	"github.com/inodb/promoscan/internal/consensus"
	"github.com/inodb/promoscan/internal/pipeline"
	"github.com/inodb/promoscan/internal/task"
)

// DataParallel runs tasks through the chunk-stealing pipeline. Workers
// defaults to GOMAXPROCS, Chunk to four chunks per worker and Stage to
// StageMerge.
type DataParallel struct {
	Workers int
	Chunk   int
	Stage   Stage
}

func (s DataParallel) Name() string { return NamePipeline + "/" + s.Stage.or(StageMerge).String() }

func (s DataParallel) Execute(ctx context.Context, tasks []task.Task, env Env, agg *consensus.Aggregate) (Stats, error) {
	opts := pipeline.Options{Workers: s.Workers, Chunk: s.Chunk}
	runners := make([]*Runner, opts.WorkerCount(len(tasks)))
	for i := range runners {
		runners[i] = env.NewRunner()
	}

	var tl tally
	switch s.Stage.or(StageMerge) {
	case StageFilter:
		kept, err := pipeline.Filter(ctx, tasks, opts, func(w int, t task.Task) (bool, error) {
			o := runners[w].Filter(t)
			if !o.Homologous {
				tl.record(o)
			}
			return o.Homologous, nil
		})
		if err != nil {
			return Stats{}, err
		}
		local := env.NewRunner()
		for _, t := range kept {
			if err := apply(agg, &tl, local.Complete(Outcome{Task: t, Homologous: true})); err != nil {
				return Stats{}, err
			}
		}

	case StageCompute:
		outcomes, err := pipeline.Map(ctx, tasks, opts, func(w int, t task.Task) (Outcome, error) {
			return runners[w].Run(t), nil
		})
		if err != nil {
			return Stats{}, err
		}
		for _, o := range outcomes {
			if err := apply(agg, &tl, o); err != nil {
				return Stats{}, err
			}
		}

	case StageMerge:
		err := pipeline.ForEach(ctx, tasks, opts, func(w, _ int, t task.Task) error {
			return apply(agg, &tl, runners[w].Run(t))
		})
		if err != nil {
			return Stats{}, err
		}

	case StageReduce:
		workers, err := pipeline.Reduce(ctx, tasks, opts,
			func(w int) *worker { return &worker{runner: runners[w], partial: agg.Empty()} },
			func(w *worker, t task.Task) error {
				o, err := w.run(t)
				tl.record(o)
				return err
			})
		if err != nil {
			return Stats{}, err
		}
		if err := combine(agg, workers); err != nil {
			return Stats{}, err
		}
	}
	return tl.result(), nil
}
