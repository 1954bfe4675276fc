package engine

import (
	"context"

	"github.com/inodb/promoscan/internal/consensus"
	"github.com/inodb/promoscan/internal/task"
	"github.com/inodb/promoscan/internal/workpool"
)

// WorkerPool submits one job per task to a fixed pool and waits on every
// future. Workers defaults to GOMAXPROCS; Stage defaults to StageCompute.
type WorkerPool struct {
	Workers int
	Stage   Stage
}

func (s WorkerPool) Name() string { return NamePool + "/" + s.Stage.or(StageCompute).String() }

func (s WorkerPool) Execute(ctx context.Context, tasks []task.Task, env Env, agg *consensus.Aggregate) (Stats, error) {
	stage := s.Stage.or(StageCompute)

	var workers []*worker
	pool := workpool.New(s.Workers, func(int) *worker {
		w := &worker{runner: env.NewRunner()}
		if stage == StageReduce {
			w.partial = agg.Empty()
		}
		workers = append(workers, w)
		return w
	})
	defer pool.Close()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	job := func(w *worker, t task.Task) (Outcome, error) {
		switch stage {
		case StageFilter:
			return w.runner.Filter(t), nil
		case StageMerge:
			o := w.runner.Run(t)
			if !o.Predicted {
				return o, nil
			}
			return o, agg.Merge(t.Reference.Name, o.Match)
		case StageReduce:
			return w.run(t)
		}
		return w.runner.Run(t), nil
	}

	futures := make([]*workpool.Future[Outcome], 0, len(tasks))
	for _, t := range tasks {
		f, err := workpool.Submit(ctx, pool, func(w *worker) (Outcome, error) {
			if err := ctx.Err(); err != nil {
				return Outcome{}, err
			}
			return job(w, t)
		})
		if err != nil {
			return Stats{}, err
		}
		futures = append(futures, f)
	}

	var tl tally
	local := env.NewRunner()
	for _, f := range futures {
		o, err := f.Get(ctx)
		if err != nil {
			return Stats{}, err
		}
		switch stage {
		case StageFilter:
			err = apply(agg, &tl, local.Complete(o))
		case StageCompute:
			err = apply(agg, &tl, o)
		default:
			tl.record(o)
		}
		if err != nil {
			return Stats{}, err
		}
	}

	if stage == StageReduce {
		pool.Close()
		if err := combine(agg, workers); err != nil {
			return Stats{}, err
		}
	}
	return tl.result(), nil
}
