package engine

import (
	"context"

	"github.com/inodb/promoscan/internal/consensus"
	"github.com/inodb/promoscan/internal/task"
)

// Sequential runs every task inline on the calling goroutine. It is the
// reference every other strategy is checked against.
type Sequential struct{}

func (Sequential) Name() string { return NameSequential }

func (Sequential) Execute(ctx context.Context, tasks []task.Task, env Env, agg *consensus.Aggregate) (Stats, error) {
	r := env.NewRunner()
	var t tally
	for _, tk := range tasks {
		if err := ctx.Err(); err != nil {
			return Stats{}, err
		}
		if err := apply(agg, &t, r.Run(tk)); err != nil {
			return Stats{}, err
		}
	}
	return t.result(), nil
}
