// Package pipeline runs data-parallel Filter, Map, ForEach and Reduce
// operations over slices.
//
// The input is split into chunks. Workers claim the next unclaimed chunk from
// a shared atomic cursor, so a worker that finishes early steals the
// remaining work instead of idling. Every callback receives the index of the
// worker running it, which callers use to select per-worker state.
package pipeline

import (
	"context"
	"runtime"
	"sync/atomic"

	"golang.org/x/sync/errgroup"
)

// Options controls parallelism. Zero values select defaults.
type Options struct {
	Workers int // defaults to runtime.GOMAXPROCS(0)
	Chunk   int // defaults to enough chunks for four per worker
}

func (o Options) resolve(n int) (workers, chunk int) {
	workers = o.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	chunk = o.Chunk
	if chunk <= 0 {
		chunk = max(1, n/(workers*4))
	}
	if chunks := (n + chunk - 1) / chunk; workers > chunks {
		workers = max(1, chunks)
	}
	return workers, chunk
}

// WorkerCount returns the number of workers used for n items.
func (o Options) WorkerCount(n int) int {
	w, _ := o.resolve(n)
	return w
}

// ForEach calls fn for every index of items. The first error cancels the
// remaining chunks and is returned. Processing stops between chunks once ctx
// is done.
func ForEach[T any](ctx context.Context, items []T, opts Options, fn func(worker, i int, item T) error) error {
	n := len(items)
	if n == 0 {
		return ctx.Err()
	}
	workers, chunk := opts.resolve(n)

	var cursor atomic.Int64
	g, ctx := errgroup.WithContext(ctx)
	for w := range workers {
		g.Go(func() error {
			for {
				if err := ctx.Err(); err != nil {
					return err
				}
				end := int(cursor.Add(int64(chunk)))
				start := end - chunk
				if start >= n {
					return nil
				}
				end = min(end, n)
				for i := start; i < end; i++ {
					if err := fn(w, i, items[i]); err != nil {
						return err
					}
				}
			}
		})
	}
	return g.Wait()
}

// Map returns fn applied to every item, in input order.
func Map[T, R any](ctx context.Context, items []T, opts Options, fn func(worker int, item T) (R, error)) ([]R, error) {
	out := make([]R, len(items))
	err := ForEach(ctx, items, opts, func(w, i int, item T) error {
		r, err := fn(w, item)
		if err != nil {
			return err
		}
		out[i] = r
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Filter returns the items keep accepts, in input order.
func Filter[T any](ctx context.Context, items []T, opts Options, keep func(worker int, item T) (bool, error)) ([]T, error) {
	flags, err := Map(ctx, items, opts, keep)
	if err != nil {
		return nil, err
	}
	var out []T
	for i, ok := range flags {
		if ok {
			out = append(out, items[i])
		}
	}
	return out, nil
}

// Reduce folds items into one accumulator per worker and returns the
// accumulators. Callers combine them; fn only ever sees its own worker's
// accumulator.
func Reduce[T, A any](ctx context.Context, items []T, opts Options, newAcc func(worker int) A, fn func(acc A, item T) error) ([]A, error) {
	workers, _ := opts.resolve(len(items))
	accs := make([]A, workers)
	for w := range accs {
		accs[w] = newAcc(w)
	}
	err := ForEach(ctx, items, opts, func(w, _ int, item T) error {
		return fn(accs[w], item)
	})
	if err != nil {
		return nil, err
	}
	return accs, nil
}
