// Package workpool provides a fixed-size goroutine pool whose workers each own
// a private state value, with typed futures for submitted work.
package workpool

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"
)

// ErrClosed is returned when submitting to a closed pool.
var ErrClosed = errors.New("workpool: pool closed")

// PanicError carries a value recovered from a panicking job.
type PanicError struct {
	Value any
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("workpool: job panicked: %v", e.Value)
}

// Pool runs jobs on a fixed set of workers. Worker i is handed the state
// returned by newState(i) for every job it runs, so state is never shared.
type Pool[S any] struct {
	jobs    chan func(S)
	workers int

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
}

// New starts a pool. If workers is 0, runtime.GOMAXPROCS(0) is used.
func New[S any](workers int, newState func(worker int) S) *Pool[S] {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	p := &Pool[S]{
		jobs:    make(chan func(S), 2*workers),
		workers: workers,
	}
	p.wg.Add(workers)
	for i := range workers {
		state := newState(i)
		go func() {
			defer p.wg.Done()
			for job := range p.jobs {
				job(state)
			}
		}()
	}
	return p
}

// Workers returns the pool size.
func (p *Pool[S]) Workers() int {
	return p.workers
}

// Close stops accepting jobs and waits for queued jobs to finish.
// It is safe to call more than once.
func (p *Pool[S]) Close() {
	p.mu.Lock()
	if !p.closed {
		p.closed = true
		close(p.jobs)
	}
	p.mu.Unlock()
	p.wg.Wait()
}

func (p *Pool[S]) submit(ctx context.Context, job func(S)) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return ErrClosed
	}
	select {
	case p.jobs <- job:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Future is the pending result of a submitted job.
type Future[T any] struct {
	done  chan struct{}
	value T
	err   error
}

// Get blocks until the job completes or ctx is done.
func (f *Future[T]) Get(ctx context.Context) (T, error) {
	select {
	case <-f.done:
		return f.value, f.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// Done is closed once the result is available.
func (f *Future[T]) Done() <-chan struct{} {
	return f.done
}

// Submit queues fn on p and returns its future. It blocks while the queue is
// full, until ctx is done. A panic in fn is reported as a *PanicError.
func Submit[S, T any](ctx context.Context, p *Pool[S], fn func(S) (T, error)) (*Future[T], error) {
	f := &Future[T]{done: make(chan struct{})}
	job := func(s S) {
		defer close(f.done)
		defer func() {
			if r := recover(); r != nil {
				f.err = &PanicError{Value: r}
			}
		}()
		f.value, f.err = fn(s)
	}
	if err := p.submit(ctx, job); err != nil {
		return nil, err
	}
	return f, nil
}
