package workpool

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type counter struct {
	worker int
	jobs   int
}

func TestSubmit_Results(t *testing.T) {
	ctx := context.Background()
	p := New(4, func(int) struct{} { return struct{}{} })
	defer p.Close()

	var futures []*Future[int]
	for i := range 100 {
		f, err := Submit(ctx, p, func(struct{}) (int, error) { return i * i, nil })
		require.NoError(t, err)
		futures = append(futures, f)
	}
	for i, f := range futures {
		v, err := f.Get(ctx)
		require.NoError(t, err)
		assert.Equal(t, i*i, v)
	}
}

func TestPool_PerWorkerState(t *testing.T) {
	ctx := context.Background()
	states := make([]*counter, 3)
	p := New(3, func(i int) *counter {
		states[i] = &counter{worker: i}
		return states[i]
	})

	var futures []*Future[int]
	for range 300 {
		f, err := Submit(ctx, p, func(c *counter) (int, error) {
			c.jobs++ // unsynchronized: only this worker touches c
			return c.worker, nil
		})
		require.NoError(t, err)
		futures = append(futures, f)
	}
	for _, f := range futures {
		w, err := f.Get(ctx)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, w, 0)
		assert.Less(t, w, 3)
	}
	p.Close()

	total := 0
	for _, s := range states {
		total += s.jobs
	}
	assert.Equal(t, 300, total)
	assert.Equal(t, 3, p.Workers())
}

func TestSubmit_Panic(t *testing.T) {
	ctx := context.Background()
	p := New(1, func(int) struct{} { return struct{}{} })
	defer p.Close()

	f, err := Submit(ctx, p, func(struct{}) (string, error) { panic("boom") })
	require.NoError(t, err)
	_, err = f.Get(ctx)
	var pe *PanicError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, "boom", pe.Value)

	// the worker survives
	f2, err := Submit(ctx, p, func(struct{}) (string, error) { return "ok", nil })
	require.NoError(t, err)
	v, err := f2.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, "ok", v)
}

func TestSubmit_Closed(t *testing.T) {
	p := New(2, func(int) struct{} { return struct{}{} })
	p.Close()
	p.Close()
	_, err := Submit(context.Background(), p, func(struct{}) (int, error) { return 0, nil })
	assert.ErrorIs(t, err, ErrClosed)
}

func TestFuture_GetContext(t *testing.T) {
	p := New(1, func(int) struct{} { return struct{}{} })
	defer p.Close()

	release := make(chan struct{})
	f, err := Submit(context.Background(), p, func(struct{}) (int, error) {
		<-release
		return 1, nil
	})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err = f.Get(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	close(release)
	<-f.Done()
	v, err := f.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, v)
}

func TestSubmit_CanceledWhileFull(t *testing.T) {
	p := New(1, func(int) struct{} { return struct{}{} })
	defer p.Close()

	release := make(chan struct{})
	var started atomic.Int32
	block := func(struct{}) (int, error) {
		started.Add(1)
		<-release
		return 0, nil
	}

	// one running plus a full queue of 2
	for range 3 {
		_, err := Submit(context.Background(), p, block)
		require.NoError(t, err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Submit(ctx, p, block)
	assert.ErrorIs(t, err, context.Canceled)

	close(release)
}
