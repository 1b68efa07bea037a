package meshing

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type prepFunc func() error

func (f prepFunc) Prepare() error { return f() }

func TestPrepareAllRunsEveryItem(t *testing.T) {
	var n atomic.Int32
	items := make([]Preparer, 20)
	for i := range items {
		items[i] = prepFunc(func() error { n.Add(1); return nil })
	}
	require.NoError(t, PrepareAll(t.Context(), 4, items))
	assert.Equal(t, int32(20), n.Load())
}

func TestPrepareAllJoinsErrorsInOrder(t *testing.T) {
	errA, errB := errors.New("a"), errors.New("b")
	items := []Preparer{
		prepFunc(func() error { return nil }),
		prepFunc(func() error { time.Sleep(5 * time.Millisecond); return errA }),
		prepFunc(func() error { return errB }),
	}
	err := PrepareAll(t.Context(), 3, items)
	require.Error(t, err)
	assert.ErrorIs(t, err, errA)
	assert.ErrorIs(t, err, errB)
	assert.Equal(t, "prepare 1: a\nprepare 2: b", err.Error())
}

func TestPrepareAllEmpty(t *testing.T) {
	assert.NoError(t, PrepareAll(t.Context(), 8, nil))
}

func TestPrepareAllCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(t.Context())
	started := make(chan struct{})

	items := []Preparer{prepFunc(func() error {
		close(started)
		<-ctx.Done()
		return ctx.Err()
	})}
	go func() {
		<-started
		cancel()
	}()
	assert.ErrorIs(t, PrepareAll(ctx, 1, items), context.Canceled)
}

func TestWorkerPoolSubmit(t *testing.T) {
	pool := NewWorkerPool(t.Context(), 0, 1)
	defer pool.Shutdown()

	ok := pool.SubmitJob(Job{ID: 1, Target: prepFunc(func() error { return nil })})
	assert.True(t, ok)
	assert.Equal(t, 1, pool.GetQueueLength())
	assert.False(t, pool.SubmitJob(Job{ID: 2}), "queue is full with no workers")
}

func TestWorkerPoolConcurrentSubmit(t *testing.T) {
	pool := NewWorkerPool(t.Context(), 4, 64)
	defer pool.Shutdown()

	var wg sync.WaitGroup
	for i := range 32 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			pool.SubmitJobBlocking(Job{ID: i, Target: prepFunc(func() error { return nil })})
		}()
	}
	wg.Wait()

	seen := make(map[int]bool)
	for range 32 {
		r := <-pool.Results()
		seen[r.ID] = true
	}
	assert.Len(t, seen, 32)
}
