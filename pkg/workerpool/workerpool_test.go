package workerpool

import (
	"errors"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBatchRunsAllTasks(t *testing.T) {
	pool := New(4)
	defer pool.Close()

	var ran atomic.Int64
	batch := pool.NewBatch()
	for i := 0; i < 100; i++ {
		batch.Submit(func() error {
			ran.Add(1)
			return nil
		})
	}
	require.NoError(t, batch.Wait())
	assert.Equal(t, int64(100), ran.Load())
}

func TestBatchReportsFirstError(t *testing.T) {
	pool := New(1)
	defer pool.Close()

	boom := errors.New("boom")
	batch := pool.NewBatch()
	batch.Submit(func() error { return nil })
	batch.Submit(func() error { return boom })
	batch.Submit(func() error { return errors.New("later") })
	err := batch.Wait()
	require.ErrorIs(t, err, boom)
}

func TestBatchSkipsAfterError(t *testing.T) {
	// One worker makes execution sequential, so tasks after the failing one
	// must be skipped.
	pool := New(1)
	defer pool.Close()

	var ran atomic.Int64
	batch := pool.NewBatch()
	batch.Submit(func() error { return errors.New("boom") })
	for i := 0; i < 50; i++ {
		batch.Submit(func() error {
			ran.Add(1)
			return nil
		})
	}
	require.Error(t, batch.Wait())
	assert.Equal(t, int64(0), ran.Load())
}

func TestBatchCancel(t *testing.T) {
	pool := New(1)
	defer pool.Close()

	// Block the single worker so later submissions stay queued.
	gate := make(chan struct{})
	batch := pool.NewBatch()
	batch.Submit(func() error {
		<-gate
		return nil
	})
	var ran atomic.Int64
	batch.Submit(func() error {
		ran.Add(1)
		return nil
	})
	batch.Cancel()
	close(gate)
	require.NoError(t, batch.Wait())
	assert.Equal(t, int64(0), ran.Load())
}

func TestIndependentBatchesShareAPool(t *testing.T) {
	pool := New(2)
	defer pool.Close()

	a := pool.NewBatch()
	b := pool.NewBatch()
	a.Submit(func() error { return errors.New("a failed") })
	b.Submit(func() error { return nil })
	require.Error(t, a.Wait())
	require.NoError(t, b.Wait())
}

func TestCloseIsIdempotent(t *testing.T) {
	pool := New(2)
	pool.Close()
	pool.Close()
}

func TestNonPositiveWorkerCountDefaults(t *testing.T) {
	pool := New(0)
	defer pool.Close()

	batch := pool.NewBatch()
	batch.Submit(func() error { return nil })
	require.NoError(t, batch.Wait())
}
