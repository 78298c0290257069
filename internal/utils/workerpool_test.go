package utils

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tomb "gopkg.in/tomb.v2"
)

func TestWorkerPool_ProcessesEveryTask(t *testing.T) {
	pool := NewWorkerPool(4)
	tmb, ctx := tomb.WithContext(context.Background())

	var processed int64
	pool.Setup(tmb, func(t *tomb.Tomb, task any) error {
		atomic.AddInt64(&processed, 1)
		return nil
	})

	const n = 20
	for i := 0; i < n; i++ {
		pool.AddTask(i)
	}

	require.Eventually(t, func() bool {
		return atomic.LoadInt64(&processed) == n
	}, time.Second, time.Millisecond)

	tmb.Kill(nil)
	_ = tmb.Wait()
	_ = ctx
}

func TestWorkerPool_WorkerErrorKillsTomb(t *testing.T) {
	pool := NewWorkerPool(1)
	tmb, _ := tomb.WithContext(context.Background())

	boom := assertError("boom")
	pool.Setup(tmb, func(t *tomb.Tomb, task any) error {
		return boom
	})
	pool.AddTask("trigger")

	select {
	case <-tmb.Dead():
	case <-time.After(time.Second):
		t.Fatal("tomb did not die after worker error")
	}
	assert.ErrorIs(t, tmb.Err(), boom)
}

type assertError string

func (e assertError) Error() string { return string(e) }
