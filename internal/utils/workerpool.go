// Package utils holds small concurrency helpers shared by the transport
// layer.
package utils

import (
	"github.com/rs/zerolog/log"
	tomb "gopkg.in/tomb.v2"
)

// TaskChannelSize is the task queue's buffer depth.
const TaskChannelSize = 100

// WorkerFunction processes one task. Returning a non-nil error takes
// down the whole pool via the shared tomb.
type WorkerFunction = func(t *tomb.Tomb, task any) error

// WorkerPool is a fixed-size pool of tomb-supervised goroutines pulling
// from a shared task queue. Adapted from the teacher's internal/worker.go,
// whose Setup loop busy-spun on a select-with-default rather than
// blocking; here each worker is started once and blocks on its channel
// read instead.
type WorkerPool struct {
	n     int
	tasks chan any
}

// NewWorkerPool creates a pool of size workers.
func NewWorkerPool(size int) *WorkerPool {
	return &WorkerPool{tasks: make(chan any, TaskChannelSize), n: size}
}

// Tasks returns the send side of the task queue.
func (p *WorkerPool) Tasks() chan<- any {
	return p.tasks
}

// AddTask enqueues one task, blocking if the queue is full.
func (p *WorkerPool) AddTask(task any) {
	p.tasks <- task
}

// Setup starts the pool's workers under t, each running work.
func (p *WorkerPool) Setup(t *tomb.Tomb, work WorkerFunction) {
	log.Info().Int("workers", p.n).Msg("starting worker pool")
	for i := 0; i < p.n; i++ {
		t.Go(func() error {
			return p.worker(t, work)
		})
	}
}

func (p *WorkerPool) worker(t *tomb.Tomb, work WorkerFunction) error {
	for {
		select {
		case <-t.Dying():
			return nil
		case task := <-p.tasks:
			if err := work(t, task); err != nil {
				log.Error().Err(err).Msg("worker exiting")
				return err
			}
		}
	}
}
