// Package worker provides the bounded in-process pool that runs video
// processing jobs. HTTP handlers submit and return immediately; the pool's
// goroutines do the waiting on FFmpeg.
package worker

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"
)

var (
	// ErrQueueFull is returned when the job queue cannot accept more work.
	ErrQueueFull = errors.New("worker queue is full")

	// ErrPoolStopped is returned when submitting after Shutdown.
	ErrPoolStopped = errors.New("worker pool is stopped")
)

// Job is a unit of background work.
type Job func(ctx context.Context)

// Pool runs jobs on a fixed number of goroutines over a buffered queue.
type Pool struct {
	size   int
	jobs   chan Job
	logger *slog.Logger

	startOnce sync.Once
	stopOnce  sync.Once
	wg        sync.WaitGroup

	mu      sync.RWMutex
	stopped bool
}

// NewPool creates a pool with the given worker count and queue capacity.
func NewPool(size, queueSize int, logger *slog.Logger) *Pool {
	if size < 1 {
		size = 1
	}
	return &Pool{
		size:   size,
		jobs:   make(chan Job, queueSize),
		logger: logger,
	}
}

// Start launches the workers. Jobs run with the supplied context; cancelling
// it interrupts in-flight work (FFmpeg subprocesses are killed through it).
func (p *Pool) Start(ctx context.Context) {
	p.startOnce.Do(func() {
		for i := 0; i < p.size; i++ {
			p.wg.Add(1)
			go p.work(ctx)
		}
	})
}

// Submit enqueues a job without blocking. Returns ErrQueueFull when the
// queue is saturated so the caller can surface backpressure, and
// ErrPoolStopped after Shutdown.
func (p *Pool) Submit(job Job) error {
	// The read lock holds off Shutdown's close(p.jobs) while we send.
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.stopped {
		return ErrPoolStopped
	}
	select {
	case p.jobs <- job:
		return nil
	default:
		return ErrQueueFull
	}
}

// Shutdown stops accepting jobs and waits for in-flight work up to the
// timeout.
func (p *Pool) Shutdown(timeout time.Duration) {
	p.stopOnce.Do(func() {
		p.mu.Lock()
		p.stopped = true
		close(p.jobs)
		p.mu.Unlock()
	})

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		p.logger.Info("worker pool drained")
	case <-time.After(timeout):
		p.logger.Warn("worker pool shutdown timeout exceeded, some jobs may not have completed")
	}
}

func (p *Pool) work(ctx context.Context) {
	defer p.wg.Done()
	for job := range p.jobs {
		p.run(ctx, job)
	}
}

// run isolates one job so a panic marks the job failed without killing the
// worker.
func (p *Pool) run(ctx context.Context, job Job) {
	defer func() {
		if rec := recover(); rec != nil {
			p.logger.Error("panic in worker job", slog.Any("panic", rec))
		}
	}()
	job(ctx)
}
