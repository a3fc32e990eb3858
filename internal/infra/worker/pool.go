// File: internal/infra/worker/pool.go
package worker

import (
	"context"
	"errors"
	"runtime"
	"sync"

	"github.com/rs/zerolog"

	"telegram-movie-finder/internal/infra/metrics"
)

var ErrQueueFull = errors.New("worker queue full")

// Task runs on a pool goroutine with the pool's context, never the caller's.
type Task func(ctx context.Context) error

// Pool is a small fixed-size worker pool for fire-and-forget work such as
// user notifications. Submit never blocks.
type Pool struct {
	wg   sync.WaitGroup
	jobs chan Task
	quit chan struct{}
	once sync.Once
	n    int
	log  *zerolog.Logger
}

func NewPool(workers int, logger *zerolog.Logger) *Pool {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &Pool{jobs: make(chan Task, workers*4), quit: make(chan struct{}), n: workers, log: logger}
}

func (p *Pool) Start(ctx context.Context) {
	for i := 0; i < p.n; i++ {
		p.wg.Add(1)
		go func(id int) {
			defer p.wg.Done()
			for {
				select {
				case <-ctx.Done():
					return
				case <-p.quit:
					return
				case task := <-p.jobs:
					p.run(ctx, id, task)
				}
			}
		}(i)
	}
}

func (p *Pool) run(ctx context.Context, id int, task Task) {
	defer func() {
		if r := recover(); r != nil {
			metrics.IncWorkerTask("panic")
			p.log.Error().Int("worker", id).Interface("panic", r).Msg("worker task panicked")
		}
	}()
	if err := task(ctx); err != nil {
		metrics.IncWorkerTask("error")
		p.log.Warn().Err(err).Int("worker", id).Msg("worker task failed")
		return
	}
	metrics.IncWorkerTask("ok")
}

// Stop signals the workers and waits for the running tasks to return.
// Queued tasks that have not started are dropped.
func (p *Pool) Stop() {
	p.once.Do(func() { close(p.quit) })
	p.wg.Wait()
}

func (p *Pool) Submit(task Task) error {
	if task == nil {
		return errors.New("nil task")
	}
	select {
	case p.jobs <- task:
		return nil
	default:
		metrics.IncWorkerTask("dropped")
		return ErrQueueFull
	}
}
