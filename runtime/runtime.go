// Package runtime implements the worker pool behind concurrent layer evaluation.
//
// A Pool owns a fixed number of worker goroutines, chosen independently of the
// width of any layer it serves. Scatter fans n indexed tasks out to the
// workers and blocks on a barrier until every task has finished. Each task
// writes only its own output slot, so results come back in index order no
// matter which worker ran them or in what order they completed.
//
// Key components:
//   - Pool: long-lived workers fed from a shared task queue
//   - Scatter: synchronous fan-out/join over n indexed tasks
//   - ExecutionStats: scatter counts and latency, when enabled
//
// Tasks cannot be cancelled. A task that never returns stalls the barrier of
// the Scatter call that submitted it.
package runtime

import (
	"runtime"
	"sync"
	"time"

	"github.com/pkg/errors"
)

var (
	// ErrPoolClosed is returned by Scatter after Close.
	ErrPoolClosed = errors.New("worker pool closed")

	// ErrTaskPanic wraps a panic recovered from a task.
	ErrTaskPanic = errors.New("task panicked")
)

// Task computes the result for index i and stores it in a slot owned by i.
type Task func(i int) error

// job is one queued task together with the barrier of its Scatter call.
type job struct {
	fn   Task
	i    int
	errs []error
	done *sync.WaitGroup
}

// Pool runs tasks on a bounded set of worker goroutines.
type Pool struct {
	workers int
	tasks   chan job
	opts    EngineOptions

	mu     sync.RWMutex // guards closed against concurrent Scatter
	closed bool
	wg     sync.WaitGroup

	statsMu sync.RWMutex
	stats   ExecutionStats
}

// EngineOptions configures pool behavior
type EngineOptions struct {
	Workers     int
	EnableStats bool
}

// ExecutionStats tracks pool usage
type ExecutionStats struct {
	TotalScatters  int64
	TotalTasks     int64
	TaskPanics     int64
	AverageLatency time.Duration
}

// DefaultEngineOptions provides sensible runtime defaults
func DefaultEngineOptions() EngineOptions {
	return EngineOptions{
		Workers:     runtime.NumCPU(),
		EnableStats: false,
	}
}

// NewPool starts the pool's workers. A nil opts uses DefaultEngineOptions.
func NewPool(opts *EngineOptions) *Pool {
	o := DefaultEngineOptions()
	if opts != nil {
		o = *opts
	}
	if o.Workers <= 0 {
		o.Workers = runtime.NumCPU()
	}

	p := &Pool{
		workers: o.Workers,
		tasks:   make(chan job, o.Workers*4),
		opts:    o,
	}
	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go p.worker()
	}
	return p
}

// Workers returns the number of worker goroutines.
func (p *Pool) Workers() int {
	return p.workers
}

// worker processes jobs until the queue is closed
func (p *Pool) worker() {
	defer p.wg.Done()
	for j := range p.tasks {
		p.run(j)
	}
}

func (p *Pool) run(j job) {
	defer j.done.Done()
	defer func() {
		if r := recover(); r != nil {
			j.errs[j.i] = errors.Wrapf(ErrTaskPanic, "task %d: %v", j.i, r)
			if p.opts.EnableStats {
				p.statsMu.Lock()
				p.stats.TaskPanics++
				p.statsMu.Unlock()
			}
		}
	}()
	j.errs[j.i] = j.fn(j.i)
}

// Scatter runs fn for every index in [0, n) and waits for all of them. The
// error of the lowest failing index is returned; the remaining tasks still
// run to completion. Scatter must not be called from inside one of its own
// tasks.
func (p *Pool) Scatter(n int, fn Task) error {
	if n <= 0 {
		return nil
	}
	start := time.Now()

	p.mu.RLock()
	if p.closed {
		p.mu.RUnlock()
		return ErrPoolClosed
	}
	errs := make([]error, n)
	var done sync.WaitGroup
	done.Add(n)
	for i := 0; i < n; i++ {
		p.tasks <- job{fn: fn, i: i, errs: errs, done: &done}
	}
	p.mu.RUnlock()

	done.Wait()
	p.updateStats(n, start)

	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}

// updateStats updates scatter counts and average latency
func (p *Pool) updateStats(tasks int, start time.Time) {
	if !p.opts.EnableStats {
		return
	}

	p.statsMu.Lock()
	defer p.statsMu.Unlock()

	p.stats.TotalScatters++
	p.stats.TotalTasks += int64(tasks)
	duration := time.Since(start)

	if p.stats.TotalScatters == 1 {
		p.stats.AverageLatency = duration
	} else {
		old := p.stats.TotalScatters - 1
		p.stats.AverageLatency = time.Duration((int64(p.stats.AverageLatency)*old + int64(duration)) / p.stats.TotalScatters)
	}
}

// Stats returns current execution statistics
func (p *Pool) Stats() ExecutionStats {
	p.statsMu.RLock()
	defer p.statsMu.RUnlock()
	return p.stats
}

// Close stops the workers after queued tasks drain. It is safe to call more
// than once.
func (p *Pool) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	close(p.tasks)
	p.mu.Unlock()
	p.wg.Wait()
}
