package worker

import (
	"context"
	"sync"
)

// Job represents a unit of work to be executed
type Job interface {
	Execute(ctx context.Context) Result
}

// Result represents the result of a job execution
type Result interface {
	GetError() error
}

// Pool runs jobs on a fixed number of workers.
// A single collector goroutine drains results as they arrive, so Submit never
// waits on an unread result and the result hook is never called concurrently.
type Pool struct {
	workers  int
	jobs     chan Job
	results  chan Result
	onResult func(Result)

	mu        sync.Mutex
	collected []Result
	drained   chan struct{}

	wg          sync.WaitGroup
	ctx         context.Context
	cancel      context.CancelFunc
	jobsOnce    sync.Once
	resultsOnce sync.Once
}

// NewPool creates a new worker pool with the specified number of workers
func NewPool(workers int) *Pool {
	return NewPoolWithContext(context.Background(), workers)
}

// NewPoolWithContext creates a pool whose jobs are cancelled with ctx
func NewPoolWithContext(ctx context.Context, workers int) *Pool {
	if workers <= 0 {
		workers = 1
	}
	ctx, cancel := context.WithCancel(ctx)
	return &Pool{
		workers: workers,
		jobs:    make(chan Job, workers*2),
		results: make(chan Result, workers*2),
		drained: make(chan struct{}),
		ctx:     ctx,
		cancel:  cancel,
	}
}

// OnResult registers a hook called once per finished job, in completion order.
// It must be set before Start.
func (p *Pool) OnResult(fn func(Result)) *Pool {
	p.onResult = fn
	return p
}

// Start starts the workers and the result collector
func (p *Pool) Start() {
	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go p.work()
	}
	go p.collect()
}

func (p *Pool) work() {
	defer p.wg.Done()
	for {
		select {
		case <-p.ctx.Done():
			return
		case job, ok := <-p.jobs:
			if !ok {
				return
			}
			p.results <- job.Execute(p.ctx)
		}
	}
}

func (p *Pool) collect() {
	defer close(p.drained)
	for result := range p.results {
		p.mu.Lock()
		p.collected = append(p.collected, result)
		p.mu.Unlock()
		if p.onResult != nil {
			p.onResult(result)
		}
	}
}

// Submit queues a job; it returns without queueing once the pool is shut down
func (p *Pool) Submit(job Job) {
	if p.ctx.Err() != nil {
		return
	}
	select {
	case <-p.ctx.Done():
	case p.jobs <- job:
	}
}

// Wait closes the queue, waits for every queued job and returns results in completion order
func (p *Pool) Wait() []Result {
	p.jobsOnce.Do(func() { close(p.jobs) })
	p.wg.Wait()
	p.closeResults()
	<-p.drained
	p.cancel()
	return p.Results()
}

// Shutdown cancels running jobs and stops the workers
func (p *Pool) Shutdown() {
	p.cancel()
	p.wg.Wait()
	p.closeResults()
}

// Results returns a copy of the results collected so far
func (p *Pool) Results() []Result {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]Result, len(p.collected))
	copy(out, p.collected)
	return out
}

func (p *Pool) closeResults() {
	p.resultsOnce.Do(func() { close(p.results) })
}
