// Package worker runs source loads in parallel with a bounded number of
// workers and reports progress as they complete.
package worker

import (
	"context"
	"sync"
	"time"

	"github.com/santinoo1919/medtrixmap/internal/datasource"
)

// Loader loads one source. *datasource.Loader satisfies it.
type Loader interface {
	Load(ctx context.Context, src datasource.Source) datasource.LoadResult
}

// Task is a single source load.
type Task struct {
	Source datasource.Source
}

// Result is the outcome of one task.
type Result struct {
	Task     Task
	Features int
	Skipped  int
	Err      error
	Elapsed  time.Duration
}

// ProgressFunc is called after each task completes.
type ProgressFunc func(completed, total, failed int)

// Config configures the worker pool.
type Config struct {
	Workers    int
	Loader     Loader
	OnProgress ProgressFunc
}

// Pool runs loads in parallel.
type Pool struct {
	workers    int
	loader     Loader
	onProgress ProgressFunc
}

// New creates a new worker pool.
func New(cfg Config) *Pool {
	workers := cfg.Workers
	if workers <= 0 {
		workers = 1
	}

	return &Pool{
		workers:    workers,
		loader:     cfg.Loader,
		onProgress: cfg.OnProgress,
	}
}

// Run executes all tasks and returns their results in completion order.
// It blocks until every task has finished or been cancelled; tasks not yet
// started when ctx is done are reported with ctx.Err().
func (p *Pool) Run(ctx context.Context, tasks []Task) []Result {
	if len(tasks) == 0 {
		return nil
	}

	taskCh := make(chan Task, len(tasks))
	resultCh := make(chan Result, len(tasks))

	var wg sync.WaitGroup
	for i := 0; i < p.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			p.worker(ctx, taskCh, resultCh)
		}()
	}

	for _, task := range tasks {
		taskCh <- task
	}
	close(taskCh)

	results := make([]Result, 0, len(tasks))
	done := make(chan struct{})

	go func() {
		failed := 0
		for result := range resultCh {
			results = append(results, result)
			if result.Err != nil {
				failed++
			}
			if p.onProgress != nil {
				p.onProgress(len(results), len(tasks), failed)
			}
		}
		close(done)
	}()

	wg.Wait()
	close(resultCh)
	<-done

	return results
}

func (p *Pool) worker(ctx context.Context, tasks <-chan Task, results chan<- Result) {
	for task := range tasks {
		if err := ctx.Err(); err != nil {
			results <- Result{Task: task, Err: err}
			continue
		}

		start := time.Now()
		res := p.loader.Load(ctx, task.Source)
		r := Result{Task: task, Err: res.Err, Elapsed: time.Since(start)}
		if res.Collection != nil {
			r.Features = len(res.Collection.Features)
			r.Skipped = res.Collection.Skipped
		}
		results <- r
	}
}
