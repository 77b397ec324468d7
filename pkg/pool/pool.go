package pool

import (
	"context"
	"sync"
)

// WorkerFunc processes one item and may return an error.
type WorkerFunc[T any] func(ctx context.Context, item T) error

// Run processes items with numWorkers goroutines and returns the errors the workers reported.
// Fewer than one worker is treated as one. Once ctx is cancelled no new items are started.
func Run[T any](ctx context.Context, items []T, numWorkers int, workerFunc WorkerFunc[T]) []error {
	if numWorkers < 1 {
		numWorkers = 1
	}
	if numWorkers > len(items) && len(items) > 0 {
		numWorkers = len(items)
	}

	var wg sync.WaitGroup
	taskChan := make(chan T, numWorkers)
	errChan := make(chan error, len(items))

	for i := 0; i < numWorkers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for item := range taskChan {
				if ctx.Err() != nil {
					return
				}
				if err := workerFunc(ctx, item); err != nil {
					errChan <- err
				}
			}
		}()
	}

OUT:
	for _, item := range items {
		select {
		case taskChan <- item:
		case <-ctx.Done():
			break OUT
		}
	}
	close(taskChan)

	wg.Wait()
	close(errChan)

	var allErrors []error
	for err := range errChan {
		allErrors = append(allErrors, err)
	}
	return allErrors
}

// Result pairs the output of Map for one item with its error.
type Result[R any] struct {
	Value R
	Err   error
}

// Map applies fn to every item with numWorkers goroutines and returns the results in input order.
// Items never started because ctx was cancelled carry ctx.Err().
func Map[T, R any](ctx context.Context, items []T, numWorkers int, fn func(ctx context.Context, item T) (R, error)) []Result[R] {
	results := make([]Result[R], len(items))
	started := make([]bool, len(items))
	indexes := make([]int, len(items))
	for i := range indexes {
		indexes[i] = i
	}

	Run(ctx, indexes, numWorkers, func(ctx context.Context, i int) error {
		started[i] = true
		results[i].Value, results[i].Err = fn(ctx, items[i])
		return results[i].Err
	})

	for i := range results {
		if !started[i] {
			results[i].Err = ctx.Err()
		}
	}
	return results
}
