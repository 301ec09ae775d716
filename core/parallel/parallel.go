// Package parallel provides the goroutine helpers used to fit and query
// ensemble members concurrently.
package parallel

import (
	"fmt"
	"runtime"
	"sync"

	scierrors "github.com/YuminosukeSato/scitree/pkg/errors"
)

// Parallelize splits [0, items) into one contiguous chunk per CPU core and
// calls fn(start, end) for each chunk concurrently. fn must only write to
// state owned by its own range.
func Parallelize(items int, fn func(start, end int)) {
	if items <= 0 {
		return
	}
	workers := runtime.NumCPU()
	if workers > items {
		workers = items
	}
	chunk := (items + workers - 1) / workers

	var wg sync.WaitGroup
	for start := 0; start < items; start += chunk {
		end := start + chunk
		if end > items {
			end = items
		}
		wg.Add(1)
		go func(s, e int) {
			defer wg.Done()
			fn(s, e)
		}(start, end)
	}
	wg.Wait()
}

// ParallelizeWithThreshold runs fn(0, items) on the calling goroutine when
// items <= threshold and falls back to Parallelize otherwise.
func ParallelizeWithThreshold(items, threshold int, fn func(start, end int)) {
	if items <= threshold {
		fn(0, items)
		return
	}
	Parallelize(items, fn)
}

// Workers resolves an sklearn-style n_jobs value into a goroutine count.
// -1 (or any negative value) means one worker per CPU core; 0 is treated as 1.
func Workers(nJobs int) int {
	if nJobs < 0 {
		return runtime.NumCPU()
	}
	if nJobs == 0 {
		return 1
	}
	return nJobs
}

// ForEach calls fn(i) for every i in [0, n) using at most workers goroutines.
// A panic inside fn is converted into an error. When several calls fail, the
// error for the lowest index is returned, so the result does not depend on
// scheduling.
func ForEach(n, workers int, fn func(i int) error) error {
	if n <= 0 {
		return nil
	}
	if workers < 1 {
		workers = 1
	}
	if workers > n {
		workers = n
	}

	errs := make([]error, n)
	if workers == 1 {
		for i := 0; i < n; i++ {
			errs[i] = runSafe(i, fn)
		}
		return firstError(errs)
	}

	jobs := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				errs[i] = runSafe(i, fn)
			}
		}()
	}
	for i := 0; i < n; i++ {
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	return firstError(errs)
}

func runSafe(i int, fn func(i int) error) error {
	return scierrors.SafeExecute(fmt.Sprintf("parallel.ForEach[%d]", i), func() error {
		return fn(i)
	})
}

func firstError(errs []error) error {
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}
