package utils

import (
	"context"
	"fmt"
	"runtime"
	"sync"

	"go.uber.org/multierr"
	"go.viam.com/utils"
)

// ParallelFactor controls the max level of parallelization. This might be useful
// to set in tests where too much parallelism actually slows tests down in
// aggregate.
var ParallelFactor = runtime.GOMAXPROCS(0)

func init() {
	if ParallelFactor <= 0 {
		ParallelFactor = 1
	}
}

// SimpleFunc is for RunInParallel.
type SimpleFunc func(ctx context.Context) error

// RunInParallel runs all functions, at most maxWorkers at a time, and
// returns the combined error. A maxWorkers of zero or less runs the
// functions sequentially in order.
func RunInParallel(ctx context.Context, maxWorkers int, fs []SimpleFunc) error {
	if maxWorkers <= 1 {
		var err error
		for _, f := range fs {
			err = multierr.Combine(err, f(ctx))
		}
		return err
	}
	if maxWorkers > len(fs) {
		maxWorkers = len(fs)
	}

	var wg sync.WaitGroup
	var bigError error
	var bigErrorMutex sync.Mutex
	storeError := func(err error) {
		bigErrorMutex.Lock()
		defer bigErrorMutex.Unlock()
		bigError = multierr.Combine(bigError, err)
	}

	sem := make(chan struct{}, maxWorkers)
	for _, f := range fs {
		fCopy := f
		wg.Add(1)
		sem <- struct{}{}
		utils.PanicCapturingGo(func() {
			defer func() {
				if thePanic := recover(); thePanic != nil {
					storeError(fmt.Errorf("got panic running something in parallel: %v", thePanic))
				}
				<-sem
				wg.Done()
			}()
			if err := fCopy(ctx); err != nil {
				storeError(err)
			}
		})
	}
	wg.Wait()
	return bigError
}
