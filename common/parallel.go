package common

import (
	"runtime"
	"sync"
)

// Parallel executes fn across multiple goroutines, one contiguous partition
// of [0, dataSize) per goroutine.
//
// Arguments:
// - dataSize: The size of the data to process.
// - workers: The number of goroutines. Values below 1 use runtime.NumCPU().
// - fn: Function to execute for each partition (receives start and end indices).
//
// @example
//
//	Parallel(len(trees), 0, func(start, end int) {
//	    for i := start; i < end; i++ {
//	        trees[i] = fit(i)
//	    }
//	})
func Parallel(dataSize, workers int, fn func(partStart, partEnd int)) {
	if workers < 1 {
		workers = runtime.NumCPU()
	}
	if workers > dataSize {
		workers = dataSize
	}

	// Small inputs are not worth the goroutine overhead.
	if workers <= 1 {
		fn(0, dataSize)
		return
	}

	partSize := dataSize / workers
	extra := dataSize % workers

	var wg sync.WaitGroup
	wg.Add(workers)

	start := 0
	for i := 0; i < workers; i++ {
		end := start + partSize
		if i < extra {
			end++
		}
		go func(start, end int) {
			defer wg.Done()
			fn(start, end)
		}(start, end)
		start = end
	}

	wg.Wait()
}
