package bitmap

import (
	"runtime"
	"sync"
)

// Workers normalizes a requested worker count: zero or negative means
// one worker per logical CPU.
func Workers(n int) int {
	if n <= 0 {
		return runtime.GOMAXPROCS(0)
	}
	return n
}

// ParallelRows splits [0, height) into contiguous row bands and calls fn for
// each band on its own goroutine. Bands never overlap, so fn may write the
// rows it is given without locking. It returns once every band is done.
func ParallelRows(height, workers int, fn func(y0, y1 int)) {
	if height <= 0 {
		return
	}
	workers = Workers(workers)
	if workers > height {
		workers = height
	}
	if workers == 1 {
		fn(0, height)
		return
	}

	// Round up so the last band picks up the remainder
	band := (height + workers - 1) / workers

	var wg sync.WaitGroup
	for y0 := 0; y0 < height; y0 += band {
		y1 := y0 + band
		if y1 > height {
			y1 = height
		}
		wg.Add(1)
		go func(y0, y1 int) {
			defer wg.Done()
			fn(y0, y1)
		}(y0, y1)
	}
	wg.Wait()
}
