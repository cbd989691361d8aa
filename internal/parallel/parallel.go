// Package parallel splits element loops of the tensor kernels across goroutines.
package parallel

import (
	"runtime"
	"sync"
)

// Config controls how element loops are split.
type Config struct {
	Enabled    bool // Whether loops may run on more than one goroutine.
	NumWorkers int  // Upper bound on goroutines per loop.
	MinChunk   int  // Smallest range handed to a single goroutine.
}

// DefaultConfig returns a configuration sized to the machine.
// Gradient tensors in this module are usually small, so the minimum chunk is
// large enough that most kernels stay sequential.
func DefaultConfig() Config {
	n := runtime.NumCPU()
	return Config{
		Enabled:    n > 1,
		NumWorkers: n,
		MinChunk:   4096,
	}
}

// Chunks calls fn(lo, hi) for consecutive half-open ranges covering [0, n).
// Ranges run concurrently when cfg allows it; Chunks returns once all are done.
func Chunks(n int, cfg Config, fn func(lo, hi int)) {
	if n <= 0 {
		return
	}
	if !cfg.Enabled || cfg.NumWorkers < 2 || n < 2*cfg.MinChunk {
		fn(0, n)
		return
	}

	size := max((n+cfg.NumWorkers-1)/cfg.NumWorkers, cfg.MinChunk)
	var wg sync.WaitGroup
	for lo := 0; lo < n; lo += size {
		hi := min(lo+size, n)
		wg.Add(1)
		go func() {
			defer wg.Done()
			fn(lo, hi)
		}()
	}
	wg.Wait()
}

// For executes f(i) for every i in [0, n).
func For(n int, cfg Config, f func(i int)) {
	Chunks(n, cfg, func(lo, hi int) {
		for i := lo; i < hi; i++ {
			f(i)
		}
	})
}
