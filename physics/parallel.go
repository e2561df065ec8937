package physics

import (
	"runtime"

	"golang.org/x/sync/errgroup"
)

// minChunk keeps tiny meshes on a single goroutine
const minChunk = 256

// Workers resolves a worker count; zero or negative means one per CPU
func Workers(n int) int {
	if n <= 0 {
		return runtime.GOMAXPROCS(0)
	}
	return n
}

// ParallelFor splits [0, n) into contiguous chunks and runs body on each
// chunk concurrently. It returns once every chunk is done. Bodies must only
// write to indices inside their own chunk.
func ParallelFor(n, workers int, body func(lo, hi int)) {
	if n <= 0 {
		return
	}
	workers = Workers(workers)
	chunks := (n + minChunk - 1) / minChunk
	if chunks > workers {
		chunks = workers
	}
	if chunks <= 1 {
		body(0, n)
		return
	}

	size := (n + chunks - 1) / chunks
	var g errgroup.Group
	for lo := 0; lo < n; lo += size {
		lo, hi := lo, min(lo+size, n)
		g.Go(func() error {
			body(lo, hi)
			return nil
		})
	}
	_ = g.Wait()
}
