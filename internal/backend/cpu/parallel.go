package cpu

import "sync"

// parallelFor executes f(i) for i in [0, n), chunked across the backend's
// workers. Falls back to a plain loop when parallelism is off or n is too
// small to pay for the goroutine overhead.
func (be *Backend) parallelFor(n int, f func(i int)) {
	if be.workers <= 1 || n < be.minChunk {
		for i := 0; i < n; i++ {
			f(i)
		}
		return
	}

	var wg sync.WaitGroup
	chunk := max((n+be.workers-1)/be.workers, be.minChunk)

	for start := 0; start < n; start += chunk {
		end := min(start+chunk, n)
		wg.Add(1)
		go func(s, e int) {
			defer wg.Done()
			for i := s; i < e; i++ {
				f(i)
			}
		}(start, end)
	}
	wg.Wait()
}
