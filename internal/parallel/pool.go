// Package parallel provides a small bounded worker pool. With one worker the
// pool runs submitted work inline, so callers never need a separate
// sequential code path.
package parallel

import (
	"runtime"
	"sync"
)

type (
	WorkerFunc func(func())
	WaitFunc   func(done bool)
	CancelFunc func()
)

type Pool struct {
	wg     sync.WaitGroup
	Do     WorkerFunc
	Wait   WaitFunc
	Cancel CancelFunc
}

// Start launches numWorkers goroutines. numWorkers < 1 means GOMAXPROCS.
// Wait(true) closes the queue and blocks until every submitted func returned.
func Start(numWorkers int) *Pool {
	if numWorkers < 1 {
		numWorkers = runtime.GOMAXPROCS(0)
	}

	pool := &Pool{
		Do: func(f func()) {
			f()
		},
		Wait:   func(bool) {},
		Cancel: func() {},
	}

	if numWorkers > 1 {
		workChan := make(chan func(), numWorkers)

		for range numWorkers {
			pool.wg.Add(1)
			go func() {
				defer pool.wg.Done()
				for f := range workChan {
					f()
				}
			}()
		}

		pool.Do = func(f func()) {
			workChan <- f
		}

		pool.Wait = func(done bool) {
			if done {
				pool.Cancel()
			}
			pool.wg.Wait()
		}
		pool.Cancel = sync.OnceFunc(func() { close(workChan) })
	}

	return pool
}

// Rows splits [0, n) into contiguous chunks and runs fn on each chunk using
// up to workers goroutines. It returns once every chunk is done.
func Rows(n, workers int, fn func(lo, hi int)) {
	if workers < 1 {
		workers = runtime.GOMAXPROCS(0)
	}
	if workers == 1 || n < 2*workers {
		fn(0, n)
		return
	}
	pool := Start(workers)
	chunk := (n + workers - 1) / workers
	for lo := 0; lo < n; lo += chunk {
		hi := min(lo+chunk, n)
		pool.Do(func() { fn(lo, hi) })
	}
	pool.Wait(true)
}
