package render

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/Workiva/go-datastructures/queue"
	"github.com/panjf2000/ants/v2"
)

// rowSpan is one unit of shading work: the framebuffer rows [y0, y1).
type rowSpan struct {
	y0, y1 int
}

// SplitRows cuts height rows into n contiguous, disjoint spans, the same
// partitioning the multi-process demo hands to its workers.
func SplitRows(height, n int) []rowSpan {
	if n < 1 {
		n = 1
	}
	spans := make([]rowSpan, 0, n)
	for i := 0; i < n; i++ {
		s := rowSpan{y0: height * i / n, y1: height * (i + 1) / n}
		if s.y0 < s.y1 {
			spans = append(spans, s)
		}
	}
	return spans
}

// ShadeParallel shades the whole framebuffer with a worker pool inside this
// process. Row spans flow through a queue drained by the pool, so a slow
// span does not idle the other workers. The disjoint-rows partitioning is
// what makes the unsynchronized shared writes safe.
func ShadeParallel(fb *FrameBuffer, nb *NormalBuffer, lights []Light, cam Camera, workers int) error {
	spans := SplitRows(nb.Height, workers*4)
	jobs := queue.New(int64(len(spans)))
	for _, s := range spans {
		if err := jobs.Put(s); err != nil {
			return fmt.Errorf("render: enqueue span: %w", err)
		}
	}
	defer jobs.Dispose()

	pool, err := ants.NewPool(workers)
	if err != nil {
		return fmt.Errorf("render: worker pool: %w", err)
	}
	defer pool.Release()

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		firstErr error
	)
	worker := func() {
		defer wg.Done()
		for {
			items, err := jobs.Poll(1, time.Millisecond)
			if err != nil {
				// Timeout or disposed both mean no work is left for us.
				return
			}
			s := items[0].(rowSpan)
			if err := ShadeRows(fb, nb, lights, cam, s.y0, s.y1); err != nil {
				mu.Lock()
				if firstErr == nil {
					firstErr = err
				}
				mu.Unlock()
				return
			}
		}
	}
	for i := 0; i < workers; i++ {
		wg.Add(1)
		if err := pool.Submit(worker); err != nil {
			wg.Done()
			if errors.Is(err, ants.ErrPoolClosed) {
				break
			}
			return fmt.Errorf("render: submit worker: %w", err)
		}
	}
	wg.Wait()
	return firstErr
}
