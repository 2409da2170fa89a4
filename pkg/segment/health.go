package segment

import (
	"fmt"
	"os"
	"runtime"

	"github.com/heptiolabs/healthcheck"
)

// HealthHandler returns an HTTP handler with liveness plus readiness checks
// over the context: the shared memory directory must be present and the
// registry partition invariant must hold (no name in both partitions).
func (c *Context) HealthHandler() healthcheck.Handler {
	h := healthcheck.NewHandler()
	h.AddLivenessCheck("goroutine-count", healthcheck.GoroutineCountCheck(10000))
	h.AddReadinessCheck("shm-directory", func() error {
		if runtime.GOOS == "windows" {
			return nil
		}
		st, err := os.Stat(c.dir)
		if err != nil {
			return fmt.Errorf("shm dir %s: %w", c.dir, err)
		}
		if !st.IsDir() {
			return fmt.Errorf("shm dir %s: not a directory", c.dir)
		}
		return nil
	})
	h.AddReadinessCheck("registry-partitions", func() error {
		for item := range c.reg.local.IterBuffered() {
			if c.reg.foreign.Has(item.Key) {
				return fmt.Errorf("segment %s tracked in both partitions", item.Key)
			}
		}
		return nil
	})
	return h
}
