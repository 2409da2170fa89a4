package segment

import (
	"os"
	"os/signal"
	"sync"
	"syscall"
)

// shutdownSignals are the termination signals that trigger cleanup before
// the process exits.
var shutdownSignals = []os.Signal{
	os.Interrupt,
	syscall.SIGTERM,
	syscall.SIGHUP,
	syscall.SIGQUIT,
	syscall.SIGABRT,
}

var exit = os.Exit

// InstallShutdownHook arranges for CleanupAll to run when the process
// receives INT, TERM, HUP, QUIT or ABRT, after which the process exits.
// Go has no atexit, so the normal-exit half of the contract is the returned
// stop function: call it (typically via defer in main) to run cleanup once
// and disarm the signal watcher.
func (c *Context) InstallShutdownHook() (stop func()) {
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, shutdownSignals...)

	var once sync.Once
	cleanup := func() { once.Do(c.CleanupAll) }

	done := make(chan struct{})
	go func() {
		select {
		case sig := <-ch:
			c.log.Infof("received %v, cleaning up segments", sig)
			cleanup()
			exit(1)
		case <-done:
		}
	}()
	return func() {
		signal.Stop(ch)
		close(done)
		cleanup()
	}
}
