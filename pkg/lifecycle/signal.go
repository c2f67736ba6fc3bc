package lifecycle

import (
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/marmos91/botkit/internal/logger"
)

// TerminationSignals are the signals mapped to the termination event.
var TerminationSignals = []os.Signal{syscall.SIGINT, syscall.SIGTERM}

// NotifySignals sets ev when one of sigs arrives (TerminationSignals when
// none are given). Signals received after the first are logged and
// otherwise ignored. The returned function restores default signal handling.
func NotifySignals(ev *Event, sigs ...os.Signal) (stop func()) {
	if len(sigs) == 0 {
		sigs = TerminationSignals
	}

	ch := make(chan os.Signal, 1)
	signal.Notify(ch, sigs...)
	quit := make(chan struct{})
	finished := make(chan struct{})

	go func() {
		defer close(finished)
		for {
			select {
			case sig := <-ch:
				if ev.Set("signal "+sig.String(), nil) {
					logger.Info("Termination signal received", "signal", sig.String())
				} else {
					logger.Warn("Termination already in progress", "signal", sig.String())
				}
			case <-quit:
				return
			}
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			signal.Stop(ch)
			close(quit)
			<-finished
		})
	}
}
