package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
)

// exitInterrupted is the conventional exit status after SIGINT.
const exitInterrupted = 130

var interruptSignals = []os.Signal{syscall.SIGINT, syscall.SIGTERM}

// cancelOnInterrupt returns a context canceled by the first SIGINT or
// SIGTERM so in-flight requests and backoff waits unwind. A second signal
// calls exit. The returned stop func releases the handlers and is safe to
// call more than once.
func cancelOnInterrupt(parent context.Context, logger *slog.Logger, exit func(int)) (context.Context, func()) {
	ctx, cancel := context.WithCancel(parent)

	sigCh := make(chan os.Signal, 2)
	signal.Notify(sigCh, interruptSignals...)

	done := make(chan struct{})

	go func() {
		defer signal.Stop(sigCh)

		select {
		case sig := <-sigCh:
			logger.Warn("interrupted, canceling command", slog.String("signal", sig.String()))
			cancel()
		case <-done:
			return
		}

		select {
		case sig := <-sigCh:
			logger.Error("interrupted again, exiting", slog.String("signal", sig.String()))
			exit(exitInterrupted)
		case <-done:
		}
	}()

	var once sync.Once

	stop := func() {
		once.Do(func() {
			close(done)
			cancel()
		})
	}

	return ctx, stop
}
