package main

import (
	"os"
	"os/signal"
	"syscall"
)

// awaitInterrupt returns a channel that receives once on SIGINT or SIGTERM.
// Implemented directly against os/signal rather than a dedicated signal
// package, since none of the available ones carry their own go.mod.
func awaitInterrupt() <-chan struct{} {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	done := make(chan struct{})
	go func() {
		<-sigCh
		close(done)
	}()
	return done
}
