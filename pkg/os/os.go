package os

import (
	"context"
	"os"
	"os/signal"
	"syscall"
)

// ExpectTermination returns a channel which is closed on SIGINT or SIGTERM.
func ExpectTermination() <-chan struct{} {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	go func() {
		<-ctx.Done()
		stop()
	}()
	return ctx.Done()
}
