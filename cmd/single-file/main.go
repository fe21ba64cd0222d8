// Command single-file saves web pages as self-contained HTML documents.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	gs := newGlobalState()
	err := newRootCommand(gs).cmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		gs.logger.Error(err)
		os.Exit(1)
	}
}
