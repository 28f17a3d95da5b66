package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"discord-archive/command"
)

func main() {
	// An interrupt cancels the crawl; the writer flushes any buffered
	// records before the process exits, so the log ends on a whole line.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	os.Exit(command.ExecuteContext(ctx))
}
