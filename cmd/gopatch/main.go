package main

import (
	"context"
	"os"
	"os/signal"

	"github.com/asynkron/gopatch/internal/cli"
)

// main applies, reverts or inspects the patch named on the command line.
func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	code := cli.Run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}
