// Command salespulse analyzes retail order exports: it profiles data quality,
// rolls sales up by category and region, segments customers, extracts
// seasonal trends and measures how discounts move profit.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	code := run(ctx, os.Args[1:])
	cancel()
	os.Exit(int(code))
}

func run(ctx context.Context, args []string) ExitCode {
	root := newRootCmd()
	root.SetArgs(args)
	err := root.ExecuteContext(ctx)
	return exitCodeFor(err)
}
