package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/danmuck/sdkctl/internal/logging"
)

func main() {
	logging.Init("sdkctl")
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := execute(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}
