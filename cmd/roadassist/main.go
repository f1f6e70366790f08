package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/iliyamo/roadassist-console/internal/cli"
	"github.com/iliyamo/roadassist-console/internal/logger"
)

func main() {
	logger.Init(os.Stderr)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := cli.NewRootCmd(cli.DefaultEnv()).ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}
