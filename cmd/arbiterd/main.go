// Command arbiterd runs the arbiter daemon with the default configuration
// path. It is the entry point service managers start; `arbiter daemon` does
// the same with CLI flags.
package main

import (
	"context"
	"errors"
	"log"
	"os/signal"
	"syscall"

	"gamearbiter/internal/config"
	"gamearbiter/internal/daemon"
	"gamearbiter/internal/logging"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, _, _, err := config.Load("")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logger, err := logging.NewFromConfig(cfg)
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}

	d, err := daemon.New(cfg, logger)
	if err != nil {
		log.Fatalf("create daemon: %v", err)
	}

	runErr := d.Run(ctx)
	_ = d.Close()
	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		log.Fatalf("daemon: %v", runErr)
	}
	logger.Info("arbiterd shutting down")
}
