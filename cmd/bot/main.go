package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"relaybot/internal/app"
	"relaybot/internal/config"
	"relaybot/internal/logging"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "fatal:", err)
		os.Exit(1)
	}

	log := logging.New(os.Stdout, cfg.Logging.Level)

	a, err := app.New(ctx, cfg, log)
	if err != nil {
		log.Error().Err(err).Msg("startup failed")
		os.Exit(1)
	}

	err = a.Run(ctx)

	stopCtx, stopCancel := context.WithTimeout(context.Background(), 5*time.Second)
	a.Stop(stopCtx)
	stopCancel()

	if err != nil && !errors.Is(err, context.Canceled) {
		log.Error().Err(err).Msg("relay terminated")
		os.Exit(1)
	}
}
