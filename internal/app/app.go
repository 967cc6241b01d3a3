// Package app wires configuration, storage, transport and the relay
// loop into one runnable unit.
package app

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"relaybot/internal/config"
	"relaybot/internal/feed"
	"relaybot/internal/health"
	"relaybot/internal/relay"
	"relaybot/internal/storage"
	"relaybot/internal/transport"
	"relaybot/internal/transport/telegram"
)

const updateBuffer = 256

type App struct {
	cfg *config.Config
	log zerolog.Logger

	store   storage.Store
	adapter *telegram.Adapter
	loop    *relay.Loop
	health  *health.Server

	updates chan transport.Update
}

func New(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*App, error) {
	store, err := storage.Open(ctx, cfg.Database.URL, log.With().Str("comp", "storage").Logger())
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	adapter, err := telegram.New(telegram.Config{Token: cfg.Telegram.Token}, log.With().Str("comp", "telegram").Logger())
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("create telegram adapter: %w", err)
	}

	feedClient := feed.NewClient(cfg.Feed.URL, cfg.Feed.LinkBase, log.With().Str("comp", "feed").Logger())
	dispatcher := relay.NewDispatcher(store, adapter, feedClient, cfg.Telegram.Admin, log.With().Str("comp", "relay").Logger())

	return &App{
		cfg:     cfg,
		log:     log,
		store:   store,
		adapter: adapter,
		loop:    relay.NewLoop(dispatcher, log.With().Str("comp", "relay").Logger()),
		health:  health.NewServer(cfg.HTTP.Port, log.With().Str("comp", "health").Logger()),
		updates: make(chan transport.Update, updateBuffer),
	}, nil
}

// Run starts the health endpoint and the update stream, then blocks in
// the relay loop until ctx is cancelled or the stream dies. Stream
// death is fatal: the host restarts the process.
func (a *App) Run(ctx context.Context) error {
	go func() {
		if err := a.health.Start(); err != nil {
			a.log.Error().Err(err).Msg("health endpoint failed")
		}
	}()

	if err := a.adapter.Start(ctx, a.updates); err != nil {
		return fmt.Errorf("start telegram polling: %w", err)
	}

	a.log.Info().Str("admin", a.cfg.Telegram.Admin).Msg("relay running")
	return a.loop.Run(ctx, a.updates)
}

func (a *App) Stop(ctx context.Context) {
	if err := a.adapter.Stop(ctx); err != nil {
		a.log.Warn().Err(err).Msg("telegram adapter stop")
	}
	if err := a.health.Shutdown(ctx); err != nil {
		a.log.Warn().Err(err).Msg("health shutdown")
	}
	if err := a.store.Close(); err != nil {
		a.log.Warn().Err(err).Msg("store close")
	}
}
