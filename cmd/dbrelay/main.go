// dbrelay is the persistence side-channel process. It holds the only database
// connection in the system; the game server stays database-free and talks to
// this process over its ordinary websocket endpoint.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/chainduel/backend/internal/config"
	"github.com/chainduel/backend/internal/relay"
)

func main() {
	cfg, generated := config.Load()

	log, err := zap.NewProduction()
	if err != nil {
		fmt.Fprintln(os.Stderr, "logger:", err)
		os.Exit(1)
	}
	defer log.Sync()

	if generated {
		log.Fatal("DB_AUTHORIZATION must be set to the game server's secret")
	}
	if cfg.DatabaseURL == "" {
		log.Fatal("DATABASE_URL must be set")
	}

	store, err := relay.OpenStore(cfg.DatabaseURL)
	if err != nil {
		log.Fatal("store", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	r := relay.New(cfg.ServerURL, cfg.DBAuthorization, store, log)
	if err := r.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.Fatal("relay exited", zap.Error(err))
	}
}
