package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/chainduel/backend/internal/config"
	"github.com/chainduel/backend/internal/httpapi"
	"github.com/chainduel/backend/internal/hub"
	"github.com/chainduel/backend/internal/session"
	"github.com/chainduel/backend/internal/sim"
	"github.com/chainduel/backend/internal/ticker"
	"github.com/chainduel/backend/pkg/protocol"
)

const serverVersion = "1.0.0"

func main() {
	cfg, generatedSecret := config.Load()

	log, err := buildLogger(cfg.Verbose)
	if err != nil {
		fmt.Fprintln(os.Stderr, "logger:", err)
		os.Exit(1)
	}
	defer log.Sync()

	if generatedSecret {
		// Operators running a relay must configure DB_AUTHORIZATION; the
		// generated value only survives this process.
		log.Info("generated database authorization", zap.String("secret", cfg.DBAuthorization))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	tick := ticker.New(ctx, cfg.FrameRate, log)

	sessionCfg := session.DefaultConfig()
	sessionCfg.Verbose = cfg.Verbose

	h := hub.NewHub(ctx, hub.Config{
		Secret:    cfg.DBAuthorization,
		EventName: "Chain Duel Online",
		SiteURL:   cfg.ServerURL,
		Server:    &protocol.ClientInfo{Name: "chainduel-backend", Version: serverVersion},
		Session:   sessionCfg,
	}, tick, func(p sim.Params) sim.Game { return sim.NewDuel(p) }, log)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Handler: httpapi.SetupRoutes(h, log),
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("listening", zap.Int("port", cfg.Port))
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		h.Inbox() <- hub.ShutdownHub{}
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		log.Fatal("server exited", zap.Error(err))
	}
}

func buildLogger(verbose bool) (*zap.Logger, error) {
	if verbose {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}
