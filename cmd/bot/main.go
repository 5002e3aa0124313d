// bot runs one or more automated players against a game server. Useful both
// as opponent supply for thin player pools and as a load generator.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/chainduel/backend/internal/bot"
	"github.com/chainduel/backend/internal/config"
	"github.com/chainduel/backend/pkg/protocol"
)

func main() {
	var (
		strategyName = flag.String("strategy", "greedy", "move strategy: greedy or random")
		gameTypeName = flag.String("game", "realtime", "game type: realtime or pausing")
		count        = flag.Int("count", 1, "number of concurrent bots")
		name         = flag.String("name", "ChainBot", "display name prefix")
	)
	flag.Parse()

	cfg, _ := config.Load()

	log, err := zap.NewDevelopment()
	if err != nil {
		fmt.Fprintln(os.Stderr, "logger:", err)
		os.Exit(1)
	}
	defer log.Sync()

	strategy := bot.Greedy
	if *strategyName == "random" {
		strategy = bot.Random
	}
	gameType := protocol.GameRealtime
	if *gameTypeName == "pausing" {
		gameType = protocol.GamePausing
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	for i := 0; i < *count; i++ {
		botName := *name
		if *count > 1 {
			botName = fmt.Sprintf("%s-%d", *name, i+1)
		}
		client := bot.NewClient(cfg.ServerURL, botName, gameType, strategy, log.Named(botName))
		g.Go(func() error { return client.Run(ctx) })
	}

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		log.Fatal("bot exited", zap.Error(err))
	}
}
