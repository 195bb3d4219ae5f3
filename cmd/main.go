package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/gamma-omg/rating-bot/internal/agent"
	"github.com/gamma-omg/rating-bot/internal/config"
	"github.com/gamma-omg/rating-bot/internal/platform"
	"github.com/robfig/cron/v3"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	cfg, err := config.ReadFromFile(os.Getenv("CONFIG"))
	if err != nil {
		log.Fatal(err)
	}

	strategy, ok := cfg.StrategyRef.Strategy.(config.Crossover)
	if !ok {
		log.Fatal("live trading needs a crossover strategy")
	}

	logger := slog.Default()

	p, err := platform.Create(logger, cfg)
	if err != nil {
		log.Fatal(err)
	}

	t, err := agent.NewTrader(ctx, logger, cfg.Rating, strategy, p)
	if err != nil {
		log.Fatal(err)
	}

	if cfg.RatingsDump != "" {
		f, err := os.OpenFile(cfg.RatingsDump, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			log.Fatal(err)
		}
		defer f.Close()

		t.SetRatingsDump(agent.NewCsvRatingsDump(f))
	}

	if strategy.Schedule == "" {
		if err := t.Run(ctx); err != nil {
			logger.Error("trading run failed", slog.Any("error", err))
			os.Exit(1)
		}
		return
	}

	c := cron.New(cron.WithSeconds(), cron.WithLocation(cfg.Location()), cron.WithChain(cron.SkipIfStillRunning(cron.DefaultLogger)))
	if _, err := c.AddFunc(strategy.Schedule, func() {
		if err := t.Run(ctx); err != nil {
			logger.Error("trading run failed", slog.Any("error", err))
		}
	}); err != nil {
		log.Fatal(err)
	}

	c.Start()
	logger.Info("scheduler started", slog.String("schedule", strategy.Schedule), slog.String("timezone", cfg.Timezone))

	<-ctx.Done()
	<-c.Stop().Done()
	logger.Info("scheduler stopped")
}
