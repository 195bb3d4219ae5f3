package main

import (
	"context"
	"flag"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gamma-omg/rating-bot/internal/agent"
	"github.com/gamma-omg/rating-bot/internal/config"
	"github.com/gamma-omg/rating-bot/internal/platform"
	"github.com/shopspring/decimal"
)

func main() {
	endFlag := flag.String("end", "", "last day of the backtest, YYYY-MM-DD (default today)")
	flag.Parse()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	cfg, err := config.ReadFromFile(os.Getenv("CONFIG"))
	if err != nil {
		log.Fatal(err)
	}

	strategy, ok := cfg.StrategyRef.Strategy.(config.Overnight)
	if !ok {
		log.Fatal("backtesting needs an overnight strategy")
	}

	end := time.Now().In(cfg.Location())
	if *endFlag != "" {
		end, err = time.ParseInLocation(time.DateOnly, *endFlag, cfg.Location())
		if err != nil {
			log.Fatal(err)
		}
	}

	logger := slog.Default()

	p, err := platform.Create(logger, cfg)
	if err != nil {
		log.Fatal(err)
	}

	b, err := agent.NewBacktester(ctx, logger, cfg.Rating, strategy, p)
	if err != nil {
		log.Fatal(err)
	}

	report := agent.NewJsonReportBuilder(logger, decimal.NewFromFloat(strategy.Capital))
	b.Observe(report)

	chart := agent.NewEquityChart(1200, 800)
	if cfg.Chart != "" {
		b.Observe(chart)
	}

	if cfg.RatingsDump != "" {
		f, err := os.Create(cfg.RatingsDump)
		if err != nil {
			log.Fatal(err)
		}
		defer f.Close()

		b.Observe(agent.NewCsvRatingsDump(f))
	}

	final, err := b.Run(ctx, end)
	if err != nil {
		log.Fatal(err)
	}

	logger.Info("final portfolio value", slog.String("value", final.StringFixed(2)))

	if cfg.Report != "" {
		if err := report.WriteToFile(cfg.Report); err != nil {
			log.Fatal(err)
		}
	} else if err := report.Write(os.Stdout); err != nil {
		log.Fatal(err)
	}

	if cfg.Chart != "" {
		if err := chart.Save(cfg.Chart); err != nil {
			log.Fatal(err)
		}
	}
}
