package agent

import (
	"context"
	"log/slog"
	"time"

	"github.com/gamma-omg/rating-bot/internal/config"
	"github.com/gamma-omg/rating-bot/internal/market"
	"github.com/gamma-omg/rating-bot/internal/rating"
	"github.com/shopspring/decimal"
)

type barsSource interface {
	ListUniverse(ctx context.Context) ([]market.Asset, error)
	GetBars(ctx context.Context, symbols []string, start, end time.Time, limit int) []market.SymbolBars
}

type backtestPlatform interface {
	barsSource
	GetCalendar(ctx context.Context, start, end time.Time) ([]time.Time, error)
}

type tradingPlatform interface {
	barsSource
	GetBuyingPower(ctx context.Context) (decimal.Decimal, error)
	SubmitOrder(ctx context.Context, o market.Order) (market.OrderResult, error)
	CloseAllPositions(ctx context.Context) error
}

func newRatingEngine(log *slog.Logger, r config.Rating, window int, positiveOnly bool, crossover *rating.Crossover) (*rating.Engine, error) {
	return rating.NewEngine(log, rating.Config{
		MinPrice:     decimal.NewFromFloat(r.MinPrice),
		MaxPrice:     decimal.NewFromFloat(r.MaxPrice),
		Window:       window,
		K:            r.StocksToHold,
		PositiveOnly: positiveOnly,
		Crossover:    crossover,
	})
}

func universe(ctx context.Context, src barsSource, fractionable bool) ([]string, error) {
	assets, err := src.ListUniverse(ctx)
	if err != nil {
		return nil, err
	}

	return market.Symbols(market.FilterUniverse(assets, fractionable)), nil
}

func endOfDay(day time.Time) time.Time {
	return day.AddDate(0, 0, 1).Add(-time.Nanosecond)
}
