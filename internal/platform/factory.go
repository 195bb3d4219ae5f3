package platform

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/gamma-omg/rating-bot/internal/config"
	"github.com/gamma-omg/rating-bot/internal/market"
	"github.com/gamma-omg/rating-bot/internal/platform/alpaca"
	"github.com/gamma-omg/rating-bot/internal/platform/emulator"
	"github.com/shopspring/decimal"
)

type Platform interface {
	ListUniverse(ctx context.Context) ([]market.Asset, error)
	GetBars(ctx context.Context, symbols []string, start, end time.Time, limit int) []market.SymbolBars
	GetBuyingPower(ctx context.Context) (decimal.Decimal, error)
	GetCalendar(ctx context.Context, start, end time.Time) ([]time.Time, error)
	SubmitOrder(ctx context.Context, o market.Order) (market.OrderResult, error)
	CloseAllPositions(ctx context.Context) error
}

func Create(log *slog.Logger, cfg *config.Config) (Platform, error) {
	alpacaCfg, ok := cfg.PlatformRef.Platform.(config.Alpaca)
	if ok {
		return alpaca.NewAlpacaPlatform(log, alpacaCfg, cfg.Location()), nil
	}

	emulatorCfg, ok := cfg.PlatformRef.Platform.(config.Emulator)
	if ok {
		return emulator.NewPlatform(log, emulatorCfg, cfg.Location())
	}

	return nil, errors.New("unknown trading platform")
}
