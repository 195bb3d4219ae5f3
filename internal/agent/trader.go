package agent

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/gamma-omg/rating-bot/internal/config"
	"github.com/gamma-omg/rating-bot/internal/market"
	"github.com/gamma-omg/rating-bot/internal/rating"
)

// Trader buys equal dollar amounts of the best rated symbols whose short
// moving average is above the long one.
type Trader struct {
	log      *slog.Logger
	cfg      config.Crossover
	platform tradingPlatform
	engine   *rating.Engine
	symbols  []string
	dump     *CsvRatingsDump
	now      func() time.Time
}

// NewTrader closes every open position and loads the tradable, fractionable
// universe.
func NewTrader(ctx context.Context, log *slog.Logger, r config.Rating, cfg config.Crossover, p tradingPlatform) (*Trader, error) {
	engine, err := newRatingEngine(log, r, cfg.Window, false, &rating.Crossover{Short: cfg.ShortMA, Long: cfg.LongMA})
	if err != nil {
		return nil, fmt.Errorf("failed to create rating engine: %w", err)
	}

	if err := p.CloseAllPositions(ctx); err != nil {
		return nil, err
	}

	symbols, err := universe(ctx, p, true)
	if err != nil {
		return nil, fmt.Errorf("failed to list universe: %w", err)
	}

	log.Info("universe loaded", slog.Int("symbols", len(symbols)))

	return &Trader{
		log:      log,
		cfg:      cfg,
		platform: p,
		engine:   engine,
		symbols:  symbols,
		now:      time.Now,
	}, nil
}

func (t *Trader) SetRatingsDump(d *CsvRatingsDump) {
	t.dump = d
}

// Run rates the universe once and submits a notional market buy for every
// selected symbol. A failed order does not stop the others.
func (t *Trader) Run(ctx context.Context) error {
	end := t.now()
	start := end.AddDate(0, 0, -t.cfg.LookbackDays)
	bars := t.platform.GetBars(ctx, t.symbols, start, end, max(t.cfg.Window+1, t.cfg.LongMA))

	sel, _ := t.engine.Cycle(bars)
	if len(sel) == 0 {
		t.log.Info("nothing to buy")
		return nil
	}

	bp, err := t.platform.GetBuyingPower(ctx)
	if err != nil {
		return fmt.Errorf("failed to get buying power: %w", err)
	}

	plan := rating.AllocateLive(sel, bp)
	t.log.Info("placing orders", slog.Int("orders", len(plan)), slog.String("buying_power", bp.String()))

	if t.dump != nil {
		if err := t.dumpPlan(end, plan); err != nil {
			t.log.Error("failed to dump ratings", slog.Any("error", err))
		}
	}

	var errs []error
	for _, a := range plan {
		if !a.Notional.IsPositive() {
			t.log.Warn("notional too small, skipping", slog.String("symbol", a.Symbol), slog.String("buying_power", bp.String()))
			continue
		}

		res, err := t.platform.SubmitOrder(ctx, market.NotionalBuy(a.Symbol, a.Notional))
		if err != nil {
			t.log.Error("order failed", slog.String("symbol", a.Symbol), slog.Any("error", err))
			errs = append(errs, err)
			continue
		}

		t.log.Info("order submitted",
			slog.String("symbol", a.Symbol),
			slog.String("notional", a.Notional.String()),
			slog.String("id", res.ID),
			slog.String("status", res.Status))
	}

	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("%d of %d orders failed: %w", len(errs), len(plan), err)
	}
	return nil
}

func (t *Trader) dumpPlan(day time.Time, plan rating.NotionalPlan) error {
	rows := make([]dumpRow, len(plan))
	for i, a := range plan {
		rows[i] = dumpRow{symbol: a.Symbol, rating: a.Rating, price: a.Price, size: a.Notional}
	}
	return t.dump.dump(day, rows)
}
