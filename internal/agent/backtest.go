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
	"github.com/shopspring/decimal"
)

// DayResult is the state of the backtest portfolio after one trading day.
// Value is the cash after the previous picks were sold at the open; Plan holds
// the picks bought at the close and is empty on the last day.
type DayResult struct {
	Day   time.Time
	Value decimal.Decimal
	Plan  rating.SharePlan
}

type DayObserver interface {
	ObserveDay(r DayResult) error
}

type benchmarkObserver interface {
	SetBenchmark(symbol string, change float64)
}

type Backtester struct {
	log        *slog.Logger
	cfg        config.Overnight
	platform   backtestPlatform
	engine     *rating.Engine
	commission market.Commission
	symbols    []string
	observers  []DayObserver
}

func NewBacktester(ctx context.Context, log *slog.Logger, r config.Rating, cfg config.Overnight, p backtestPlatform) (*Backtester, error) {
	engine, err := newRatingEngine(log, r, cfg.Window, true, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create rating engine: %w", err)
	}

	symbols, err := universe(ctx, p, false)
	if err != nil {
		return nil, fmt.Errorf("failed to list universe: %w", err)
	}

	log.Info("universe loaded", slog.Int("symbols", len(symbols)))

	return &Backtester{
		log:        log,
		cfg:        cfg,
		platform:   p,
		engine:     engine,
		commission: market.NewCommission(cfg.BuyCommission, cfg.SellCommission),
		symbols:    symbols,
	}, nil
}

// Observe registers o to receive every simulated day.
func (b *Backtester) Observe(o DayObserver) {
	b.observers = append(b.observers, o)
}

// Run simulates the overnight hold strategy over the trading days of the
// configured period ending at end and returns the final cash.
func (b *Backtester) Run(ctx context.Context, end time.Time) (decimal.Decimal, error) {
	cash := decimal.NewFromFloat(b.cfg.Capital)

	days, err := b.platform.GetCalendar(ctx, end.AddDate(0, 0, -b.cfg.Days), end)
	if err != nil {
		return cash, fmt.Errorf("failed to get trading days: %w", err)
	}
	if len(days) == 0 {
		return cash, errors.New("no trading days in backtest period")
	}

	var held rating.SharePlan
	for i, day := range days {
		if err := ctx.Err(); err != nil {
			return cash, err
		}

		cash = cash.Add(b.sell(ctx, day, held))
		held = nil

		res := DayResult{Day: day, Value: cash}
		b.log.Info("portfolio value", slog.Time("day", day), slog.String("value", cash.StringFixed(2)))

		if i < len(days)-1 {
			plan := b.pick(ctx, day, cash)
			for _, a := range plan {
				if a.Shares == 0 {
					continue
				}
				held = append(held, a)
			}

			cash = cash.Sub(held.Cost())
			res.Plan = held
		}

		if err := b.notify(res); err != nil {
			return cash, err
		}
	}

	if b.cfg.Benchmark != "" {
		b.benchmark(ctx, days[0], days[len(days)-1])
	}

	return cash, nil
}

// sell values the held shares at the day's open and returns the proceeds
// after commission. A symbol without a bar that day is valued at its
// purchase price.
func (b *Backtester) sell(ctx context.Context, day time.Time, held rating.SharePlan) decimal.Decimal {
	if len(held) == 0 {
		return decimal.Zero
	}

	symbols := make([]string, len(held))
	for i, a := range held {
		symbols[i] = a.Symbol
	}

	bars := b.platform.GetBars(ctx, symbols, day, endOfDay(day), 1)

	total := decimal.Zero
	for i, a := range held {
		price := a.Price

		bar, err := bars[i].Bars.Last()
		switch {
		case bars[i].Err != nil:
			b.log.Warn("no open price, using purchase price", slog.String("symbol", a.Symbol), slog.Any("error", bars[i].Err))
		case err != nil:
			b.log.Warn("no open price, using purchase price", slog.String("symbol", a.Symbol), slog.Time("day", day))
		default:
			price = bar.Open
		}

		total = total.Add(price.Mul(decimal.NewFromInt(a.Shares)))
	}

	return b.commission.ApplyOnSell(b.commission.ApplyOnBuy(total))
}

func (b *Backtester) pick(ctx context.Context, day time.Time, cash decimal.Decimal) rating.SharePlan {
	bars := b.platform.GetBars(ctx, b.symbols, day.AddDate(0, 0, -b.cfg.LookbackDays), endOfDay(day), b.cfg.Window+1)
	sel, _ := b.engine.Cycle(bars)
	return rating.AllocateBacktest(sel, cash)
}

func (b *Backtester) notify(res DayResult) error {
	var errs []error
	for _, o := range b.observers {
		if err := o.ObserveDay(res); err != nil {
			errs = append(errs, err)
		}
	}

	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("failed to record %s: %w", res.Day.Format(time.DateOnly), err)
	}
	return nil
}

// benchmark logs the change of the benchmark symbol's close over the period.
func (b *Backtester) benchmark(ctx context.Context, first, last time.Time) {
	res := b.platform.GetBars(ctx, []string{b.cfg.Benchmark}, first, endOfDay(last), 0)[0]
	if res.Err != nil || len(res.Bars) == 0 {
		b.log.Warn("benchmark unavailable", slog.String("symbol", b.cfg.Benchmark), slog.Any("error", res.Err))
		return
	}

	from := res.Bars[0].Close
	to := res.Bars[len(res.Bars)-1].Close
	if !from.IsPositive() {
		return
	}

	change := to.Sub(from).Div(from).InexactFloat64()
	b.log.Info("benchmark change", slog.String("symbol", b.cfg.Benchmark), slog.Float64("change_pct", change*100))

	for _, o := range b.observers {
		if bo, ok := o.(benchmarkObserver); ok {
			bo.SetBenchmark(b.cfg.Benchmark, change)
		}
	}
}
