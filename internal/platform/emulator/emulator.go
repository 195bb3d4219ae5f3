package emulator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"sync/atomic"
	"time"

	"github.com/gamma-omg/rating-bot/internal/config"
	"github.com/gamma-omg/rating-bot/internal/market"
	"github.com/shopspring/decimal"
)

// Platform replays daily bars from csv files. Orders fill immediately at the
// last close of the symbol's data.
type Platform struct {
	log        *slog.Logger
	loc        *time.Location
	series     map[string]market.Series
	symbols    []string
	acc        *cashAccount
	commission market.Commission
	positions  *positionBook
	orderSeq   atomic.Int64
}

func NewPlatform(log *slog.Logger, cfg config.Emulator, loc *time.Location) (*Platform, error) {
	series := make(map[string]market.Series, len(cfg.Data))
	for symbol, path := range cfg.Data {
		s, err := readSeriesFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to load bars of %s: %w", symbol, err)
		}
		series[symbol] = s
	}

	return newPlatform(log, series, decimal.NewFromFloat(cfg.Balance), market.NewCommission(cfg.BuyCommission, cfg.SellCommission), loc), nil
}

func newPlatform(log *slog.Logger, series map[string]market.Series, balance decimal.Decimal, commission market.Commission, loc *time.Location) *Platform {
	if loc == nil {
		loc = time.UTC
	}

	return &Platform{
		log:        log,
		loc:        loc,
		series:     series,
		symbols:    slices.Sorted(maps.Keys(series)),
		acc:        &cashAccount{balance: balance},
		commission: commission,
		positions:  newPositionBook(),
	}
}

// ListUniverse reports every loaded symbol as tradable and fractionable.
func (p *Platform) ListUniverse(_ context.Context) ([]market.Asset, error) {
	res := make([]market.Asset, len(p.symbols))
	for i, s := range p.symbols {
		res[i] = market.Asset{Symbol: s, Tradable: true, Fractionable: true}
	}
	return res, nil
}

func (p *Platform) GetBars(ctx context.Context, symbols []string, start, end time.Time, limit int) []market.SymbolBars {
	res := make([]market.SymbolBars, len(symbols))
	for i, symbol := range symbols {
		res[i].Symbol = symbol
		if err := ctx.Err(); err != nil {
			res[i].Err = err
			continue
		}

		s, ok := p.series[symbol]
		if !ok {
			res[i].Err = fmt.Errorf("unknown symbol: %s", symbol)
			continue
		}

		bars := between(s, start, end)
		if limit > 0 && len(bars) > limit {
			bars = bars[len(bars)-limit:]
		}
		res[i].Bars = bars
	}

	return res
}

// between returns the bars with start <= time <= end.
func between(s market.Series, start, end time.Time) market.Series {
	lo, _ := slices.BinarySearchFunc(s, start, func(b market.Bar, t time.Time) int {
		return b.Time.Compare(t)
	})
	hi, found := slices.BinarySearchFunc(s, end, func(b market.Bar, t time.Time) int {
		return b.Time.Compare(t)
	})
	if found {
		hi++
	}
	if lo >= hi {
		return nil
	}

	return s[lo:hi]
}

func (p *Platform) GetBuyingPower(_ context.Context) (decimal.Decimal, error) {
	return p.acc.GetBalance(), nil
}

// GetCalendar returns every day in [start, end] on which at least one symbol
// has a bar, oldest first.
func (p *Platform) GetCalendar(_ context.Context, start, end time.Time) ([]time.Time, error) {
	seen := make(map[time.Time]struct{})
	for _, s := range p.series {
		for _, b := range between(s, start, end) {
			seen[p.day(b.Time)] = struct{}{}
		}
	}

	return slices.SortedFunc(maps.Keys(seen), func(a, b time.Time) int {
		return a.Compare(b)
	}), nil
}

func (p *Platform) day(t time.Time) time.Time {
	y, m, d := t.In(p.loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, p.loc)
}

func (p *Platform) SubmitOrder(_ context.Context, o market.Order) (res market.OrderResult, err error) {
	if err = o.Validate(); err != nil {
		err = fmt.Errorf("invalid order: %w", err)
		return
	}

	bar, err := p.series[o.Symbol].Last()
	if err != nil {
		err = fmt.Errorf("cannot find price for %s: %w", o.Symbol, err)
		return
	}
	if !bar.Close.IsPositive() {
		err = fmt.Errorf("invalid price %s for %s", bar.Close, o.Symbol)
		return
	}

	var filled decimal.Decimal
	switch o.Side {
	case market.Buy:
		filled, err = p.buy(o, bar.Close)
	case market.Sell:
		filled, err = p.sell(o, bar.Close)
	default:
		err = fmt.Errorf("unknown order side: %s", o.Side)
	}
	if err != nil {
		return
	}

	res = market.OrderResult{
		ID:        fmt.Sprintf("emu-%d", p.orderSeq.Add(1)),
		Symbol:    o.Symbol,
		Status:    "filled",
		FilledQty: filled,
	}

	p.log.Info("order filled",
		slog.String("symbol", o.Symbol),
		slog.String("side", string(o.Side)),
		slog.String("qty", filled.String()),
		slog.String("price", bar.Close.String()))
	return
}

func (p *Platform) buy(o market.Order, price decimal.Decimal) (decimal.Decimal, error) {
	cost := price.Mul(qtyOrZero(o.Qty))
	if o.Notional != nil {
		cost = *o.Notional
	}

	if err := p.acc.Withdraw(cost); err != nil {
		return decimal.Zero, fmt.Errorf("failed to buy %s: %w", o.Symbol, err)
	}

	qty := p.commission.ApplyOnBuy(cost).Div(price)
	p.positions.Add(o.Symbol, qty)
	return qty, nil
}

func (p *Platform) sell(o market.Order, price decimal.Decimal) (decimal.Decimal, error) {
	qty := qtyOrZero(o.Qty)
	if o.Notional != nil {
		qty = o.Notional.Div(price)
	}

	sold, err := p.positions.Remove(o.Symbol, qty)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to sell %s: %w", o.Symbol, err)
	}

	if err := p.acc.Deposit(p.commission.ApplyOnSell(sold.Mul(price))); err != nil {
		return decimal.Zero, fmt.Errorf("failed to credit %s sale: %w", o.Symbol, err)
	}
	return sold, nil
}

func (p *Platform) CloseAllPositions(ctx context.Context) error {
	var errs []error
	for _, symbol := range p.positions.Symbols() {
		qty := p.positions.Get(symbol)
		if _, err := p.SubmitOrder(ctx, market.Order{Symbol: symbol, Side: market.Sell, Qty: &qty}); err != nil {
			errs = append(errs, err)
		}
	}

	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("failed to close positions: %w", err)
	}

	p.log.Info("closed positions", slog.String("balance", p.acc.GetBalance().String()))
	return nil
}

func qtyOrZero(q *decimal.Decimal) decimal.Decimal {
	if q == nil {
		return decimal.Zero
	}
	return *q
}
