package agent

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"time"

	"github.com/gamma-omg/rating-bot/internal/market"
	"github.com/shopspring/decimal"
)

func day(d int) time.Time {
	return time.Date(2024, 3, d, 0, 0, 0, 0, time.UTC)
}

type testBar struct {
	day  int
	open float64
	c    float64
	v    int64
}

func newSeries(bars ...testBar) market.Series {
	s := make(market.Series, len(bars))
	for i, b := range bars {
		open := b.open
		if open == 0 {
			open = b.c
		}

		s[i] = market.Bar{
			Time:   day(b.day).Add(14 * time.Hour),
			Open:   decimal.NewFromFloat(open),
			High:   decimal.NewFromFloat(max(open, b.c)),
			Low:    decimal.NewFromFloat(min(open, b.c)),
			Close:  decimal.NewFromFloat(b.c),
			Volume: decimal.NewFromInt(b.v),
		}
	}
	return s
}

// seriesPlatform serves bars of in-memory series over a fixed calendar.
type seriesPlatform struct {
	series map[string]market.Series
	days   []time.Time
}

func (p *seriesPlatform) ListUniverse(_ context.Context) ([]market.Asset, error) {
	var res []market.Asset
	for _, s := range slices.Sorted(maps.Keys(p.series)) {
		res = append(res, market.Asset{Symbol: s, Tradable: true})
	}
	return res, nil
}

func (p *seriesPlatform) GetBars(_ context.Context, symbols []string, start, end time.Time, limit int) []market.SymbolBars {
	res := make([]market.SymbolBars, len(symbols))
	for i, symbol := range symbols {
		res[i].Symbol = symbol

		s, ok := p.series[symbol]
		if !ok {
			res[i].Err = fmt.Errorf("unknown symbol: %s", symbol)
			continue
		}

		for _, b := range s {
			if !b.Time.Before(start) && !b.Time.After(end) {
				res[i].Bars = append(res[i].Bars, b)
			}
		}
		if limit > 0 && len(res[i].Bars) > limit {
			res[i].Bars = res[i].Bars[len(res[i].Bars)-limit:]
		}
	}
	return res
}

func (p *seriesPlatform) GetCalendar(_ context.Context, start, end time.Time) ([]time.Time, error) {
	var res []time.Time
	for _, d := range p.days {
		if !d.Before(start) && !d.After(end) {
			res = append(res, d)
		}
	}
	return res, nil
}

type mockPlatform struct {
	listUniverse      func() ([]market.Asset, error)
	getBars           func(symbols []string, start, end time.Time, limit int) []market.SymbolBars
	getBuyingPower    func() (decimal.Decimal, error)
	submitOrder       func(o market.Order) (market.OrderResult, error)
	closeAllPositions func() error
}

func (m *mockPlatform) ListUniverse(_ context.Context) ([]market.Asset, error) {
	return m.listUniverse()
}

func (m *mockPlatform) GetBars(_ context.Context, symbols []string, start, end time.Time, limit int) []market.SymbolBars {
	return m.getBars(symbols, start, end, limit)
}

func (m *mockPlatform) GetBuyingPower(_ context.Context) (decimal.Decimal, error) {
	return m.getBuyingPower()
}

func (m *mockPlatform) SubmitOrder(_ context.Context, o market.Order) (market.OrderResult, error) {
	return m.submitOrder(o)
}

func (m *mockPlatform) CloseAllPositions(_ context.Context) error {
	return m.closeAllPositions()
}
