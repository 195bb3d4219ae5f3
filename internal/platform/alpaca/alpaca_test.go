package alpaca

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alpacahq/alpaca-trade-api-go/v3/alpaca"
	"github.com/alpacahq/alpaca-trade-api-go/v3/marketdata"
	"github.com/gamma-omg/rating-bot/internal/config"
	"github.com/gamma-omg/rating-bot/internal/market"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockAlpacaApi struct {
	getAssets         func(req alpaca.GetAssetsRequest) ([]alpaca.Asset, error)
	getBars           func(symbol string, req marketdata.GetBarsRequest) ([]marketdata.Bar, error)
	getAccount        func() (*alpaca.Account, error)
	getCalendar       func(req alpaca.GetCalendarRequest) ([]alpaca.CalendarDay, error)
	placeOrder        func(req alpaca.PlaceOrderRequest) (*alpaca.Order, error)
	closeAllPositions func(req alpaca.CloseAllPositionsRequest) ([]alpaca.Order, error)
}

func (m *mockAlpacaApi) GetAssets(req alpaca.GetAssetsRequest) ([]alpaca.Asset, error) {
	return m.getAssets(req)
}

func (m *mockAlpacaApi) GetBars(symbol string, req marketdata.GetBarsRequest) ([]marketdata.Bar, error) {
	return m.getBars(symbol, req)
}

func (m *mockAlpacaApi) GetAccount() (*alpaca.Account, error) {
	return m.getAccount()
}

func (m *mockAlpacaApi) GetCalendar(req alpaca.GetCalendarRequest) ([]alpaca.CalendarDay, error) {
	return m.getCalendar(req)
}

func (m *mockAlpacaApi) PlaceOrder(req alpaca.PlaceOrderRequest) (*alpaca.Order, error) {
	return m.placeOrder(req)
}

func (m *mockAlpacaApi) CloseAllPositions(req alpaca.CloseAllPositionsRequest) ([]alpaca.Order, error) {
	return m.closeAllPositions(req)
}

func newTestPlatform(api *mockAlpacaApi) *AlpacaPlatform {
	return newAlpacaPlatformWithApi(slog.New(slog.DiscardHandler), config.Alpaca{FetchConcurrency: 4, DataFeed: "iex"}, api, time.UTC)
}

func TestListUniverse(t *testing.T) {
	a := newTestPlatform(&mockAlpacaApi{
		getAssets: func(req alpaca.GetAssetsRequest) ([]alpaca.Asset, error) {
			if req.Status != "active" {
				return nil, errors.New("unexpected status filter")
			}

			return []alpaca.Asset{
				{Symbol: "AAPL", Tradable: true, Fractionable: true},
				{Symbol: "XYZ", Tradable: false, Fractionable: false},
			}, nil
		},
	})

	assets, err := a.ListUniverse(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []market.Asset{
		{Symbol: "AAPL", Tradable: true, Fractionable: true},
		{Symbol: "XYZ", Tradable: false, Fractionable: false},
	}, assets)
}

func TestListUniverse_error(t *testing.T) {
	a := newTestPlatform(&mockAlpacaApi{
		getAssets: func(req alpaca.GetAssetsRequest) ([]alpaca.Asset, error) {
			return nil, errors.New("unauthorized")
		},
	})

	_, err := a.ListUniverse(context.Background())
	require.Error(t, err)
}

func TestGetBars(t *testing.T) {
	tbl := []struct {
		limit   int
		history []marketdata.Bar
		closes  []float64
	}{
		{
			limit: 3,
			history: []marketdata.Bar{
				{Timestamp: time.Unix(1, 0), Open: 1, High: 2, Low: 0.5, Close: 1.5, Volume: 10},
				{Timestamp: time.Unix(2, 0), Open: 2, High: 3, Low: 1.5, Close: 2.5, Volume: 20},
				{Timestamp: time.Unix(3, 0), Open: 3, High: 4, Low: 2.5, Close: 3.5, Volume: 30},
				{Timestamp: time.Unix(4, 0), Open: 4, High: 5, Low: 3.5, Close: 4.5, Volume: 40},
			},
			closes: []float64{2.5, 3.5, 4.5},
		},
		{
			limit: 0,
			history: []marketdata.Bar{
				{Timestamp: time.Unix(1, 0), Open: 1, High: 2, Low: 0.5, Close: 1.5, Volume: 10},
				{Timestamp: time.Unix(2, 0), Open: 2, High: 3, Low: 1.5, Close: 2.5, Volume: 20},
			},
			closes: []float64{1.5, 2.5},
		},
		{
			limit: 5,
			history: []marketdata.Bar{
				{Timestamp: time.Unix(1, 0), Open: 1, High: 2, Low: 0.5, Close: 1.5, Volume: 10},
			},
			closes: []float64{1.5},
		},
	}

	for i, c := range tbl {
		t.Run(fmt.Sprintf("case_%d", i), func(t *testing.T) {
			a := newTestPlatform(&mockAlpacaApi{
				getBars: func(symbol string, req marketdata.GetBarsRequest) ([]marketdata.Bar, error) {
					return c.history, nil
				},
			})

			res := a.GetBars(context.Background(), []string{"AAPL"}, time.Unix(0, 0), time.Unix(10, 0), c.limit)
			require.Len(t, res, 1)
			require.NoError(t, res[0].Err)
			assert.Equal(t, "AAPL", res[0].Symbol)
			assert.Equal(t, c.closes, res[0].Bars.Closes())
		})
	}
}

func TestGetBars_convertsBar(t *testing.T) {
	a := newTestPlatform(&mockAlpacaApi{
		getBars: func(symbol string, req marketdata.GetBarsRequest) ([]marketdata.Bar, error) {
			return []marketdata.Bar{
				{Timestamp: time.Unix(100, 0), Open: 10.5, High: 11.25, Low: 9.75, Close: 11, Volume: 12345},
			}, nil
		},
	})

	res := a.GetBars(context.Background(), []string{"F"}, time.Unix(0, 0), time.Unix(200, 0), 0)
	require.Len(t, res, 1)
	require.Len(t, res[0].Bars, 1)

	b := res[0].Bars[0]
	assert.Equal(t, time.Unix(100, 0), b.Time)
	assert.True(t, decimal.NewFromFloat(10.5).Equal(b.Open))
	assert.True(t, decimal.NewFromFloat(11.25).Equal(b.High))
	assert.True(t, decimal.NewFromFloat(9.75).Equal(b.Low))
	assert.True(t, decimal.NewFromFloat(11).Equal(b.Close))
	assert.True(t, decimal.NewFromInt(12345).Equal(b.Volume))
}

func TestGetBars_requestsDailyRawBars(t *testing.T) {
	start := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 3, 8, 0, 0, 0, 0, time.UTC)

	var got marketdata.GetBarsRequest
	a := newTestPlatform(&mockAlpacaApi{
		getBars: func(symbol string, req marketdata.GetBarsRequest) ([]marketdata.Bar, error) {
			got = req
			return nil, nil
		},
	})

	a.GetBars(context.Background(), []string{"F"}, start, end, 5)
	assert.Equal(t, marketdata.OneDay, got.TimeFrame)
	assert.Equal(t, marketdata.Raw, got.Adjustment)
	assert.Equal(t, start, got.Start)
	assert.Equal(t, end, got.End)
	assert.Equal(t, "iex", got.Feed)
}

func TestGetBars_perSymbolErrors(t *testing.T) {
	symbols := make([]string, 50)
	for i := range symbols {
		symbols[i] = fmt.Sprintf("S%02d", i)
	}

	var mu sync.Mutex
	seen := map[string]int{}
	a := newTestPlatform(&mockAlpacaApi{
		getBars: func(symbol string, req marketdata.GetBarsRequest) ([]marketdata.Bar, error) {
			mu.Lock()
			seen[symbol]++
			mu.Unlock()

			if symbol == "S07" || symbol == "S33" {
				return nil, errors.New("rate limited")
			}
			return []marketdata.Bar{{Timestamp: time.Unix(1, 0), Close: 10, Volume: 1}}, nil
		},
	})

	res := a.GetBars(context.Background(), symbols, time.Unix(0, 0), time.Unix(10, 0), 0)
	require.Len(t, res, len(symbols))

	for i, sb := range res {
		assert.Equal(t, symbols[i], sb.Symbol)
		assert.Equal(t, 1, seen[sb.Symbol])

		if sb.Symbol == "S07" || sb.Symbol == "S33" {
			assert.Error(t, sb.Err)
			assert.Empty(t, sb.Bars)
			continue
		}

		assert.NoError(t, sb.Err)
		assert.Len(t, sb.Bars, 1)
	}
}

func TestGetBars_respectsConcurrencyLimit(t *testing.T) {
	var running, peak atomic.Int32
	a := newTestPlatform(&mockAlpacaApi{
		getBars: func(symbol string, req marketdata.GetBarsRequest) ([]marketdata.Bar, error) {
			n := running.Add(1)
			defer running.Add(-1)

			for {
				p := peak.Load()
				if n <= p || peak.CompareAndSwap(p, n) {
					break
				}
			}

			time.Sleep(5 * time.Millisecond)
			return nil, nil
		},
	})

	symbols := make([]string, 20)
	for i := range symbols {
		symbols[i] = fmt.Sprintf("S%d", i)
	}

	a.GetBars(context.Background(), symbols, time.Unix(0, 0), time.Unix(10, 0), 0)
	assert.LessOrEqual(t, peak.Load(), int32(4))
}

func TestGetBars_cancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	a := newTestPlatform(&mockAlpacaApi{
		getBars: func(symbol string, req marketdata.GetBarsRequest) ([]marketdata.Bar, error) {
			return nil, errors.New("must not be called")
		},
	})

	res := a.GetBars(ctx, []string{"A", "B"}, time.Unix(0, 0), time.Unix(10, 0), 0)
	require.Len(t, res, 2)
	for _, sb := range res {
		require.ErrorIs(t, sb.Err, context.Canceled)
	}
}

func TestGetBuyingPower(t *testing.T) {
	tbl := []struct {
		balance float64
		err     error
	}{
		{balance: 1000},
		{err: errors.New("some error")},
	}

	for i, c := range tbl {
		t.Run(fmt.Sprintf("case_%d", i), func(t *testing.T) {
			a := newTestPlatform(&mockAlpacaApi{
				getAccount: func() (*alpaca.Account, error) {
					if c.err != nil {
						return nil, c.err
					}

					return &alpaca.Account{BuyingPower: decimal.NewFromFloat(c.balance)}, nil
				},
			})

			balance, err := a.GetBuyingPower(context.Background())
			require.ErrorIs(t, err, c.err)
			assert.True(t, decimal.NewFromFloat(c.balance).Equal(balance))
		})
	}
}

func TestGetCalendar(t *testing.T) {
	a := newTestPlatform(&mockAlpacaApi{
		getCalendar: func(req alpaca.GetCalendarRequest) ([]alpaca.CalendarDay, error) {
			return []alpaca.CalendarDay{
				{Date: "2024-03-01"},
				{Date: "2024-03-04"},
				{Date: "2024-03-05"},
			}, nil
		},
	})

	days, err := a.GetCalendar(context.Background(), time.Unix(0, 0), time.Unix(10, 0))
	require.NoError(t, err)
	assert.Equal(t, []time.Time{
		time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC),
		time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC),
	}, days)
}

func TestGetCalendar_badDate(t *testing.T) {
	a := newTestPlatform(&mockAlpacaApi{
		getCalendar: func(req alpaca.GetCalendarRequest) ([]alpaca.CalendarDay, error) {
			return []alpaca.CalendarDay{{Date: "03/01/2024"}}, nil
		},
	})

	_, err := a.GetCalendar(context.Background(), time.Unix(0, 0), time.Unix(10, 0))
	require.Error(t, err)
}

func TestSubmitOrder(t *testing.T) {
	notional := decimal.NewFromFloat(333.33)
	qty := decimal.NewFromInt(200)

	tbl := []struct {
		order market.Order
		side  alpaca.Side
	}{
		{order: market.NotionalBuy("AAPL", notional), side: alpaca.Buy},
		{order: market.Order{Symbol: "F", Side: market.Sell, Qty: &qty}, side: alpaca.Sell},
	}

	for i, c := range tbl {
		t.Run(fmt.Sprintf("case_%d", i), func(t *testing.T) {
			var got alpaca.PlaceOrderRequest
			a := newTestPlatform(&mockAlpacaApi{
				placeOrder: func(req alpaca.PlaceOrderRequest) (*alpaca.Order, error) {
					got = req
					return &alpaca.Order{ID: "order-1", Symbol: req.Symbol, Status: "accepted"}, nil
				},
			})

			res, err := a.SubmitOrder(context.Background(), c.order)
			require.NoError(t, err)

			assert.Equal(t, "order-1", res.ID)
			assert.Equal(t, c.order.Symbol, res.Symbol)
			assert.Equal(t, "accepted", res.Status)

			assert.Equal(t, c.order.Symbol, got.Symbol)
			assert.Equal(t, c.side, got.Side)
			assert.Equal(t, alpaca.Market, got.Type)
			assert.Equal(t, alpaca.Day, got.TimeInForce)
			assert.Equal(t, c.order.Qty, got.Qty)
			assert.Equal(t, c.order.Notional, got.Notional)
		})
	}
}

func TestSubmitOrder_errors(t *testing.T) {
	a := newTestPlatform(&mockAlpacaApi{
		placeOrder: func(req alpaca.PlaceOrderRequest) (*alpaca.Order, error) {
			return nil, errors.New("insufficient buying power")
		},
	})

	_, err := a.SubmitOrder(context.Background(), market.NotionalBuy("AAPL", decimal.NewFromInt(10)))
	require.Error(t, err)

	_, err = a.SubmitOrder(context.Background(), market.Order{Symbol: "AAPL", Side: market.Buy})
	require.Error(t, err)
}

func TestCloseAllPositions(t *testing.T) {
	called := false
	a := newTestPlatform(&mockAlpacaApi{
		closeAllPositions: func(req alpaca.CloseAllPositionsRequest) ([]alpaca.Order, error) {
			if req.CancelOrders {
				called = true
			}
			return []alpaca.Order{}, nil
		},
	})

	require.NoError(t, a.CloseAllPositions(context.Background()))
	assert.True(t, called)
}
