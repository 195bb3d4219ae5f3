package alpaca

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/alpacahq/alpaca-trade-api-go/v3/alpaca"
	"github.com/alpacahq/alpaca-trade-api-go/v3/marketdata"
	"github.com/gamma-omg/rating-bot/internal/config"
	"github.com/gamma-omg/rating-bot/internal/market"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

const calendarDateFormat = "2006-01-02"

type AlpacaPlatform struct {
	log *slog.Logger
	cfg config.Alpaca
	api alpacaApi
	loc *time.Location
}

func NewAlpacaPlatform(log *slog.Logger, cfg config.Alpaca, loc *time.Location) *AlpacaPlatform {
	return newAlpacaPlatformWithApi(log, cfg, newClientApi(cfg.ApiKey, cfg.Secret, cfg.BaseUrl), loc)
}

func newAlpacaPlatformWithApi(log *slog.Logger, cfg config.Alpaca, api alpacaApi, loc *time.Location) *AlpacaPlatform {
	if loc == nil {
		loc = time.UTC
	}

	return &AlpacaPlatform{
		log: log,
		cfg: cfg,
		api: api,
		loc: loc,
	}
}

func (ap *AlpacaPlatform) ListUniverse(_ context.Context) ([]market.Asset, error) {
	assets, err := ap.api.GetAssets(alpaca.GetAssetsRequest{
		Status:     "active",
		AssetClass: "us_equity",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list alpaca assets: %w", err)
	}

	res := make([]market.Asset, len(assets))
	for i, a := range assets {
		res[i] = market.Asset{
			Symbol:       a.Symbol,
			Tradable:     a.Tradable,
			Fractionable: a.Fractionable,
		}
	}

	return res, nil
}

// GetBars fetches daily bars of every symbol in [start, end], keeping the
// last limit bars when limit > 0. Symbols are fetched concurrently; a failed
// symbol gets its error in its own slot and does not affect the others.
// The result is in the order of symbols.
func (ap *AlpacaPlatform) GetBars(ctx context.Context, symbols []string, start, end time.Time, limit int) []market.SymbolBars {
	res := make([]market.SymbolBars, len(symbols))

	var g errgroup.Group
	g.SetLimit(max(1, ap.cfg.FetchConcurrency))
	for i, symbol := range symbols {
		g.Go(func() error {
			res[i] = ap.fetchBars(ctx, symbol, start, end, limit)
			return nil
		})
	}
	_ = g.Wait()

	return res
}

func (ap *AlpacaPlatform) fetchBars(ctx context.Context, symbol string, start, end time.Time, limit int) market.SymbolBars {
	sb := market.SymbolBars{Symbol: symbol}
	if err := ctx.Err(); err != nil {
		sb.Err = err
		return sb
	}

	bars, err := ap.api.GetBars(symbol, marketdata.GetBarsRequest{
		TimeFrame:  marketdata.OneDay,
		Adjustment: marketdata.Raw,
		Start:      start,
		End:        end,
		Feed:       ap.cfg.DataFeed,
	})
	if err != nil {
		sb.Err = fmt.Errorf("failed to get bars for %s: %w", symbol, err)
		return sb
	}

	if limit > 0 && len(bars) > limit {
		bars = bars[len(bars)-limit:]
	}

	sb.Bars = make(market.Series, len(bars))
	for i, b := range bars {
		sb.Bars[i] = market.Bar{
			Time:   b.Timestamp,
			Open:   decimal.NewFromFloat(b.Open),
			Close:  decimal.NewFromFloat(b.Close),
			High:   decimal.NewFromFloat(b.High),
			Low:    decimal.NewFromFloat(b.Low),
			Volume: decimal.NewFromFloat(float64(b.Volume)),
		}
	}

	return sb
}

func (ap *AlpacaPlatform) GetBuyingPower(_ context.Context) (b decimal.Decimal, err error) {
	acc, err := ap.api.GetAccount()
	if err != nil {
		err = fmt.Errorf("failed to get alpaca account: %w", err)
		return
	}

	b = acc.BuyingPower
	return
}

// GetCalendar returns the market's trading days in [start, end], oldest first.
func (ap *AlpacaPlatform) GetCalendar(_ context.Context, start, end time.Time) ([]time.Time, error) {
	cal, err := ap.api.GetCalendar(alpaca.GetCalendarRequest{Start: start, End: end})
	if err != nil {
		return nil, fmt.Errorf("failed to get market calendar: %w", err)
	}

	days := make([]time.Time, len(cal))
	for i, d := range cal {
		day, err := time.ParseInLocation(calendarDateFormat, d.Date, ap.loc)
		if err != nil {
			return nil, fmt.Errorf("failed to parse calendar date %q: %w", d.Date, err)
		}
		days[i] = day
	}

	return days, nil
}

func (ap *AlpacaPlatform) SubmitOrder(_ context.Context, o market.Order) (res market.OrderResult, err error) {
	if err = o.Validate(); err != nil {
		err = fmt.Errorf("invalid order: %w", err)
		return
	}

	side := alpaca.Buy
	if o.Side == market.Sell {
		side = alpaca.Sell
	}

	ord, err := ap.api.PlaceOrder(alpaca.PlaceOrderRequest{
		Symbol:      o.Symbol,
		Side:        side,
		Qty:         o.Qty,
		Notional:    o.Notional,
		Type:        alpaca.Market,
		TimeInForce: alpaca.Day,
	})
	if err != nil {
		err = fmt.Errorf("failed to place order: %w", err)
		return
	}

	res = market.OrderResult{
		ID:        ord.ID,
		Symbol:    ord.Symbol,
		Status:    string(ord.Status),
		FilledQty: ord.FilledQty,
	}
	return
}

func (ap *AlpacaPlatform) CloseAllPositions(_ context.Context) error {
	orders, err := ap.api.CloseAllPositions(alpaca.CloseAllPositionsRequest{CancelOrders: true})
	if err != nil {
		return fmt.Errorf("failed to close active positions: %w", err)
	}

	ap.log.Info("closed positions", slog.Int("orders", len(orders)))
	return nil
}
