package alpaca

import (
	"github.com/alpacahq/alpaca-trade-api-go/v3/alpaca"
	"github.com/alpacahq/alpaca-trade-api-go/v3/marketdata"
)

type alpacaApi interface {
	GetAssets(req alpaca.GetAssetsRequest) ([]alpaca.Asset, error)
	GetBars(symbol string, req marketdata.GetBarsRequest) ([]marketdata.Bar, error)
	GetAccount() (*alpaca.Account, error)
	GetCalendar(req alpaca.GetCalendarRequest) ([]alpaca.CalendarDay, error)
	PlaceOrder(req alpaca.PlaceOrderRequest) (*alpaca.Order, error)
	CloseAllPositions(req alpaca.CloseAllPositionsRequest) ([]alpaca.Order, error)
}

type clientApi struct {
	trading *alpaca.Client
	data    *marketdata.Client
}

func newClientApi(apiKey string, secret string, baseUrl string) *clientApi {
	return &clientApi{
		trading: alpaca.NewClient(alpaca.ClientOpts{
			BaseURL:   baseUrl,
			APIKey:    apiKey,
			APISecret: secret,
		}),
		data: marketdata.NewClient(marketdata.ClientOpts{
			APIKey:    apiKey,
			APISecret: secret,
		}),
	}
}

func (a *clientApi) GetAssets(req alpaca.GetAssetsRequest) ([]alpaca.Asset, error) {
	return a.trading.GetAssets(req)
}

func (a *clientApi) GetBars(symbol string, req marketdata.GetBarsRequest) ([]marketdata.Bar, error) {
	return a.data.GetBars(symbol, req)
}

func (a *clientApi) GetAccount() (*alpaca.Account, error) {
	return a.trading.GetAccount()
}

func (a *clientApi) GetCalendar(req alpaca.GetCalendarRequest) ([]alpaca.CalendarDay, error) {
	return a.trading.GetCalendar(req)
}

func (a *clientApi) PlaceOrder(req alpaca.PlaceOrderRequest) (*alpaca.Order, error) {
	return a.trading.PlaceOrder(req)
}

func (a *clientApi) CloseAllPositions(req alpaca.CloseAllPositionsRequest) ([]alpaca.Order, error) {
	return a.trading.CloseAllPositions(req)
}
