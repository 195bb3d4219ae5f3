package market

import (
	"errors"

	"github.com/shopspring/decimal"
)

type Side string

const (
	Buy  Side = "buy"
	Sell Side = "sell"
)

// Order is sized either by share count (Qty) or by dollar amount (Notional).
type Order struct {
	Symbol   string
	Side     Side
	Qty      *decimal.Decimal
	Notional *decimal.Decimal
}

type OrderResult struct {
	ID        string
	Symbol    string
	Status    string
	FilledQty decimal.Decimal
}

func NotionalBuy(symbol string, notional decimal.Decimal) Order {
	return Order{Symbol: symbol, Side: Buy, Notional: &notional}
}

func (o Order) Validate() error {
	if o.Symbol == "" {
		return errors.New("order symbol is empty")
	}

	if (o.Qty == nil) == (o.Notional == nil) {
		return errors.New("order must have exactly one of qty or notional")
	}

	if o.Qty != nil && !o.Qty.IsPositive() {
		return errors.New("order qty must be positive")
	}

	if o.Notional != nil && !o.Notional.IsPositive() {
		return errors.New("order notional must be positive")
	}

	return nil
}
