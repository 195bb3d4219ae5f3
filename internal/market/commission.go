package market

import "github.com/shopspring/decimal"

type FixedRateCommission struct {
	buyFactor  decimal.Decimal
	sellFactor decimal.Decimal
}

func NewFixedRateCommission(buyPct, sellPct float64) *FixedRateCommission {
	return &FixedRateCommission{
		buyFactor:  decimal.NewFromFloat(1 - buyPct),
		sellFactor: decimal.NewFromFloat(1 - sellPct),
	}
}

// ApplyOnBuy returns the part of sum that ends up invested.
func (c *FixedRateCommission) ApplyOnBuy(sum decimal.Decimal) decimal.Decimal {
	return sum.Mul(c.buyFactor)
}

// ApplyOnSell returns the part of sum that is credited back.
func (c *FixedRateCommission) ApplyOnSell(sum decimal.Decimal) decimal.Decimal {
	return sum.Mul(c.sellFactor)
}

type NoCommission struct{}

func (c *NoCommission) ApplyOnBuy(sum decimal.Decimal) decimal.Decimal {
	return sum
}

func (c *NoCommission) ApplyOnSell(sum decimal.Decimal) decimal.Decimal {
	return sum
}

type Commission interface {
	ApplyOnBuy(decimal.Decimal) decimal.Decimal
	ApplyOnSell(decimal.Decimal) decimal.Decimal
}

func NewCommission(buyPct, sellPct float64) Commission {
	if buyPct == 0 && sellPct == 0 {
		return &NoCommission{}
	}

	return NewFixedRateCommission(buyPct, sellPct)
}
