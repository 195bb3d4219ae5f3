package rating

import "github.com/shopspring/decimal"

type ShareAllocation struct {
	Symbol string
	Rating float64
	Price  decimal.Decimal
	Shares int64
}

// SharePlan keeps the order of the selection it was built from.
type SharePlan []ShareAllocation

func (p SharePlan) Cost() decimal.Decimal {
	total := decimal.Zero
	for _, a := range p {
		total = total.Add(a.Price.Mul(decimal.NewFromInt(a.Shares)))
	}
	return total
}

type NotionalAllocation struct {
	Symbol   string
	Rating   float64
	Price    decimal.Decimal
	Notional decimal.Decimal
}

type NotionalPlan []NotionalAllocation

func (p NotionalPlan) Total() decimal.Decimal {
	total := decimal.Zero
	for _, a := range p {
		total = total.Add(a.Notional)
	}
	return total
}

// AllocateBacktest splits capital between the selection proportionally to
// rating and converts each part to a whole share count, truncating. Entries
// that get no shares stay in the plan with Shares == 0. Only positive
// ratings take part in the split.
func AllocateBacktest(sel Selection, capital decimal.Decimal) SharePlan {
	total := decimal.Zero
	for _, r := range sel {
		if r.Value > 0 {
			total = total.Add(decimal.NewFromFloat(r.Value))
		}
	}

	plan := make(SharePlan, len(sel))
	for i, r := range sel {
		plan[i] = ShareAllocation{Symbol: r.Symbol, Rating: r.Value, Price: r.Price}

		if r.Value <= 0 || !capital.IsPositive() || !total.IsPositive() || !r.Price.IsPositive() {
			continue
		}

		// rating/total * capital/price, divided once so the quotient is exact
		num := decimal.NewFromFloat(r.Value).Mul(capital)
		den := total.Mul(r.Price)
		shares, _ := num.QuoRem(den, 0)
		plan[i].Shares = shares.IntPart()
	}

	return plan
}

// AllocateLive gives every selected symbol the same dollar amount,
// buyingPower / len(sel) truncated to cents.
func AllocateLive(sel Selection, buyingPower decimal.Decimal) NotionalPlan {
	if len(sel) == 0 || !buyingPower.IsPositive() {
		return NotionalPlan{}
	}

	cents, _ := buyingPower.Shift(2).QuoRem(decimal.NewFromInt(int64(len(sel))), 0)
	notional := cents.Shift(-2)

	plan := make(NotionalPlan, len(sel))
	for i, r := range sel {
		plan[i] = NotionalAllocation{Symbol: r.Symbol, Rating: r.Value, Price: r.Price, Notional: notional}
	}

	return plan
}
