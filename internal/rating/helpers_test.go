package rating

import (
	"github.com/gamma-omg/rating-bot/internal/market"
	"github.com/shopspring/decimal"
)

type testBar struct {
	c float64
	v int64
}

func newSeries(bars ...testBar) market.Series {
	s := make(market.Series, len(bars))
	for i, b := range bars {
		s[i] = market.Bar{
			Close:  decimal.NewFromFloat(b.c),
			Volume: decimal.NewFromInt(b.v),
		}
	}
	return s
}

func flatSeries(n int, close float64, vol int64) market.Series {
	bars := make([]testBar, n)
	for i := range bars {
		bars[i] = testBar{c: close, v: vol}
	}
	return newSeries(bars...)
}

// risingSeries has 19 flat closes followed by a jump, with noisy trailing
// volume and a volume spike on the last bar.
func risingSeries(last float64) market.Series {
	vols := []int64{100, 110, 90}
	bars := make([]testBar, 20)
	for i := range 19 {
		bars[i] = testBar{c: 10, v: vols[i%3]}
	}
	bars[18].v = 90
	bars[19] = testBar{c: last, v: 200}
	return newSeries(bars...)
}
