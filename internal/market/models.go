package market

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

var ErrNoBars = errors.New("insufficient data")

type Bar struct {
	Time   time.Time
	Open   decimal.Decimal
	High   decimal.Decimal
	Low    decimal.Decimal
	Close  decimal.Decimal
	Volume decimal.Decimal
}

// Series holds the bars of a single symbol ordered from oldest to newest.
type Series []Bar

func (s Series) Last() (Bar, error) {
	if len(s) == 0 {
		return Bar{}, ErrNoBars
	}

	return s[len(s)-1], nil
}

func (s Series) Tail(count int) (Series, error) {
	if count <= 0 {
		return nil, fmt.Errorf("invalid argument: %d", count)
	}

	if len(s) < count {
		return nil, fmt.Errorf("%w: requested %d bars, have %d", ErrNoBars, count, len(s))
	}

	return s[len(s)-count:], nil
}

func (s Series) Closes() []float64 {
	res := make([]float64, len(s))
	for i, b := range s {
		res[i] = b.Close.InexactFloat64()
	}
	return res
}

func (s Series) Volumes() []float64 {
	res := make([]float64, len(s))
	for i, b := range s {
		res[i] = b.Volume.InexactFloat64()
	}
	return res
}

// SymbolBars is the outcome of fetching one symbol's history. Err is set
// instead of Bars when the fetch failed for that symbol only.
type SymbolBars struct {
	Symbol string
	Bars   Series
	Err    error
}

type Asset struct {
	Symbol       string
	Tradable     bool
	Fractionable bool
}

// FilterUniverse keeps tradable assets, and only fractionable ones when
// notional orders are going to be placed.
func FilterUniverse(assets []Asset, fractionable bool) []Asset {
	res := make([]Asset, 0, len(assets))
	for _, a := range assets {
		if !a.Tradable {
			continue
		}
		if fractionable && !a.Fractionable {
			continue
		}
		res = append(res, a)
	}
	return res
}

func Symbols(assets []Asset) []string {
	res := make([]string, len(assets))
	for i, a := range assets {
		res[i] = a.Symbol
	}
	return res
}
