package rating

import (
	"errors"
	"fmt"
	"math"

	"github.com/gamma-omg/rating-bot/internal/market"
	"github.com/shopspring/decimal"
	"gonum.org/v1/gonum/stat"
)

var (
	ErrInsufficientHistory = errors.New("insufficient history")
	ErrDegenerateVolume    = errors.New("degenerate volume")
	ErrInvalidPrice        = errors.New("invalid reference price")
	ErrFetchFailure        = errors.New("fetch failure")
)

var (
	DefaultMinPrice = decimal.NewFromInt(6)
	DefaultMaxPrice = decimal.NewFromInt(26)
)

type Rating struct {
	Symbol string
	Value  float64
	Price  decimal.Decimal
}

// PriceBandFilter reports whether price lies within [minPrice, maxPrice].
func PriceBandFilter(price, minPrice, maxPrice decimal.Decimal) bool {
	return price.GreaterThanOrEqual(minPrice) && price.LessThanOrEqual(maxPrice)
}

// ComputeRating scores the last window+1 bars of series: the price change
// over the window as a fraction of the reference close, multiplied by
// today's volume change in units of the trailing volume sample stdev.
func ComputeRating(series market.Series, window int) (float64, error) {
	if window < 1 {
		return 0, fmt.Errorf("%w: invalid window %d", ErrInsufficientHistory, window)
	}

	bars, err := series.Tail(window + 1)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrInsufficientHistory, err)
	}

	ref := bars[0].Close.InexactFloat64()
	if ref <= 0 {
		return 0, fmt.Errorf("%w: %v", ErrInvalidPrice, ref)
	}

	today := bars[window]
	priceChange := today.Close.InexactFloat64() - ref

	past := bars[:window].Volumes()
	stdev := stat.StdDev(past, nil)
	if stdev == 0 || math.IsNaN(stdev) {
		return 0, ErrDegenerateVolume
	}

	volumeChange := today.Volume.Sub(bars[window-1].Volume).InexactFloat64()
	volumeFactor := volumeChange / stdev

	return priceChange / ref * volumeFactor, nil
}

// CrossoverPrecondition reports whether the short moving average of closes
// is above the long one.
func CrossoverPrecondition(series market.Series, short, long int) (bool, error) {
	if short < 1 || long < 1 {
		return false, fmt.Errorf("invalid moving average periods: %d/%d", short, long)
	}

	bars, err := series.Tail(max(short, long))
	if err != nil {
		return false, fmt.Errorf("%w: %w", ErrInsufficientHistory, err)
	}

	closes := bars.Closes()
	maShort := stat.Mean(closes[len(closes)-short:], nil)
	maLong := stat.Mean(closes[len(closes)-long:], nil)

	return maShort > maLong, nil
}
