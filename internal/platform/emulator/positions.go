package emulator

import (
	"fmt"
	"maps"
	"slices"
	"sync"

	"github.com/shopspring/decimal"
)

// positionBook tracks the share count held per symbol.
type positionBook struct {
	shares map[string]decimal.Decimal
	mu     sync.Mutex
}

func newPositionBook() *positionBook {
	return &positionBook{shares: make(map[string]decimal.Decimal)}
}

func (pb *positionBook) Add(symbol string, qty decimal.Decimal) {
	pb.mu.Lock()
	defer pb.mu.Unlock()

	pb.shares[symbol] = pb.shares[symbol].Add(qty)
}

// Remove takes up to qty shares of symbol off the book and returns how many
// were actually removed.
func (pb *positionBook) Remove(symbol string, qty decimal.Decimal) (decimal.Decimal, error) {
	pb.mu.Lock()
	defer pb.mu.Unlock()

	held, ok := pb.shares[symbol]
	if !ok {
		return decimal.Zero, fmt.Errorf("no open position for %s", symbol)
	}

	if qty.GreaterThanOrEqual(held) {
		delete(pb.shares, symbol)
		return held, nil
	}

	pb.shares[symbol] = held.Sub(qty)
	return qty, nil
}

func (pb *positionBook) Get(symbol string) decimal.Decimal {
	pb.mu.Lock()
	defer pb.mu.Unlock()

	return pb.shares[symbol]
}

// Symbols returns the held symbols in alphabetical order.
func (pb *positionBook) Symbols() []string {
	pb.mu.Lock()
	defer pb.mu.Unlock()

	return slices.Sorted(maps.Keys(pb.shares))
}
