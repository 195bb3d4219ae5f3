package rating

import (
	"cmp"
	"slices"
)

const (
	DefaultHoldings = 150
	// MaxHoldings is the broker's limit on concurrently held positions.
	MaxHoldings = 200
)

// Selection is ordered by rating, best first.
type Selection []Rating

// SelectTopK sorts ratings by value descending, keeping input order for
// equal values, and returns at most k of them. With positiveOnly set,
// ratings <= 0 are dropped first.
func SelectTopK(ratings []Rating, k int, positiveOnly bool) Selection {
	k = min(k, MaxHoldings)
	if k <= 0 {
		return Selection{}
	}

	sel := make(Selection, 0, len(ratings))
	for _, r := range ratings {
		if positiveOnly && r.Value <= 0 {
			continue
		}
		sel = append(sel, r)
	}

	slices.SortStableFunc(sel, func(a, b Rating) int {
		return cmp.Compare(b.Value, a.Value)
	})

	if len(sel) > k {
		sel = sel[:k]
	}

	return sel
}

func (s Selection) Symbols() []string {
	res := make([]string, len(s))
	for i, r := range s {
		res[i] = r.Symbol
	}
	return res
}
