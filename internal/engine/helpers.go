package engine

import (
	"sort"

	"nifty-meanrev/internal/portfolio"
	"nifty-meanrev/internal/ta"
	"nifty-meanrev/internal/types"
)

// relEps absorbs float noise in percentage thresholds, e.g. 100*1.05.
const relEps = 1e-9

type candidate struct {
	symbol    string
	price     float64
	ma        float64
	deviation float64
}

// rank scores every unheld symbol with both a price and a moving average,
// most negative deviation first, ties by symbol.
func rank(snap types.Snapshot, book *portfolio.Book) []candidate {
	out := make([]candidate, 0, len(snap.Prices))
	for s, price := range snap.Prices {
		ma, ok := snap.MA[s]
		if !ok || ma <= 0 || book.Has(s) {
			continue
		}
		out = append(out, candidate{symbol: s, price: price, ma: ma, deviation: ta.Deviation(price, ma)})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].deviation != out[j].deviation {
			return out[i].deviation < out[j].deviation
		}
		return out[i].symbol < out[j].symbol
	})
	return out
}

func atOrAbove(price, threshold float64) bool {
	return price >= threshold-relEps*threshold
}

func below(price, threshold float64) bool {
	return price < threshold-relEps*threshold
}
