package portfolio

import (
	"fmt"
	"sort"

	"nifty-meanrev/internal/types"
)

// Lot is a single buy execution. Lots are never merged.
type Lot struct {
	Price float64 `json:"price"`
	Qty   int     `json:"qty"`
}

// Book tracks open lots per symbol and the realized P&L ledger.
// A symbol with no lots is absent from the book.
type Book struct {
	lots     map[string][]Lot
	realized map[string]float64
}

// State is the serializable form of a Book.
type State struct {
	Lots     map[string][]Lot   `json:"lots"`
	Realized map[string]float64 `json:"realized"`
}

func NewBook() *Book {
	return &Book{
		lots:     make(map[string][]Lot),
		realized: make(map[string]float64),
	}
}

// OpenOrAdd appends a lot for symbol, opening the position if needed.
//
// Parameters:
//   - symbol: Trading symbol
//   - price: Execution price, must be positive
//   - qty: Quantity bought, must be positive
func (b *Book) OpenOrAdd(symbol string, price float64, qty int) error {
	if price <= 0 || qty <= 0 {
		return fmt.Errorf("%w: lot %s price=%v qty=%d", types.ErrInvalidState, symbol, price, qty)
	}
	b.lots[symbol] = append(b.lots[symbol], Lot{Price: price, Qty: qty})
	return nil
}

// CloseAll exits the whole position at exitPrice and books
// (exitPrice - averageBuyPrice) x quantity into the ledger.
//
// Returns:
//   - realized: Profit or loss of the exit
//   - error: ErrInvalidState if symbol has no lots
func (b *Book) CloseAll(symbol string, exitPrice float64) (float64, error) {
	avg, err := b.AverageBuyPrice(symbol)
	if err != nil {
		return 0, err
	}
	qty := b.Quantity(symbol)
	realized := (exitPrice - avg) * float64(qty)
	delete(b.lots, symbol)
	b.realized[symbol] += realized
	return realized, nil
}

// AverageBuyPrice is the quantity-weighted mean of the symbol's lot prices.
func (b *Book) AverageBuyPrice(symbol string) (float64, error) {
	lots := b.lots[symbol]
	if len(lots) == 0 {
		return 0, fmt.Errorf("%w: no position in %s", types.ErrInvalidState, symbol)
	}
	var cost float64
	var qty int
	for _, l := range lots {
		cost += l.Price * float64(l.Qty)
		qty += l.Qty
	}
	return cost / float64(qty), nil
}

func (b *Book) Quantity(symbol string) int {
	qty := 0
	for _, l := range b.lots[symbol] {
		qty += l.Qty
	}
	return qty
}

func (b *Book) Has(symbol string) bool {
	return len(b.lots[symbol]) > 0
}

// Held returns the held symbols in lexical order.
func (b *Book) Held() []string {
	out := make([]string, 0, len(b.lots))
	for s, lots := range b.lots {
		if len(lots) > 0 {
			out = append(out, s)
		}
	}
	sort.Strings(out)
	return out
}

func (b *Book) Lots(symbol string) []Lot {
	return append([]Lot(nil), b.lots[symbol]...)
}

// Realized returns the ledger entry for symbol; false if it never exited.
func (b *Book) Realized(symbol string) (float64, bool) {
	v, ok := b.realized[symbol]
	return v, ok
}

// RealizedSymbols lists every symbol with a ledger entry in lexical order.
func (b *Book) RealizedSymbols() []string {
	out := make([]string, 0, len(b.realized))
	for s := range b.realized {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

func (b *Book) TotalRealized() float64 {
	total := 0.0
	for _, v := range b.realized {
		total += v
	}
	return total
}

// Snapshot copies the book into its serializable form.
func (b *Book) Snapshot() State {
	st := State{
		Lots:     make(map[string][]Lot, len(b.lots)),
		Realized: make(map[string]float64, len(b.realized)),
	}
	for s, lots := range b.lots {
		st.Lots[s] = append([]Lot(nil), lots...)
	}
	for s, v := range b.realized {
		st.Realized[s] = v
	}
	return st
}

// Restore rebuilds a book from a snapshot, validating every lot.
func Restore(st State) (*Book, error) {
	b := NewBook()
	for s, lots := range st.Lots {
		for _, l := range lots {
			if err := b.OpenOrAdd(s, l.Price, l.Qty); err != nil {
				return nil, err
			}
		}
	}
	for s, v := range st.Realized {
		b.realized[s] = v
	}
	return b, nil
}

func (b *Book) Clone() *Book {
	c, _ := Restore(b.Snapshot())
	return c
}
