package types

import "time"

// DateLayout is the calendar-day format used in matrices, logs and reports.
const DateLayout = "2006-01-02"

// Day truncates t to its calendar date in UTC.
func Day(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

type ActionKind string

const (
	ActionBuy     ActionKind = "BUY"
	ActionAverage ActionKind = "AVERAGE"
	ActionSell    ActionKind = "SELL"
)

// Action is one executed entry of the action log. PnL is only set on SELL.
type Action struct {
	Date     time.Time  `json:"date"`
	Kind     ActionKind `json:"action"`
	Symbol   string     `json:"symbol"`
	Price    float64    `json:"price"`
	Qty      int        `json:"qty"`
	PnL      NullFloat  `json:"pnl"`
	Exchange string     `json:"exchange,omitempty"`
	// CashAfter is the cash balance right after the action was applied.
	CashAfter float64 `json:"cash_after"`
}

// Value is price x qty.
func (a Action) Value() float64 { return a.Price * float64(a.Qty) }

// Snapshot is what the engine sees for one date: present prices and
// defined moving averages only.
type Snapshot struct {
	Date   time.Time
	Prices map[string]float64
	MA     map[string]float64
	// Exchange optionally records where each price was quoted.
	Exchange map[string]string
}

type SkipReason string

const (
	SkipZeroQty      SkipReason = "ZERO_QTY"
	SkipInsufficient SkipReason = "INSUFFICIENT_CASH"
)

type SkippedTrade struct {
	Symbol string     `json:"symbol"`
	Kind   ActionKind `json:"action"`
	Price  float64    `json:"price"`
	Reason SkipReason `json:"reason"`
}

type StepResult struct {
	Date    time.Time      `json:"date"`
	Actions []Action       `json:"actions"`
	Skipped []SkippedTrade `json:"skipped,omitempty"`
	Cash    float64        `json:"cash"`
}

// Holding is a position reported by the broker.
type Holding struct {
	Symbol   string
	Exchange string
	Qty      int
	AvgPrice float64
}

type Quote struct {
	Symbol   string
	Exchange string
	Price    float64
}

// Close is one daily closing price.
type Close struct {
	Date  time.Time
	Price float64
}

type OrderReq struct {
	Symbol, Exchange, Side string
	Qty                    int
	Tag                    string
}

type OrderResp struct {
	OrderID string `json:"order_id"`
	Status  string `json:"status"`
	Message string `json:"message"`
}
