package alert

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Signal is the normalized trade direction carried by an alert.
type Signal string

const (
	SignalBuy  Signal = "Buy"
	SignalSell Signal = "Sell"
)

// Payload is a validated TradingView alert. Fields are normalized by
// Parse and must not be mutated afterwards.
type Payload struct {
	Ticker   string
	Signal   Signal
	Price    decimal.Decimal
	Time     string
	Interval string
	Chart    string
}

// Fingerprint derives the identity used for duplicate suppression.
// Price, interval, and chart are deliberately excluded: a re-fired
// alert for the same ticker/signal/timestamp is the same alert.
func (p *Payload) Fingerprint() string {
	return fmt.Sprintf("%s:%s:%s", p.Ticker, p.Signal, p.Time)
}
