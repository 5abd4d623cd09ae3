package app

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/bogdan-lmk/twsignals/internal/alert"
)

// sampleAlert builds the payload used by the send-test command.
func sampleAlert() *alert.Payload {
	return &alert.Payload{
		Ticker:   "BTCUSDT",
		Signal:   alert.SignalBuy,
		Price:    decimal.NewFromInt(45000),
		Time:     time.Now().UTC().Format(time.RFC3339),
		Interval: "1h",
		Chart:    "https://www.tradingview.com/chart/?symbol=BTCUSDT",
	}
}
