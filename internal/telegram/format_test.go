package telegram

import (
	"testing"

	"github.com/shopspring/decimal"

	"github.com/bogdan-lmk/twsignals/internal/alert"
)

func TestFormatMessageFull(t *testing.T) {
	price, _ := decimal.NewFromString("45000.123456789")
	p := &alert.Payload{
		Ticker:   "BTCUSDT",
		Signal:   alert.SignalBuy,
		Price:    price.Round(8),
		Time:     "2025-01-15T10:30:00Z",
		Interval: "1h",
		Chart:    "https://www.tradingview.com/chart/?symbol=BTCUSDT",
	}

	want := "<b>BTCUSDT</b>  (1h)\n" +
		"Signal: <i>Buy</i>  Price: 45000.12345679\n" +
		"🕒 2025-01-15T10:30:00Z\n" +
		"📈 <a href='https://www.tradingview.com/chart/?symbol=BTCUSDT'>Chart</a>"

	if got := FormatMessage(p); got != want {
		t.Errorf("FormatMessage mismatch:\ngot:  %q\nwant: %q", got, want)
	}
}

func TestFormatMessageOptionalFieldsOmitted(t *testing.T) {
	p := &alert.Payload{
		Ticker: "ETHUSDT",
		Signal: alert.SignalSell,
		Price:  decimal.NewFromInt(2500),
		Time:   "2025-01-15T10:30:00Z",
	}

	want := "<b>ETHUSDT</b>\n" +
		"Signal: <i>Sell</i>  Price: 2500\n" +
		"🕒 2025-01-15T10:30:00Z"

	if got := FormatMessage(p); got != want {
		t.Errorf("FormatMessage mismatch:\ngot:  %q\nwant: %q", got, want)
	}
}
