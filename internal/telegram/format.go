package telegram

import (
	"fmt"
	"strings"

	"github.com/bogdan-lmk/twsignals/internal/alert"
)

// maxMessageLen is the Bot API limit for message text.
const maxMessageLen = 4096

// FormatMessage renders an alert as Telegram HTML. Layout:
//
//	<b>TICKER</b>  (interval)
//	Signal: <i>Buy</i>  Price: 45000.12345679
//	🕒 2025-01-15T10:30:00Z
//	📈 Chart link
//
// The interval and chart lines appear only when the fields are set.
func FormatMessage(p *alert.Payload) string {
	header := fmt.Sprintf("<b>%s</b>", p.Ticker)
	if p.Interval != "" {
		header += fmt.Sprintf("  (%s)", p.Interval)
	}

	lines := []string{
		header,
		fmt.Sprintf("Signal: <i>%s</i>  Price: %s", p.Signal, p.Price.String()),
		fmt.Sprintf("🕒 %s", p.Time),
	}
	if p.Chart != "" {
		lines = append(lines, fmt.Sprintf("📈 <a href='%s'>Chart</a>", p.Chart))
	}

	return strings.Join(lines, "\n")
}
