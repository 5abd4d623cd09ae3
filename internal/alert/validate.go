package alert

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/shopspring/decimal"
)

const maxTickerLen = 20

// priceScale caps fractional digits for crypto precision.
const priceScale = 8

// FieldError describes a single violated field constraint.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError aggregates every failing field of a payload.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, fmt.Sprintf("%s: %s", f.Field, f.Message))
	}
	return "invalid alert payload: " + strings.Join(parts, "; ")
}

// Parse decodes an inbound alert body and validates it. A body that is
// not a JSON object fails with the decoder's error; a well-formed
// object with bad field values fails with a *ValidationError.
func Parse(body []byte) (*Payload, error) {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	var values map[string]any
	if err := dec.Decode(&values); err != nil {
		return nil, fmt.Errorf("decode alert payload: %w", err)
	}
	if err := dec.Decode(new(any)); !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("decode alert payload: unexpected data after JSON document")
	}
	return Validate(values)
}

// Validate normalizes raw key-value input into a Payload. All fields
// are checked independently and every violation is reported, not just
// the first.
func Validate(values map[string]any) (*Payload, error) {
	var verr ValidationError
	fail := func(field, msg string) {
		verr.Fields = append(verr.Fields, FieldError{Field: field, Message: msg})
	}

	out := &Payload{}

	if ticker, err := stringField(values, "ticker", true); err != nil {
		fail("ticker", err.Error())
	} else {
		ticker = strings.ToUpper(strings.TrimSpace(ticker))
		switch {
		case ticker == "":
			fail("ticker", "ticker must not be empty")
		case utf8.RuneCountInString(ticker) > maxTickerLen:
			fail("ticker", fmt.Sprintf("ticker must be at most %d characters", maxTickerLen))
		default:
			out.Ticker = ticker
		}
	}

	if signal, err := stringField(values, "signal", true); err != nil {
		fail("signal", err.Error())
	} else {
		switch strings.ToLower(strings.TrimSpace(signal)) {
		case "buy":
			out.Signal = SignalBuy
		case "sell":
			out.Signal = SignalSell
		default:
			fail("signal", "signal must be Buy or Sell")
		}
	}

	if price, err := priceField(values); err != nil {
		fail("price", err.Error())
	} else {
		price = price.Round(priceScale)
		if price.Sign() <= 0 {
			fail("price", "price must be positive")
		} else {
			out.Price = price
		}
	}

	if ts, err := stringField(values, "time", true); err != nil {
		fail("time", err.Error())
	} else if ts = strings.TrimSpace(ts); ts == "" {
		fail("time", "time must not be empty")
	} else {
		out.Time = ts
	}

	if interval, err := stringField(values, "interval", false); err != nil {
		fail("interval", err.Error())
	} else {
		out.Interval = interval
	}

	if chart, err := stringField(values, "chart", false); err != nil {
		fail("chart", err.Error())
	} else if chart != "" {
		if !strings.HasPrefix(chart, "http://") && !strings.HasPrefix(chart, "https://") {
			fail("chart", "chart must be an http or https URL")
		} else {
			out.Chart = chart
		}
	}

	if len(verr.Fields) > 0 {
		return nil, &verr
	}
	return out, nil
}

func stringField(values map[string]any, key string, required bool) (string, error) {
	v, ok := values[key]
	if !ok || v == nil {
		if required {
			return "", fmt.Errorf("%s is required", key)
		}
		return "", nil
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("%s must be a string", key)
	}
	return s, nil
}

func priceField(values map[string]any) (decimal.Decimal, error) {
	v, ok := values["price"]
	if !ok || v == nil {
		return decimal.Zero, fmt.Errorf("price is required")
	}
	switch n := v.(type) {
	case json.Number:
		return decimal.NewFromString(n.String())
	case string:
		price, err := decimal.NewFromString(strings.TrimSpace(n))
		if err != nil {
			return decimal.Zero, fmt.Errorf("price must be numeric")
		}
		return price, nil
	default:
		return decimal.Zero, fmt.Errorf("price must be numeric")
	}
}
