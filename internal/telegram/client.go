// Package telegram delivers formatted alerts through the Telegram Bot
// API with rate limiting and bounded retries.
package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/bogdan-lmk/twsignals/internal/alert"
)

// Message is the sendMessage request body.
type Message struct {
	ChatID                string `json:"chat_id"`
	Text                  string `json:"text"`
	ParseMode             string `json:"parse_mode"`
	DisableWebPagePreview bool   `json:"disable_web_page_preview"`
}

// SendResult reports a successful delivery.
type SendResult struct {
	MessageID int64
	ChatID    string
}

// Options configure the delivery client.
type Options struct {
	BotToken       string
	ChatID         string
	BaseURL        string
	Timeout        time.Duration
	RetryAttempts  int
	RetryDelay     time.Duration
	RetryBackoff   float64
	MessagesPerSec int
}

// Client sends messages to a single chat. The rate limiter is owned by
// the client instance; all sends through one client share its budget.
type Client struct {
	botToken  string
	chatID    string
	baseURL   string
	client    *http.Client
	limiter   *rate.Limiter
	attempts  int
	baseDelay time.Duration
	backoff   float64
	logger    zerolog.Logger

	sleep func(ctx context.Context, d time.Duration) error
}

// New constructs a delivery client.
func New(opts Options, logger zerolog.Logger) *Client {
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	if opts.BaseURL == "" {
		opts.BaseURL = "https://api.telegram.org"
	}
	if opts.RetryAttempts <= 0 {
		opts.RetryAttempts = 3
	}
	if opts.RetryDelay <= 0 {
		opts.RetryDelay = time.Second
	}
	if opts.RetryBackoff <= 0 {
		opts.RetryBackoff = 2.0
	}
	if opts.MessagesPerSec <= 0 {
		opts.MessagesPerSec = 30
	}

	transport := &http.Transport{
		MaxConnsPerHost:     10,
		MaxIdleConnsPerHost: 5,
		IdleConnTimeout:     90 * time.Second,
	}

	return &Client{
		botToken:  opts.BotToken,
		chatID:    opts.ChatID,
		baseURL:   strings.TrimRight(opts.BaseURL, "/"),
		client:    &http.Client{Timeout: opts.Timeout, Transport: transport},
		limiter:   rate.NewLimiter(rate.Limit(opts.MessagesPerSec), opts.MessagesPerSec),
		attempts:  opts.RetryAttempts,
		baseDelay: opts.RetryDelay,
		backoff:   opts.RetryBackoff,
		logger:    logger.With().Str("component", "telegram").Logger(),
		sleep:     sleepCtx,
	}
}

// apiResponse is the Bot API envelope.
type apiResponse struct {
	OK          bool   `json:"ok"`
	ErrorCode   int    `json:"error_code"`
	Description string `json:"description"`
	Result      struct {
		MessageID int64  `json:"message_id"`
		Username  string `json:"username"`
	} `json:"result"`
	Parameters struct {
		RetryAfter int `json:"retry_after"`
	} `json:"parameters"`
}

// Send formats the alert and posts it with retries. A nil error means
// the remote confirmed the message; otherwise the returned error is a
// *DeliveryError classifying the terminal failure.
func (c *Client) Send(ctx context.Context, p *alert.Payload) (*SendResult, error) {
	text := FormatMessage(p)
	if len(text) > maxMessageLen {
		return nil, &DeliveryError{
			Kind: KindRemoteRejected,
			Err:  fmt.Errorf("message text exceeds %d characters", maxMessageLen),
		}
	}

	msg := Message{
		ChatID:                c.chatID,
		Text:                  text,
		ParseMode:             "HTML",
		DisableWebPagePreview: true,
	}
	body, err := json.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("marshal telegram message: %w", err)
	}

	url := fmt.Sprintf("%s/bot%s/sendMessage", c.baseURL, c.botToken)

	var lastErr error
	lastKind := KindExhausted

	for attempt := 0; attempt < c.attempts; attempt++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limit wait: %w", err)
		}

		c.logger.Debug().
			Int("attempt", attempt+1).
			Str("ticker", p.Ticker).
			Int("text_length", len(text)).
			Msg("sending telegram message")

		result, retryAfter, err := c.attemptSend(ctx, url, body)
		if err == nil {
			c.logger.Info().
				Int64("message_id", result.MessageID).
				Str("ticker", p.Ticker).
				Str("signal", string(p.Signal)).
				Msg("message sent")
			return result, nil
		}

		lastErr = err
		lastKind = classify(err, retryAfter)
		final := attempt == c.attempts-1

		c.logger.Warn().
			Err(err).
			Int("attempt", attempt+1).
			Bool("final", final).
			Msg("telegram send attempt failed")

		if final {
			break
		}

		// 429 carries the remote's own wait hint; everything else
		// backs off exponentially.
		delay := time.Duration(float64(c.baseDelay) * pow(c.backoff, attempt))
		if retryAfter > 0 {
			delay = retryAfter
		}
		if err := c.sleep(ctx, delay); err != nil {
			return nil, fmt.Errorf("retry wait: %w", err)
		}
	}

	return nil, &DeliveryError{Kind: lastKind, Attempts: c.attempts, Err: lastErr}
}

// attemptSend performs one HTTP round trip. retryAfter is non-zero only
// when the remote answered 429 with a wait hint.
func (c *Client) attemptSend(ctx context.Context, url string, body []byte) (*SendResult, time.Duration, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, 0, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	var parsed apiResponse
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
	_ = json.Unmarshal(raw, &parsed)

	switch {
	case resp.StatusCode == http.StatusOK && parsed.OK:
		return &SendResult{MessageID: parsed.Result.MessageID, ChatID: c.chatID}, 0, nil

	case resp.StatusCode == http.StatusTooManyRequests:
		retryAfter := time.Duration(parsed.Parameters.RetryAfter) * time.Second
		if retryAfter == 0 {
			if secs, err := strconv.Atoi(resp.Header.Get("Retry-After")); err == nil {
				retryAfter = time.Duration(secs) * time.Second
			}
		}
		if retryAfter == 0 {
			retryAfter = time.Second
		}
		return nil, retryAfter, fmt.Errorf("rate limited by telegram (retry after %s)", retryAfter)

	default:
		desc := parsed.Description
		if desc == "" {
			desc = strings.TrimSpace(string(raw))
		}
		return nil, 0, &remoteError{status: resp.StatusCode, description: desc}
	}
}

// Ping checks Bot API connectivity via getMe.
func (c *Client) Ping(ctx context.Context) error {
	url := fmt.Sprintf("%s/bot%s/getMe", c.baseURL, c.botToken)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("create getMe request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("getMe request: %w", err)
	}
	defer resp.Body.Close()

	var parsed apiResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return fmt.Errorf("decode getMe response: %w", err)
	}
	if resp.StatusCode != http.StatusOK || !parsed.OK {
		return fmt.Errorf("getMe rejected: status %d %s", resp.StatusCode, parsed.Description)
	}

	c.logger.Info().Str("bot_username", parsed.Result.Username).Msg("telegram connection verified")
	return nil
}

// remoteError is a non-2xx (or ok=false) Bot API answer.
type remoteError struct {
	status      int
	description string
}

func (e *remoteError) Error() string {
	return fmt.Sprintf("telegram rejected request: status %d %s", e.status, e.description)
}

func classify(err error, retryAfter time.Duration) FailureKind {
	if retryAfter > 0 {
		return KindRateLimited
	}
	var remote *remoteError
	if errors.As(err, &remote) {
		return KindRemoteRejected
	}
	if isTimeout(err) {
		return KindTimeout
	}
	return KindTransport
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	tmr := time.NewTimer(d)
	defer tmr.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-tmr.C:
		return nil
	}
}

func pow(base float64, exp int) float64 {
	out := 1.0
	for i := 0; i < exp; i++ {
		out *= base
	}
	return out
}
