package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/bogdan-lmk/twsignals/internal/dedup"
	"github.com/bogdan-lmk/twsignals/internal/dispatch"
	"github.com/bogdan-lmk/twsignals/internal/telegram"
)

// TestWebhookToTelegramPipeline runs the full accepted path: webhook
// in, background dedup and delivery, formatted message out.
func TestWebhookToTelegramPipeline(t *testing.T) {
	var mu sync.Mutex
	var delivered []telegram.Message
	bot := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var msg telegram.Message
		if err := json.NewDecoder(r.Body).Decode(&msg); err != nil {
			t.Errorf("decode sendMessage body: %v", err)
		}
		mu.Lock()
		delivered = append(delivered, msg)
		mu.Unlock()
		_ = json.NewEncoder(w).Encode(map[string]any{"ok": true, "result": map[string]any{"message_id": 1}})
	}))
	defer bot.Close()

	client := telegram.New(telegram.Options{
		BotToken:       "token",
		ChatID:         "@signals",
		BaseURL:        bot.URL,
		MessagesPerSec: 1000,
	}, zerolog.Nop())
	cache := dedup.New(dedup.Options{TTL: time.Minute}, zerolog.Nop())
	dispatcher := dispatch.New(dispatch.Options{Workers: 1, QueueSize: 8}, cache, client, zerolog.Nop())
	dispatcher.Start(t.Context())

	h := newTestServer(testConfig(), dispatcher, client)

	post := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/webhook",
			strings.NewReader(`{"ticker":"btcusdt","signal":"buy","price":45000.123456789,"time":"2025-01-15T10:30:00Z","interval":"1h"}`))
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec
	}

	if rec := post(); rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d, want 202", rec.Code)
	}
	// Identical fingerprint within the TTL window: accepted but never forwarded.
	if rec := post(); rec.Code != http.StatusAccepted {
		t.Fatalf("duplicate status = %d, want 202", rec.Code)
	}
	dispatcher.Stop()

	mu.Lock()
	defer mu.Unlock()
	if len(delivered) != 1 {
		t.Fatalf("delivered %d messages, want 1 (duplicate suppressed)", len(delivered))
	}

	msg := delivered[0]
	want := "<b>BTCUSDT</b>  (1h)\nSignal: <i>Buy</i>  Price: 45000.12345679\n🕒 2025-01-15T10:30:00Z"
	if msg.Text != want {
		t.Errorf("delivered text mismatch:\ngot:  %q\nwant: %q", msg.Text, want)
	}
	if msg.ChatID != "@signals" || msg.ParseMode != "HTML" || !msg.DisableWebPagePreview {
		t.Errorf("unexpected message envelope: %+v", msg)
	}
}
