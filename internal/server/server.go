// Package server exposes the inbound HTTP surface: the TradingView
// webhook, health probes, and service metadata.
package server

import (
	"context"
	"net/http"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/bogdan-lmk/twsignals/internal/alert"
	"github.com/bogdan-lmk/twsignals/internal/config"
	"github.com/bogdan-lmk/twsignals/internal/logging"
	"github.com/bogdan-lmk/twsignals/internal/security"
)

// Dispatcher accepts validated payloads for background delivery.
type Dispatcher interface {
	Enqueue(p *alert.Payload, requestID string) bool
}

// Prober checks downstream connectivity for the telegram health probe.
type Prober interface {
	Ping(ctx context.Context) error
}

// Server routes inbound requests and owns no shared mutable state; the
// cache and rate limiter live behind the injected dispatcher.
type Server struct {
	appName  string
	version  string
	cfg      config.ServerConfig
	webhook  config.WebhookConfig
	verifier *security.Verifier
	dispatch Dispatcher
	prober   Prober
	logger   zerolog.Logger
	mux      *http.ServeMux
}

// New constructs a Server.
func New(cfg *config.Config, ver string, dispatch Dispatcher, prober Prober, logger zerolog.Logger) *Server {
	s := &Server{
		appName:  cfg.App.Name,
		version:  ver,
		cfg:      cfg.Server,
		webhook:  cfg.Webhook,
		verifier: security.NewVerifier(cfg.Webhook.Secret),
		dispatch: dispatch,
		prober:   prober,
		logger:   logger.With().Str("component", "server").Logger(),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /webhook", s.handleWebhook)
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /health/telegram", s.handleTelegramHealth)
	mux.HandleFunc("GET /{$}", s.handleRoot)
	s.mux = mux

	return s
}

// Handler returns the routed handler wrapped in the request-id, CORS,
// and recovery middleware.
func (s *Server) Handler() http.Handler {
	return s.withRequestContext(s.withCORS(s.mux))
}

type ctxKey int

const requestIDKey ctxKey = iota

// RequestID returns the correlation id attached to ctx, or "unknown".
func RequestID(ctx context.Context) string {
	if id, ok := ctx.Value(requestIDKey).(string); ok {
		return id
	}
	return "unknown"
}

// statusRecorder captures the status code for the completion log.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// withRequestContext assigns every request a correlation id, logs
// completion with latency, warns past the soft response budget, and
// converts panics into opaque 500 responses.
func (s *Server) withRequestContext(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", requestID)

		ctx := context.WithValue(r.Context(), requestIDKey, requestID)
		logger := logging.WithRequestID(s.logger, requestID)

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		defer func() {
			if v := recover(); v != nil {
				logger.Error().
					Any("panic", v).
					Str("method", r.Method).
					Str("path", r.URL.Path).
					Msg("unhandled panic serving request")
				writeJSON(rec, http.StatusInternalServerError, webhookResponse{
					Status:    "error",
					Message:   "Internal server error",
					RequestID: requestID,
				})
				return
			}

			elapsed := time.Since(start)
			logger.Info().
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", rec.status).
				Dur("elapsed", elapsed).
				Msg("request completed")
			if s.cfg.ResponseBudget > 0 && elapsed > s.cfg.ResponseBudget {
				logger.Warn().
					Dur("elapsed", elapsed).
					Dur("budget", s.cfg.ResponseBudget).
					Msg("request exceeded response budget")
			}
		}()

		next.ServeHTTP(rec, r.WithContext(ctx))
	})
}

// withCORS applies the configured origin allow-list to GET/POST.
func (s *Server) withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if origin != "" && s.originAllowed(origin) {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Vary", "Origin")
			w.Header().Set("Access-Control-Allow-Credentials", "true")
		}
		if r.Method == http.MethodOptions {
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST")
			w.Header().Set("Access-Control-Allow-Headers", "*")
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) originAllowed(origin string) bool {
	return slices.Contains(s.cfg.AllowedOrigins, "*") ||
		slices.Contains(s.cfg.AllowedOrigins, origin)
}
