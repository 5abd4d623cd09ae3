package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/bogdan-lmk/twsignals/internal/alert"
)

// maxBodySize bounds inbound webhook bodies.
const maxBodySize = 1 << 20

type webhookResponse struct {
	Status    string             `json:"status"`
	Message   string             `json:"message,omitempty"`
	RequestID string             `json:"request_id,omitempty"`
	Detail    []alert.FieldError `json:"detail,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (s *Server) handleWebhook(w http.ResponseWriter, r *http.Request) {
	requestID := RequestID(r.Context())
	logger := s.logger.With().Str("request_id", requestID).Logger()

	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodySize))
	if err != nil {
		logger.Error().Err(err).Msg("failed to read request body")
		writeJSON(w, http.StatusBadRequest, webhookResponse{
			Status: "error", Message: "Unable to read request body", RequestID: requestID,
		})
		return
	}

	signature := r.Header.Get("X-Signature")
	if s.webhook.VerifySignature {
		if err := s.verifier.Verify(body, signature); err != nil {
			logger.Warn().Err(err).Msg("webhook signature rejected")
			writeJSON(w, http.StatusForbidden, webhookResponse{
				Status: "error", Message: "Invalid webhook signature", RequestID: requestID,
			})
			return
		}
	} else {
		logger.Info().
			Bool("signature_present", signature != "").
			Int("body_size", len(body)).
			Msg("signature validation disabled")
	}

	payload, err := alert.Parse(body)
	if err != nil {
		var verr *alert.ValidationError
		if errors.As(err, &verr) {
			logger.Warn().Err(err).Msg("webhook payload failed validation")
			writeJSON(w, http.StatusUnprocessableEntity, webhookResponse{
				Status:    "error",
				Message:   "Invalid webhook data",
				RequestID: requestID,
				Detail:    verr.Fields,
			})
			return
		}
		logger.Warn().Err(err).Msg("webhook body is not valid JSON")
		writeJSON(w, http.StatusBadRequest, webhookResponse{
			Status: "error", Message: "Invalid JSON payload", RequestID: requestID,
		})
		return
	}

	if s.dispatch.Enqueue(payload, requestID) {
		logger.Info().
			Str("ticker", payload.Ticker).
			Str("signal", string(payload.Signal)).
			Str("price", payload.Price.String()).
			Msg("webhook accepted for processing")
	} else {
		// Still a 202: delivery is fire-and-forget and its loss is
		// observable only in logs.
		logger.Warn().
			Str("ticker", payload.Ticker).
			Str("signal", string(payload.Signal)).
			Msg("webhook accepted but delivery queue rejected the task")
	}

	writeJSON(w, http.StatusAccepted, webhookResponse{
		Status:    "accepted",
		Message:   "Webhook received and processing",
		RequestID: requestID,
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339Nano),
		"service":   s.appName,
		"version":   s.version,
	})
}

// handleTelegramHealth reports downstream connectivity. An unreachable
// Bot API degrades the status but never fails the probe.
func (s *Server) handleTelegramHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	resp := map[string]any{
		"status":             "healthy",
		"telegram_connected": true,
		"timestamp":          time.Now().UTC().Format(time.RFC3339Nano),
	}
	if err := s.prober.Ping(ctx); err != nil {
		s.logger.Error().Err(err).Msg("telegram health check failed")
		resp["status"] = "unhealthy"
		resp["telegram_connected"] = false
		resp["error"] = err.Error()
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"service":   s.appName,
		"version":   s.version,
		"status":    "running",
		"timestamp": time.Now().UTC().Format(time.RFC3339Nano),
	})
}
