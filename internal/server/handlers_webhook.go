package server

import (
	"errors"
	"io"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/digkill/gddforge/internal/lemonsqueezy"
	"github.com/digkill/gddforge/internal/service"
)

const maxWebhookBytes = 1 << 20

func (s *Server) handleWebhookStatus(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "Webhook endpoint active"})
}

// handleWebhook is the public endpoint for Lemon Squeezy order notifications.
// The signature covers the raw body, so it is read before any decoding.
func (s *Server) handleWebhook(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxWebhookBytes))
	if err != nil {
		// Nothing was read that could be verified or credited; a redelivery would fail the same way.
		zerolog.Ctx(r.Context()).Error().Err(err).Msg("webhook body unreadable, no credits granted")
		s.writeJSON(w, http.StatusOK, map[string]any{"received": true, "outcome": service.WebhookIgnored})
		return
	}

	res, err := s.checkout.HandleWebhook(r.Context(), body, r.Header.Get(lemonsqueezy.SignatureHeader))
	switch {
	case err == nil:
	case errors.Is(err, service.ErrInvalidSignature):
		s.writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "Invalid signature", Code: "INVALID_SIGNATURE"})
		return
	default:
		// A 5xx makes the provider redeliver; nothing was committed.
		zerolog.Ctx(r.Context()).Error().Err(err).Msg("webhook processing failed")
		s.writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "Webhook processing failed", Code: "LEDGER_UNAVAILABLE"})
		return
	}

	zerolog.Ctx(r.Context()).Info().
		Str("outcome", string(res.Outcome)).
		Str("reason", res.Reason).
		Str("order_id", res.OrderID).
		Msg("webhook handled")
	s.writeJSON(w, http.StatusOK, map[string]any{"received": true, "outcome": res.Outcome})
}
