package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/digkill/gddforge/internal/identity"
	"github.com/digkill/gddforge/internal/models"
	"github.com/digkill/gddforge/internal/service"
)

// errorKinds maps sentinel errors to HTTP status and the stable machine code
// clients switch on. The first match wins.
var errorKinds = []struct {
	err    error
	status int
	code   string
}{
	{identity.ErrMissingToken, http.StatusUnauthorized, "UNAUTHENTICATED"},
	{identity.ErrInvalidToken, http.StatusUnauthorized, "UNAUTHENTICATED"},
	{identity.ErrTokenExpired, http.StatusUnauthorized, "TOKEN_EXPIRED"},

	{service.ErrLedgerUnavailable, http.StatusServiceUnavailable, "LEDGER_UNAVAILABLE"},
	{service.ErrNotConfigured, http.StatusServiceUnavailable, "NOT_CONFIGURED"},
	{service.ErrInsufficientCredits, http.StatusPaymentRequired, "INSUFFICIENT_CREDITS"},
	{service.ErrInvalidAmount, http.StatusBadRequest, "INVALID_AMOUNT"},
	{service.ErrInvalidForm, http.StatusBadRequest, "INVALID_FORM"},
	{service.ErrUnknownPackage, http.StatusBadRequest, "UNKNOWN_PACKAGE"},
	{service.ErrAccountNotFound, http.StatusNotFound, "ACCOUNT_NOT_FOUND"},
	{service.ErrGenerationNotFound, http.StatusNotFound, "GENERATION_NOT_FOUND"},
	{service.ErrDocumentNotArchived, http.StatusNotFound, "DOCUMENT_NOT_ARCHIVED"},
	{service.ErrInvalidSignature, http.StatusUnauthorized, "INVALID_SIGNATURE"},
	{service.ErrGenerationTimeout, http.StatusGatewayTimeout, "GENERATION_TIMEOUT"},
	{service.ErrGenerationFailed, http.StatusBadGateway, "GENERATION_FAILED"},
	{service.ErrCheckoutFailed, http.StatusBadGateway, "CHECKOUT_FAILED"},
}

// publicMessages replace internal error text in responses.
var publicMessages = map[string]string{
	"UNAUTHENTICATED":      "Authentication required.",
	"TOKEN_EXPIRED":        "Session expired, please sign in again.",
	"INSUFFICIENT_CREDITS": "Insufficient credits. Please purchase more credits to continue.",
	"GENERATION_FAILED":    "Generation failed, no credits were used. Please try again.",
	"GENERATION_TIMEOUT":   "Generation timed out, no credits were used. Please try again.",
	"LEDGER_UNAVAILABLE":   "Credits are temporarily unavailable. Please try again shortly.",
	"NOT_CONFIGURED":       "This feature is not configured.",
	"CHECKOUT_FAILED":      "Could not start checkout. Please try again.",
	"INTERNAL":             "Internal error.",
}

func statusFromError(err error) int {
	status, _ := classify(err)
	return status
}

func codeFromError(err error) string {
	_, code := classify(err)
	return code
}

func classify(err error) (int, string) {
	for _, k := range errorKinds {
		if errors.Is(err, k.err) {
			return k.status, k.code
		}
	}
	return http.StatusInternalServerError, "INTERNAL"
}

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
	// Retryable is set on gateway failures; nothing was charged.
	Retryable bool                   `json:"retryable,omitempty"`
	Packages  []models.CreditPackage `json:"packages,omitempty"`
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, code := classify(err)

	msg, ok := publicMessages[code]
	if !ok {
		msg = err.Error()
	}
	if status >= http.StatusInternalServerError {
		zerolog.Ctx(r.Context()).Error().Err(err).Str("code", code).Msg("request failed")
	}

	resp := errorResponse{
		Error:     msg,
		Code:      code,
		Retryable: status == http.StatusBadGateway || status == http.StatusGatewayTimeout,
	}
	if code == "INSUFFICIENT_CREDITS" {
		resp.Packages = s.checkout.Packages()
	}
	s.writeJSON(w, status, resp)
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (s *Server) badRequest(w http.ResponseWriter, msg string) {
	s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: msg, Code: "BAD_REQUEST"})
}
