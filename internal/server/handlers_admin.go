package server

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/digkill/gddforge/internal/models"
	"github.com/digkill/gddforge/internal/service"
)

func (s *Server) handleAdminAccount(w http.ResponseWriter, r *http.Request) {
	acc, err := s.ledger.Account(r.Context(), chi.URLParam(r, "userId"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if acc == nil {
		s.writeError(w, r, service.ErrAccountNotFound)
		return
	}
	s.writeJSON(w, http.StatusOK, acc)
}

type grantRequest struct {
	Amount int    `json:"amount"`
	Label  string `json:"label"`
}

// handleAdminGrant credits an existing account by hand, e.g. after a support request.
func (s *Server) handleAdminGrant(w http.ResponseWriter, r *http.Request) {
	var req grantRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.badRequest(w, "invalid json")
		return
	}
	label := strings.TrimSpace(req.Label)
	if label == "" {
		label = "manual"
	}
	if err := s.ledger.Grant(r.Context(), chi.URLParam(r, "userId"), req.Amount, label); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleAdminOrders(w http.ResponseWriter, r *http.Request) {
	limit, ok := parseLimit(r, 50)
	if !ok {
		s.badRequest(w, "invalid limit")
		return
	}
	orders, err := s.checkout.RecentOrders(r.Context(), limit)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if orders == nil {
		orders = []models.ProcessedOrder{}
	}
	s.writeJSON(w, http.StatusOK, orders)
}
