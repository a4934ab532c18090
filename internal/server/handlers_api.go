package server

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/digkill/gddforge/internal/models"
)

const maxFormBytes = 1 << 20

func (s *Server) handlePackages(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]any{"packages": s.checkout.Packages()})
}

type sessionResponse struct {
	Account *models.Account `json:"account"`
	Created bool            `json:"created"`
}

// handleSession runs on first sight of a signed-in user and creates the account if needed.
func (s *Server) handleSession(w http.ResponseWriter, r *http.Request) {
	id := callerIdentity(r)
	created, err := s.ledger.EnsureAccount(r.Context(), id.UserID, id.Email, id.Name)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	acc, err := s.ledger.Account(r.Context(), id.UserID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, sessionResponse{Account: acc, Created: created})
}

type creditsResponse struct {
	Credits int  `json:"credits"`
	Stale   bool `json:"stale,omitempty"`
}

// handleCredits never fails the page: an unreachable ledger reads as 0, flagged stale.
func (s *Server) handleCredits(w http.ResponseWriter, r *http.Request) {
	balance, err := s.ledger.GetBalance(r.Context(), callerIdentity(r).UserID)
	if err != nil {
		zerolog.Ctx(r.Context()).Error().Err(err).Msg("read balance")
		s.writeJSON(w, http.StatusOK, creditsResponse{Credits: 0, Stale: true})
		return
	}
	s.writeJSON(w, http.StatusOK, creditsResponse{Credits: balance})
}

func (s *Server) handleCheckoutLink(w http.ResponseWriter, r *http.Request) {
	pkgID := strings.TrimSpace(r.URL.Query().Get("package"))
	if pkgID == "" {
		s.badRequest(w, "package is required")
		return
	}
	id := callerIdentity(r)
	link, err := s.checkout.PurchaseLink(pkgID, id.UserID, id.Email)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"url": link})
}

type checkoutRequest struct {
	PackageID string `json:"packageId"`
}

func (s *Server) handleCreateCheckout(w http.ResponseWriter, r *http.Request) {
	var req checkoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.badRequest(w, "invalid json")
		return
	}
	if strings.TrimSpace(req.PackageID) == "" {
		s.badRequest(w, "packageId is required")
		return
	}
	id := callerIdentity(r)
	link, err := s.checkout.CreateCheckout(r.Context(), req.PackageID, id.UserID, id.Email)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"checkoutUrl": link})
}

type generateRequest struct {
	FormData models.GDDForm `json:"formData"`
}

type generateResponse struct {
	ID string `json:"id"`
	models.GDDResult
	Deducted         bool   `json:"deducted"`
	CreditsRemaining *int   `json:"creditsRemaining,omitempty"`
	Warning          string `json:"warning,omitempty"`
	Archived         bool   `json:"archived"`
}

func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	var req generateRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxFormBytes)).Decode(&req); err != nil {
		s.badRequest(w, "invalid json")
		return
	}

	out, err := s.generations.Generate(r.Context(), callerIdentity(r).UserID, req.FormData)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, generateResponse{
		ID:               out.ID,
		GDDResult:        out.Result,
		Deducted:         out.Deducted,
		CreditsRemaining: out.Credits,
		Warning:          out.Warning,
		Archived:         out.Archived,
	})
}

func (s *Server) handleListGenerations(w http.ResponseWriter, r *http.Request) {
	limit, ok := parseLimit(r, 20)
	if !ok {
		s.badRequest(w, "invalid limit")
		return
	}
	list, err := s.generations.List(r.Context(), callerIdentity(r).UserID, limit)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if list == nil {
		list = []models.Generation{}
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"generations": list})
}

func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	link, err := s.generations.DownloadURL(r.Context(), callerIdentity(r).UserID, chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"url": link})
}

func parseLimit(r *http.Request, def int) (int, bool) {
	raw := strings.TrimSpace(r.URL.Query().Get("limit"))
	if raw == "" {
		return def, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 || n > 200 {
		return 0, false
	}
	return n, true
}
