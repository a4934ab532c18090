// Package server exposes the credit ledger, checkout bridge and generation
// flow over HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/digkill/gddforge/internal/identity"
	"github.com/digkill/gddforge/internal/service"
)

type Config struct {
	Addr            string
	AdminUsername   string
	AdminPassword   string
	RequestTimeout  time.Duration
	ShutdownTimeout time.Duration
	// GenerationTimeout bounds the generate handler; the write deadline leaves room for it.
	GenerationTimeout time.Duration
}

type Server struct {
	cfg         Config
	log         zerolog.Logger
	verifier    *identity.Verifier
	ledger      *service.LedgerService
	checkout    *service.CheckoutService
	generations *service.GenerationService
	router      *chi.Mux
}

func NewServer(cfg Config, log zerolog.Logger, verifier *identity.Verifier, ledger *service.LedgerService, checkout *service.CheckoutService, generations *service.GenerationService) *Server {
	r := chi.NewRouter()
	s := &Server{
		cfg:         cfg,
		log:         log.With().Str("component", "http").Logger(),
		verifier:    verifier,
		ledger:      ledger,
		checkout:    checkout,
		generations: generations,
		router:      r,
	}

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.withLogger)
	r.Use(s.withLogging)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.handleHealth)

	r.Route("/webhook/lemonsqueezy", func(r chi.Router) {
		r.Get("/", s.handleWebhookStatus)
		r.Post("/", s.handleWebhook)
	})

	r.Route("/api", func(r chi.Router) {
		r.Get("/packages", s.handlePackages)

		r.Group(func(authed chi.Router) {
			authed.Use(s.bearerAuthMiddleware)
			authed.Post("/generate", s.handleGenerate)

			authed.Group(func(short chi.Router) {
				short.Use(middleware.Timeout(cfg.RequestTimeout))
				short.Post("/session", s.handleSession)
				short.Get("/credits", s.handleCredits)
				short.Get("/checkout/link", s.handleCheckoutLink)
				short.Post("/checkout", s.handleCreateCheckout)
				short.Get("/generations", s.handleListGenerations)
				short.Get("/generations/{id}/download", s.handleDownload)
			})
		})
	})

	r.Route("/admin", func(r chi.Router) {
		r.Use(s.basicAuthMiddleware())
		r.Get("/accounts/{userId}", s.handleAdminAccount)
		r.Post("/accounts/{userId}/grants", s.handleAdminGrant)
		r.Get("/orders", s.handleAdminOrders)
	})

	return s
}

func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      s.cfg.GenerationTimeout + 30*time.Second,
		IdleTimeout:       2 * time.Minute,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info().Str("addr", s.cfg.Addr).Msg("http server listening")
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http listen: %w", err)
			return
		}
		errCh <- nil
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}
	s.log.Info().Msg("http server stopped")
	return <-errCh
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("ok"))
}
