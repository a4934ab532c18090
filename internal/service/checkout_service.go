package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/digkill/gddforge/internal/lemonsqueezy"
	"github.com/digkill/gddforge/internal/models"
	"github.com/digkill/gddforge/pkg/textutil"
)

type WebhookOutcome string

const (
	WebhookCredited  WebhookOutcome = "credited"
	WebhookIgnored   WebhookOutcome = "ignored"
	WebhookDuplicate WebhookOutcome = "duplicate"
)

type WebhookResult struct {
	Outcome WebhookOutcome
	Reason  string
	OrderID string
	UserID  string
	Credits int
}

type CheckoutConfig struct {
	WebhookSecret string
	PublicAppURL  string
}

// CheckoutService bridges the payment provider and the ledger: it builds
// purchase links and applies verified purchase notifications exactly once.
type CheckoutService struct {
	cfg     CheckoutConfig
	catalog PackageCatalog
	ledger  *LedgerService
	orders  OrderStore
	tx      Transactor
	api     CheckoutCreator
	log     zerolog.Logger
}

func NewCheckoutService(cfg CheckoutConfig, catalog PackageCatalog, ledger *LedgerService, orders OrderStore, tx Transactor, api CheckoutCreator, log zerolog.Logger) *CheckoutService {
	return &CheckoutService{
		cfg:     cfg,
		catalog: catalog,
		ledger:  ledger,
		orders:  orders,
		tx:      tx,
		api:     api,
		log:     log.With().Str("component", "checkout").Logger(),
	}
}

func (s *CheckoutService) Packages() []models.CreditPackage {
	return s.catalog.Packages()
}

// PurchaseLink returns the hosted checkout URL of a package carrying the user id.
func (s *CheckoutService) PurchaseLink(packageID, userID, email string) (string, error) {
	pkg, ok := s.catalog.ByID(packageID)
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownPackage, packageID)
	}
	if pkg.CheckoutURL == "" {
		return "", fmt.Errorf("%w: package %q has no checkout url", ErrNotConfigured, pkg.ID)
	}
	return lemonsqueezy.BuildCheckoutURL(pkg.CheckoutURL, userID, email)
}

// CreateCheckout creates a checkout session through the provider API.
func (s *CheckoutService) CreateCheckout(ctx context.Context, packageID, userID, email string) (string, error) {
	pkg, ok := s.catalog.ByID(packageID)
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownPackage, packageID)
	}
	if s.api == nil {
		return "", fmt.Errorf("%w: checkout api", ErrNotConfigured)
	}

	url, err := s.api.CreateCheckout(ctx, lemonsqueezy.CheckoutRequest{
		VariantID:   pkg.ExternalVariantID,
		UserID:      userID,
		Email:       email,
		RedirectURL: s.cfg.PublicAppURL + "/generator?purchase=success",
	})
	if err != nil {
		if errors.Is(err, lemonsqueezy.ErrNotConfigured) {
			return "", fmt.Errorf("%w: %w", ErrNotConfigured, err)
		}
		return "", fmt.Errorf("%w: %w", ErrCheckoutFailed, err)
	}
	return url, nil
}

// HandleWebhook verifies and applies a purchase notification.
//
// Only signature failures and store failures are returned as errors; every
// other outcome, including an unparsable payload, is acknowledged.
// Store failures leave no processed-order marker behind, so a redelivery is applied once.
func (s *CheckoutService) HandleWebhook(ctx context.Context, body []byte, signature string) (WebhookResult, error) {
	if s.cfg.WebhookSecret != "" {
		if err := lemonsqueezy.VerifySignature(s.cfg.WebhookSecret, body, signature); err != nil {
			s.log.Warn().Err(err).Msg("webhook rejected")
			return WebhookResult{}, fmt.Errorf("%w: %w", ErrInvalidSignature, err)
		}
	}

	evt, err := lemonsqueezy.ParseOrderEvent(body)
	if err != nil {
		// Redelivering the same bytes cannot succeed, so the delivery is acknowledged.
		s.log.Error().Err(err).Str("body", textutil.Excerpt(body, 512)).Msg("webhook payload malformed, no credits granted")
		return WebhookResult{Outcome: WebhookIgnored, Reason: "malformed_payload"}, nil
	}

	log := s.log.With().
		Str("event", evt.EventType).
		Str("order_id", evt.OrderID).
		Str("user_id", evt.UserID).
		Str("variant_id", evt.VariantID).
		Logger()

	if !evt.Actionable() {
		log.Info().Str("status", evt.Status).Msg("webhook ignored")
		return WebhookResult{Outcome: WebhookIgnored, Reason: "not_actionable", OrderID: evt.OrderID, UserID: evt.UserID}, nil
	}

	pkg, ok := s.catalog.ByVariant(evt.VariantID)
	if !ok {
		log.Warn().Msg("webhook for unknown variant, no credits granted")
		return WebhookResult{Outcome: WebhookIgnored, Reason: "unknown_variant", OrderID: evt.OrderID, UserID: evt.UserID}, nil
	}

	if evt.OrderID == "" {
		log.Error().Msg("paid order without order id, cannot deduplicate")
		return WebhookResult{Outcome: WebhookIgnored, Reason: "missing_order_id", UserID: evt.UserID}, nil
	}

	result := WebhookResult{OrderID: evt.OrderID, UserID: evt.UserID, Credits: pkg.Credits}
	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		recorded, err := s.orders.Record(ctx, models.ProcessedOrder{
			OrderID:    evt.OrderID,
			UserID:     evt.UserID,
			VariantID:  evt.VariantID,
			PackageID:  pkg.ID,
			Credits:    pkg.Credits,
			Status:     evt.Status,
			RawPayload: string(body),
		})
		if err != nil {
			return fmt.Errorf("%w: record order: %w", ErrLedgerUnavailable, err)
		}
		if !recorded {
			result.Outcome = WebhookDuplicate
			return nil
		}

		if _, err := s.ledger.EnsureAccount(ctx, evt.UserID, evt.Email, ""); err != nil {
			return err
		}
		if err := s.ledger.Grant(ctx, evt.UserID, pkg.Credits, pkg.Name); err != nil {
			return err
		}
		result.Outcome = WebhookCredited
		return nil
	})
	if err != nil {
		log.Error().Err(err).Msg("webhook grant failed")
		if !errors.Is(err, ErrLedgerUnavailable) {
			err = fmt.Errorf("%w: %w", ErrLedgerUnavailable, err)
		}
		return WebhookResult{}, err
	}

	switch result.Outcome {
	case WebhookDuplicate:
		log.Info().Msg("order already processed")
	case WebhookCredited:
		log.Info().Int("credits", pkg.Credits).Str("package", pkg.ID).Msg("order credited")
	}
	return result, nil
}

func (s *CheckoutService) RecentOrders(ctx context.Context, limit int) ([]models.ProcessedOrder, error) {
	orders, err := s.orders.ListRecent(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("%w: list orders: %w", ErrLedgerUnavailable, err)
	}
	return orders, nil
}
