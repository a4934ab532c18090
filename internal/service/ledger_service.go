package service

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/digkill/gddforge/internal/models"
	"github.com/digkill/gddforge/pkg/textutil"
)

// Column widths of the accounts table.
const (
	maxEmailLen       = 320
	maxDisplayNameLen = 255
	maxLabelLen       = 64
)

// LedgerService owns the credit balance invariants. Every mutation is a single
// conditional statement in the store; no balance is ever written back from memory.
type LedgerService struct {
	accounts        AccountStore
	freeTierCredits int
	log             zerolog.Logger
}

func NewLedgerService(accounts AccountStore, freeTierCredits int, log zerolog.Logger) *LedgerService {
	return &LedgerService{
		accounts:        accounts,
		freeTierCredits: freeTierCredits,
		log:             log.With().Str("component", "ledger").Logger(),
	}
}

func (s *LedgerService) FreeTierCredits() int {
	return s.freeTierCredits
}

// GetBalance returns 0 for users without an account and never creates one.
func (s *LedgerService) GetBalance(ctx context.Context, userID string) (int, error) {
	acc, err := s.accounts.Get(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("%w: get balance: %w", ErrLedgerUnavailable, err)
	}
	if acc == nil {
		return 0, nil
	}
	return acc.Credits, nil
}

// Account returns nil when the user has no account yet.
func (s *LedgerService) Account(ctx context.Context, userID string) (*models.Account, error) {
	acc, err := s.accounts.Get(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("%w: get account: %w", ErrLedgerUnavailable, err)
	}
	return acc, nil
}

// EnsureAccount creates the account with the free tier grant if it does not exist.
// An existing account is never overwritten.
func (s *LedgerService) EnsureAccount(ctx context.Context, userID, email, displayName string) (bool, error) {
	email = textutil.Truncate(email, maxEmailLen)
	displayName = textutil.Truncate(displayName, maxDisplayNameLen)
	created, err := s.accounts.CreateIfAbsent(ctx, userID, email, displayName, s.freeTierCredits)
	if err != nil {
		return false, fmt.Errorf("%w: ensure account: %w", ErrLedgerUnavailable, err)
	}
	if created {
		s.log.Info().Str("user_id", userID).Int("credits", s.freeTierCredits).Msg("account created")
	}
	return created, nil
}

// TryDeduct reports false, with no mutation, when the balance does not cover amount.
func (s *LedgerService) TryDeduct(ctx context.Context, userID string, amount int) (bool, error) {
	if amount < 1 {
		return false, ErrInvalidAmount
	}
	ok, err := s.accounts.ConsumeCredits(ctx, userID, amount)
	if err != nil {
		return false, fmt.Errorf("%w: deduct: %w", ErrLedgerUnavailable, err)
	}
	if !ok {
		s.log.Debug().Str("user_id", userID).Int("amount", amount).Msg("deduction refused")
	}
	return ok, nil
}

// Grant adds purchased credits. Deduplication is the caller's concern.
func (s *LedgerService) Grant(ctx context.Context, userID string, amount int, label string) error {
	if amount < 1 {
		return ErrInvalidAmount
	}
	label = textutil.Truncate(label, maxLabelLen)
	ok, err := s.accounts.AddCredits(ctx, userID, amount, label)
	if err != nil {
		return fmt.Errorf("%w: grant: %w", ErrLedgerUnavailable, err)
	}
	if !ok {
		return fmt.Errorf("%w: %s", ErrAccountNotFound, userID)
	}
	s.log.Info().Str("user_id", userID).Int("amount", amount).Str("package", label).Msg("credits granted")
	return nil
}
