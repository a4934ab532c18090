package service

import "errors"

var (
	// ErrInsufficientCredits is a normal outcome, not a fault: the caller is
	// offered the package catalog.
	ErrInsufficientCredits = errors.New("insufficient credits")
	// ErrLedgerUnavailable wraps every store failure; no mutation happened.
	ErrLedgerUnavailable = errors.New("credit ledger unavailable")
	ErrInvalidAmount     = errors.New("amount must be positive")
	ErrAccountNotFound   = errors.New("account not found")

	ErrInvalidForm         = errors.New("invalid design form")
	ErrGenerationFailed    = errors.New("document generation failed")
	ErrGenerationTimeout   = errors.New("document generation timed out")
	ErrGenerationNotFound  = errors.New("generation not found")
	ErrDocumentNotArchived = errors.New("generation has no archived document")

	ErrNotConfigured    = errors.New("feature is not configured")
	ErrUnknownPackage   = errors.New("unknown credit package")
	ErrInvalidSignature = errors.New("webhook signature verification failed")
	ErrCheckoutFailed   = errors.New("checkout creation failed")
)
