package lemonsqueezy

import "errors"

var (
	ErrMissingSignature = errors.New("missing webhook signature")
	ErrInvalidSignature = errors.New("invalid webhook signature")
	ErrMalformedPayload = errors.New("malformed webhook payload")
	ErrNotConfigured    = errors.New("lemon squeezy api key is not configured")
	ErrNoStore          = errors.New("no lemon squeezy store available")
	ErrAPI              = errors.New("lemon squeezy api error")
)
