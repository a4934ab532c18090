package llm

import "errors"

var (
	ErrNotConfigured = errors.New("generation api key is not configured")
	ErrUpstream      = errors.New("generation gateway error")
	ErrTimeout       = errors.New("generation gateway timed out")
	ErrEmptyReply    = errors.New("generation gateway returned no text")
)
