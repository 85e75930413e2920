package domain

import "errors"

var (
	ErrNotFound              = errors.New("not found")
	ErrInvalidPrompt         = errors.New("invalid prompt")
	ErrAllProvidersExhausted = errors.New("all providers exhausted")
)
