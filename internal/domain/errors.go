package domain

import "errors"

var (
	ErrNotFound          = errors.New("not found")
	ErrInvalidPrompt     = errors.New("invalid prompt")
	ErrNoAssets          = errors.New("cannot generate: missing assets")
	ErrInvalidTransition = errors.New("invalid job status transition")
	ErrProviderFailure   = errors.New("provider failure")
)
