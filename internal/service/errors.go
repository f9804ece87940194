package service

import (
	"errors"
	"fmt"
)

var (
	// ErrProviderUnavailable means the image provider failed to initialize.
	ErrProviderUnavailable = errors.New("image provider unavailable")

	// ErrUpstreamMalformed means the provider answered without a usable image reference.
	ErrUpstreamMalformed = errors.New("provider returned no usable image")
)

// UpstreamError is a structured rejection from the provider (quota, filtered
// content, invalid key). Message is the provider's own text.
type UpstreamError struct {
	Provider string
	Message  string
	Err      error
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("%s API Error: %s", e.Provider, e.Message)
}

func (e *UpstreamError) Unwrap() error {
	return e.Err
}
