package pipeline

import (
	"errors"
	"fmt"

	"paperforge/internal/models"
	"paperforge/internal/providers"
)

var (
	ErrInvalidInput        = errors.New("invalid input")
	ErrInsufficientCredits = errors.New("insufficient credits")
	ErrProviderUnavailable = errors.New("llm provider unavailable")
	ErrUpstreamGeneration  = errors.New("upstream generation failed")
	ErrStoreUnavailable    = errors.New("store unavailable")
)

// InsufficientCreditsError is returned by the balance gate. No provider call
// has been made and the balance is untouched.
type InsufficientCreditsError struct {
	Required  int64
	Available int64
}

func (e *InsufficientCreditsError) Error() string {
	return fmt.Sprintf("insufficient credits: required %d, available %d", e.Required, e.Available)
}

func (e *InsufficientCreditsError) Unwrap() error { return ErrInsufficientCredits }

// GenerationError wraps a failed provider call. Charged is what was debited
// for earlier stages of the same request before the failure.
type GenerationError struct {
	Kind    models.Kind
	Charged int64
	Err     error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("generate %s: %v", e.Kind, e.Err)
}

func (e *GenerationError) Unwrap() []error {
	return []error{e.sentinel(), e.Err}
}

func (e *GenerationError) sentinel() error {
	if errors.Is(e.Err, providers.ErrUnavailable) {
		return ErrProviderUnavailable
	}
	return ErrUpstreamGeneration
}
