package router

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrModelNotFound means the provider does not know the requested model
	ErrModelNotFound = errors.New("model not found")
	// ErrAuthentication means the provider rejected the credentials
	ErrAuthentication = errors.New("authentication failed")
	// ErrRateLimit means the provider asked us to back off
	ErrRateLimit = errors.New("rate limited")
	// ErrProvider covers every other dispatch failure
	ErrProvider = errors.New("provider error")
	// ErrEmptyCatalog means no models are available to select from
	ErrEmptyCatalog = errors.New("no AI models configured")
	// ErrInterrupted signals cooperative cancellation; it is not a failure
	ErrInterrupted = errors.New("interrupted")
	// ErrAllModelsFailed is reported when the whole fallback chain failed
	ErrAllModelsFailed = errors.New("all AI models failed")
)

// DispatchError is a normalized provider failure
type DispatchError struct {
	Provider   Provider
	Model      string
	StatusCode int
	Kind       error
	Err        error
}

func (e *DispatchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s/%s: %v (status %d): %v", e.Provider, e.Model, e.Kind, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s/%s: %v: %v", e.Provider, e.Model, e.Kind, e.Err)
}

// Unwrap exposes both the error kind and the underlying cause
func (e *DispatchError) Unwrap() []error {
	return []error{e.Kind, e.Err}
}

// KindForStatus maps an HTTP status to an error kind
func KindForStatus(status int) error {
	switch status {
	case http.StatusNotFound:
		return ErrModelNotFound
	case http.StatusUnauthorized, http.StatusForbidden:
		return ErrAuthentication
	case http.StatusTooManyRequests:
		return ErrRateLimit
	default:
		return ErrProvider
	}
}

// NewDispatchError wraps err, classifying it by HTTP status when one is known
func NewDispatchError(p Provider, model string, status int, err error) *DispatchError {
	return &DispatchError{
		Provider:   p,
		Model:      model,
		StatusCode: status,
		Kind:       KindForStatus(status),
		Err:        err,
	}
}
