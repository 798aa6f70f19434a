package domain

import (
	"context"
	"errors"
)

// NetworkError is the closed set of failures the remote data source reports.
type NetworkError uint8

const (
	ErrUnknown NetworkError = iota
	ErrRequestTimeout
	ErrTooManyRequests
	ErrNoInternet
	ErrServerError
	ErrSerialization
)

func (e NetworkError) Error() string {
	switch e {
	case ErrRequestTimeout:
		return "network: request timeout"
	case ErrTooManyRequests:
		return "network: too many requests"
	case ErrNoInternet:
		return "network: no internet"
	case ErrServerError:
		return "network: server error"
	case ErrSerialization:
		return "network: serialization failure"
	default:
		return "network: unknown error"
	}
}

var (
	// ErrLocal is the generic local-storage failure. It has no sub-kinds.
	ErrLocal = errors.New("local storage error")

	// ErrNoSearchResult is raised by the screen when a search matches nothing.
	ErrNoSearchResult = errors.New("no search result")
)

// IsNetworkError reports whether err carries a NetworkError and returns it.
func IsNetworkError(err error) (NetworkError, bool) {
	var netErr NetworkError
	if errors.As(err, &netErr) {
		return netErr, true
	}
	return ErrUnknown, false
}

// IsCancellation reports whether err is a context cancellation that must be
// propagated instead of being converted or masked.
func IsCancellation(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

// Message returns the user-facing text for an error kind.
func Message(err error) string {
	if netErr, ok := IsNetworkError(err); ok {
		switch netErr {
		case ErrNoInternet:
			return "No internet connection. Showing what we have."
		case ErrRequestTimeout:
			return "The request timed out. Please try again."
		case ErrSerialization:
			return "We received data we could not read."
		case ErrTooManyRequests:
			return "Too many requests. Please wait a moment."
		case ErrServerError, ErrUnknown:
			return "Something went wrong. Please try again."
		}
	}

	switch {
	case errors.Is(err, ErrNoSearchResult):
		return "No products match your search."
	case errors.Is(err, ErrLocal):
		return "Could not read saved menu data."
	default:
		return "Something went wrong. Please try again."
	}
}
