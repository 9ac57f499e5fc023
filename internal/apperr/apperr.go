// Package apperr carries a machine-readable failure kind from the layer that
// detected the failure to the HTTP boundary, so handlers never inspect error
// message text.
package apperr

import (
	"errors"
	"net/http"
)

type Kind string

const (
	KindConfig       Kind = "config"
	KindValidation   Kind = "validation"
	KindUnavailable  Kind = "unavailable"
	KindForbidden    Kind = "forbidden"
	KindRateLimited  Kind = "rate_limited"
	KindUpstream     Kind = "upstream"
	KindInsufficient Kind = "insufficient_balance"
	KindInternal     Kind = "internal"
)

type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

func Wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// KindOf extracts the kind from an error chain, defaulting to internal.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// FromStatus classifies an upstream HTTP status into a kind.
func FromStatus(status int) Kind {
	switch {
	case status == http.StatusNotFound:
		return KindUnavailable
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return KindForbidden
	case status == http.StatusTooManyRequests:
		return KindRateLimited
	default:
		return KindUpstream
	}
}

// UserMessage maps a kind to the message shown to the end user.
func UserMessage(kind Kind) string {
	switch kind {
	case KindConfig:
		return "This service is not configured. Please contact support."
	case KindValidation:
		return "Please fill in all required fields."
	case KindUnavailable:
		return "The service is currently unavailable. Please try again later."
	case KindForbidden:
		return "Access denied by the upstream service."
	case KindRateLimited:
		return "Too many requests. Please try again in a moment."
	case KindInsufficient:
		return "Insufficient wallet balance. Please top up to continue."
	default:
		return "Something went wrong. Please try again."
	}
}

// HTTPStatus maps a kind to the status code returned by this API.
func HTTPStatus(kind Kind) int {
	switch kind {
	case KindValidation:
		return http.StatusBadRequest
	case KindConfig:
		return http.StatusServiceUnavailable
	case KindUnavailable, KindForbidden, KindUpstream:
		return http.StatusBadGateway
	case KindRateLimited:
		return http.StatusTooManyRequests
	case KindInsufficient:
		return http.StatusPaymentRequired
	default:
		return http.StatusInternalServerError
	}
}
