package core

import (
	"net/http"
	"strings"

	goerrors "github.com/goliatone/go-errors"
)

const (
	ErrorBadInput          = "AUTH_BAD_INPUT"
	ErrorInsufficientInput = "AUTH_INSUFFICIENT_INPUT"
	ErrorUnauthorized      = "AUTH_UNAUTHORIZED"
	ErrorRateLimited       = "AUTH_RATE_LIMITED"
	ErrorExternalFailure   = "AUTH_EXTERNAL_FAILURE"
	ErrorOperationFailed   = "AUTH_OPERATION_FAILED"
	ErrorInternal          = "AUTH_INTERNAL_ERROR"
)

// NewError builds the module's error envelope: category, HTTP-ish code, and
// a stable text code. Metadata is for diagnostics only and must never carry
// credentials or tokens.
func NewError(message string, category goerrors.Category, metadata map[string]any) *goerrors.Error {
	err := goerrors.New(message, category).
		WithCode(statusForCategory(category)).
		WithTextCode(TextCodeForCategory(category))
	if len(metadata) > 0 {
		err.WithMetadata(metadata)
	}
	return err
}

// WrapError attaches the envelope to an underlying failure.
func WrapError(source error, category goerrors.Category, message string, metadata map[string]any) *goerrors.Error {
	if source == nil {
		return NewError(message, category, metadata)
	}
	err := goerrors.Wrap(source, category, message).
		WithCode(statusForCategory(category)).
		WithTextCode(TextCodeForCategory(category))
	if len(metadata) > 0 {
		err.WithMetadata(metadata)
	}
	return err
}

// TextCode extracts the module text code from an error, empty when the error
// does not carry the envelope.
func TextCode(err error) string {
	var richErr *goerrors.Error
	if !goerrors.As(err, &richErr) || richErr == nil {
		return ""
	}
	return strings.TrimSpace(richErr.TextCode)
}

// IsTransient reports whether an error represents a retryable transport
// condition: a network-level failure, a timeout, a 429, or a 5xx response.
func IsTransient(err error) bool {
	var richErr *goerrors.Error
	if !goerrors.As(err, &richErr) || richErr == nil {
		return false
	}
	switch richErr.Category {
	case goerrors.CategoryRateLimit, goerrors.CategoryExternal:
		return true
	}
	return false
}

func TextCodeForCategory(category goerrors.Category) string {
	switch category {
	case goerrors.CategoryBadInput, goerrors.CategoryValidation:
		return ErrorBadInput
	case goerrors.CategoryAuth, goerrors.CategoryAuthz:
		return ErrorUnauthorized
	case goerrors.CategoryRateLimit:
		return ErrorRateLimited
	case goerrors.CategoryExternal:
		return ErrorExternalFailure
	case goerrors.CategoryOperation:
		return ErrorOperationFailed
	default:
		return ErrorInternal
	}
}

func statusForCategory(category goerrors.Category) int {
	switch category {
	case goerrors.CategoryBadInput, goerrors.CategoryValidation:
		return http.StatusBadRequest
	case goerrors.CategoryAuth:
		return http.StatusUnauthorized
	case goerrors.CategoryAuthz:
		return http.StatusForbidden
	case goerrors.CategoryRateLimit:
		return http.StatusTooManyRequests
	case goerrors.CategoryExternal:
		return http.StatusBadGateway
	case goerrors.CategoryOperation:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}
