package swapengine

import (
	"errors"
	"fmt"
	"net/http"
	"unicode/utf8"

	"github.com/aman-zulfiqar/goblin-executor/internal/constants"
)

// Code is the stable, machine-readable failure tag returned to callers.
type Code string

const (
	CodeInvalidRequest      Code = "INVALID_REQUEST"
	CodeInvalidPayer        Code = "INVALID_PAYER"
	CodeInvalidAmount       Code = "INVALID_AMOUNT"
	CodeRouteHintRequired   Code = "ROUTE_HINT_REQUIRED"
	CodeRouteNotFound       Code = "ROUTE_NOT_FOUND"
	CodeInsufficientSOL     Code = "INSUFFICIENT_SOL"
	CodeRequoteRequired     Code = "REQUOTE_REQUIRED"
	CodeSwapFailed          Code = "SWAP_FAILED"
	CodeConfigMissing       Code = "CONFIG_MISSING"
	CodeUpstreamUnavailable Code = "UPSTREAM_UNAVAILABLE"
	CodeUnexpected          Code = "UNEXPECTED"
)

// Error is the tagged failure result of an engine operation.
type Error struct {
	Code    Code
	Status  int
	Message string
	Details map[string]any
	Logs    []string // simulation logs, nil when none were captured

	cause error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.cause }

func newError(code Code, status int, msg string) *Error {
	return &Error{Code: code, Status: status, Message: msg}
}

// upstream builds an error whose message carries a truncated form of cause.
func upstream(code Code, status int, prefix string, cause error) *Error {
	return &Error{
		Code:    code,
		Status:  status,
		Message: Truncate(prefix + ": " + cause.Error()),
		cause:   cause,
	}
}

func (e *Error) with(key string, v any) *Error {
	if e.Details == nil {
		e.Details = map[string]any{}
	}
	e.Details[key] = v
	return e
}

// AsError returns err as an *Error, mapping anything untagged to UNEXPECTED.
func AsError(err error) *Error {
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return &Error{
		Code:    CodeUnexpected,
		Status:  http.StatusInternalServerError,
		Message: Truncate(err.Error()),
		cause:   err,
	}
}

// Truncate cuts s to the diagnostic length limit without splitting a rune.
func Truncate(s string) string {
	if len(s) <= constants.MaxDiagnosticLength {
		return s
	}
	cut := constants.MaxDiagnosticLength
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}
