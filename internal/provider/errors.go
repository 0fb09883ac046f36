package provider

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
)

// Category classifies a provider failure for retry decisions and for the
// provider_<category> error codes written into game records.
type Category string

const (
	CategoryAuth              Category = "auth"
	CategoryInvalidRequest    Category = "invalid_request"
	CategoryRateLimit         Category = "rate_limit"
	CategoryServer            Category = "server"
	CategoryNetwork           Category = "network"
	CategoryTimeout           Category = "timeout"
	CategoryInvalidResponse   Category = "invalid_response"
	CategoryEngineUnavailable Category = "engine_unavailable"
	CategoryUnknownProvider   Category = "unknown_provider"
	CategoryUnknown           Category = "unknown"
)

// Error is a categorized provider failure.
type Error struct {
	Category  Category
	Provider  string
	Msg       string
	Status    int   // HTTP status when known, else 0
	Retryable *bool // explicit override; nil defers to category/status rules
	Err       error
}

func (e *Error) Error() string {
	var b strings.Builder
	if e.Provider != "" {
		b.WriteString(e.Provider)
		b.WriteString(": ")
	}
	fmt.Fprintf(&b, "%s", e.Category)
	if e.Msg != "" {
		b.WriteString(": ")
		b.WriteString(e.Msg)
	}
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	return b.String()
}

func (e *Error) Unwrap() error { return e.Err }

// Code renders the error code stored on game records.
func (e *Error) Code() string { return "provider_" + string(e.Category) }

// nonRetryableCategories fail permanently; retrying cannot help.
var nonRetryableCategories = map[Category]bool{
	CategoryAuth:            true,
	CategoryInvalidRequest:  true,
	CategoryUnknownProvider: true,
}

// ShouldRetry decides whether another provider attempt may succeed.
// Precedence: an explicit Retryable flag, then the HTTP status, then the
// category, then keyword heuristics on the message. Unclassifiable errors
// default to retry, since transient faults dominate in practice.
func ShouldRetry(err error) bool {
	if err == nil {
		return false
	}
	var pe *Error
	if errors.As(err, &pe) {
		if pe.Retryable != nil {
			return *pe.Retryable
		}
		switch pe.Status {
		case 429, 500, 502, 503, 504:
			return true
		case 400, 401, 403, 404, 422:
			return false
		}
		if nonRetryableCategories[pe.Category] {
			return false
		}
		if pe.Category != CategoryUnknown {
			return true
		}
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	return retryableByKeyword(err.Error())
}

func retryableByKeyword(msg string) bool {
	lower := strings.ToLower(msg)
	for _, kw := range []string{"invalid api key", "unauthorized", "permission", "not found", "unsupported"} {
		if strings.Contains(lower, kw) {
			return false
		}
	}
	// Transient faults and anything we cannot classify get another attempt.
	return true
}

// Categorize wraps an arbitrary backend error into the taxonomy using the
// HTTP status when available and message keywords otherwise.
func Categorize(providerName string, status int, err error) *Error {
	var pe *Error
	if errors.As(err, &pe) {
		return pe
	}

	cat := CategoryUnknown
	switch {
	case status == 401 || status == 403:
		cat = CategoryAuth
	case status == 400 || status == 404 || status == 422:
		cat = CategoryInvalidRequest
	case status == 429:
		cat = CategoryRateLimit
	case status >= 500:
		cat = CategoryServer
	case errors.Is(err, context.DeadlineExceeded):
		cat = CategoryTimeout
	default:
		cat = categoryByKeyword(err)
	}
	return &Error{Category: cat, Provider: providerName, Status: status, Err: err}
}

func categoryByKeyword(err error) Category {
	var netErr net.Error
	if errors.As(err, &netErr) {
		if netErr.Timeout() {
			return CategoryTimeout
		}
		return CategoryNetwork
	}
	lower := strings.ToLower(err.Error())
	switch {
	case strings.Contains(lower, "timeout") || strings.Contains(lower, "deadline"):
		return CategoryTimeout
	case strings.Contains(lower, "rate limit") || strings.Contains(lower, "quota"):
		return CategoryRateLimit
	case strings.Contains(lower, "connection") || strings.Contains(lower, "reset") || strings.Contains(lower, "refused"):
		return CategoryNetwork
	case strings.Contains(lower, "unauthorized") || strings.Contains(lower, "api key"):
		return CategoryAuth
	case strings.Contains(lower, "overloaded") || strings.Contains(lower, "unavailable") || strings.Contains(lower, "internal"):
		return CategoryServer
	}
	return CategoryUnknown
}
