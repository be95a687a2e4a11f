package services

import (
	"errors"
	"fmt"
)

// ErrQuotaExhausted is returned by the quota manager when a device has no
// free trial and no paid tokens left.
var ErrQuotaExhausted = errors.New("No tokens remaining. Please purchase more.")

// ErrUnknownProduct is returned when a checkout names a product id that is
// not in the configured mapping. Surfaced as a client error.
var ErrUnknownProduct = errors.New("unknown product")

// UpstreamError reports a non-success response from an external provider.
// The body is kept for diagnostics; it is logged, never returned to clients.
type UpstreamError struct {
	Service    string
	StatusCode int
	Body       string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("%s API error: status %d", e.Service, e.StatusCode)
}

// MalformedResponseError reports a provider response that did not parse
// into the expected structure. It is never coerced into a default result.
type MalformedResponseError struct {
	Reason string
}

func (e *MalformedResponseError) Error() string {
	return "malformed provider response: " + e.Reason
}

// ConfigurationError reports missing or invalid external credentials or
// product mappings.
type ConfigurationError struct {
	Setting string
}

func (e *ConfigurationError) Error() string {
	return "missing or invalid configuration: " + e.Setting
}
