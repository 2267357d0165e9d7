package exchange

import (
	"errors"
	"fmt"
)

// ErrAuth marks an authentication/authorization rejection from the venue.
// Gateways wrap 401/403-class responses with this sentinel so callers can
// distinguish "bad credentials" from transient infrastructure failures.
var ErrAuth = errors.New("exchange: authentication failed")

// ErrUnsupported marks an operation the venue cannot perform at all
// (as opposed to the no-op futures surface on spot-only venues).
var ErrUnsupported = errors.New("exchange: operation not supported")

// APIError is a typed error for non-2xx venue responses.
type APIError struct {
	Venue      string
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s: status %d: %s", e.Venue, e.StatusCode, e.Body)
}

// IsAuthError reports whether err represents an authentication rejection,
// either the sentinel or a 401/403 API error.
func IsAuthError(err error) bool {
	if errors.Is(err, ErrAuth) {
		return true
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == 401 || apiErr.StatusCode == 403
	}
	return false
}
