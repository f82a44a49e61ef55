package netatmo

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidMode indicates a thermostat mode outside schedule/away/hg.
	// It is returned before any network call is made.
	ErrInvalidMode = errors.New("invalid thermostat mode")

	// ErrNotAuthenticated indicates no usable credentials are held and
	// re-authentication failed.
	ErrNotAuthenticated = errors.New("not authenticated")
)

// APIError is a non-2xx answer from the vendor API. The original HTTP
// status and the vendor's message are preserved so callers (notably the
// REST facade) can relay them unchanged.
type APIError struct {
	StatusCode int
	Message    string
	Endpoint   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("netatmo %s: status %d: %s", e.Endpoint, e.StatusCode, e.Message)
}

// IsAuthError reports whether err is a vendor rejection that a token
// refresh might cure.
func IsAuthError(err error) bool {
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	return apiErr.StatusCode == 401 || apiErr.StatusCode == 403
}
