package gozba

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// CodeRestaurantSuspended is the typed error code newer core API versions
// return when a restaurant is administratively blocked from taking orders.
const CodeRestaurantSuspended = "RESTAURANT_SUSPENDED"

var (
	// ErrInvalidConfig is returned when the client configuration is incomplete.
	ErrInvalidConfig = errors.New("invalid gozba client config")

	// ErrNetwork is returned when the core API cannot be reached.
	ErrNetwork = errors.New("gozba core api unreachable")
)

// APIError is a non-2xx response from the core API.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("gozba core api error (status %d, code %s): %s", e.StatusCode, e.Code, e.Message)
}

// IsRestaurantSuspended reports whether err signals the suspended-restaurant
// condition. The typed error code is the primary signal; older core API
// deployments only send a bad request with a human-readable message, so a
// substring match is kept as a legacy fallback.
func IsRestaurantSuspended(err error) bool {
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	if apiErr.Code == CodeRestaurantSuspended {
		return true
	}
	return apiErr.StatusCode == http.StatusBadRequest &&
		strings.Contains(strings.ToLower(apiErr.Message), "suspend")
}
