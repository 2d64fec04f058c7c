package errors

import (
	"errors"
	"strings"

	"github.com/gozba-na-klik/checkout-gateway/pkg/gozba"
	"gorm.io/gorm"
)

// ErrorInfo is a classified error: a stable code plus a user-facing message.
type ErrorInfo struct {
	Code    string
	Message string
}

// ParseError converts an arbitrary error into a code and a message the
// frontend can show. Sensitive details stay out of the message; the goal is
// telling the user what they can do about it.
func ParseError(err error, context string) ErrorInfo {
	if err == nil {
		return ErrorInfo{
			Code:    InternalServerError,
			Message: "Something went wrong",
		}
	}

	// 1. Suspended restaurant gets its dedicated message. The typed code is
	// checked first; the substring heuristic inside covers legacy responses.
	if gozba.IsRestaurantSuspended(err) {
		return ErrorInfo{
			Code:    RestaurantSuspended,
			Message: "This restaurant is currently suspended and cannot accept orders",
		}
	}

	// 2. Other core API errors keep their upstream code when present.
	var apiErr *gozba.APIError
	if errors.As(err, &apiErr) {
		code := apiErr.Code
		if code == "" {
			code = InternalUpstreamError
		}
		return ErrorInfo{
			Code:    code,
			Message: getDefaultErrorMessage(context),
		}
	}

	// 3. Storage errors.
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrorInfo{
			Code:    getNotFoundCode(context),
			Message: getNotFoundMessage(context),
		}
	}

	// 4. Network/connectivity errors.
	errStrLower := strings.ToLower(err.Error())
	if errors.Is(err, gozba.ErrNetwork) ||
		strings.Contains(errStrLower, "connection refused") ||
		strings.Contains(errStrLower, "no such host") ||
		strings.Contains(errStrLower, "timeout") {
		return ErrorInfo{
			Code:    InternalUpstreamError,
			Message: "Could not reach the ordering service. Please try again shortly",
		}
	}

	// 5. Default internal error.
	return ErrorInfo{
		Code:    InternalServerError,
		Message: getDefaultErrorMessage(context),
	}
}

func getNotFoundCode(context string) string {
	contextLower := strings.ToLower(context)

	if strings.Contains(contextLower, "cart") {
		return CartLineNotFound
	}
	if strings.Contains(contextLower, "restaurant") {
		return RestaurantNotFound
	}
	if strings.Contains(contextLower, "address") {
		return AddressNotFound
	}
	if strings.Contains(contextLower, "checkout") {
		return CheckoutSessionNotFound
	}
	return InternalDatabaseError
}

func getNotFoundMessage(context string) string {
	contextLower := strings.ToLower(context)

	if strings.Contains(contextLower, "cart") {
		return "Cart item not found"
	}
	if strings.Contains(contextLower, "restaurant") {
		return "Restaurant not found"
	}
	if strings.Contains(contextLower, "address") {
		return "Address not found"
	}
	if strings.Contains(contextLower, "checkout") {
		return "Checkout session not found"
	}
	return "Requested data not found"
}

func getDefaultErrorMessage(context string) string {
	contextLower := strings.ToLower(context)

	if strings.Contains(contextLower, "preview") {
		return "Could not price your order. Please try again"
	}
	if strings.Contains(contextLower, "submit") || strings.Contains(contextLower, "create") {
		return "Could not place your order. Please try again"
	}
	if strings.Contains(contextLower, "address") {
		return "Could not save the address. Please try again"
	}
	return "Something went wrong. Please try again later"
}
