package errors

// Error code constants.
// Format: CATEGORY_SPECIFIC_DETAIL
// The frontend maps these codes to localized messages.

const (
	// ==================== Authentication (AUTH_) ====================
	AuthUnauthorized = "AUTH_UNAUTHORIZED" // login required
	AuthTokenExpired = "AUTH_TOKEN_EXPIRED"
	AuthTokenInvalid = "AUTH_TOKEN_INVALID"

	// ==================== Validation (VALIDATION_) ====================
	ValidationInvalidInput = "VALIDATION_INVALID_INPUT"
	ValidationInvalidID    = "VALIDATION_INVALID_ID"
	ValidationRequired     = "VALIDATION_REQUIRED"

	// ==================== Cart (CART_) ====================
	CartEmpty           = "CART_EMPTY"
	CartLineNotFound    = "CART_LINE_NOT_FOUND"
	CartMealRequired    = "CART_MEAL_REQUIRED"    // line without a meal id
	CartInvalidQuantity = "CART_INVALID_QUANTITY" // quantity below 1
	CartIndexOutOfRange = "CART_INDEX_OUT_OF_RANGE"

	// ==================== Checkout (CHECKOUT_) ====================
	CheckoutSessionNotFound  = "CHECKOUT_SESSION_NOT_FOUND"
	CheckoutAddressRequired  = "CHECKOUT_ADDRESS_REQUIRED"
	CheckoutAllergensPending = "CHECKOUT_ALLERGENS_PENDING" // allergen warning not yet acknowledged
	CheckoutAlreadySubmitted = "CHECKOUT_ALREADY_SUBMITTED"
	CheckoutCancelled        = "CHECKOUT_CANCELLED"

	// ==================== Address (ADDRESS_) ====================
	AddressNotFound   = "ADDRESS_NOT_FOUND"
	AddressIncomplete = "ADDRESS_INCOMPLETE" // street, city and postal code required

	// ==================== Restaurant (RESTAURANT_) ====================
	RestaurantNotFound  = "RESTAURANT_NOT_FOUND"
	RestaurantSuspended = "RESTAURANT_SUSPENDED"
	RestaurantClosed    = "RESTAURANT_CLOSED"

	// ==================== Order (ORDER_) ====================
	OrderCreateFailed  = "ORDER_CREATE_FAILED"
	OrderPreviewFailed = "ORDER_PREVIEW_FAILED"

	// ==================== Internal (INTERNAL_) ====================
	InternalServerError   = "INTERNAL_SERVER_ERROR"
	InternalDatabaseError = "INTERNAL_DATABASE_ERROR"
	InternalUpstreamError = "INTERNAL_UPSTREAM_ERROR" // core API failure
)
