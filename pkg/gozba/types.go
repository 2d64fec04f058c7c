package gozba

// Wire DTOs of the Gozba core API. The shapes are owned by the upstream
// service; the gateway passes them through without reinterpreting them.

// DraftItem is one order line as submitted for pricing or creation.
type DraftItem struct {
	MealID           uint   `json:"meal_id"`
	Quantity         int    `json:"quantity"`
	SelectedAddonIDs []uint `json:"selected_addon_ids"`
}

// OrderDraft is the prospective order sent to preview and create calls.
type OrderDraft struct {
	AddressID               uint        `json:"address_id"`
	CustomerNote            string      `json:"customer_note"`
	Items                   []DraftItem `json:"items"`
	AllergenWarningAccepted bool        `json:"allergen_warning_accepted"`
}

// OrderPreview is the server-computed, non-committing price projection.
type OrderPreview struct {
	SubtotalPrice float64  `json:"subtotal_price"`
	DeliveryFee   float64  `json:"delivery_fee"`
	TotalPrice    float64  `json:"total_price"`
	HasAllergens  bool     `json:"has_allergens"`
	Allergens     []string `json:"allergens"`
}

// Order is a created order as returned by the core API.
type Order struct {
	ID         uint    `json:"id"`
	Status     string  `json:"status"`
	TotalPrice float64 `json:"total_price"`
}

// Address is a saved delivery address.
type Address struct {
	ID         uint   `json:"id"`
	Street     string `json:"street"`
	City       string `json:"city"`
	PostalCode string `json:"postal_code"`
	IsDefault  bool   `json:"is_default"`
}

// AddressFields are the three required fields of a new delivery address.
type AddressFields struct {
	Street     string `json:"street"`
	City       string `json:"city"`
	PostalCode string `json:"postal_code"`
}

// Restaurant is the subset of the restaurant record the checkout consults.
type Restaurant struct {
	ID               uint   `json:"id"`
	Name             string `json:"name"`
	IsOpen           bool   `json:"is_open"`
	IsSuspended      bool   `json:"is_suspended"`
	SuspensionReason string `json:"suspension_reason,omitempty"`
}

// errorEnvelope is the core API error response body.
type errorEnvelope struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}
