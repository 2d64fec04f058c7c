package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/gozba-na-klik/checkout-gateway/internal/app/model"
	apperrors "github.com/gozba-na-klik/checkout-gateway/internal/errors"
	"github.com/gozba-na-klik/checkout-gateway/pkg/gozba"
	"github.com/gozba-na-klik/checkout-gateway/pkg/logger"
)

// CheckoutState is the lifecycle phase of a checkout session.
type CheckoutState string

const (
	CheckoutStateLoading         CheckoutState = "loading"
	CheckoutStateReady           CheckoutState = "ready"
	CheckoutStateEmptyCart       CheckoutState = "empty_cart"
	CheckoutStateAllergenPending CheckoutState = "allergen_confirm_pending"
	CheckoutStateSubmitting      CheckoutState = "submitting"
	CheckoutStateSubmitted       CheckoutState = "submitted"
	CheckoutStateCancelled       CheckoutState = "cancelled"
)

var (
	ErrCheckoutEmptyCart        = errors.New("cart is empty")
	ErrCheckoutFinished         = errors.New("checkout session already finished")
	ErrAddressRequired          = errors.New("delivery address required")
	ErrAddressNotFound          = errors.New("address not found")
	ErrAddressIncomplete        = errors.New("address requires street, city and postal code")
	ErrAllergenConfirmRequired  = errors.New("allergen warning must be acknowledged first")
	ErrAllergenConfirmNotActive = errors.New("no allergen confirmation pending")
)

// OrderEventPublisher fans out order lifecycle events to tracking
// subscribers.
type OrderEventPublisher interface {
	PublishOrderCreated(customerID, restaurantID, orderID uint)
}

// CheckoutSession drives one customer's checkout for one restaurant: address
// resolution, priced previews, allergen gating and submission. All calls are
// serialized on the session mutex; upstream round-trips run unlocked and
// their responses are applied only if still current (see previewSeq).
type CheckoutSession struct {
	mu sync.Mutex

	api       gozba.API
	carts     CartService
	publisher OrderEventPublisher

	customerID    uint
	customerToken string
	restaurantID  uint
	debounceDelay time.Duration

	state            CheckoutState
	restaurant       *gozba.Restaurant
	addresses        []gozba.Address
	addressID        uint
	typedAddress     gozba.AddressFields
	typedUnsaved     bool // typed fields changed since last upstream resolution
	note             string
	allergenAccepted bool

	preview      *gozba.OrderPreview
	previewStale bool
	errorMessage string
	allergens    []string
	orderID      uint

	// previewSeq is a monotonically increasing request token. Responses
	// carrying an older token than the latest issued one are discarded, so a
	// slow superseded preview can never overwrite fresher state.
	previewSeq uint64
	debounce   *time.Timer
	closed     bool
}

// CheckoutSnapshot is a read-only view of the session for the HTTP layer.
type CheckoutSnapshot struct {
	State            CheckoutState       `json:"state"`
	Restaurant       *gozba.Restaurant   `json:"restaurant,omitempty"`
	Lines            []model.CartLine    `json:"lines"`
	ItemCount        int                 `json:"item_count"`
	Addresses        []gozba.Address     `json:"addresses"`
	AddressID        uint                `json:"address_id,omitempty"`
	Note             string              `json:"note,omitempty"`
	AllergenAccepted bool                `json:"allergen_accepted"`
	Allergens        []string            `json:"allergens,omitempty"`
	Preview          *gozba.OrderPreview `json:"preview,omitempty"`
	PreviewStale     bool                `json:"preview_stale"`
	ErrorMessage     string              `json:"error_message,omitempty"`
	OrderID          uint                `json:"order_id,omitempty"`
}

// load runs the entry sequence: read the live cart, fetch the restaurant
// record and saved addresses, pick the default address and request an
// initial preview when one is resolved.
func (s *CheckoutSession) load(ctx context.Context) error {
	s.mu.Lock()
	s.state = CheckoutStateLoading
	s.mu.Unlock()

	lines, err := s.carts.GetCart(ctx, s.customerID, s.restaurantID)
	if err != nil {
		s.setError(apperrors.ParseError(err, "checkout cart load").Message)
		return err
	}
	if len(lines) == 0 {
		s.mu.Lock()
		s.state = CheckoutStateEmptyCart
		s.mu.Unlock()
		return nil
	}

	restaurant, err := s.api.GetRestaurant(ctx, s.restaurantID)
	if err != nil {
		logger.Error("Failed to load restaurant for checkout", err, map[string]interface{}{
			"restaurant_id": s.restaurantID,
		})
		s.setError(apperrors.ParseError(err, "checkout restaurant load").Message)
		return err
	}

	addresses, err := s.api.ListAddresses(ctx, s.customerToken)
	if err != nil {
		logger.Error("Failed to load addresses for checkout", err, map[string]interface{}{
			"customer_id": s.customerID,
		})
		s.setError(apperrors.ParseError(err, "checkout address load").Message)
		return err
	}

	s.mu.Lock()
	s.restaurant = restaurant
	s.addresses = addresses
	s.addressID = 0
	for _, addr := range addresses {
		if addr.IsDefault {
			s.addressID = addr.ID
			break
		}
	}
	s.state = CheckoutStateReady
	hasAddress := s.addressID != 0
	if !hasAddress {
		s.errorMessage = "Please choose or enter a delivery address"
	} else {
		s.errorMessage = ""
	}
	s.mu.Unlock()

	if hasAddress {
		s.refreshPreview(ctx)
	}
	return nil
}

// Snapshot returns the current session view, including the live cart.
func (s *CheckoutSession) Snapshot(ctx context.Context) (*CheckoutSnapshot, error) {
	lines, err := s.carts.GetCart(ctx, s.customerID, s.restaurantID)
	if err != nil {
		return nil, err
	}

	count := 0
	for _, line := range lines {
		count += line.Quantity
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	snap := &CheckoutSnapshot{
		State:            s.state,
		Restaurant:       s.restaurant,
		Lines:            lines,
		ItemCount:        count,
		Addresses:        append([]gozba.Address(nil), s.addresses...),
		AddressID:        s.addressID,
		Note:             s.note,
		AllergenAccepted: s.allergenAccepted,
		Allergens:        append([]string(nil), s.allergens...),
		Preview:          s.preview,
		PreviewStale:     s.previewStale,
		ErrorMessage:     s.errorMessage,
		OrderID:          s.orderID,
	}
	return snap, nil
}

// SelectAddress picks a saved address by id and re-previews immediately.
func (s *CheckoutSession) SelectAddress(ctx context.Context, addressID uint) error {
	s.mu.Lock()
	if s.finishedLocked() {
		s.mu.Unlock()
		return ErrCheckoutFinished
	}

	found := false
	for _, addr := range s.addresses {
		if addr.ID == addressID {
			found = true
			break
		}
	}
	if !found {
		s.mu.Unlock()
		return ErrAddressNotFound
	}

	s.addressID = addressID
	s.typedAddress = gozba.AddressFields{}
	s.typedUnsaved = false
	s.errorMessage = ""
	s.stopDebounceLocked()
	s.mu.Unlock()

	s.refreshPreview(ctx)
	return nil
}

// TypeAddress records free-text address fields. A complete set of fields
// schedules a debounced re-preview (creating the address upstream lazily);
// an incomplete set clears the previous preview and requests nothing.
func (s *CheckoutSession) TypeAddress(ctx context.Context, fields gozba.AddressFields) error {
	s.mu.Lock()
	if s.finishedLocked() {
		s.mu.Unlock()
		return ErrCheckoutFinished
	}

	s.typedAddress = fields
	s.typedUnsaved = true
	s.addressID = 0

	if !addressComplete(fields) {
		s.stopDebounceLocked()
		s.previewSeq++ // orphan any in-flight preview
		s.preview = nil
		s.previewStale = true
		s.errorMessage = "Please fill in street, city and postal code"
		s.mu.Unlock()
		return nil
	}

	s.errorMessage = ""
	s.stopDebounceLocked()
	s.debounce = time.AfterFunc(s.debounceDelay, func() {
		s.refreshPreview(context.Background())
	})
	s.mu.Unlock()
	return nil
}

// SetNote updates the customer note and re-previews immediately.
func (s *CheckoutSession) SetNote(ctx context.Context, note string) error {
	s.mu.Lock()
	if s.finishedLocked() {
		s.mu.Unlock()
		return ErrCheckoutFinished
	}
	s.note = note
	s.mu.Unlock()

	s.refreshPreview(ctx)
	return nil
}

// AcceptAllergens acknowledges the allergen warning and resumes submission.
func (s *CheckoutSession) AcceptAllergens(ctx context.Context) (uint, error) {
	s.mu.Lock()
	if s.state != CheckoutStateAllergenPending {
		s.mu.Unlock()
		return 0, ErrAllergenConfirmNotActive
	}
	s.allergenAccepted = true
	s.state = CheckoutStateReady
	s.mu.Unlock()

	return s.Submit(ctx)
}

// DeclineAllergens aborts the checkout; the UI returns to the menu.
func (s *CheckoutSession) DeclineAllergens() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != CheckoutStateAllergenPending {
		return ErrAllergenConfirmNotActive
	}
	s.state = CheckoutStateCancelled
	s.stopDebounceLocked()
	s.previewSeq++
	return nil
}

// Submit places the order. The draft is rebuilt from the live cart at this
// moment, not from the snapshot the last preview priced, so edits made after
// the preview still count.
func (s *CheckoutSession) Submit(ctx context.Context) (uint, error) {
	s.mu.Lock()
	if s.finishedLocked() || s.state == CheckoutStateSubmitting {
		s.mu.Unlock()
		return 0, ErrCheckoutFinished
	}
	// Claim the submitting state before releasing the mutex. An overlapping
	// Submit (double-click, second tab) bounces off the guard above instead of
	// reaching order creation a second time.
	s.state = CheckoutStateSubmitting
	s.mu.Unlock()

	addressID, err := s.resolveAddress(ctx)
	if err != nil {
		s.revertSubmitting()
		s.setError(submitAddressMessage(err))
		return 0, err
	}

	lines, err := s.carts.GetCart(ctx, s.customerID, s.restaurantID)
	if err != nil {
		s.revertSubmitting()
		s.setError(apperrors.ParseError(err, "checkout cart load").Message)
		return 0, err
	}
	if len(lines) == 0 {
		s.mu.Lock()
		s.state = CheckoutStateEmptyCart
		s.mu.Unlock()
		return 0, ErrCheckoutEmptyCart
	}

	// The allergen gate works off the latest preview. If none is current,
	// fetch one synchronously before deciding.
	s.mu.Lock()
	preview := s.preview
	stale := s.previewStale
	accepted := s.allergenAccepted
	note := s.note
	s.mu.Unlock()

	if preview == nil || stale {
		// This fetch takes a token like any other preview so a superseded
		// debounced refresh landing later cannot overwrite it.
		s.mu.Lock()
		s.previewSeq++
		token := s.previewSeq
		s.mu.Unlock()

		fresh, err := s.api.PreviewOrder(ctx, s.customerToken, s.restaurantID, buildDraft(addressID, note, accepted, lines))
		if err != nil {
			info := apperrors.ParseError(err, "order preview")
			s.revertSubmitting()
			s.setError(info.Message)
			return 0, err
		}
		s.mu.Lock()
		if token == s.previewSeq {
			s.preview = fresh
			s.previewStale = false
		}
		s.mu.Unlock()
		preview = fresh
	}

	if preview.HasAllergens && !accepted {
		s.mu.Lock()
		s.state = CheckoutStateAllergenPending
		s.allergens = append([]string(nil), preview.Allergens...)
		s.mu.Unlock()
		logger.Info("Submission deferred pending allergen confirmation", map[string]interface{}{
			"customer_id":   s.customerID,
			"restaurant_id": s.restaurantID,
			"allergens":     preview.Allergens,
		})
		return 0, ErrAllergenConfirmRequired
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return 0, ErrCheckoutFinished
	}
	s.mu.Unlock()

	draft := buildDraft(addressID, note, accepted, lines)
	order, err := s.api.CreateOrder(ctx, s.customerToken, s.restaurantID, draft)
	if err != nil {
		info := apperrors.ParseError(err, "order submit")
		s.mu.Lock()
		s.state = CheckoutStateReady
		s.errorMessage = info.Message
		s.mu.Unlock()
		logger.Error("Order submission failed", err, map[string]interface{}{
			"customer_id":   s.customerID,
			"restaurant_id": s.restaurantID,
			"code":          info.Code,
		})
		return 0, err
	}

	if err := s.carts.ClearCart(ctx, s.customerID, s.restaurantID); err != nil {
		// The order exists upstream; a failed local clear must not undo that.
		logger.Error("Failed to clear cart after order creation", err, map[string]interface{}{
			"customer_id":   s.customerID,
			"restaurant_id": s.restaurantID,
			"order_id":      order.ID,
		})
	}

	s.mu.Lock()
	s.state = CheckoutStateSubmitted
	s.orderID = order.ID
	s.errorMessage = ""
	s.stopDebounceLocked()
	s.previewSeq++
	s.mu.Unlock()

	logger.Info("Order submitted", map[string]interface{}{
		"customer_id":   s.customerID,
		"restaurant_id": s.restaurantID,
		"order_id":      order.ID,
	})

	if s.publisher != nil {
		s.publisher.PublishOrderCreated(s.customerID, s.restaurantID, order.ID)
	}
	return order.ID, nil
}

// UpdateLineQuantity changes a line's quantity mid-checkout. A quantity
// below 1 removes the line; afterwards the whole load sequence re-runs.
func (s *CheckoutSession) UpdateLineQuantity(ctx context.Context, lineID string, quantity int) error {
	s.mu.Lock()
	if s.finishedLocked() {
		s.mu.Unlock()
		return ErrCheckoutFinished
	}
	s.mu.Unlock()

	var err error
	if quantity < 1 {
		err = s.carts.RemoveLine(ctx, s.customerID, s.restaurantID, lineID)
	} else {
		err = s.carts.UpdateQuantity(ctx, s.customerID, s.restaurantID, lineID, quantity)
	}
	if err != nil {
		return err
	}

	return s.load(ctx)
}

// Close ends the session: the debounce timer stops and any in-flight
// upstream response is ignored.
func (s *CheckoutSession) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.closed = true
	s.stopDebounceLocked()
	s.previewSeq++
}

// refreshPreview rebuilds the draft from the live cart and requests a fresh
// priced preview. The response is applied only if no newer request was
// issued while it was in flight.
func (s *CheckoutSession) refreshPreview(ctx context.Context) {
	s.mu.Lock()
	if s.closed || s.finishedLocked() {
		s.mu.Unlock()
		return
	}
	s.mu.Unlock()

	addressID, err := s.resolveAddress(ctx)
	if err != nil {
		if errors.Is(err, ErrAddressRequired) || errors.Is(err, ErrAddressIncomplete) {
			// Not fatal: the cart stays usable, only pricing is missing.
			s.mu.Lock()
			s.preview = nil
			s.previewStale = true
			s.errorMessage = submitAddressMessage(err)
			s.mu.Unlock()
			return
		}
		s.setError(apperrors.ParseError(err, "checkout address").Message)
		return
	}

	lines, err := s.carts.GetCart(ctx, s.customerID, s.restaurantID)
	if err != nil {
		s.setError(apperrors.ParseError(err, "checkout cart load").Message)
		return
	}
	if len(lines) == 0 {
		s.mu.Lock()
		s.state = CheckoutStateEmptyCart
		s.mu.Unlock()
		return
	}

	s.mu.Lock()
	s.previewSeq++
	token := s.previewSeq
	draft := buildDraft(addressID, s.note, s.allergenAccepted, lines)
	s.mu.Unlock()

	preview, err := s.api.PreviewOrder(ctx, s.customerToken, s.restaurantID, draft)

	s.mu.Lock()
	defer s.mu.Unlock()

	if token != s.previewSeq || s.closed {
		logger.Debug("Discarding superseded preview response", map[string]interface{}{
			"customer_id":   s.customerID,
			"restaurant_id": s.restaurantID,
			"token":         token,
			"latest":        s.previewSeq,
		})
		return
	}

	if err != nil {
		info := apperrors.ParseError(err, "order preview")
		s.errorMessage = info.Message
		s.previewStale = true
		logger.Error("Preview request failed", err, map[string]interface{}{
			"customer_id":   s.customerID,
			"restaurant_id": s.restaurantID,
			"code":          info.Code,
		})
		return
	}

	s.preview = preview
	s.previewStale = false
	s.errorMessage = ""
}

// resolveAddress returns the effective address id, creating a typed address
// upstream the first time all three fields are present and no saved address
// matches by trimmed equality. The created id is kept so later previews and
// the submission reuse it.
func (s *CheckoutSession) resolveAddress(ctx context.Context) (uint, error) {
	s.mu.Lock()
	if s.addressID != 0 && !s.typedUnsaved {
		id := s.addressID
		s.mu.Unlock()
		return id, nil
	}

	fields := s.typedAddress
	if !hasAnyField(fields) {
		s.mu.Unlock()
		return 0, ErrAddressRequired
	}
	if !addressComplete(fields) {
		s.mu.Unlock()
		return 0, ErrAddressIncomplete
	}

	for _, addr := range s.addresses {
		if sameAddress(addr, fields) {
			s.addressID = addr.ID
			s.typedUnsaved = false
			id := addr.ID
			s.mu.Unlock()
			return id, nil
		}
	}
	s.mu.Unlock()

	created, err := s.api.CreateAddress(ctx, s.customerToken, trimFields(fields))
	if err != nil {
		logger.Error("Failed to create delivery address", err, map[string]interface{}{
			"customer_id": s.customerID,
		})
		return 0, err
	}

	s.mu.Lock()
	s.addresses = append(s.addresses, *created)
	s.addressID = created.ID
	s.typedUnsaved = false
	s.mu.Unlock()

	logger.Info("Delivery address created", map[string]interface{}{
		"customer_id": s.customerID,
		"address_id":  created.ID,
	})
	return created.ID, nil
}

func (s *CheckoutSession) setError(message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.errorMessage = message
	if s.state == CheckoutStateLoading {
		s.state = CheckoutStateReady
	}
}

// revertSubmitting releases a claimed submission so the session stays
// interactive after a pre-flight failure.
func (s *CheckoutSession) revertSubmitting() {
	s.mu.Lock()
	if s.state == CheckoutStateSubmitting {
		s.state = CheckoutStateReady
	}
	s.mu.Unlock()
}

func (s *CheckoutSession) finishedLocked() bool {
	return s.closed ||
		s.state == CheckoutStateSubmitted ||
		s.state == CheckoutStateCancelled
}

func (s *CheckoutSession) stopDebounceLocked() {
	if s.debounce != nil {
		s.debounce.Stop()
		s.debounce = nil
	}
}

func buildDraft(addressID uint, note string, accepted bool, lines []model.CartLine) gozba.OrderDraft {
	draft := gozba.OrderDraft{
		AddressID:               addressID,
		CustomerNote:            note,
		AllergenWarningAccepted: accepted,
	}
	for _, line := range lines {
		draft.Items = append(draft.Items, gozba.DraftItem{
			MealID:           line.MealID,
			Quantity:         line.Quantity,
			SelectedAddonIDs: line.AddonIDs(),
		})
	}
	return draft
}

func addressComplete(f gozba.AddressFields) bool {
	return strings.TrimSpace(f.Street) != "" &&
		strings.TrimSpace(f.City) != "" &&
		strings.TrimSpace(f.PostalCode) != ""
}

func hasAnyField(f gozba.AddressFields) bool {
	return strings.TrimSpace(f.Street) != "" ||
		strings.TrimSpace(f.City) != "" ||
		strings.TrimSpace(f.PostalCode) != ""
}

func sameAddress(addr gozba.Address, f gozba.AddressFields) bool {
	return strings.EqualFold(strings.TrimSpace(addr.Street), strings.TrimSpace(f.Street)) &&
		strings.EqualFold(strings.TrimSpace(addr.City), strings.TrimSpace(f.City)) &&
		strings.TrimSpace(addr.PostalCode) == strings.TrimSpace(f.PostalCode)
}

func trimFields(f gozba.AddressFields) gozba.AddressFields {
	return gozba.AddressFields{
		Street:     strings.TrimSpace(f.Street),
		City:       strings.TrimSpace(f.City),
		PostalCode: strings.TrimSpace(f.PostalCode),
	}
}

func submitAddressMessage(err error) string {
	switch {
	case errors.Is(err, ErrAddressIncomplete):
		return "Please fill in street, city and postal code"
	case errors.Is(err, ErrAddressRequired):
		return "Please choose or enter a delivery address"
	default:
		return apperrors.ParseError(err, "checkout address").Message
	}
}
