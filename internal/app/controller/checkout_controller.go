package controller

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/gozba-na-klik/checkout-gateway/internal/app/service"
	apperrors "github.com/gozba-na-klik/checkout-gateway/internal/errors"
	"github.com/gozba-na-klik/checkout-gateway/internal/middleware"
	"github.com/gozba-na-klik/checkout-gateway/pkg/gozba"
)

type CheckoutController struct {
	checkoutService service.CheckoutService
}

func NewCheckoutController(checkoutService service.CheckoutService) *CheckoutController {
	return &CheckoutController{
		checkoutService: checkoutService,
	}
}

type SetAddressRequest struct {
	AddressID  uint   `json:"address_id"`
	Street     string `json:"street"`
	City       string `json:"city"`
	PostalCode string `json:"postal_code"`
}

type SetNoteRequest struct {
	Note string `json:"note"`
}

type CheckoutLineRequest struct {
	Quantity int `json:"quantity" binding:"gte=0"`
}

// Begin opens (or reopens) a checkout session for one restaurant's cart.
// POST /api/v1/checkout/:restaurantId
func (ctrl *CheckoutController) Begin(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	customerID, restaurantID, ok := ctrl.owner(c)
	if !ok {
		return
	}

	session, err := ctrl.checkoutService.Begin(c.Request.Context(), customerID, middleware.GetCustomerToken(c), restaurantID)
	if err != nil {
		info := apperrors.ParseError(err, "checkout load")
		log.Error("Failed to begin checkout", err, map[string]interface{}{
			"customer_id":   customerID,
			"restaurant_id": restaurantID,
			"code":          info.Code,
		})
		// The session still exists with its error message recorded; surface
		// the snapshot so the UI can render the partial state.
	}

	ctrl.respondSnapshot(c, session, http.StatusCreated)
}

// State returns the current session snapshot.
// GET /api/v1/checkout/:restaurantId
func (ctrl *CheckoutController) State(c *gin.Context) {
	customerID, restaurantID, ok := ctrl.owner(c)
	if !ok {
		return
	}

	session, found := ctrl.checkoutService.Get(customerID, restaurantID)
	if !found {
		apperrors.NotFound(c, apperrors.CheckoutSessionNotFound, "No active checkout for this restaurant")
		return
	}

	ctrl.respondSnapshot(c, session, http.StatusOK)
}

// SetAddress selects a saved address or records typed address fields.
// PUT /api/v1/checkout/:restaurantId/address
func (ctrl *CheckoutController) SetAddress(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	customerID, restaurantID, ok := ctrl.owner(c)
	if !ok {
		return
	}

	session, found := ctrl.checkoutService.Get(customerID, restaurantID)
	if !found {
		apperrors.NotFound(c, apperrors.CheckoutSessionNotFound, "No active checkout for this restaurant")
		return
	}

	var req SetAddressRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperrors.BadRequest(c, apperrors.ValidationInvalidInput, "Invalid request data")
		return
	}

	var err error
	if req.AddressID != 0 {
		err = session.SelectAddress(c.Request.Context(), req.AddressID)
	} else {
		err = session.TypeAddress(c.Request.Context(), gozba.AddressFields{
			Street:     req.Street,
			City:       req.City,
			PostalCode: req.PostalCode,
		})
	}

	if err != nil {
		switch {
		case errors.Is(err, service.ErrAddressNotFound):
			apperrors.NotFound(c, apperrors.AddressNotFound, "Address not found")
		case errors.Is(err, service.ErrCheckoutFinished):
			apperrors.Conflict(c, apperrors.CheckoutAlreadySubmitted, "Checkout already finished")
		default:
			log.Error("Failed to set delivery address", err, map[string]interface{}{
				"customer_id":   customerID,
				"restaurant_id": restaurantID,
			})
			apperrors.InternalError(c, "Failed to update delivery address")
		}
		return
	}

	ctrl.respondSnapshot(c, session, http.StatusOK)
}

// SetNote records the customer note for the order.
// PUT /api/v1/checkout/:restaurantId/note
func (ctrl *CheckoutController) SetNote(c *gin.Context) {
	customerID, restaurantID, ok := ctrl.owner(c)
	if !ok {
		return
	}

	session, found := ctrl.checkoutService.Get(customerID, restaurantID)
	if !found {
		apperrors.NotFound(c, apperrors.CheckoutSessionNotFound, "No active checkout for this restaurant")
		return
	}

	var req SetNoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperrors.BadRequest(c, apperrors.ValidationInvalidInput, "Invalid request data")
		return
	}

	if err := session.SetNote(c.Request.Context(), req.Note); err != nil {
		if errors.Is(err, service.ErrCheckoutFinished) {
			apperrors.Conflict(c, apperrors.CheckoutAlreadySubmitted, "Checkout already finished")
			return
		}
		apperrors.InternalError(c, "Failed to update note")
		return
	}

	ctrl.respondSnapshot(c, session, http.StatusOK)
}

// UpdateLine changes a line quantity mid-checkout. Quantity 0 removes the
// line after the UI confirms.
// PATCH /api/v1/checkout/:restaurantId/lines/:lineId
func (ctrl *CheckoutController) UpdateLine(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	customerID, restaurantID, ok := ctrl.owner(c)
	if !ok {
		return
	}

	session, found := ctrl.checkoutService.Get(customerID, restaurantID)
	if !found {
		apperrors.NotFound(c, apperrors.CheckoutSessionNotFound, "No active checkout for this restaurant")
		return
	}

	var req CheckoutLineRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperrors.BadRequest(c, apperrors.CartInvalidQuantity, "Invalid quantity")
		return
	}

	err := session.UpdateLineQuantity(c.Request.Context(), c.Param("lineId"), req.Quantity)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrCartLineNotFound):
			apperrors.NotFound(c, apperrors.CartLineNotFound, "Cart item not found")
		case errors.Is(err, service.ErrCheckoutFinished):
			apperrors.Conflict(c, apperrors.CheckoutAlreadySubmitted, "Checkout already finished")
		default:
			log.Error("Failed to update checkout line", err, map[string]interface{}{
				"customer_id":   customerID,
				"restaurant_id": restaurantID,
			})
			apperrors.InternalError(c, "Failed to update cart")
		}
		return
	}

	ctrl.respondSnapshot(c, session, http.StatusOK)
}

// AcceptAllergens acknowledges the allergen warning and resumes submission.
// POST /api/v1/checkout/:restaurantId/allergens/accept
func (ctrl *CheckoutController) AcceptAllergens(c *gin.Context) {
	customerID, restaurantID, ok := ctrl.owner(c)
	if !ok {
		return
	}

	session, found := ctrl.checkoutService.Get(customerID, restaurantID)
	if !found {
		apperrors.NotFound(c, apperrors.CheckoutSessionNotFound, "No active checkout for this restaurant")
		return
	}

	orderID, err := session.AcceptAllergens(c.Request.Context())
	if err != nil {
		ctrl.respondSubmitError(c, session, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message":  "Order placed successfully",
		"order_id": orderID,
	})
}

// DeclineAllergens aborts the checkout from the allergen warning.
// POST /api/v1/checkout/:restaurantId/allergens/decline
func (ctrl *CheckoutController) DeclineAllergens(c *gin.Context) {
	customerID, restaurantID, ok := ctrl.owner(c)
	if !ok {
		return
	}

	session, found := ctrl.checkoutService.Get(customerID, restaurantID)
	if !found {
		apperrors.NotFound(c, apperrors.CheckoutSessionNotFound, "No active checkout for this restaurant")
		return
	}

	if err := session.DeclineAllergens(); err != nil {
		apperrors.Conflict(c, apperrors.CheckoutAllergensPending, "No allergen confirmation pending")
		return
	}

	ctrl.respondSnapshot(c, session, http.StatusOK)
}

// Submit places the order from the live cart.
// POST /api/v1/checkout/:restaurantId/submit
func (ctrl *CheckoutController) Submit(c *gin.Context) {
	customerID, restaurantID, ok := ctrl.owner(c)
	if !ok {
		return
	}

	session, found := ctrl.checkoutService.Get(customerID, restaurantID)
	if !found {
		apperrors.NotFound(c, apperrors.CheckoutSessionNotFound, "No active checkout for this restaurant")
		return
	}

	orderID, err := session.Submit(c.Request.Context())
	if err != nil {
		ctrl.respondSubmitError(c, session, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message":  "Order placed successfully",
		"order_id": orderID,
	})
}

// Close ends the checkout session without ordering.
// DELETE /api/v1/checkout/:restaurantId
func (ctrl *CheckoutController) Close(c *gin.Context) {
	customerID, restaurantID, ok := ctrl.owner(c)
	if !ok {
		return
	}

	ctrl.checkoutService.End(customerID, restaurantID)
	c.JSON(http.StatusOK, gin.H{"message": "Checkout closed"})
}

func (ctrl *CheckoutController) respondSnapshot(c *gin.Context, session *service.CheckoutSession, status int) {
	log := middleware.GetLoggerFromContext(c)

	snap, err := session.Snapshot(c.Request.Context())
	if err != nil {
		log.Error("Failed to build checkout snapshot", err, nil)
		apperrors.InternalError(c, "Failed to fetch checkout state")
		return
	}
	c.JSON(status, snap)
}

// respondSubmitError maps submission outcomes onto HTTP responses. The
// allergen gate is a flow step, not a failure, so it returns the snapshot
// with a 409 and the allergen list.
func (ctrl *CheckoutController) respondSubmitError(c *gin.Context, session *service.CheckoutSession, err error) {
	log := middleware.GetLoggerFromContext(c)

	switch {
	case errors.Is(err, service.ErrAllergenConfirmRequired):
		snap, snapErr := session.Snapshot(c.Request.Context())
		if snapErr != nil {
			apperrors.InternalError(c, "Failed to fetch checkout state")
			return
		}
		c.JSON(http.StatusConflict, gin.H{
			"error":    apperrors.CheckoutAllergensPending,
			"message":  "This order contains allergens, please confirm before submitting",
			"checkout": snap,
		})
	case errors.Is(err, service.ErrAllergenConfirmNotActive):
		apperrors.Conflict(c, apperrors.CheckoutAllergensPending, "No allergen confirmation pending")
	case errors.Is(err, service.ErrCheckoutEmptyCart):
		apperrors.BadRequest(c, apperrors.CartEmpty, "Your cart is empty")
	case errors.Is(err, service.ErrAddressRequired):
		apperrors.BadRequest(c, apperrors.CheckoutAddressRequired, "Please choose or enter a delivery address")
	case errors.Is(err, service.ErrAddressIncomplete):
		apperrors.BadRequest(c, apperrors.CheckoutAddressRequired, "Please fill in street, city and postal code")
	case errors.Is(err, service.ErrCheckoutFinished):
		apperrors.Conflict(c, apperrors.CheckoutAlreadySubmitted, "Checkout already finished")
	default:
		info := apperrors.ParseError(err, "order submit")
		log.Warn("Order submission rejected", map[string]interface{}{
			"code":  info.Code,
			"error": err.Error(),
		})
		status := http.StatusBadGateway
		if info.Code == apperrors.RestaurantSuspended || info.Code == apperrors.RestaurantClosed {
			status = http.StatusConflict
		}
		apperrors.RespondWithError(c, status, info.Code, info.Message)
	}
}

func (ctrl *CheckoutController) owner(c *gin.Context) (uint, uint, bool) {
	customerID, exists := middleware.GetCustomerID(c)
	if !exists {
		apperrors.Unauthorized(c, "")
		return 0, 0, false
	}

	restaurantID, err := strconv.ParseUint(c.Param("restaurantId"), 10, 64)
	if err != nil || restaurantID == 0 {
		apperrors.BadRequest(c, apperrors.ValidationInvalidID, "Invalid restaurant id")
		return 0, 0, false
	}

	return customerID, uint(restaurantID), true
}
