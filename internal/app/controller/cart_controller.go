package controller

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/gozba-na-klik/checkout-gateway/internal/app/service"
	apperrors "github.com/gozba-na-klik/checkout-gateway/internal/errors"
	"github.com/gozba-na-klik/checkout-gateway/internal/middleware"
)

type CartController struct {
	cartService service.CartService
}

func NewCartController(cartService service.CartService) *CartController {
	return &CartController{
		cartService: cartService,
	}
}

type AddLineRequest struct {
	Meal     service.MealSnapshot    `json:"meal" binding:"required"`
	Quantity int                     `json:"quantity"`
	Addons   []service.AddonSnapshot `json:"addons"`
}

type UpdateQuantityRequest struct {
	Quantity int `json:"quantity" binding:"required,gt=0"`
}

// GetCart returns the cart for one restaurant.
// GET /api/v1/cart/:restaurantId
func (ctrl *CartController) GetCart(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	customerID, restaurantID, ok := ctrl.owner(c)
	if !ok {
		return
	}

	lines, err := ctrl.cartService.GetCart(c.Request.Context(), customerID, restaurantID)
	if err != nil {
		log.Error("Failed to fetch cart", err, map[string]interface{}{
			"customer_id":   customerID,
			"restaurant_id": restaurantID,
		})
		apperrors.InternalError(c, "Failed to fetch cart")
		return
	}

	count := 0
	var subtotal float64
	for _, line := range lines {
		count += line.Quantity
		lineTotal := line.UnitPrice
		for _, addon := range line.Addons {
			lineTotal += addon.Price
		}
		subtotal += lineTotal * float64(line.Quantity)
	}

	c.JSON(http.StatusOK, gin.H{
		"lines":      lines,
		"item_count": count,
		"subtotal":   subtotal,
	})
}

// AddLine adds a meal selection to the cart.
// POST /api/v1/cart/:restaurantId
func (ctrl *CartController) AddLine(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	customerID, restaurantID, ok := ctrl.owner(c)
	if !ok {
		return
	}

	var req AddLineRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Warn("Invalid add to cart request", map[string]interface{}{
			"customer_id": customerID,
			"error":       err.Error(),
		})
		apperrors.BadRequest(c, apperrors.ValidationInvalidInput, "Invalid request data")
		return
	}

	err := ctrl.cartService.AddLine(c.Request.Context(), customerID, restaurantID, req.Meal, req.Quantity, req.Addons)
	if err != nil {
		log.Error("Failed to add cart line", err, map[string]interface{}{
			"customer_id":   customerID,
			"restaurant_id": restaurantID,
			"meal_id":       req.Meal.ID,
		})
		apperrors.InternalError(c, "Failed to add item to cart")
		return
	}

	count, err := ctrl.cartService.ItemCount(c.Request.Context(), customerID, restaurantID)
	if err != nil {
		apperrors.InternalError(c, "Failed to fetch cart")
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message":    "Item added to cart",
		"item_count": count,
	})
}

// UpdateQuantity replaces a line's quantity.
// PATCH /api/v1/cart/:restaurantId/lines/:lineId
func (ctrl *CartController) UpdateQuantity(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	customerID, restaurantID, ok := ctrl.owner(c)
	if !ok {
		return
	}
	lineID := c.Param("lineId")

	var req UpdateQuantityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Warn("Invalid quantity update request", map[string]interface{}{
			"customer_id": customerID,
			"line_id":     lineID,
			"error":       err.Error(),
		})
		apperrors.BadRequest(c, apperrors.CartInvalidQuantity, "Quantity must be at least 1")
		return
	}

	err := ctrl.cartService.UpdateQuantity(c.Request.Context(), customerID, restaurantID, lineID, req.Quantity)
	if err != nil {
		if errors.Is(err, service.ErrCartLineNotFound) {
			apperrors.NotFound(c, apperrors.CartLineNotFound, "Cart item not found")
			return
		}
		log.Error("Failed to update cart line", err, map[string]interface{}{
			"customer_id": customerID,
			"line_id":     lineID,
		})
		apperrors.InternalError(c, "Failed to update cart")
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Cart updated"})
}

// RemoveLine removes a line by its stable id.
// DELETE /api/v1/cart/:restaurantId/lines/:lineId
func (ctrl *CartController) RemoveLine(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	customerID, restaurantID, ok := ctrl.owner(c)
	if !ok {
		return
	}
	lineID := c.Param("lineId")

	err := ctrl.cartService.RemoveLine(c.Request.Context(), customerID, restaurantID, lineID)
	if err != nil {
		if errors.Is(err, service.ErrCartLineNotFound) {
			apperrors.NotFound(c, apperrors.CartLineNotFound, "Cart item not found")
			return
		}
		log.Error("Failed to remove cart line", err, map[string]interface{}{
			"customer_id": customerID,
			"line_id":     lineID,
		})
		apperrors.InternalError(c, "Failed to update cart")
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Item removed from cart"})
}

// RemoveLineAt removes a line by display position. Kept for UI ordering;
// out-of-range positions are silently ignored.
// DELETE /api/v1/cart/:restaurantId/positions/:index
func (ctrl *CartController) RemoveLineAt(c *gin.Context) {
	customerID, restaurantID, ok := ctrl.owner(c)
	if !ok {
		return
	}

	index, err := strconv.Atoi(c.Param("index"))
	if err != nil {
		apperrors.BadRequest(c, apperrors.ValidationInvalidID, "Invalid position")
		return
	}

	if err := ctrl.cartService.RemoveLineAt(c.Request.Context(), customerID, restaurantID, index); err != nil {
		apperrors.InternalError(c, "Failed to update cart")
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Item removed from cart"})
}

// Clear deletes the whole cart for one restaurant.
// DELETE /api/v1/cart/:restaurantId
func (ctrl *CartController) Clear(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	customerID, restaurantID, ok := ctrl.owner(c)
	if !ok {
		return
	}

	if err := ctrl.cartService.ClearCart(c.Request.Context(), customerID, restaurantID); err != nil {
		log.Error("Failed to clear cart", err, map[string]interface{}{
			"customer_id":   customerID,
			"restaurant_id": restaurantID,
		})
		apperrors.InternalError(c, "Failed to clear cart")
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Cart cleared"})
}

// ItemCount returns the cart badge number.
// GET /api/v1/cart/:restaurantId/count
func (ctrl *CartController) ItemCount(c *gin.Context) {
	customerID, restaurantID, ok := ctrl.owner(c)
	if !ok {
		return
	}

	count, err := ctrl.cartService.ItemCount(c.Request.Context(), customerID, restaurantID)
	if err != nil {
		apperrors.InternalError(c, "Failed to fetch cart")
		return
	}

	c.JSON(http.StatusOK, gin.H{"item_count": count})
}

// ActiveCarts returns the customer's open carts and the last active one.
// GET /api/v1/cart/active
func (ctrl *CartController) ActiveCarts(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	customerID, exists := middleware.GetCustomerID(c)
	if !exists {
		apperrors.Unauthorized(c, "")
		return
	}

	restaurants, err := ctrl.cartService.CartRestaurants(c.Request.Context(), customerID)
	if err != nil {
		log.Error("Failed to list carts", err, map[string]interface{}{
			"customer_id": customerID,
		})
		apperrors.InternalError(c, "Failed to fetch carts")
		return
	}

	resp := gin.H{"restaurant_ids": restaurants}

	// Best-effort side channel: a Redis failure degrades to "no last cart".
	if lastActive, ok, err := ctrl.cartService.LastActiveCart(c.Request.Context(), customerID); err == nil && ok {
		resp["last_active_restaurant_id"] = lastActive
	}

	c.JSON(http.StatusOK, resp)
}

// owner extracts the authenticated customer and the restaurant path param.
func (ctrl *CartController) owner(c *gin.Context) (uint, uint, bool) {
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
