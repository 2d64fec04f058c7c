package service

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/gozba-na-klik/checkout-gateway/internal/app/model"
	"github.com/gozba-na-klik/checkout-gateway/internal/app/repository"
	"github.com/gozba-na-klik/checkout-gateway/pkg/logger"
)

var (
	ErrCartLineNotFound = errors.New("cart line not found")
)

// MealSnapshot is the display and pricing data copied onto a cart line at
// add time.
type MealSnapshot struct {
	ID        uint    `json:"id"`
	Name      string  `json:"name"`
	ImagePath string  `json:"image_path"`
	Price     float64 `json:"price"`
}

// AddonSnapshot is one selected add-on copied onto a cart line at add time.
type AddonSnapshot struct {
	ID    uint    `json:"id"`
	Name  string  `json:"name"`
	Price float64 `json:"price"`
}

// ActiveCartRecorder remembers which restaurant's cart the customer touched
// last. It is convenience state: recording failures must not fail the cart
// operation that triggered them.
type ActiveCartRecorder interface {
	SetActiveCart(ctx context.Context, customerID, restaurantID uint) error
	GetActiveCart(ctx context.Context, customerID uint) (uint, bool, error)
}

type CartService interface {
	GetCart(ctx context.Context, customerID, restaurantID uint) ([]model.CartLine, error)
	AddLine(ctx context.Context, customerID, restaurantID uint, meal MealSnapshot, quantity int, addons []AddonSnapshot) error
	UpdateQuantity(ctx context.Context, customerID, restaurantID uint, lineID string, quantity int) error
	UpdateQuantityAt(ctx context.Context, customerID, restaurantID uint, index, quantity int) error
	RemoveLine(ctx context.Context, customerID, restaurantID uint, lineID string) error
	RemoveLineAt(ctx context.Context, customerID, restaurantID uint, index int) error
	ClearCart(ctx context.Context, customerID, restaurantID uint) error
	ItemCount(ctx context.Context, customerID, restaurantID uint) (int, error)
	CartRestaurants(ctx context.Context, customerID uint) ([]uint, error)
	LastActiveCart(ctx context.Context, customerID uint) (uint, bool, error)
}

type cartService struct {
	cartRepo repository.CartRepository
	recorder ActiveCartRecorder
}

func NewCartService(cartRepo repository.CartRepository, recorder ActiveCartRecorder) CartService {
	return &cartService{
		cartRepo: cartRepo,
		recorder: recorder,
	}
}

// GetCart returns the cart's lines. Lines missing a meal id are filtered out
// and the filtered list is persisted back, so a corrupt entry can never leak
// past a read.
func (s *cartService) GetCart(ctx context.Context, customerID, restaurantID uint) ([]model.CartLine, error) {
	lines, err := s.cartRepo.FindByOwner(customerID, restaurantID)
	if err != nil {
		logger.Error("Failed to fetch cart", err, map[string]interface{}{
			"customer_id":   customerID,
			"restaurant_id": restaurantID,
		})
		return nil, err
	}

	healed := make([]model.CartLine, 0, len(lines))
	for _, line := range lines {
		if line.MealID == 0 {
			continue
		}
		healed = append(healed, line)
	}

	if len(healed) != len(lines) {
		logger.Warn("Dropping cart lines without a meal id", map[string]interface{}{
			"customer_id":   customerID,
			"restaurant_id": restaurantID,
			"dropped":       len(lines) - len(healed),
		})
		if err := s.cartRepo.ReplaceLines(customerID, restaurantID, healed); err != nil {
			return nil, err
		}
		// Re-read so line snapshots carry their persisted ids.
		return s.cartRepo.FindByOwner(customerID, restaurantID)
	}

	return healed, nil
}

// AddLine adds a meal selection to the cart. An existing line with the same
// meal and add-on selection absorbs the quantity; otherwise a new line is
// appended. A missing meal id makes this a logged no-op.
func (s *cartService) AddLine(ctx context.Context, customerID, restaurantID uint, meal MealSnapshot, quantity int, addons []AddonSnapshot) error {
	if meal.ID == 0 {
		logger.Warn("Skipping add to cart: meal id missing", map[string]interface{}{
			"customer_id":   customerID,
			"restaurant_id": restaurantID,
			"meal_name":     meal.Name,
		})
		return nil
	}

	if quantity < 1 {
		quantity = 1
	}

	logger.Info("Adding line to cart", map[string]interface{}{
		"customer_id":   customerID,
		"restaurant_id": restaurantID,
		"meal_id":       meal.ID,
		"quantity":      quantity,
		"addon_count":   len(addons),
	})

	lines, err := s.GetCart(ctx, customerID, restaurantID)
	if err != nil {
		return err
	}

	addonIDs := make([]uint, 0, len(addons))
	for _, a := range addons {
		addonIDs = append(addonIDs, a.ID)
	}

	merged := false
	for i := range lines {
		if lines[i].MatchesSelection(meal.ID, addonIDs) {
			lines[i].Quantity += quantity
			merged = true
			logger.Debug("Merged into existing cart line", map[string]interface{}{
				"line_id":  lines[i].LineID,
				"quantity": lines[i].Quantity,
			})
			break
		}
	}

	if !merged {
		line := model.CartLine{
			LineID:        uuid.NewString(),
			CustomerID:    customerID,
			RestaurantID:  restaurantID,
			MealID:        meal.ID,
			MealName:      meal.Name,
			MealImagePath: meal.ImagePath,
			UnitPrice:     meal.Price,
			Quantity:      quantity,
		}
		for i, a := range addons {
			line.Addons = append(line.Addons, model.CartLineAddon{
				AddonID:  a.ID,
				Name:     a.Name,
				Price:    a.Price,
				Position: i,
			})
		}
		lines = append(lines, line)
	}

	if err := s.cartRepo.ReplaceLines(customerID, restaurantID, lines); err != nil {
		logger.Error("Failed to persist cart", err, map[string]interface{}{
			"customer_id":   customerID,
			"restaurant_id": restaurantID,
		})
		return err
	}

	// Best-effort side channel; a failure here must not fail the add.
	if err := s.recorder.SetActiveCart(ctx, customerID, restaurantID); err != nil {
		logger.Warn("Failed to record last active cart", map[string]interface{}{
			"customer_id":   customerID,
			"restaurant_id": restaurantID,
			"error":         err.Error(),
		})
	}

	return nil
}

// UpdateQuantity replaces a line's quantity in place. The store does not
// police the value; callers treat quantities below 1 as a removal and the
// HTTP boundary rejects them outright.
func (s *cartService) UpdateQuantity(ctx context.Context, customerID, restaurantID uint, lineID string, quantity int) error {
	lines, err := s.GetCart(ctx, customerID, restaurantID)
	if err != nil {
		return err
	}

	for i := range lines {
		if lines[i].LineID == lineID {
			lines[i].Quantity = quantity
			return s.cartRepo.ReplaceLines(customerID, restaurantID, lines)
		}
	}

	logger.Warn("Cart line not found for quantity update", map[string]interface{}{
		"customer_id":   customerID,
		"restaurant_id": restaurantID,
		"line_id":       lineID,
	})
	return ErrCartLineNotFound
}

// UpdateQuantityAt is the positional adapter for UI ordering. An
// out-of-range index is a no-op, matching RemoveLineAt.
func (s *cartService) UpdateQuantityAt(ctx context.Context, customerID, restaurantID uint, index, quantity int) error {
	lines, err := s.GetCart(ctx, customerID, restaurantID)
	if err != nil {
		return err
	}
	if index < 0 || index >= len(lines) {
		return nil
	}
	return s.UpdateQuantity(ctx, customerID, restaurantID, lines[index].LineID, quantity)
}

// RemoveLine removes a line by its stable id.
func (s *cartService) RemoveLine(ctx context.Context, customerID, restaurantID uint, lineID string) error {
	lines, err := s.GetCart(ctx, customerID, restaurantID)
	if err != nil {
		return err
	}

	kept := make([]model.CartLine, 0, len(lines))
	for _, line := range lines {
		if line.LineID == lineID {
			continue
		}
		kept = append(kept, line)
	}

	if len(kept) == len(lines) {
		logger.Warn("Cart line not found for removal", map[string]interface{}{
			"customer_id":   customerID,
			"restaurant_id": restaurantID,
			"line_id":       lineID,
		})
		return ErrCartLineNotFound
	}

	return s.cartRepo.ReplaceLines(customerID, restaurantID, kept)
}

// RemoveLineAt is the positional adapter. An out-of-range index is a no-op.
func (s *cartService) RemoveLineAt(ctx context.Context, customerID, restaurantID uint, index int) error {
	lines, err := s.GetCart(ctx, customerID, restaurantID)
	if err != nil {
		return err
	}
	if index < 0 || index >= len(lines) {
		return nil
	}
	return s.RemoveLine(ctx, customerID, restaurantID, lines[index].LineID)
}

// ClearCart deletes the entire cart for this restaurant. Other restaurants'
// carts are untouched.
func (s *cartService) ClearCart(ctx context.Context, customerID, restaurantID uint) error {
	logger.Info("Clearing cart", map[string]interface{}{
		"customer_id":   customerID,
		"restaurant_id": restaurantID,
	})

	if err := s.cartRepo.Clear(customerID, restaurantID); err != nil {
		logger.Error("Failed to clear cart", err, map[string]interface{}{
			"customer_id":   customerID,
			"restaurant_id": restaurantID,
		})
		return err
	}
	return nil
}

// ItemCount sums line quantities; 0 for an empty cart.
func (s *cartService) ItemCount(ctx context.Context, customerID, restaurantID uint) (int, error) {
	lines, err := s.GetCart(ctx, customerID, restaurantID)
	if err != nil {
		return 0, err
	}

	count := 0
	for _, line := range lines {
		count += line.Quantity
	}
	return count, nil
}

// CartRestaurants lists the restaurants the customer currently has carts for.
func (s *cartService) CartRestaurants(ctx context.Context, customerID uint) ([]uint, error) {
	return s.cartRepo.RestaurantIDs(customerID)
}

// LastActiveCart returns the restaurant recorded by the side channel, if any.
func (s *cartService) LastActiveCart(ctx context.Context, customerID uint) (uint, bool, error) {
	return s.recorder.GetActiveCart(ctx, customerID)
}
