package service

import (
	"context"
	"sync"
	"time"

	"github.com/gozba-na-klik/checkout-gateway/pkg/gozba"
	"github.com/gozba-na-klik/checkout-gateway/pkg/logger"
)

// CheckoutService keeps one checkout session per (customer, restaurant) and
// runs the load sequence when a session begins.
type CheckoutService interface {
	Begin(ctx context.Context, customerID uint, customerToken string, restaurantID uint) (*CheckoutSession, error)
	Get(customerID, restaurantID uint) (*CheckoutSession, bool)
	End(customerID, restaurantID uint)
}

type sessionKey struct {
	customerID   uint
	restaurantID uint
}

type checkoutService struct {
	mu       sync.Mutex
	sessions map[sessionKey]*CheckoutSession

	api           gozba.API
	carts         CartService
	publisher     OrderEventPublisher
	debounceDelay time.Duration
}

func NewCheckoutService(api gozba.API, carts CartService, publisher OrderEventPublisher, debounceDelay time.Duration) CheckoutService {
	if debounceDelay <= 0 {
		debounceDelay = 500 * time.Millisecond
	}
	return &checkoutService{
		sessions:      make(map[sessionKey]*CheckoutSession),
		api:           api,
		carts:         carts,
		publisher:     publisher,
		debounceDelay: debounceDelay,
	}
}

// Begin starts a fresh session, closing any previous one for the same cart.
func (s *checkoutService) Begin(ctx context.Context, customerID uint, customerToken string, restaurantID uint) (*CheckoutSession, error) {
	logger.Info("Beginning checkout", map[string]interface{}{
		"customer_id":   customerID,
		"restaurant_id": restaurantID,
	})

	session := &CheckoutSession{
		api:           s.api,
		carts:         s.carts,
		publisher:     s.publisher,
		customerID:    customerID,
		customerToken: customerToken,
		restaurantID:  restaurantID,
		debounceDelay: s.debounceDelay,
		state:         CheckoutStateLoading,
	}

	key := sessionKey{customerID: customerID, restaurantID: restaurantID}
	s.mu.Lock()
	if old, ok := s.sessions[key]; ok {
		old.Close()
	}
	s.sessions[key] = session
	s.mu.Unlock()

	if err := session.load(ctx); err != nil {
		return session, err
	}
	return session, nil
}

// Get returns the active session for the cart, if any.
func (s *checkoutService) Get(customerID, restaurantID uint) (*CheckoutSession, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.sessions[sessionKey{customerID: customerID, restaurantID: restaurantID}]
	return session, ok
}

// End closes and forgets the session. Pending debounce timers stop and
// in-flight responses are dropped.
func (s *checkoutService) End(customerID, restaurantID uint) {
	key := sessionKey{customerID: customerID, restaurantID: restaurantID}

	s.mu.Lock()
	session, ok := s.sessions[key]
	if ok {
		delete(s.sessions, key)
	}
	s.mu.Unlock()

	if ok {
		session.Close()
		logger.Debug("Checkout session ended", map[string]interface{}{
			"customer_id":   customerID,
			"restaurant_id": restaurantID,
		})
	}
}
