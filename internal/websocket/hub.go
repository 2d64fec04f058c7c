package websocket

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/gozba-na-klik/checkout-gateway/pkg/logger"
)

// ClientMessage is a control message from a tracking client.
type ClientMessage struct {
	Type    string `json:"type"` // subscribe, unsubscribe
	OrderID uint   `json:"order_id"`
}

// OrderEvent is one order lifecycle event pushed to subscribers.
type OrderEvent struct {
	Type         string    `json:"type"` // order_created, status_changed, courier_location
	OrderID      uint      `json:"order_id"`
	RestaurantID uint      `json:"restaurant_id,omitempty"`
	Status       string    `json:"status,omitempty"`
	OccurredAt   time.Time `json:"occurred_at"`
}

// Client is one WebSocket tracking connection.
type Client struct {
	Hub        *Hub
	Conn       *Conn
	CustomerID uint
	Send       chan []byte
	Orders     map[uint]bool // orders this connection follows
	mu         sync.RWMutex
}

// Hub relays order events to subscribed connections. The real-time courier
// feed lives in an external push hub; this is the thin relay the frontend
// talks to.
type Hub struct {
	// connections per customer (multi-device)
	clients map[uint][]*Client

	// order id -> subscribed clients
	orders map[uint]map[*Client]bool

	register   chan *Client
	unregister chan *Client
	broadcast  chan *OrderEvent

	mu sync.RWMutex
}

func NewHub() *Hub {
	return &Hub{
		clients:    make(map[uint][]*Client),
		orders:     make(map[uint]map[*Client]bool),
		register:   make(chan *Client, 256),
		unregister: make(chan *Client, 256),
		broadcast:  make(chan *OrderEvent, 1024),
	}
}

// Run processes registrations and event fan-out. Call in its own goroutine.
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client.CustomerID] = append(h.clients[client.CustomerID], client)
			h.mu.Unlock()
			logger.Info("Tracking client registered", map[string]interface{}{
				"customer_id": client.CustomerID,
			})

		case client := <-h.unregister:
			h.removeClient(client)

		case event := <-h.broadcast:
			h.deliver(event)
		}
	}
}

func (h *Hub) removeClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	list, ok := h.clients[client.CustomerID]
	if !ok {
		return
	}

	kept := make([]*Client, 0, len(list))
	for _, c := range list {
		if c != client {
			kept = append(kept, c)
		}
	}
	if len(kept) == 0 {
		delete(h.clients, client.CustomerID)
	} else {
		h.clients[client.CustomerID] = kept
	}

	client.mu.RLock()
	for orderID := range client.Orders {
		if subs, ok := h.orders[orderID]; ok {
			delete(subs, client)
			if len(subs) == 0 {
				delete(h.orders, orderID)
			}
		}
	}
	client.mu.RUnlock()

	close(client.Send)
	logger.Info("Tracking client unregistered", map[string]interface{}{
		"customer_id": client.CustomerID,
	})
}

func (h *Hub) deliver(event *OrderEvent) {
	payload, err := json.Marshal(event)
	if err != nil {
		logger.Error("Failed to marshal order event", err, map[string]interface{}{
			"order_id": event.OrderID,
		})
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for client := range h.orders[event.OrderID] {
		select {
		case client.Send <- payload:
		default:
			// Slow consumer; drop the event rather than block the hub.
			logger.Warn("Dropping order event for slow tracking client", map[string]interface{}{
				"customer_id": client.CustomerID,
				"order_id":    event.OrderID,
			})
		}
	}
}

// Register queues a connection for registration with the hub.
func (h *Hub) Register(client *Client) {
	h.register <- client
}

// HandleClientMessage processes subscribe/unsubscribe control messages.
func (h *Hub) HandleClientMessage(client *Client, raw []byte) {
	var msg ClientMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		logger.Warn("Ignoring malformed tracking message", map[string]interface{}{
			"customer_id": client.CustomerID,
			"error":       err.Error(),
		})
		return
	}

	switch msg.Type {
	case "subscribe":
		h.Subscribe(client, msg.OrderID)
	case "unsubscribe":
		h.Unsubscribe(client, msg.OrderID)
	}
}

// Subscribe adds the connection to an order's subscriber set.
func (h *Hub) Subscribe(client *Client, orderID uint) {
	h.mu.Lock()
	if h.orders[orderID] == nil {
		h.orders[orderID] = make(map[*Client]bool)
	}
	h.orders[orderID][client] = true
	h.mu.Unlock()

	client.mu.Lock()
	client.Orders[orderID] = true
	client.mu.Unlock()

	logger.Debug("Tracking subscription added", map[string]interface{}{
		"customer_id": client.CustomerID,
		"order_id":    orderID,
	})
}

// Unsubscribe removes the connection from an order's subscriber set.
func (h *Hub) Unsubscribe(client *Client, orderID uint) {
	h.mu.Lock()
	if subs, ok := h.orders[orderID]; ok {
		delete(subs, client)
		if len(subs) == 0 {
			delete(h.orders, orderID)
		}
	}
	h.mu.Unlock()

	client.mu.Lock()
	delete(client.Orders, orderID)
	client.mu.Unlock()
}

// PublishOrderCreated pushes the initial lifecycle event for a new order.
// Satisfies service.OrderEventPublisher.
func (h *Hub) PublishOrderCreated(customerID, restaurantID, orderID uint) {
	h.broadcast <- &OrderEvent{
		Type:         "order_created",
		OrderID:      orderID,
		RestaurantID: restaurantID,
		Status:       "pending",
		OccurredAt:   time.Now(),
	}
}

// PublishStatusChange relays an order status update from the core API.
func (h *Hub) PublishStatusChange(orderID uint, status string) {
	h.broadcast <- &OrderEvent{
		Type:       "status_changed",
		OrderID:    orderID,
		Status:     status,
		OccurredAt: time.Now(),
	}
}
