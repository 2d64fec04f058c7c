package controller

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	gorillaws "github.com/gorilla/websocket"
	apperrors "github.com/gozba-na-klik/checkout-gateway/internal/errors"
	"github.com/gozba-na-klik/checkout-gateway/internal/middleware"
	"github.com/gozba-na-klik/checkout-gateway/internal/websocket"
)

var upgrader = gorillaws.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// Origin checks are handled by the CORS layer in front of us.
		return true
	},
}

type TrackingController struct {
	hub *websocket.Hub
}

func NewTrackingController(hub *websocket.Hub) *TrackingController {
	return &TrackingController{
		hub: hub,
	}
}

// Track upgrades the connection and subscribes it to one order's lifecycle
// events. Further orders can be followed with subscribe frames on the same
// connection.
// GET /api/v1/orders/:orderId/track
func (ctrl *TrackingController) Track(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	customerID, exists := middleware.GetCustomerID(c)
	if !exists {
		apperrors.Unauthorized(c, "")
		return
	}

	orderID, err := strconv.ParseUint(c.Param("orderId"), 10, 64)
	if err != nil || orderID == 0 {
		apperrors.BadRequest(c, apperrors.ValidationInvalidID, "Invalid order id")
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error("WebSocket upgrade failed", err, map[string]interface{}{
			"customer_id": customerID,
		})
		return
	}

	client := &websocket.Client{
		Hub:        ctrl.hub,
		Conn:       &websocket.Conn{Conn: conn},
		CustomerID: customerID,
		Send:       make(chan []byte, 64),
		Orders:     make(map[uint]bool),
	}

	ctrl.hub.Register(client)
	ctrl.hub.Subscribe(client, uint(orderID))

	go client.WritePump()
	go client.ReadPump()
}
