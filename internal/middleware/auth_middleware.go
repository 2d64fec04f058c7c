package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gozba-na-klik/checkout-gateway/internal/errors"
	"github.com/gozba-na-klik/checkout-gateway/pkg/util"
)

// Context keys for the authenticated customer.
const (
	CustomerIDKey    = "customer_id"
	CustomerEmailKey = "customer_email"
	CustomerTokenKey = "customer_token"
)

type AuthMiddleware struct {
	jwtSecret string
}

func NewAuthMiddleware(jwtSecret string) *AuthMiddleware {
	return &AuthMiddleware{
		jwtSecret: jwtSecret,
	}
}

// Authenticate validates the customer JWT. The raw token is kept in the
// context because upstream core API calls are made on the customer's behalf.
func (m *AuthMiddleware) Authenticate() gin.HandlerFunc {
	return func(c *gin.Context) {
		log := GetLoggerFromContext(c)

		var token string

		authHeader := c.GetHeader("Authorization")
		if authHeader != "" {
			parts := strings.Split(authHeader, " ")
			if len(parts) != 2 || parts[0] != "Bearer" {
				log.Warn("Invalid authorization header format", map[string]interface{}{
					"path": c.Request.URL.Path,
				})
				errors.RespondWithError(c, http.StatusUnauthorized, errors.AuthTokenInvalid, "Invalid authorization header")
				c.Abort()
				return
			}
			token = parts[1]
		} else {
			// WebSocket clients cannot set headers; they pass the token as a
			// query parameter instead.
			token = c.Query("token")
			if token == "" {
				log.Warn("Missing authorization header", map[string]interface{}{
					"path": c.Request.URL.Path,
				})
				errors.Unauthorized(c, "Login required")
				c.Abort()
				return
			}
		}

		claims, err := util.ValidateToken(token, m.jwtSecret)
		if err != nil {
			log.Warn("Token validation failed", map[string]interface{}{
				"path":  c.Request.URL.Path,
				"error": err.Error(),
			})

			if err == util.ErrExpiredToken {
				errors.RespondWithError(c, http.StatusUnauthorized, errors.AuthTokenExpired, "Session expired, please log in again")
			} else {
				errors.RespondWithError(c, http.StatusUnauthorized, errors.AuthTokenInvalid, "Invalid authentication token")
			}
			c.Abort()
			return
		}

		c.Set(CustomerIDKey, claims.UserID)
		c.Set(CustomerEmailKey, claims.Email)
		c.Set(CustomerTokenKey, token)

		log.Debug("Customer authenticated successfully", map[string]interface{}{
			"customer_id": claims.UserID,
		})

		c.Next()
	}
}

// GetCustomerID returns the authenticated customer's id from the context.
func GetCustomerID(c *gin.Context) (uint, bool) {
	value, exists := c.Get(CustomerIDKey)
	if !exists {
		return 0, false
	}
	id, ok := value.(uint)
	return id, ok
}

// GetCustomerToken returns the raw JWT for forwarding upstream.
func GetCustomerToken(c *gin.Context) string {
	return c.GetString(CustomerTokenKey)
}
