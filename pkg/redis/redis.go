package redis

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/gozba-na-klik/checkout-gateway/config"
	"github.com/gozba-na-klik/checkout-gateway/pkg/logger"
	"github.com/redis/go-redis/v9"
)

var client *redis.Client

// errNotConnected is returned when Init failed or was never called. The
// gateway treats the side channel as optional and keeps running.
var errNotConnected = fmt.Errorf("redis not connected")

// Init initializes the Redis connection.
func Init(cfg *config.RedisConfig) error {
	logger.Info("Initializing Redis connection", map[string]interface{}{
		"host": cfg.Host,
		"port": cfg.Port,
		"db":   cfg.DB,
	})

	client = redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%s", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		logger.Error("Failed to connect to Redis", err, map[string]interface{}{
			"host": cfg.Host,
			"port": cfg.Port,
		})
		return fmt.Errorf("failed to connect to Redis: %w", err)
	}

	logger.Info("Redis connection established successfully", nil)
	return nil
}

// GetClient returns the Redis client instance.
func GetClient() *redis.Client {
	return client
}

// Close closes the Redis connection.
func Close() error {
	if client != nil {
		logger.Info("Closing Redis connection", nil)
		return client.Close()
	}
	return nil
}

func activeCartKey(customerID uint) string {
	return fmt.Sprintf("active_cart:%d", customerID)
}

// SetActiveCart remembers the restaurant whose cart the customer touched
// last. Best-effort convenience state; callers are expected to swallow the
// error.
func SetActiveCart(ctx context.Context, customerID, restaurantID uint) error {
	if client == nil {
		return errNotConnected
	}
	err := client.Set(ctx, activeCartKey(customerID), restaurantID, 0).Err()
	if err != nil {
		logger.Warn("Failed to record active cart", map[string]interface{}{
			"customer_id":   customerID,
			"restaurant_id": restaurantID,
			"error":         err.Error(),
		})
		return err
	}
	return nil
}

// GetActiveCart returns the customer's last active restaurant cart, if any.
func GetActiveCart(ctx context.Context, customerID uint) (uint, bool, error) {
	if client == nil {
		return 0, false, nil
	}
	val, err := client.Get(ctx, activeCartKey(customerID)).Result()
	if err == redis.Nil {
		return 0, false, nil
	}
	if err != nil {
		logger.Error("Failed to read active cart", err, map[string]interface{}{
			"customer_id": customerID,
		})
		return 0, false, err
	}

	restaurantID, err := strconv.ParseUint(val, 10, 64)
	if err != nil {
		return 0, false, fmt.Errorf("corrupt active cart value %q: %w", val, err)
	}
	return uint(restaurantID), true, nil
}

// ClearActiveCart drops the last-active-cart marker.
func ClearActiveCart(ctx context.Context, customerID uint) error {
	if client == nil {
		return errNotConnected
	}
	return client.Del(ctx, activeCartKey(customerID)).Err()
}
