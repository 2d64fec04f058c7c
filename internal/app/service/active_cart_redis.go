package service

import (
	"context"

	"github.com/gozba-na-klik/checkout-gateway/pkg/redis"
)

// redisActiveCartRecorder backs the last-active-cart side channel with Redis.
type redisActiveCartRecorder struct{}

// NewRedisActiveCartRecorder returns an ActiveCartRecorder using the shared
// Redis connection from pkg/redis.
func NewRedisActiveCartRecorder() ActiveCartRecorder {
	return &redisActiveCartRecorder{}
}

func (r *redisActiveCartRecorder) SetActiveCart(ctx context.Context, customerID, restaurantID uint) error {
	return redis.SetActiveCart(ctx, customerID, restaurantID)
}

func (r *redisActiveCartRecorder) GetActiveCart(ctx context.Context, customerID uint) (uint, bool, error) {
	return redis.GetActiveCart(ctx, customerID)
}
