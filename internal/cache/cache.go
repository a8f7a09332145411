package cache

import (
	"context"
	"errors"

	"github.com/arbatrahul/ecommerce-cart-service/internal/domain"
)

// CartCache holds the most recently materialized cart per user. It is an
// optimization only: a miss or an unavailable cache changes latency, never
// correctness. Put is only called after a successful store write.
type CartCache interface {
	Get(ctx context.Context, userID string) (*domain.Cart, error)
	Put(ctx context.Context, userID string, cart *domain.Cart) error
	Evict(ctx context.Context, userID string) error
}

var ErrCacheMiss = errors.New("cache miss")
