package repository

import (
	"context"

	"github.com/arbatrahul/ecommerce-cart-service/internal/domain"
)

// CartRepository defines the interface for durable cart storage.
// Consumers define this interface, not the MongoDB implementation.
type CartRepository interface {
	GetCart(ctx context.Context, userID string) (*domain.Cart, error)
	UpsertCart(ctx context.Context, cart *domain.Cart) error
}
