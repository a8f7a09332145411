package events

import (
	"context"
	"time"

	"github.com/google/uuid"
)

const (
	EventItemAdded         = "ITEM_ADDED"
	EventItemUpdated       = "ITEM_UPDATED"
	EventItemRemoved       = "ITEM_REMOVED"
	EventCartCleared       = "CART_CLEARED"
	EventCheckoutInitiated = "CHECKOUT_INITIATED"
)

// CartEvent is published once per applied mutation, after the cart has been
// durably persisted. Delivery is at-least-once and best-effort: a failed
// publish never rolls back the mutation.
type CartEvent struct {
	EventID    string    `json:"eventId"`
	UserID     string    `json:"userId"`
	EventType  string    `json:"eventType"`
	ProductID  int64     `json:"productId,omitempty"`
	Quantity   int       `json:"quantity"`
	OccurredAt time.Time `json:"occurredAt"`
}

func NewCartEvent(userID, eventType string, productID int64, quantity int) CartEvent {
	return CartEvent{
		EventID:    uuid.NewString(),
		UserID:     userID,
		EventType:  eventType,
		ProductID:  productID,
		Quantity:   quantity,
		OccurredAt: time.Now(),
	}
}

type EventPublisher interface {
	Publish(ctx context.Context, event CartEvent) error
}
