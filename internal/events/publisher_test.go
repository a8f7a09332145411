package events

import (
	"encoding/json"
	"fmt"
	"testing"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewCartEvent(t *testing.T) {
	event := NewCartEvent("123", EventItemAdded, 42, 3)

	assert.NotEmpty(t, event.EventID)
	assert.Equal(t, "123", event.UserID)
	assert.Equal(t, EventItemAdded, event.EventType)
	assert.Equal(t, int64(42), event.ProductID)
	assert.Equal(t, 3, event.Quantity)
	assert.False(t, event.OccurredAt.IsZero())
}

func TestNewCartEvent_UniqueIDs(t *testing.T) {
	a := NewCartEvent("123", EventItemAdded, 1, 1)
	b := NewCartEvent("123", EventItemAdded, 1, 1)
	assert.NotEqual(t, a.EventID, b.EventID)
}

func TestKafkaPublisher_SameUserStaysOnOnePartition(t *testing.T) {
	p := NewKafkaPublisher("localhost:9092")
	defer p.Close()

	require.IsType(t, &kafka.Hash{}, p.writer.Balancer,
		"balancer must partition by key or per-user ordering is lost")

	partitions := []int{0, 1, 2}
	msg := kafka.Message{Key: []byte("user-123")}

	first := p.writer.Balancer.Balance(msg, partitions...)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, p.writer.Balancer.Balance(msg, partitions...),
			"events keyed by the same user must always land on the same partition")
	}
}

func TestKafkaPublisher_DifferentUsersMaySpread(t *testing.T) {
	p := NewKafkaPublisher("localhost:9092")
	defer p.Close()

	partitions := []int{0, 1, 2}
	seen := map[int]bool{}
	for i := 0; i < 50; i++ {
		msg := kafka.Message{Key: []byte(fmt.Sprintf("user-%d", i))}
		seen[p.writer.Balancer.Balance(msg, partitions...)] = true
	}
	assert.Greater(t, len(seen), 1, "distinct users should spread across partitions")
}

func TestCartEvent_JSONShape(t *testing.T) {
	event := NewCartEvent("123", EventCheckoutInitiated, 0, 5)

	payload, err := json.Marshal(event)
	require.NoError(t, err)

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(payload, &decoded))

	assert.Equal(t, "123", decoded["userId"])
	assert.Equal(t, "CHECKOUT_INITIATED", decoded["eventType"])
	assert.Equal(t, float64(5), decoded["quantity"])
	_, hasProduct := decoded["productId"]
	assert.False(t, hasProduct, "zero productId is omitted for cart-level events")
}
