package events

import (
	"encoding/json"
	"testing"

	"github.com/sagamart/order-system/shared/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTopicMatches(t *testing.T) {
	tests := []struct {
		name    string
		topic   Topic
		pattern Topic
		want    bool
	}{
		{"exact match", "order-placed", "order-placed", true},
		{"exact mismatch", "order-placed", "order-cancelled", false},
		{"prefix pattern", "stock-reserved", "stock-#", true},
		{"prefix pattern mismatch", "order-placed", "stock-#", false},
		{"suffix pattern", "payment-failed", "#-failed", true},
		{"contains pattern", "payment-confirmed", "#confirm#", true},
		{"wildcard all", "stock-released", "##", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.topic.Matches(tt.pattern))
		})
	}
}

func TestEventUnmarshalPayload(t *testing.T) {
	orderID := models.GenerateUUID()
	productID := models.GenerateUUID()

	evt := NewEvent(orderID, OrderPlacedEvent, OrderPlacedData{
		OrderID:       orderID,
		ProductID:     productID,
		Quantity:      3,
		TotalPrice:    models.NewMoney(10000, "USD"),
		CustomerEmail: "buyer@example.com",
	})

	// Same-type payload is copied directly.
	var direct OrderPlacedData
	require.NoError(t, evt.UnmarshalPayload(&direct))
	assert.Equal(t, orderID, direct.OrderID)
	assert.Equal(t, int64(3), direct.Quantity)

	// After a wire round trip the payload arrives as raw JSON.
	raw, err := evt.ToJSON()
	require.NoError(t, err)

	decoded, err := FromJSON(raw)
	require.NoError(t, err)
	assert.Equal(t, Topic(OrderPlacedEvent), decoded.Topic)
	assert.Equal(t, orderID, decoded.AggregateID)

	payload, err := decoded.MarshalPayload()
	require.NoError(t, err)
	decoded.Data = json.RawMessage(payload)

	var wired OrderPlacedData
	require.NoError(t, decoded.UnmarshalPayload(&wired))
	assert.Equal(t, direct, wired)
}

func TestEventUnmarshalPayloadRejectsNonPointer(t *testing.T) {
	evt := NewEvent(models.GenerateUUID(), StockReleasedEvent, StockReleasedData{})

	var data StockReleasedData
	assert.ErrorIs(t, evt.UnmarshalPayload(data), ErrInvalidReceiver)
}

func TestEventCorrelation(t *testing.T) {
	orderID := models.GenerateUUID()
	evt := NewEvent(orderID, OrderCancelledEvent, OrderCancelledData{
		OrderID: orderID,
		Reason:  "insufficient stock: available=2, requested=10",
	}).WithCorrelationID(orderID).WithMetadata("origin", "inventory-service")

	assert.Equal(t, orderID, evt.CorrelationID)
	origin, ok := evt.Metadata.Get("origin")
	assert.True(t, ok)
	assert.Equal(t, "inventory-service", origin)

	clone := evt.Clone()
	clone.Metadata.Set("origin", "other")
	origin, _ = evt.Metadata.Get("origin")
	assert.Equal(t, "inventory-service", origin)
}
