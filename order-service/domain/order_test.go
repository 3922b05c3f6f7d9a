package domain

import (
	"testing"

	"github.com/sagamart/order-system/shared/events"
	"github.com/sagamart/order-system/shared/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPlaceOrder(t *testing.T) {
	productID := models.GenerateUUID()

	order, err := PlaceOrder("buyer@example.com", productID, 3, models.NewMoney(1500, DefaultCurrency))
	require.NoError(t, err)

	assert.Equal(t, OrderStatusPending, order.Status)
	assert.Equal(t, int64(3), order.Quantity)
	assert.Equal(t, int64(4500), order.TotalPrice.Amount)
	assert.Equal(t, DefaultCurrency, order.TotalPrice.Currency)

	require.Len(t, order.Events(), 1)
	event := order.Events()[0]
	assert.Equal(t, events.OrderPlacedEvent, event.EventType)
	assert.Equal(t, order.ID, event.AggregateID)

	data, ok := event.Data.(events.OrderPlacedData)
	require.True(t, ok)
	assert.Equal(t, order.ID, data.OrderID)
	assert.Equal(t, productID, data.ProductID)
	assert.Equal(t, int64(3), data.Quantity)
	assert.Equal(t, "buyer@example.com", data.CustomerEmail)
}

func TestPlaceOrderValidation(t *testing.T) {
	productID := models.GenerateUUID()
	price := models.NewMoney(1000, DefaultCurrency)

	tests := []struct {
		name     string
		email    string
		quantity int64
		price    models.Money
	}{
		{"missing email", "", 1, price},
		{"zero quantity", "buyer@example.com", 0, price},
		{"negative quantity", "buyer@example.com", -2, price},
		{"negative price", "buyer@example.com", 1, models.NewMoney(-100, DefaultCurrency)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := PlaceOrder(tt.email, productID, tt.quantity, tt.price)
			assert.Error(t, err)
		})
	}
}

func TestPlaceOrderFreeOfCharge(t *testing.T) {
	order, err := PlaceOrder("buyer@example.com", models.GenerateUUID(), 2, models.NewMoney(0, DefaultCurrency))
	require.NoError(t, err)

	assert.Equal(t, int64(0), order.TotalPrice.Amount)
	assert.Equal(t, OrderStatusPending, order.Status)
}

func TestOrderConfirm(t *testing.T) {
	order := placedOrder(t)

	require.NoError(t, order.Confirm())
	assert.Equal(t, OrderStatusConfirmed, order.Status)

	// Idempotent on redelivery
	require.NoError(t, order.Confirm())
	assert.Equal(t, OrderStatusConfirmed, order.Status)

	assert.ErrorIs(t, order.Cancel("too late"), ErrOrderFinalized)
	assert.Equal(t, OrderStatusConfirmed, order.Status)
}

func TestOrderCancel(t *testing.T) {
	order := placedOrder(t)

	require.NoError(t, order.Cancel("insufficient stock: available=1, requested=3"))
	assert.Equal(t, OrderStatusCancelled, order.Status)
	assert.Equal(t, "insufficient stock: available=1, requested=3", order.CancelReason)

	// Idempotent on redelivery, first reason wins
	require.NoError(t, order.Cancel("another reason"))
	assert.Equal(t, "insufficient stock: available=1, requested=3", order.CancelReason)

	assert.ErrorIs(t, order.Confirm(), ErrOrderFinalized)
	assert.Equal(t, OrderStatusCancelled, order.Status)
}

func placedOrder(t *testing.T) *Order {
	t.Helper()

	order, err := PlaceOrder("buyer@example.com", models.GenerateUUID(), 3, models.NewMoney(1500, DefaultCurrency))
	require.NoError(t, err)
	order.ClearEvents()
	return order
}
