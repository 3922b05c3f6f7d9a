package application

import (
	"context"
	"testing"

	"github.com/sagamart/order-system/order-service/domain"
	"github.com/sagamart/order-system/order-service/mocks"
	"github.com/sagamart/order-system/shared/events"
	"github.com/sagamart/order-system/shared/infrastructure"
	"github.com/sagamart/order-system/shared/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func pendingOrder(t *testing.T) *domain.Order {
	t.Helper()

	order, err := domain.PlaceOrder("buyer@example.com", models.GenerateUUID(), 1, models.NewMoney(500, domain.DefaultCurrency))
	require.NoError(t, err)
	order.ClearEvents()
	return order
}

func TestProcessOrderOutcomeConfirms(t *testing.T) {
	repo := mocks.NewOrderRepository(t)
	uc := NewProcessOrderOutcome(repo)

	order := pendingOrder(t)
	repo.On("FindByID", mock.Anything, order.ID).Return(order, nil)
	repo.On("ApplyOutcome", mock.Anything, order, events.PaymentConfirmedEvent).Return(nil)

	err := uc.Execute(context.Background(), &ProcessOrderOutcomeCommand{
		OrderID: order.ID.String(),
		Topic:   events.PaymentConfirmedEvent,
	})
	require.NoError(t, err)

	assert.Equal(t, domain.OrderStatusConfirmed, order.Status)
}

func TestProcessOrderOutcomeCancels(t *testing.T) {
	repo := mocks.NewOrderRepository(t)
	uc := NewProcessOrderOutcome(repo)

	order := pendingOrder(t)
	repo.On("FindByID", mock.Anything, order.ID).Return(order, nil)
	repo.On("ApplyOutcome", mock.Anything, order, events.OrderCancelledEvent).Return(nil)

	err := uc.Execute(context.Background(), &ProcessOrderOutcomeCommand{
		OrderID: order.ID.String(),
		Topic:   events.OrderCancelledEvent,
		Reason:  "insufficient stock: available=0, requested=1",
	})
	require.NoError(t, err)

	assert.Equal(t, domain.OrderStatusCancelled, order.Status)
	assert.Equal(t, "insufficient stock: available=0, requested=1", order.CancelReason)
}

func TestProcessOrderOutcomeDuplicateIsAbsorbed(t *testing.T) {
	repo := mocks.NewOrderRepository(t)
	uc := NewProcessOrderOutcome(repo)

	order := pendingOrder(t)
	repo.On("FindByID", mock.Anything, order.ID).Return(order, nil)
	repo.On("ApplyOutcome", mock.Anything, order, events.PaymentConfirmedEvent).
		Return(infrastructure.ErrDuplicateEvent)

	err := uc.Execute(context.Background(), &ProcessOrderOutcomeCommand{
		OrderID: order.ID.String(),
		Topic:   events.PaymentConfirmedEvent,
	})
	assert.NoError(t, err)
}

func TestProcessOrderOutcomeUnknownOrderIsDropped(t *testing.T) {
	repo := mocks.NewOrderRepository(t)
	uc := NewProcessOrderOutcome(repo)

	orderID := models.GenerateUUID()
	repo.On("FindByID", mock.Anything, orderID).Return(nil, domain.ErrOrderNotFound)

	err := uc.Execute(context.Background(), &ProcessOrderOutcomeCommand{
		OrderID: orderID.String(),
		Topic:   events.OrderCancelledEvent,
		Reason:  "record not found",
	})
	assert.NoError(t, err)
	repo.AssertNotCalled(t, "ApplyOutcome")
}

func TestProcessOrderOutcomeConflictingOutcomeIsDropped(t *testing.T) {
	tests := []struct {
		name       string
		settle     func(t *testing.T, order *domain.Order)
		topic      string
		wantStatus domain.OrderStatus
	}{
		{
			name: "payment confirmed for a cancelled order",
			settle: func(t *testing.T, order *domain.Order) {
				require.NoError(t, order.Cancel("insufficient stock: available=0, requested=1"))
			},
			topic:      events.PaymentConfirmedEvent,
			wantStatus: domain.OrderStatusCancelled,
		},
		{
			name: "cancellation for a confirmed order",
			settle: func(t *testing.T, order *domain.Order) {
				require.NoError(t, order.Confirm())
			},
			topic:      events.OrderCancelledEvent,
			wantStatus: domain.OrderStatusConfirmed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := mocks.NewOrderRepository(t)
			uc := NewProcessOrderOutcome(repo)

			order := pendingOrder(t)
			tt.settle(t, order)
			repo.On("FindByID", mock.Anything, order.ID).Return(order, nil)

			err := uc.Execute(context.Background(), &ProcessOrderOutcomeCommand{
				OrderID: order.ID.String(),
				Topic:   tt.topic,
				Reason:  "too late",
			})
			assert.NoError(t, err)
			assert.Equal(t, tt.wantStatus, order.Status)
			repo.AssertNotCalled(t, "ApplyOutcome")
		})
	}
}

func TestProcessOrderOutcomeUnsupportedTopic(t *testing.T) {
	repo := mocks.NewOrderRepository(t)
	uc := NewProcessOrderOutcome(repo)

	order := pendingOrder(t)
	repo.On("FindByID", mock.Anything, order.ID).Return(order, nil)

	err := uc.Execute(context.Background(), &ProcessOrderOutcomeCommand{
		OrderID: order.ID.String(),
		Topic:   "stock-reserved",
	})
	assert.Error(t, err)
}
