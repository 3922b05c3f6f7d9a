package application

import (
	"context"
	"testing"

	"github.com/pkg/errors"
	"github.com/sagamart/order-system/inventory-service/domain"
	"github.com/sagamart/order-system/inventory-service/mocks"
	"github.com/sagamart/order-system/shared/events"
	"github.com/sagamart/order-system/shared/infrastructure"
	"github.com/sagamart/order-system/shared/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func reserveCommand() *ReserveStockCommand {
	return &ReserveStockCommand{
		OrderID:       models.GenerateUUID().String(),
		ProductID:     models.GenerateUUID().String(),
		Quantity:      3,
		TotalPrice:    models.NewMoney(4500, "USD"),
		CustomerEmail: "buyer@example.com",
	}
}

func TestReserveStockSuccess(t *testing.T) {
	repo := mocks.NewInventoryRepository(t)
	uc := NewReserveStock(repo)

	cmd := reserveCommand()

	var staged *events.Event
	repo.On("ReserveStock", mock.Anything, models.ID(cmd.OrderID), models.ID(cmd.ProductID), int64(3), mock.AnythingOfType("*events.Event")).
		Run(func(args mock.Arguments) {
			staged = args.Get(4).(*events.Event)
		}).
		Return(nil)

	require.NoError(t, uc.Execute(context.Background(), cmd))

	require.NotNil(t, staged)
	assert.Equal(t, events.StockReservedEvent, staged.EventType)

	data, ok := staged.Data.(events.StockReservedData)
	require.True(t, ok)
	assert.Equal(t, cmd.OrderID, data.OrderID.String())
	assert.Equal(t, int64(3), data.Quantity)
	assert.Equal(t, cmd.TotalPrice, data.TotalPrice)
	assert.Equal(t, cmd.CustomerEmail, data.CustomerEmail)

	repo.AssertNotCalled(t, "RecordCancellation")
}

func TestReserveStockInsufficientCancelsOrder(t *testing.T) {
	repo := mocks.NewInventoryRepository(t)
	uc := NewReserveStock(repo)

	cmd := reserveCommand()
	cmd.Quantity = 10

	repo.On("ReserveStock", mock.Anything, models.ID(cmd.OrderID), models.ID(cmd.ProductID), int64(10), mock.AnythingOfType("*events.Event")).
		Return(&domain.InsufficientStockError{Available: 2, Requested: 10})

	var cancelled *events.Event
	repo.On("RecordCancellation", mock.Anything, models.ID(cmd.OrderID), mock.AnythingOfType("*events.Event")).
		Run(func(args mock.Arguments) {
			cancelled = args.Get(2).(*events.Event)
		}).
		Return(nil)

	require.NoError(t, uc.Execute(context.Background(), cmd))

	require.NotNil(t, cancelled)
	assert.Equal(t, events.OrderCancelledEvent, cancelled.EventType)

	data, ok := cancelled.Data.(events.OrderCancelledData)
	require.True(t, ok)
	assert.Equal(t, "insufficient stock: available=2, requested=10", data.Reason)
}

func TestReserveStockUnknownProductCancelsOrder(t *testing.T) {
	repo := mocks.NewInventoryRepository(t)
	uc := NewReserveStock(repo)

	cmd := reserveCommand()

	repo.On("ReserveStock", mock.Anything, models.ID(cmd.OrderID), models.ID(cmd.ProductID), int64(3), mock.AnythingOfType("*events.Event")).
		Return(domain.ErrInventoryNotFound)

	var cancelled *events.Event
	repo.On("RecordCancellation", mock.Anything, models.ID(cmd.OrderID), mock.AnythingOfType("*events.Event")).
		Run(func(args mock.Arguments) {
			cancelled = args.Get(2).(*events.Event)
		}).
		Return(nil)

	require.NoError(t, uc.Execute(context.Background(), cmd))

	data, ok := cancelled.Data.(events.OrderCancelledData)
	require.True(t, ok)
	assert.Contains(t, data.Reason, "not found")
	assert.Contains(t, data.Reason, cmd.ProductID)
}

func TestReserveStockDuplicateIsSkipped(t *testing.T) {
	repo := mocks.NewInventoryRepository(t)
	uc := NewReserveStock(repo)

	cmd := reserveCommand()

	repo.On("ReserveStock", mock.Anything, models.ID(cmd.OrderID), models.ID(cmd.ProductID), int64(3), mock.AnythingOfType("*events.Event")).
		Return(infrastructure.ErrDuplicateEvent)

	assert.NoError(t, uc.Execute(context.Background(), cmd))
	repo.AssertNotCalled(t, "RecordCancellation")
}

func TestReserveStockInfraErrorPropagates(t *testing.T) {
	repo := mocks.NewInventoryRepository(t)
	uc := NewReserveStock(repo)

	cmd := reserveCommand()

	repo.On("ReserveStock", mock.Anything, models.ID(cmd.OrderID), models.ID(cmd.ProductID), int64(3), mock.AnythingOfType("*events.Event")).
		Return(errors.New("connection refused"))

	err := uc.Execute(context.Background(), cmd)
	assert.ErrorContains(t, err, "failed to reserve stock")
	repo.AssertNotCalled(t, "RecordCancellation")
}

func TestReserveStockCancellationDuplicateIsSkipped(t *testing.T) {
	repo := mocks.NewInventoryRepository(t)
	uc := NewReserveStock(repo)

	cmd := reserveCommand()

	repo.On("ReserveStock", mock.Anything, models.ID(cmd.OrderID), models.ID(cmd.ProductID), int64(3), mock.AnythingOfType("*events.Event")).
		Return(&domain.InsufficientStockError{Available: 0, Requested: 3})
	repo.On("RecordCancellation", mock.Anything, models.ID(cmd.OrderID), mock.AnythingOfType("*events.Event")).
		Return(infrastructure.ErrDuplicateEvent)

	assert.NoError(t, uc.Execute(context.Background(), cmd))
}
