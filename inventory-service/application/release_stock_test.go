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

func releaseCommand() *ReleaseStockCommand {
	return &ReleaseStockCommand{
		OrderID:   models.GenerateUUID().String(),
		ProductID: models.GenerateUUID().String(),
		Quantity:  3,
		Reason:    "card declined",
	}
}

func TestReleaseStockSuccess(t *testing.T) {
	repo := mocks.NewInventoryRepository(t)
	uc := NewReleaseStock(repo)

	cmd := releaseCommand()

	var staged *events.Event
	repo.On("ReleaseStock", mock.Anything, models.ID(cmd.OrderID), models.ID(cmd.ProductID), int64(3), mock.AnythingOfType("*events.Event")).
		Run(func(args mock.Arguments) {
			staged = args.Get(4).(*events.Event)
		}).
		Return(nil)

	require.NoError(t, uc.Execute(context.Background(), cmd))

	require.NotNil(t, staged)
	assert.Equal(t, events.StockReleasedEvent, staged.EventType)

	data, ok := staged.Data.(events.StockReleasedData)
	require.True(t, ok)
	assert.Equal(t, int64(3), data.Quantity)
	assert.Equal(t, "payment failed: card declined", data.Reason)
}

func TestReleaseStockMissingRecordIsAbsorbed(t *testing.T) {
	repo := mocks.NewInventoryRepository(t)
	uc := NewReleaseStock(repo)

	cmd := releaseCommand()

	repo.On("ReleaseStock", mock.Anything, models.ID(cmd.OrderID), models.ID(cmd.ProductID), int64(3), mock.AnythingOfType("*events.Event")).
		Return(domain.ErrInventoryNotFound)

	assert.NoError(t, uc.Execute(context.Background(), cmd))
}

func TestReleaseStockDuplicateIsSkipped(t *testing.T) {
	repo := mocks.NewInventoryRepository(t)
	uc := NewReleaseStock(repo)

	cmd := releaseCommand()

	repo.On("ReleaseStock", mock.Anything, models.ID(cmd.OrderID), models.ID(cmd.ProductID), int64(3), mock.AnythingOfType("*events.Event")).
		Return(infrastructure.ErrDuplicateEvent)

	assert.NoError(t, uc.Execute(context.Background(), cmd))
}

func TestReleaseStockInfraErrorPropagates(t *testing.T) {
	repo := mocks.NewInventoryRepository(t)
	uc := NewReleaseStock(repo)

	cmd := releaseCommand()

	repo.On("ReleaseStock", mock.Anything, models.ID(cmd.OrderID), models.ID(cmd.ProductID), int64(3), mock.AnythingOfType("*events.Event")).
		Return(errors.New("connection refused"))

	assert.ErrorContains(t, uc.Execute(context.Background(), cmd), "failed to release stock")
}
