package mocks

import (
	"context"

	"github.com/sagamart/order-system/inventory-service/domain"
	"github.com/sagamart/order-system/shared/events"
	"github.com/sagamart/order-system/shared/models"
	"github.com/stretchr/testify/mock"
)

// InventoryRepository is a mock implementation of domain.InventoryRepository
type InventoryRepository struct {
	mock.Mock
}

// NewInventoryRepository creates a mock wired to the test's cleanup and
// expectation assertions
func NewInventoryRepository(t interface {
	mock.TestingT
	Cleanup(func())
}) *InventoryRepository {
	m := &InventoryRepository{}
	m.Mock.Test(t)

	t.Cleanup(func() { m.AssertExpectations(t) })

	return m
}

func (m *InventoryRepository) Save(ctx context.Context, inventory *domain.Inventory) error {
	args := m.Called(ctx, inventory)
	return args.Error(0)
}

func (m *InventoryRepository) FindByProductID(ctx context.Context, productID models.ID) (*domain.Inventory, error) {
	args := m.Called(ctx, productID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Inventory), args.Error(1)
}

func (m *InventoryRepository) ReserveStock(ctx context.Context, orderID, productID models.ID, quantity int64, reserved *events.Event) error {
	args := m.Called(ctx, orderID, productID, quantity, reserved)
	return args.Error(0)
}

func (m *InventoryRepository) RecordCancellation(ctx context.Context, orderID models.ID, cancelled *events.Event) error {
	args := m.Called(ctx, orderID, cancelled)
	return args.Error(0)
}

func (m *InventoryRepository) ReleaseStock(ctx context.Context, orderID, productID models.ID, quantity int64, released *events.Event) error {
	args := m.Called(ctx, orderID, productID, quantity, released)
	return args.Error(0)
}
