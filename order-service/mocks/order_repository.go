package mocks

import (
	"context"

	"github.com/sagamart/order-system/order-service/domain"
	"github.com/sagamart/order-system/shared/models"
	"github.com/stretchr/testify/mock"
)

// OrderRepository is a mock implementation of domain.OrderRepository
type OrderRepository struct {
	mock.Mock
}

// NewOrderRepository creates a mock wired to the test's cleanup and
// expectation assertions
func NewOrderRepository(t interface {
	mock.TestingT
	Cleanup(func())
}) *OrderRepository {
	m := &OrderRepository{}
	m.Mock.Test(t)

	t.Cleanup(func() { m.AssertExpectations(t) })

	return m
}

func (m *OrderRepository) Save(ctx context.Context, order *domain.Order) error {
	args := m.Called(ctx, order)
	return args.Error(0)
}

func (m *OrderRepository) ApplyOutcome(ctx context.Context, order *domain.Order, topic string) error {
	args := m.Called(ctx, order, topic)
	return args.Error(0)
}

func (m *OrderRepository) FindByID(ctx context.Context, id models.ID) (*domain.Order, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Order), args.Error(1)
}

func (m *OrderRepository) FindByCustomerEmail(ctx context.Context, email string, limit, offset int) ([]*domain.Order, error) {
	args := m.Called(ctx, email, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Order), args.Error(1)
}

func (m *OrderRepository) FindAll(ctx context.Context, limit, offset int) ([]*domain.Order, error) {
	args := m.Called(ctx, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Order), args.Error(1)
}
