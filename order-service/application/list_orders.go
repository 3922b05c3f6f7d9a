package application

import (
	"context"

	"github.com/sagamart/order-system/order-service/domain"
)

const defaultPageSize = 50

// ListOrdersQuery represents the query to list orders, optionally
// filtered by customer email
type ListOrdersQuery struct {
	CustomerEmail string `json:"customer_email,omitempty"`
	Limit         int    `json:"limit"`
	Offset        int    `json:"offset"`
}

// ListOrdersResponse represents a page of orders
type ListOrdersResponse struct {
	Orders []*GetOrderResponse `json:"orders"`
}

// ListOrders use case lists orders
type ListOrders struct {
	orderRepository domain.OrderRepository
}

// NewListOrders creates a new ListOrders use case
func NewListOrders(orderRepository domain.OrderRepository) *ListOrders {
	return &ListOrders{orderRepository: orderRepository}
}

// Execute lists orders
func (uc *ListOrders) Execute(ctx context.Context, query *ListOrdersQuery) (*ListOrdersResponse, error) {
	limit := query.Limit
	if limit <= 0 {
		limit = defaultPageSize
	}

	offset := query.Offset
	if offset < 0 {
		offset = 0
	}

	var (
		orders []*domain.Order
		err    error
	)

	if query.CustomerEmail != "" {
		orders, err = uc.orderRepository.FindByCustomerEmail(ctx, query.CustomerEmail, limit, offset)
	} else {
		orders, err = uc.orderRepository.FindAll(ctx, limit, offset)
	}
	if err != nil {
		return nil, err
	}

	responses := make([]*GetOrderResponse, len(orders))
	for i, order := range orders {
		responses[i] = toOrderResponse(order)
	}

	return &ListOrdersResponse{Orders: responses}, nil
}
