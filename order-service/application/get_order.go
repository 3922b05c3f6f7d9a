package application

import (
	"context"

	"github.com/pkg/errors"
	"github.com/sagamart/order-system/order-service/domain"
	"github.com/sagamart/order-system/shared/models"
)

// GetOrderQuery represents the query to get an order
type GetOrderQuery struct {
	OrderID string `json:"order_id"`
}

// GetOrderResponse represents an order in API responses
type GetOrderResponse struct {
	OrderID       string       `json:"order_id"`
	CustomerEmail string       `json:"customer_email"`
	ProductID     string       `json:"product_id"`
	Quantity      int64        `json:"quantity"`
	TotalPrice    models.Money `json:"total_price"`
	Status        string       `json:"status"`
	CancelReason  string       `json:"cancel_reason,omitempty"`
}

// GetOrder use case retrieves an order by ID
type GetOrder struct {
	orderRepository domain.OrderRepository
}

// NewGetOrder creates a new GetOrder use case
func NewGetOrder(orderRepository domain.OrderRepository) *GetOrder {
	return &GetOrder{orderRepository: orderRepository}
}

// Execute retrieves an order
func (uc *GetOrder) Execute(ctx context.Context, query *GetOrderQuery) (*GetOrderResponse, error) {
	if query.OrderID == "" {
		return nil, errors.New("order ID is required")
	}

	orderID, err := models.NewID(query.OrderID)
	if err != nil {
		return nil, errors.Wrap(err, "invalid order ID")
	}

	order, err := uc.orderRepository.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	return toOrderResponse(order), nil
}

func toOrderResponse(order *domain.Order) *GetOrderResponse {
	return &GetOrderResponse{
		OrderID:       order.ID.String(),
		CustomerEmail: order.CustomerEmail,
		ProductID:     order.ProductID.String(),
		Quantity:      order.Quantity,
		TotalPrice:    order.TotalPrice,
		Status:        string(order.Status),
		CancelReason:  order.CancelReason,
	}
}
