package application

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/sagamart/order-system/order-service/domain"
	"github.com/sagamart/order-system/shared/models"
	"github.com/sagamart/order-system/shared/telemetry"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// PlaceOrderCommand represents the command to place an order
type PlaceOrderCommand struct {
	CustomerEmail string `json:"customer_email"`
	ProductID     string `json:"product_id"`
	Quantity      int64  `json:"quantity"`
	Price         int64  `json:"price"` // unit price in cents
}

// PlaceOrderResponse represents the response after placing an order
type PlaceOrderResponse struct {
	OrderID    string       `json:"order_id"`
	Status     string       `json:"status"`
	TotalPrice models.Money `json:"total_price"`
}

// PlaceOrder use case creates a PENDING order and stages the order-placed
// event; the outbox dispatcher publishes it after commit.
type PlaceOrder struct {
	orderRepository domain.OrderRepository
}

// NewPlaceOrder creates a new PlaceOrder use case
func NewPlaceOrder(orderRepository domain.OrderRepository) *PlaceOrder {
	return &PlaceOrder{orderRepository: orderRepository}
}

// Execute places a new order
func (uc *PlaceOrder) Execute(ctx context.Context, cmd *PlaceOrderCommand) (*PlaceOrderResponse, error) {
	start := time.Now()
	ctx, span := telemetry.StartSpan(ctx, "place_order",
		trace.WithAttributes(
			attribute.String("product_id", cmd.ProductID),
			attribute.Int64("quantity", cmd.Quantity),
			attribute.Int64("price", cmd.Price),
		),
	)
	defer span.End()

	status := "error"
	defer func() {
		duration := time.Since(start)

		telemetry.RecordCounter(ctx, "order_operations_total", "Total order operations", 1,
			attribute.String("operation", "place_order"),
			attribute.String("status", status),
		)

		telemetry.RecordHistogram(ctx, "order_operation_duration_seconds", "Order operation duration", duration.Seconds(),
			attribute.String("operation", "place_order"),
			attribute.String("status", status),
		)
	}()

	if err := uc.validateCommand(cmd); err != nil {
		span.RecordError(err)
		return nil, errors.Wrap(err, "invalid command")
	}

	productID, err := models.NewID(cmd.ProductID)
	if err != nil {
		span.RecordError(err)
		return nil, errors.Wrap(err, "invalid product ID")
	}

	unitPrice := models.NewMoney(cmd.Price, domain.DefaultCurrency)

	order, err := domain.PlaceOrder(cmd.CustomerEmail, productID, cmd.Quantity, unitPrice)
	if err != nil {
		span.RecordError(err)
		return nil, errors.Wrap(err, "failed to place order")
	}

	if err := uc.orderRepository.Save(ctx, order); err != nil {
		span.RecordError(err)
		return nil, errors.Wrap(err, "failed to save order")
	}

	status = "success"
	span.SetAttributes(attribute.String("order_id", order.ID.String()))

	return &PlaceOrderResponse{
		OrderID:    order.ID.String(),
		Status:     string(order.Status),
		TotalPrice: order.TotalPrice,
	}, nil
}

// validateCommand validates the place order command
func (uc *PlaceOrder) validateCommand(cmd *PlaceOrderCommand) error {
	if cmd.CustomerEmail == "" {
		return errors.New("customer email is required")
	}

	if cmd.ProductID == "" {
		return errors.New("product ID is required")
	}

	if cmd.Quantity <= 0 {
		return errors.New("quantity must be positive")
	}

	if cmd.Price < 0 {
		return errors.New("price cannot be negative")
	}

	return nil
}
