package application

import (
	"context"
	"log"
	"time"

	"github.com/pkg/errors"
	"github.com/sagamart/order-system/inventory-service/domain"
	"github.com/sagamart/order-system/shared/events"
	"github.com/sagamart/order-system/shared/infrastructure"
	"github.com/sagamart/order-system/shared/models"
	"github.com/sagamart/order-system/shared/telemetry"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// ReserveStockCommand carries an order-placed event's payload
type ReserveStockCommand struct {
	OrderID       string       `json:"order_id"`
	ProductID     string       `json:"product_id"`
	Quantity      int64        `json:"quantity"`
	TotalPrice    models.Money `json:"total_price"`
	CustomerEmail string       `json:"customer_email"`
}

// ReserveStock use case is the reservation step of the saga. A successful
// reservation stages stock-reserved; a business failure (unknown product,
// short stock) stages the compensating order-cancelled instead. Exactly
// one of the two is staged per order, never both.
type ReserveStock struct {
	inventoryRepository domain.InventoryRepository
}

// NewReserveStock creates a new ReserveStock use case
func NewReserveStock(inventoryRepository domain.InventoryRepository) *ReserveStock {
	return &ReserveStock{inventoryRepository: inventoryRepository}
}

// Execute attempts the reservation
func (uc *ReserveStock) Execute(ctx context.Context, cmd *ReserveStockCommand) error {
	start := time.Now()
	ctx, span := telemetry.StartSpan(ctx, "reserve_stock",
		trace.WithAttributes(
			attribute.String("order_id", cmd.OrderID),
			attribute.String("product_id", cmd.ProductID),
			attribute.Int64("quantity", cmd.Quantity),
		),
	)
	defer span.End()

	status := "error"
	defer func() {
		duration := time.Since(start)

		telemetry.RecordCounter(ctx, "inventory_operations_total", "Total inventory operations", 1,
			attribute.String("operation", "reserve_stock"),
			attribute.String("status", status),
		)

		telemetry.RecordHistogram(ctx, "inventory_operation_duration_seconds", "Inventory operation duration", duration.Seconds(),
			attribute.String("operation", "reserve_stock"),
			attribute.String("status", status),
		)
	}()

	if err := uc.validateCommand(cmd); err != nil {
		span.RecordError(err)
		return errors.Wrap(err, "invalid command")
	}

	orderID, err := models.NewID(cmd.OrderID)
	if err != nil {
		span.RecordError(err)
		return errors.Wrap(err, "invalid order ID")
	}

	productID, err := models.NewID(cmd.ProductID)
	if err != nil {
		span.RecordError(err)
		return errors.Wrap(err, "invalid product ID")
	}

	reserved := events.NewEvent(orderID, events.StockReservedEvent, events.StockReservedData{
		OrderID:       orderID,
		ProductID:     productID,
		Quantity:      cmd.Quantity,
		TotalPrice:    cmd.TotalPrice,
		CustomerEmail: cmd.CustomerEmail,
	})

	err = uc.inventoryRepository.ReserveStock(ctx, orderID, productID, cmd.Quantity, reserved)
	if err == nil {
		status = "reserved"
		return nil
	}

	if errors.Is(err, infrastructure.ErrDuplicateEvent) {
		log.Printf("order %s already processed, skipping reservation", cmd.OrderID)
		status = "duplicate"
		return nil
	}

	var insufficient *domain.InsufficientStockError
	switch {
	case errors.Is(err, domain.ErrInventoryNotFound):
		return uc.cancel(ctx, orderID, "inventory record not found: productId="+cmd.ProductID, &status)
	case errors.As(err, &insufficient):
		return uc.cancel(ctx, orderID, insufficient.Error(), &status)
	default:
		span.RecordError(err)
		return errors.Wrap(err, "failed to reserve stock")
	}
}

// cancel stages the compensating order-cancelled event
func (uc *ReserveStock) cancel(ctx context.Context, orderID models.ID, reason string, status *string) error {
	cancelled := events.NewEvent(orderID, events.OrderCancelledEvent, events.OrderCancelledData{
		OrderID: orderID,
		Reason:  reason,
	})

	err := uc.inventoryRepository.RecordCancellation(ctx, orderID, cancelled)
	if err == nil {
		log.Printf("order %s cancelled: %s", orderID, reason)
		*status = "cancelled"
		return nil
	}

	if errors.Is(err, infrastructure.ErrDuplicateEvent) {
		*status = "duplicate"
		return nil
	}

	return errors.Wrap(err, "failed to record cancellation")
}

// validateCommand validates the reserve stock command
func (uc *ReserveStock) validateCommand(cmd *ReserveStockCommand) error {
	if cmd.OrderID == "" {
		return errors.New("order ID is required")
	}

	if cmd.ProductID == "" {
		return errors.New("product ID is required")
	}

	if cmd.Quantity <= 0 {
		return errors.New("quantity must be positive")
	}

	return nil
}
