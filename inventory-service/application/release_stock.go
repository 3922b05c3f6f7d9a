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

// ReleaseStockCommand carries a payment-failed event's payload
type ReleaseStockCommand struct {
	OrderID   string `json:"order_id"`
	ProductID string `json:"product_id"`
	Quantity  int64  `json:"quantity"`
	Reason    string `json:"reason"`
}

// ReleaseStock use case compensates a failed payment by restoring the
// reserved quantity. A missing inventory record is logged and absorbed:
// redelivering the event cannot make the record appear.
type ReleaseStock struct {
	inventoryRepository domain.InventoryRepository
}

// NewReleaseStock creates a new ReleaseStock use case
func NewReleaseStock(inventoryRepository domain.InventoryRepository) *ReleaseStock {
	return &ReleaseStock{inventoryRepository: inventoryRepository}
}

// Execute restores the quantity to the product's stock
func (uc *ReleaseStock) Execute(ctx context.Context, cmd *ReleaseStockCommand) error {
	start := time.Now()
	ctx, span := telemetry.StartSpan(ctx, "release_stock",
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
			attribute.String("operation", "release_stock"),
			attribute.String("status", status),
		)

		telemetry.RecordHistogram(ctx, "inventory_operation_duration_seconds", "Inventory operation duration", duration.Seconds(),
			attribute.String("operation", "release_stock"),
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

	released := events.NewEvent(orderID, events.StockReleasedEvent, events.StockReleasedData{
		OrderID:   orderID,
		ProductID: productID,
		Quantity:  cmd.Quantity,
		Reason:    "payment failed: " + cmd.Reason,
	})

	err = uc.inventoryRepository.ReleaseStock(ctx, orderID, productID, cmd.Quantity, released)
	switch {
	case err == nil:
		status = "released"
		return nil
	case errors.Is(err, infrastructure.ErrDuplicateEvent):
		log.Printf("payment failure for order %s already compensated, skipping", cmd.OrderID)
		status = "duplicate"
		return nil
	case errors.Is(err, domain.ErrInventoryNotFound):
		log.Printf("cannot release stock for order %s: no inventory record for product %s", cmd.OrderID, cmd.ProductID)
		status = "dropped"
		return nil
	default:
		span.RecordError(err)
		return errors.Wrap(err, "failed to release stock")
	}
}

// validateCommand validates the release stock command
func (uc *ReleaseStock) validateCommand(cmd *ReleaseStockCommand) error {
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
