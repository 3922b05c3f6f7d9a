package domain

import (
	"context"
	"fmt"

	"github.com/pkg/errors"
	"github.com/sagamart/order-system/shared/events"
	"github.com/sagamart/order-system/shared/models"
)

var (
	ErrInventoryNotFound = errors.New("inventory not found")
	ErrInventoryExists   = errors.New("inventory already exists")
)

// InsufficientStockError reports a reservation that exceeds the available
// stock. Its message is contractual: it becomes the cancellation reason
// on the order-cancelled event.
type InsufficientStockError struct {
	Available int64
	Requested int64
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock: available=%d, requested=%d", e.Available, e.Requested)
}

// Inventory tracks the on-hand stock for one product
type Inventory struct {
	ID        models.ID `json:"id"`
	ProductID models.ID `json:"product_id"`
	Stock     int64     `json:"stock"`
	Timestamps models.Timestamps
	Version    models.Version
}

// CreateInventory factory method
func CreateInventory(productID models.ID, initialStock int64) (*Inventory, error) {
	if initialStock < 0 {
		return nil, errors.New("initial stock cannot be negative")
	}

	return &Inventory{
		ID:         models.GenerateUUID(),
		ProductID:  productID,
		Stock:      initialStock,
		Timestamps: models.NewTimestamps(),
		Version:    models.NewVersion(),
	}, nil
}

// InventoryRepository persists inventories. The saga mutations carry
// their processed-event marker and outbox row in one transaction:
//
// ReserveStock decrements stock only when enough is available, marks the
// order-placed event processed and stages the given stock-reserved event.
// It returns infrastructure.ErrDuplicateEvent on redelivery,
// ErrInventoryNotFound when the product has no record, and
// *InsufficientStockError when stock is short; stock is untouched in all
// three cases.
//
// RecordCancellation marks the order-placed event processed and stages
// the order-cancelled event without touching stock.
//
// ReleaseStock increments stock, marks the payment-failed event processed
// and stages the stock-released event.
type InventoryRepository interface {
	Save(ctx context.Context, inventory *Inventory) error
	FindByProductID(ctx context.Context, productID models.ID) (*Inventory, error)
	ReserveStock(ctx context.Context, orderID, productID models.ID, quantity int64, reserved *events.Event) error
	RecordCancellation(ctx context.Context, orderID models.ID, cancelled *events.Event) error
	ReleaseStock(ctx context.Context, orderID, productID models.ID, quantity int64, released *events.Event) error
}
