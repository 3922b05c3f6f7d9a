package application

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/sagamart/order-system/inventory-service/domain"
	"github.com/sagamart/order-system/shared/models"
	"github.com/sagamart/order-system/shared/telemetry"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// CreateInventoryCommand represents the command to create an inventory record
type CreateInventoryCommand struct {
	ProductID    string `json:"product_id"`
	InitialStock int64  `json:"initial_stock"`
}

// CreateInventoryResponse represents the created inventory record
type CreateInventoryResponse struct {
	InventoryID string `json:"inventory_id"`
	ProductID   string `json:"product_id"`
	Stock       int64  `json:"stock"`
}

// CreateInventory use case registers a product's stock record
type CreateInventory struct {
	inventoryRepository domain.InventoryRepository
}

// NewCreateInventory creates a new CreateInventory use case
func NewCreateInventory(inventoryRepository domain.InventoryRepository) *CreateInventory {
	return &CreateInventory{inventoryRepository: inventoryRepository}
}

// Execute creates an inventory record
func (uc *CreateInventory) Execute(ctx context.Context, cmd *CreateInventoryCommand) (*CreateInventoryResponse, error) {
	start := time.Now()
	ctx, span := telemetry.StartSpan(ctx, "create_inventory",
		trace.WithAttributes(
			attribute.String("product_id", cmd.ProductID),
			attribute.Int64("initial_stock", cmd.InitialStock),
		),
	)
	defer span.End()

	status := "error"
	defer func() {
		duration := time.Since(start)

		telemetry.RecordCounter(ctx, "inventory_operations_total", "Total inventory operations", 1,
			attribute.String("operation", "create_inventory"),
			attribute.String("status", status),
		)

		telemetry.RecordHistogram(ctx, "inventory_operation_duration_seconds", "Inventory operation duration", duration.Seconds(),
			attribute.String("operation", "create_inventory"),
			attribute.String("status", status),
		)
	}()

	if cmd.ProductID == "" {
		err := errors.New("product ID is required")
		span.RecordError(err)
		return nil, errors.Wrap(err, "invalid command")
	}

	productID, err := models.NewID(cmd.ProductID)
	if err != nil {
		span.RecordError(err)
		return nil, errors.Wrap(err, "invalid product ID")
	}

	inventory, err := domain.CreateInventory(productID, cmd.InitialStock)
	if err != nil {
		span.RecordError(err)
		return nil, errors.Wrap(err, "invalid command")
	}

	if err := uc.inventoryRepository.Save(ctx, inventory); err != nil {
		span.RecordError(err)
		return nil, err
	}

	status = "success"

	return &CreateInventoryResponse{
		InventoryID: inventory.ID.String(),
		ProductID:   inventory.ProductID.String(),
		Stock:       inventory.Stock,
	}, nil
}
