package application

import (
	"context"

	"github.com/pkg/errors"
	"github.com/sagamart/order-system/inventory-service/domain"
	"github.com/sagamart/order-system/shared/models"
)

// GetInventoryQuery represents the query to get an inventory record
type GetInventoryQuery struct {
	ProductID string `json:"product_id"`
}

// GetInventoryResponse represents an inventory record in API responses
type GetInventoryResponse struct {
	InventoryID string `json:"inventory_id"`
	ProductID   string `json:"product_id"`
	Stock       int64  `json:"stock"`
}

// GetInventory use case retrieves a product's stock record
type GetInventory struct {
	inventoryRepository domain.InventoryRepository
}

// NewGetInventory creates a new GetInventory use case
func NewGetInventory(inventoryRepository domain.InventoryRepository) *GetInventory {
	return &GetInventory{inventoryRepository: inventoryRepository}
}

// Execute retrieves an inventory record
func (uc *GetInventory) Execute(ctx context.Context, query *GetInventoryQuery) (*GetInventoryResponse, error) {
	if query.ProductID == "" {
		return nil, errors.New("product ID is required")
	}

	productID, err := models.NewID(query.ProductID)
	if err != nil {
		return nil, errors.Wrap(err, "invalid product ID")
	}

	inventory, err := uc.inventoryRepository.FindByProductID(ctx, productID)
	if err != nil {
		return nil, err
	}

	return &GetInventoryResponse{
		InventoryID: inventory.ID.String(),
		ProductID:   inventory.ProductID.String(),
		Stock:       inventory.Stock,
	}, nil
}
