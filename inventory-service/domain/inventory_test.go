package domain

import (
	"testing"

	"github.com/sagamart/order-system/shared/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateInventory(t *testing.T) {
	productID := models.GenerateUUID()

	inventory, err := CreateInventory(productID, 25)
	require.NoError(t, err)

	assert.Equal(t, productID, inventory.ProductID)
	assert.Equal(t, int64(25), inventory.Stock)
	assert.Equal(t, 1, inventory.Version.Value)
}

func TestCreateInventoryZeroStock(t *testing.T) {
	inventory, err := CreateInventory(models.GenerateUUID(), 0)
	require.NoError(t, err)
	assert.Equal(t, int64(0), inventory.Stock)
}

func TestCreateInventoryNegativeStock(t *testing.T) {
	_, err := CreateInventory(models.GenerateUUID(), -1)
	assert.Error(t, err)
}

func TestInsufficientStockErrorMessage(t *testing.T) {
	err := &InsufficientStockError{Available: 2, Requested: 10}
	assert.Equal(t, "insufficient stock: available=2, requested=10", err.Error())
}
