package handlers

import (
	"context"

	"github.com/pkg/errors"
	"github.com/sagamart/order-system/inventory-service/application"
	"github.com/sagamart/order-system/shared/events"
)

// InventoryEventHandlers contains event handlers for the inventory
// service: reservation on order-placed, compensation on payment-failed.
type InventoryEventHandlers struct {
	reserveStock *application.ReserveStock
	releaseStock *application.ReleaseStock
}

// NewInventoryEventHandlers creates new inventory event handlers
func NewInventoryEventHandlers(
	reserveStock *application.ReserveStock,
	releaseStock *application.ReleaseStock,
) *InventoryEventHandlers {
	return &InventoryEventHandlers{
		reserveStock: reserveStock,
		releaseStock: releaseStock,
	}
}

// HandlerID returns the unique identifier for this event handler
func (h *InventoryEventHandlers) HandlerID() string {
	return "inventory-service-event-handler"
}

// Handle implements the events.EventHandler interface
func (h *InventoryEventHandlers) Handle(ctx context.Context, event *events.Event) error {
	switch event.EventType {
	case events.OrderPlacedEvent:
		return h.handleOrderPlaced(ctx, event)
	case events.PaymentFailedEvent:
		return h.handlePaymentFailed(ctx, event)
	default:
		return nil
	}
}

func (h *InventoryEventHandlers) handleOrderPlaced(ctx context.Context, event *events.Event) error {
	var data events.OrderPlacedData
	if err := event.UnmarshalPayload(&data); err != nil {
		return errors.Wrap(err, "failed to decode order placed event")
	}

	return h.reserveStock.Execute(ctx, &application.ReserveStockCommand{
		OrderID:       data.OrderID.String(),
		ProductID:     data.ProductID.String(),
		Quantity:      data.Quantity,
		TotalPrice:    data.TotalPrice,
		CustomerEmail: data.CustomerEmail,
	})
}

func (h *InventoryEventHandlers) handlePaymentFailed(ctx context.Context, event *events.Event) error {
	var data events.PaymentFailedData
	if err := event.UnmarshalPayload(&data); err != nil {
		return errors.Wrap(err, "failed to decode payment failed event")
	}

	return h.releaseStock.Execute(ctx, &application.ReleaseStockCommand{
		OrderID:   data.OrderID.String(),
		ProductID: data.ProductID.String(),
		Quantity:  data.Quantity,
		Reason:    data.Reason,
	})
}
