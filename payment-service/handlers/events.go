package handlers

import (
	"context"

	"github.com/pkg/errors"
	"github.com/sagamart/order-system/payment-service/application"
	"github.com/sagamart/order-system/shared/events"
)

// PaymentEventHandlers contains event handlers for the payment service.
// It listens for stock reservations and opens a pending payment for each
// reserved order.
type PaymentEventHandlers struct {
	openPendingPayment *application.OpenPendingPayment
}

// NewPaymentEventHandlers creates new payment event handlers
func NewPaymentEventHandlers(openPendingPayment *application.OpenPendingPayment) *PaymentEventHandlers {
	return &PaymentEventHandlers{openPendingPayment: openPendingPayment}
}

// HandlerID returns the unique identifier for this event handler
func (h *PaymentEventHandlers) HandlerID() string {
	return "payment-service-event-handler"
}

// Handle implements the events.EventHandler interface
func (h *PaymentEventHandlers) Handle(ctx context.Context, event *events.Event) error {
	switch event.EventType {
	case events.StockReservedEvent:
		return h.handleStockReserved(ctx, event)
	default:
		return nil
	}
}

func (h *PaymentEventHandlers) handleStockReserved(ctx context.Context, event *events.Event) error {
	var data events.StockReservedData
	if err := event.UnmarshalPayload(&data); err != nil {
		return errors.Wrap(err, "failed to decode stock reserved event")
	}

	return h.openPendingPayment.Execute(ctx, &application.OpenPendingPaymentCommand{
		OrderID:       data.OrderID.String(),
		ProductID:     data.ProductID.String(),
		Quantity:      data.Quantity,
		Amount:        data.TotalPrice,
		CustomerEmail: data.CustomerEmail,
	})
}
