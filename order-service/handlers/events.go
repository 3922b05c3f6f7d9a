package handlers

import (
	"context"

	"github.com/pkg/errors"
	"github.com/sagamart/order-system/order-service/application"
	"github.com/sagamart/order-system/shared/events"
)

// OrderEventHandlers contains event handlers for the order service. It
// subscribes to the saga outcome topics and keeps the order state in
// sync with what the other services decided.
type OrderEventHandlers struct {
	processOrderOutcome *application.ProcessOrderOutcome
}

// NewOrderEventHandlers creates new order event handlers
func NewOrderEventHandlers(processOrderOutcome *application.ProcessOrderOutcome) *OrderEventHandlers {
	return &OrderEventHandlers{processOrderOutcome: processOrderOutcome}
}

// HandlerID returns the unique identifier for this event handler
func (h *OrderEventHandlers) HandlerID() string {
	return "order-service-event-handler"
}

// Handle implements the events.EventHandler interface
func (h *OrderEventHandlers) Handle(ctx context.Context, event *events.Event) error {
	switch event.EventType {
	case events.OrderCancelledEvent:
		return h.handleOrderCancelled(ctx, event)
	case events.PaymentConfirmedEvent:
		return h.handlePaymentConfirmed(ctx, event)
	default:
		return nil
	}
}

func (h *OrderEventHandlers) handleOrderCancelled(ctx context.Context, event *events.Event) error {
	var data events.OrderCancelledData
	if err := event.UnmarshalPayload(&data); err != nil {
		return errors.Wrap(err, "failed to decode order cancelled event")
	}

	return h.processOrderOutcome.Execute(ctx, &application.ProcessOrderOutcomeCommand{
		OrderID: data.OrderID.String(),
		Topic:   events.OrderCancelledEvent,
		Reason:  data.Reason,
	})
}

func (h *OrderEventHandlers) handlePaymentConfirmed(ctx context.Context, event *events.Event) error {
	var data events.PaymentConfirmedData
	if err := event.UnmarshalPayload(&data); err != nil {
		return errors.Wrap(err, "failed to decode payment confirmed event")
	}

	return h.processOrderOutcome.Execute(ctx, &application.ProcessOrderOutcomeCommand{
		OrderID: data.OrderID.String(),
		Topic:   events.PaymentConfirmedEvent,
	})
}
