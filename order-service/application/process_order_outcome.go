package application

import (
	"context"
	"log"
	"time"

	"github.com/pkg/errors"
	"github.com/sagamart/order-system/order-service/domain"
	"github.com/sagamart/order-system/shared/events"
	"github.com/sagamart/order-system/shared/infrastructure"
	"github.com/sagamart/order-system/shared/models"
	"github.com/sagamart/order-system/shared/telemetry"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// ProcessOrderOutcomeCommand carries a saga outcome for an order. Topic
// decides the transition: payment-confirmed confirms the order,
// order-cancelled cancels it with the given reason.
type ProcessOrderOutcomeCommand struct {
	OrderID string `json:"order_id"`
	Topic   string `json:"topic"`
	Reason  string `json:"reason,omitempty"`
}

// ProcessOrderOutcome use case applies saga outcome events to the order.
// Redelivered events and events for unknown orders are absorbed without
// error, so the subscriber never retries them.
type ProcessOrderOutcome struct {
	orderRepository domain.OrderRepository
}

// NewProcessOrderOutcome creates a new ProcessOrderOutcome use case
func NewProcessOrderOutcome(orderRepository domain.OrderRepository) *ProcessOrderOutcome {
	return &ProcessOrderOutcome{orderRepository: orderRepository}
}

// Execute applies the outcome to the order
func (uc *ProcessOrderOutcome) Execute(ctx context.Context, cmd *ProcessOrderOutcomeCommand) error {
	start := time.Now()
	ctx, span := telemetry.StartSpan(ctx, "process_order_outcome",
		trace.WithAttributes(
			attribute.String("order_id", cmd.OrderID),
			attribute.String("topic", cmd.Topic),
		),
	)
	defer span.End()

	status := "error"
	defer func() {
		duration := time.Since(start)

		telemetry.RecordCounter(ctx, "order_operations_total", "Total order operations", 1,
			attribute.String("operation", "process_order_outcome"),
			attribute.String("status", status),
		)

		telemetry.RecordHistogram(ctx, "order_operation_duration_seconds", "Order operation duration", duration.Seconds(),
			attribute.String("operation", "process_order_outcome"),
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

	order, err := uc.orderRepository.FindByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, domain.ErrOrderNotFound) {
			log.Printf("order outcome for unknown order %s on %s, dropping", cmd.OrderID, cmd.Topic)
			status = "dropped"
			return nil
		}
		span.RecordError(err)
		return errors.Wrap(err, "failed to find order")
	}

	switch cmd.Topic {
	case events.PaymentConfirmedEvent:
		err = order.Confirm()
	case events.OrderCancelledEvent:
		err = order.Cancel(cmd.Reason)
	default:
		err = errors.Errorf("unsupported outcome topic %s", cmd.Topic)
	}
	if err != nil {
		// A conflicting outcome for an already finalized order is a
		// poison message: erroring would only make the broker redeliver
		// it forever.
		if errors.Is(err, domain.ErrOrderFinalized) {
			log.Printf("outcome %s conflicts with %s order %s, dropping: %v", cmd.Topic, order.Status, cmd.OrderID, err)
			status = "dropped"
			return nil
		}
		span.RecordError(err)
		return errors.Wrap(err, "failed to apply outcome")
	}

	if err := uc.orderRepository.ApplyOutcome(ctx, order, cmd.Topic); err != nil {
		if errors.Is(err, infrastructure.ErrDuplicateEvent) {
			log.Printf("duplicate outcome %s for order %s, skipping", cmd.Topic, cmd.OrderID)
			status = "duplicate"
			return nil
		}
		span.RecordError(err)
		return errors.Wrap(err, "failed to save order outcome")
	}

	status = "success"
	return nil
}

// validateCommand validates the process order outcome command
func (uc *ProcessOrderOutcome) validateCommand(cmd *ProcessOrderOutcomeCommand) error {
	if cmd.OrderID == "" {
		return errors.New("order ID is required")
	}

	if cmd.Topic == "" {
		return errors.New("topic is required")
	}

	return nil
}
