package application

import (
	"context"
	"log"
	"time"

	"github.com/pkg/errors"
	"github.com/sagamart/order-system/payment-service/domain"
	"github.com/sagamart/order-system/shared/infrastructure"
	"github.com/sagamart/order-system/shared/models"
	"github.com/sagamart/order-system/shared/telemetry"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// OpenPendingPaymentCommand carries a stock-reserved event's payload
type OpenPendingPaymentCommand struct {
	OrderID       string       `json:"order_id"`
	ProductID     string       `json:"product_id"`
	Quantity      int64        `json:"quantity"`
	Amount        models.Money `json:"amount"`
	CustomerEmail string       `json:"customer_email"`
}

// OpenPendingPayment use case opens a PENDING payment for a reserved
// order. Redelivered stock-reserved events are absorbed via the
// processed-event marker, so each order gets exactly one payment.
type OpenPendingPayment struct {
	paymentRepository domain.PaymentRepository
}

// NewOpenPendingPayment creates a new OpenPendingPayment use case
func NewOpenPendingPayment(paymentRepository domain.PaymentRepository) *OpenPendingPayment {
	return &OpenPendingPayment{paymentRepository: paymentRepository}
}

// Execute opens the pending payment
func (uc *OpenPendingPayment) Execute(ctx context.Context, cmd *OpenPendingPaymentCommand) error {
	start := time.Now()
	ctx, span := telemetry.StartSpan(ctx, "open_pending_payment",
		trace.WithAttributes(
			attribute.String("order_id", cmd.OrderID),
			attribute.Int64("amount", cmd.Amount.Amount),
		),
	)
	defer span.End()

	status := "error"
	defer func() {
		duration := time.Since(start)

		telemetry.RecordCounter(ctx, "payment_operations_total", "Total payment operations", 1,
			attribute.String("operation", "open_pending_payment"),
			attribute.String("status", status),
		)

		telemetry.RecordHistogram(ctx, "payment_operation_duration_seconds", "Payment operation duration", duration.Seconds(),
			attribute.String("operation", "open_pending_payment"),
			attribute.String("status", status),
		)
	}()

	if cmd.OrderID == "" {
		err := errors.New("order ID is required")
		span.RecordError(err)
		return errors.Wrap(err, "invalid command")
	}

	orderID, err := models.NewID(cmd.OrderID)
	if err != nil {
		span.RecordError(err)
		return errors.Wrap(err, "invalid order ID")
	}

	var productID models.ID
	if cmd.ProductID != "" {
		productID, err = models.NewID(cmd.ProductID)
		if err != nil {
			span.RecordError(err)
			return errors.Wrap(err, "invalid product ID")
		}
	}

	payment, err := domain.OpenPendingPayment(orderID, productID, cmd.Quantity, cmd.Amount, cmd.CustomerEmail)
	if err != nil {
		span.RecordError(err)
		return errors.Wrap(err, "invalid command")
	}

	if err := uc.paymentRepository.Open(ctx, payment); err != nil {
		if errors.Is(err, infrastructure.ErrDuplicateEvent) {
			log.Printf("payment for order %s already opened, skipping", cmd.OrderID)
			status = "duplicate"
			return nil
		}
		span.RecordError(err)
		return errors.Wrap(err, "failed to open payment")
	}

	status = "success"
	span.SetAttributes(attribute.String("payment_id", payment.ID.String()))
	return nil
}
