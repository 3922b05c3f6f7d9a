package application

import (
	"context"
	"log"
	"time"

	"github.com/pkg/errors"
	"github.com/sagamart/order-system/payment-service/domain"
	"github.com/sagamart/order-system/shared/models"
	"github.com/sagamart/order-system/shared/telemetry"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Settlement actions
const (
	SettleActionApprove = "approve"
	SettleActionReject  = "reject"
)

// SettlePaymentCommand represents the command to settle a payment
type SettlePaymentCommand struct {
	PaymentID string `json:"payment_id"`
	Action    string `json:"action"`
	Reason    string `json:"reason,omitempty"`
}

// SettlePaymentResponse represents the settled payment
type SettlePaymentResponse struct {
	PaymentID     string       `json:"payment_id"`
	OrderID       string       `json:"order_id"`
	Status        string       `json:"status"`
	Amount        models.Money `json:"amount"`
	FailureReason string       `json:"failure_reason,omitempty"`
}

// SettlePayment use case settles a pending payment exactly once. Approve
// stages payment-confirmed; Reject stages payment-failed when the
// payment carries the product and quantity to compensate.
type SettlePayment struct {
	paymentRepository domain.PaymentRepository
}

// NewSettlePayment creates a new SettlePayment use case
func NewSettlePayment(paymentRepository domain.PaymentRepository) *SettlePayment {
	return &SettlePayment{paymentRepository: paymentRepository}
}

// Execute settles the payment
func (uc *SettlePayment) Execute(ctx context.Context, cmd *SettlePaymentCommand) (*SettlePaymentResponse, error) {
	start := time.Now()
	ctx, span := telemetry.StartSpan(ctx, "settle_payment",
		trace.WithAttributes(
			attribute.String("payment_id", cmd.PaymentID),
			attribute.String("action", cmd.Action),
		),
	)
	defer span.End()

	status := "error"
	defer func() {
		duration := time.Since(start)

		telemetry.RecordCounter(ctx, "payment_operations_total", "Total payment operations", 1,
			attribute.String("operation", "settle_payment"),
			attribute.String("status", status),
		)

		telemetry.RecordHistogram(ctx, "payment_operation_duration_seconds", "Payment operation duration", duration.Seconds(),
			attribute.String("operation", "settle_payment"),
			attribute.String("status", status),
		)
	}()

	if err := uc.validateCommand(cmd); err != nil {
		span.RecordError(err)
		return nil, errors.Wrap(err, "invalid command")
	}

	paymentID, err := models.NewID(cmd.PaymentID)
	if err != nil {
		span.RecordError(err)
		return nil, errors.Wrap(err, "invalid payment ID")
	}

	payment, err := uc.paymentRepository.FindByID(ctx, paymentID)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	switch cmd.Action {
	case SettleActionApprove:
		err = payment.Approve()
	case SettleActionReject:
		err = payment.Reject(cmd.Reason)
	}
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	if cmd.Action == SettleActionReject && !payment.CanCompensate() {
		log.Printf("payment %s rejected without product/quantity, no compensation event staged", payment.ID)
	}

	if err := uc.paymentRepository.Settle(ctx, payment); err != nil {
		span.RecordError(err)
		return nil, errors.Wrap(err, "failed to settle payment")
	}

	status = string(payment.Status)

	return &SettlePaymentResponse{
		PaymentID:     payment.ID.String(),
		OrderID:       payment.OrderID.String(),
		Status:        string(payment.Status),
		Amount:        payment.Amount,
		FailureReason: payment.FailureReason,
	}, nil
}

// validateCommand validates the settle payment command
func (uc *SettlePayment) validateCommand(cmd *SettlePaymentCommand) error {
	if cmd.PaymentID == "" {
		return errors.New("payment ID is required")
	}

	if cmd.Action != SettleActionApprove && cmd.Action != SettleActionReject {
		return errors.New("action must be 'approve' or 'reject'")
	}

	return nil
}
