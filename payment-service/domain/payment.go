package domain

import (
	"context"

	"github.com/pkg/errors"
	"github.com/sagamart/order-system/shared/events"
	"github.com/sagamart/order-system/shared/models"
)

// PaymentStatus represents the settlement state of a payment
type PaymentStatus string

const (
	PaymentStatusPending PaymentStatus = "PENDING"
	PaymentStatusSuccess PaymentStatus = "SUCCESS"
	PaymentStatusFailed  PaymentStatus = "FAILED"
)

// PaymentMethod identifies the instrument a payment is charged against
type PaymentMethod string

// PaymentMethodCreditCard is the only supported method for now
const PaymentMethodCreditCard PaymentMethod = "CREDIT_CARD"

// MaxRetryCount caps how often a FAILED payment is eligible for another
// settlement attempt. Retrying itself is a policy outside this service;
// only the eligibility query lives here.
const MaxRetryCount = 3

const defaultFailureReason = "payment rejected"

var (
	ErrPaymentNotFound = errors.New("payment not found")
	ErrAlreadySettled  = errors.New("payment already settled")
)

// Payment aggregate root. A payment opens PENDING when stock was reserved
// for an order and settles exactly once, to SUCCESS or FAILED.
type Payment struct {
	ID            models.ID     `json:"id"`
	OrderID       models.ID     `json:"order_id"`
	ProductID     models.ID     `json:"product_id,omitempty"`
	Quantity      int64         `json:"quantity,omitempty"`
	Amount        models.Money  `json:"amount"`
	Status        PaymentStatus `json:"status"`
	Method        PaymentMethod `json:"payment_method"`
	TransactionID string        `json:"transaction_id"`
	CustomerEmail string        `json:"customer_email"`
	FailureReason string        `json:"failure_reason,omitempty"`
	RetryCount    int           `json:"retry_count"`

	// Card details stay empty until a charge attempt records them
	MaskedCardNumber string `json:"masked_card_number,omitempty"`
	CardHolderName   string `json:"card_holder_name,omitempty"`
	Timestamps    models.Timestamps
	Version       models.Version

	events []*events.Event
}

// OpenPendingPayment factory method
func OpenPendingPayment(orderID, productID models.ID, quantity int64, amount models.Money, customerEmail string) (*Payment, error) {
	if orderID == "" {
		return nil, errors.New("order ID is required")
	}

	if amount.IsNegative() {
		return nil, errors.New("amount cannot be negative")
	}

	return &Payment{
		ID:            models.GenerateUUID(),
		OrderID:       orderID,
		ProductID:     productID,
		Quantity:      quantity,
		Amount:        amount,
		Status:        PaymentStatusPending,
		Method:        PaymentMethodCreditCard,
		TransactionID: models.GenerateUUID().String(),
		CustomerEmail: customerEmail,
		RetryCount:    0,
		Timestamps:    models.NewTimestamps(),
		Version:       models.NewVersion(),
	}, nil
}

// Approve settles the payment as successful and records the
// payment-confirmed event
func (p *Payment) Approve() error {
	if p.Status != PaymentStatusPending {
		return ErrAlreadySettled
	}

	p.Status = PaymentStatusSuccess
	p.RetryCount = 0
	p.Timestamps = p.Timestamps.Update()
	p.Version = p.Version.Update()

	event := events.NewEvent(p.OrderID, events.PaymentConfirmedEvent, events.PaymentConfirmedData{
		OrderID:       p.OrderID,
		PaymentID:     p.ID,
		Amount:        p.Amount,
		Status:        string(p.Status),
		CustomerEmail: p.CustomerEmail,
	})

	p.recordEvent(event)
	return nil
}

// Reject settles the payment as failed. The payment-failed event is
// recorded only when the payment knows which stock to give back; without
// productID and quantity there is nothing to compensate.
func (p *Payment) Reject(reason string) error {
	if p.Status != PaymentStatusPending {
		return ErrAlreadySettled
	}

	if reason == "" {
		reason = defaultFailureReason
	}

	p.Status = PaymentStatusFailed
	p.FailureReason = reason
	p.RetryCount = 0
	p.Timestamps = p.Timestamps.Update()
	p.Version = p.Version.Update()

	if p.CanCompensate() {
		event := events.NewEvent(p.OrderID, events.PaymentFailedEvent, events.PaymentFailedData{
			OrderID:   p.OrderID,
			ProductID: p.ProductID,
			Quantity:  p.Quantity,
			PaymentID: p.ID,
			Reason:    reason,
		})

		p.recordEvent(event)
	}

	return nil
}

// CanCompensate reports whether a rejection can trigger a stock release
func (p *Payment) CanCompensate() bool {
	return p.ProductID != "" && p.Quantity > 0
}

// IsRetryable reports whether the payment is eligible for another
// settlement attempt
func (p *Payment) IsRetryable() bool {
	return p.Status == PaymentStatusFailed && p.RetryCount < MaxRetryCount
}

// Events returns domain events
func (p *Payment) Events() []*events.Event {
	return p.events
}

// ClearEvents clears domain events
func (p *Payment) ClearEvents() {
	p.events = make([]*events.Event, 0)
}

// recordEvent records a domain event
func (p *Payment) recordEvent(event *events.Event) {
	p.events = append(p.events, event)
}

// PaymentRepository persists payments. Open inserts the payment together
// with the processed-event marker for the consumed stock-reserved event
// and returns infrastructure.ErrDuplicateEvent on redelivery. Settle
// updates the settled payment and stages its recorded events in the
// outbox, all in one transaction.
type PaymentRepository interface {
	Open(ctx context.Context, payment *Payment) error
	Settle(ctx context.Context, payment *Payment) error
	FindByID(ctx context.Context, id models.ID) (*Payment, error)
	FindByOrderID(ctx context.Context, orderID models.ID) (*Payment, error)
	FindAll(ctx context.Context, limit, offset int) ([]*Payment, error)
	FindPending(ctx context.Context) ([]*Payment, error)
	FindFailedForRetry(ctx context.Context) ([]*Payment, error)
}
