package domain

import (
	"context"

	"github.com/pkg/errors"
	"github.com/sagamart/order-system/shared/events"
	"github.com/sagamart/order-system/shared/models"
)

// DefaultCurrency is used for all order totals. Multi-currency checkout
// is out of scope for now.
const DefaultCurrency = "USD"

// OrderStatus represents the lifecycle state of an order
type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "PENDING"
	OrderStatusConfirmed OrderStatus = "CONFIRMED"
	OrderStatusCancelled OrderStatus = "CANCELLED"
)

var (
	ErrOrderNotFound = errors.New("order not found")

	// ErrOrderFinalized reports an outcome that conflicts with the
	// terminal state the order already reached
	ErrOrderFinalized = errors.New("order already reached a terminal state")
)

// Order aggregate root. An order starts PENDING and reaches a terminal
// state only through saga outcome events: payment-confirmed moves it to
// CONFIRMED, order-cancelled moves it to CANCELLED.
type Order struct {
	ID            models.ID    `json:"id"`
	CustomerEmail string       `json:"customer_email"`
	ProductID     models.ID    `json:"product_id"`
	Quantity      int64        `json:"quantity"`
	TotalPrice    models.Money `json:"total_price"`
	Status        OrderStatus  `json:"status"`
	CancelReason  string       `json:"cancel_reason,omitempty"`
	Timestamps    models.Timestamps
	Version       models.Version

	events []*events.Event
}

// PlaceOrder factory method
func PlaceOrder(customerEmail string, productID models.ID, quantity int64, unitPrice models.Money) (*Order, error) {
	if customerEmail == "" {
		return nil, errors.New("customer email is required")
	}

	if quantity <= 0 {
		return nil, errors.New("quantity must be positive")
	}

	if unitPrice.IsNegative() {
		return nil, errors.New("price cannot be negative")
	}

	order := &Order{
		ID:            models.GenerateUUID(),
		CustomerEmail: customerEmail,
		ProductID:     productID,
		Quantity:      quantity,
		TotalPrice:    models.NewMoney(unitPrice.Amount*quantity, unitPrice.Currency),
		Status:        OrderStatusPending,
		Timestamps:    models.NewTimestamps(),
		Version:       models.NewVersion(),
	}

	event := events.NewEvent(order.ID, events.OrderPlacedEvent, events.OrderPlacedData{
		OrderID:       order.ID,
		ProductID:     order.ProductID,
		Quantity:      order.Quantity,
		TotalPrice:    order.TotalPrice,
		CustomerEmail: order.CustomerEmail,
	})

	order.recordEvent(event)
	return order, nil
}

// Confirm marks the order as paid. Confirming an already confirmed order
// is a no-op so redelivered outcome events stay harmless.
func (o *Order) Confirm() error {
	if o.Status == OrderStatusConfirmed {
		return nil
	}

	if o.Status == OrderStatusCancelled {
		return errors.Wrap(ErrOrderFinalized, "cannot confirm a cancelled order")
	}

	o.Status = OrderStatusConfirmed
	o.Timestamps = o.Timestamps.Update()
	o.Version = o.Version.Update()
	return nil
}

// Cancel marks the order as cancelled with the saga's reason
func (o *Order) Cancel(reason string) error {
	if o.Status == OrderStatusCancelled {
		return nil
	}

	if o.Status == OrderStatusConfirmed {
		return errors.Wrap(ErrOrderFinalized, "cannot cancel a confirmed order")
	}

	o.Status = OrderStatusCancelled
	o.CancelReason = reason
	o.Timestamps = o.Timestamps.Update()
	o.Version = o.Version.Update()
	return nil
}

// Events returns domain events
func (o *Order) Events() []*events.Event {
	return o.events
}

// ClearEvents clears domain events
func (o *Order) ClearEvents() {
	o.events = make([]*events.Event, 0)
}

// recordEvent records a domain event
func (o *Order) recordEvent(event *events.Event) {
	o.events = append(o.events, event)
}

// OrderRepository persists orders. Save writes the order together with
// its recorded events (outbox). ApplyOutcome applies a consumed saga
// outcome atomically with its processed-event marker and returns
// infrastructure.ErrDuplicateEvent when the event was already applied.
type OrderRepository interface {
	Save(ctx context.Context, order *Order) error
	ApplyOutcome(ctx context.Context, order *Order, topic string) error
	FindByID(ctx context.Context, id models.ID) (*Order, error)
	FindByCustomerEmail(ctx context.Context, email string, limit, offset int) ([]*Order, error)
	FindAll(ctx context.Context, limit, offset int) ([]*Order, error)
}
