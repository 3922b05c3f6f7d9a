package tests

import (
	"context"
	"testing"

	invapp "github.com/sagamart/order-system/inventory-service/application"
	invdomain "github.com/sagamart/order-system/inventory-service/domain"
	invhandlers "github.com/sagamart/order-system/inventory-service/handlers"
	orderapp "github.com/sagamart/order-system/order-service/application"
	orderdomain "github.com/sagamart/order-system/order-service/domain"
	orderhandlers "github.com/sagamart/order-system/order-service/handlers"
	payapp "github.com/sagamart/order-system/payment-service/application"
	paydomain "github.com/sagamart/order-system/payment-service/domain"
	payhandlers "github.com/sagamart/order-system/payment-service/handlers"
	"github.com/sagamart/order-system/shared/events"
	"github.com/sagamart/order-system/shared/infrastructure"
	"github.com/sagamart/order-system/shared/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memBus replaces the broker plus the per-service outbox dispatchers:
// staged events are delivered synchronously to every service's handler,
// which ignores topics it does not subscribe to.
type memBus struct {
	t        *testing.T
	queue    []*events.Event
	log      []*events.Event
	handlers []events.EventHandler
}

func (b *memBus) stage(evts ...*events.Event) {
	b.queue = append(b.queue, evts...)
}

func (b *memBus) drain(ctx context.Context) {
	for len(b.queue) > 0 {
		event := b.queue[0]
		b.queue = b.queue[1:]
		b.log = append(b.log, event)
		b.deliver(ctx, event)
	}
}

func (b *memBus) deliver(ctx context.Context, event *events.Event) {
	for _, handler := range b.handlers {
		require.NoError(b.t, handler.Handle(ctx, event))
	}
}

// redeliver simulates at-least-once delivery by handing an already
// delivered event to the handlers a second time, then draining whatever
// that produced.
func (b *memBus) redeliver(ctx context.Context, eventType string) {
	for _, event := range b.log {
		if event.EventType == eventType {
			b.deliver(ctx, event)
			b.drain(ctx)
			return
		}
	}
	b.t.Fatalf("no %s event was delivered", eventType)
}

func (b *memBus) topics() []string {
	topics := make([]string, len(b.log))
	for i, event := range b.log {
		topics[i] = event.EventType
	}
	return topics
}

type memOrderRepo struct {
	bus       *memBus
	orders    map[models.ID]*orderdomain.Order
	processed map[string]bool
}

func (r *memOrderRepo) Save(ctx context.Context, order *orderdomain.Order) error {
	r.orders[order.ID] = order
	r.bus.stage(order.Events()...)
	order.ClearEvents()
	return nil
}

func (r *memOrderRepo) ApplyOutcome(ctx context.Context, order *orderdomain.Order, topic string) error {
	key := order.ID.String() + "/" + topic
	if r.processed[key] {
		return infrastructure.ErrDuplicateEvent
	}
	r.processed[key] = true
	r.orders[order.ID] = order
	r.bus.stage(order.Events()...)
	order.ClearEvents()
	return nil
}

func (r *memOrderRepo) FindByID(ctx context.Context, id models.ID) (*orderdomain.Order, error) {
	order, ok := r.orders[id]
	if !ok {
		return nil, orderdomain.ErrOrderNotFound
	}
	return order, nil
}

func (r *memOrderRepo) FindByCustomerEmail(ctx context.Context, email string, limit, offset int) ([]*orderdomain.Order, error) {
	var orders []*orderdomain.Order
	for _, order := range r.orders {
		if order.CustomerEmail == email {
			orders = append(orders, order)
		}
	}
	return orders, nil
}

func (r *memOrderRepo) FindAll(ctx context.Context, limit, offset int) ([]*orderdomain.Order, error) {
	var orders []*orderdomain.Order
	for _, order := range r.orders {
		orders = append(orders, order)
	}
	return orders, nil
}

type memInventoryRepo struct {
	bus       *memBus
	byProduct map[models.ID]*invdomain.Inventory
	processed map[string]bool
}

func (r *memInventoryRepo) Save(ctx context.Context, inventory *invdomain.Inventory) error {
	if _, ok := r.byProduct[inventory.ProductID]; ok {
		return invdomain.ErrInventoryExists
	}
	r.byProduct[inventory.ProductID] = inventory
	return nil
}

func (r *memInventoryRepo) FindByProductID(ctx context.Context, productID models.ID) (*invdomain.Inventory, error) {
	inventory, ok := r.byProduct[productID]
	if !ok {
		return nil, invdomain.ErrInventoryNotFound
	}
	return inventory, nil
}

func (r *memInventoryRepo) ReserveStock(ctx context.Context, orderID, productID models.ID, quantity int64, reserved *events.Event) error {
	key := orderID.String() + "/" + events.OrderPlacedEvent
	if r.processed[key] {
		return infrastructure.ErrDuplicateEvent
	}

	inventory, ok := r.byProduct[productID]
	if !ok {
		return invdomain.ErrInventoryNotFound
	}
	if inventory.Stock < quantity {
		return &invdomain.InsufficientStockError{Available: inventory.Stock, Requested: quantity}
	}

	r.processed[key] = true
	inventory.Stock -= quantity
	r.bus.stage(reserved)
	return nil
}

func (r *memInventoryRepo) RecordCancellation(ctx context.Context, orderID models.ID, cancelled *events.Event) error {
	key := orderID.String() + "/" + events.OrderPlacedEvent
	if r.processed[key] {
		return infrastructure.ErrDuplicateEvent
	}
	r.processed[key] = true
	r.bus.stage(cancelled)
	return nil
}

func (r *memInventoryRepo) ReleaseStock(ctx context.Context, orderID, productID models.ID, quantity int64, released *events.Event) error {
	key := orderID.String() + "/" + events.PaymentFailedEvent
	if r.processed[key] {
		return infrastructure.ErrDuplicateEvent
	}

	inventory, ok := r.byProduct[productID]
	if !ok {
		return invdomain.ErrInventoryNotFound
	}

	r.processed[key] = true
	inventory.Stock += quantity
	r.bus.stage(released)
	return nil
}

type memPaymentRepo struct {
	bus       *memBus
	payments  map[models.ID]*paydomain.Payment
	processed map[string]bool
}

func (r *memPaymentRepo) Open(ctx context.Context, payment *paydomain.Payment) error {
	key := payment.OrderID.String() + "/" + events.StockReservedEvent
	if r.processed[key] {
		return infrastructure.ErrDuplicateEvent
	}
	r.processed[key] = true
	r.payments[payment.ID] = payment
	return nil
}

func (r *memPaymentRepo) Settle(ctx context.Context, payment *paydomain.Payment) error {
	r.payments[payment.ID] = payment
	r.bus.stage(payment.Events()...)
	payment.ClearEvents()
	return nil
}

func (r *memPaymentRepo) FindByID(ctx context.Context, id models.ID) (*paydomain.Payment, error) {
	payment, ok := r.payments[id]
	if !ok {
		return nil, paydomain.ErrPaymentNotFound
	}
	return payment, nil
}

func (r *memPaymentRepo) FindByOrderID(ctx context.Context, orderID models.ID) (*paydomain.Payment, error) {
	for _, payment := range r.payments {
		if payment.OrderID == orderID {
			return payment, nil
		}
	}
	return nil, paydomain.ErrPaymentNotFound
}

func (r *memPaymentRepo) FindAll(ctx context.Context, limit, offset int) ([]*paydomain.Payment, error) {
	var payments []*paydomain.Payment
	for _, payment := range r.payments {
		payments = append(payments, payment)
	}
	return payments, nil
}

func (r *memPaymentRepo) FindPending(ctx context.Context) ([]*paydomain.Payment, error) {
	var payments []*paydomain.Payment
	for _, payment := range r.payments {
		if payment.Status == paydomain.PaymentStatusPending {
			payments = append(payments, payment)
		}
	}
	return payments, nil
}

func (r *memPaymentRepo) FindFailedForRetry(ctx context.Context) ([]*paydomain.Payment, error) {
	var payments []*paydomain.Payment
	for _, payment := range r.payments {
		if payment.IsRetryable() {
			payments = append(payments, payment)
		}
	}
	return payments, nil
}

// sagaWorld wires all three services over the in-memory bus and stores
type sagaWorld struct {
	bus         *memBus
	orders      *memOrderRepo
	inventories *memInventoryRepo
	payments    *memPaymentRepo

	placeOrder      *orderapp.PlaceOrder
	createInventory *invapp.CreateInventory
	settlePayment   *payapp.SettlePayment
}

func newSagaWorld(t *testing.T) *sagaWorld {
	bus := &memBus{t: t}

	orders := &memOrderRepo{
		bus:       bus,
		orders:    make(map[models.ID]*orderdomain.Order),
		processed: make(map[string]bool),
	}
	inventories := &memInventoryRepo{
		bus:       bus,
		byProduct: make(map[models.ID]*invdomain.Inventory),
		processed: make(map[string]bool),
	}
	payments := &memPaymentRepo{
		bus:       bus,
		payments:  make(map[models.ID]*paydomain.Payment),
		processed: make(map[string]bool),
	}

	bus.handlers = []events.EventHandler{
		orderhandlers.NewOrderEventHandlers(orderapp.NewProcessOrderOutcome(orders)),
		invhandlers.NewInventoryEventHandlers(invapp.NewReserveStock(inventories), invapp.NewReleaseStock(inventories)),
		payhandlers.NewPaymentEventHandlers(payapp.NewOpenPendingPayment(payments)),
	}

	return &sagaWorld{
		bus:             bus,
		orders:          orders,
		inventories:     inventories,
		payments:        payments,
		placeOrder:      orderapp.NewPlaceOrder(orders),
		createInventory: invapp.NewCreateInventory(inventories),
		settlePayment:   payapp.NewSettlePayment(payments),
	}
}

func (w *sagaWorld) seedInventory(t *testing.T, productID models.ID, stock int64) {
	t.Helper()
	_, err := w.createInventory.Execute(context.Background(), &invapp.CreateInventoryCommand{
		ProductID:    productID.String(),
		InitialStock: stock,
	})
	require.NoError(t, err)
}

func (w *sagaWorld) placeAndDrain(t *testing.T, productID models.ID, quantity int64) models.ID {
	t.Helper()
	ctx := context.Background()

	response, err := w.placeOrder.Execute(ctx, &orderapp.PlaceOrderCommand{
		CustomerEmail: "buyer@example.com",
		ProductID:     productID.String(),
		Quantity:      quantity,
		Price:         1500,
	})
	require.NoError(t, err)

	w.bus.drain(ctx)
	return models.ID(response.OrderID)
}

func (w *sagaWorld) stockOf(t *testing.T, productID models.ID) int64 {
	t.Helper()
	inventory, err := w.inventories.FindByProductID(context.Background(), productID)
	require.NoError(t, err)
	return inventory.Stock
}

func (w *sagaWorld) paymentFor(t *testing.T, orderID models.ID) *paydomain.Payment {
	t.Helper()
	payment, err := w.payments.FindByOrderID(context.Background(), orderID)
	require.NoError(t, err)
	return payment
}

func (w *sagaWorld) settleAndDrain(t *testing.T, paymentID models.ID, action, reason string) {
	t.Helper()
	ctx := context.Background()
	_, err := w.settlePayment.Execute(ctx, &payapp.SettlePaymentCommand{
		PaymentID: paymentID.String(),
		Action:    action,
		Reason:    reason,
	})
	require.NoError(t, err)
	w.bus.drain(ctx)
}

func TestSagaHappyPath(t *testing.T) {
	world := newSagaWorld(t)
	productID := models.GenerateUUID()
	world.seedInventory(t, productID, 5)

	orderID := world.placeAndDrain(t, productID, 3)

	assert.Equal(t, int64(2), world.stockOf(t, productID))

	payment := world.paymentFor(t, orderID)
	assert.Equal(t, paydomain.PaymentStatusPending, payment.Status)
	assert.Equal(t, models.NewMoney(4500, "USD"), payment.Amount)
	assert.Equal(t, productID, payment.ProductID)

	world.settleAndDrain(t, payment.ID, payapp.SettleActionApprove, "")

	order := world.orders.orders[orderID]
	assert.Equal(t, orderdomain.OrderStatusConfirmed, order.Status)
	assert.Equal(t, paydomain.PaymentStatusSuccess, payment.Status)

	assert.Equal(t, []string{
		events.OrderPlacedEvent,
		events.StockReservedEvent,
		events.PaymentConfirmedEvent,
	}, world.bus.topics())
}

func TestSagaInsufficientStockCancelsOrder(t *testing.T) {
	world := newSagaWorld(t)
	productID := models.GenerateUUID()
	world.seedInventory(t, productID, 5)

	orderID := world.placeAndDrain(t, productID, 10)

	assert.Equal(t, int64(5), world.stockOf(t, productID))

	order := world.orders.orders[orderID]
	assert.Equal(t, orderdomain.OrderStatusCancelled, order.Status)
	assert.Equal(t, "insufficient stock: available=5, requested=10", order.CancelReason)

	_, err := world.payments.FindByOrderID(context.Background(), orderID)
	assert.ErrorIs(t, err, paydomain.ErrPaymentNotFound)

	assert.Equal(t, []string{
		events.OrderPlacedEvent,
		events.OrderCancelledEvent,
	}, world.bus.topics())
}

func TestSagaUnknownProductCancelsOrder(t *testing.T) {
	world := newSagaWorld(t)
	productID := models.GenerateUUID()

	orderID := world.placeAndDrain(t, productID, 1)

	order := world.orders.orders[orderID]
	assert.Equal(t, orderdomain.OrderStatusCancelled, order.Status)
	assert.Equal(t, "inventory record not found: productId="+productID.String(), order.CancelReason)
}

func TestSagaPaymentRejectionReleasesStock(t *testing.T) {
	world := newSagaWorld(t)
	productID := models.GenerateUUID()
	world.seedInventory(t, productID, 5)

	orderID := world.placeAndDrain(t, productID, 3)
	require.Equal(t, int64(2), world.stockOf(t, productID))

	payment := world.paymentFor(t, orderID)
	world.settleAndDrain(t, payment.ID, payapp.SettleActionReject, "card declined")

	assert.Equal(t, int64(5), world.stockOf(t, productID))
	assert.Equal(t, paydomain.PaymentStatusFailed, payment.Status)
	assert.Equal(t, "card declined", payment.FailureReason)

	// The order is not cancelled: a failed payment stays retryable
	order := world.orders.orders[orderID]
	assert.Equal(t, orderdomain.OrderStatusPending, order.Status)

	retryable, err := world.payments.FindFailedForRetry(context.Background())
	require.NoError(t, err)
	require.Len(t, retryable, 1)
	assert.Equal(t, payment.ID, retryable[0].ID)

	assert.Equal(t, []string{
		events.OrderPlacedEvent,
		events.StockReservedEvent,
		events.PaymentFailedEvent,
		events.StockReleasedEvent,
	}, world.bus.topics())
}

func TestSagaSequentialOrdersConserveStock(t *testing.T) {
	world := newSagaWorld(t)
	productID := models.GenerateUUID()
	world.seedInventory(t, productID, 5)

	firstID := world.placeAndDrain(t, productID, 3)
	secondID := world.placeAndDrain(t, productID, 3)

	assert.Equal(t, int64(2), world.stockOf(t, productID))

	first := world.orders.orders[firstID]
	assert.Equal(t, orderdomain.OrderStatusPending, first.Status)

	second := world.orders.orders[secondID]
	assert.Equal(t, orderdomain.OrderStatusCancelled, second.Status)
	assert.Equal(t, "insufficient stock: available=2, requested=3", second.CancelReason)
}

func TestSagaDuplicateDeliveriesAreNoOps(t *testing.T) {
	world := newSagaWorld(t)
	ctx := context.Background()
	productID := models.GenerateUUID()
	world.seedInventory(t, productID, 5)

	orderID := world.placeAndDrain(t, productID, 3)
	payment := world.paymentFor(t, orderID)
	world.settleAndDrain(t, payment.ID, payapp.SettleActionApprove, "")

	delivered := len(world.bus.log)

	world.bus.redeliver(ctx, events.OrderPlacedEvent)
	assert.Equal(t, int64(2), world.stockOf(t, productID))

	world.bus.redeliver(ctx, events.StockReservedEvent)
	all, err := world.payments.FindAll(ctx, 50, 0)
	require.NoError(t, err)
	assert.Len(t, all, 1)

	world.bus.redeliver(ctx, events.PaymentConfirmedEvent)
	order := world.orders.orders[orderID]
	assert.Equal(t, orderdomain.OrderStatusConfirmed, order.Status)

	// Redeliveries produced no new events
	assert.Len(t, world.bus.log, delivered)
}
