package infrastructure

import (
	"context"
	"log"
	"time"

	"github.com/sagamart/order-system/shared/events"
	"github.com/sagamart/order-system/shared/models"
	"github.com/sagamart/order-system/shared/telemetry"
	"go.opentelemetry.io/otel/attribute"
)

// OutboxDispatcher drains the outbox: it polls pending rows, publishes
// them and deletes the rows only after the broker confirmed. A crash
// between publish and delete causes a republish, never a lost event.
type OutboxDispatcher struct {
	store     OutboxStore
	publisher events.Publisher
	interval  time.Duration
	batchSize int
	cancel    context.CancelFunc
}

// OutboxDispatcherOption configures the dispatcher
type OutboxDispatcherOption func(*OutboxDispatcher)

func WithPollInterval(interval time.Duration) OutboxDispatcherOption {
	return func(d *OutboxDispatcher) {
		d.interval = interval
	}
}

func WithBatchSize(size int) OutboxDispatcherOption {
	return func(d *OutboxDispatcher) {
		d.batchSize = size
	}
}

// NewOutboxDispatcher creates a new dispatcher
func NewOutboxDispatcher(store OutboxStore, publisher events.Publisher, opts ...OutboxDispatcherOption) *OutboxDispatcher {
	d := &OutboxDispatcher{
		store:     store,
		publisher: publisher,
		interval:  500 * time.Millisecond,
		batchSize: 50,
	}

	for _, opt := range opts {
		opt(d)
	}

	return d
}

// Start begins polling until the context is cancelled or Stop is called
func (d *OutboxDispatcher) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	d.cancel = cancel

	go d.run(ctx)
}

// Stop stops the dispatcher
func (d *OutboxDispatcher) Stop() {
	if d.cancel != nil {
		d.cancel()
	}
}

func (d *OutboxDispatcher) run(ctx context.Context) {
	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := d.dispatch(ctx); err != nil {
				log.Printf("outbox dispatcher: %v", err)
			}
		}
	}
}

func (d *OutboxDispatcher) dispatch(ctx context.Context) error {
	evts, err := d.store.FetchBatch(ctx, d.batchSize)
	if err != nil {
		return err
	}

	if len(evts) == 0 {
		return nil
	}

	ids := make([]models.ID, len(evts))
	for i, event := range evts {
		ids[i] = event.ID
	}

	if err := d.publisher.Publish(ctx, evts...); err != nil {
		if markErr := d.store.MarkAttempt(ctx, ids...); markErr != nil {
			log.Printf("outbox dispatcher: failed to mark attempts: %v", markErr)
		}

		telemetry.RecordCounter(ctx, "outbox_dispatch_total", "Outbox dispatch results", int64(len(evts)),
			attribute.String("status", "failed"),
		)

		return err
	}

	if err := d.store.Delete(ctx, ids...); err != nil {
		// Rows stay behind and get republished; consumers dedupe.
		return err
	}

	telemetry.RecordCounter(ctx, "outbox_dispatch_total", "Outbox dispatch results", int64(len(evts)),
		attribute.String("status", "published"),
	)

	return nil
}
