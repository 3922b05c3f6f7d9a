package infrastructure

import (
	"context"

	"github.com/sagamart/order-system/shared/events"
)

// PublisherCloser pairs events.Publisher with lifecycle management, so
// services can swap SNS and Kafka transports behind one dependency.
type PublisherCloser interface {
	events.Publisher
	Close() error
}

// SubscriberCloser is the subscribing counterpart. The second argument of
// Subscribe names the consumer for logs and metrics.
type SubscriberCloser interface {
	Subscribe(ctx context.Context, handlerID string, handler events.EventHandler) error
	Close() error
}

var (
	_ PublisherCloser  = (*SNSPublisherAdapter)(nil)
	_ PublisherCloser  = (*KafkaEventPublisher)(nil)
	_ SubscriberCloser = (*SQSSubscriberAdapter)(nil)
	_ SubscriberCloser = (*KafkaEventSubscriber)(nil)
)
