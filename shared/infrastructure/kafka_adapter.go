package infrastructure

import (
	"context"
	"log"

	"github.com/pkg/errors"
	"github.com/sagamart/order-system/shared/events"
	"github.com/sagamart/order-system/shared/telemetry"
	kafka "github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel/attribute"
)

var _ events.Publisher = (*KafkaEventPublisher)(nil)

// KafkaEventPublisher implements events.Publisher on Kafka. Unlike SNS,
// Kafka keeps one topic per event type, so the event's topic becomes the
// Kafka topic and the aggregate (order) ID becomes the partition key,
// preserving per-order ordering.
type KafkaEventPublisher struct {
	writer *kafka.Writer
}

// NewKafkaEventPublisher creates a publisher over the given brokers
func NewKafkaEventPublisher(brokers []string) *KafkaEventPublisher {
	return &KafkaEventPublisher{
		writer: &kafka.Writer{
			Addr:                   kafka.TCP(brokers...),
			Balancer:               &kafka.Hash{},
			AllowAutoTopicCreation: true,
		},
	}
}

// Publish implements events.Publisher
func (p *KafkaEventPublisher) Publish(ctx context.Context, evts ...*events.Event) error {
	if len(evts) == 0 {
		return nil
	}

	messages := make([]kafka.Message, len(evts))
	for i, event := range evts {
		body, err := event.ToJSON()
		if err != nil {
			return errors.Wrap(err, "failed to marshal event")
		}

		messages[i] = kafka.Message{
			Topic: string(event.Topic),
			Key:   []byte(event.AggregateID.String()),
			Value: body,
		}
	}

	if err := p.writer.WriteMessages(ctx, messages...); err != nil {
		return errors.Wrap(err, "failed to write messages to kafka")
	}

	for _, event := range evts {
		telemetry.RecordCounter(ctx, "events_published_total", "Total events published", 1,
			attribute.String("topic", string(event.Topic)),
			attribute.String("status", "success"),
		)
	}

	return nil
}

// Close closes the underlying writer
func (p *KafkaEventPublisher) Close() error {
	return p.writer.Close()
}

// KafkaEventSubscriber implements events.Subscriber over a consumer group.
// Offsets commit only after the handler returns nil, so a crashed or
// failing handler sees the message again: at-least-once, same contract as
// the SQS subscriber.
type KafkaEventSubscriber struct {
	brokers   []string
	groupID   string
	topics    []string
	cancel    context.CancelFunc
	isRunning bool
}

// NewKafkaEventSubscriber creates a subscriber for the given topics
func NewKafkaEventSubscriber(brokers []string, groupID string, topics []string) *KafkaEventSubscriber {
	return &KafkaEventSubscriber{
		brokers: brokers,
		groupID: groupID,
		topics:  topics,
	}
}

// Subscribe implements events.Subscriber
func (s *KafkaEventSubscriber) Subscribe(ctx context.Context, handlerID string, handler events.EventHandler) error {
	if s.isRunning {
		return errors.New("subscriber is already running")
	}

	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:     s.brokers,
		GroupID:     s.groupID,
		GroupTopics: s.topics,
	})

	go s.consume(ctx, reader, handlerID, handler)

	s.isRunning = true
	return nil
}

func (s *KafkaEventSubscriber) consume(ctx context.Context, reader *kafka.Reader, handlerID string, handler events.EventHandler) {
	defer reader.Close()

	for {
		msg, err := reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			log.Printf("kafka subscriber %s: fetch failed: %v", handlerID, err)
			continue
		}

		event, err := events.FromJSON(msg.Value)
		if err != nil {
			// Malformed messages cannot be retried into shape; drop them.
			log.Printf("kafka subscriber %s: skipping malformed message on %s: %v", handlerID, msg.Topic, err)
			if err := reader.CommitMessages(ctx, msg); err != nil {
				log.Printf("kafka subscriber %s: commit failed: %v", handlerID, err)
			}
			continue
		}

		if err := handler.Handle(ctx, event); err != nil {
			// No commit: the group rebalancing or restart redelivers.
			log.Printf("kafka subscriber %s: handler failed on %s: %v", handlerID, msg.Topic, err)
			continue
		}

		if err := reader.CommitMessages(ctx, msg); err != nil {
			log.Printf("kafka subscriber %s: commit failed: %v", handlerID, err)
		}
	}
}

// Close stops the subscriber
func (s *KafkaEventSubscriber) Close() error {
	if !s.isRunning {
		return nil
	}

	if s.cancel != nil {
		s.cancel()
	}

	s.isRunning = false
	return nil
}
