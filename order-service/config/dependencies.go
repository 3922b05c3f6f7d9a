package config

import (
	"context"
	"fmt"
	"log"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/sagamart/order-system/order-service/application"
	"github.com/sagamart/order-system/order-service/handlers"
	"github.com/sagamart/order-system/order-service/infrastructure"
	"github.com/sagamart/order-system/shared/events"
	sharedinfra "github.com/sagamart/order-system/shared/infrastructure"
	"github.com/sagamart/order-system/shared/telemetry"
)

type Dependencies struct {
	// Database
	DB *sqlx.DB

	// Repositories
	OrderRepository *infrastructure.PostgresOrderRepository

	// Use Cases
	PlaceOrder          *application.PlaceOrder
	GetOrder            *application.GetOrder
	ListOrders          *application.ListOrders
	ProcessOrderOutcome *application.ProcessOrderOutcome

	// HTTP Handlers
	OrderHandlers *handlers.OrderHandlers

	// Event Handlers
	OrderEventHandlers *handlers.OrderEventHandlers

	// Infrastructure
	EventPublisher   sharedinfra.PublisherCloser
	EventSubscriber  sharedinfra.SubscriberCloser
	OutboxDispatcher *sharedinfra.OutboxDispatcher

	// Telemetry
	Telemetry         *telemetry.Telemetry
	TelemetryShutdown func()
}

func BuildDependencies(ctx context.Context, config *Config) (*Dependencies, error) {
	deps := &Dependencies{}

	if config.Telemetry.Enabled {
		telConfig := telemetry.OrderServiceConfig.WithOTLPEndpoint(config.Telemetry.OTLPEndpoint)
		tel, telemetryShutdown, err := telemetry.InitTelemetry(ctx, telConfig)
		if err != nil {
			log.Printf("Failed to initialize telemetry: %v", err)
			// Continue without telemetry rather than failing
		} else {
			deps.Telemetry = tel
			deps.TelemetryShutdown = telemetryShutdown
		}
	}

	db, err := sqlx.Connect("postgres", config.GetDatabaseURL())
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	deps.DB = db

	eventPublisher, eventSubscriber, err := buildMessaging(config)
	if err != nil {
		return nil, err
	}
	deps.EventPublisher = eventPublisher
	deps.EventSubscriber = eventSubscriber

	outboxStore := sharedinfra.NewPostgresOutboxStore(db)
	inboxStore := sharedinfra.NewPostgresInboxStore(db)
	deps.OutboxDispatcher = sharedinfra.NewOutboxDispatcher(outboxStore, eventPublisher)

	deps.OrderRepository = infrastructure.NewPostgresOrderRepository(db, outboxStore, inboxStore)

	deps.PlaceOrder = application.NewPlaceOrder(deps.OrderRepository)
	deps.GetOrder = application.NewGetOrder(deps.OrderRepository)
	deps.ListOrders = application.NewListOrders(deps.OrderRepository)
	deps.ProcessOrderOutcome = application.NewProcessOrderOutcome(deps.OrderRepository)

	deps.OrderHandlers = handlers.NewOrderHandlers(deps.PlaceOrder, deps.GetOrder, deps.ListOrders)
	deps.OrderEventHandlers = handlers.NewOrderEventHandlers(deps.ProcessOrderOutcome)

	return deps, nil
}

func buildMessaging(config *Config) (sharedinfra.PublisherCloser, sharedinfra.SubscriberCloser, error) {
	switch config.Messaging.Driver {
	case "kafka":
		publisher := sharedinfra.NewKafkaEventPublisher(config.Kafka.Brokers)
		subscriber := sharedinfra.NewKafkaEventSubscriber(config.Kafka.Brokers, config.Kafka.GroupID, orderServiceTopics())
		return publisher, subscriber, nil
	case "sns", "":
		publisher, err := sharedinfra.NewSNSPublisherAdapter(config.AWS.SNSTopicArn)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create SNS publisher: %w", err)
		}

		subscriber, err := sharedinfra.NewSQSSubscriberAdapter(config.AWS.SQSQueueURL)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create SQS subscriber: %w", err)
		}

		return publisher, subscriber, nil
	default:
		return nil, nil, fmt.Errorf("unknown messaging driver %q", config.Messaging.Driver)
	}
}

func orderServiceTopics() []string {
	return []string{events.OrderCancelledEvent, events.PaymentConfirmedEvent}
}

// Close closes all dependencies
func (d *Dependencies) Close() error {
	var errs []error

	if d.OutboxDispatcher != nil {
		d.OutboxDispatcher.Stop()
	}

	if d.DB != nil {
		if err := d.DB.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close database: %w", err))
		}
	}

	if d.EventPublisher != nil {
		if err := d.EventPublisher.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close event publisher: %w", err))
		}
	}

	if d.EventSubscriber != nil {
		if err := d.EventSubscriber.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close event subscriber: %w", err))
		}
	}

	if d.TelemetryShutdown != nil {
		d.TelemetryShutdown()
	}

	if len(errs) > 0 {
		return fmt.Errorf("errors closing dependencies: %v", errs)
	}

	return nil
}
