package infrastructure

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/sagamart/order-system/order-service/domain"
	sharedinfra "github.com/sagamart/order-system/shared/infrastructure"
	"github.com/sagamart/order-system/shared/models"
)

// PostgresOrderRepository implements OrderRepository using PostgreSQL.
// Writes go through transactions that carry the outbox rows (and, for
// consumed events, the processed-event marker) with the state change.
type PostgresOrderRepository struct {
	db     *sqlx.DB
	outbox sharedinfra.OutboxStore
	inbox  sharedinfra.InboxStore
}

// NewPostgresOrderRepository creates a new PostgresOrderRepository
func NewPostgresOrderRepository(db *sqlx.DB, outbox sharedinfra.OutboxStore, inbox sharedinfra.InboxStore) *PostgresOrderRepository {
	return &PostgresOrderRepository{db: db, outbox: outbox, inbox: inbox}
}

// postgresOrder represents an order in the database
type postgresOrder struct {
	ID            string     `db:"id"`
	CustomerEmail string     `db:"customer_email"`
	ProductID     string     `db:"product_id"`
	Quantity      int64      `db:"quantity"`
	TotalPrice    int64      `db:"total_price"`
	Currency      string     `db:"currency"`
	Status        string     `db:"status"`
	CancelReason  string     `db:"cancel_reason"`
	CreatedAt     time.Time  `db:"created_at"`
	UpdatedAt     time.Time  `db:"updated_at"`
	DeletedAt     *time.Time `db:"deleted_at"`
	Version       int        `db:"version"`
}

// Save inserts a new order and stages its recorded events in the outbox
// within one transaction
func (r *PostgresOrderRepository) Save(ctx context.Context, order *domain.Order) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "failed to begin transaction")
	}
	defer tx.Rollback()

	query := `
		INSERT INTO orders (
			id, customer_email, product_id, quantity, total_price, currency,
			status, cancel_reason, created_at, updated_at, version
		) VALUES (
			:id, :customer_email, :product_id, :quantity, :total_price, :currency,
			:status, :cancel_reason, :created_at, :updated_at, :version
		)`

	if _, err := tx.NamedExecContext(ctx, query, r.toPostgres(order)); err != nil {
		return errors.Wrap(err, "failed to insert order")
	}

	if err := r.outbox.AppendTx(ctx, tx, order.Events()...); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return errors.Wrap(err, "failed to commit order")
	}

	order.ClearEvents()
	return nil
}

// ApplyOutcome updates the order state atomically with the processed
// marker for the consumed topic
func (r *PostgresOrderRepository) ApplyOutcome(ctx context.Context, order *domain.Order, topic string) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "failed to begin transaction")
	}
	defer tx.Rollback()

	if err := r.inbox.MarkTx(ctx, tx, order.ID, topic); err != nil {
		return err
	}

	query := `
		UPDATE orders
		SET status = :status, cancel_reason = :cancel_reason, updated_at = :updated_at, version = :version
		WHERE id = :id AND version = :old_version`

	res, err := tx.NamedExecContext(ctx, query, map[string]interface{}{
		"id":            order.ID.String(),
		"status":        string(order.Status),
		"cancel_reason": order.CancelReason,
		"updated_at":    order.Timestamps.UpdatedAt,
		"version":       order.Version.Value,
		"old_version":   order.Version.Value - 1,
	})
	if err != nil {
		return errors.Wrap(err, "failed to update order")
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "failed to read affected rows")
	}

	if affected == 0 {
		return errors.New("order was modified concurrently")
	}

	if err := r.outbox.AppendTx(ctx, tx, order.Events()...); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return errors.Wrap(err, "failed to commit order outcome")
	}

	order.ClearEvents()
	return nil
}

// FindByID finds an order by ID
func (r *PostgresOrderRepository) FindByID(ctx context.Context, id models.ID) (*domain.Order, error) {
	query := `
		SELECT id, customer_email, product_id, quantity, total_price, currency,
			   status, cancel_reason, created_at, updated_at, deleted_at, version
		FROM orders
		WHERE id = $1 AND deleted_at IS NULL`

	var pgOrder postgresOrder
	if err := r.db.GetContext(ctx, &pgOrder, query, id.String()); err != nil {
		if err == sql.ErrNoRows {
			return nil, domain.ErrOrderNotFound
		}
		return nil, errors.Wrap(err, "failed to find order")
	}

	return r.toDomain(&pgOrder)
}

// FindByCustomerEmail finds orders for a customer, newest first
func (r *PostgresOrderRepository) FindByCustomerEmail(ctx context.Context, email string, limit, offset int) ([]*domain.Order, error) {
	query := `
		SELECT id, customer_email, product_id, quantity, total_price, currency,
			   status, cancel_reason, created_at, updated_at, deleted_at, version
		FROM orders
		WHERE customer_email = $1 AND deleted_at IS NULL
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3`

	var pgOrders []postgresOrder
	if err := r.db.SelectContext(ctx, &pgOrders, query, email, limit, offset); err != nil {
		return nil, errors.Wrap(err, "failed to find orders by customer email")
	}

	return r.toDomainList(pgOrders)
}

// FindAll lists orders, newest first
func (r *PostgresOrderRepository) FindAll(ctx context.Context, limit, offset int) ([]*domain.Order, error) {
	query := `
		SELECT id, customer_email, product_id, quantity, total_price, currency,
			   status, cancel_reason, created_at, updated_at, deleted_at, version
		FROM orders
		WHERE deleted_at IS NULL
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2`

	var pgOrders []postgresOrder
	if err := r.db.SelectContext(ctx, &pgOrders, query, limit, offset); err != nil {
		return nil, errors.Wrap(err, "failed to list orders")
	}

	return r.toDomainList(pgOrders)
}

func (r *PostgresOrderRepository) toDomainList(pgOrders []postgresOrder) ([]*domain.Order, error) {
	orders := make([]*domain.Order, len(pgOrders))
	for i, pgOrder := range pgOrders {
		order, err := r.toDomain(&pgOrder)
		if err != nil {
			return nil, err
		}
		orders[i] = order
	}
	return orders, nil
}

// toPostgres converts a domain order to the postgres model
func (r *PostgresOrderRepository) toPostgres(order *domain.Order) *postgresOrder {
	return &postgresOrder{
		ID:            order.ID.String(),
		CustomerEmail: order.CustomerEmail,
		ProductID:     order.ProductID.String(),
		Quantity:      order.Quantity,
		TotalPrice:    order.TotalPrice.Amount,
		Currency:      order.TotalPrice.Currency,
		Status:        string(order.Status),
		CancelReason:  order.CancelReason,
		CreatedAt:     order.Timestamps.CreatedAt,
		UpdatedAt:     order.Timestamps.UpdatedAt,
		DeletedAt:     order.Timestamps.DeletedAt,
		Version:       order.Version.Value,
	}
}

// toDomain converts the postgres model to a domain order
func (r *PostgresOrderRepository) toDomain(pgOrder *postgresOrder) (*domain.Order, error) {
	id, err := models.NewID(pgOrder.ID)
	if err != nil {
		return nil, errors.Wrap(err, "invalid order ID")
	}

	productID, err := models.NewID(pgOrder.ProductID)
	if err != nil {
		return nil, errors.Wrap(err, "invalid product ID")
	}

	return &domain.Order{
		ID:            id,
		CustomerEmail: pgOrder.CustomerEmail,
		ProductID:     productID,
		Quantity:      pgOrder.Quantity,
		TotalPrice:    models.NewMoney(pgOrder.TotalPrice, pgOrder.Currency),
		Status:        domain.OrderStatus(pgOrder.Status),
		CancelReason:  pgOrder.CancelReason,
		Timestamps: models.Timestamps{
			CreatedAt: pgOrder.CreatedAt,
			UpdatedAt: pgOrder.UpdatedAt,
			DeletedAt: pgOrder.DeletedAt,
		},
		Version: models.Version{Value: pgOrder.Version},
	}, nil
}
