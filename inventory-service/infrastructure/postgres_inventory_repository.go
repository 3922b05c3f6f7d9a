package infrastructure

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/sagamart/order-system/inventory-service/domain"
	"github.com/sagamart/order-system/shared/events"
	sharedinfra "github.com/sagamart/order-system/shared/infrastructure"
	"github.com/sagamart/order-system/shared/models"
)

const uniqueViolation = "23505"

// PostgresInventoryRepository implements InventoryRepository using
// PostgreSQL. Stock mutations are single conditional updates, never
// read-modify-write, so concurrent reservations serialize at the row.
type PostgresInventoryRepository struct {
	db     *sqlx.DB
	outbox sharedinfra.OutboxStore
	inbox  sharedinfra.InboxStore
}

// NewPostgresInventoryRepository creates a new PostgresInventoryRepository
func NewPostgresInventoryRepository(db *sqlx.DB, outbox sharedinfra.OutboxStore, inbox sharedinfra.InboxStore) *PostgresInventoryRepository {
	return &PostgresInventoryRepository{db: db, outbox: outbox, inbox: inbox}
}

// postgresInventory represents an inventory record in the database
type postgresInventory struct {
	ID        string     `db:"id"`
	ProductID string     `db:"product_id"`
	Stock     int64      `db:"stock"`
	CreatedAt time.Time  `db:"created_at"`
	UpdatedAt time.Time  `db:"updated_at"`
	DeletedAt *time.Time `db:"deleted_at"`
	Version   int        `db:"version"`
}

// Save inserts a new inventory record
func (r *PostgresInventoryRepository) Save(ctx context.Context, inventory *domain.Inventory) error {
	query := `
		INSERT INTO inventories (
			id, product_id, stock, created_at, updated_at, version
		) VALUES (
			:id, :product_id, :stock, :created_at, :updated_at, :version
		)`

	_, err := r.db.NamedExecContext(ctx, query, r.toPostgres(inventory))
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && string(pqErr.Code) == uniqueViolation {
			return domain.ErrInventoryExists
		}
		return errors.Wrap(err, "failed to insert inventory")
	}

	return nil
}

// FindByProductID finds an inventory record by product ID
func (r *PostgresInventoryRepository) FindByProductID(ctx context.Context, productID models.ID) (*domain.Inventory, error) {
	query := `
		SELECT id, product_id, stock, created_at, updated_at, deleted_at, version
		FROM inventories
		WHERE product_id = $1 AND deleted_at IS NULL`

	var pgInventory postgresInventory
	if err := r.db.GetContext(ctx, &pgInventory, query, productID.String()); err != nil {
		if err == sql.ErrNoRows {
			return nil, domain.ErrInventoryNotFound
		}
		return nil, errors.Wrap(err, "failed to find inventory")
	}

	return r.toDomain(&pgInventory)
}

// ReserveStock decrements the stock, marks the order-placed event
// processed and stages the stock-reserved event, all in one transaction
func (r *PostgresInventoryRepository) ReserveStock(ctx context.Context, orderID, productID models.ID, quantity int64, reserved *events.Event) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "failed to begin transaction")
	}
	defer tx.Rollback()

	if err := r.inbox.MarkTx(ctx, tx, orderID, events.OrderPlacedEvent); err != nil {
		return err
	}

	query := `
		UPDATE inventories
		SET stock = stock - $2, updated_at = NOW(), version = version + 1
		WHERE product_id = $1 AND stock >= $2 AND deleted_at IS NULL`

	res, err := tx.ExecContext(ctx, query, productID.String(), quantity)
	if err != nil {
		return errors.Wrap(err, "failed to decrement stock")
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "failed to read affected rows")
	}

	if affected == 0 {
		// The update matched nothing: either the product is unknown or
		// the stock is short. Read inside the same tx to tell them apart.
		var available int64
		err := tx.GetContext(ctx, &available,
			`SELECT stock FROM inventories WHERE product_id = $1 AND deleted_at IS NULL`,
			productID.String())
		if err == sql.ErrNoRows {
			return domain.ErrInventoryNotFound
		}
		if err != nil {
			return errors.Wrap(err, "failed to read stock")
		}
		return &domain.InsufficientStockError{Available: available, Requested: quantity}
	}

	if err := r.outbox.AppendTx(ctx, tx, reserved); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return errors.Wrap(err, "failed to commit reservation")
	}

	return nil
}

// RecordCancellation marks the order-placed event processed and stages
// the compensating order-cancelled event without touching stock
func (r *PostgresInventoryRepository) RecordCancellation(ctx context.Context, orderID models.ID, cancelled *events.Event) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "failed to begin transaction")
	}
	defer tx.Rollback()

	if err := r.inbox.MarkTx(ctx, tx, orderID, events.OrderPlacedEvent); err != nil {
		return err
	}

	if err := r.outbox.AppendTx(ctx, tx, cancelled); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return errors.Wrap(err, "failed to commit cancellation")
	}

	return nil
}

// ReleaseStock restores the quantity, marks the payment-failed event
// processed and stages the stock-released event, all in one transaction
func (r *PostgresInventoryRepository) ReleaseStock(ctx context.Context, orderID, productID models.ID, quantity int64, released *events.Event) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "failed to begin transaction")
	}
	defer tx.Rollback()

	if err := r.inbox.MarkTx(ctx, tx, orderID, events.PaymentFailedEvent); err != nil {
		return err
	}

	query := `
		UPDATE inventories
		SET stock = stock + $2, updated_at = NOW(), version = version + 1
		WHERE product_id = $1 AND deleted_at IS NULL`

	res, err := tx.ExecContext(ctx, query, productID.String(), quantity)
	if err != nil {
		return errors.Wrap(err, "failed to increment stock")
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "failed to read affected rows")
	}

	if affected == 0 {
		return domain.ErrInventoryNotFound
	}

	if err := r.outbox.AppendTx(ctx, tx, released); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return errors.Wrap(err, "failed to commit release")
	}

	return nil
}

// toPostgres converts a domain inventory to the postgres model
func (r *PostgresInventoryRepository) toPostgres(inventory *domain.Inventory) *postgresInventory {
	return &postgresInventory{
		ID:        inventory.ID.String(),
		ProductID: inventory.ProductID.String(),
		Stock:     inventory.Stock,
		CreatedAt: inventory.Timestamps.CreatedAt,
		UpdatedAt: inventory.Timestamps.UpdatedAt,
		DeletedAt: inventory.Timestamps.DeletedAt,
		Version:   inventory.Version.Value,
	}
}

// toDomain converts the postgres model to a domain inventory
func (r *PostgresInventoryRepository) toDomain(pgInventory *postgresInventory) (*domain.Inventory, error) {
	id, err := models.NewID(pgInventory.ID)
	if err != nil {
		return nil, errors.Wrap(err, "invalid inventory ID")
	}

	productID, err := models.NewID(pgInventory.ProductID)
	if err != nil {
		return nil, errors.Wrap(err, "invalid product ID")
	}

	return &domain.Inventory{
		ID:        id,
		ProductID: productID,
		Stock:     pgInventory.Stock,
		Timestamps: models.Timestamps{
			CreatedAt: pgInventory.CreatedAt,
			UpdatedAt: pgInventory.UpdatedAt,
			DeletedAt: pgInventory.DeletedAt,
		},
		Version: models.Version{Value: pgInventory.Version},
	}, nil
}
