package infrastructure

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/sagamart/order-system/payment-service/domain"
	"github.com/sagamart/order-system/shared/events"
	sharedinfra "github.com/sagamart/order-system/shared/infrastructure"
	"github.com/sagamart/order-system/shared/models"
)

// PostgresPaymentRepository implements PaymentRepository using
// PostgreSQL. Open carries the stock-reserved marker in the insert's
// transaction; Settle carries the outbox rows in the update's.
type PostgresPaymentRepository struct {
	db     *sqlx.DB
	outbox sharedinfra.OutboxStore
	inbox  sharedinfra.InboxStore
}

// NewPostgresPaymentRepository creates a new PostgresPaymentRepository
func NewPostgresPaymentRepository(db *sqlx.DB, outbox sharedinfra.OutboxStore, inbox sharedinfra.InboxStore) *PostgresPaymentRepository {
	return &PostgresPaymentRepository{db: db, outbox: outbox, inbox: inbox}
}

// postgresPayment represents a payment in the database
type postgresPayment struct {
	ID            string     `db:"id"`
	OrderID       string     `db:"order_id"`
	ProductID     *string    `db:"product_id"`
	Quantity      int64      `db:"quantity"`
	Amount           int64      `db:"amount"`
	Currency         string     `db:"currency"`
	Status           string     `db:"status"`
	PaymentMethod    string     `db:"payment_method"`
	TransactionID    string     `db:"transaction_id"`
	CustomerEmail    string     `db:"customer_email"`
	MaskedCardNumber string     `db:"masked_card_number"`
	CardHolderName   string     `db:"card_holder_name"`
	FailureReason    string     `db:"failure_reason"`
	RetryCount       int        `db:"retry_count"`
	CreatedAt     time.Time  `db:"created_at"`
	UpdatedAt     time.Time  `db:"updated_at"`
	DeletedAt     *time.Time `db:"deleted_at"`
	Version       int        `db:"version"`
}

const paymentColumns = `
	id, order_id, product_id, quantity, amount, currency, status,
	payment_method, transaction_id, customer_email, masked_card_number,
	card_holder_name, failure_reason, retry_count,
	created_at, updated_at, deleted_at, version`

// Open inserts a new pending payment and marks the stock-reserved event
// processed within one transaction
func (r *PostgresPaymentRepository) Open(ctx context.Context, payment *domain.Payment) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "failed to begin transaction")
	}
	defer tx.Rollback()

	if err := r.inbox.MarkTx(ctx, tx, payment.OrderID, events.StockReservedEvent); err != nil {
		return err
	}

	query := `
		INSERT INTO payments (
			id, order_id, product_id, quantity, amount, currency, status,
			payment_method, transaction_id, customer_email, masked_card_number,
			card_holder_name, failure_reason, retry_count,
			created_at, updated_at, version
		) VALUES (
			:id, :order_id, :product_id, :quantity, :amount, :currency, :status,
			:payment_method, :transaction_id, :customer_email, :masked_card_number,
			:card_holder_name, :failure_reason, :retry_count,
			:created_at, :updated_at, :version
		)`

	if _, err := tx.NamedExecContext(ctx, query, r.toPostgres(payment)); err != nil {
		return errors.Wrap(err, "failed to insert payment")
	}

	if err := tx.Commit(); err != nil {
		return errors.Wrap(err, "failed to commit payment")
	}

	return nil
}

// Settle updates the settled payment and stages its recorded events in
// the outbox within one transaction
func (r *PostgresPaymentRepository) Settle(ctx context.Context, payment *domain.Payment) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "failed to begin transaction")
	}
	defer tx.Rollback()

	query := `
		UPDATE payments
		SET status = :status, failure_reason = :failure_reason, retry_count = :retry_count,
			updated_at = :updated_at, version = :version
		WHERE id = :id AND version = :old_version`

	res, err := tx.NamedExecContext(ctx, query, map[string]interface{}{
		"id":             payment.ID.String(),
		"status":         string(payment.Status),
		"failure_reason": payment.FailureReason,
		"retry_count":    payment.RetryCount,
		"updated_at":     payment.Timestamps.UpdatedAt,
		"version":        payment.Version.Value,
		"old_version":    payment.Version.Value - 1,
	})
	if err != nil {
		return errors.Wrap(err, "failed to update payment")
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "failed to read affected rows")
	}

	if affected == 0 {
		return errors.New("payment was modified concurrently")
	}

	if err := r.outbox.AppendTx(ctx, tx, payment.Events()...); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return errors.Wrap(err, "failed to commit settlement")
	}

	payment.ClearEvents()
	return nil
}

// FindByID finds a payment by ID
func (r *PostgresPaymentRepository) FindByID(ctx context.Context, id models.ID) (*domain.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE id = $1 AND deleted_at IS NULL`

	var pgPayment postgresPayment
	if err := r.db.GetContext(ctx, &pgPayment, query, id.String()); err != nil {
		if err == sql.ErrNoRows {
			return nil, domain.ErrPaymentNotFound
		}
		return nil, errors.Wrap(err, "failed to find payment")
	}

	return r.toDomain(&pgPayment)
}

// FindByOrderID finds the payment opened for an order
func (r *PostgresPaymentRepository) FindByOrderID(ctx context.Context, orderID models.ID) (*domain.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE order_id = $1 AND deleted_at IS NULL LIMIT 1`

	var pgPayment postgresPayment
	if err := r.db.GetContext(ctx, &pgPayment, query, orderID.String()); err != nil {
		if err == sql.ErrNoRows {
			return nil, domain.ErrPaymentNotFound
		}
		return nil, errors.Wrap(err, "failed to find payment by order ID")
	}

	return r.toDomain(&pgPayment)
}

// FindAll lists payments, newest first
func (r *PostgresPaymentRepository) FindAll(ctx context.Context, limit, offset int) ([]*domain.Payment, error) {
	query := `
		SELECT ` + paymentColumns + `
		FROM payments
		WHERE deleted_at IS NULL
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2`

	var pgPayments []postgresPayment
	if err := r.db.SelectContext(ctx, &pgPayments, query, limit, offset); err != nil {
		return nil, errors.Wrap(err, "failed to list payments")
	}

	return r.toDomainList(pgPayments)
}

// FindPending lists payments awaiting settlement
func (r *PostgresPaymentRepository) FindPending(ctx context.Context) ([]*domain.Payment, error) {
	query := `
		SELECT ` + paymentColumns + `
		FROM payments
		WHERE status = $1 AND deleted_at IS NULL
		ORDER BY created_at ASC`

	var pgPayments []postgresPayment
	if err := r.db.SelectContext(ctx, &pgPayments, query, string(domain.PaymentStatusPending)); err != nil {
		return nil, errors.Wrap(err, "failed to list pending payments")
	}

	return r.toDomainList(pgPayments)
}

// FindFailedForRetry lists FAILED payments still under the retry cap
func (r *PostgresPaymentRepository) FindFailedForRetry(ctx context.Context) ([]*domain.Payment, error) {
	query := `
		SELECT ` + paymentColumns + `
		FROM payments
		WHERE status = $1 AND retry_count < $2 AND deleted_at IS NULL
		ORDER BY created_at ASC`

	var pgPayments []postgresPayment
	if err := r.db.SelectContext(ctx, &pgPayments, query, string(domain.PaymentStatusFailed), domain.MaxRetryCount); err != nil {
		return nil, errors.Wrap(err, "failed to list retryable payments")
	}

	return r.toDomainList(pgPayments)
}

func (r *PostgresPaymentRepository) toDomainList(pgPayments []postgresPayment) ([]*domain.Payment, error) {
	payments := make([]*domain.Payment, len(pgPayments))
	for i, pgPayment := range pgPayments {
		payment, err := r.toDomain(&pgPayment)
		if err != nil {
			return nil, err
		}
		payments[i] = payment
	}
	return payments, nil
}

// toPostgres converts a domain payment to the postgres model
func (r *PostgresPaymentRepository) toPostgres(payment *domain.Payment) *postgresPayment {
	var productID *string
	if payment.ProductID != "" {
		pid := payment.ProductID.String()
		productID = &pid
	}

	return &postgresPayment{
		ID:               payment.ID.String(),
		OrderID:          payment.OrderID.String(),
		ProductID:        productID,
		Quantity:         payment.Quantity,
		Amount:           payment.Amount.Amount,
		Currency:         payment.Amount.Currency,
		Status:           string(payment.Status),
		PaymentMethod:    string(payment.Method),
		TransactionID:    payment.TransactionID,
		CustomerEmail:    payment.CustomerEmail,
		MaskedCardNumber: payment.MaskedCardNumber,
		CardHolderName:   payment.CardHolderName,
		FailureReason:    payment.FailureReason,
		RetryCount:       payment.RetryCount,
		CreatedAt:        payment.Timestamps.CreatedAt,
		UpdatedAt:        payment.Timestamps.UpdatedAt,
		DeletedAt:        payment.Timestamps.DeletedAt,
		Version:          payment.Version.Value,
	}
}

// toDomain converts the postgres model to a domain payment
func (r *PostgresPaymentRepository) toDomain(pgPayment *postgresPayment) (*domain.Payment, error) {
	id, err := models.NewID(pgPayment.ID)
	if err != nil {
		return nil, errors.Wrap(err, "invalid payment ID")
	}

	orderID, err := models.NewID(pgPayment.OrderID)
	if err != nil {
		return nil, errors.Wrap(err, "invalid order ID")
	}

	var productID models.ID
	if pgPayment.ProductID != nil {
		productID, err = models.NewID(*pgPayment.ProductID)
		if err != nil {
			return nil, errors.Wrap(err, "invalid product ID")
		}
	}

	return &domain.Payment{
		ID:               id,
		OrderID:          orderID,
		ProductID:        productID,
		Quantity:         pgPayment.Quantity,
		Amount:           models.NewMoney(pgPayment.Amount, pgPayment.Currency),
		Status:           domain.PaymentStatus(pgPayment.Status),
		Method:           domain.PaymentMethod(pgPayment.PaymentMethod),
		TransactionID:    pgPayment.TransactionID,
		CustomerEmail:    pgPayment.CustomerEmail,
		MaskedCardNumber: pgPayment.MaskedCardNumber,
		CardHolderName:   pgPayment.CardHolderName,
		FailureReason:    pgPayment.FailureReason,
		RetryCount:       pgPayment.RetryCount,
		Timestamps: models.Timestamps{
			CreatedAt: pgPayment.CreatedAt,
			UpdatedAt: pgPayment.UpdatedAt,
			DeletedAt: pgPayment.DeletedAt,
		},
		Version: models.Version{Value: pgPayment.Version},
	}, nil
}
