package infrastructure

import (
	"context"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/sagamart/order-system/shared/models"
)

// ErrDuplicateEvent is returned when an event has already been processed
// for the same aggregate and topic.
var ErrDuplicateEvent = errors.New("event already processed")

// InboxStore records which events a service has already applied. MarkTx
// runs inside the mutation's transaction: if the marker conflicts the
// whole transaction rolls back, which makes redelivered events no-ops.
type InboxStore interface {
	MarkTx(ctx context.Context, tx *sqlx.Tx, aggregateID models.ID, topic string) error
}

var _ InboxStore = (*PostgresInboxStore)(nil)

// PostgresInboxStore keeps processed-event markers.
//
// Expected schema:
//
//	CREATE TABLE processed_events (
//	    aggregate_id UUID NOT NULL,
//	    topic        TEXT NOT NULL,
//	    processed_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
//	    PRIMARY KEY (aggregate_id, topic)
//	);
type PostgresInboxStore struct {
	db *sqlx.DB
}

// NewPostgresInboxStore creates a new inbox store
func NewPostgresInboxStore(db *sqlx.DB) *PostgresInboxStore {
	return &PostgresInboxStore{db: db}
}

// MarkTx inserts the processed marker, returning ErrDuplicateEvent when
// the (aggregate, topic) pair was already marked
func (s *PostgresInboxStore) MarkTx(ctx context.Context, tx *sqlx.Tx, aggregateID models.ID, topic string) error {
	query := `
		INSERT INTO processed_events (aggregate_id, topic)
		VALUES ($1, $2)
		ON CONFLICT (aggregate_id, topic) DO NOTHING`

	res, err := tx.ExecContext(ctx, query, aggregateID.String(), topic)
	if err != nil {
		return errors.Wrap(err, "failed to insert processed event marker")
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "failed to read affected rows")
	}

	if affected == 0 {
		return ErrDuplicateEvent
	}

	return nil
}
