package infrastructure

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/sagamart/order-system/shared/events"
	"github.com/sagamart/order-system/shared/models"
)

// OutboxStore persists events alongside the state change that produced
// them. AppendTx runs inside the caller's transaction, so an event row
// exists if and only if the state change committed.
type OutboxStore interface {
	AppendTx(ctx context.Context, tx *sqlx.Tx, evts ...*events.Event) error
	FetchBatch(ctx context.Context, limit int) ([]*events.Event, error)
	Delete(ctx context.Context, ids ...models.ID) error
	MarkAttempt(ctx context.Context, ids ...models.ID) error
}

type outboxRow struct {
	ID            string          `db:"id"`
	AggregateID   string          `db:"aggregate_id"`
	Topic         string          `db:"topic"`
	Payload       json.RawMessage `db:"payload"`
	Metadata      []byte          `db:"metadata"`
	CorrelationID sql.NullString  `db:"correlation_id"`
	Attempts      int             `db:"attempts"`
	CreatedAt     time.Time       `db:"created_at"`
}

var _ OutboxStore = (*PostgresOutboxStore)(nil)

// PostgresOutboxStore stores outbox rows in the service's own database.
//
// Expected schema:
//
//	CREATE TABLE outbox_events (
//	    id             UUID PRIMARY KEY,
//	    aggregate_id   UUID NOT NULL,
//	    topic          TEXT NOT NULL,
//	    payload        JSONB NOT NULL,
//	    metadata       JSONB,
//	    correlation_id TEXT,
//	    attempts       INT NOT NULL DEFAULT 0,
//	    created_at     TIMESTAMPTZ NOT NULL DEFAULT NOW()
//	);
type PostgresOutboxStore struct {
	db *sqlx.DB
}

// NewPostgresOutboxStore creates a new outbox store
func NewPostgresOutboxStore(db *sqlx.DB) *PostgresOutboxStore {
	return &PostgresOutboxStore{db: db}
}

// AppendTx inserts the events into the outbox within the given transaction
func (s *PostgresOutboxStore) AppendTx(ctx context.Context, tx *sqlx.Tx, evts ...*events.Event) error {
	query := `
		INSERT INTO outbox_events (id, aggregate_id, topic, payload, metadata, correlation_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	for _, event := range evts {
		payload, err := event.MarshalPayload()
		if err != nil {
			return errors.Wrap(err, "failed to marshal event payload")
		}

		metadata, err := json.Marshal(event.Metadata)
		if err != nil {
			return errors.Wrap(err, "failed to marshal event metadata")
		}

		_, err = tx.ExecContext(ctx, query,
			event.ID.String(),
			event.AggregateID.String(),
			string(event.Topic),
			payload,
			metadata,
			event.CorrelationID.String(),
			event.Timestamp,
		)
		if err != nil {
			return errors.Wrap(err, "failed to insert outbox event")
		}
	}

	return nil
}

// FetchBatch returns the oldest pending events up to limit
func (s *PostgresOutboxStore) FetchBatch(ctx context.Context, limit int) ([]*events.Event, error) {
	query := `
		SELECT id, aggregate_id, topic, payload, metadata, correlation_id, attempts, created_at
		FROM outbox_events
		ORDER BY created_at ASC
		LIMIT $1`

	var rows []outboxRow
	if err := s.db.SelectContext(ctx, &rows, query, limit); err != nil {
		return nil, errors.Wrap(err, "failed to fetch outbox events")
	}

	evts := make([]*events.Event, 0, len(rows))
	for _, row := range rows {
		topic, err := events.NewTopic(row.Topic)
		if err != nil {
			return nil, errors.Wrapf(err, "outbox row %s has invalid topic", row.ID)
		}

		metadata := make(events.Metadata)
		if len(row.Metadata) > 0 {
			if err := json.Unmarshal(row.Metadata, &metadata); err != nil {
				return nil, errors.Wrapf(err, "outbox row %s has invalid metadata", row.ID)
			}
		}

		evts = append(evts, &events.Event{
			ID:            models.ID(row.ID),
			AggregateID:   models.ID(row.AggregateID),
			Topic:         topic,
			EventType:     row.Topic,
			Version:       "1.0",
			Data:          row.Payload,
			Metadata:      metadata,
			Timestamp:     row.CreatedAt,
			CorrelationID: models.ID(row.CorrelationID.String),
		})
	}

	return evts, nil
}

// Delete removes published events from the outbox
func (s *PostgresOutboxStore) Delete(ctx context.Context, ids ...models.ID) error {
	if len(ids) == 0 {
		return nil
	}

	query, args, err := sqlx.In(`DELETE FROM outbox_events WHERE id IN (?)`, toStrings(ids))
	if err != nil {
		return errors.Wrap(err, "failed to build delete query")
	}

	if _, err := s.db.ExecContext(ctx, s.db.Rebind(query), args...); err != nil {
		return errors.Wrap(err, "failed to delete outbox events")
	}

	return nil
}

// MarkAttempt increments the attempt counter on failed publishes
func (s *PostgresOutboxStore) MarkAttempt(ctx context.Context, ids ...models.ID) error {
	if len(ids) == 0 {
		return nil
	}

	query, args, err := sqlx.In(`UPDATE outbox_events SET attempts = attempts + 1 WHERE id IN (?)`, toStrings(ids))
	if err != nil {
		return errors.Wrap(err, "failed to build update query")
	}

	if _, err := s.db.ExecContext(ctx, s.db.Rebind(query), args...); err != nil {
		return errors.Wrap(err, "failed to mark outbox attempts")
	}

	return nil
}

func toStrings(ids []models.ID) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = id.String()
	}
	return out
}
