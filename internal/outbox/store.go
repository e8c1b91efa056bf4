// Package outbox persists lifecycle notifications in the same transaction as
// the registry write and relays them to Kafka afterwards.
package outbox

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"processguard/internal/process/events"
	txcontext "processguard/pkg/platform/tx"
)

const aggregateType = "process"

// Entry is one row of the outbox table.
type Entry struct {
	ID          uuid.UUID
	AggregateID string
	EventType   string
	Payload     []byte
	CreatedAt   time.Time
}

// PostgresStore implements events.Sink by writing to the outbox table.
// Inside a lifecycle transaction the write joins the ctx transaction, so a
// rolled back create leaves no notification behind.
type PostgresStore struct {
	db *sql.DB
}

var _ events.Sink = (*PostgresStore)(nil)

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

type dbExecutor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func (s *PostgresStore) execer(ctx context.Context) dbExecutor {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

// Emit appends the event to the outbox.
func (s *PostgresStore) Emit(ctx context.Context, event events.Event) error {
	payload, err := event.Marshal()
	if err != nil {
		return err
	}
	query := `
		INSERT INTO outbox (id, aggregate_type, aggregate_id, event_type, payload, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err = s.execer(ctx).ExecContext(ctx, query,
		event.ID,
		aggregateType,
		event.Key(),
		string(event.Type),
		payload,
		event.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("insert outbox entry: %w", err)
	}
	return nil
}

// FetchUnpublished returns up to limit unpublished entries, oldest first.
func (s *PostgresStore) FetchUnpublished(ctx context.Context, limit int) ([]Entry, error) {
	query := `
		SELECT id, aggregate_id, event_type, payload, created_at
		FROM outbox
		WHERE published_at IS NULL
		ORDER BY created_at ASC
		LIMIT $1
	`
	rows, err := s.execer(ctx).QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("query outbox: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.AggregateID, &e.EventType, &e.Payload, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan outbox entry: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate outbox: %w", err)
	}
	return entries, nil
}

// MarkPublished stamps the entry so it is not relayed again.
func (s *PostgresStore) MarkPublished(ctx context.Context, id uuid.UUID, at time.Time) error {
	query := `UPDATE outbox SET published_at = $2 WHERE id = $1 AND published_at IS NULL`
	if _, err := s.execer(ctx).ExecContext(ctx, query, id, at); err != nil {
		return fmt.Errorf("mark outbox entry published: %w", err)
	}
	return nil
}
