package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"processguard/internal/process/models"
	"processguard/internal/restriction"
	"processguard/pkg/domain"
	"processguard/pkg/platform/sentinel"
	txcontext "processguard/pkg/platform/tx"
)

// PostgresStore persists the registry in two tables: process_versions holds
// the counter per identifier and processes holds one row per slot.
//
// Slot writes honor a transaction carried in the context. The counter bump
// never does: an issued version stays issued even when the caller's
// transaction rolls back.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed process store.
func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

type dbExecutor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *PostgresStore) execer(ctx context.Context) dbExecutor {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

func (s *PostgresStore) CurrentVersion(ctx context.Context, id domain.ProcessIdentifier) (domain.ProcessVersion, error) {
	var version int64
	err := s.execer(ctx).QueryRowContext(ctx,
		`SELECT version FROM process_versions WHERE identifier = $1`, string(id),
	).Scan(&version)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, nil
		}
		return 0, fmt.Errorf("get process version: %w", err)
	}
	return domain.ProcessVersion(version), nil
}

func (s *PostgresStore) BumpVersion(ctx context.Context, id domain.ProcessIdentifier) (domain.ProcessVersion, error) {
	query := `
		INSERT INTO process_versions (identifier, version)
		VALUES ($1, 1)
		ON CONFLICT (identifier) DO UPDATE SET
			version = process_versions.version + 1
		WHERE process_versions.version < $2
		RETURNING version
	`
	var version int64
	if err := s.db.QueryRowContext(ctx, query, string(id), int64(domain.MaxProcessVersion)).Scan(&version); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, fmt.Errorf("version counter for %s exhausted: %w", id, sentinel.ErrInvalidState)
		}
		return 0, fmt.Errorf("bump process version: %w", err)
	}
	if version > int64(domain.MaxProcessVersion) {
		return 0, fmt.Errorf("version counter for %s exhausted: %w", id, sentinel.ErrInvalidState)
	}
	return domain.ProcessVersion(version), nil
}

func (s *PostgresStore) FindProcess(ctx context.Context, id domain.ProcessIdentifier, version domain.ProcessVersion) (*models.Process, error) {
	query := `
		SELECT identifier, version, status, restrictions, created_at, updated_at
		FROM processes
		WHERE identifier = $1 AND version = $2
	`
	p, err := scanProcess(s.execer(ctx).QueryRowContext(ctx, query, string(id), int64(version)))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find process: %w", err)
	}
	return p, nil
}

func (s *PostgresStore) InsertProcess(ctx context.Context, p *models.Process) error {
	restrictions, err := json.Marshal(p.Restrictions)
	if err != nil {
		return fmt.Errorf("marshal restrictions: %w", err)
	}
	query := `
		INSERT INTO processes (identifier, version, status, restrictions, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (identifier, version) DO NOTHING
	`
	result, err := s.execer(ctx).ExecContext(ctx, query,
		string(p.ID),
		int64(p.Version),
		string(p.Status),
		restrictions,
		p.CreatedAt,
		p.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert process: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("insert process rows affected: %w", err)
	}
	if rows == 0 {
		return sentinel.ErrConflict
	}
	return nil
}

// UpdateProcess writes the mutable columns of an existing slot.
func (s *PostgresStore) UpdateProcess(ctx context.Context, p *models.Process) error {
	query := `
		UPDATE processes
		SET status = $3, updated_at = $4
		WHERE identifier = $1 AND version = $2
	`
	result, err := s.execer(ctx).ExecContext(ctx, query,
		string(p.ID),
		int64(p.Version),
		string(p.Status),
		p.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update process: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update process rows affected: %w", err)
	}
	if rows == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *PostgresStore) ListProcesses(ctx context.Context, id domain.ProcessIdentifier) ([]*models.Process, error) {
	query := `
		SELECT identifier, version, status, restrictions, created_at, updated_at
		FROM processes
		WHERE identifier = $1
		ORDER BY version ASC
	`
	rows, err := s.execer(ctx).QueryContext(ctx, query, string(id))
	if err != nil {
		return nil, fmt.Errorf("list processes: %w", err)
	}
	defer rows.Close()

	var out []*models.Process
	for rows.Next() {
		p, err := scanProcess(rows)
		if err != nil {
			return nil, fmt.Errorf("scan process: %w", err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate processes: %w", err)
	}
	return out, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProcess(row rowScanner) (*models.Process, error) {
	var (
		id           string
		version      int64
		status       string
		restrictions []byte
		createdAt    time.Time
		updatedAt    time.Time
	)
	if err := row.Scan(&id, &version, &status, &restrictions, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	var rs []restriction.Restriction
	if err := json.Unmarshal(restrictions, &rs); err != nil {
		return nil, fmt.Errorf("unmarshal restrictions: %w", err)
	}
	return &models.Process{
		ID:           domain.ProcessIdentifier(id),
		Version:      domain.ProcessVersion(version),
		Status:       models.Status(status),
		Restrictions: rs,
		CreatedAt:    createdAt,
		UpdatedAt:    updatedAt,
	}, nil
}
