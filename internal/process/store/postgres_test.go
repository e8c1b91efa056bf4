package store

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"processguard/internal/process/models"
	"processguard/internal/restriction"
	"processguard/pkg/domain"
	"processguard/pkg/platform/sentinel"
	txcontext "processguard/pkg/platform/tx"
)

var processColumns = []string{"identifier", "version", "status", "restrictions", "created_at", "updated_at"}

func newMockStore(t *testing.T) (*PostgresStore, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		db.Close()
	})
	return NewPostgres(db), mock
}

func TestPostgresCurrentVersion(t *testing.T) {
	ctx := context.Background()

	t.Run("unknown identifier reads as zero", func(t *testing.T) {
		s, mock := newMockStore(t)
		mock.ExpectQuery(`SELECT version FROM process_versions`).
			WithArgs("A").
			WillReturnError(sql.ErrNoRows)

		v, err := s.CurrentVersion(ctx, "A")
		require.NoError(t, err)
		assert.Zero(t, v)
	})

	t.Run("returns stored counter", func(t *testing.T) {
		s, mock := newMockStore(t)
		mock.ExpectQuery(`SELECT version FROM process_versions`).
			WithArgs("A").
			WillReturnRows(sqlmock.NewRows([]string{"version"}).AddRow(9))

		v, err := s.CurrentVersion(ctx, "A")
		require.NoError(t, err)
		assert.EqualValues(t, 9, v)
	})
}

func TestPostgresBumpVersion(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectQuery(`INSERT INTO process_versions .* ON CONFLICT \(identifier\) DO UPDATE .* RETURNING version`).
		WithArgs("A", int64(domain.MaxProcessVersion)).
		WillReturnRows(sqlmock.NewRows([]string{"version"}).AddRow(10))

	v, err := s.BumpVersion(context.Background(), "A")
	require.NoError(t, err)
	assert.EqualValues(t, 10, v)
}

func TestPostgresBumpVersionStopsAtMax(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectQuery(`INSERT INTO process_versions .* WHERE process_versions.version < \$2`).
		WithArgs("A", int64(domain.MaxProcessVersion)).
		WillReturnError(sql.ErrNoRows)

	_, err := s.BumpVersion(context.Background(), "A")
	assert.ErrorIs(t, err, sentinel.ErrInvalidState)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresBumpVersionIgnoresContextTx(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO process_versions`).
		WithArgs("A", int64(domain.MaxProcessVersion)).
		WillReturnRows(sqlmock.NewRows([]string{"version"}).AddRow(1))
	mock.ExpectRollback()

	tx, err := s.db.Begin()
	require.NoError(t, err)
	ctx := txcontext.WithTx(context.Background(), tx)

	_, err = s.BumpVersion(ctx, "A")
	require.NoError(t, err)
	require.NoError(t, tx.Rollback())
}

func TestPostgresInsertProcess(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	p := models.NewProcess("A", 1, []restriction.Restriction{restriction.None()}, now)

	t.Run("writes a fresh slot", func(t *testing.T) {
		s, mock := newMockStore(t)
		mock.ExpectExec(`INSERT INTO processes .* ON CONFLICT \(identifier, version\) DO NOTHING`).
			WithArgs("A", int64(1), "enabled", []byte(`[{"kind":"none"}]`), now, now).
			WillReturnResult(sqlmock.NewResult(0, 1))

		require.NoError(t, s.InsertProcess(context.Background(), p))
	})

	t.Run("populated slot is a conflict", func(t *testing.T) {
		s, mock := newMockStore(t)
		mock.ExpectExec(`INSERT INTO processes`).
			WillReturnResult(sqlmock.NewResult(0, 0))

		err := s.InsertProcess(context.Background(), p)
		assert.ErrorIs(t, err, sentinel.ErrConflict)
	})

	t.Run("driver errors are wrapped", func(t *testing.T) {
		s, mock := newMockStore(t)
		mock.ExpectExec(`INSERT INTO processes`).
			WillReturnError(errors.New("connection reset"))

		err := s.InsertProcess(context.Background(), p)
		require.Error(t, err)
		assert.NotErrorIs(t, err, sentinel.ErrConflict)
	})
}

func TestPostgresFindProcess(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	t.Run("decodes restrictions", func(t *testing.T) {
		s, mock := newMockStore(t)
		mock.ExpectQuery(`SELECT identifier, version, status, restrictions, created_at, updated_at FROM processes`).
			WithArgs("A", int64(2)).
			WillReturnRows(sqlmock.NewRows(processColumns).
				AddRow("A", 2, "disabled", []byte(`[{"kind":"fixed_number_of_inputs","count":2}]`), now, now))

		p, err := s.FindProcess(context.Background(), "A", 2)
		require.NoError(t, err)
		assert.EqualValues(t, 2, p.Version)
		assert.Equal(t, models.StatusDisabled, p.Status)
		assert.Equal(t, []restriction.Restriction{restriction.FixedNumberOfInputs(2)}, p.Restrictions)
	})

	t.Run("empty slot", func(t *testing.T) {
		s, mock := newMockStore(t)
		mock.ExpectQuery(`FROM processes`).
			WillReturnRows(sqlmock.NewRows(processColumns))

		_, err := s.FindProcess(context.Background(), "A", 1)
		assert.ErrorIs(t, err, sentinel.ErrNotFound)
	})

	t.Run("corrupt restrictions", func(t *testing.T) {
		s, mock := newMockStore(t)
		mock.ExpectQuery(`FROM processes`).
			WillReturnRows(sqlmock.NewRows(processColumns).AddRow("A", 1, "enabled", []byte(`{`), now, now))

		_, err := s.FindProcess(context.Background(), "A", 1)
		require.Error(t, err)
		assert.NotErrorIs(t, err, sentinel.ErrNotFound)
	})
}

func TestPostgresUpdateProcess(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	p := models.NewProcess("A", 1, nil, now)
	p.ApplyDisable(now.Add(time.Minute))

	t.Run("updates status", func(t *testing.T) {
		s, mock := newMockStore(t)
		mock.ExpectExec(`UPDATE processes`).
			WithArgs("A", int64(1), "disabled", now.Add(time.Minute)).
			WillReturnResult(sqlmock.NewResult(0, 1))

		require.NoError(t, s.UpdateProcess(context.Background(), p))
	})

	t.Run("missing slot", func(t *testing.T) {
		s, mock := newMockStore(t)
		mock.ExpectExec(`UPDATE processes`).
			WillReturnResult(sqlmock.NewResult(0, 0))

		assert.ErrorIs(t, s.UpdateProcess(context.Background(), p), sentinel.ErrNotFound)
	})
}

func TestPostgresListProcesses(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	s, mock := newMockStore(t)
	mock.ExpectQuery(`FROM processes .* ORDER BY version ASC`).
		WithArgs("A").
		WillReturnRows(sqlmock.NewRows(processColumns).
			AddRow("A", 1, "enabled", []byte(`[]`), now, now).
			AddRow("A", 3, "enabled", []byte(`null`), now, now))

	ps, err := s.ListProcesses(context.Background(), "A")
	require.NoError(t, err)
	require.Len(t, ps, 2)
	assert.EqualValues(t, 1, ps[0].Version)
	assert.EqualValues(t, 3, ps[1].Version)
}
