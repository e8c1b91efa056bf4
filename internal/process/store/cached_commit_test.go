package store

import (
	"context"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/alicebob/miniredis/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"processguard/internal/platform/postgres"
	"processguard/internal/process/metrics"
	"processguard/internal/process/models"
	"processguard/internal/process/registry"
	"processguard/internal/process/validator"
	"processguard/internal/restriction"
	"processguard/pkg/domain"
	txcontext "processguard/pkg/platform/tx"
)

// commitVisibleBacking hides updates made inside a transaction until it
// commits, the way a second Postgres session would see them.
type commitVisibleBacking struct {
	*InMemory
	onStaged func()
}

func (b *commitVisibleBacking) UpdateProcess(ctx context.Context, p *models.Process) error {
	if _, err := b.InMemory.FindProcess(ctx, p.ID, p.Version); err != nil {
		return err
	}
	staged := p.Clone()
	if txcontext.AfterCommit(ctx, func(ctx context.Context) error {
		return b.InMemory.UpdateProcess(ctx, staged)
	}) {
		if b.onStaged != nil {
			b.onStaged()
		}
		return nil
	}
	return b.InMemory.UpdateProcess(ctx, staged)
}

func newMiniredis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func newCommitTx(t *testing.T) *postgres.Tx {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	mock.ExpectBegin()
	mock.ExpectCommit()
	return postgres.NewTx(db)
}

func TestCachedStoreDisableVisibleAfterCommitDespiteConcurrentReader(t *testing.T) {
	ctx := context.Background()
	_, client := newMiniredis(t)
	backing := &commitVisibleBacking{InMemory: NewInMemory()}
	cached := NewCached(backing, client, WithCacheTTL(time.Hour))
	reg := registry.New(cached)
	val := validator.New(cached)

	version, _, err := reg.Create(ctx, "A", []restriction.Restriction{restriction.None()})
	require.NoError(t, err)
	fq := domain.ProcessFullyQualifiedID{ID: "A", Version: version}

	var duringCommit bool
	backing.onStaged = func() {
		duringCommit = val.Validate(ctx, fq, "alice", nil, nil)
	}

	err = newCommitTx(t).RunInTx(ctx, func(txCtx context.Context) error {
		return reg.Disable(txCtx, "A", version)
	})
	require.NoError(t, err)

	assert.True(t, duringCommit, "uncommitted disable is not yet visible")
	assert.False(t, val.Validate(ctx, fq, "alice", nil, nil))

	p, err := cached.FindProcess(ctx, "A", version)
	require.NoError(t, err)
	assert.Equal(t, models.StatusDisabled, p.Status)
}

func TestCachedStoreReaderFillDoesNotOverwriteCommittedEntry(t *testing.T) {
	ctx := context.Background()
	_, client := newMiniredis(t)
	cached := NewCached(NewInMemory(), client)

	enabled := models.NewProcess("A", 1, nil, time.Now())
	disabled := enabled.Clone()
	disabled.ApplyDisable(time.Now())

	require.NoError(t, cached.refreshFunc(disabled)(ctx))
	cached.populate(ctx, processKey("A", 1), enabled)

	p, err := cached.FindProcess(ctx, "A", 1)
	require.NoError(t, err)
	assert.Equal(t, models.StatusDisabled, p.Status)
}

func TestCachedStoreReadsInsideTransactionBypassCache(t *testing.T) {
	ctx := context.Background()
	mr, client := newMiniredis(t)
	m := metrics.New(prometheus.NewRegistry())
	backing := NewInMemory()
	cached := NewCached(backing, client, WithCacheMetrics(m))
	require.NoError(t, backing.InsertProcess(ctx, models.NewProcess("A", 1, nil, time.Now())))

	err := newCommitTx(t).RunInTx(ctx, func(txCtx context.Context) error {
		_, err := cached.FindProcess(txCtx, "A", 1)
		return err
	})
	require.NoError(t, err)

	assert.False(t, mr.Exists(processKey("A", 1)))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.CacheLookups.WithLabelValues("miss")))
}

func TestCachedStoreUpdateFailsWhenEntryCannotBeEvicted(t *testing.T) {
	ctx := context.Background()
	backing := NewInMemory()
	p := models.NewProcess("A", 1, nil, time.Now())
	require.NoError(t, backing.InsertProcess(ctx, p))
	cached := NewCached(backing, unreachableRedis(t))

	p.ApplyDisable(time.Now())
	assert.Error(t, cached.UpdateProcess(ctx, p))
}
