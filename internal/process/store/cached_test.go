package store

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"processguard/internal/process/metrics"
	"processguard/internal/process/models"
	"processguard/internal/restriction"
	"processguard/pkg/platform/sentinel"
)

// unreachableRedis returns a client whose every command fails fast.
func unreachableRedis(t *testing.T) *redis.Client {
	t.Helper()
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 50 * time.Millisecond,
		MaxRetries:  -1,
	})
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func TestCachedStoreFallsThroughWhenRedisIsDown(t *testing.T) {
	ctx := context.Background()
	backing := NewInMemory()
	m := metrics.New(prometheus.NewRegistry())
	s := NewCached(backing, unreachableRedis(t), WithCacheMetrics(m))

	p := models.NewProcess("A", 1, []restriction.Restriction{restriction.None()}, time.Now())
	require.NoError(t, s.InsertProcess(ctx, p))

	got, err := s.FindProcess(ctx, "A", 1)
	require.NoError(t, err)
	assert.Equal(t, p.Restrictions, got.Restrictions)

	_, err = s.FindProcess(ctx, "A", 2)
	assert.ErrorIs(t, err, sentinel.ErrNotFound)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.CacheLookups.WithLabelValues("error")))
}

func TestCachedStorePassesCounterCallsThrough(t *testing.T) {
	ctx := context.Background()
	backing := NewInMemory()
	s := NewCached(backing, unreachableRedis(t))

	v, err := s.BumpVersion(ctx, "A")
	require.NoError(t, err)
	assert.EqualValues(t, 1, v)

	cur, err := s.CurrentVersion(ctx, "A")
	require.NoError(t, err)
	assert.EqualValues(t, 1, cur)
}

func TestProcessKey(t *testing.T) {
	assert.Equal(t, "pg:process:A:7", processKey("A", 7))
}
