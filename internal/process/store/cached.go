package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"processguard/internal/process/metrics"
	"processguard/internal/process/models"
	"processguard/pkg/domain"
	txcontext "processguard/pkg/platform/tx"
)

const (
	processKeyPrefix = "pg:process:"
	defaultCacheTTL  = time.Minute
)

// Backing is the registry store a CachedStore fronts.
type Backing interface {
	CurrentVersion(ctx context.Context, id domain.ProcessIdentifier) (domain.ProcessVersion, error)
	BumpVersion(ctx context.Context, id domain.ProcessIdentifier) (domain.ProcessVersion, error)
	FindProcess(ctx context.Context, id domain.ProcessIdentifier, version domain.ProcessVersion) (*models.Process, error)
	InsertProcess(ctx context.Context, p *models.Process) error
	UpdateProcess(ctx context.Context, p *models.Process) error
	ListProcesses(ctx context.Context, id domain.ProcessIdentifier) ([]*models.Process, error)
}

// CachedStore is a read-through Redis cache over a Backing store for the
// FindProcess lookups on the validation path. Only found slots are cached.
// Redis read failures fall through to the backing store.
//
// Writes refresh the cached slot only after the surrounding transaction
// commits, and readers fill the cache with SET NX, so a reader that loaded
// the pre-commit row can never overwrite the committed one. Reads inside a
// transaction bypass the cache entirely.
type CachedStore struct {
	Backing
	client  *redis.Client
	ttl     time.Duration
	logger  *slog.Logger
	metrics *metrics.Metrics
}

type CacheOption func(*CachedStore)

func WithCacheTTL(ttl time.Duration) CacheOption {
	return func(s *CachedStore) {
		if ttl > 0 {
			s.ttl = ttl
		}
	}
}

func WithCacheLogger(logger *slog.Logger) CacheOption {
	return func(s *CachedStore) {
		s.logger = logger
	}
}

func WithCacheMetrics(m *metrics.Metrics) CacheOption {
	return func(s *CachedStore) {
		s.metrics = m
	}
}

// NewCached wraps backing with a Redis read-through cache.
func NewCached(backing Backing, client *redis.Client, opts ...CacheOption) *CachedStore {
	s := &CachedStore{Backing: backing, client: client, ttl: defaultCacheTTL}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func processKey(id domain.ProcessIdentifier, version domain.ProcessVersion) string {
	return processKeyPrefix + string(id) + ":" + version.String()
}

func (s *CachedStore) FindProcess(ctx context.Context, id domain.ProcessIdentifier, version domain.ProcessVersion) (*models.Process, error) {
	if _, inTx := txcontext.From(ctx); inTx {
		return s.Backing.FindProcess(ctx, id, version)
	}

	key := processKey(id, version)
	raw, err := s.client.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var p models.Process
		if jerr := json.Unmarshal(raw, &p); jerr == nil {
			s.metrics.IncrementCacheLookup("hit")
			return &p, nil
		}
		s.metrics.IncrementCacheLookup("error")
		s.warn(ctx, "discarding undecodable cached process", key, nil)
	case errors.Is(err, redis.Nil):
		s.metrics.IncrementCacheLookup("miss")
	default:
		s.metrics.IncrementCacheLookup("error")
		s.warn(ctx, "process cache read failed", key, err)
	}

	p, err := s.Backing.FindProcess(ctx, id, version)
	if err != nil {
		return nil, err
	}
	s.populate(ctx, key, p)
	return p, nil
}

// populate never replaces an existing entry; only committed writes do.
func (s *CachedStore) populate(ctx context.Context, key string, p *models.Process) {
	b, err := json.Marshal(p)
	if err != nil {
		return
	}
	if err := s.client.SetNX(ctx, key, b, s.ttl).Err(); err != nil {
		s.warn(ctx, "process cache write failed", key, err)
	}
}

// InsertProcess writes through once committed. A fresh slot was never cached,
// so a failed refresh is only logged.
func (s *CachedStore) InsertProcess(ctx context.Context, p *models.Process) error {
	if err := s.Backing.InsertProcess(ctx, p); err != nil {
		return err
	}
	refresh := s.refreshFunc(p)
	return s.afterCommit(ctx, func(ctx context.Context) error {
		if err := refresh(ctx); err != nil {
			s.warn(ctx, "process cache refresh failed", processKey(p.ID, p.Version), err)
		}
		return nil
	})
}

// UpdateProcess replaces the cached slot once committed. If Redis can be
// neither written nor cleared the call fails, since the old status could
// otherwise be served until the entry expires.
func (s *CachedStore) UpdateProcess(ctx context.Context, p *models.Process) error {
	if err := s.Backing.UpdateProcess(ctx, p); err != nil {
		return err
	}
	return s.afterCommit(ctx, s.refreshFunc(p))
}

// afterCommit defers fn to the commit of the transaction in ctx, or runs it
// now when there is none.
func (s *CachedStore) afterCommit(ctx context.Context, fn func(context.Context) error) error {
	if txcontext.AfterCommit(ctx, fn) {
		return nil
	}
	return fn(ctx)
}

// refreshFunc snapshots p so later mutation by the caller does not leak in.
func (s *CachedStore) refreshFunc(p *models.Process) func(context.Context) error {
	key := processKey(p.ID, p.Version)
	b, merr := json.Marshal(p)
	return func(ctx context.Context) error {
		if merr == nil {
			err := s.client.Set(ctx, key, b, s.ttl).Err()
			if err == nil {
				return nil
			}
			s.warn(ctx, "process cache write failed", key, err)
		}
		if err := s.client.Del(ctx, key).Err(); err != nil {
			s.warn(ctx, "process cache invalidation failed", key, err)
			return fmt.Errorf("evict cached process %s: %w", key, err)
		}
		return nil
	}
}

func (s *CachedStore) warn(ctx context.Context, msg, key string, err error) {
	if s.logger == nil {
		return
	}
	args := []any{"key", key}
	if err != nil {
		args = append(args, "error", err)
	}
	s.logger.WarnContext(ctx, msg, args...)
}
