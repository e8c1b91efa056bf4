package outbox

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"processguard/pkg/platform/circuit"
)

const (
	defaultPollInterval = time.Second
	defaultBatchSize    = 100
	publishTimeout      = 10 * time.Second

	// openBackoffFactor stretches the poll interval while the broker circuit is open.
	openBackoffFactor = 10
)

// Source is the outbox side the relay drains.
type Source interface {
	FetchUnpublished(ctx context.Context, limit int) ([]Entry, error)
	MarkPublished(ctx context.Context, id uuid.UUID, at time.Time) error
}

// Producer publishes one keyed message.
type Producer interface {
	Publish(ctx context.Context, key, value []byte, eventType string) error
	Close() error
}

// Relay polls the outbox and publishes entries in creation order. A batch
// stops at the first publish failure so later versions of an identifier are
// never delivered ahead of earlier ones.
type Relay struct {
	source       Source
	producer     Producer
	pollInterval time.Duration
	batchSize    int
	logger       *slog.Logger
	breaker      *circuit.Breaker
	now          func() time.Time

	published prometheus.Counter
	failed    prometheus.Counter
}

type RelayOption func(*Relay)

func WithPollInterval(d time.Duration) RelayOption {
	return func(r *Relay) {
		if d > 0 {
			r.pollInterval = d
		}
	}
}

func WithBatchSize(n int) RelayOption {
	return func(r *Relay) {
		if n > 0 {
			r.batchSize = n
		}
	}
}

func WithLogger(logger *slog.Logger) RelayOption {
	return func(r *Relay) {
		r.logger = logger
	}
}

// WithBreaker slows polling while consecutive publishes keep failing.
func WithBreaker(b *circuit.Breaker) RelayOption {
	return func(r *Relay) {
		r.breaker = b
	}
}

// WithRegisterer registers the relay counters on reg.
func WithRegisterer(reg prometheus.Registerer) RelayOption {
	return func(r *Relay) {
		factory := promauto.With(reg)
		r.published = factory.NewCounter(prometheus.CounterOpts{
			Name: "processguard_outbox_published_total",
			Help: "Outbox entries published to the broker",
		})
		r.failed = factory.NewCounter(prometheus.CounterOpts{
			Name: "processguard_outbox_publish_failures_total",
			Help: "Outbox publish attempts that failed",
		})
	}
}

func NewRelay(source Source, producer Producer, opts ...RelayOption) *Relay {
	r := &Relay{
		source:       source,
		producer:     producer,
		pollInterval: defaultPollInterval,
		batchSize:    defaultBatchSize,
		logger:       slog.Default(),
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run polls until ctx is cancelled, then closes the producer.
func (r *Relay) Run(ctx context.Context) error {
	r.logger.InfoContext(ctx, "outbox relay starting",
		"poll_interval", r.pollInterval,
		"batch_size", r.batchSize,
	)
	defer func() {
		if err := r.producer.Close(); err != nil {
			r.logger.Warn("outbox producer close failed", "error", err)
		}
		r.logger.Info("outbox relay stopped")
	}()

	for {
		if _, err := r.Drain(ctx); err != nil && ctx.Err() == nil {
			r.logger.WarnContext(ctx, "outbox drain failed", "error", err)
		}
		timer := time.NewTimer(r.nextWait())
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil
		case <-timer.C:
		}
	}
}

func (r *Relay) nextWait() time.Duration {
	if r.breaker != nil && r.breaker.IsOpen() {
		return r.pollInterval * openBackoffFactor
	}
	return r.pollInterval
}

// Drain publishes one batch and returns how many entries were delivered.
func (r *Relay) Drain(ctx context.Context) (int, error) {
	entries, err := r.source.FetchUnpublished(ctx, r.batchSize)
	if err != nil {
		return 0, err
	}

	delivered := 0
	for _, e := range entries {
		if ctx.Err() != nil {
			return delivered, ctx.Err()
		}
		pubCtx, cancel := context.WithTimeout(ctx, publishTimeout)
		err := r.producer.Publish(pubCtx, []byte(e.AggregateID), e.Payload, e.EventType)
		cancel()
		if err != nil {
			r.incFailed()
			r.recordFailure(ctx)
			r.logger.WarnContext(ctx, "outbox publish failed",
				"entry_id", e.ID,
				"process_id", e.AggregateID,
				"event_type", e.EventType,
				"error", err,
			)
			return delivered, err
		}
		if err := r.source.MarkPublished(ctx, e.ID, r.now()); err != nil {
			return delivered, err
		}
		r.incPublished()
		r.recordSuccess(ctx)
		delivered++
	}
	return delivered, nil
}

func (r *Relay) recordFailure(ctx context.Context) {
	if r.breaker == nil {
		return
	}
	if _, change := r.breaker.RecordFailure(); change.Opened {
		r.logger.WarnContext(ctx, "outbox broker circuit opened", "breaker", r.breaker.Name())
	}
}

func (r *Relay) recordSuccess(ctx context.Context) {
	if r.breaker == nil {
		return
	}
	if _, change := r.breaker.RecordSuccess(); change.Closed {
		r.logger.InfoContext(ctx, "outbox broker circuit closed", "breaker", r.breaker.Name())
	}
}

func (r *Relay) incPublished() {
	if r.published != nil {
		r.published.Inc()
	}
}

func (r *Relay) incFailed() {
	if r.failed != nil {
		r.failed.Inc()
	}
}
