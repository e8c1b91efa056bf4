package main

import (
	"context"
	"database/sql"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	jwttoken "processguard/internal/jwt_token"
	"processguard/internal/outbox"
	"processguard/internal/platform/config"
	"processguard/internal/platform/httpserver"
	"processguard/internal/platform/logger"
	platformmetrics "processguard/internal/platform/metrics"
	"processguard/internal/platform/postgres"
	platformredis "processguard/internal/platform/redis"
	"processguard/internal/platform/tracing"
	"processguard/internal/process/handler"
	processmetrics "processguard/internal/process/metrics"
	"processguard/internal/process/registry"
	"processguard/internal/process/service"
	"processguard/internal/process/store"
	"processguard/internal/process/validator"
	httptransport "processguard/internal/transport/http"
	"processguard/pkg/platform/circuit"
)

// main wires dependencies and runs the HTTP server and the outbox relay until
// SIGINT or SIGTERM.
func main() {
	cfg := config.FromEnv()
	log := logger.New(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("processguard exited with error", "error", err)
		os.Exit(1)
	}
}

type backend struct {
	store  registry.Store
	tx     service.StoreTx
	outbox *outbox.PostgresStore
	health []httptransport.HealthCheck
	close  func()
}

func run(ctx context.Context, cfg config.Server, log *slog.Logger) error {
	tp, err := tracing.Setup(ctx, cfg.Tracing)
	if err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tp.Shutdown(shutdownCtx); err != nil {
			log.Warn("tracer shutdown", "error", err)
		}
	}()
	log.Info("tracing configured", "exporter", cfg.Tracing.Exporter, "enabled", tp.Enabled())

	platform := platformmetrics.New()
	processMetrics := processmetrics.New(platform.Registry)

	be, err := buildBackend(ctx, cfg, log, processMetrics)
	if err != nil {
		return err
	}
	defer be.close()

	reg := registry.New(be.store,
		registry.WithMaxDepth(cfg.Process.MaxDepth),
		registry.WithMaxRestrictions(cfg.Process.MaxRestrictions),
		registry.WithIdentifierLength(cfg.Process.IdentifierLength),
		registry.WithLogger(log),
	)
	svcOpts := []service.Option{
		service.WithLogger(log),
		service.WithMetrics(processMetrics),
	}
	if be.tx != nil {
		svcOpts = append(svcOpts, service.WithStoreTx(be.tx))
	}
	if be.outbox != nil {
		svcOpts = append(svcOpts, service.WithEventSink(be.outbox))
	}
	svc := service.New(reg, svcOpts...)
	val := validator.New(be.store,
		validator.WithLogger(log),
		validator.WithMetrics(processMetrics),
		validator.WithBatchConcurrency(cfg.Process.BatchConcurrency),
	)

	health := be.health
	var producer *outbox.KafkaProducer
	if be.outbox != nil && len(cfg.Kafka.Brokers) > 0 {
		producer, err = outbox.NewKafkaProducer(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		if err != nil {
			return err
		}
		if err := producer.EnsureTopic(ctx, 3, 1); err != nil {
			log.Warn("kafka topic check failed", "topic", cfg.Kafka.Topic, "error", err)
		}
		health = append(health, httptransport.HealthCheck{Name: "kafka", Check: producer.Ping})
	}

	tokens := jwttoken.NewJWTService(cfg.JWTSigningKey, cfg.JWTIssuer, cfg.JWTAudience)
	router := httptransport.NewRouter(httptransport.Dependencies{
		Processes: handler.New(svc, val, log),
		Tokens:    jwttoken.NewJWTServiceAdapter(tokens),
		Metrics:   platform,
		Health:    health,
		Logger:    log,
	})
	srv := httpserver.New(cfg.Addr, router)

	g, gctx := errgroup.WithContext(ctx)
	if producer != nil {
		relay := outbox.NewRelay(be.outbox, producer,
			outbox.WithPollInterval(cfg.Kafka.OutboxPollInterval),
			outbox.WithBatchSize(cfg.Kafka.OutboxBatchSize),
			outbox.WithLogger(log),
			outbox.WithRegisterer(platform.Registry),
			outbox.WithBreaker(circuit.New("outbox-broker")),
		)
		g.Go(func() error {
			return relay.Run(gctx)
		})
	} else {
		log.Info("outbox relay disabled", "postgres", be.outbox != nil, "kafka_brokers", len(cfg.Kafka.Brokers))
	}
	g.Go(func() error {
		return httpserver.Run(gctx, srv, log)
	})

	return g.Wait()
}

// buildBackend selects the Postgres store (with optional Redis cache and
// transactional outbox) or the in-memory store when DATABASE_URL is unset.
func buildBackend(ctx context.Context, cfg config.Server, log *slog.Logger, m *processmetrics.Metrics) (*backend, error) {
	db, err := postgres.Open(ctx, cfg.Postgres)
	if err != nil {
		return nil, err
	}
	if db == nil {
		log.Info("using in-memory process store; lifecycle events are not persisted")
		return &backend{store: store.NewInMemory(), close: func() {}}, nil
	}
	if err := postgres.Migrate(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}

	be := &backend{
		tx:     postgres.NewTx(db),
		outbox: outbox.NewPostgresStore(db),
		health: []httptransport.HealthCheck{{Name: "postgres", Check: db.PingContext}},
	}
	closers := []func(){func() { closeDB(db, log) }}

	pg := store.NewPostgres(db)
	be.store = pg

	rc, err := platformredis.New(ctx, cfg.Redis)
	if err != nil {
		closeDB(db, log)
		return nil, err
	}
	if rc != nil {
		be.store = store.NewCached(pg, rc.Client,
			store.WithCacheTTL(cfg.Redis.CacheTTL),
			store.WithCacheLogger(log),
			store.WithCacheMetrics(m),
		)
		be.health = append(be.health, httptransport.HealthCheck{Name: "redis", Check: rc.Health})
		closers = append(closers, func() { _ = rc.Close() })
		log.Info("process cache enabled", "ttl", cfg.Redis.CacheTTL)
	}

	be.close = func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}
	log.Info("using postgres process store")
	return be, nil
}

func closeDB(db *sql.DB, log *slog.Logger) {
	if err := db.Close(); err != nil {
		log.Warn("close postgres", "error", err)
	}
}
