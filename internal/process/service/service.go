// Package service exposes the authorized lifecycle operations on the process
// registry and turns their outcomes into notifications.
package service

import (
	"context"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"processguard/internal/process/events"
	"processguard/internal/process/metrics"
	"processguard/internal/process/models"
	"processguard/internal/process/registry"
	"processguard/internal/restriction"
	"processguard/pkg/domain"
	dErrors "processguard/pkg/domain-errors"
	"processguard/pkg/requestcontext"
)

// CreateResult describes the version a successful create wrote.
type CreateResult struct {
	ID      domain.ProcessIdentifier `json:"id"`
	Version domain.ProcessVersion    `json:"version"`
	IsNew   bool                     `json:"is_new"`
}

// Service orchestrates process lifecycle operations. Callers are expected to
// be authorized before any method is invoked.
type Service struct {
	registry *registry.Registry
	sink     events.Sink
	tx       StoreTx
	logger   *slog.Logger
	metrics  *metrics.Metrics
	tracer   trace.Tracer
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// WithEventSink sets where lifecycle notifications go. Without one they are dropped.
func WithEventSink(sink events.Sink) Option {
	return func(s *Service) {
		s.sink = sink
	}
}

// WithStoreTx sets the transactional boundary shared by the slot write and its notification.
func WithStoreTx(tx StoreTx) Option {
	return func(s *Service) {
		s.tx = tx
	}
}

// New constructs a Service over reg.
func New(reg *registry.Registry, opts ...Option) *Service {
	s := &Service{
		registry: reg,
		tracer:   otel.Tracer("processguard/process/service"),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.tx == nil {
		s.tx = newLockedTx()
	}
	return s
}

// CreateProcess registers restrictions as the next version of id and emits ProcessCreated.
func (s *Service) CreateProcess(ctx context.Context, id domain.ProcessIdentifier, restrictions []restriction.Restriction) (*CreateResult, error) {
	ctx, span := s.tracer.Start(ctx, "process.create", trace.WithAttributes(
		attribute.String("process.id", string(id)),
		attribute.Int("process.restrictions", len(restrictions)),
	))
	defer span.End()

	var result *CreateResult
	err := s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		version, wasFirst, err := s.registry.Create(txCtx, id, restrictions)
		if err != nil {
			return err
		}
		event := events.ProcessCreated(id, version, restrictions, wasFirst, requestcontext.Now(txCtx))
		if err := s.emit(txCtx, event); err != nil {
			return err
		}
		result = &CreateResult{ID: id, Version: version, IsNew: wasFirst}
		return nil
	})
	if err != nil {
		s.fail(ctx, span, "create", id, 0, err)
		return nil, err
	}

	span.SetAttributes(attribute.Int64("process.version", int64(result.Version)))
	s.metrics.IncrementCreated(result.IsNew)
	s.logInfo(ctx, "process created", id, result.Version, "is_new", result.IsNew)
	return result, nil
}

// DisableProcess disables (id, version) and emits ProcessDisabled.
func (s *Service) DisableProcess(ctx context.Context, id domain.ProcessIdentifier, version domain.ProcessVersion) error {
	ctx, span := s.tracer.Start(ctx, "process.disable", trace.WithAttributes(
		attribute.String("process.id", string(id)),
		attribute.Int64("process.version", int64(version)),
	))
	defer span.End()

	err := s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.registry.Disable(txCtx, id, version); err != nil {
			return err
		}
		return s.emit(txCtx, events.ProcessDisabled(id, version, requestcontext.Now(txCtx)))
	})
	if err != nil {
		s.fail(ctx, span, "disable", id, version, err)
		return err
	}

	s.metrics.IncrementDisabled()
	s.logInfo(ctx, "process disabled", id, version)
	return nil
}

// BumpVersion advances the version counter of id without writing a process.
func (s *Service) BumpVersion(ctx context.Context, id domain.ProcessIdentifier) (domain.ProcessVersion, error) {
	version, err := s.registry.BumpVersion(ctx, id)
	if err != nil {
		s.metrics.IncrementLifecycleFailure("bump_version", string(dErrors.CodeOf(err)))
		return 0, err
	}
	s.logInfo(ctx, "process version bumped", id, version)
	return version, nil
}

func (s *Service) GetProcess(ctx context.Context, id domain.ProcessIdentifier, version domain.ProcessVersion) (*models.Process, error) {
	return s.registry.Get(ctx, id, version)
}

// CurrentVersion returns the last issued version of id, 0 if none.
func (s *Service) CurrentVersion(ctx context.Context, id domain.ProcessIdentifier) (domain.ProcessVersion, error) {
	return s.registry.CurrentVersion(ctx, id)
}

func (s *Service) ListVersions(ctx context.Context, id domain.ProcessIdentifier) ([]*models.Process, error) {
	return s.registry.List(ctx, id)
}

func (s *Service) emit(ctx context.Context, event events.Event) error {
	if s.sink == nil {
		return nil
	}
	event.ActorID = requestcontext.ActorID(ctx)
	event.RequestID = requestcontext.RequestID(ctx)
	if err := s.sink.Emit(ctx, event); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to emit "+string(event.Type)+" event")
	}
	return nil
}

func (s *Service) fail(ctx context.Context, span trace.Span, op string, id domain.ProcessIdentifier, version domain.ProcessVersion, err error) {
	code := dErrors.CodeOf(err)
	span.RecordError(err)
	span.SetStatus(codes.Error, string(code))
	s.metrics.IncrementLifecycleFailure(op, string(code))
	if s.logger == nil {
		return
	}
	level := slog.LevelWarn
	if code == dErrors.CodeInternal {
		level = slog.LevelError
	}
	s.logger.Log(ctx, level, "process "+op+" failed",
		"request_id", requestcontext.RequestID(ctx),
		"process_id", id,
		"version", version,
		"code", code,
		"error", err,
	)
}

func (s *Service) logInfo(ctx context.Context, msg string, id domain.ProcessIdentifier, version domain.ProcessVersion, args ...any) {
	if s.logger == nil {
		return
	}
	attrs := append([]any{
		"request_id", requestcontext.RequestID(ctx),
		"actor_id", requestcontext.ActorID(ctx),
		"process_id", id,
		"version", version,
	}, args...)
	s.logger.InfoContext(ctx, msg, attrs...)
}
