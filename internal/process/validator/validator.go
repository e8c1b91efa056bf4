// Package validator is the read-only entry point the host calls for every
// candidate transition. It never returns an error: a missing process, a
// disabled process, a failing restriction and an unreadable store all deny.
package validator

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"processguard/internal/process/metrics"
	"processguard/internal/process/models"
	"processguard/internal/restriction"
	"processguard/pkg/domain"
	"processguard/pkg/platform/sentinel"
	"processguard/pkg/requestcontext"
)

// defaultBatchConcurrency bounds the goroutines used by ValidateBatch.
const defaultBatchConcurrency = 8

// ProcessReader is the slice of the registry store the validator needs.
type ProcessReader interface {
	FindProcess(ctx context.Context, id domain.ProcessIdentifier, version domain.ProcessVersion) (*models.Process, error)
}

// Request is one transition to validate against a pinned process version.
type Request struct {
	Process domain.ProcessFullyQualifiedID
	domain.Transition
}

// Validator answers whether a transition satisfies a registered process.
type Validator struct {
	reader      ProcessReader
	logger      *slog.Logger
	metrics     *metrics.Metrics
	tracer      trace.Tracer
	concurrency int
}

type Option func(*Validator)

func WithLogger(logger *slog.Logger) Option {
	return func(v *Validator) {
		v.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(v *Validator) {
		v.metrics = m
	}
}

// WithBatchConcurrency bounds the number of transitions evaluated at once by ValidateBatch.
func WithBatchConcurrency(n int) Option {
	return func(v *Validator) {
		if n > 0 {
			v.concurrency = n
		}
	}
}

// New constructs a Validator reading processes from reader.
func New(reader ProcessReader, opts ...Option) *Validator {
	v := &Validator{
		reader:      reader,
		tracer:      otel.Tracer("processguard/process/validator"),
		concurrency: defaultBatchConcurrency,
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Validate reports whether the transition (sender, inputs, outputs) satisfies
// every restriction of the process at fq. It never mutates state.
func (v *Validator) Validate(ctx context.Context, fq domain.ProcessFullyQualifiedID, sender domain.AccountID, inputs, outputs []domain.ProcessIO) bool {
	return v.validate(ctx, Request{
		Process:    fq,
		Transition: domain.Transition{Sender: sender, Inputs: inputs, Outputs: outputs},
	})
}

// ValidateBatch validates several transitions concurrently. Results are in
// request order; a cancelled context denies whatever has not been evaluated.
func (v *Validator) ValidateBatch(ctx context.Context, reqs []Request) []bool {
	results := make([]bool, len(reqs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(v.concurrency)
	for i := range reqs {
		g.Go(func() error {
			if gctx.Err() != nil {
				return nil
			}
			results[i] = v.validate(gctx, reqs[i])
			return nil
		})
	}
	_ = g.Wait()
	return results
}

func (v *Validator) validate(ctx context.Context, req Request) bool {
	start := time.Now()
	ctx, span := v.tracer.Start(ctx, "process.validate", trace.WithAttributes(
		attribute.String("process.id", string(req.Process.ID)),
		attribute.Int64("process.version", int64(req.Process.Version)),
		attribute.Int("transition.inputs", len(req.Inputs)),
		attribute.Int("transition.outputs", len(req.Outputs)),
	))
	defer span.End()
	defer v.metrics.ObserveValidate(start)

	outcome := v.decide(ctx, req)
	v.metrics.IncrementOutcome(outcome)
	span.SetAttributes(attribute.String("validation.outcome", outcome))
	return outcome == metrics.OutcomeAdmitted
}

func (v *Validator) decide(ctx context.Context, req Request) string {
	p, err := v.reader.FindProcess(ctx, req.Process.ID, req.Process.Version)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return metrics.OutcomeNotFound
		}
		if v.logger != nil {
			v.logger.WarnContext(ctx, "process lookup failed during validation",
				"request_id", requestcontext.RequestID(ctx),
				"process_id", req.Process.ID,
				"version", req.Process.Version,
				"error", err,
			)
		}
		return metrics.OutcomeStoreError
	}
	if !p.IsEnabled() {
		return metrics.OutcomeDisabled
	}
	if !restriction.EvaluateAll(p.Restrictions, req.Transition) {
		return metrics.OutcomeRestrictionFailed
	}
	return metrics.OutcomeAdmitted
}
