// Package registry owns the per-identifier version history of processes.
//
// Versions are append-only: each Create issues the next version for the
// identifier and writes a fresh slot; no call ever overwrites a slot. The
// only in-place mutation is the Enabled -> Disabled status change.
package registry

import (
	"context"
	"errors"
	"log/slog"
	"strconv"

	"processguard/internal/process/models"
	"processguard/internal/restriction"
	"processguard/pkg/domain"
	dErrors "processguard/pkg/domain-errors"
	"processguard/pkg/platform/sentinel"
	"processguard/pkg/requestcontext"
)

// DefaultMaxRestrictions bounds the top-level restriction list of a process.
const DefaultMaxRestrictions = 100

// Store holds the two registry tables: the version counter per identifier and
// the process slot per (identifier, version).
type Store interface {
	// CurrentVersion returns the last issued version, or 0 if none was issued.
	CurrentVersion(ctx context.Context, id domain.ProcessIdentifier) (domain.ProcessVersion, error)
	// BumpVersion atomically increments the counter and returns the new value.
	BumpVersion(ctx context.Context, id domain.ProcessIdentifier) (domain.ProcessVersion, error)
	// FindProcess returns sentinel.ErrNotFound for an empty slot.
	FindProcess(ctx context.Context, id domain.ProcessIdentifier, version domain.ProcessVersion) (*models.Process, error)
	// InsertProcess returns sentinel.ErrConflict if the slot is already populated.
	InsertProcess(ctx context.Context, p *models.Process) error
	// UpdateProcess returns sentinel.ErrNotFound for an empty slot.
	UpdateProcess(ctx context.Context, p *models.Process) error
	// ListProcesses returns every version written for id in ascending order.
	ListProcesses(ctx context.Context, id domain.ProcessIdentifier) ([]*models.Process, error)
}

// Registry applies the creation and disable rules on top of a Store.
// It holds no locks: the host serializes lifecycle calls per identifier.
type Registry struct {
	store           Store
	logger          *slog.Logger
	maxDepth        int
	maxRestrictions int
	maxIDLength     int
}

type Option func(*Registry)

// WithMaxDepth overrides restriction.MaxDepth.
func WithMaxDepth(depth int) Option {
	return func(r *Registry) {
		if depth > 0 {
			r.maxDepth = depth
		}
	}
}

// WithMaxRestrictions overrides DefaultMaxRestrictions.
func WithMaxRestrictions(n int) Option {
	return func(r *Registry) {
		if n > 0 {
			r.maxRestrictions = n
		}
	}
}

// WithIdentifierLength overrides domain.DefaultIdentifierLength.
func WithIdentifierLength(n int) Option {
	return func(r *Registry) {
		if n > 0 {
			r.maxIDLength = n
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(r *Registry) {
		r.logger = logger
	}
}

// New constructs a Registry over store.
func New(store Store, opts ...Option) *Registry {
	r := &Registry{
		store:           store,
		maxDepth:        restriction.MaxDepth,
		maxRestrictions: DefaultMaxRestrictions,
		maxIDLength:     domain.DefaultIdentifierLength,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// MaxDepth is the deepest restriction tree this registry accepts.
func (r *Registry) MaxDepth() int {
	return r.maxDepth
}

// Create registers restrictions as the next version of id.
//
// Every check runs before the counter moves, so a rejected policy leaves no
// trace. Once the counter is bumped it stays bumped: if the new slot turns out
// to be populated the call fails with CodeAlreadyExists and the issued
// version is burned.
func (r *Registry) Create(ctx context.Context, id domain.ProcessIdentifier, restrictions []restriction.Restriction) (domain.ProcessVersion, bool, error) {
	if err := r.checkCreate(id, restrictions); err != nil {
		return 0, false, err
	}

	version, err := r.bump(ctx, id)
	if err != nil {
		return 0, false, err
	}
	wasFirst := version == 1

	p := models.NewProcess(id, version, restrictions, requestcontext.Now(ctx))
	if err := r.store.InsertProcess(ctx, p); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			r.warn(ctx, "process slot already populated", id, version)
			return 0, false, dErrors.New(dErrors.CodeAlreadyExists, "process "+string(id)+" version "+version.String()+" already exists")
		}
		return 0, false, dErrors.Wrap(err, dErrors.CodeInternal, "failed to store process")
	}
	return version, wasFirst, nil
}

func (r *Registry) checkCreate(id domain.ProcessIdentifier, restrictions []restriction.Restriction) error {
	if _, err := domain.ParseProcessIdentifier(string(id), r.maxIDLength); err != nil {
		return dErrors.Wrap(err, dErrors.CodeValidation, "invalid process identifier")
	}
	if len(restrictions) > r.maxRestrictions {
		return dErrors.New(dErrors.CodeTooManyRestrictions,
			"process may declare at most "+strconv.Itoa(r.maxRestrictions)+" restrictions")
	}
	if err := restriction.Validate(restrictions, r.maxDepth); err != nil {
		if errors.Is(err, restriction.ErrRestrictionsTooDeep) {
			return dErrors.Wrap(err, dErrors.CodeRestrictionsTooDeep, "restrictions too deep")
		}
		return dErrors.Wrap(err, dErrors.CodeMalformedRestriction, "malformed restriction")
	}
	return nil
}

// Disable marks the process at (id, version) as disabled. Disabling an
// already disabled process succeeds without a write.
func (r *Registry) Disable(ctx context.Context, id domain.ProcessIdentifier, version domain.ProcessVersion) error {
	p, err := r.store.FindProcess(ctx, id, version)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.New(dErrors.CodeNotFound, "process "+string(id)+" version "+version.String()+" not found")
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load process")
	}
	if err := p.CanDisable(); err != nil {
		return err
	}
	if !p.ApplyDisable(requestcontext.Now(ctx)) {
		return nil
	}
	if err := r.store.UpdateProcess(ctx, p); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.New(dErrors.CodeNotFound, "process "+string(id)+" version "+version.String()+" not found")
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to disable process")
	}
	return nil
}

// BumpVersion advances the counter for id without writing a process. Tooling
// uses it to pre-advance numbering.
func (r *Registry) BumpVersion(ctx context.Context, id domain.ProcessIdentifier) (domain.ProcessVersion, error) {
	return r.bump(ctx, id)
}

func (r *Registry) bump(ctx context.Context, id domain.ProcessIdentifier) (domain.ProcessVersion, error) {
	version, err := r.store.BumpVersion(ctx, id)
	if err != nil {
		if errors.Is(err, sentinel.ErrInvalidState) {
			return 0, dErrors.Wrap(err, dErrors.CodeInvariantViolation, "process "+string(id)+" has no versions left")
		}
		return 0, dErrors.Wrap(err, dErrors.CodeInternal, "failed to issue process version")
	}
	return version, nil
}

// CurrentVersion returns the last issued version for id, 0 if none.
func (r *Registry) CurrentVersion(ctx context.Context, id domain.ProcessIdentifier) (domain.ProcessVersion, error) {
	version, err := r.store.CurrentVersion(ctx, id)
	if err != nil {
		return 0, dErrors.Wrap(err, dErrors.CodeInternal, "failed to read process version")
	}
	return version, nil
}

// Get returns the process at (id, version).
func (r *Registry) Get(ctx context.Context, id domain.ProcessIdentifier, version domain.ProcessVersion) (*models.Process, error) {
	p, err := r.store.FindProcess(ctx, id, version)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "process "+string(id)+" version "+version.String()+" not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load process")
	}
	return p, nil
}

// List returns every version written for id.
func (r *Registry) List(ctx context.Context, id domain.ProcessIdentifier) ([]*models.Process, error) {
	ps, err := r.store.ListProcesses(ctx, id)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list processes")
	}
	return ps, nil
}

func (r *Registry) warn(ctx context.Context, msg string, id domain.ProcessIdentifier, version domain.ProcessVersion) {
	if r.logger == nil {
		return
	}
	r.logger.WarnContext(ctx, msg,
		"request_id", requestcontext.RequestID(ctx),
		"process_id", id,
		"version", version,
	)
}
