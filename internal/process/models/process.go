package models

import (
	"time"

	"processguard/internal/restriction"
	"processguard/pkg/domain"
	dErrors "processguard/pkg/domain-errors"
)

// Status is the lifecycle state of a process version.
type Status string

const (
	StatusEnabled  Status = "enabled"
	StatusDisabled Status = "disabled"
)

// IsValid reports whether the status is one of the known values.
func (s Status) IsValid() bool {
	return s == StatusEnabled || s == StatusDisabled
}

// rejectRepeatDisable controls whether disabling an already disabled process
// is an error. Repeat disables currently succeed without a write.
const rejectRepeatDisable = false

// Process is a registered policy at a fixed (identifier, version) slot.
//
// Invariants:
//   - A slot is written once; only Status may change afterwards
//   - Status moves Enabled -> Disabled only; there is no re-enable
//   - Restrictions were depth-checked before the slot was written
type Process struct {
	ID           domain.ProcessIdentifier  `json:"id"`
	Version      domain.ProcessVersion     `json:"version"`
	Status       Status                    `json:"status"`
	Restrictions []restriction.Restriction `json:"restrictions"`
	CreatedAt    time.Time                 `json:"created_at"`
	UpdatedAt    time.Time                 `json:"updated_at"`
}

// NewProcess builds an enabled process for a freshly issued version.
func NewProcess(id domain.ProcessIdentifier, version domain.ProcessVersion, restrictions []restriction.Restriction, now time.Time) *Process {
	return &Process{
		ID:           id,
		Version:      version,
		Status:       StatusEnabled,
		Restrictions: restriction.CloneAll(restrictions),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// FullyQualifiedID returns the slot this process occupies.
func (p *Process) FullyQualifiedID() domain.ProcessFullyQualifiedID {
	return domain.ProcessFullyQualifiedID{ID: p.ID, Version: p.Version}
}

func (p *Process) IsEnabled() bool {
	return p.Status == StatusEnabled
}

// CanDisable checks whether the process may transition to disabled.
// Use with ApplyDisable so the policy check stays in one place.
func (p *Process) CanDisable() error {
	if p.Status == StatusDisabled && rejectRepeatDisable {
		return dErrors.New(dErrors.CodeInvariantViolation, "process is already disabled")
	}
	return nil
}

// ApplyDisable transitions the process to disabled and reports whether the
// status actually changed.
func (p *Process) ApplyDisable(now time.Time) bool {
	if p.Status == StatusDisabled {
		return false
	}
	p.Status = StatusDisabled
	p.UpdatedAt = now
	return true
}

// Clone returns a deep copy of the process.
func (p *Process) Clone() *Process {
	if p == nil {
		return nil
	}
	c := *p
	c.Restrictions = restriction.CloneAll(p.Restrictions)
	return &c
}
