// Package events defines the notifications emitted by process lifecycle
// operations and the sinks that receive them.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"processguard/internal/restriction"
	"processguard/pkg/domain"
)

// Type names a lifecycle notification.
type Type string

const (
	TypeProcessCreated  Type = "process_created"
	TypeProcessDisabled Type = "process_disabled"
)

// Event is one lifecycle notification. Restrictions and IsNewProcess are only
// set on process_created.
type Event struct {
	ID           uuid.UUID                 `json:"id"`
	Type         Type                      `json:"type"`
	ProcessID    domain.ProcessIdentifier  `json:"process_id"`
	Version      domain.ProcessVersion     `json:"version"`
	Restrictions []restriction.Restriction `json:"restrictions,omitempty"`
	IsNewProcess bool                      `json:"is_new_process,omitempty"`
	ActorID      string                    `json:"actor_id,omitempty"`
	RequestID    string                    `json:"request_id,omitempty"`
	Timestamp    time.Time                 `json:"timestamp"`
}

// Sink receives lifecycle notifications.
type Sink interface {
	Emit(ctx context.Context, event Event) error
}

// ProcessCreated builds the notification for a newly stored version.
func ProcessCreated(id domain.ProcessIdentifier, version domain.ProcessVersion, restrictions []restriction.Restriction, isNew bool, now time.Time) Event {
	return Event{
		ID:           uuid.New(),
		Type:         TypeProcessCreated,
		ProcessID:    id,
		Version:      version,
		Restrictions: restriction.CloneAll(restrictions),
		IsNewProcess: isNew,
		Timestamp:    now,
	}
}

// ProcessDisabled builds the notification for a version that was disabled.
func ProcessDisabled(id domain.ProcessIdentifier, version domain.ProcessVersion, now time.Time) Event {
	return Event{
		ID:        uuid.New(),
		Type:      TypeProcessDisabled,
		ProcessID: id,
		Version:   version,
		Timestamp: now,
	}
}

// Key is the partition key used when an event leaves the process: all
// versions of one identifier stay ordered.
func (e Event) Key() string {
	return string(e.ProcessID)
}

// Marshal encodes the event as its wire JSON.
func (e Event) Marshal() ([]byte, error) {
	b, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("marshal %s event: %w", e.Type, err)
	}
	return b, nil
}

// Unmarshal decodes an event previously produced by Marshal.
func Unmarshal(b []byte) (Event, error) {
	var e Event
	if err := json.Unmarshal(b, &e); err != nil {
		return Event{}, fmt.Errorf("unmarshal event: %w", err)
	}
	return e, nil
}
