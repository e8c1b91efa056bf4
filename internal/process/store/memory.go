package store

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"processguard/internal/process/models"
	"processguard/pkg/domain"
	"processguard/pkg/platform/sentinel"
)

type slotKey struct {
	id      domain.ProcessIdentifier
	version domain.ProcessVersion
}

// InMemory keeps both registry tables in maps. Values are cloned on the way in
// and out so callers never alias stored state.
type InMemory struct {
	mu        sync.RWMutex
	versions  map[domain.ProcessIdentifier]domain.ProcessVersion
	processes map[slotKey]*models.Process
}

func NewInMemory() *InMemory {
	return &InMemory{
		versions:  make(map[domain.ProcessIdentifier]domain.ProcessVersion),
		processes: make(map[slotKey]*models.Process),
	}
}

func (s *InMemory) CurrentVersion(_ context.Context, id domain.ProcessIdentifier) (domain.ProcessVersion, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.versions[id], nil
}

func (s *InMemory) BumpVersion(_ context.Context, id domain.ProcessIdentifier) (domain.ProcessVersion, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.versions[id] >= domain.MaxProcessVersion {
		return 0, fmt.Errorf("version counter for %s exhausted: %w", id, sentinel.ErrInvalidState)
	}
	s.versions[id]++
	return s.versions[id], nil
}

// SetVersion forces the counter for id. Used to seed fixtures.
func (s *InMemory) SetVersion(_ context.Context, id domain.ProcessIdentifier, version domain.ProcessVersion) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.versions[id] = version
}

func (s *InMemory) FindProcess(_ context.Context, id domain.ProcessIdentifier, version domain.ProcessVersion) (*models.Process, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.processes[slotKey{id, version}]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return p.Clone(), nil
}

func (s *InMemory) InsertProcess(_ context.Context, p *models.Process) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := slotKey{p.ID, p.Version}
	if _, exists := s.processes[key]; exists {
		return sentinel.ErrConflict
	}
	s.processes[key] = p.Clone()
	return nil
}

func (s *InMemory) UpdateProcess(_ context.Context, p *models.Process) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := slotKey{p.ID, p.Version}
	if _, exists := s.processes[key]; !exists {
		return sentinel.ErrNotFound
	}
	s.processes[key] = p.Clone()
	return nil
}

func (s *InMemory) ListProcesses(_ context.Context, id domain.ProcessIdentifier) ([]*models.Process, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.Process
	for key, p := range s.processes {
		if key.id == id {
			out = append(out, p.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Version < out[j].Version })
	return out, nil
}

// Count returns the number of stored process slots.
func (s *InMemory) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.processes)
}
