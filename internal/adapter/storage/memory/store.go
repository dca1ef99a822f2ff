// Package memory holds the in-process job store. Job records deliberately do
// not survive a restart.
package memory

import (
	"fmt"
	"sync"

	"affekt/internal/domain"
	"affekt/internal/port"
)

// entry pairs one job record with its own lock so writes to different jobs
// never contend with each other. The store-level mutex only guards map
// membership and the claim queue.
type entry struct {
	mu  sync.Mutex
	job *domain.Analysis
}

type Store struct {
	mu      sync.RWMutex
	entries map[string]*entry
	pending []string // FIFO of queued job ids
}

func NewStore() *Store {
	return &Store{entries: make(map[string]*entry)}
}

func (s *Store) Create(a *domain.Analysis) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.entries[a.ID]; exists {
		return fmt.Errorf("analysis %s already exists", a.ID)
	}
	s.entries[a.ID] = &entry{job: a.Clone()}
	s.pending = append(s.pending, a.ID)
	return nil
}

func (s *Store) lookup(id string) (*entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.entries[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return e, nil
}

func (s *Store) Get(id string) (*domain.Analysis, error) {
	e, err := s.lookup(id)
	if err != nil {
		return nil, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	return e.job.Clone(), nil
}

func (s *Store) Update(id string, fn func(*domain.Analysis) error) error {
	e, err := s.lookup(id)
	if err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	// Mutate a copy and swap so concurrent readers see either the old or
	// the new record, never a partially-applied one.
	c := e.job.Clone()
	if err := fn(c); err != nil {
		return err
	}
	e.job = c
	return nil
}

func (s *Store) ClaimNext() (*domain.Analysis, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for len(s.pending) > 0 {
		id := s.pending[0]
		s.pending = s.pending[1:]

		e, ok := s.entries[id]
		if !ok {
			continue
		}

		e.mu.Lock()
		if e.job.Status != domain.AnalysisStatusQueued {
			e.mu.Unlock()
			continue
		}
		c := e.job.Clone()
		if err := c.MarkProcessing(); err != nil {
			e.mu.Unlock()
			return nil, err
		}
		e.job = c
		claimed := c.Clone()
		e.mu.Unlock()
		return claimed, nil
	}
	return nil, nil
}

var _ port.AnalysisStore = (*Store)(nil)
