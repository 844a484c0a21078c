package research

import (
	"sync"

	"github.com/scholarpipe/research-assistant/internal/domain"
)

// ProgressStore is an in-memory registry of workflow progress snapshots.
// It is the single structure read by pollers while a background execution
// writes; both Put and Get deep-copy the record so a reader can never
// observe a half-written snapshot.
type ProgressStore struct {
	mu        sync.RWMutex
	workflows map[string]*domain.ResearchWorkflow
}

// NewProgressStore creates an empty progress store.
func NewProgressStore() *ProgressStore {
	return &ProgressStore{
		workflows: make(map[string]*domain.ResearchWorkflow),
	}
}

// Put replaces the stored snapshot for the workflow atomically.
// The record is cloned on the way in, so the caller may keep mutating
// its copy after Put returns.
func (s *ProgressStore) Put(w *domain.ResearchWorkflow) {
	snapshot := w.Clone()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.workflows[snapshot.ID] = snapshot
}

// Get returns a snapshot of the workflow, or domain.ErrNotFound if the
// id is unknown. The returned record is a clone and safe to retain.
func (s *ProgressStore) Get(id string) (*domain.ResearchWorkflow, error) {
	s.mu.RLock()
	w, ok := s.workflows[id]
	s.mu.RUnlock()

	if !ok {
		return nil, domain.NewNotFoundError("workflow", id)
	}
	return w.Clone(), nil
}

// List returns snapshots of all stored workflows in unspecified order.
func (s *ProgressStore) List() []*domain.ResearchWorkflow {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*domain.ResearchWorkflow, 0, len(s.workflows))
	for _, w := range s.workflows {
		out = append(out, w.Clone())
	}
	return out
}

// Len returns the number of stored workflows.
func (s *ProgressStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.workflows)
}
