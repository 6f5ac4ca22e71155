package jobs

import (
	"context"
	"sync"
)

// Store is the key-value abstraction holding job records. All mutations go
// through Update, which applies the mutator atomically with respect to a
// single job id. Updates to different ids never block each other.
type Store interface {
	Create(ctx context.Context, job *Job) error
	Get(ctx context.Context, id string) (*Job, error)
	Update(ctx context.Context, id string, mutate func(*Job) error) error
}

// MemoryStore keeps job records in process memory. Records live for the
// lifetime of the process.
type MemoryStore struct {
	mu   sync.RWMutex // guards the map, not the entries
	jobs map[string]*memoryEntry
}

type memoryEntry struct {
	mu  sync.Mutex
	job *Job
}

// NewMemoryStore creates an empty in-process store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		jobs: make(map[string]*memoryEntry),
	}
}

func (s *MemoryStore) Create(_ context.Context, job *Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.jobs[job.ID]; ok {
		return ErrAlreadyExists
	}
	s.jobs[job.ID] = &memoryEntry{job: job.Clone()}
	return nil
}

func (s *MemoryStore) Get(_ context.Context, id string) (*Job, error) {
	entry, err := s.entry(id)
	if err != nil {
		return nil, err
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()
	return entry.job.Clone(), nil
}

func (s *MemoryStore) Update(_ context.Context, id string, mutate func(*Job) error) error {
	entry, err := s.entry(id)
	if err != nil {
		return err
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()

	updated := entry.job.Clone()
	if err := mutate(updated); err != nil {
		return err
	}
	entry.job = updated
	return nil
}

func (s *MemoryStore) entry(id string) (*memoryEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entry, ok := s.jobs[id]
	if !ok {
		return nil, ErrNotFound
	}
	return entry, nil
}
