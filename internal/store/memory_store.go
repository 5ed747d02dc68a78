package store

import (
	"context"
	"math/rand"
	"sync"

	"github.com/iamthegreatdestroyer/shgat-engine/internal/shgat"
)

// MemoryStore is a process-local ParamStore and ExampleStore, useful for
// tests and single-process deployments that don't need durability across
// restarts.
type MemoryStore struct {
	mu       sync.Mutex
	params   map[string][]byte
	examples map[string][]memoryExample
	rng      *rand.Rand
}

type memoryExample struct {
	ex       shgat.TrainingExample
	priority float64
}

// NewMemoryStore constructs an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		params:   make(map[string][]byte),
		examples: make(map[string][]memoryExample),
		rng:      rand.New(rand.NewSource(1)),
	}
}

func (s *MemoryStore) SaveParams(ctx context.Context, key string, blob []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := make([]byte, len(blob))
	copy(cp, blob)
	s.params[key] = cp
	return nil
}

func (s *MemoryStore) LoadParams(ctx context.Context, key string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	blob, ok := s.params[key]
	if !ok {
		return nil, ErrNotFound
	}
	cp := make([]byte, len(blob))
	copy(cp, blob)
	return cp, nil
}

func (s *MemoryStore) SaveExample(ctx context.Context, key string, ex shgat.TrainingExample, priority float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, e := range s.examples[key] {
		if e.ex.ID == ex.ID {
			s.examples[key][i] = memoryExample{ex: ex, priority: priority}
			return nil
		}
	}
	s.examples[key] = append(s.examples[key], memoryExample{ex: ex, priority: priority})
	return nil
}

func (s *MemoryStore) FetchPrioritySample(ctx context.Context, key string, n int) ([]shgat.TrainingExample, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	pool := s.examples[key]
	if len(pool) == 0 || n <= 0 {
		return nil, nil
	}

	total := 0.0
	for _, e := range pool {
		total += e.priority
	}
	if total <= 0 {
		total = float64(len(pool))
	}

	out := make([]shgat.TrainingExample, 0, n)
	for i := 0; i < n; i++ {
		target := s.rng.Float64() * total
		acc := 0.0
		chosen := pool[len(pool)-1].ex
		for _, e := range pool {
			w := e.priority
			if total == float64(len(pool)) {
				w = 1
			}
			acc += w
			if acc >= target {
				chosen = e.ex
				break
			}
		}
		out = append(out, chosen)
	}
	return out, nil
}

func (s *MemoryStore) UpdatePriority(ctx context.Context, key string, exampleID string, priority float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, e := range s.examples[key] {
		if e.ex.ID == exampleID {
			s.examples[key][i].priority = priority
			return nil
		}
	}
	return ErrNotFound
}
