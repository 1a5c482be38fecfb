package retrieval

import (
	"fmt"
	"sync"
)

// Record is anything that can be stored in a VectorStore.
type Record interface {
	RecordID() string
	Vector() []float32
}

// VectorStore keeps records and their embeddings as dense rows with an id
// index. Deletion moves the last row into the freed slot.
type VectorStore[T Record] struct {
	mu      sync.RWMutex
	dim     int
	rows    [][]float32
	records []T
	index   map[string]int
}

// NewVectorStore creates an empty store for embeddings of size dim.
func NewVectorStore[T Record](dim int) *VectorStore[T] {
	return &VectorStore[T]{dim: dim, index: make(map[string]int)}
}

// Dim returns the embedding dimension.
func (s *VectorStore[T]) Dim() int { return s.dim }

// Add stores rec. Adding an existing id replaces the record in place.
func (s *VectorStore[T]) Add(rec T) error {
	vec := rec.Vector()
	if len(vec) != s.dim {
		return fmt.Errorf("bad embedding dimension for %s: got %d, want %d", rec.RecordID(), len(vec), s.dim)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if row, ok := s.index[rec.RecordID()]; ok {
		s.rows[row] = vec
		s.records[row] = rec

		return nil
	}

	s.index[rec.RecordID()] = len(s.rows)
	s.rows = append(s.rows, vec)
	s.records = append(s.records, rec)

	return nil
}

// Delete removes the record with id and reports whether it existed.
func (s *VectorStore[T]) Delete(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	row, ok := s.index[id]
	if !ok {
		return false
	}

	last := len(s.rows) - 1
	if row != last {
		s.rows[row] = s.rows[last]
		s.records[row] = s.records[last]
		s.index[s.records[row].RecordID()] = row
	}

	var zero T

	s.rows[last] = nil
	s.records[last] = zero
	s.rows = s.rows[:last]
	s.records = s.records[:last]
	delete(s.index, id)

	return true
}

// GetByID returns the record with id.
func (s *VectorStore[T]) GetByID(id string) (T, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row, ok := s.index[id]
	if !ok {
		var zero T
		return zero, false
	}

	return s.records[row], true
}

// All returns the records in row order.
func (s *VectorStore[T]) All() []T {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]T, len(s.records))
	copy(out, s.records)

	return out
}

// Count returns the number of stored records.
func (s *VectorStore[T]) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.rows)
}

// scan calls fn for every row under the read lock.
func (s *VectorStore[T]) scan(fn func(rec T, vec []float32)) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for i, vec := range s.rows {
		fn(s.records[i], vec)
	}
}
