package retrieval

import (
	"fmt"
	"math"
	"sort"
)

const epsilon = 1e-8

// Hit is one retrieval result.
type Hit[T Record] struct {
	Record T       `json:"record"`
	Score  float64 `json:"score"`
}

// Retriever ranks the records of a store by cosine similarity to a query
// embedding.
type Retriever[T Record] struct {
	store *VectorStore[T]
}

// NewRetriever creates a retriever over store.
func NewRetriever[T Record](store *VectorStore[T]) *Retriever[T] {
	return &Retriever[T]{store: store}
}

// TopK returns the k most similar records, best first.
func (r *Retriever[T]) TopK(query []float32, k int) ([]Hit[T], error) {
	hits, err := r.score(query)
	if err != nil || k <= 0 {
		return nil, err
	}

	if k < len(hits) {
		hits = hits[:k]
	}

	return hits, nil
}

// ByThreshold returns every record scoring at least minScore, best first.
func (r *Retriever[T]) ByThreshold(query []float32, minScore float64) ([]Hit[T], error) {
	hits, err := r.score(query)
	if err != nil {
		return nil, err
	}

	n := sort.Search(len(hits), func(i int) bool { return hits[i].Score < minScore })

	return hits[:n], nil
}

func (r *Retriever[T]) score(query []float32) ([]Hit[T], error) {
	if len(query) != r.store.Dim() {
		return nil, fmt.Errorf("query dimension mismatch: got %d, want %d", len(query), r.store.Dim())
	}

	qNorm := norm(query) + epsilon

	var hits []Hit[T]

	r.store.scan(func(rec T, vec []float32) {
		hits = append(hits, Hit[T]{Record: rec, Score: dot(query, vec) / ((norm(vec) + epsilon) * qNorm)})
	})

	sort.SliceStable(hits, func(i, j int) bool { return hits[i].Score > hits[j].Score })

	return hits, nil
}

// Cosine returns the cosine similarity of a and b.
func Cosine(a, b []float32) float64 {
	if len(a) != len(b) {
		return 0
	}

	return dot(a, b) / ((norm(a) + epsilon) * (norm(b) + epsilon))
}

func dot(a, b []float32) float64 {
	var sum float64
	for i := range a {
		sum += float64(a[i]) * float64(b[i])
	}

	return sum
}

func norm(v []float32) float64 {
	return math.Sqrt(dot(v, v))
}
