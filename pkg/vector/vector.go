// Package vector provides cosine similarity and a small in-memory
// vector index with exact top-k search.
package vector

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"sync"
)

var (
	// ErrDimensionMismatch is returned when a vector's dimensionality does
	// not match the index. This is a contract violation, not retryable.
	ErrDimensionMismatch = errors.New("vector dimension mismatch")

	// ErrEmptyVector is returned when an empty vector is added to an index.
	ErrEmptyVector = errors.New("empty vector")
)

// Cosine calculates the cosine similarity of two vectors. It returns a
// value in [-1, 1]; mismatched lengths or zero vectors score 0.
func Cosine(a, b []float32) float64 {
	if len(a) != len(b) {
		return 0.0
	}

	var dot, normA, normB float64
	for i := 0; i < len(a); i++ {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0.0 || normB == 0.0 {
		return 0.0
	}

	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// Result is one search hit: the stored id and its similarity to the query.
type Result struct {
	ID         uint64
	Similarity float64
}

// Index is an exact-search vector index. The dimensionality is fixed by
// the first vector added; later vectors must match it.
type Index struct {
	mu      sync.RWMutex
	dims    int
	vectors map[uint64][]float32
}

// NewIndex creates an empty index. With dims == 0 the dimensionality is
// taken from the first vector added.
func NewIndex(dims int) *Index {
	return &Index{
		dims:    dims,
		vectors: make(map[uint64][]float32),
	}
}

// Add stores a vector under the given id, replacing any previous vector.
func (idx *Index) Add(id uint64, vec []float32) error {
	if len(vec) == 0 {
		return ErrEmptyVector
	}

	idx.mu.Lock()
	defer idx.mu.Unlock()

	if idx.dims == 0 {
		idx.dims = len(vec)
	}
	if len(vec) != idx.dims {
		return fmt.Errorf("%w: got %d, index has %d", ErrDimensionMismatch, len(vec), idx.dims)
	}

	stored := make([]float32, len(vec))
	copy(stored, vec)
	idx.vectors[id] = stored
	return nil
}

// Remove deletes the vector stored under id. Removing an unknown id is a
// no-op.
func (idx *Index) Remove(id uint64) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	delete(idx.vectors, id)
}

// Count returns the number of stored vectors.
func (idx *Index) Count() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return len(idx.vectors)
}

// Search returns the topK most similar vectors to the query, sorted
// descending by similarity. Equal similarities are ordered by lower id so
// results are reproducible.
func (idx *Index) Search(query []float32, topK int) []Result {
	if topK <= 0 || len(query) == 0 {
		return nil
	}

	idx.mu.RLock()
	defer idx.mu.RUnlock()

	results := make([]Result, 0, len(idx.vectors))
	for id, vec := range idx.vectors {
		results = append(results, Result{ID: id, Similarity: Cosine(query, vec)})
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].Similarity != results[j].Similarity {
			return results[i].Similarity > results[j].Similarity
		}
		return results[i].ID < results[j].ID
	})

	if len(results) > topK {
		results = results[:topK]
	}
	return results
}

// Clear drops all stored vectors but keeps the dimensionality.
func (idx *Index) Clear() {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	idx.vectors = make(map[uint64][]float32)
}
