package store

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"
)

// MemoryStore is an in-process Indexer doing a full cosine scan. It backs
// local runs without a Qdrant instance and the test suite.
type MemoryStore struct {
	mu        sync.RWMutex
	dimension int
	points    map[string]Point
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{points: make(map[string]Point)}
}

func (s *MemoryStore) EnsureCollection(ctx context.Context, dimension int) error {
	if dimension <= 0 {
		return fmt.Errorf("invalid vector dimension %d", dimension)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.dimension != 0 && s.dimension != dimension {
		// same semantics as the remote backends: a new dimension resets the collection
		s.points = make(map[string]Point)
	}
	s.dimension = dimension
	return nil
}

func (s *MemoryStore) Upsert(ctx context.Context, points []Point) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.dimension == 0 {
		return fmt.Errorf("collection not initialized")
	}
	for _, p := range points {
		if len(p.Vector) != s.dimension {
			return fmt.Errorf("point %s: vector size %d, want %d", p.ID, len(p.Vector), s.dimension)
		}
		s.points[p.ID] = p
	}
	return nil
}

func (s *MemoryStore) Search(ctx context.Context, vector []float32, limit int) ([]Match, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	matches := make([]Match, 0, len(s.points))
	for _, p := range s.points {
		matches = append(matches, Match{
			Score: cosineSimilarity(vector, p.Vector),
			Text:  p.Payload,
		})
	}
	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Score > matches[j].Score
	})
	if len(matches) > limit {
		matches = matches[:limit]
	}
	return matches, nil
}

// Len reports the number of stored points.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.points)
}

func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
