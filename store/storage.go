package store

import "context"

// Point is one indexed chunk: a stable id, its embedding and the original
// chunk text carried as payload.
type Point struct {
	ID      string
	Vector  []float32
	Payload string
}

// Match is a search hit ordered by descending similarity.
type Match struct {
	Score float64 `json:"score"`
	Text  string  `json:"text"`
}

// Indexer is a named vector collection supporting cosine nearest-neighbor
// search.
//
// EnsureCollection is guarded against the destructive re-create the naive
// flow performs on every upload: when the collection already exists with the
// requested vector size it is left untouched. A dimension change (a different
// embedding model) drops and recreates the collection, losing stored points.
type Indexer interface {
	EnsureCollection(ctx context.Context, dimension int) error
	Upsert(ctx context.Context, points []Point) error
	Search(ctx context.Context, vector []float32, limit int) ([]Match, error)
}
