package store

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// QdrantStore is a minimal REST client to a Qdrant collection using cosine
// distance.
type QdrantStore struct {
	url        string
	apiKey     string
	collection string
	client     *http.Client
	logger     zerolog.Logger

	mu    sync.Mutex
	ready int // vector size the collection is known to have, 0 if unknown
}

type QdrantConfig struct {
	URL        string
	APIKey     string
	Collection string
	Timeout    time.Duration
}

func NewQdrantStore(cfg QdrantConfig, logger zerolog.Logger) *QdrantStore {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	return &QdrantStore{
		url:        cfg.URL,
		apiKey:     cfg.APIKey,
		collection: cfg.Collection,
		client:     &http.Client{Timeout: timeout},
		logger:     logger.With().Str("component", "qdrant").Logger(),
	}
}

type collectionInfo struct {
	Result struct {
		Config struct {
			Params struct {
				Vectors struct {
					Size int `json:"size"`
				} `json:"vectors"`
			} `json:"params"`
		} `json:"config"`
	} `json:"result"`
}

// EnsureCollection creates the collection for the given vector size if it
// does not exist yet. An existing collection with the same size is kept as
// is, points included. A size mismatch drops and recreates the collection.
func (s *QdrantStore) EnsureCollection(ctx context.Context, dimension int) error {
	if dimension <= 0 {
		return fmt.Errorf("invalid vector dimension %d", dimension)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ready == dimension {
		return nil
	}

	existing, err := s.collectionSize(ctx)
	if err != nil {
		return err
	}
	switch existing {
	case dimension:
		s.ready = dimension
		return nil
	case 0:
		// does not exist yet
	default:
		s.logger.Warn().
			Int("have", existing).
			Int("want", dimension).
			Msg("vector size changed, dropping collection and its points")
		if err := s.do(ctx, http.MethodDelete, s.collectionURL(), nil, nil); err != nil {
			return fmt.Errorf("drop collection: %w", err)
		}
	}

	body := map[string]any{
		"vectors": map[string]any{
			"size":     dimension,
			"distance": "Cosine",
		},
	}
	if err := s.do(ctx, http.MethodPut, s.collectionURL(), body, nil); err != nil {
		return fmt.Errorf("create collection: %w", err)
	}
	s.logger.Info().Int("size", dimension).Str("collection", s.collection).Msg("collection initialized")
	s.ready = dimension
	return nil
}

func (s *QdrantStore) Upsert(ctx context.Context, points []Point) error {
	qp := make([]map[string]any, len(points))
	for i, p := range points {
		qp[i] = map[string]any{
			"id":      p.ID,
			"vector":  p.Vector,
			"payload": map[string]any{"text": p.Payload},
		}
	}
	body := map[string]any{"points": qp}
	if err := s.do(ctx, http.MethodPut, s.collectionURL()+"/points?wait=true", body, nil); err != nil {
		return fmt.Errorf("upsert %d points: %w", len(points), err)
	}
	return nil
}

func (s *QdrantStore) Search(ctx context.Context, vector []float32, limit int) ([]Match, error) {
	body := map[string]any{
		"vector":       vector,
		"limit":        limit,
		"with_payload": true,
	}
	var resp struct {
		Result []struct {
			Score   float64        `json:"score"`
			Payload map[string]any `json:"payload"`
		} `json:"result"`
	}
	if err := s.do(ctx, http.MethodPost, s.collectionURL()+"/points/search", body, &resp); err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}
	matches := make([]Match, 0, len(resp.Result))
	for _, r := range resp.Result {
		m := Match{Score: r.Score}
		if text, ok := r.Payload["text"].(string); ok {
			m.Text = text
		}
		matches = append(matches, m)
	}
	return matches, nil
}

// collectionSize returns the configured vector size, or 0 when the collection
// does not exist.
func (s *QdrantStore) collectionSize(ctx context.Context) (int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.collectionURL(), nil)
	if err != nil {
		return 0, err
	}
	s.setHeaders(req)
	resp, err := s.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("get collection: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return 0, nil
	}
	if resp.StatusCode >= 300 {
		return 0, fmt.Errorf("get collection: %s", resp.Status)
	}
	var info collectionInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return 0, fmt.Errorf("decode collection info: %w", err)
	}
	return info.Result.Config.Params.Vectors.Size, nil
}

func (s *QdrantStore) collectionURL() string {
	return fmt.Sprintf("%s/collections/%s", s.url, s.collection)
}

func (s *QdrantStore) do(ctx context.Context, method, url string, body any, out any) error {
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return err
	}
	s.setHeaders(req)

	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("qdrant %s %s: %s", method, url, resp.Status)
	}
	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}

func (s *QdrantStore) setHeaders(req *http.Request) {
	req.Header.Set("Content-Type", "application/json")
	if s.apiKey != "" {
		req.Header.Set("api-key", s.apiKey)
	}
}
