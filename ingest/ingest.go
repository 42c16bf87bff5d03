package ingest

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"realtychat/model"
	"realtychat/store"
)

// Stage identifies which external collaborator a pipeline failure came from.
type Stage string

const (
	StageExtract     Stage = "extraction"
	StageValidate    Stage = "validation"
	StageEmbed       Stage = "embedding"
	StageIndexInit   Stage = "index-init"
	StageIndexUpload Stage = "index-upload"
)

// Error wraps a pipeline failure with the stage it occurred in so the HTTP
// layer can map it to a distinct error category.
type Error struct {
	Stage Stage
	Err   error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %v", e.Stage, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// ErrNoContent is returned when a document yields no chunks.
var ErrNoContent = errors.New("no text content")

// pointNamespace seeds the deterministic point ids.
var pointNamespace = uuid.MustParse("8f1c9c52-7a0f-4f37-9a5d-2f3f5b6d9e01")

// Pipeline indexes one extracted document per call: chunk, probe the vector
// dimension, ensure the collection, embed every chunk and upsert the points.
// The operation is all-or-nothing from the caller's perspective; no stage is
// retried and nothing already written is rolled back on a later failure.
type Pipeline struct {
	embedder  model.Embedder
	index     store.Indexer
	chunkSize int
	logger    zerolog.Logger
}

func NewPipeline(embedder model.Embedder, index store.Indexer, chunkSize int, logger zerolog.Logger) *Pipeline {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	return &Pipeline{
		embedder:  embedder,
		index:     index,
		chunkSize: chunkSize,
		logger:    logger.With().Str("component", "ingest").Logger(),
	}
}

// Ingest indexes the extracted text of one document and returns the number
// of points written.
func (p *Pipeline) Ingest(ctx context.Context, text string) (int, error) {
	if strings.TrimSpace(text) == "" {
		return 0, &Error{Stage: StageValidate, Err: ErrNoContent}
	}
	chunks := Split(text, p.chunkSize)
	p.logger.Info().Int("chunks", len(chunks)).Msg("document chunked")

	// the dimension of the embedding model is discovered empirically
	probe, err := p.embedder.Embed(ctx, chunks[0])
	if err != nil {
		return 0, &Error{Stage: StageEmbed, Err: err}
	}
	dimension := len(probe)
	p.logger.Debug().Int("dimension", dimension).Msg("vector size determined")

	if err := p.index.EnsureCollection(ctx, dimension); err != nil {
		return 0, &Error{Stage: StageIndexInit, Err: err}
	}

	vectors, err := p.embedder.EmbedBatch(ctx, chunks)
	if err != nil {
		return 0, &Error{Stage: StageEmbed, Err: err}
	}

	points := Points(text, chunks, vectors)
	if err := p.index.Upsert(ctx, points); err != nil {
		return 0, &Error{Stage: StageIndexUpload, Err: err}
	}

	p.logger.Info().Int("points", len(points)).Msg("document indexed")
	return len(points), nil
}

// Points pairs chunks with their vectors under deterministic ids. Ids derive
// from the document content hash and the chunk ordinal, so re-uploading the
// same document overwrites its own points while distinct documents never
// collide.
func Points(docText string, chunks []string, vectors [][]float32) []store.Point {
	sum := sha1.Sum([]byte(docText))
	docHash := hex.EncodeToString(sum[:])

	points := make([]store.Point, len(chunks))
	for i := range chunks {
		id := uuid.NewSHA1(pointNamespace, []byte(fmt.Sprintf("%s:%d", docHash, i)))
		points[i] = store.Point{
			ID:      id.String(),
			Vector:  vectors[i],
			Payload: chunks[i],
		}
	}
	return points
}
