package api

import (
	"errors"
	"os"
	"path/filepath"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"realtychat/extract"
	"realtychat/ingest"
	"realtychat/types"
)

// UploadHandler serves the ingestion endpoint: one multipart document per
// request, extracted, chunked, embedded and upserted into the vector index.
type UploadHandler struct {
	pipeline *ingest.Pipeline
	logger   zerolog.Logger
}

func NewUploadHandler(pipeline *ingest.Pipeline, logger zerolog.Logger) *UploadHandler {
	return &UploadHandler{
		pipeline: pipeline,
		logger:   logger.With().Str("handler", "upload").Logger(),
	}
}

func (h *UploadHandler) HandleUpload(c *fiber.Ctx) error {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		return ErrBadRequest("No file uploaded")
	}

	path := filepath.Join(os.TempDir(), filepath.Base(fileHeader.Filename))
	if err := c.SaveFile(fileHeader, path); err != nil {
		h.logger.Error().Err(err).Str("file", fileHeader.Filename).Msg("save upload")
		return ErrInternal("Upload failed")
	}
	defer os.Remove(path)

	text, err := extract.Text(path)
	if err != nil {
		h.logger.Error().Err(err).Str("file", fileHeader.Filename).Msg("text extraction")
		return ErrInternal("Text extraction failed")
	}
	h.logger.Info().Str("file", fileHeader.Filename).Int("length", len(text)).Msg("text extracted")

	count, err := h.pipeline.Ingest(c.Context(), text)
	if err != nil {
		return h.mapIngestError(err, fileHeader.Filename)
	}

	return c.JSON(types.UploadResponse{Message: "Indexed successfully", Count: count})
}

// mapIngestError turns a pipeline stage failure into its distinct HTTP error
// category.
func (h *UploadHandler) mapIngestError(err error, filename string) error {
	var stageErr *ingest.Error
	if !errors.As(err, &stageErr) {
		h.logger.Error().Err(err).Str("file", filename).Msg("ingestion failed")
		return ErrInternal("Internal error")
	}

	h.logger.Error().Err(stageErr.Err).Str("file", filename).Str("stage", string(stageErr.Stage)).Msg("ingestion failed")
	switch stageErr.Stage {
	case ingest.StageValidate:
		return ErrBadRequest("No text content")
	case ingest.StageEmbed:
		return ErrInternal("Embedding failed")
	case ingest.StageIndexInit:
		return ErrInternal("Qdrant init failed")
	case ingest.StageIndexUpload:
		return ErrInternal("Qdrant upload failed")
	default:
		return ErrInternal("Internal error")
	}
}
