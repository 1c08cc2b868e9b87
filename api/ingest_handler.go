package api

import (
	"errors"
	"os"
	"path/filepath"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/cartableai/cartable/pkg/ingest"
)

// IngestResponse is the body returned by POST /v1/ingest.
type IngestResponse struct {
	Source         string `json:"source"`
	ChunksInserted int    `json:"chunks_inserted"`
}

// handleIngest handles POST /v1/ingest requests. The document is uploaded as
// a multipart form file under the "file" field; its original filename becomes
// the source name attached to every indexed chunk.
func (s *Server) handleIngest(c *fiber.Ctx) error {
	if s.config.Ingester == nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(ErrorResponse{
			Error: "ingestion is not configured",
		})
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
			Error: "file field is required",
		})
	}

	sourceName := filepath.Base(fileHeader.Filename)

	// Reject unsupported extensions before writing anything to disk.
	if _, err := ingest.DetectFormat(sourceName); err != nil {
		return c.Status(fiber.StatusUnsupportedMediaType).JSON(ErrorResponse{
			Error: err.Error(),
		})
	}

	tmp, err := os.CreateTemp("", "cartable-upload-*"+filepath.Ext(sourceName))
	if err != nil {
		s.logger.Error("creating temp file for upload", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{
			Error: "failed to store upload",
		})
	}
	tmpPath := tmp.Name()
	tmp.Close()
	defer os.Remove(tmpPath)

	if err := c.SaveFile(fileHeader, tmpPath); err != nil {
		s.logger.Error("saving uploaded file", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{
			Error: "failed to store upload",
		})
	}

	inserted, err := s.config.Ingester.Ingest(c.Context(), tmpPath, sourceName)
	if err != nil {
		if errors.Is(err, ingest.ErrUnsupportedFormat) {
			return c.Status(fiber.StatusUnsupportedMediaType).JSON(ErrorResponse{
				Error: err.Error(),
			})
		}

		s.logger.Error("ingesting document",
			zap.String("source", sourceName),
			zap.Error(err),
		)
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{
			Error: err.Error(),
		})
	}

	return c.JSON(IngestResponse{
		Source:         sourceName,
		ChunksInserted: inserted,
	})
}
