package routes

import (
	"net/http"

	"github.com/graphweave/graphweave/internal/server/middleware"
	"github.com/graphweave/graphweave/pkg/common"

	"github.com/labstack/echo/v4"
)

func IndexDocumentsHandler(c echo.Context) error {
	type request struct {
		Documents             []common.Document `json:"documents"`
		BatchSize             int               `json:"batch_size"`
		ChunkSize             int               `json:"chunk_size"`
		ChunkOverlap          int               `json:"chunk_overlap"`
		AutoDetectCommunities *bool             `json:"auto_detect_communities"`
	}

	app := c.(*middleware.AppContext).App
	sessionID := c.Param("id")

	var req request
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}
	if len(req.Documents) == 0 {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "documents must not be empty"})
	}

	// Sessions spring into existence on first reference; the request
	// may override the chunking defaults for a new session only.
	cfg := app.BaseConfig
	if req.ChunkSize != 0 {
		cfg.ChunkSize = req.ChunkSize
	}
	if req.ChunkOverlap != 0 {
		cfg.ChunkOverlap = req.ChunkOverlap
	}
	if req.AutoDetectCommunities != nil {
		cfg.AutoDetectCommunities = *req.AutoDetectCommunities
	}
	if _, err := app.Engine.EnsureSession(sessionID, cfg); err != nil {
		return jsonError(c, err)
	}

	stats, err := app.Engine.IndexDocuments(c.Request().Context(), sessionID, req.Documents, req.BatchSize)
	if err != nil {
		return jsonError(c, err)
	}
	return c.JSON(http.StatusOK, stats)
}
