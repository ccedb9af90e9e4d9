package routes

import (
	"net/http"

	"github.com/graphweave/graphweave/internal/server/middleware"
	"github.com/graphweave/graphweave/pkg/engine"

	"github.com/labstack/echo/v4"
)

func QuerySessionHandler(c echo.Context) error {
	type request struct {
		Query              string `json:"query"`
		TopK               *int   `json:"top_k"`
		IncludeEntities    *bool  `json:"include_entities"`
		IncludeTextUnits   *bool  `json:"include_text_units"`
		IncludeCommunities *bool  `json:"include_communities"`
	}

	app := c.(*middleware.AppContext).App
	sessionID := c.Param("id")

	var req request
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}

	opts := engine.QueryOptions{
		TopK:               10,
		IncludeEntities:    true,
		IncludeTextUnits:   true,
		IncludeCommunities: true,
	}
	if req.TopK != nil {
		opts.TopK = *req.TopK
	}
	if req.IncludeEntities != nil {
		opts.IncludeEntities = *req.IncludeEntities
	}
	if req.IncludeTextUnits != nil {
		opts.IncludeTextUnits = *req.IncludeTextUnits
	}
	if req.IncludeCommunities != nil {
		opts.IncludeCommunities = *req.IncludeCommunities
	}

	result, err := app.Engine.Query(c.Request().Context(), sessionID, req.Query, opts)
	if err != nil {
		return jsonError(c, err)
	}
	return c.JSON(http.StatusOK, result)
}
