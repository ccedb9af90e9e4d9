package server

import (
	"github.com/graphweave/graphweave/internal/server/routes"

	"github.com/labstack/echo/v4"
)

func RegisterRoutes(e *echo.Echo) {
	// Health check route
	e.GET("/health", func(c echo.Context) error {
		return c.String(200, "OK")
	})

	apiRoutes := e.Group("/api")

	// Session routes
	apiRoutes.GET("/sessions", routes.GetSessionsHandler)
	apiRoutes.GET("/sessions/:id/stats", routes.GetSessionStatsHandler)
	apiRoutes.DELETE("/sessions/:id", routes.DeleteSessionHandler)

	// Indexing and retrieval routes
	apiRoutes.POST("/sessions/:id/index", routes.IndexDocumentsHandler)
	apiRoutes.POST("/sessions/:id/query", routes.QuerySessionHandler)
	apiRoutes.POST("/sessions/:id/communities", routes.DetectCommunitiesHandler)
}
