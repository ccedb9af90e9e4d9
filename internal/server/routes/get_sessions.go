package routes

import (
	"net/http"

	"github.com/graphweave/graphweave/internal/server/middleware"

	"github.com/labstack/echo/v4"
)

func GetSessionsHandler(c echo.Context) error {
	eng := c.(*middleware.AppContext).App.Engine
	return c.JSON(http.StatusOK, map[string]any{
		"sessions": eng.Sessions(),
	})
}

func GetSessionStatsHandler(c echo.Context) error {
	eng := c.(*middleware.AppContext).App.Engine

	stats, err := eng.SessionStats(c.Param("id"))
	if err != nil {
		return jsonError(c, err)
	}
	return c.JSON(http.StatusOK, stats)
}
