package routes

import (
	"net/http"

	"github.com/graphweave/graphweave/internal/server/middleware"

	"github.com/labstack/echo/v4"
)

func DetectCommunitiesHandler(c echo.Context) error {
	app := c.(*middleware.AppContext).App

	detected, err := app.Engine.DetectCommunities(c.Request().Context(), c.Param("id"))
	if err != nil {
		return jsonError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]int{"communities_detected": detected})
}
