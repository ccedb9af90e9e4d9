package routes

import (
	"net/http"

	"github.com/graphweave/graphweave/internal/server/middleware"

	"github.com/labstack/echo/v4"
)

func DeleteSessionHandler(c echo.Context) error {
	eng := c.(*middleware.AppContext).App.Engine

	if err := eng.CloseSession(c.Param("id")); err != nil {
		return jsonError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}
