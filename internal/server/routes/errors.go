package routes

import (
	"errors"
	"net/http"

	"github.com/graphweave/graphweave/pkg/engine"
	"github.com/graphweave/graphweave/pkg/store"

	"github.com/labstack/echo/v4"
)

// jsonError maps engine error kinds onto HTTP statuses: configuration
// and query parameter problems are the caller's fault, unknown sessions
// are 404, everything else is a server error.
func jsonError(c echo.Context, err error) error {
	status := http.StatusInternalServerError

	var cfgErr *store.ConfigError
	var queryErr *engine.QueryError
	switch {
	case errors.As(err, &cfgErr), errors.As(err, &queryErr):
		status = http.StatusBadRequest
	case errors.Is(err, store.ErrSessionNotFound), errors.Is(err, store.ErrSessionClosed):
		status = http.StatusNotFound
	}

	return c.JSON(status, map[string]string{"error": err.Error()})
}
