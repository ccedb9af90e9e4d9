package middleware

import (
	"github.com/graphweave/graphweave/pkg/engine"
	"github.com/graphweave/graphweave/pkg/store"

	"github.com/labstack/echo/v4"
)

// App carries the shared engine and the base session configuration
// every new session starts from.
type App struct {
	Engine     *engine.Engine
	BaseConfig store.SessionConfig
}

type AppContext struct {
	echo.Context
	App *App
}

func AppContextMiddleware(app *App) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			cc := &AppContext{c, app}
			return next(cc)
		}
	}
}
