package httpserver

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/notes_auth/internal/logging"
	mwauth "github.com/Skotchmaster/notes_auth/internal/middleware/auth"
)

type Deps struct {
	AuthHandler *AuthHTTP
	Tokens      mwauth.Parser
	// Ready reports whether dependencies such as the database answer.
	Ready func(ctx context.Context) error
}

func Register(e *echo.Echo, d *Deps) {
	e.GET("/health/live", func(c echo.Context) error { return c.NoContent(http.StatusOK) })
	e.GET("/health/ready", func(c echo.Context) error {
		if d.Ready != nil {
			if err := d.Ready(c.Request().Context()); err != nil {
				logging.FromContext(c.Request().Context()).Error("not_ready", "error", err)
				return c.NoContent(http.StatusServiceUnavailable)
			}
		}
		return c.NoContent(http.StatusOK)
	})

	e.POST("/signup", d.AuthHandler.Signup)
	e.POST("/authenticate", d.AuthHandler.Authenticate)
	e.POST("/refreshAccessToken", d.AuthHandler.RefreshAccessToken)
	e.POST("/logout", d.AuthHandler.Logout)

	private := e.Group("")
	private.Use(mwauth.RequireAuth(d.Tokens))

	private.GET("/private", d.AuthHandler.Private)
	private.GET("/users", d.AuthHandler.ListUsers)
	private.GET("/users/:id", d.AuthHandler.GetUser)
}
