package auth

import (
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/notes_auth/internal/logging"
	"github.com/Skotchmaster/notes_auth/internal/tokens"
)

const (
	scheme    = "Bearer"
	ClaimsKey = "claims"
)

var ErrAuthentication = errors.New("AUTHENTICATION_ERROR")

// BearerToken extracts the credential from an Authorization header of the
// exact form "<scheme> <credential>". The scheme match ignores case.
func BearerToken(header string) (string, error) {
	parts := strings.Split(header, " ")
	if len(parts) != 2 {
		return "", ErrAuthentication
	}
	if !strings.EqualFold(parts[0], scheme) || parts[1] == "" {
		return "", ErrAuthentication
	}
	return parts[1], nil
}

type Parser interface {
	ParseAccessToken(raw string) (*tokens.AccessClaims, error)
}

// RequireAuth rejects requests without a valid access token and stores
// the parsed claims under ClaimsKey.
func RequireAuth(p Parser) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			l := logging.FromContext(c.Request().Context()).With("mw", "require_auth")

			raw, err := BearerToken(c.Request().Header.Get(echo.HeaderAuthorization))
			if err != nil {
				l.Warn("auth_failed", "status", 401, "reason", "missing or malformed authorization header")
				return echo.NewHTTPError(http.StatusUnauthorized, ErrAuthentication.Error())
			}

			claims, err := p.ParseAccessToken(raw)
			if err != nil {
				l.Warn("auth_failed", "status", 401, "error", err)
				return echo.NewHTTPError(http.StatusUnauthorized, ErrAuthentication.Error())
			}

			c.Set(ClaimsKey, claims)
			return next(c)
		}
	}
}

func ClaimsFrom(c echo.Context) (*tokens.AccessClaims, bool) {
	claims, ok := c.Get(ClaimsKey).(*tokens.AccessClaims)
	return claims, ok
}
