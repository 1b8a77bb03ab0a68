package httpserver

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/notes_auth/internal/hash"
	"github.com/Skotchmaster/notes_auth/internal/service"
	"github.com/Skotchmaster/notes_auth/internal/tokengen"
)

// statusOf maps service errors to the status and message the API returns.
func statusOf(err error) (int, string) {
	var ve *service.ValidationError
	switch {
	case errors.As(err, &ve):
		return http.StatusNotFound, ve.Message
	case errors.Is(err, service.ErrDuplicateUsername):
		return http.StatusNotFound, service.ErrDuplicateUsername.Error()
	case errors.Is(err, service.ErrDuplicateEmail):
		return http.StatusUnauthorized, service.ErrDuplicateEmail.Error()
	case errors.Is(err, service.ErrInvalidCredentials):
		return http.StatusUnauthorized, service.ErrInvalidCredentials.Error()
	case errors.Is(err, service.ErrMissingRefreshToken):
		return http.StatusUnauthorized, service.ErrMissingRefreshToken.Error()
	case errors.Is(err, service.ErrInvalidRefreshToken):
		return http.StatusNotFound, service.ErrInvalidRefreshToken.Error()
	case errors.Is(err, service.ErrRefreshTokenExpired):
		return http.StatusNotFound, service.ErrRefreshTokenExpired.Error()
	case errors.Is(err, service.ErrUserNotFound):
		return http.StatusNotFound, service.ErrUserNotFound.Error()
	case errors.Is(err, tokengen.ErrTokenGenerationExhausted):
		return http.StatusInternalServerError, "TOKEN_GENERATION_EXHAUSTED"
	case errors.Is(err, hash.ErrHashing):
		return http.StatusBadRequest, "HASHING_ERROR"
	case errors.Is(err, service.ErrPersistence):
		return http.StatusBadRequest, "PERSISTENCE_ERROR"
	default:
		return http.StatusInternalServerError, "INTERNAL_ERROR"
	}
}

func httpError(err error) *echo.HTTPError {
	code, msg := statusOf(err)
	return echo.NewHTTPError(code, msg).SetInternal(err)
}
