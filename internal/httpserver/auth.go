package httpserver

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/notes_auth/internal/logging"
	mwauth "github.com/Skotchmaster/notes_auth/internal/middleware/auth"
	"github.com/Skotchmaster/notes_auth/internal/service"
	"github.com/Skotchmaster/notes_auth/internal/transport"
	"github.com/Skotchmaster/notes_auth/internal/util"
)

type AuthHTTP struct {
	Svc *service.AuthService
}

func (h *AuthHTTP) Signup(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth_signup")

	var req transport.SignupRequest
	if err := c.Bind(&req); err != nil {
		l.Warn("signup_error", "status", 400, "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	id, err := h.Svc.Signup(ctx, service.SignupInput{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Username:  req.Username,
		Email:     req.Email,
		Password:  req.Password,
	}, clientMeta(c))
	if err != nil {
		return httpError(err)
	}

	return c.JSON(http.StatusOK, transport.SignupResponse{ID: id})
}

func (h *AuthHTTP) Authenticate(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth_authenticate")

	var req transport.AuthenticateRequest
	if err := c.Bind(&req); err != nil {
		l.Warn("authenticate_error", "status", 400, "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	pair, err := h.Svc.Authenticate(ctx, service.AuthenticateInput{
		Username: req.Username,
		Password: req.Password,
	}, clientMeta(c))
	if err != nil {
		return httpError(err)
	}

	return c.JSON(http.StatusOK, transport.TokenResponse{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
	})
}

func (h *AuthHTTP) RefreshAccessToken(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth_refresh")

	var req transport.RefreshRequest
	if err := c.Bind(&req); err != nil {
		l.Warn("refresh_error", "status", 400, "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	pair, err := h.Svc.RefreshAccessToken(ctx, service.RefreshInput{
		Username:     req.Username,
		RefreshToken: req.RefreshToken,
	}, clientMeta(c))
	if err != nil {
		return httpError(err)
	}

	return c.JSON(http.StatusOK, transport.TokenResponse{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
	})
}

func (h *AuthHTTP) Logout(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth_logout")

	var req transport.RefreshRequest
	if err := c.Bind(&req); err != nil {
		l.Warn("logout_error", "status", 400, "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	if err := h.Svc.Logout(ctx, service.RefreshInput{
		Username:     req.Username,
		RefreshToken: req.RefreshToken,
	}); err != nil {
		return httpError(err)
	}

	return c.JSON(http.StatusOK, transport.MessageResponse{Message: "logged out"})
}

func (h *AuthHTTP) Private(c echo.Context) error {
	claims, ok := mwauth.ClaimsFrom(c)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, mwauth.ErrAuthentication.Error())
	}
	return c.JSON(http.StatusOK, transport.MessageResponse{Message: claims.Data})
}

// ListUsers returns every user unless the page query parameter asks for one page.
func (h *AuthHTTP) ListUsers(c echo.Context) error {
	var offset, limit int
	if c.QueryParam("page") != "" {
		page, err := strconv.Atoi(c.QueryParam("page"))
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid page")
		}
		size, _ := strconv.Atoi(c.QueryParam("size"))
		offset, limit = util.Calculate(page, size)
	}

	users, err := h.Svc.ListUsers(c.Request().Context(), offset, limit)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, users)
}

func (h *AuthHTTP) GetUser(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	user, err := h.Svc.GetUser(c.Request().Context(), uint(id))
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, user)
}
