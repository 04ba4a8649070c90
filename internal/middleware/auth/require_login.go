package auth

import (
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/personal_cloud/internal/models"
	"github.com/Skotchmaster/personal_cloud/internal/repo"
	"github.com/Skotchmaster/personal_cloud/internal/tokens"
)

const userContextKey = "current_user"

// Middleware resolves the bearer access token and injects the account into
// the echo context. A missing or invalid token is rejected before any handler
// runs.
type Middleware struct {
	Tokens *tokens.Service
	Repo   *repo.GormRepo
}

func (m *Middleware) RequireAuth(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		header := c.Request().Header.Get(echo.HeaderAuthorization)
		if header == "" {
			return echo.NewHTTPError(http.StatusUnauthorized, "authentication token is missing")
		}

		scheme, raw, found := strings.Cut(header, " ")
		if !found || !strings.EqualFold(scheme, "Bearer") || raw == "" {
			return echo.NewHTTPError(http.StatusUnauthorized, "malformed Authorization header")
		}

		userID, err := m.Tokens.Parse(raw, tokens.TypeAccess)
		if err != nil {
			if errors.Is(err, tokens.ErrExpired) {
				return echo.NewHTTPError(http.StatusUnauthorized, "access token has expired")
			}
			return echo.NewHTTPError(http.StatusUnauthorized, "invalid access token")
		}

		user, err := m.Repo.FindByID(c.Request().Context(), userID)
		if err != nil {
			if errors.Is(err, repo.ErrUserNotFound) {
				return echo.NewHTTPError(http.StatusUnauthorized, "user not found")
			}
			return echo.NewHTTPError(http.StatusInternalServerError, "cannot resolve user")
		}

		c.Set(userContextKey, user)
		return next(c)
	}
}

// CurrentUser returns the account stored by RequireAuth; nil outside of
// authenticated routes.
func CurrentUser(c echo.Context) *models.User {
	if u, ok := c.Get(userContextKey).(*models.User); ok {
		return u
	}
	return nil
}
