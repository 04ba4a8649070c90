package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/personal_cloud/internal/googleauth"
	"github.com/Skotchmaster/personal_cloud/internal/logging"
	"github.com/Skotchmaster/personal_cloud/internal/mykafka"
	"github.com/Skotchmaster/personal_cloud/internal/repo"
	"github.com/Skotchmaster/personal_cloud/internal/service"
	"github.com/Skotchmaster/personal_cloud/internal/tokens"
)

type AuthHandler struct {
	Svc      *service.AuthService
	Producer *mykafka.Producer
}

func (h *AuthHandler) publish(c echo.Context, key string, event map[string]any) {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	if err := h.Producer.PublishEvent(ctx, "account_events", key, event); err != nil {
		logging.FromContext(c.Request().Context()).Warn("kafka publish error", "error", err)
	}
}

func (h *AuthHandler) Register(c echo.Context) error {
	var req struct {
		Username string `json:"username"`
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}
	if req.Username == "" || req.Email == "" || req.Password == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "username, email, and password are required")
	}

	user, err := h.Svc.Register(c.Request().Context(), req.Username, req.Email, req.Password)
	if err != nil {
		if errors.Is(err, repo.ErrUserConflict) {
			return echo.NewHTTPError(http.StatusConflict, "a user with this username or email already exists")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "could not create user")
	}

	h.publish(c, fmt.Sprint(user.ID), map[string]any{
		"type":     "user_registered",
		"user_id":  user.ID,
		"username": user.Username,
	})

	return c.JSON(http.StatusCreated, echo.Map{
		"message": fmt.Sprintf("User '%s' created successfully.", user.Username),
	})
}

func (h *AuthHandler) Login(c echo.Context) error {
	var req struct {
		LoginIdentifier string `json:"login_identifier"`
		Password        string `json:"password"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}
	if req.LoginIdentifier == "" || req.Password == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "login identifier and password are required")
	}

	user, pair, err := h.Svc.Login(c.Request().Context(), req.LoginIdentifier, req.Password)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			return echo.NewHTTPError(http.StatusUnauthorized, "invalid credentials")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "login failed")
	}

	h.publish(c, fmt.Sprint(user.ID), map[string]any{
		"type":     "user_logged_in",
		"user_id":  user.ID,
		"username": user.Username,
	})

	return c.JSON(http.StatusOK, echo.Map{
		"message":       "Login successful",
		"access_token":  pair.AccessToken,
		"refresh_token": pair.RefreshToken,
	})
}

func (h *AuthHandler) GoogleLogin(c echo.Context) error {
	var req struct {
		GoogleToken string `json:"google_token"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}
	if req.GoogleToken == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "google id token is required")
	}

	user, pair, err := h.Svc.GoogleLogin(c.Request().Context(), req.GoogleToken)
	if err != nil {
		switch {
		case errors.Is(err, googleauth.ErrInvalidAssertion):
			return echo.NewHTTPError(http.StatusUnauthorized, "invalid google token")
		case errors.Is(err, service.ErrAccountExists):
			return echo.NewHTTPError(http.StatusConflict,
				"an account with this email already exists, sign in with your password to link your google account")
		default:
			return echo.NewHTTPError(http.StatusInternalServerError, "google login failed")
		}
	}

	h.publish(c, fmt.Sprint(user.ID), map[string]any{
		"type":     "user_logged_in_google",
		"user_id":  user.ID,
		"username": user.Username,
	})

	return c.JSON(http.StatusOK, echo.Map{
		"message":       "Google login successful",
		"access_token":  pair.AccessToken,
		"refresh_token": pair.RefreshToken,
	})
}

func (h *AuthHandler) Refresh(c echo.Context) error {
	var req struct {
		RefreshToken string `json:"refresh_token"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}
	if req.RefreshToken == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "refresh token is required")
	}

	accessToken, _, err := h.Svc.Refresh(c.Request().Context(), req.RefreshToken)
	if err != nil {
		switch {
		case errors.Is(err, tokens.ErrExpired):
			return echo.NewHTTPError(http.StatusUnauthorized, "refresh token has expired, please log in again")
		case errors.Is(err, tokens.ErrMalformed):
			return echo.NewHTTPError(http.StatusUnauthorized, "invalid refresh token")
		case errors.Is(err, service.ErrUnknownSubject):
			return echo.NewHTTPError(http.StatusUnauthorized, "user not found")
		default:
			return echo.NewHTTPError(http.StatusInternalServerError, "could not refresh token")
		}
	}

	return c.JSON(http.StatusOK, echo.Map{"access_token": accessToken})
}
