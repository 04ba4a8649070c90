package loggingmw

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"

	"github.com/Skotchmaster/personal_cloud/internal/models"
)

func TestRequestLoggerCompletionLine(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	e := echo.New()
	e.Use(RequestLogger(logger))
	e.GET("/files", func(c echo.Context) error {
		// what the auth middleware does once the bearer token resolves
		c.Set("current_user", &models.User{ID: 7})
		return c.NoContent(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/files", nil)
	req.Header.Set(echo.HeaderXRequestID, "req-123")
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	line := buf.String()
	require.Contains(t, line, `"msg":"request completed"`)
	require.Contains(t, line, `"status":200`)
	require.Contains(t, line, `"request_id":"req-123"`)
	require.Contains(t, line, `"user_id":7`)
}

func TestRequestLoggerAnonymousRequest(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	e := echo.New()
	e.Use(RequestLogger(logger))
	e.GET("/", func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	})

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	line := buf.String()
	require.Contains(t, line, `"status":200`)
	require.NotContains(t, line, "user_id")
}
