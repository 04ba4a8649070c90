package httpserver

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/personal_cloud/internal/handlers"
	authmw "github.com/Skotchmaster/personal_cloud/internal/middleware/auth"
)

type Deps struct {
	AuthHandler  *handlers.AuthHandler
	FilesHandler *handlers.FilesHandler
	Auth         *authmw.Middleware
}

func Register(e *echo.Echo, d *Deps) {
	e.GET("/health/live", func(c echo.Context) error { return c.NoContent(http.StatusOK) })
	e.GET("/health/ready", func(c echo.Context) error { return c.NoContent(http.StatusOK) })

	e.GET("/", func(c echo.Context) error {
		return c.String(http.StatusOK, "Personal Cloud Server is running!")
	})

	e.POST("/register", d.AuthHandler.Register)
	e.POST("/login", d.AuthHandler.Login)
	e.POST("/login/google", d.AuthHandler.GoogleLogin)
	e.POST("/token/refresh", d.AuthHandler.Refresh)

	private := e.Group("", d.Auth.RequireAuth)
	private.GET("/files", d.FilesHandler.List)
	private.POST("/upload", d.FilesHandler.Upload)
	private.GET("/download/:filename", d.FilesHandler.Download)
	private.DELETE("/delete/:filename", d.FilesHandler.Delete)
	private.PUT("/rename", d.FilesHandler.Rename)
}
