package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/Skotchmaster/personal_cloud/internal/config"
	"github.com/Skotchmaster/personal_cloud/internal/googleauth"
	"github.com/Skotchmaster/personal_cloud/internal/handlers"
	"github.com/Skotchmaster/personal_cloud/internal/logging"
	authmw "github.com/Skotchmaster/personal_cloud/internal/middleware/auth"
	loggingmw "github.com/Skotchmaster/personal_cloud/internal/middleware/logging"
	"github.com/Skotchmaster/personal_cloud/internal/mykafka"
	"github.com/Skotchmaster/personal_cloud/internal/repo"
	"github.com/Skotchmaster/personal_cloud/internal/service"
	"github.com/Skotchmaster/personal_cloud/internal/storage"
	"github.com/Skotchmaster/personal_cloud/internal/tokens"
	httpserver "github.com/Skotchmaster/personal_cloud/internal/transport/http"
)

func main() {
	configuration, err := config.LoadConfig()
	if err != nil {
		log.Fatal(err)
	}

	logger := logging.New(configuration.LOG_LEVEL)

	db, err := config.InitDB(configuration)
	if err != nil {
		log.Fatalf("db init error: %v", err)
	}

	if err := os.MkdirAll(configuration.UPLOAD_FOLDER, 0o755); err != nil {
		log.Fatalf("upload folder error: %v", err)
	}

	var prod *mykafka.Producer
	if configuration.KAFKA_ADDRESS != "" {
		prod, err = mykafka.NewProducer(
			[]string{configuration.KAFKA_ADDRESS},
			[]string{"account_events", "file_events"},
		)
		if err != nil {
			log.Fatalf("kafka init error: %v", err)
		}
	}

	userRepo := &repo.GormRepo{DB: db}
	allocator := &storage.Allocator{BaseDir: configuration.UPLOAD_FOLDER}
	tokenService := &tokens.Service{
		Secret:     []byte(configuration.SECRET_KEY),
		AccessTTL:  configuration.ACCESS_TOKEN_TTL,
		RefreshTTL: configuration.REFRESH_TOKEN_TTL,
	}
	authService := &service.AuthService{
		Repo:      userRepo,
		Tokens:    tokenService,
		Verifier:  googleauth.NewGoogleVerifier(configuration.GOOGLE_CLIENT_ID),
		Allocator: allocator,
	}

	e := echo.New()
	e.Pre(middleware.RemoveTrailingSlash())
	e.Use(middleware.Recover(), middleware.RequestID(), middleware.CORS())
	e.Use(middleware.BodyLimit("100M"))
	e.Use(loggingmw.RequestLogger(logger))

	httpserver.Register(e, &httpserver.Deps{
		AuthHandler:  &handlers.AuthHandler{Svc: authService, Producer: prod},
		FilesHandler: &handlers.FilesHandler{Allocator: allocator, Producer: prod},
		Auth:         &authmw.Middleware{Tokens: tokenService, Repo: userRepo},
	})

	srv := &http.Server{
		Addr:         ":" + configuration.SERVER_PORT,
		Handler:      e,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("http server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("server shutdown error: %v", err)
	}

	if sqlDB, err := db.DB(); err == nil {
		if err := sqlDB.Close(); err != nil {
			log.Printf("db close error: %v", err)
		}
	} else {
		log.Printf("db() error: %v", err)
	}

	if err := prod.Close(); err != nil {
		log.Printf("kafka close error: %v", err)
	}

	log.Println("shutdown complete")
}
