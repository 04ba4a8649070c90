package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/Skotchmaster/personal_cloud/internal/googleauth"
	"github.com/Skotchmaster/personal_cloud/internal/handlers"
	authmw "github.com/Skotchmaster/personal_cloud/internal/middleware/auth"
	"github.com/Skotchmaster/personal_cloud/internal/models"
	"github.com/Skotchmaster/personal_cloud/internal/repo"
	"github.com/Skotchmaster/personal_cloud/internal/service"
	"github.com/Skotchmaster/personal_cloud/internal/storage"
	"github.com/Skotchmaster/personal_cloud/internal/tokens"
	httpserver "github.com/Skotchmaster/personal_cloud/internal/transport/http"
)

type fakeVerifier struct {
	claims *googleauth.Claims
	err    error
}

func (f *fakeVerifier) Verify(ctx context.Context, rawToken string) (*googleauth.Claims, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.claims, nil
}

type testEnv struct {
	T         *testing.T
	E         *echo.Echo
	DB        *gorm.DB
	Repo      *repo.GormRepo
	Tokens    *tokens.Service
	Allocator *storage.Allocator
	Verifier  *fakeVerifier
}

func initTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{TranslateError: true})
	if err != nil {
		t.Fatalf("failed to connect to in-memory db: %v", err)
	}
	if err := db.AutoMigrate(&models.User{}); err != nil {
		t.Fatalf("failed to migrate tables: %v", err)
	}
	return db
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db := initTestDB(t)
	userRepo := &repo.GormRepo{DB: db}
	allocator := &storage.Allocator{BaseDir: t.TempDir()}
	tokenService := &tokens.Service{
		Secret:     []byte("test_secret"),
		AccessTTL:  time.Hour,
		RefreshTTL: 30 * 24 * time.Hour,
	}
	verifier := &fakeVerifier{}

	authService := &service.AuthService{
		Repo:      userRepo,
		Tokens:    tokenService,
		Verifier:  verifier,
		Allocator: allocator,
	}

	e := echo.New()
	httpserver.Register(e, &httpserver.Deps{
		AuthHandler:  &handlers.AuthHandler{Svc: authService},
		FilesHandler: &handlers.FilesHandler{Allocator: allocator},
		Auth:         &authmw.Middleware{Tokens: tokenService, Repo: userRepo},
	})

	return &testEnv{
		T:         t,
		E:         e,
		DB:        db,
		Repo:      userRepo,
		Tokens:    tokenService,
		Allocator: allocator,
		Verifier:  verifier,
	}
}

func (env *testEnv) doJSON(method, path string, body interface{}, token string) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		require.NoError(env.T, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	env.E.ServeHTTP(rec, req)
	return rec
}

func (env *testEnv) doUpload(filename, content, token string) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", filename)
	require.NoError(env.T, err)
	_, err = io.WriteString(fw, content)
	require.NoError(env.T, err)
	require.NoError(env.T, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/upload", &buf)
	req.Header.Set(echo.HeaderContentType, mw.FormDataContentType())
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	env.E.ServeHTTP(rec, req)
	return rec
}

func decodeJSON(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

// register + login, returns the token pair
func loginUser(t *testing.T, env *testEnv, username, email, password string) (string, string) {
	t.Helper()

	rec := env.doJSON(http.MethodPost, "/register", map[string]string{
		"username": username,
		"email":    email,
		"password": password,
	}, "")
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = env.doJSON(http.MethodPost, "/login", map[string]string{
		"login_identifier": username,
		"password":         password,
	}, "")
	require.Equal(t, http.StatusOK, rec.Code)

	resp := decodeJSON(t, rec)
	access, _ := resp["access_token"].(string)
	refresh, _ := resp["refresh_token"].(string)
	require.NotEmpty(t, access)
	require.NotEmpty(t, refresh)
	return access, refresh
}
