package routes

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-git/go-billy/v5/memfs"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"webdesk/config"
	"webdesk/models"
	"webdesk/repository"
	"webdesk/services"
	"webdesk/storage"
	"webdesk/utils"
)

const testSecret = "route-test-secret"

type envelope struct {
	Success   bool            `json:"success"`
	Message   string          `json:"message"`
	Data      json.RawMessage `json:"data"`
	RequestID string          `json:"request_id"`
}

type testServer struct {
	router *gin.Engine
	repos  *repository.Repositories
}

func newTestServer(t *testing.T, maxFileSize int64) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := repository.OpenGorm(repository.DriverSQLite, fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString()))
	require.NoError(t, err)
	repos := repository.NewGormRepositories(db)
	t.Cleanup(func() { _ = repos.Close(context.Background()) })

	logger := zap.NewNop()
	store := storage.NewLocalStoreFS(memfs.New(), "/storage")
	notifier := services.NewLogNotifier(logger)
	locks := services.NewRecordLocks()

	quota := services.NewQuotaService(repos.Files, repos.Users, notifier, 0, services.AlertModeLevel, nil, logger)
	files := services.NewFileService(repos.Files, repos.Users, store, quota, locks, maxFileSize, logger)
	container := &ServiceContainer{
		JWTSecret:   testSecret,
		MaxFileSize: maxFileSize,
		AuthService: services.NewAuthService(repos.Users, store, notifier, services.AuthConfig{
			JWTSecret:  testSecret,
			Issuer:     "webdesk",
			BcryptCost: bcrypt.MinCost,
		}, logger),
		AccountService: services.NewAccountService(repos.Users, repos.Files, store, quota, notifier, services.AccountConfig{
			JWTSecret:  testSecret,
			Issuer:     "webdesk",
			BcryptCost: bcrypt.MinCost,
		}, logger),
		FileService:      files,
		TrashService:     services.NewTrashService(repos.Files, repos.Users, store, locks, 30*24*time.Hour, logger),
		QuotaService:     quota,
		MessagingService: services.NewMessagingService(repos.Users, notifier, logger),
	}

	return &testServer{
		router: NewRouter(container, RouterOptions{AllowedOrigins: []string{"https://desk.example.com"}}),
		repos:  repos,
	}
}

func (s *testServer) do(t *testing.T, req *http.Request, token string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	var env envelope
	if w.Body.Len() > 0 && w.Header().Get("Content-Type") == "application/json; charset=utf-8" {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	}
	return w, env
}

func (s *testServer) doJSON(t *testing.T, method, path, token string, body interface{}) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	return s.do(t, req, token)
}

func (s *testServer) upload(t *testing.T, token, name string, content []byte) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", name)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/upload", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return s.do(t, req, token)
}

func (s *testServer) register(t *testing.T, username string) string {
	t.Helper()
	w, env := s.doJSON(t, http.MethodPost, "/api/auth/register", "", gin.H{
		"username": username,
		"email":    username + "@example.com",
		"password": "correct horse",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var result struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &result))
	require.NotEmpty(t, result.Token)
	return result.Token
}

func decode[T any](t *testing.T, env envelope) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(env.Data, &v))
	return v
}

func TestFileLifecycleOverHTTP(t *testing.T) {
	s := newTestServer(t, 0)
	token := s.register(t, "alice")

	w, env := s.upload(t, token, "report.pdf", []byte("%PDF-1.4 test"))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	uploaded := decode[models.File](t, env)
	assert.Equal(t, "/storage/alice/report.pdf", uploaded.LogicalPath)
	assert.Equal(t, models.CategoryDocuments, uploaded.Category)
	assert.Empty(t, uploaded.PhysicalPath, "physical path must not leak")
	assert.NotEmpty(t, env.RequestID)

	w, env = s.doJSON(t, http.MethodGet, "/api/files", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]models.File](t, env), 1)

	// permanent delete needs the file in the bin first
	w, _ = s.doJSON(t, http.MethodDelete, "/api/files/permanent/"+uploaded.ID, token, nil)
	assert.Equal(t, http.StatusConflict, w.Code)

	w, _ = s.doJSON(t, http.MethodDelete, "/api/files/"+uploaded.ID, token, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w, env = s.doJSON(t, http.MethodGet, "/api/files/bin", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	bin := decode[[]models.BinItem](t, env)
	require.Len(t, bin, 1)
	assert.NotNil(t, bin[0].AutoPurgeAt)

	w, env = s.doJSON(t, http.MethodPost, "/api/files/restore/"+uploaded.ID, token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, models.StateActive, decode[models.File](t, env).State)

	w, _ = s.doJSON(t, http.MethodDelete, "/api/files/"+uploaded.ID, token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	w, _ = s.doJSON(t, http.MethodDelete, "/api/files/permanent/"+uploaded.ID, token, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w, _ = s.doJSON(t, http.MethodPost, "/api/files/restore/"+uploaded.ID, token, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestEmptyBinAndUsageOverHTTP(t *testing.T) {
	s := newTestServer(t, 0)
	token := s.register(t, "alice")

	for _, name := range []string{"a.txt", "b.txt"} {
		w, env := s.upload(t, token, name, []byte("0123456789"))
		require.Equal(t, http.StatusCreated, w.Code)
		w, _ = s.doJSON(t, http.MethodDelete, "/api/files/"+decode[models.File](t, env).ID, token, nil)
		require.Equal(t, http.StatusOK, w.Code)
	}
	w, _ := s.upload(t, token, "keep.txt", []byte("01234"))
	require.Equal(t, http.StatusCreated, w.Code)

	w, env := s.doJSON(t, http.MethodGet, "/api/files/usage", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	usage := decode[models.StorageUsage](t, env)
	assert.Equal(t, int64(5), usage.UsedBytes)
	assert.Equal(t, models.DefaultStorageLimit, usage.LimitBytes)

	w, env = s.doJSON(t, http.MethodPost, "/api/files/empty-bin", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 2, decode[models.EmptyBinResult](t, env).Purged)
}

func TestOwnershipOverHTTP(t *testing.T) {
	s := newTestServer(t, 0)
	alice := s.register(t, "alice")
	bob := s.register(t, "bob")

	w, env := s.upload(t, alice, "secret.txt", []byte("alice only"))
	require.Equal(t, http.StatusCreated, w.Code)
	id := decode[models.File](t, env).ID

	w, _ = s.doJSON(t, http.MethodDelete, "/api/files/"+id, bob, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w, env = s.doJSON(t, http.MethodGet, "/api/files", bob, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, decode[[]models.File](t, env))
}

func TestAuthenticationOverHTTP(t *testing.T) {
	s := newTestServer(t, 0)
	s.register(t, "alice")

	w, _ := s.doJSON(t, http.MethodGet, "/api/files", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	w, _ = s.doJSON(t, http.MethodGet, "/api/files", "not-a-token", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w, _ = s.doJSON(t, http.MethodPost, "/api/auth/login", "", gin.H{"email": "alice@example.com", "password": "wrong password"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w, env := s.doJSON(t, http.MethodPost, "/api/auth/login", "", gin.H{"email": "alice@example.com", "password": "correct horse"})
	require.Equal(t, http.StatusOK, w.Code)
	token := decode[services.AuthResult](t, env).Token

	w, env = s.doJSON(t, http.MethodGet, "/api/account", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "alice", decode[models.User](t, env).Username)

	w, _ = s.doJSON(t, http.MethodPost, "/api/auth/register", "", gin.H{
		"username": "alice",
		"email":    "other@example.com",
		"password": "correct horse",
	})
	assert.Equal(t, http.StatusConflict, w.Code)

	w, _ = s.doJSON(t, http.MethodPost, "/api/auth/register", "", gin.H{"username": "x"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// unknown addresses get the same answer
	w, _ = s.doJSON(t, http.MethodPost, "/api/auth/password-reset", "", gin.H{"email": "nobody@example.com"})
	assert.Equal(t, http.StatusOK, w.Code)

	w, _ = s.doJSON(t, http.MethodPost, "/api/auth/password-reset/confirm", "", gin.H{"token": token, "password": "brand new password"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAccountDeletionOverHTTP(t *testing.T) {
	s := newTestServer(t, 0)
	token := s.register(t, "alice")

	w, _ := s.upload(t, token, "a.txt", []byte("a"))
	require.Equal(t, http.StatusCreated, w.Code)

	w, _ = s.doJSON(t, http.MethodDelete, "/api/account", token, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w, _ = s.doJSON(t, http.MethodGet, "/api/account", token, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	// the token is still valid but its account is gone
	w, _ = s.upload(t, token, "late.txt", []byte("late"))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestUploadLimitsOverHTTP(t *testing.T) {
	s := newTestServer(t, 16)
	token := s.register(t, "alice")

	w, _ := s.upload(t, token, "big.bin", bytes.Repeat([]byte("x"), 64))
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)

	req := httptest.NewRequest(http.MethodPost, "/api/upload", nil)
	w, _ = s.do(t, req, token)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestDefaultConfigHasNoPerFileCap(t *testing.T) {
	cfg, err := config.Load()
	require.NoError(t, err)

	s := newTestServer(t, cfg.MaxFileSize)
	token := s.register(t, "alice")

	content := bytes.Repeat([]byte("x"), 8<<20)
	w, env := s.upload(t, token, "large.bin", content)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Equal(t, int64(len(content)), decode[models.File](t, env).SizeBytes)
}

func TestAdminRoutesOverHTTP(t *testing.T) {
	s := newTestServer(t, 0)
	userToken := s.register(t, "alice")

	w, _ := s.doJSON(t, http.MethodPost, "/api/admin/broadcast", userToken, gin.H{"subject": "s", "body": "b"})
	assert.Equal(t, http.StatusForbidden, w.Code)

	admin := &models.User{Username: "root", Email: "root@example.com", DirName: "root", PasswordHash: "x", Role: models.RoleAdmin}
	require.NoError(t, s.repos.Users.Create(context.Background(), admin))
	adminToken, err := utils.GenerateJWTTokenWithSecret(admin, testSecret, "webdesk", utils.PurposeAccess, time.Hour)
	require.NoError(t, err)

	w, _ = s.doJSON(t, http.MethodPost, "/api/admin/broadcast", adminToken, gin.H{"subject": "s"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// mail is not configured in this server
	w, _ = s.doJSON(t, http.MethodPost, "/api/admin/broadcast", adminToken, gin.H{"subject": "s", "body": "b"})
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	w, _ = s.doJSON(t, http.MethodPost, "/api/support", "", gin.H{
		"name":    "Bob",
		"email":   "bob@example.com",
		"subject": "Help",
		"message": "Please",
	})
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestPublicEndpoints(t *testing.T) {
	s := newTestServer(t, 0)

	w, _ := s.doJSON(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	w, _ = s.do(t, req, "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "webdesk_http_requests_total")

	req = httptest.NewRequest(http.MethodOptions, "/api/files", nil)
	req.Header.Set("Origin", "https://desk.example.com")
	w, _ = s.do(t, req, "")
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "https://desk.example.com", w.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("X-Request-ID", "abc-123")
	w, _ = s.do(t, req, "")
	assert.Equal(t, "abc-123", w.Header().Get("X-Request-ID"))
}
