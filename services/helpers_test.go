package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"testing"
	"time"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/memfs"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"webdesk/models"
	"webdesk/repository"
	"webdesk/storage"
)

type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) NotifyAccountCreated(ctx context.Context, user *models.User) error {
	return m.Called(ctx, user).Error(0)
}

func (m *MockNotifier) NotifyAccountUpdated(ctx context.Context, user *models.User, changes []string) error {
	return m.Called(ctx, user, changes).Error(0)
}

func (m *MockNotifier) NotifyAccountDeleted(ctx context.Context, user *models.User) error {
	return m.Called(ctx, user).Error(0)
}

func (m *MockNotifier) NotifyPasswordReset(ctx context.Context, user *models.User, resetURL string, expiresIn time.Duration) error {
	return m.Called(ctx, user, resetURL, expiresIn).Error(0)
}

func (m *MockNotifier) NotifyStorageAlert(ctx context.Context, alert StorageAlert) error {
	return m.Called(ctx, alert).Error(0)
}

func (m *MockNotifier) NotifyBroadcast(ctx context.Context, recipients []string, subject, body string) error {
	return m.Called(ctx, recipients, subject, body).Error(0)
}

func (m *MockNotifier) NotifyNewsletter(ctx context.Context, recipients []string, title, body, imageURL string) error {
	return m.Called(ctx, recipients, title, body, imageURL).Error(0)
}

func (m *MockNotifier) NotifySupportRequest(ctx context.Context, req SupportRequest) error {
	return m.Called(ctx, req).Error(0)
}

// flakyStore fails selected operations of an otherwise working store.
type flakyStore struct {
	storage.Store
	failWrite  bool
	failDelete bool
}

func (s *flakyStore) WriteFile(ctx context.Context, user, name, contentType string, r io.Reader) (string, int64, error) {
	if s.failWrite {
		return "", 0, errors.New("disk full")
	}
	return s.Store.WriteFile(ctx, user, name, contentType, r)
}

func (s *flakyStore) DeleteFile(ctx context.Context, physicalPath string) error {
	if s.failDelete {
		return errors.New("permission denied")
	}
	return s.Store.DeleteFile(ctx, physicalPath)
}

// memoryTierStore is an in-process TierStore for edge mode tests.
type memoryTierStore struct {
	tiers map[string]int
}

func (m *memoryTierStore) LastTier(_ context.Context, userID string) (int, error) {
	return m.tiers[userID], nil
}

func (m *memoryTierStore) SetTier(_ context.Context, userID string, tier int) error {
	m.tiers[userID] = tier
	return nil
}

func (m *memoryTierStore) Forget(_ context.Context, userID string) error {
	delete(m.tiers, userID)
	return nil
}

type testEnv struct {
	repos    *repository.Repositories
	fs       billy.Filesystem
	local    *storage.LocalStore
	store    *flakyStore
	notifier *MockNotifier
	quota    *QuotaService
	files    *FileService
	trash    *TrashService
	accounts *AccountService
	auth     *AuthService
}

type envOption func(*envConfig)

type envConfig struct {
	limit int64
	mode  AlertMode
	tiers TierStore
}

func withLimit(limit int64) envOption {
	return func(c *envConfig) { c.limit = limit }
}

func withEdgeMode(tiers TierStore) envOption {
	return func(c *envConfig) {
		c.mode = AlertModeEdge
		c.tiers = tiers
	}
}

func newTestEnv(t *testing.T, opts ...envOption) *testEnv {
	t.Helper()

	cfg := envConfig{limit: models.DefaultStorageLimit, mode: AlertModeLevel}
	for _, opt := range opts {
		opt(&cfg)
	}

	db, err := repository.OpenGorm(repository.DriverSQLite, fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString()))
	require.NoError(t, err)
	repos := repository.NewGormRepositories(db)
	t.Cleanup(func() { _ = repos.Close(context.Background()) })

	logger := zap.NewNop()
	fs := memfs.New()
	local := storage.NewLocalStoreFS(fs, "/storage")
	store := &flakyStore{Store: local}
	notifier := &MockNotifier{}
	locks := NewRecordLocks()

	quota := NewQuotaService(repos.Files, repos.Users, notifier, cfg.limit, cfg.mode, cfg.tiers, logger)
	env := &testEnv{
		repos:    repos,
		fs:       fs,
		local:    local,
		store:    store,
		notifier: notifier,
		quota:    quota,
		files:    NewFileService(repos.Files, repos.Users, store, quota, locks, 0, logger),
		trash:    NewTrashService(repos.Files, repos.Users, store, locks, 30*24*time.Hour, logger),
		accounts: NewAccountService(repos.Users, repos.Files, store, quota, notifier, AccountConfig{
			JWTSecret:  "test-secret",
			Issuer:     "webdesk",
			ResetURL:   "https://desk.example.com/reset",
			BcryptCost: bcrypt.MinCost,
		}, logger),
		auth: NewAuthService(repos.Users, store, notifier, AuthConfig{
			JWTSecret:  "test-secret",
			Issuer:     "webdesk",
			TokenTTL:   time.Hour,
			BcryptCost: bcrypt.MinCost,
		}, logger),
	}
	return env
}

// addUser stores a user and returns the identity a request would carry.
func (e *testEnv) addUser(t *testing.T, username string) Identity {
	t.Helper()
	user := &models.User{
		Username:     username,
		Email:        username + "@example.com",
		PasswordHash: "unused",
	}
	require.NoError(t, e.repos.Users.Create(context.Background(), user))
	return Identity{UserID: user.ID, Username: user.Username, Email: user.Email, Role: user.Role}
}

// seedActive records an active file of the given size without writing bytes.
func (e *testEnv) seedActive(t *testing.T, id Identity, name string, size int64) *models.File {
	t.Helper()
	f := &models.File{
		Name:         name,
		LogicalPath:  "/storage/" + id.Username + "/" + name,
		PhysicalPath: "/seed/" + id.Username + "/" + name,
		MimeType:     "application/octet-stream",
		SizeBytes:    size,
		Category:     models.CategoryDocuments,
		OwnerID:      id.UserID,
	}
	require.NoError(t, e.repos.Files.Create(context.Background(), f))
	return f
}

func (e *testEnv) countState(t *testing.T, id Identity, state models.FileState) int {
	t.Helper()
	files, err := e.repos.Files.ListByOwner(context.Background(), id.UserID, state)
	require.NoError(t, err)
	return len(files)
}
