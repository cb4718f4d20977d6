package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"webdesk/models"
	"webdesk/repository"
	"webdesk/storage"
	"webdesk/utils"
)

type AuthConfig struct {
	JWTSecret  string
	Issuer     string
	TokenTTL   time.Duration
	BcryptCost int
}

type RegisterInput struct {
	Username        string `json:"username" binding:"required"`
	Email           string `json:"email" binding:"required"`
	Password        string `json:"password" binding:"required"`
	NewsletterOptIn bool   `json:"newsletter_opt_in"`
}

type AuthResult struct {
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expires_at"`
	User      *models.User `json:"user"`
}

type AuthService struct {
	users    repository.UserRepository
	store    storage.Store
	notifier Notifier
	cfg      AuthConfig
	logger   *zap.Logger
}

func NewAuthService(users repository.UserRepository, store storage.Store, notifier Notifier, cfg AuthConfig, logger *zap.Logger) *AuthService {
	if cfg.TokenTTL == 0 {
		cfg.TokenTTL = 24 * time.Hour
	}
	if cfg.BcryptCost == 0 {
		cfg.BcryptCost = bcrypt.DefaultCost
	}
	return &AuthService{
		users:    users,
		store:    store,
		notifier: notifier,
		cfg:      cfg,
		logger:   logger.Named("auth"),
	}
}

func (s *AuthService) Register(ctx context.Context, input RegisterInput) (*AuthResult, error) {
	username := strings.TrimSpace(input.Username)
	email := strings.ToLower(strings.TrimSpace(input.Email))

	if err := utils.ValidateUsername(username); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	if err := utils.ValidateEmail(email); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	if err := utils.ValidatePassword(input.Password); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}

	hash, err := hashPassword(input.Password, s.cfg.BcryptCost)
	if err != nil {
		return nil, err
	}

	user := &models.User{
		Username:        username,
		Email:           email,
		DirName:         utils.SanitizeUsername(username),
		PasswordHash:    hash,
		Role:            models.RoleUser,
		NewsletterOptIn: input.NewsletterOptIn,
	}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, ErrDuplicate
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	if err := s.store.EnsureUserDirectory(ctx, user.DirName); err != nil {
		// uploads create the directory again, so this is not fatal
		s.logger.Warn("Failed to create user directory", zap.String("user_id", user.ID), zap.Error(err))
	}

	if err := s.notifier.NotifyAccountCreated(ctx, user); err != nil {
		s.logger.Warn("Welcome email not delivered", zap.String("user_id", user.ID), zap.Error(err))
	}

	s.logger.Info("User registered", zap.String("user_id", user.ID), zap.String("username", user.Username))
	return s.issue(user)
}

func (s *AuthService) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	user, err := s.users.FindByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUnauthorized
		}
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, ErrUnauthorized
	}
	return s.issue(user)
}

func (s *AuthService) issue(user *models.User) (*AuthResult, error) {
	expiresAt := time.Now().Add(s.cfg.TokenTTL)
	token, err := utils.GenerateJWTTokenWithSecret(user, s.cfg.JWTSecret, s.cfg.Issuer, utils.PurposeAccess, s.cfg.TokenTTL)
	if err != nil {
		return nil, fmt.Errorf("failed to issue token: %w", err)
	}
	return &AuthResult{Token: token, ExpiresAt: expiresAt, User: user}, nil
}

func hashPassword(password string, cost int) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hash), nil
}
