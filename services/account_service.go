package services

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"webdesk/models"
	"webdesk/repository"
	"webdesk/storage"
	"webdesk/utils"
)

type AccountConfig struct {
	JWTSecret     string
	Issuer        string
	ResetTokenTTL time.Duration
	ResetURL      string
	BcryptCost    int
}

// UpdateAccountInput holds the optional changes. Username is fixed at
// registration because it names the storage directory.
type UpdateAccountInput struct {
	Email           *string `json:"email"`
	Password        *string `json:"password"`
	CurrentPassword string  `json:"current_password"`
	NewsletterOptIn *bool   `json:"newsletter_opt_in"`
}

type AccountService struct {
	users    repository.UserRepository
	files    repository.FileRepository
	store    storage.Store
	quota    *QuotaService
	notifier Notifier
	cfg      AccountConfig
	logger   *zap.Logger
}

func NewAccountService(users repository.UserRepository, files repository.FileRepository, store storage.Store, quota *QuotaService, notifier Notifier, cfg AccountConfig, logger *zap.Logger) *AccountService {
	if cfg.ResetTokenTTL == 0 {
		cfg.ResetTokenTTL = 30 * time.Minute
	}
	if cfg.BcryptCost == 0 {
		cfg.BcryptCost = bcrypt.DefaultCost
	}
	return &AccountService{
		users:    users,
		files:    files,
		store:    store,
		quota:    quota,
		notifier: notifier,
		cfg:      cfg,
		logger:   logger.Named("accounts"),
	}
}

func (s *AccountService) Profile(ctx context.Context, identity Identity) (*models.User, error) {
	return s.load(ctx, identity.UserID)
}

func (s *AccountService) Update(ctx context.Context, identity Identity, input UpdateAccountInput) (*models.User, error) {
	user, err := s.load(ctx, identity.UserID)
	if err != nil {
		return nil, err
	}

	var changes []string
	if input.Email != nil {
		email := strings.ToLower(strings.TrimSpace(*input.Email))
		if err := utils.ValidateEmail(email); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrValidation, err)
		}
		if email != user.Email {
			user.Email = email
			changes = append(changes, "email")
		}
	}
	if input.Password != nil {
		if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(input.CurrentPassword)); err != nil {
			return nil, ErrUnauthorized
		}
		if err := utils.ValidatePassword(*input.Password); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrValidation, err)
		}
		hash, err := hashPassword(*input.Password, s.cfg.BcryptCost)
		if err != nil {
			return nil, err
		}
		user.PasswordHash = hash
		changes = append(changes, "password")
	}
	if input.NewsletterOptIn != nil && *input.NewsletterOptIn != user.NewsletterOptIn {
		user.NewsletterOptIn = *input.NewsletterOptIn
		changes = append(changes, "newsletter")
	}

	if len(changes) == 0 {
		return user, nil
	}

	if err := s.users.Update(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, ErrDuplicate
		}
		return nil, fmt.Errorf("failed to update account: %w", err)
	}

	if err := s.notifier.NotifyAccountUpdated(ctx, user, changes); err != nil {
		s.logger.Warn("Account update email not delivered", zap.String("user_id", user.ID), zap.Error(err))
	}
	return user, nil
}

// Delete removes the records, the storage directory and then the account.
// A storage failure stops before the account goes so the call can be retried.
func (s *AccountService) Delete(ctx context.Context, identity Identity) error {
	user, err := s.load(ctx, identity.UserID)
	if err != nil {
		return err
	}

	removed, err := s.files.DeleteByOwner(ctx, user.ID)
	if err != nil {
		return fmt.Errorf("failed to delete file records: %w", err)
	}

	if err := s.store.DeleteUserDirectory(ctx, utils.SanitizeUsername(user.Username)); err != nil {
		return fmt.Errorf("%w: %v", ErrStorageIO, err)
	}

	if err := s.users.Delete(ctx, user.ID); err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}
	s.quota.Forget(ctx, user.ID)

	if err := s.notifier.NotifyAccountDeleted(ctx, user); err != nil {
		s.logger.Warn("Account deletion email not delivered", zap.String("user_id", user.ID), zap.Error(err))
	}

	s.logger.Info("Account deleted", zap.String("user_id", user.ID), zap.Int64("files", removed))
	return nil
}

// RequestPasswordReset mails a short-lived reset link. Unknown addresses get
// the same silent success so the endpoint cannot be used to probe accounts.
func (s *AccountService) RequestPasswordReset(ctx context.Context, email string) error {
	user, err := s.users.FindByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil
		}
		return fmt.Errorf("failed to load user: %w", err)
	}

	token, err := utils.GenerateJWTTokenWithSecret(user, s.cfg.JWTSecret, s.cfg.Issuer, utils.PurposePasswordReset, s.cfg.ResetTokenTTL)
	if err != nil {
		return fmt.Errorf("failed to issue reset token: %w", err)
	}

	if err := s.notifier.NotifyPasswordReset(ctx, user, s.resetLink(token), s.cfg.ResetTokenTTL); err != nil {
		s.logger.Warn("Password reset email not delivered", zap.String("user_id", user.ID), zap.Error(err))
	}
	return nil
}

func (s *AccountService) ResetPassword(ctx context.Context, token, newPassword string) error {
	claims, err := utils.VerifyJWTTokenWithSecret(token, s.cfg.JWTSecret, utils.PurposePasswordReset)
	if err != nil {
		return ErrInvalidToken
	}
	if err := utils.ValidatePassword(newPassword); err != nil {
		return fmt.Errorf("%w: %v", ErrValidation, err)
	}

	user, err := s.load(ctx, claims.UserID)
	if err != nil {
		return err
	}
	// a token issued against an older password is spent
	if claims.Stamp != utils.PasswordStamp(user.PasswordHash) {
		return ErrInvalidToken
	}

	hash, err := hashPassword(newPassword, s.cfg.BcryptCost)
	if err != nil {
		return err
	}
	user.PasswordHash = hash
	if err := s.users.Update(ctx, user); err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}

	if err := s.notifier.NotifyAccountUpdated(ctx, user, []string{"password"}); err != nil {
		s.logger.Warn("Password change email not delivered", zap.String("user_id", user.ID), zap.Error(err))
	}
	return nil
}

func (s *AccountService) load(ctx context.Context, id string) (*models.User, error) {
	user, err := s.users.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	return user, nil
}

func (s *AccountService) resetLink(token string) string {
	if s.cfg.ResetURL == "" {
		return token
	}
	sep := "?"
	if strings.Contains(s.cfg.ResetURL, "?") {
		sep = "&"
	}
	return s.cfg.ResetURL + sep + "token=" + url.QueryEscape(token)
}
