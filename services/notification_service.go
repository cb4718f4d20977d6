package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"webdesk/models"
)

// StorageAlert describes a quota threshold crossing for one user.
type StorageAlert struct {
	Username   string
	Email      string
	Percentage int
	Tier       int
	Level      string
	UsedGB     float64
	LimitGB    float64
}

type SupportRequest struct {
	Name    string `json:"name" binding:"required"`
	Email   string `json:"email" binding:"required,email"`
	Subject string `json:"subject" binding:"required"`
	Message string `json:"message" binding:"required"`
	Type    string `json:"type"`
}

// Notifier is the outbound notification channel. Callers decide whether a
// failure matters: account and quota mail is best effort.
type Notifier interface {
	NotifyAccountCreated(ctx context.Context, user *models.User) error
	NotifyAccountUpdated(ctx context.Context, user *models.User, changes []string) error
	NotifyAccountDeleted(ctx context.Context, user *models.User) error
	NotifyPasswordReset(ctx context.Context, user *models.User, resetURL string, expiresIn time.Duration) error
	NotifyStorageAlert(ctx context.Context, alert StorageAlert) error
	NotifyBroadcast(ctx context.Context, recipients []string, subject, body string) error
	NotifyNewsletter(ctx context.Context, recipients []string, title, body, imageURL string) error
	NotifySupportRequest(ctx context.Context, req SupportRequest) error
}

type NotificationService struct {
	mailer       Mailer
	appName      string
	supportEmail string
	limitGB      float64
	logger       *zap.Logger
}

func NewNotificationService(mailer Mailer, appName, supportEmail string, storageLimit int64, logger *zap.Logger) *NotificationService {
	return &NotificationService{
		mailer:       mailer,
		appName:      appName,
		supportEmail: supportEmail,
		limitGB:      models.BytesToGB(storageLimit),
		logger:       logger.Named("notifications"),
	}
}

func (s *NotificationService) NotifyAccountCreated(ctx context.Context, user *models.User) error {
	return s.send(ctx, "account_created", Message{
		To:      []string{user.Email},
		Subject: fmt.Sprintf("Welcome to %s", s.appName),
	}, map[string]interface{}{
		"Username": user.Username,
		"LimitGB":  s.limitGB,
	})
}

func (s *NotificationService) NotifyAccountUpdated(ctx context.Context, user *models.User, changes []string) error {
	return s.send(ctx, "account_updated", Message{
		To:      []string{user.Email},
		Subject: "Your account settings were changed",
	}, map[string]interface{}{
		"Username": user.Username,
		"Changes":  changes,
	})
}

func (s *NotificationService) NotifyAccountDeleted(ctx context.Context, user *models.User) error {
	return s.send(ctx, "account_deleted", Message{
		To:      []string{user.Email},
		Subject: fmt.Sprintf("Your %s account was deleted", s.appName),
	}, map[string]interface{}{
		"Username": user.Username,
	})
}

func (s *NotificationService) NotifyPasswordReset(ctx context.Context, user *models.User, resetURL string, expiresIn time.Duration) error {
	return s.send(ctx, "password_reset", Message{
		To:      []string{user.Email},
		Subject: "Reset your password",
	}, map[string]interface{}{
		"Username":  user.Username,
		"ResetURL":  resetURL,
		"ExpiresIn": expiresIn.String(),
	})
}

func (s *NotificationService) NotifyStorageAlert(ctx context.Context, alert StorageAlert) error {
	return s.send(ctx, "storage_alert", Message{
		To:      []string{alert.Email},
		Subject: fmt.Sprintf("Storage %s: %d%% of your space is used", alert.Level, alert.Percentage),
	}, map[string]interface{}{
		"Username":   alert.Username,
		"Level":      alert.Level,
		"Percentage": alert.Percentage,
		"UsedGB":     alert.UsedGB,
		"LimitGB":    alert.LimitGB,
	})
}

func (s *NotificationService) NotifyBroadcast(ctx context.Context, recipients []string, subject, body string) error {
	if len(recipients) == 0 {
		return fmt.Errorf("%w: no recipients", ErrValidation)
	}
	return s.send(ctx, "broadcast", Message{
		Bcc:     recipients,
		Subject: subject,
	}, map[string]interface{}{
		"Subject": subject,
		"Body":    body,
	})
}

func (s *NotificationService) NotifyNewsletter(ctx context.Context, recipients []string, title, body, imageURL string) error {
	if len(recipients) == 0 {
		return fmt.Errorf("%w: no subscribers", ErrValidation)
	}
	return s.send(ctx, "newsletter", Message{
		Bcc:     recipients,
		Subject: title,
	}, map[string]interface{}{
		"Title":    title,
		"Body":     body,
		"ImageURL": imageURL,
	})
}

func (s *NotificationService) NotifySupportRequest(ctx context.Context, req SupportRequest) error {
	kind := req.Type
	if kind == "" {
		kind = "general"
	}
	return s.send(ctx, "support_request", Message{
		To:      []string{s.supportEmail},
		ReplyTo: req.Email,
		Subject: fmt.Sprintf("[%s] %s", strings.ToUpper(kind), req.Subject),
	}, map[string]interface{}{
		"Name":    req.Name,
		"Email":   req.Email,
		"Subject": req.Subject,
		"Message": req.Message,
		"Type":    kind,
	})
}

func (s *NotificationService) send(ctx context.Context, kind string, msg Message, data map[string]interface{}) error {
	data["AppName"] = s.appName
	html, err := renderMail(kind, data)
	if err != nil {
		notificationsTotal.WithLabelValues(kind, "error").Inc()
		return err
	}
	msg.HTML = html

	if err := s.mailer.Send(ctx, msg); err != nil {
		notificationsTotal.WithLabelValues(kind, "error").Inc()
		return err
	}

	notificationsTotal.WithLabelValues(kind, "sent").Inc()
	s.logger.Debug("Notification sent",
		zap.String("kind", kind),
		zap.Int("recipients", len(msg.To)+len(msg.Bcc)),
	)
	return nil
}

// LogNotifier stands in when no SMTP server is configured. Personal
// notifications are logged and dropped; bulk and support mail report
// ErrNotifyDisabled because sending is the whole point of those calls.
type LogNotifier struct {
	logger *zap.Logger
}

func NewLogNotifier(logger *zap.Logger) *LogNotifier {
	return &LogNotifier{logger: logger.Named("notifications")}
}

func (n *LogNotifier) NotifyAccountCreated(_ context.Context, user *models.User) error {
	n.logger.Info("Mail disabled, skipping account created notification", zap.String("user_id", user.ID))
	return nil
}

func (n *LogNotifier) NotifyAccountUpdated(_ context.Context, user *models.User, changes []string) error {
	n.logger.Info("Mail disabled, skipping account updated notification",
		zap.String("user_id", user.ID), zap.Strings("changes", changes))
	return nil
}

func (n *LogNotifier) NotifyAccountDeleted(_ context.Context, user *models.User) error {
	n.logger.Info("Mail disabled, skipping account deleted notification", zap.String("user_id", user.ID))
	return nil
}

func (n *LogNotifier) NotifyPasswordReset(_ context.Context, user *models.User, _ string, _ time.Duration) error {
	n.logger.Warn("Mail disabled, password reset link was not delivered", zap.String("user_id", user.ID))
	return nil
}

func (n *LogNotifier) NotifyStorageAlert(_ context.Context, alert StorageAlert) error {
	n.logger.Info("Mail disabled, skipping storage alert",
		zap.String("username", alert.Username),
		zap.Int("percentage", alert.Percentage),
		zap.Int("tier", alert.Tier),
	)
	return nil
}

func (n *LogNotifier) NotifyBroadcast(context.Context, []string, string, string) error {
	return ErrNotifyDisabled
}

func (n *LogNotifier) NotifyNewsletter(context.Context, []string, string, string, string) error {
	return ErrNotifyDisabled
}

func (n *LogNotifier) NotifySupportRequest(context.Context, SupportRequest) error {
	return ErrNotifyDisabled
}
