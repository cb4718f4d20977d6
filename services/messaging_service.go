package services

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"webdesk/repository"
	"webdesk/utils"
)

type BroadcastInput struct {
	Subject    string   `json:"subject" binding:"required"`
	Body       string   `json:"body" binding:"required"`
	Recipients []string `json:"recipients"`
}

type NewsletterInput struct {
	Title    string `json:"title" binding:"required"`
	Body     string `json:"body" binding:"required"`
	ImageURL string `json:"image_url"`
}

// MessagingService sends admin broadcasts, newsletters and support requests.
// Unlike account mail, a delivery failure here is returned to the caller.
type MessagingService struct {
	users    repository.UserRepository
	notifier Notifier
	logger   *zap.Logger
}

func NewMessagingService(users repository.UserRepository, notifier Notifier, logger *zap.Logger) *MessagingService {
	return &MessagingService{users: users, notifier: notifier, logger: logger.Named("messaging")}
}

// Broadcast mails every user unless explicit recipients are given.
func (s *MessagingService) Broadcast(ctx context.Context, input BroadcastInput) (int, error) {
	recipients := make([]string, 0, len(input.Recipients))
	for _, r := range input.Recipients {
		r = strings.TrimSpace(r)
		if err := utils.ValidateEmail(r); err != nil {
			return 0, fmt.Errorf("%w: recipient %q: %v", ErrValidation, r, err)
		}
		recipients = append(recipients, r)
	}

	if len(recipients) == 0 {
		users, err := s.users.List(ctx)
		if err != nil {
			return 0, fmt.Errorf("failed to list users: %w", err)
		}
		for _, u := range users {
			recipients = append(recipients, u.Email)
		}
	}
	if len(recipients) == 0 {
		return 0, fmt.Errorf("%w: no recipients", ErrValidation)
	}

	if err := s.notifier.NotifyBroadcast(ctx, recipients, input.Subject, input.Body); err != nil {
		return 0, err
	}
	s.logger.Info("Broadcast sent", zap.Int("recipients", len(recipients)))
	return len(recipients), nil
}

func (s *MessagingService) Newsletter(ctx context.Context, input NewsletterInput) (int, error) {
	users, err := s.users.ListNewsletterSubscribers(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to list subscribers: %w", err)
	}
	if len(users) == 0 {
		return 0, fmt.Errorf("%w: no subscribers", ErrValidation)
	}

	recipients := make([]string, 0, len(users))
	for _, u := range users {
		recipients = append(recipients, u.Email)
	}

	if err := s.notifier.NotifyNewsletter(ctx, recipients, input.Title, input.Body, input.ImageURL); err != nil {
		return 0, err
	}
	s.logger.Info("Newsletter sent", zap.Int("recipients", len(recipients)))
	return len(recipients), nil
}

func (s *MessagingService) SupportRequest(ctx context.Context, req SupportRequest) error {
	if err := utils.ValidateEmail(req.Email); err != nil {
		return fmt.Errorf("%w: %v", ErrValidation, err)
	}
	if strings.TrimSpace(req.Message) == "" || strings.TrimSpace(req.Subject) == "" {
		return fmt.Errorf("%w: subject and message are required", ErrValidation)
	}
	return s.notifier.NotifySupportRequest(ctx, req)
}
