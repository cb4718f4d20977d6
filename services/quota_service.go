package services

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"time"

	"go.uber.org/zap"

	"webdesk/models"
	"webdesk/repository"
)

type AlertMode string

const (
	// AlertModeLevel alerts whenever the post-upload usage sits on a tier.
	AlertModeLevel AlertMode = "level"
	// AlertModeEdge alerts only when usage climbs past a tier not yet reported.
	AlertModeEdge AlertMode = "edge"
)

// AlertTier maps a usage percentage to the tier that should be reported, or 0.
// 50 and 75 fire on the exact value; 90 covers the whole 90-99 danger band.
func AlertTier(percentage int) int {
	switch {
	case percentage >= 100:
		return 100
	case percentage >= 90:
		return 90
	case percentage == 75:
		return 75
	case percentage == 50:
		return 50
	default:
		return 0
	}
}

// crossedTier is the highest tier at or below percentage, used by edge mode.
func crossedTier(percentage int) int {
	switch {
	case percentage >= 100:
		return 100
	case percentage >= 90:
		return 90
	case percentage >= 75:
		return 75
	case percentage >= 50:
		return 50
	default:
		return 0
	}
}

func AlertLevel(tier int) string {
	switch tier {
	case 100:
		return "critical"
	case 90:
		return "danger"
	default:
		return "warning"
	}
}

// TierStore remembers the last tier reported per user.
type TierStore interface {
	LastTier(ctx context.Context, userID string) (int, error)
	SetTier(ctx context.Context, userID string, tier int) error
	Forget(ctx context.Context, userID string) error
}

// alertTimeout bounds how long a storage alert may hold up the upload response,
// SMTP retries included.
const alertTimeout = 5 * time.Second

type QuotaService struct {
	files        repository.FileRepository
	users        repository.UserRepository
	notifier     Notifier
	limit        int64
	mode         AlertMode
	tiers        TierStore
	alertTimeout time.Duration
	logger       *zap.Logger
}

func NewQuotaService(files repository.FileRepository, users repository.UserRepository, notifier Notifier, limit int64, mode AlertMode, tiers TierStore, logger *zap.Logger) *QuotaService {
	if limit <= 0 {
		limit = models.DefaultStorageLimit
	}
	if mode == AlertModeEdge && tiers == nil {
		mode = AlertModeLevel
	}
	return &QuotaService{
		files:        files,
		users:        users,
		notifier:     notifier,
		limit:        limit,
		mode:         mode,
		tiers:        tiers,
		alertTimeout: alertTimeout,
		logger:       logger.Named("quota"),
	}
}

func (s *QuotaService) Limit() int64 {
	return s.limit
}

// Usage sums the owner's active files. Trashed files do not count.
func (s *QuotaService) Usage(ctx context.Context, ownerID string) (*models.StorageUsage, error) {
	used, err := s.files.SumActiveSize(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to compute storage usage: %w", err)
	}
	return &models.StorageUsage{
		UsedBytes:  used,
		LimitBytes: s.limit,
		Percentage: int(math.Round(float64(used) / float64(s.limit) * 100)),
		UsedGB:     models.BytesToGB(used),
		LimitGB:    models.BytesToGB(s.limit),
	}, nil
}

// CheckAfterUpload evaluates usage after a successful upload and sends at most
// one alert. It never returns an error: the upload has already succeeded.
func (s *QuotaService) CheckAfterUpload(ctx context.Context, identity Identity) {
	usage, err := s.Usage(ctx, identity.UserID)
	if err != nil {
		s.logger.Error("Quota check failed", zap.String("user_id", identity.UserID), zap.Error(err))
		return
	}

	tier := s.tierToReport(ctx, identity.UserID, usage.Percentage)
	if tier == 0 {
		return
	}

	alert := StorageAlert{
		Username:   identity.Username,
		Email:      s.recipient(ctx, identity),
		Percentage: usage.Percentage,
		Tier:       tier,
		Level:      AlertLevel(tier),
		UsedGB:     usage.UsedGB,
		LimitGB:    usage.LimitGB,
	}
	quotaAlertsTotal.WithLabelValues(strconv.Itoa(tier)).Inc()

	sendCtx, cancel := context.WithTimeout(ctx, s.alertTimeout)
	defer cancel()
	if err := s.notifier.NotifyStorageAlert(sendCtx, alert); err != nil {
		s.logger.Warn("Storage alert not delivered",
			zap.String("user_id", identity.UserID),
			zap.Int("tier", tier),
			zap.Error(err),
		)
	}
}

func (s *QuotaService) tierToReport(ctx context.Context, userID string, percentage int) int {
	if s.mode != AlertModeEdge {
		return AlertTier(percentage)
	}

	current := crossedTier(percentage)
	last, err := s.tiers.LastTier(ctx, userID)
	if err != nil {
		s.logger.Warn("Tier memory unavailable, falling back to level check", zap.Error(err))
		return AlertTier(percentage)
	}
	if current == last {
		return 0
	}
	// dropping below a tier re-arms it
	if err := s.tiers.SetTier(ctx, userID, current); err != nil {
		s.logger.Warn("Failed to store alert tier", zap.String("user_id", userID), zap.Error(err))
	}
	if current < last {
		return 0
	}
	return current
}

// Forget drops the remembered alert tier of a deleted account.
func (s *QuotaService) Forget(ctx context.Context, userID string) {
	if s.tiers == nil {
		return
	}
	if err := s.tiers.Forget(ctx, userID); err != nil {
		s.logger.Warn("Failed to clear alert tier", zap.String("user_id", userID), zap.Error(err))
	}
}

func (s *QuotaService) recipient(ctx context.Context, identity Identity) string {
	user, err := s.users.FindByID(ctx, identity.UserID)
	if err != nil {
		return identity.Email
	}
	return user.Email
}
