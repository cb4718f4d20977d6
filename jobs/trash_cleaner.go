package jobs

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gofrs/flock"
	"go.uber.org/zap"
)

// ErrSweepRunning is returned when another sweep holds the lock file.
var ErrSweepRunning = errors.New("another sweep is already running")

// Sweeper is the part of the trash service the cleaner drives.
type Sweeper interface {
	PurgeExpired(ctx context.Context, retention time.Duration) (int, error)
	ReconcileOrphans(ctx context.Context) (int, error)
}

type SweepOptions struct {
	Expired   bool
	Orphans   bool
	Retention time.Duration
}

type SweepReport struct {
	Purged  int
	Orphans int
}

type TrashCleaner struct {
	sweeper  Sweeper
	lockPath string
	logger   *zap.Logger
}

func NewTrashCleaner(sweeper Sweeper, lockPath string, logger *zap.Logger) *TrashCleaner {
	return &TrashCleaner{
		sweeper:  sweeper,
		lockPath: lockPath,
		logger:   logger.Named("trash_cleaner"),
	}
}

// Run performs one sweep while holding the lock file, so two sweeps started
// from cron never overlap.
func (tc *TrashCleaner) Run(ctx context.Context, opts SweepOptions) (*SweepReport, error) {
	lock := flock.New(tc.lockPath)
	locked, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("failed to acquire sweep lock: %w", err)
	}
	if !locked {
		return nil, ErrSweepRunning
	}
	defer func() {
		if err := lock.Unlock(); err != nil {
			tc.logger.Warn("Failed to release sweep lock", zap.Error(err))
		}
	}()

	return tc.runCleanup(ctx, opts)
}

func (tc *TrashCleaner) runCleanup(ctx context.Context, opts SweepOptions) (*SweepReport, error) {
	tc.logger.Info("Running trash cleanup",
		zap.Bool("expired", opts.Expired),
		zap.Bool("orphans", opts.Orphans),
		zap.Duration("retention", opts.Retention),
	)

	report := &SweepReport{}
	var errs []error

	if opts.Expired {
		purged, err := tc.sweeper.PurgeExpired(ctx, opts.Retention)
		report.Purged = purged
		if err != nil {
			tc.logger.Error("Error purging expired files", zap.Error(err))
			errs = append(errs, err)
		}
	}

	if opts.Orphans {
		removed, err := tc.sweeper.ReconcileOrphans(ctx)
		report.Orphans = removed
		if err != nil {
			tc.logger.Error("Error reconciling orphaned files", zap.Error(err))
			errs = append(errs, err)
		}
	}

	tc.logger.Info("Trash cleanup completed",
		zap.Int("purged", report.Purged),
		zap.Int("orphans", report.Orphans),
	)
	return report, errors.Join(errs...)
}
