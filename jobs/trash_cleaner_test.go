package jobs

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/gofrs/flock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type MockSweeper struct {
	mock.Mock
}

func (m *MockSweeper) PurgeExpired(ctx context.Context, retention time.Duration) (int, error) {
	args := m.Called(ctx, retention)
	return args.Int(0), args.Error(1)
}

func (m *MockSweeper) ReconcileOrphans(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

func TestTrashCleaner_RunBoth(t *testing.T) {
	sweeper := &MockSweeper{}
	sweeper.On("PurgeExpired", mock.Anything, 720*time.Hour).Return(3, nil).Once()
	sweeper.On("ReconcileOrphans", mock.Anything).Return(2, nil).Once()

	cleaner := NewTrashCleaner(sweeper, filepath.Join(t.TempDir(), "sweep.lock"), zap.NewNop())
	report, err := cleaner.Run(context.Background(), SweepOptions{Expired: true, Orphans: true, Retention: 720 * time.Hour})
	require.NoError(t, err)
	assert.Equal(t, 3, report.Purged)
	assert.Equal(t, 2, report.Orphans)
	sweeper.AssertExpectations(t)
}

func TestTrashCleaner_OnlyRequestedSteps(t *testing.T) {
	sweeper := &MockSweeper{}
	sweeper.On("ReconcileOrphans", mock.Anything).Return(0, nil).Once()

	cleaner := NewTrashCleaner(sweeper, filepath.Join(t.TempDir(), "sweep.lock"), zap.NewNop())
	_, err := cleaner.Run(context.Background(), SweepOptions{Orphans: true})
	require.NoError(t, err)
	sweeper.AssertNotCalled(t, "PurgeExpired", mock.Anything, mock.Anything)
}

func TestTrashCleaner_ContinuesAfterError(t *testing.T) {
	sweeper := &MockSweeper{}
	sweeper.On("PurgeExpired", mock.Anything, time.Hour).Return(1, errors.New("db down")).Once()
	sweeper.On("ReconcileOrphans", mock.Anything).Return(4, nil).Once()

	cleaner := NewTrashCleaner(sweeper, filepath.Join(t.TempDir(), "sweep.lock"), zap.NewNop())
	report, err := cleaner.Run(context.Background(), SweepOptions{Expired: true, Orphans: true, Retention: time.Hour})
	assert.ErrorContains(t, err, "db down")
	require.NotNil(t, report)
	assert.Equal(t, 1, report.Purged)
	assert.Equal(t, 4, report.Orphans)
}

func TestTrashCleaner_RefusesConcurrentSweep(t *testing.T) {
	lockPath := filepath.Join(t.TempDir(), "sweep.lock")
	held := flock.New(lockPath)
	locked, err := held.TryLock()
	require.NoError(t, err)
	require.True(t, locked)
	t.Cleanup(func() { _ = held.Unlock() })

	sweeper := &MockSweeper{}
	cleaner := NewTrashCleaner(sweeper, lockPath, zap.NewNop())
	_, err = cleaner.Run(context.Background(), SweepOptions{Expired: true, Retention: time.Hour})
	assert.ErrorIs(t, err, ErrSweepRunning)
	sweeper.AssertNotCalled(t, "PurgeExpired", mock.Anything, mock.Anything)
}
