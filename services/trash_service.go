package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"webdesk/models"
	"webdesk/repository"
	"webdesk/storage"
	"webdesk/utils"
)

// TrashService owns the recycle bin: listing, restore and permanent deletion.
type TrashService struct {
	files     repository.FileRepository
	users     repository.UserRepository
	store     storage.Store
	locks     *RecordLocks
	retention time.Duration
	now       func() time.Time
	logger    *zap.Logger
}

func NewTrashService(files repository.FileRepository, users repository.UserRepository, store storage.Store, locks *RecordLocks, retention time.Duration, logger *zap.Logger) *TrashService {
	return &TrashService{
		files:     files,
		users:     users,
		store:     store,
		locks:     locks,
		retention: retention,
		now:       func() time.Time { return time.Now().UTC() },
		logger:    logger.Named("trash"),
	}
}

func (s *TrashService) ListBin(ctx context.Context, identity Identity) ([]models.BinItem, error) {
	files, err := s.files.ListByOwner(ctx, identity.UserID, models.StateTrashed)
	if err != nil {
		return nil, fmt.Errorf("failed to list recycle bin: %w", err)
	}

	items := make([]models.BinItem, 0, len(files))
	for _, f := range files {
		items = append(items, models.NewBinItem(f, s.retention))
	}
	return items, nil
}

// Restore takes a file out of the bin. Restoring an active file is a no-op
// that returns it unchanged.
func (s *TrashService) Restore(ctx context.Context, identity Identity, id string) (file *models.File, err error) {
	defer func() { observeFileOp("restore", err) }()

	unlock := s.locks.Lock(id)
	defer unlock()

	file, err = findOwned(ctx, s.files, id, identity.UserID)
	if err != nil {
		return nil, err
	}
	if file.State == models.StateActive {
		return file, nil
	}

	file.MarkActive(s.now())
	if err := s.files.Update(ctx, file); err != nil {
		return nil, fmt.Errorf("failed to restore file: %w", err)
	}
	return file, nil
}

// Purge permanently deletes a trashed file. Active files must be trashed first.
func (s *TrashService) Purge(ctx context.Context, identity Identity, id string) (err error) {
	defer func() { observeFileOp("purge", err) }()

	unlock := s.locks.Lock(id)
	defer unlock()

	file, err := findOwned(ctx, s.files, id, identity.UserID)
	if err != nil {
		return err
	}
	if file.State != models.StateTrashed {
		return ErrNotTrashed
	}
	return s.purge(ctx, file)
}

// EmptyBin purges every trashed file of the caller. A failure on one file does
// not stop the others.
func (s *TrashService) EmptyBin(ctx context.Context, identity Identity) (*models.EmptyBinResult, error) {
	files, err := s.files.ListByOwner(ctx, identity.UserID, models.StateTrashed)
	if err != nil {
		return nil, fmt.Errorf("failed to list recycle bin: %w", err)
	}

	result := &models.EmptyBinResult{}
	for _, f := range files {
		purged, err := s.purgeIfTrashed(ctx, f.ID, f.OwnerID)
		observeFileOp("purge", err)
		if err != nil {
			result.Failed = append(result.Failed, models.PurgeError{ID: f.ID, Name: f.Name, Error: err.Error()})
			continue
		}
		if purged {
			result.Purged++
		}
	}

	s.logger.Info("Recycle bin emptied",
		zap.String("user_id", identity.UserID),
		zap.Int("purged", result.Purged),
		zap.Int("failed", len(result.Failed)),
	)
	return result, nil
}

// PurgeExpired removes files that have been in any bin longer than retention.
func (s *TrashService) PurgeExpired(ctx context.Context, retention time.Duration) (int, error) {
	if retention <= 0 {
		return 0, fmt.Errorf("%w: retention must be positive", ErrValidation)
	}

	cutoff := s.now().Add(-retention)
	files, err := s.files.ListTrashedBefore(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to find expired files: %w", err)
	}

	var (
		purged int
		errs   []error
	)
	for _, f := range files {
		ok, err := s.purgeIfTrashed(ctx, f.ID, f.OwnerID)
		observeFileOp("purge_expired", err)
		if err != nil {
			errs = append(errs, fmt.Errorf("file %s: %w", f.ID, err))
			continue
		}
		if ok {
			purged++
		}
	}
	return purged, errors.Join(errs...)
}

// ReconcileOrphans deletes physical files no record points at, and whole
// directories no user owns. Users whose names map to the same directory are
// reconciled together.
func (s *TrashService) ReconcileOrphans(ctx context.Context) (int, error) {
	users, err := s.users.List(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to list users: %w", err)
	}

	referenced := make(map[string]map[string]bool)
	for _, u := range users {
		dir := utils.SanitizeUsername(u.Username)
		if referenced[dir] == nil {
			referenced[dir] = make(map[string]bool)
		}
		paths, err := s.files.ListPhysicalPaths(ctx, u.ID)
		if err != nil {
			return 0, fmt.Errorf("failed to list files of %s: %w", u.ID, err)
		}
		for _, p := range paths {
			referenced[dir][p] = true
		}
	}

	var (
		removed int
		errs    []error
	)
	for dir, known := range referenced {
		stored, err := s.store.ListUserFiles(ctx, dir)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		for _, p := range stored {
			if known[p] {
				continue
			}
			if err := s.store.DeleteFile(ctx, p); err != nil {
				errs = append(errs, err)
				continue
			}
			removed++
			s.logger.Info("Removed orphaned file", zap.String("path", p))
		}
	}

	dirs, err := s.store.ListUserDirectories(ctx)
	if err != nil {
		errs = append(errs, err)
		return removed, errors.Join(errs...)
	}
	for _, dir := range dirs {
		if _, owned := referenced[dir]; owned {
			continue
		}
		stored, err := s.store.ListUserFiles(ctx, dir)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if err := s.store.DeleteUserDirectory(ctx, dir); err != nil {
			errs = append(errs, err)
			continue
		}
		removed += len(stored)
		s.logger.Info("Removed unowned directory", zap.String("dir", dir), zap.Int("files", len(stored)))
	}
	return removed, errors.Join(errs...)
}

// purgeIfTrashed re-reads the record under its lock so a concurrent restore wins.
func (s *TrashService) purgeIfTrashed(ctx context.Context, id, ownerID string) (bool, error) {
	unlock := s.locks.Lock(id)
	defer unlock()

	file, err := findOwned(ctx, s.files, id, ownerID)
	if err != nil {
		if errors.Is(err, ErrFileNotFound) {
			return false, nil
		}
		return false, err
	}
	if file.State != models.StateTrashed {
		return false, nil
	}
	if err := s.purge(ctx, file); err != nil {
		return false, err
	}
	return true, nil
}

// purge removes the bytes and then the record. The record goes even when the
// bytes cannot be removed; the leftover is logged and counted as an orphan.
func (s *TrashService) purge(ctx context.Context, file *models.File) error {
	if err := s.store.DeleteFile(ctx, file.PhysicalPath); err != nil {
		orphanedFilesTotal.Inc()
		s.logger.Error("Failed to delete physical file, leaving orphan",
			zap.String("file_id", file.ID),
			zap.String("owner_id", file.OwnerID),
			zap.String("path", file.PhysicalPath),
			zap.Error(err),
		)
	}

	if err := s.files.Delete(ctx, file.ID, file.OwnerID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil
		}
		return fmt.Errorf("failed to delete file record: %w", err)
	}

	s.logger.Info("File purged",
		zap.String("file_id", file.ID),
		zap.String("owner_id", file.OwnerID),
		zap.String("name", file.Name),
	)
	return nil
}
