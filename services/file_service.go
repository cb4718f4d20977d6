package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"go.uber.org/zap"

	"webdesk/models"
	"webdesk/repository"
	"webdesk/storage"
	"webdesk/utils"
)

const sniffLen = 3072

type UploadInput struct {
	Name        string
	ContentType string
	Size        int64
	Content     io.Reader
}

// FileService owns uploads, listing and moving files to the recycle bin.
type FileService struct {
	files       repository.FileRepository
	users       repository.UserRepository
	store       storage.Store
	quota       *QuotaService
	locks       *RecordLocks
	maxFileSize int64
	now         func() time.Time
	logger      *zap.Logger
}

func NewFileService(files repository.FileRepository, users repository.UserRepository, store storage.Store, quota *QuotaService, locks *RecordLocks, maxFileSize int64, logger *zap.Logger) *FileService {
	return &FileService{
		files:       files,
		users:       users,
		store:       store,
		quota:       quota,
		locks:       locks,
		maxFileSize: maxFileSize,
		now:         func() time.Time { return time.Now().UTC() },
		logger:      logger.Named("files"),
	}
}

// Upload stores the content under the caller's directory and records it as an
// active file. A storage failure leaves no record behind. The owner must still
// exist, so a token outliving its account cannot write.
func (s *FileService) Upload(ctx context.Context, identity Identity, input UploadInput) (file *models.File, err error) {
	defer func() { observeFileOp("upload", err) }()

	if input.Content == nil {
		return nil, fmt.Errorf("%w: no file content", ErrValidation)
	}
	name := utils.CleanFileName(input.Name)
	if err := utils.ValidateFileName(name); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	if err := utils.ValidateFileSize(input.Size, s.maxFileSize); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}

	owner, err := s.users.FindByID(ctx, identity.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to load owner: %w", err)
	}
	dir := utils.SanitizeUsername(owner.Username)
	if dir == "" {
		return nil, fmt.Errorf("%w: empty username", ErrValidation)
	}

	if err := s.store.EnsureUserDirectory(ctx, dir); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorageIO, err)
	}

	content, contentType, err := sniffContentType(input.Content, input.ContentType)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorageIO, err)
	}

	physicalPath, written, err := s.store.WriteFile(ctx, dir, name, contentType, content)
	if err != nil {
		if errors.Is(err, storage.ErrInvalidName) {
			return nil, fmt.Errorf("%w: %v", ErrValidation, err)
		}
		s.logger.Error("Failed to write file", zap.String("user_id", identity.UserID), zap.String("name", name), zap.Error(err))
		return nil, fmt.Errorf("%w: %v", ErrStorageIO, err)
	}

	// the new bytes replaced whatever was stored under this name
	superseded, err := s.files.DeleteByPhysicalPath(ctx, identity.UserID, physicalPath)
	if err != nil {
		s.logger.Warn("Failed to drop superseded records", zap.String("path", physicalPath), zap.Error(err))
	} else if superseded > 0 {
		s.logger.Info("Replaced existing file", zap.String("user_id", identity.UserID), zap.String("name", name), zap.Int64("records", superseded))
	}

	file = &models.File{
		Name:         name,
		LogicalPath:  s.store.LogicalPath(dir, name),
		PhysicalPath: physicalPath,
		MimeType:     contentType,
		SizeBytes:    written,
		Category:     models.CategoryForMIME(contentType),
		State:        models.StateActive,
		OwnerID:      identity.UserID,
	}
	if err := s.files.Create(ctx, file); err != nil {
		if delErr := s.store.DeleteFile(ctx, physicalPath); delErr != nil {
			s.logger.Error("Failed to remove file after record error", zap.String("path", physicalPath), zap.Error(delErr))
		}
		return nil, fmt.Errorf("failed to save file record: %w", err)
	}

	s.logger.Info("File uploaded",
		zap.String("user_id", identity.UserID),
		zap.String("file_id", file.ID),
		zap.Int64("size", written),
		zap.String("category", string(file.Category)),
	)

	s.quota.CheckAfterUpload(ctx, identity)
	return file, nil
}

func (s *FileService) ListActive(ctx context.Context, identity Identity) ([]models.File, error) {
	files, err := s.files.ListByOwner(ctx, identity.UserID, models.StateActive)
	if err != nil {
		return nil, fmt.Errorf("failed to list files: %w", err)
	}
	return files, nil
}

// Trash moves a file to the recycle bin. Trashing a file already in the bin
// leaves it untouched.
func (s *FileService) Trash(ctx context.Context, identity Identity, id string) (file *models.File, err error) {
	defer func() { observeFileOp("trash", err) }()

	unlock := s.locks.Lock(id)
	defer unlock()

	file, err = findOwned(ctx, s.files, id, identity.UserID)
	if err != nil {
		return nil, err
	}
	if file.State == models.StateTrashed {
		return file, nil
	}

	file.MarkTrashed(s.now())
	if err := s.files.Update(ctx, file); err != nil {
		return nil, fmt.Errorf("failed to move file to bin: %w", err)
	}
	return file, nil
}

func findOwned(ctx context.Context, files repository.FileRepository, id, ownerID string) (*models.File, error) {
	file, err := files.FindByIDAndOwner(ctx, id, ownerID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrFileNotFound
		}
		return nil, err
	}
	return file, nil
}

// sniffContentType detects the MIME type from the first bytes when the client
// did not send a useful one, and returns a reader that still yields every byte.
func sniffContentType(r io.Reader, declared string) (io.Reader, string, error) {
	if declared != "" && declared != "application/octet-stream" {
		return r, declared, nil
	}

	head := make([]byte, sniffLen)
	n, err := io.ReadFull(r, head)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
		return nil, "", err
	}
	head = head[:n]

	return io.MultiReader(bytes.NewReader(head), r), mimetype.Detect(head).String(), nil
}
