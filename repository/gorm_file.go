package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"webdesk/models"
)

type GormFileRepository struct {
	db *gorm.DB
}

func NewGormFileRepository(db *gorm.DB) *GormFileRepository {
	return &GormFileRepository{db: db}
}

func (r *GormFileRepository) Create(ctx context.Context, file *models.File) error {
	prepareFile(file, time.Now().UTC())
	if err := r.db.WithContext(ctx).Create(file).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrDuplicate
		}
		return fmt.Errorf("failed to insert file: %w", err)
	}
	return nil
}

func (r *GormFileRepository) FindByIDAndOwner(ctx context.Context, id, ownerID string) (*models.File, error) {
	var file models.File
	err := r.db.WithContext(ctx).Where("id = ? AND owner_id = ?", id, ownerID).First(&file).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to find file: %w", err)
	}
	return &file, nil
}

func (r *GormFileRepository) ListByOwner(ctx context.Context, ownerID string, state models.FileState) ([]models.File, error) {
	order := "created_at DESC"
	if state == models.StateTrashed {
		order = "deleted_at DESC"
	}

	files := []models.File{}
	err := r.db.WithContext(ctx).
		Where("owner_id = ? AND state = ?", ownerID, state).
		Order(order).
		Find(&files).Error
	if err != nil {
		return nil, fmt.Errorf("failed to fetch files: %w", err)
	}
	return files, nil
}

func (r *GormFileRepository) Update(ctx context.Context, file *models.File) error {
	res := r.db.WithContext(ctx).
		Model(&models.File{}).
		Where("id = ? AND owner_id = ?", file.ID, file.OwnerID).
		Updates(map[string]interface{}{
			"name":          file.Name,
			"logical_path":  file.LogicalPath,
			"physical_path": file.PhysicalPath,
			"mime_type":     file.MimeType,
			"size_bytes":    file.SizeBytes,
			"category":      file.Category,
			"state":         file.State,
			"deleted_at":    file.DeletedAt,
			"updated_at":    file.UpdatedAt,
		})
	if res.Error != nil {
		return fmt.Errorf("failed to update file: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *GormFileRepository) Delete(ctx context.Context, id, ownerID string) error {
	res := r.db.WithContext(ctx).Where("id = ? AND owner_id = ?", id, ownerID).Delete(&models.File{})
	if res.Error != nil {
		return fmt.Errorf("failed to delete file: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *GormFileRepository) DeleteByPhysicalPath(ctx context.Context, ownerID, physicalPath string) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("owner_id = ? AND physical_path = ?", ownerID, physicalPath).
		Delete(&models.File{})
	if res.Error != nil {
		return 0, fmt.Errorf("failed to delete files by path: %w", res.Error)
	}
	return res.RowsAffected, nil
}

func (r *GormFileRepository) DeleteByOwner(ctx context.Context, ownerID string) (int64, error) {
	res := r.db.WithContext(ctx).Where("owner_id = ?", ownerID).Delete(&models.File{})
	if res.Error != nil {
		return 0, fmt.Errorf("failed to delete files by owner: %w", res.Error)
	}
	return res.RowsAffected, nil
}

func (r *GormFileRepository) SumActiveSize(ctx context.Context, ownerID string) (int64, error) {
	var total int64
	err := r.db.WithContext(ctx).
		Model(&models.File{}).
		Where("owner_id = ? AND state = ?", ownerID, models.StateActive).
		Select("COALESCE(SUM(size_bytes), 0)").
		Scan(&total).Error
	if err != nil {
		return 0, fmt.Errorf("failed to sum file sizes: %w", err)
	}
	return total, nil
}

func (r *GormFileRepository) ListTrashedBefore(ctx context.Context, cutoff time.Time) ([]models.File, error) {
	files := []models.File{}
	err := r.db.WithContext(ctx).
		Where("state = ? AND deleted_at <= ?", models.StateTrashed, cutoff).
		Order("deleted_at ASC").
		Find(&files).Error
	if err != nil {
		return nil, fmt.Errorf("failed to fetch expired files: %w", err)
	}
	return files, nil
}

func (r *GormFileRepository) ListPhysicalPaths(ctx context.Context, ownerID string) ([]string, error) {
	paths := []string{}
	err := r.db.WithContext(ctx).
		Model(&models.File{}).
		Where("owner_id = ?", ownerID).
		Pluck("physical_path", &paths).Error
	if err != nil {
		return nil, fmt.Errorf("failed to fetch file paths: %w", err)
	}
	return paths, nil
}
