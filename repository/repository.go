package repository

import (
	"context"
	"errors"
	"time"

	"webdesk/models"
	"webdesk/utils"
)

var (
	ErrNotFound  = errors.New("record not found")
	ErrDuplicate = errors.New("record already exists")
)

// FileRepository stores file records. Every per-record lookup is scoped to an
// owner; a record owned by someone else is reported as ErrNotFound.
type FileRepository interface {
	Create(ctx context.Context, file *models.File) error
	FindByIDAndOwner(ctx context.Context, id, ownerID string) (*models.File, error)
	// ListByOwner returns active files newest first and trashed files most
	// recently trashed first.
	ListByOwner(ctx context.Context, ownerID string, state models.FileState) ([]models.File, error)
	Update(ctx context.Context, file *models.File) error
	Delete(ctx context.Context, id, ownerID string) error
	DeleteByPhysicalPath(ctx context.Context, ownerID, physicalPath string) (int64, error)
	DeleteByOwner(ctx context.Context, ownerID string) (int64, error)
	SumActiveSize(ctx context.Context, ownerID string) (int64, error)
	ListTrashedBefore(ctx context.Context, cutoff time.Time) ([]models.File, error)
	ListPhysicalPaths(ctx context.Context, ownerID string) ([]string, error)
}

type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	FindByID(ctx context.Context, id string) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	Update(ctx context.Context, user *models.User) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context) ([]models.User, error)
	ListNewsletterSubscribers(ctx context.Context) ([]models.User, error)
}

func prepareFile(file *models.File, now time.Time) {
	if file.ID == "" {
		file.ID = newID()
	}
	if file.State == "" {
		file.State = models.StateActive
	}
	if file.CreatedAt.IsZero() {
		file.CreatedAt = now
	}
	file.UpdatedAt = now
}

func prepareUser(user *models.User, now time.Time) {
	if user.ID == "" {
		user.ID = newID()
	}
	if user.DirName == "" {
		user.DirName = utils.SanitizeUsername(user.Username)
	}
	if user.Role == "" {
		user.Role = models.RoleUser
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = now
	}
	user.UpdatedAt = now
}
