package models

import (
	"strings"
	"time"
)

// FileState is the lifecycle state of a stored file. A purged file has no record,
// so StatePurged only appears in operation results.
type FileState string

const (
	StateActive  FileState = "active"
	StateTrashed FileState = "trashed"
	StatePurged  FileState = "purged"
)

type Category string

const (
	CategoryImages    Category = "Images"
	CategoryVideos    Category = "Videos"
	CategoryMusic     Category = "Music"
	CategoryDocuments Category = "Documents"
)

// CategoryForMIME classifies a file by the prefix of its MIME type.
func CategoryForMIME(mimeType string) Category {
	mt := strings.ToLower(strings.TrimSpace(mimeType))
	switch {
	case strings.HasPrefix(mt, "image/"):
		return CategoryImages
	case strings.HasPrefix(mt, "video/"):
		return CategoryVideos
	case strings.HasPrefix(mt, "audio/"):
		return CategoryMusic
	default:
		return CategoryDocuments
	}
}

type File struct {
	ID           string     `bson:"_id" json:"id" gorm:"primaryKey;type:varchar(36)"`
	Name         string     `bson:"name" json:"name" gorm:"not null"`
	LogicalPath  string     `bson:"logical_path" json:"logical_path" gorm:"not null"`
	PhysicalPath string     `bson:"physical_path" json:"-" gorm:"not null;index"`
	MimeType     string     `bson:"mime_type" json:"mime_type"`
	SizeBytes    int64      `bson:"size_bytes" json:"size"`
	Category     Category   `bson:"category" json:"category" gorm:"type:varchar(16)"`
	State        FileState  `bson:"state" json:"state" gorm:"type:varchar(16);index;not null"`
	DeletedAt    *time.Time `bson:"deleted_at,omitempty" json:"deleted_at,omitempty"`
	OwnerID      string     `bson:"owner_id" json:"owner_id" gorm:"type:varchar(36);index;not null"`
	CreatedAt    time.Time  `bson:"created_at" json:"created_at"`
	UpdatedAt    time.Time  `bson:"updated_at" json:"updated_at"`
}

func (File) TableName() string {
	return "files"
}

func (f *File) IsDeleted() bool {
	return f.State == StateTrashed
}

// MarkTrashed moves the record to the bin. State and DeletedAt always change together.
func (f *File) MarkTrashed(now time.Time) {
	f.State = StateTrashed
	f.DeletedAt = &now
	f.UpdatedAt = now
}

// MarkActive takes the record out of the bin.
func (f *File) MarkActive(now time.Time) {
	f.State = StateActive
	f.DeletedAt = nil
	f.UpdatedAt = now
}
