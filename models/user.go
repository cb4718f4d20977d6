package models

import (
	"time"
)

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

type User struct {
	ID              string    `bson:"_id" json:"id" gorm:"primaryKey;type:varchar(36)"`
	Username        string    `bson:"username" json:"username" gorm:"uniqueIndex;not null"`
	Email           string    `bson:"email" json:"email" gorm:"uniqueIndex;not null"`
	DirName         string    `bson:"dir_name" json:"-" gorm:"uniqueIndex;not null"`
	PasswordHash    string    `bson:"password_hash" json:"-" gorm:"not null"`
	Role            string    `bson:"role" json:"role" gorm:"type:varchar(16);default:user"`
	NewsletterOptIn bool      `bson:"newsletter_opt_in" json:"newsletter_opt_in"`
	CreatedAt       time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt       time.Time `bson:"updated_at" json:"updated_at"`
}

func (User) TableName() string {
	return "users"
}

func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}
