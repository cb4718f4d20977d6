package services

import "errors"

var (
	ErrValidation     = errors.New("validation failed")
	ErrFileNotFound   = errors.New("file not found")
	ErrNotTrashed     = errors.New("file is not in the recycle bin")
	ErrStorageIO      = errors.New("storage operation failed")
	ErrUnauthorized   = errors.New("invalid credentials")
	ErrDuplicate      = errors.New("account already exists")
	ErrUserNotFound   = errors.New("user not found")
	ErrInvalidToken   = errors.New("invalid or expired token")
	ErrNotifyDisabled = errors.New("mail delivery is not configured")
)
