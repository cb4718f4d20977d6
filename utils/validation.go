package utils

import (
	"fmt"
	"path"
	"regexp"
	"strings"
	"unicode/utf8"
)

var (
	emailRegex    = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)
	usernameRegex = regexp.MustCompile(`^[\p{L}\p{N}._\- ]+$`)
)

const (
	MinPasswordLength = 8
	maxNameLength     = 255
)

// ValidateFileName accepts a bare file name only. Anything that could address
// another directory is rejected.
func ValidateFileName(filename string) error {
	if strings.TrimSpace(filename) == "" {
		return fmt.Errorf("filename cannot be empty")
	}

	if len(filename) > maxNameLength {
		return fmt.Errorf("filename too long (max %d characters)", maxNameLength)
	}

	if !utf8.ValidString(filename) {
		return fmt.Errorf("filename contains invalid UTF-8 characters")
	}

	if filename == "." || filename == ".." {
		return fmt.Errorf("filename cannot be %q", filename)
	}

	invalidChars := []string{"/", "\\", "<", ">", ":", "\"", "|", "?", "*", "\x00"}
	for _, char := range invalidChars {
		if strings.Contains(filename, char) {
			return fmt.Errorf("filename contains invalid character: %q", char)
		}
	}

	return nil
}

// CleanFileName strips any client-supplied directory part from an upload name.
func CleanFileName(filename string) string {
	name := path.Base(strings.ReplaceAll(filename, "\\", "/"))
	if name == "/" || name == "." {
		return ""
	}
	return strings.TrimSpace(name)
}

func ValidateFileSize(size, maxSize int64) error {
	if maxSize > 0 && size > maxSize {
		return fmt.Errorf("file size %d bytes exceeds maximum allowed size of %d bytes", size, maxSize)
	}
	return nil
}

func ValidateEmail(email string) error {
	if email == "" {
		return fmt.Errorf("email cannot be empty")
	}
	if !emailRegex.MatchString(email) {
		return fmt.Errorf("invalid email format")
	}
	return nil
}

func ValidateUsername(username string) error {
	if strings.TrimSpace(username) == "" {
		return fmt.Errorf("username cannot be empty")
	}
	if utf8.RuneCountInString(username) > 64 {
		return fmt.Errorf("username too long (max 64 characters)")
	}
	if !usernameRegex.MatchString(username) {
		return fmt.Errorf("username contains invalid characters")
	}
	return nil
}

func ValidatePassword(password string) error {
	if len(password) < MinPasswordLength {
		return fmt.Errorf("password must be at least %d characters", MinPasswordLength)
	}
	if len(password) > 72 {
		return fmt.Errorf("password too long (max 72 bytes)")
	}
	return nil
}
