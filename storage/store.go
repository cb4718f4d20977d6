package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
)

var (
	ErrInvalidName  = errors.New("invalid file name")
	ErrOutsideStore = errors.New("path is outside the storage root")
)

// Store is the physical byte store. Every file lives under a per-user directory
// named by the sanitized username, and a write to an existing name replaces it.
type Store interface {
	EnsureUserDirectory(ctx context.Context, user string) error
	// WriteFile returns the physical path of the stored file and the bytes written.
	WriteFile(ctx context.Context, user, name, contentType string, r io.Reader) (string, int64, error)
	// DeleteFile removes one file. A missing file is not an error.
	DeleteFile(ctx context.Context, physicalPath string) error
	// DeleteUserDirectory removes the user's directory and everything in it.
	DeleteUserDirectory(ctx context.Context, user string) error
	ListUserFiles(ctx context.Context, user string) ([]string, error)
	// ListUserDirectories returns the name of every user directory in the store.
	ListUserDirectories(ctx context.Context) ([]string, error)
	// LogicalPath is the URL path a client uses to fetch the file.
	LogicalPath(user, name string) string
}

func checkName(user, name string) error {
	if user == "" || strings.ContainsAny(user, `/\`) || user == "." || user == ".." {
		return fmt.Errorf("%w: user directory %q", ErrInvalidName, user)
	}
	if name == "" || name == "." || name == ".." || strings.ContainsAny(name, "/\\\x00") {
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return nil
}

// objectKey is the key layout shared by the object store backends.
func objectKey(user, name string) string {
	return fmt.Sprintf("users/%s/%s", user, name)
}

func userPrefix(user string) string {
	return fmt.Sprintf("users/%s/", user)
}

// directoryOf returns the user segment of an object key, or "" for keys
// outside the users/<user>/<name> layout.
func directoryOf(key string) string {
	rest, ok := strings.CutPrefix(key, "users/")
	if !ok {
		return ""
	}
	user, _, ok := strings.Cut(rest, "/")
	if !ok {
		return ""
	}
	return user
}

func appendDirectory(dirs []string, seen map[string]bool, key string) []string {
	user := directoryOf(key)
	if user == "" || seen[user] {
		return dirs
	}
	seen[user] = true
	return append(dirs, user)
}
