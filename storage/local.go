package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/osfs"
	"github.com/go-git/go-billy/v5/util"
)

// LocalStore keeps files on a billy filesystem. In production that is the
// directory served at /storage; tests hand it an in-memory filesystem.
type LocalStore struct {
	fs        billy.Filesystem
	urlPrefix string
}

func NewLocalStore(root, urlPrefix string) (*LocalStore, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve storage root: %w", err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create storage root: %w", err)
	}
	return NewLocalStoreFS(osfs.New(abs), urlPrefix), nil
}

func NewLocalStoreFS(fs billy.Filesystem, urlPrefix string) *LocalStore {
	return &LocalStore{fs: fs, urlPrefix: strings.TrimRight(urlPrefix, "/")}
}

func (s *LocalStore) Root() string {
	return s.fs.Root()
}

func (s *LocalStore) EnsureUserDirectory(ctx context.Context, user string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := checkName(user, "x"); err != nil {
		return err
	}
	if err := s.fs.MkdirAll(user, 0o755); err != nil {
		return fmt.Errorf("failed to create user directory: %w", err)
	}
	return nil
}

func (s *LocalStore) WriteFile(ctx context.Context, user, name, _ string, r io.Reader) (string, int64, error) {
	if err := ctx.Err(); err != nil {
		return "", 0, err
	}
	if err := checkName(user, name); err != nil {
		return "", 0, err
	}
	if err := s.fs.MkdirAll(user, 0o755); err != nil {
		return "", 0, fmt.Errorf("failed to create user directory: %w", err)
	}

	rel := s.fs.Join(user, name)
	f, err := s.fs.Create(rel)
	if err != nil {
		return "", 0, fmt.Errorf("failed to create file: %w", err)
	}

	written, err := io.Copy(f, r)
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		_ = s.fs.Remove(rel)
		return "", 0, fmt.Errorf("failed to write file: %w", err)
	}

	return s.physicalPath(rel), written, nil
}

func (s *LocalStore) DeleteFile(ctx context.Context, physicalPath string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	rel, err := s.relative(physicalPath)
	if err != nil {
		return err
	}
	if err := s.fs.Remove(rel); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to delete file: %w", err)
	}
	return nil
}

func (s *LocalStore) DeleteUserDirectory(ctx context.Context, user string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := checkName(user, "x"); err != nil {
		return err
	}
	if err := util.RemoveAll(s.fs, user); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to delete user directory: %w", err)
	}
	return nil
}

func (s *LocalStore) ListUserFiles(ctx context.Context, user string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := checkName(user, "x"); err != nil {
		return nil, err
	}
	infos, err := s.fs.ReadDir(user)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to list user directory: %w", err)
	}

	paths := make([]string, 0, len(infos))
	for _, info := range infos {
		if info.IsDir() {
			continue
		}
		paths = append(paths, s.physicalPath(s.fs.Join(user, info.Name())))
	}
	return paths, nil
}

func (s *LocalStore) ListUserDirectories(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	infos, err := s.fs.ReadDir("/")
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to list storage root: %w", err)
	}

	var dirs []string
	for _, info := range infos {
		if info.IsDir() {
			dirs = append(dirs, info.Name())
		}
	}
	return dirs, nil
}

func (s *LocalStore) LogicalPath(user, name string) string {
	return path.Join(s.urlPrefix, user, name)
}

func (s *LocalStore) physicalPath(rel string) string {
	return filepath.Join(s.fs.Root(), filepath.FromSlash(rel))
}

// relative maps a physical path back into the store and refuses anything that
// resolves outside of it.
func (s *LocalStore) relative(physicalPath string) (string, error) {
	rel, err := filepath.Rel(s.fs.Root(), filepath.Clean(physicalPath))
	if err != nil {
		return "", fmt.Errorf("%w: %s", ErrOutsideStore, physicalPath)
	}
	rel = filepath.ToSlash(rel)
	if rel == "." || rel == ".." || strings.HasPrefix(rel, "../") {
		return "", fmt.Errorf("%w: %s", ErrOutsideStore, physicalPath)
	}
	return rel, nil
}
