package storage

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/kurin/blazer/b2"
)

// B2Store keeps files in a Backblaze B2 bucket under users/<user>/<name>.
type B2Store struct {
	bucket    *b2.Bucket
	urlPrefix string
}

func NewB2Store(ctx context.Context, keyID, applicationKey, bucketName, urlPrefix string) (*B2Store, error) {
	client, err := b2.NewClient(ctx, keyID, applicationKey)
	if err != nil {
		return nil, fmt.Errorf("failed to create B2 client: %w", err)
	}

	bucket, err := client.Bucket(ctx, bucketName)
	if err != nil {
		return nil, fmt.Errorf("failed to get bucket %s: %w", bucketName, err)
	}

	return &B2Store{bucket: bucket, urlPrefix: strings.TrimRight(urlPrefix, "/")}, nil
}

// EnsureUserDirectory is a no-op: B2 has no directories, only key prefixes.
func (s *B2Store) EnsureUserDirectory(_ context.Context, user string) error {
	return checkName(user, "x")
}

func (s *B2Store) WriteFile(ctx context.Context, user, name, contentType string, r io.Reader) (string, int64, error) {
	if err := checkName(user, name); err != nil {
		return "", 0, err
	}

	key := objectKey(user, name)
	var opts []b2.WriterOption
	if contentType != "" {
		opts = append(opts, b2.WithAttrsOption(&b2.Attrs{ContentType: contentType}))
	}
	writer := s.bucket.Object(key).NewWriter(ctx, opts...)

	written, err := io.Copy(writer, r)
	if err != nil {
		writer.Close()
		return "", 0, fmt.Errorf("failed to upload file to B2: %w", err)
	}
	if err := writer.Close(); err != nil {
		return "", 0, fmt.Errorf("failed to close B2 writer: %w", err)
	}

	return key, written, nil
}

func (s *B2Store) DeleteFile(ctx context.Context, physicalPath string) error {
	if !strings.HasPrefix(physicalPath, "users/") {
		return fmt.Errorf("%w: %s", ErrOutsideStore, physicalPath)
	}
	if err := s.bucket.Object(physicalPath).Delete(ctx); err != nil && !b2.IsNotExist(err) {
		return fmt.Errorf("failed to delete file from B2: %w", err)
	}
	return nil
}

func (s *B2Store) DeleteUserDirectory(ctx context.Context, user string) error {
	keys, err := s.ListUserFiles(ctx, user)
	if err != nil {
		return err
	}
	for _, key := range keys {
		if err := s.DeleteFile(ctx, key); err != nil {
			return err
		}
	}
	return nil
}

func (s *B2Store) ListUserFiles(ctx context.Context, user string) ([]string, error) {
	if err := checkName(user, "x"); err != nil {
		return nil, err
	}

	var keys []string
	iter := s.bucket.List(ctx, b2.ListPrefix(userPrefix(user)))
	for iter.Next() {
		keys = append(keys, iter.Object().Name())
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("failed to list B2 objects: %w", err)
	}
	return keys, nil
}

func (s *B2Store) ListUserDirectories(ctx context.Context) ([]string, error) {
	var dirs []string
	seen := make(map[string]bool)
	iter := s.bucket.List(ctx, b2.ListPrefix("users/"))
	for iter.Next() {
		dirs = appendDirectory(dirs, seen, iter.Object().Name())
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("failed to list B2 objects: %w", err)
	}
	return dirs, nil
}

func (s *B2Store) LogicalPath(user, name string) string {
	return path.Join(s.urlPrefix, user, name)
}
