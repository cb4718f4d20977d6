package storage

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

type MinIOConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

// MinIOStore keeps files in an S3 compatible bucket using the same key layout as B2Store.
type MinIOStore struct {
	client    *minio.Client
	bucket    string
	urlPrefix string
}

func NewMinIOStore(ctx context.Context, cfg MinIOConfig, urlPrefix string) (*MinIOStore, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create MinIO client: %w", err)
	}

	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("failed to check bucket %s: %w", cfg.Bucket, err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("failed to create bucket %s: %w", cfg.Bucket, err)
		}
	}

	return &MinIOStore{client: client, bucket: cfg.Bucket, urlPrefix: strings.TrimRight(urlPrefix, "/")}, nil
}

func (s *MinIOStore) EnsureUserDirectory(_ context.Context, user string) error {
	return checkName(user, "x")
}

func (s *MinIOStore) WriteFile(ctx context.Context, user, name, contentType string, r io.Reader) (string, int64, error) {
	if err := checkName(user, name); err != nil {
		return "", 0, err
	}

	key := objectKey(user, name)
	info, err := s.client.PutObject(ctx, s.bucket, key, r, -1, minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		return "", 0, fmt.Errorf("failed to upload file to MinIO: %w", err)
	}
	return key, info.Size, nil
}

// DeleteFile relies on S3 delete semantics: removing a missing key succeeds.
func (s *MinIOStore) DeleteFile(ctx context.Context, physicalPath string) error {
	if !strings.HasPrefix(physicalPath, "users/") {
		return fmt.Errorf("%w: %s", ErrOutsideStore, physicalPath)
	}
	if err := s.client.RemoveObject(ctx, s.bucket, physicalPath, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("failed to delete file from MinIO: %w", err)
	}
	return nil
}

func (s *MinIOStore) DeleteUserDirectory(ctx context.Context, user string) error {
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

func (s *MinIOStore) ListUserFiles(ctx context.Context, user string) ([]string, error) {
	if err := checkName(user, "x"); err != nil {
		return nil, err
	}

	var keys []string
	for object := range s.client.ListObjects(ctx, s.bucket, minio.ListObjectsOptions{
		Prefix:    userPrefix(user),
		Recursive: true,
	}) {
		if object.Err != nil {
			return nil, fmt.Errorf("failed to list MinIO objects: %w", object.Err)
		}
		keys = append(keys, object.Key)
	}
	return keys, nil
}

func (s *MinIOStore) ListUserDirectories(ctx context.Context) ([]string, error) {
	var dirs []string
	seen := make(map[string]bool)
	for object := range s.client.ListObjects(ctx, s.bucket, minio.ListObjectsOptions{
		Prefix:    "users/",
		Recursive: true,
	}) {
		if object.Err != nil {
			return nil, fmt.Errorf("failed to list MinIO objects: %w", object.Err)
		}
		dirs = appendDirectory(dirs, seen, object.Key)
	}
	return dirs, nil
}

func (s *MinIOStore) LogicalPath(user, name string) string {
	return path.Join(s.urlPrefix, user, name)
}
