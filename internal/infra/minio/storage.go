package minio

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	miniogo "github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/tier4/automan-annotation-archiver/internal/infra/storage"
	"go.uber.org/zap"
)

// Storage uploads archives straight to an S3 compatible bucket.
type Storage struct {
	client    *miniogo.Client
	bucket    string
	outputDir string
	prefix    string
	logger    *zap.Logger
}

type StorageConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	UseSSL    bool
	Bucket    string
	// OutputDir is the local directory archives are written to; its slash form, without the
	// leading slash, is the key prefix in the bucket.
	OutputDir string
}

func NewStorage(cfg StorageConfig, logger *zap.Logger) (*Storage, error) {
	client, err := miniogo.New(cfg.Endpoint, &miniogo.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("create minio client: %w", err)
	}
	if err := os.MkdirAll(cfg.OutputDir, 0755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}

	return &Storage{
		client:    client,
		bucket:    cfg.Bucket,
		outputDir: cfg.OutputDir,
		prefix:    strings.Trim(filepath.ToSlash(cfg.OutputDir), "/"),
		logger:    logger,
	}, nil
}

func (s *Storage) EnsureBucket(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return fmt.Errorf("check bucket %s: %w", s.bucket, err)
	}
	if !exists {
		if err := s.client.MakeBucket(ctx, s.bucket, miniogo.MakeBucketOptions{}); err != nil {
			return fmt.Errorf("create bucket %s: %w", s.bucket, err)
		}
	}
	return nil
}

func (s *Storage) Key(file string) string {
	return path.Join(s.prefix, filepath.Base(file))
}

func (s *Storage) Upload(ctx context.Context) ([]string, error) {
	files, err := storage.ListFiles(s.outputDir)
	if err != nil {
		return nil, err
	}

	keys := make([]string, 0, len(files))
	for _, file := range files {
		key := s.Key(file)
		_, err := s.client.FPutObject(ctx, s.bucket, key, file, miniogo.PutObjectOptions{
			ContentType: contentType(file),
		})
		if err != nil {
			return keys, fmt.Errorf("upload %s: %w", key, err)
		}
		s.logger.Info("archive uploaded", zap.String("bucket", s.bucket), zap.String("key", key))
		keys = append(keys, key)
	}
	return keys, nil
}

// Download fetches an object key of the bucket into destPath.
func (s *Storage) Download(ctx context.Context, objectKey string, destPath string) error {
	return s.client.FGetObject(ctx, s.bucket, objectKey, destPath, miniogo.GetObjectOptions{})
}

// List returns the object keys under the output prefix.
func (s *Storage) List(ctx context.Context) ([]string, error) {
	prefix := s.prefix
	if prefix != "" {
		prefix += "/"
	}
	var keys []string
	for obj := range s.client.ListObjects(ctx, s.bucket, miniogo.ListObjectsOptions{Prefix: prefix, Recursive: true}) {
		if obj.Err != nil {
			return nil, fmt.Errorf("list %s: %w", s.bucket, obj.Err)
		}
		keys = append(keys, obj.Key)
	}
	return keys, nil
}

func (s *Storage) OutputDir() string {
	return s.outputDir
}

func contentType(file string) string {
	switch {
	case strings.HasSuffix(file, ".tar.gz"), strings.HasSuffix(file, ".tgz"):
		return "application/gzip"
	case strings.HasSuffix(file, ".zip"):
		return "application/zip"
	}
	return "application/octet-stream"
}
