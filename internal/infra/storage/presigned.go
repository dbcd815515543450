package storage

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/tier4/automan-annotation-archiver/internal/domain/entity"
	"go.uber.org/zap"
)

// Presigner issues upload URLs for storage keys.
type Presigner interface {
	Presign(ctx context.Context, storageID int64, key string) (string, error)
}

// PresignedStorage uploads archives to S3 through URLs presigned by the annotation service.
type PresignedStorage struct {
	outputDir string
	storageID int64
	targetURL string
	presigner Presigner
	http      HTTPClient
	logger    *zap.Logger
}

func NewPresignedStorage(outputDir string, info entity.StorageInfo, presigner Presigner, httpClient HTTPClient, logger *zap.Logger) (*PresignedStorage, error) {
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &PresignedStorage{
		outputDir: outputDir,
		storageID: info.StorageID,
		targetURL: info.TargetURL,
		presigner: presigner,
		http:      httpClient,
		logger:    logger,
	}, nil
}

// Key is the object key of a local output file: the output dir followed by the file name.
func (s *PresignedStorage) Key(path string) string {
	return strings.TrimRight(s.outputDir, "/") + "/" + filepath.Base(path)
}

func (s *PresignedStorage) Upload(ctx context.Context) ([]string, error) {
	files, err := s.List(ctx)
	if err != nil {
		return nil, err
	}

	keys := make([]string, 0, len(files))
	for _, path := range files {
		key := s.Key(path)
		url, err := s.presigner.Presign(ctx, s.storageID, key)
		if err != nil {
			return keys, err
		}
		if err := s.put(ctx, url, path); err != nil {
			s.logger.Error("presigned upload failed", zap.String("key", key), zap.Error(err))
			return keys, err
		}
		s.logger.Info("archive uploaded", zap.String("key", key))
		keys = append(keys, key)
	}
	return keys, nil
}

func (s *PresignedStorage) put(ctx context.Context, url, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	stat, err := f.Stat()
	if err != nil {
		return fmt.Errorf("stat %s: %w", path, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, url, f)
	if err != nil {
		return fmt.Errorf("build upload request: %w", err)
	}
	req.ContentLength = stat.Size()
	req.Header.Set("Content-Type", "application/octet-stream")

	resp, err := s.http.Do(req)
	if err != nil {
		return fmt.Errorf("upload %s: %w", filepath.Base(path), err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("upload %s: status %d", filepath.Base(path), resp.StatusCode)
	}
	return nil
}

// Download fetches url, or the configured target url when url is empty.
func (s *PresignedStorage) Download(ctx context.Context, url, destPath string) error {
	if url == "" {
		url = s.targetURL
	}
	if url == "" {
		return fmt.Errorf("%w: no download url", entity.ErrConfiguration)
	}
	return downloadFile(ctx, s.http, url, destPath)
}

// List returns the local files waiting in the output dir.
func (s *PresignedStorage) List(_ context.Context) ([]string, error) {
	return ListFiles(s.outputDir)
}

func (s *PresignedStorage) OutputDir() string {
	return s.outputDir
}
