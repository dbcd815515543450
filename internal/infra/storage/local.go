package storage

import (
	"context"
	"fmt"
	"net/http"
	"os"

	"go.uber.org/zap"
)

// LocalStorage keeps archives in a local or network mounted directory.
type LocalStorage struct {
	outputDir string
	http      HTTPClient
	logger    *zap.Logger
}

func NewLocalStorage(outputDir string, httpClient HTTPClient, logger *zap.Logger) (*LocalStorage, error) {
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &LocalStorage{outputDir: outputDir, http: httpClient, logger: logger}, nil
}

// Upload has nothing to transfer; it reports the archives already in place.
func (s *LocalStorage) Upload(ctx context.Context) ([]string, error) {
	files, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	s.logger.Info("archives kept in local storage", zap.String("dir", s.outputDir), zap.Int("files", len(files)))
	return files, nil
}

func (s *LocalStorage) Download(ctx context.Context, url, destPath string) error {
	return downloadFile(ctx, s.http, url, destPath)
}

func (s *LocalStorage) List(_ context.Context) ([]string, error) {
	return ListFiles(s.outputDir)
}

func (s *LocalStorage) OutputDir() string {
	return s.outputDir
}
