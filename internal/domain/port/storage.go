package port

import "context"

// ArchiveStorage is where finished archives are kept.
type ArchiveStorage interface {
	Upload(ctx context.Context) ([]string, error)
	Download(ctx context.Context, url, destPath string) error
	List(ctx context.Context) ([]string, error)
	OutputDir() string
}
