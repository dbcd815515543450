package port

import "context"

type Archiver interface {
	// CreateArchive packs srcDir into destBase plus the format's extension and returns the path.
	CreateArchive(ctx context.Context, srcDir, destBase string) (string, error)
	Ext() string
}
