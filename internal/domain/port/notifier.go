package port

import (
	"context"

	"github.com/tier4/automan-annotation-archiver/internal/domain/entity"
)

type ResultNotifier interface {
	NotifyResult(ctx context.Context, projectID int64, result entity.ArchiveResult) error
}

type FailureNotifier interface {
	NotifyFailure(ctx context.Context, run *entity.ArchiveRun, errorMsg string) error
}
