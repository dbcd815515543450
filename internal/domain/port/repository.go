package port

import (
	"context"

	"github.com/google/uuid"
	"github.com/tier4/automan-annotation-archiver/internal/domain/entity"
)

type RunRepository interface {
	Create(ctx context.Context, run *entity.ArchiveRun) error
	Update(ctx context.Context, run *entity.ArchiveRun) error
	FindByID(ctx context.Context, id uuid.UUID) (*entity.ArchiveRun, error)
}
