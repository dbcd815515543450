package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/tier4/automan-annotation-archiver/internal/domain/entity"
)

type RunRepository struct {
	pool *pgxpool.Pool
}

func NewRunRepository(pool *pgxpool.Pool) *RunRepository {
	return &RunRepository{pool: pool}
}

func (r *RunRepository) Create(ctx context.Context, run *entity.ArchiveRun) error {
	query := `
		INSERT INTO archive_runs (
			id, project_id, annotation_id, dataset_id, state, frame_count,
			archive_name, archive_path, error_message,
			created_at, updated_at, completed_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)`

	_, err := r.pool.Exec(ctx, query,
		run.ID, run.ProjectID, run.AnnotationID, run.DatasetID, string(run.State),
		run.FrameCount, run.ArchiveName, run.ArchivePath, run.ErrorMessage,
		run.CreatedAt, run.UpdatedAt, run.CompletedAt,
	)
	if err != nil {
		return fmt.Errorf("insert archive run: %w", err)
	}
	return nil
}

func (r *RunRepository) Update(ctx context.Context, run *entity.ArchiveRun) error {
	query := `
		UPDATE archive_runs SET
			dataset_id=$2, state=$3, frame_count=$4, archive_name=$5,
			archive_path=$6, error_message=$7, updated_at=$8, completed_at=$9
		WHERE id=$1`

	tag, err := r.pool.Exec(ctx, query,
		run.ID, run.DatasetID, string(run.State), run.FrameCount, run.ArchiveName,
		run.ArchivePath, run.ErrorMessage, run.UpdatedAt, run.CompletedAt,
	)
	if err != nil {
		return fmt.Errorf("update archive run: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("update archive run: %s not found", run.ID)
	}
	return nil
}

func (r *RunRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.ArchiveRun, error) {
	query := `
		SELECT id, project_id, annotation_id, dataset_id, state, frame_count,
			archive_name, archive_path, error_message,
			created_at, updated_at, completed_at
		FROM archive_runs WHERE id=$1`

	run := &entity.ArchiveRun{}
	var state string
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&run.ID, &run.ProjectID, &run.AnnotationID, &run.DatasetID, &state,
		&run.FrameCount, &run.ArchiveName, &run.ArchivePath, &run.ErrorMessage,
		&run.CreatedAt, &run.UpdatedAt, &run.CompletedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("find archive run by id: %w", err)
	}
	run.State = entity.RunState(state)
	return run, nil
}
