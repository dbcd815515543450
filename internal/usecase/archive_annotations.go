package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/tier4/automan-annotation-archiver/internal/domain/entity"
	"github.com/tier4/automan-annotation-archiver/internal/domain/port"
	"github.com/tier4/automan-annotation-archiver/internal/infra/metrics"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// ArchiveAnnotationsUseCase exports an annotation, packs it, stores the archive and reports it.
// The run ledger, status publisher and failure notifier are optional and may be nil.
type ArchiveAnnotationsUseCase struct {
	exporter    *ExportAnnotationsUseCase
	archiver    port.Archiver
	storage     port.ArchiveStorage
	results     port.ResultNotifier
	repo        port.RunRepository
	publisher   port.StatusPublisher
	notifier    port.FailureNotifier
	logger      *zap.Logger
	stagingDir  string
	keepStaging bool
}

type ArchiveConfig struct {
	StagingDir  string
	KeepStaging bool
}

func NewArchiveAnnotationsUseCase(
	exporter *ExportAnnotationsUseCase,
	archiver port.Archiver,
	storage port.ArchiveStorage,
	results port.ResultNotifier,
	repo port.RunRepository,
	publisher port.StatusPublisher,
	notifier port.FailureNotifier,
	logger *zap.Logger,
	cfg ArchiveConfig,
) *ArchiveAnnotationsUseCase {
	return &ArchiveAnnotationsUseCase{
		exporter:    exporter,
		archiver:    archiver,
		storage:     storage,
		results:     results,
		repo:        repo,
		publisher:   publisher,
		notifier:    notifier,
		logger:      logger,
		stagingDir:  cfg.StagingDir,
		keepStaging: cfg.KeepStaging,
	}
}

// Execute performs one archive run. The returned run is never nil and carries the terminal state.
func (uc *ArchiveAnnotationsUseCase) Execute(ctx context.Context, info entity.ArchiveInfo) (*entity.ArchiveRun, error) {
	tracer := otel.Tracer("usecase")
	ctx, span := tracer.Start(ctx, "ArchiveAnnotationsUseCase.Execute")
	defer span.End()

	totalTimer := time.Now()

	run := entity.NewArchiveRun(info)
	span.SetAttributes(
		attribute.String("run.id", run.ID.String()),
		attribute.Int64("run.project_id", info.ProjectID),
		attribute.Int64("run.annotation_id", info.AnnotationID),
	)

	log := uc.logger.With(
		zap.String("run_id", run.ID.String()),
		zap.Int64("project_id", info.ProjectID),
		zap.Int64("annotation_id", info.AnnotationID),
	)

	if uc.repo != nil {
		if err := uc.repo.Create(ctx, run); err != nil {
			log.Warn("failed to record archive run", zap.Error(err))
		}
	}

	if err := uc.archivePipeline(ctx, run, info, log); err != nil {
		uc.handleFailure(ctx, run, err, log)
		return run, err
	}

	metrics.RunsTotal.WithLabelValues("done").Inc()
	metrics.StageDuration.WithLabelValues("total").Observe(time.Since(totalTimer).Seconds())
	return run, nil
}

func (uc *ArchiveAnnotationsUseCase) archivePipeline(
	ctx context.Context,
	run *entity.ArchiveRun,
	info entity.ArchiveInfo,
	log *zap.Logger,
) error {
	tracer := otel.Tracer("usecase")

	staging := entity.NewStaging(filepath.Join(uc.stagingDir, run.ID.String()))
	if err := staging.Prepare(); err != nil {
		return fmt.Errorf("prepare staging: %w", err)
	}
	if !uc.keepStaging {
		defer os.RemoveAll(staging.Root)
	}

	// Export frames into the staging tree
	result, err := uc.exporter.Run(ctx, run, info, staging)
	if err != nil {
		return fmt.Errorf("export annotations: %w", err)
	}
	uc.update(ctx, run, log)

	// Pack the staging tree
	run.Transition(entity.RunStateArchiving)
	arStart := time.Now()
	ctx2, spanAr := tracer.Start(ctx, "create_archive")
	destBase := filepath.Join(uc.storage.OutputDir(), info.ArchiveName)
	archivePath, err := uc.archiver.CreateArchive(ctx2, staging.Root, destBase)
	spanAr.End()
	if err != nil {
		return fmt.Errorf("create archive: %w", err)
	}
	metrics.StageDuration.WithLabelValues("archive").Observe(time.Since(arStart).Seconds())

	// Store the archive
	run.Transition(entity.RunStateUploading)
	upStart := time.Now()
	ctx3, spanUp := tracer.Start(ctx, "upload_archive")
	uploaded, err := uc.storage.Upload(ctx3)
	spanUp.End()
	if err != nil {
		return fmt.Errorf("upload archive: %w", err)
	}
	metrics.StageDuration.WithLabelValues("upload").Observe(time.Since(upStart).Seconds())

	// Report the archive to the annotation service
	run.Transition(entity.RunStateNotifying)
	fileName := info.ArchiveName + uc.archiver.Ext()
	err = uc.results.NotifyResult(ctx, info.ProjectID, entity.ArchiveResult{
		FilePath:     info.ArchiveDir,
		FileName:     fileName,
		AnnotationID: info.AnnotationID,
	})
	if err != nil {
		return fmt.Errorf("notify result: %w", err)
	}

	run.MarkDone(fileName, archivePath)
	uc.update(ctx, run, log)
	uc.publishStatus(ctx, run, log)

	log.Info("archive run completed",
		zap.Int("frame_count", result.FrameCount),
		zap.Int("files_fetched", result.FilesFetched),
		zap.Int("overlays", result.Overlays),
		zap.String("archive", archivePath),
		zap.Strings("uploaded", uploaded),
	)
	return nil
}

func (uc *ArchiveAnnotationsUseCase) handleFailure(ctx context.Context, run *entity.ArchiveRun, err error, log *zap.Logger) {
	failedIn := run.State
	run.MarkFailed(err.Error())
	uc.update(ctx, run, log)
	uc.publishStatus(ctx, run, log)

	metrics.RunsTotal.WithLabelValues("failed").Inc()

	if uc.notifier != nil {
		if nerr := uc.notifier.NotifyFailure(ctx, run, err.Error()); nerr != nil {
			log.Warn("failed to send failure notification", zap.Error(nerr))
		}
	}

	log.Error("archive run failed", zap.String("state", string(failedIn)), zap.Error(err))
}

func (uc *ArchiveAnnotationsUseCase) update(ctx context.Context, run *entity.ArchiveRun, log *zap.Logger) {
	if uc.repo == nil {
		return
	}
	if err := uc.repo.Update(ctx, run); err != nil {
		log.Warn("failed to update archive run", zap.String("state", string(run.State)), zap.Error(err))
	}
}

func (uc *ArchiveAnnotationsUseCase) publishStatus(ctx context.Context, run *entity.ArchiveRun, log *zap.Logger) {
	if uc.publisher == nil {
		return
	}
	data, _ := json.Marshal(run.StatusMessage())
	if err := uc.publisher.PublishStatus(ctx, data); err != nil {
		log.Error("failed to publish status", zap.Error(err))
	}
}
