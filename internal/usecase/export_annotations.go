package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/tier4/automan-annotation-archiver/internal/domain/entity"
	"github.com/tier4/automan-annotation-archiver/internal/domain/port"
	"github.com/tier4/automan-annotation-archiver/internal/infra/metrics"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

type ExportConfig struct {
	ExportImages  bool
	ExportClasses []string
	FormatVersion entity.FormatVersion
}

// ExportResult summarises what a pipeline run wrote into the staging tree.
type ExportResult struct {
	FrameCount   int
	Candidates   int
	FilesFetched int
	Overlays     int
	ExportFiles  []string
	Localized    bool
}

// ExportAnnotationsUseCase walks every frame of an annotation and stages its files.
type ExportAnnotationsUseCase struct {
	source   port.AnnotationSource
	renderer port.OverlayRenderer
	logger   *zap.Logger
	cfg      ExportConfig
}

func NewExportAnnotationsUseCase(
	source port.AnnotationSource,
	renderer port.OverlayRenderer,
	logger *zap.Logger,
	cfg ExportConfig,
) *ExportAnnotationsUseCase {
	return &ExportAnnotationsUseCase{
		source:   source,
		renderer: renderer,
		logger:   logger,
		cfg:      cfg,
	}
}

// exportMetadata is fetched once and fixed for the whole run.
type exportMetadata struct {
	frameCount int
	colors     entity.ClassColors
	candidates []entity.Candidate
	pointCloud *entity.Candidate
	track      entity.LocalizationTrack
}

func (uc *ExportAnnotationsUseCase) Run(
	ctx context.Context,
	run *entity.ArchiveRun,
	info entity.ArchiveInfo,
	staging entity.Staging,
) (*ExportResult, error) {
	tracer := otel.Tracer("usecase")
	ctx, span := tracer.Start(ctx, "ExportAnnotationsUseCase.Run")
	defer span.End()

	log := uc.logger.With(
		zap.Int64("project_id", info.ProjectID),
		zap.Int64("annotation_id", info.AnnotationID),
		zap.Int64("dataset_id", info.DatasetID),
	)

	run.Transition(entity.RunStateResolvingMetadata)
	mdStart := time.Now()
	meta, err := uc.resolveMetadata(ctx, info, log)
	if err != nil {
		log.Error("failed to resolve metadata", zap.Error(err))
		return nil, fmt.Errorf("resolve metadata: %w", err)
	}
	metrics.StageDuration.WithLabelValues("metadata").Observe(time.Since(mdStart).Seconds())

	run.FrameCount = meta.frameCount
	span.SetAttributes(
		attribute.Int("export.frame_count", meta.frameCount),
		attribute.Int("export.candidates", len(meta.candidates)),
	)

	result := &ExportResult{
		FrameCount: meta.frameCount,
		Candidates: len(meta.candidates),
		Localized:  meta.track != nil,
	}

	run.Transition(entity.RunStateIteratingFrames)
	framesStart := time.Now()
	agg := NewExportAggregator(uc.cfg.ExportClasses)
	for frame := 1; frame <= meta.frameCount; frame++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := uc.exportFrame(ctx, info, staging, meta, agg, frame, result, log); err != nil {
			log.Error("frame export failed", zap.Int("frame", frame), zap.Error(err))
			return nil, fmt.Errorf("frame %d: %w", frame, err)
		}
	}
	metrics.StageDuration.WithLabelValues("frames").Observe(time.Since(framesStart).Seconds())

	run.Transition(entity.RunStateFinalizing)
	files, err := uc.writeExports(staging, agg)
	if err != nil {
		return nil, fmt.Errorf("write exports: %w", err)
	}
	result.ExportFiles = files

	log.Info("annotations exported",
		zap.Int("frame_count", result.FrameCount),
		zap.Int("files_fetched", result.FilesFetched),
		zap.Int("overlays", result.Overlays),
		zap.Strings("export_files", result.ExportFiles),
	)
	return result, nil
}

func (uc *ExportAnnotationsUseCase) resolveMetadata(ctx context.Context, info entity.ArchiveInfo, log *zap.Logger) (*exportMetadata, error) {
	frameCount, err := uc.source.GetFrameCount(ctx, info.ProjectID, info.AnnotationID)
	if err != nil {
		return nil, fmt.Errorf("frame count: %w", err)
	}
	colors, err := uc.source.GetClassColors(ctx, info.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("class colors: %w", err)
	}
	candidates, err := uc.source.GetCandidates(ctx, info.ProjectID, info.OriginalID)
	if err != nil {
		return nil, fmt.Errorf("candidates: %w", err)
	}

	meta := &exportMetadata{
		frameCount: frameCount,
		colors:     colors,
		candidates: candidates,
		track:      uc.source.GetLocalizationTrack(ctx, info.ProjectID, info.DatasetID),
	}
	for i := range candidates {
		if !candidates[i].IsImage() {
			meta.pointCloud = &candidates[i]
			break
		}
	}

	if meta.track != nil {
		metrics.LocalizationAvailable.Set(1)
	} else {
		metrics.LocalizationAvailable.Set(0)
	}

	log.Info("metadata resolved",
		zap.Int("frame_count", frameCount),
		zap.Int("classes", len(colors)),
		zap.Int("candidates", len(candidates)),
		zap.Bool("localization", meta.track != nil),
	)
	return meta, nil
}

func (uc *ExportAnnotationsUseCase) exportFrame(
	ctx context.Context,
	info entity.ArchiveInfo,
	staging entity.Staging,
	meta *exportMetadata,
	agg *ExportAggregator,
	frame int,
	result *ExportResult,
	log *zap.Logger,
) error {
	tracer := otel.Tracer("usecase")
	ctx, span := tracer.Start(ctx, "export_frame")
	span.SetAttributes(attribute.Int("frame", frame))
	defer span.End()

	annotation, err := uc.source.GetAnnotation(ctx, info.ProjectID, info.AnnotationID, frame)
	if err != nil {
		return fmt.Errorf("annotation: %w", err)
	}

	enriched := entity.FrameAnnotation{
		AnnotationRecordSet: *annotation,
		FormatVersion:       uc.cfg.FormatVersion,
		MapToBaseLink:       meta.track.Pose(frame),
	}

	details := make(map[int64]*entity.FrameDetail, len(meta.candidates))
	if pc := meta.pointCloud; pc != nil {
		detail, err := uc.source.GetFrameDetail(ctx, info.ProjectID, info.DatasetID, pc.ID, frame)
		if err != nil {
			return fmt.Errorf("timestamp of candidate %d: %w", pc.ID, err)
		}
		if detail.Frame == nil {
			return fmt.Errorf("%w: candidate %d has no frame timestamp", entity.ErrUpstream, pc.ID)
		}
		enriched.Timestamp = detail.Frame
		details[pc.ID] = detail
	}

	if err := writeJSON(staging.AnnotationPath(frame), enriched); err != nil {
		return err
	}
	metrics.FramesExportedTotal.Inc()

	agg.AddFrame(annotation, meta.track, frame)

	if !uc.cfg.ExportImages {
		return nil
	}
	return uc.exportCandidateFiles(ctx, info, staging, meta, annotation, details, frame, result, log)
}

// exportCandidateFiles stores every candidate's frame file and overlays the image ones. Fetch and
// decode failures only skip the candidate; a class without a color aborts the run.
func (uc *ExportAnnotationsUseCase) exportCandidateFiles(
	ctx context.Context,
	info entity.ArchiveInfo,
	staging entity.Staging,
	meta *exportMetadata,
	annotation *entity.AnnotationRecordSet,
	details map[int64]*entity.FrameDetail,
	frame int,
	result *ExportResult,
	log *zap.Logger,
) error {
	for _, c := range meta.candidates {
		clog := log.With(zap.Int("frame", frame), zap.Int64("candidate_id", c.ID))

		detail := details[c.ID]
		if detail == nil {
			var err error
			detail, err = uc.source.GetFrameDetail(ctx, info.ProjectID, info.DatasetID, c.ID, frame)
			if err != nil {
				clog.Warn("frame detail unavailable, skipping candidate", zap.Error(err))
				metrics.CandidateFilesTotal.WithLabelValues("failed").Inc()
				continue
			}
		}
		if detail.ImageLink == "" {
			clog.Warn("frame detail has no file link, skipping candidate")
			metrics.CandidateFilesTotal.WithLabelValues("failed").Inc()
			continue
		}

		data, err := uc.source.DownloadImage(ctx, detail.ImageLink)
		if err != nil {
			clog.Warn("candidate file download failed", zap.Error(err))
			metrics.CandidateFilesTotal.WithLabelValues("failed").Inc()
			continue
		}

		imagePath := staging.ImagePath(c, frame)
		if err := os.WriteFile(imagePath, data, 0644); err != nil {
			return fmt.Errorf("write %s: %w", imagePath, err)
		}
		metrics.CandidateFilesTotal.WithLabelValues("fetched").Inc()
		result.FilesFetched++

		if !c.IsImage() {
			continue
		}

		rendered, err := uc.renderer.Render(imagePath, staging.OverlayPath(c, frame), annotation, meta.colors)
		if err != nil {
			if errors.Is(err, entity.ErrConfiguration) {
				return fmt.Errorf("render overlay: %w", err)
			}
			clog.Warn("overlay rendering failed", zap.Error(err))
			continue
		}
		if rendered {
			metrics.OverlaysRenderedTotal.Inc()
			result.Overlays++
		}
	}
	return nil
}

func (uc *ExportAnnotationsUseCase) writeExports(staging entity.Staging, agg *ExportAggregator) ([]string, error) {
	files := agg.Finalize()
	written := make([]string, 0, len(files))
	for _, class := range agg.Classes() {
		file := files[class]
		path := staging.ExportPath(class)
		if err := writeJSON(path, file); err != nil {
			return nil, err
		}
		metrics.ExportEntriesTotal.WithLabelValues(class).Add(float64(len(file.Annotations)))
		written = append(written, path)
	}
	return written, nil
}

func writeJSON(path string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", path, err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
