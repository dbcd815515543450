package port

import (
	"context"

	"github.com/tier4/automan-annotation-archiver/internal/domain/entity"
)

// AnnotationSource reads an annotation's data from the annotation service.
type AnnotationSource interface {
	GetFrameCount(ctx context.Context, projectID, annotationID int64) (int, error)
	GetClassColors(ctx context.Context, projectID int64) (entity.ClassColors, error)
	GetCandidates(ctx context.Context, projectID, originalID int64) ([]entity.Candidate, error)
	GetAnnotation(ctx context.Context, projectID, annotationID int64, frame int) (*entity.AnnotationRecordSet, error)
	GetFrameDetail(ctx context.Context, projectID, datasetID, candidateID int64, frame int) (*entity.FrameDetail, error)
	// GetLocalizationTrack returns nil when the dataset has no usable localization.
	GetLocalizationTrack(ctx context.Context, projectID, datasetID int64) entity.LocalizationTrack
	DownloadImage(ctx context.Context, url string) ([]byte, error)
}
