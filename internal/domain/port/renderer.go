package port

import "github.com/tier4/automan-annotation-archiver/internal/domain/entity"

// OverlayRenderer draws a frame's 2D boxes onto its image. It returns false without touching the
// file system when the record set is empty.
type OverlayRenderer interface {
	Render(imagePath, outputPath string, annotation *entity.AnnotationRecordSet, colors entity.ClassColors) (bool, error)
}
