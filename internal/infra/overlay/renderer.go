package overlay

import (
	"fmt"
	"image"

	"github.com/disintegration/imaging"
	"github.com/fogleman/gg"
	"github.com/tier4/automan-annotation-archiver/internal/domain/entity"
	"go.uber.org/zap"
)

const (
	DefaultLineWidth   = 2
	DefaultJPEGQuality = 95
)

// Renderer draws 2D annotation boxes onto frame images.
type Renderer struct {
	lineWidth float64
	quality   int
	logger    *zap.Logger
}

func NewRenderer(lineWidth float64, jpegQuality int, logger *zap.Logger) *Renderer {
	if lineWidth <= 0 {
		lineWidth = DefaultLineWidth
	}
	if jpegQuality <= 0 || jpegQuality > 100 {
		jpegQuality = DefaultJPEGQuality
	}
	return &Renderer{lineWidth: lineWidth, quality: jpegQuality, logger: logger}
}

// Render writes the annotated copy of imagePath to outputPath. An empty record set is a no-op and
// leaves no output file.
func (r *Renderer) Render(imagePath, outputPath string, annotation *entity.AnnotationRecordSet, colors entity.ClassColors) (bool, error) {
	if annotation == nil || annotation.Empty() {
		return false, nil
	}

	img, err := imaging.Open(imagePath)
	if err != nil {
		return false, fmt.Errorf("open image %s: %w", imagePath, err)
	}

	out, err := Draw(img, annotation, colors, r.lineWidth)
	if err != nil {
		return false, err
	}

	if err := imaging.Save(out, outputPath, imaging.JPEGQuality(r.quality)); err != nil {
		return false, fmt.Errorf("save overlay %s: %w", outputPath, err)
	}
	r.logger.Debug("overlay rendered", zap.String("path", outputPath), zap.Int("records", len(annotation.Records)))
	return true, nil
}

// Draw strokes every complete 2D box of the record set in its class color.
func Draw(img image.Image, annotation *entity.AnnotationRecordSet, colors entity.ClassColors, lineWidth float64) (image.Image, error) {
	dc := gg.NewContextForImage(img)
	dc.SetLineWidth(lineWidth)

	for _, record := range annotation.Records {
		boxes := record.Boxes2D()
		if len(boxes) == 0 {
			continue
		}
		c, err := colors.Lookup(record.Name)
		if err != nil {
			return nil, err
		}
		dc.SetColor(c.RGBA())
		for _, b := range boxes {
			dc.DrawRectangle(b.MinX, b.MinY, b.MaxX-b.MinX, b.MaxY-b.MinY)
			dc.Stroke()
		}
	}
	return dc.Image(), nil
}
