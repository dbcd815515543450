package entity

import (
	"fmt"
	"os"
	"path/filepath"
)

const (
	AnnotationsDir       = "Annotations"
	ImagesDir            = "Images"
	ImagesAnnotationsDir = "Images_Annotations"
	ExportsDir           = "Exports"
)

// Staging is the local tree the pipeline writes into and the archiver packs.
type Staging struct {
	Root string
}

func NewStaging(root string) Staging {
	return Staging{Root: root}
}

// Prepare creates the staging sub directories.
func (s Staging) Prepare() error {
	for _, dir := range []string{AnnotationsDir, ImagesDir, ImagesAnnotationsDir, ExportsDir} {
		if err := os.MkdirAll(filepath.Join(s.Root, dir), 0755); err != nil {
			return fmt.Errorf("create staging dir %s: %w", dir, err)
		}
	}
	return nil
}

func (s Staging) AnnotationPath(frame int) string {
	return filepath.Join(s.Root, AnnotationsDir, fmt.Sprintf("%06d.json", frame))
}

func (s Staging) ImagePath(c Candidate, frame int) string {
	return filepath.Join(s.Root, ImagesDir, candidateFileName(c, frame))
}

func (s Staging) OverlayPath(c Candidate, frame int) string {
	return filepath.Join(s.Root, ImagesAnnotationsDir, candidateFileName(c, frame))
}

func (s Staging) ExportPath(class string) string {
	return filepath.Join(s.Root, ExportsDir, class+".json")
}

func candidateFileName(c Candidate, frame int) string {
	return fmt.Sprintf("%d_%06d%s", c.ID, frame, c.Ext())
}
