package usecase

import (
	"encoding/json"

	"github.com/tier4/automan-annotation-archiver/internal/domain/entity"
)

// ExportAggregator collects, per export class, the frames in which that class appears.
// It is not safe for concurrent use; frames are fed in order by the pipeline.
type ExportAggregator struct {
	classes []string
	buckets map[string][]entity.ExportEntry
}

func NewExportAggregator(classes []string) *ExportAggregator {
	buckets := make(map[string][]entity.ExportEntry, len(classes))
	unique := make([]string, 0, len(classes))
	for _, c := range classes {
		if _, dup := buckets[c]; dup || c == "" {
			continue
		}
		buckets[c] = nil
		unique = append(unique, c)
	}
	return &ExportAggregator{classes: unique, buckets: buckets}
}

func (a *ExportAggregator) Classes() []string {
	return a.classes
}

// AddFrame appends an entry for every export class with at least one record in the frame.
func (a *ExportAggregator) AddFrame(annotation *entity.AnnotationRecordSet, localization entity.LocalizationTrack, frame int) {
	if annotation == nil {
		return
	}
	pose := localization.Pose(frame)
	for _, class := range a.classes {
		records := annotation.Filter(class)
		if len(records) == 0 {
			continue
		}
		entry := entity.ExportEntry{AnnotationFrameNo: frame, Records: records}
		if pose != nil {
			entry.MapToBaseLink = append(json.RawMessage(nil), pose...)
		}
		a.buckets[class] = append(a.buckets[class], entry)
	}
}

// Finalize returns one export file per class. Classes that never matched get a placeholder entry.
func (a *ExportAggregator) Finalize() map[string]entity.ExportFile {
	files := make(map[string]entity.ExportFile, len(a.classes))
	for _, class := range a.classes {
		entries := a.buckets[class]
		if len(entries) == 0 {
			entries = []entity.ExportEntry{entity.PlaceholderEntry(class)}
		}
		files[class] = entity.ExportFile{Annotations: entries}
	}
	return files
}
