package entity

import (
	"encoding/json"
	"fmt"
)

// AutomanInfo locates and authenticates against the annotation service.
type AutomanInfo struct {
	Host      string `json:"host"`
	JWT       string `json:"jwt"`
	Presigned string `json:"presigned,omitempty"`
}

func (a *AutomanInfo) UnmarshalText(text []byte) error {
	type plain AutomanInfo
	if err := json.Unmarshal(text, (*plain)(a)); err != nil {
		return fmt.Errorf("%w: automan info: %v", ErrConfiguration, err)
	}
	return nil
}

// ArchiveInfo names the annotation to export and where its archive goes.
type ArchiveInfo struct {
	ProjectID        int64  `json:"project_id"`
	AnnotationID     int64  `json:"annotation_id"`
	DatasetID        int64  `json:"dataset_id"`
	OriginalID       int64  `json:"original_id"`
	ArchiveDir       string `json:"archive_dir"`
	ArchiveName      string `json:"archive_name"`
	ExtractorVersion string `json:"extractor_version,omitempty"`
}

func (a *ArchiveInfo) UnmarshalText(text []byte) error {
	type plain ArchiveInfo
	if err := json.Unmarshal(text, (*plain)(a)); err != nil {
		return fmt.Errorf("%w: archive info: %v", ErrConfiguration, err)
	}
	return nil
}

func (a ArchiveInfo) Validate() error {
	switch {
	case a.ProjectID <= 0:
		return fmt.Errorf("%w: archive info: project_id is required", ErrConfiguration)
	case a.AnnotationID <= 0:
		return fmt.Errorf("%w: archive info: annotation_id is required", ErrConfiguration)
	case a.ArchiveDir == "":
		return fmt.Errorf("%w: archive info: archive_dir is required", ErrConfiguration)
	case a.ArchiveName == "":
		return fmt.Errorf("%w: archive info: archive_name is required", ErrConfiguration)
	}
	return nil
}

// StorageInfo configures the storage back end; unused keys are ignored per variant.
type StorageInfo struct {
	StorageID int64  `json:"storage_id,omitempty"`
	TargetURL string `json:"target_url,omitempty"`
	Bucket    string `json:"bucket,omitempty"`
}

func (s *StorageInfo) UnmarshalText(text []byte) error {
	if len(text) == 0 {
		return nil
	}
	type plain StorageInfo
	if err := json.Unmarshal(text, (*plain)(s)); err != nil {
		return fmt.Errorf("%w: storage info: %v", ErrConfiguration, err)
	}
	return nil
}

// ArchiveResult is reported to the annotation service once the archive is stored.
type ArchiveResult struct {
	FilePath     string `json:"file_path"`
	FileName     string `json:"file_name"`
	AnnotationID int64  `json:"annotation_id"`
}
