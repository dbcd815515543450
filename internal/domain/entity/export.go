package entity

import "encoding/json"

// PlaceholderMemo is the memo carried by the synthetic entry of an export class that never
// appeared in the dataset.
const PlaceholderMemo = `{"start_time": 0, "end_time": 0}`

// ExportEntry is one frame's worth of records of a single export class.
type ExportEntry struct {
	AnnotationFrameNo int                `json:"annotation_frame_no"`
	MapToBaseLink     json.RawMessage    `json:"map_to_base_link,omitempty"`
	Records           []AnnotationRecord `json:"records"`
}

// ExportFile is the document written to Exports/<class>.json.
type ExportFile struct {
	Annotations []ExportEntry `json:"annotations"`
}

// PlaceholderEntry is emitted for an export class without any matching record.
func PlaceholderEntry(class string) ExportEntry {
	return ExportEntry{
		Records: []AnnotationRecord{{
			Name:       class,
			ObjectID:   nil,
			InstanceID: "",
			Content:    map[string]any{"memo": PlaceholderMemo},
		}},
	}
}
