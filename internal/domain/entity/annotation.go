package entity

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"

	"github.com/Masterminds/semver/v3"
)

// AnnotationRecordSet is the objects payload of one frame. Members other than count and records
// are kept in Extra and written back unchanged.
type AnnotationRecordSet struct {
	Count   int                        `json:"count"`
	Records []AnnotationRecord         `json:"records"`
	Extra   map[string]json.RawMessage `json:"-"`
}

func (s *AnnotationRecordSet) UnmarshalJSON(data []byte) error {
	members, err := decodeObject(data)
	if err != nil {
		return err
	}
	return s.fromMembers(members)
}

func (s *AnnotationRecordSet) fromMembers(members map[string]json.RawMessage) error {
	*s = AnnotationRecordSet{}
	if err := takeMember(members, "count", &s.Count); err != nil {
		return err
	}
	if err := takeMember(members, "records", &s.Records); err != nil {
		return err
	}
	if len(members) > 0 {
		s.Extra = members
	}
	return nil
}

func (s AnnotationRecordSet) MarshalJSON() ([]byte, error) {
	return encodeObject(s.members(), s.Extra)
}

func (s AnnotationRecordSet) members() map[string]any {
	return map[string]any{"count": s.Count, "records": s.Records}
}

// Empty reports the "no objects this frame" state.
func (s AnnotationRecordSet) Empty() bool {
	return s.Count == 0
}

// Filter returns the records whose class name is name, in their original order.
func (s AnnotationRecordSet) Filter(name string) []AnnotationRecord {
	var out []AnnotationRecord
	for _, r := range s.Records {
		if r.Name == name {
			out = append(out, r)
		}
	}
	return out
}

// AnnotationRecord is one labeled object. ObjectID and InstanceID are kept as decoded so they
// round-trip unchanged; Content values are JSON objects or scalars keyed by content kind. Any other
// member of the record lands in Extra.
type AnnotationRecord struct {
	Name       string                     `json:"name"`
	ObjectID   any                        `json:"object_id"`
	InstanceID any                        `json:"instance_id"`
	Content    map[string]any             `json:"content"`
	Extra      map[string]json.RawMessage `json:"-"`
}

func (r *AnnotationRecord) UnmarshalJSON(data []byte) error {
	members, err := decodeObject(data)
	if err != nil {
		return err
	}
	*r = AnnotationRecord{}
	if err := takeMember(members, "name", &r.Name); err != nil {
		return err
	}
	if err := takeMember(members, "object_id", &r.ObjectID); err != nil {
		return err
	}
	if err := takeMember(members, "instance_id", &r.InstanceID); err != nil {
		return err
	}
	if err := takeMember(members, "content", &r.Content); err != nil {
		return err
	}
	if len(members) > 0 {
		r.Extra = members
	}
	return nil
}

func (r AnnotationRecord) MarshalJSON() ([]byte, error) {
	return encodeObject(map[string]any{
		"name":        r.Name,
		"object_id":   r.ObjectID,
		"instance_id": r.InstanceID,
		"content":     r.Content,
	}, r.Extra)
}

var boxKeys = [4]string{"min_x_2d", "min_y_2d", "max_x_2d", "max_y_2d"}

// BoundingBox2D is an axis-aligned box in image pixels.
type BoundingBox2D struct {
	MinX, MinY, MaxX, MaxY float64
}

// Boxes2D returns the 2D boxes of the record's content entries, sorted by content key. Entries
// without all four box fields are skipped.
func (r AnnotationRecord) Boxes2D() []BoundingBox2D {
	keys := make([]string, 0, len(r.Content))
	for k := range r.Content {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var boxes []BoundingBox2D
	for _, k := range keys {
		fields, ok := r.Content[k].(map[string]any)
		if !ok {
			continue
		}
		var v [4]float64
		complete := true
		for i, key := range boxKeys {
			f, ok := toFloat(fields[key])
			if !ok {
				complete = false
				break
			}
			v[i] = f
		}
		if complete {
			boxes = append(boxes, BoundingBox2D{MinX: v[0], MinY: v[1], MaxX: v[2], MaxY: v[3]})
		}
	}
	return boxes
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	case float64:
		return n, true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case string:
		f, err := strconv.ParseFloat(n, 64)
		return f, err == nil
	}
	return 0, false
}

// FormatVersion is attached to every per-frame annotation file.
type FormatVersion struct {
	Major uint64 `json:"major"`
	Minor uint64 `json:"minor"`
	Patch uint64 `json:"patch"`
}

func (v FormatVersion) String() string {
	return fmt.Sprintf("%d.%d.%d", v.Major, v.Minor, v.Patch)
}

// ParseFormatVersion reads an extractor version such as "1.2.3" or "v1.2". Empty means 0.0.0.
func ParseFormatVersion(raw string) (FormatVersion, error) {
	if raw == "" {
		return FormatVersion{}, nil
	}
	v, err := semver.NewVersion(raw)
	if err != nil {
		return FormatVersion{}, fmt.Errorf("%w: extractor version %q: %v", ErrConfiguration, raw, err)
	}
	return FormatVersion{Major: v.Major(), Minor: v.Minor(), Patch: v.Patch()}, nil
}

// Timestamp is the point cloud capture time of a frame.
type Timestamp struct {
	Secs  int64 `json:"secs"`
	Nsecs int64 `json:"nsecs"`
}

// FrameDetail is the per-candidate frame payload.
type FrameDetail struct {
	ImageLink string     `json:"image_link"`
	Frame     *Timestamp `json:"frame,omitempty"`
}

// FrameAnnotation is the enriched record set persisted as Annotations/<frame>.json.
type FrameAnnotation struct {
	AnnotationRecordSet
	FormatVersion FormatVersion   `json:"format_version"`
	Timestamp     *Timestamp      `json:"timestamp,omitempty"`
	MapToBaseLink json.RawMessage `json:"map_to_base_link"`
}

func (a FrameAnnotation) MarshalJSON() ([]byte, error) {
	known := a.members()
	known["format_version"] = a.FormatVersion
	known["map_to_base_link"] = a.MapToBaseLink
	if a.Timestamp != nil {
		known["timestamp"] = a.Timestamp
	}
	return encodeObject(known, a.Extra)
}

func (a *FrameAnnotation) UnmarshalJSON(data []byte) error {
	members, err := decodeObject(data)
	if err != nil {
		return err
	}
	*a = FrameAnnotation{}
	if err := takeMember(members, "format_version", &a.FormatVersion); err != nil {
		return err
	}
	if err := takeMember(members, "timestamp", &a.Timestamp); err != nil {
		return err
	}
	if raw, ok := members["map_to_base_link"]; ok {
		delete(members, "map_to_base_link")
		if string(raw) != "null" {
			a.MapToBaseLink = raw
		}
	}
	return a.AnnotationRecordSet.fromMembers(members)
}

// LocalizationTrack holds one opaque pose per frame, indexed by frame-1.
type LocalizationTrack []json.RawMessage

// Pose returns the pose of a 1-indexed frame, or nil when the track does not cover it.
func (t LocalizationTrack) Pose(frame int) json.RawMessage {
	if frame < 1 || frame > len(t) {
		return nil
	}
	return t[frame-1]
}
