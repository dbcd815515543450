package entity

import (
	"fmt"
	"image/color"
	"strings"

	"github.com/lucasb-eyer/go-colorful"
)

type DataType string

const (
	DataTypeImage      DataType = "IMAGE"
	DataTypePointCloud DataType = "POINT_CLOUD"
)

// ParseDataType folds every non-image data type into the point cloud kind.
func ParseDataType(raw string) DataType {
	if strings.EqualFold(raw, string(DataTypeImage)) {
		return DataTypeImage
	}
	return DataTypePointCloud
}

// Candidate is one sensor stream of the original recording.
type Candidate struct {
	ID       int64    `json:"candidate_id"`
	DataType DataType `json:"data_type"`
}

func (c Candidate) IsImage() bool {
	return c.DataType == DataTypeImage
}

// Ext is the file extension used for the candidate's per-frame files.
func (c Candidate) Ext() string {
	if c.IsImage() {
		return ".jpg"
	}
	return ".pcd"
}

// BGR is a class color in blue, green, red channel order.
type BGR [3]uint8

// ParseClassColor decodes a "#RRGGBB" string.
func ParseClassColor(hex string) (BGR, error) {
	if !strings.HasPrefix(hex, "#") {
		hex = "#" + hex
	}
	if len(hex) != 7 {
		return BGR{}, fmt.Errorf("%w: color %q is not #RRGGBB", ErrConfiguration, hex)
	}
	c, err := colorful.Hex(hex)
	if err != nil {
		return BGR{}, fmt.Errorf("%w: color %q: %v", ErrConfiguration, hex, err)
	}
	r, g, b := c.RGB255()
	return BGR{b, g, r}, nil
}

func (c BGR) Hex() string {
	return fmt.Sprintf("#%02X%02X%02X", c[2], c[1], c[0])
}

func (c BGR) RGBA() color.RGBA {
	return color.RGBA{R: c[2], G: c[1], B: c[0], A: 0xff}
}

// ClassColors maps a class name to its configured "#RRGGBB" display color.
type ClassColors map[string]string

// Lookup resolves and decodes the color of a class.
func (cc ClassColors) Lookup(name string) (BGR, error) {
	hex, ok := cc[name]
	if !ok || hex == "" {
		return BGR{}, fmt.Errorf("%w: class %q has no configured color", ErrConfiguration, name)
	}
	return ParseClassColor(hex)
}
