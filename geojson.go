// Package satprep prepares satellite-imagery object-detection datasets: it converts xView
// GeoJSON annotations into per-image YOLO label files and partitions the resulting corpus into
// train/val/test sets.
package satprep

// xView GeoJSON annotation store specific functionality.

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Property keys probed per logical field, in resolution order. The store is not uniform across
// releases, so each field accepts several spellings.
var (
	imageIDKeys   = []string{"image_id"}
	featureIDKeys = []string{"feature_id"}
	classIDKeys   = []string{"type", "class_type", "type_id"}
)

// boundsKey holds the pixel bounding box as a "xmin,ymin,xmax,ymax" string.
const boundsKey = "bounds_imcoords"

// Geometry is the GeoJSON geometry of a single feature. Coordinates are decoded lazily since
// their nesting depth depends on the geometry type.
type Geometry struct {
	Type        string          `json:"type"`
	Coordinates json.RawMessage `json:"coordinates"`
}

// Feature is one vector annotation record from the store.
type Feature struct {
	Properties map[string]interface{} `json:"properties"`
	Geometry   *Geometry              `json:"geometry"`
}

// featureCollection is the top-level GeoJSON document.
type featureCollection struct {
	Features []Feature `json:"features"`
}

// FromGeoJSON reads and parses the annotation store at path.
func FromGeoJSON(path string) ([]Feature, error) {
	enc, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var fc featureCollection
	if err := json.Unmarshal(enc, &fc); err != nil {
		return nil, fmt.Errorf("failed to parse GeoJSON input from %q: %v", path, err)
	}

	return fc.Features, nil
}

// stringProp returns the first of the given property keys that is present with a string or
// numeric value, rendered as a string.
func (f Feature) stringProp(keys []string) (string, bool) {
	for _, k := range keys {
		switch v := f.Properties[k].(type) {
		case string:
			if v != "" {
				return v, true
			}
		case float64:
			// JSON numbers decode as float64. Identifiers are integral.
			return strconv.FormatInt(int64(v), 10), true
		}
	}
	return "", false
}

// ImageID resolves the image identifier this feature belongs to: a direct image_id property
// first, else the image part of a combined "<image_id>.<object_id>" feature_id.
func (f Feature) ImageID() (string, bool) {
	if id, ok := f.stringProp(imageIDKeys); ok {
		return id, true
	}
	if id, ok := f.stringProp(featureIDKeys); ok {
		return strings.SplitN(id, ".", 2)[0], true
	}
	return "", false
}

// ClassID resolves the raw taxonomy identifier of this feature.
func (f Feature) ClassID() (int, bool) {
	for _, k := range classIDKeys {
		switch v := f.Properties[k].(type) {
		case float64:
			return int(v), true
		case string:
			if id, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
				return id, true
			}
		}
	}
	return 0, false
}

// PixelBounds resolves the pixel-space bounding box (xmin, ymin, xmax, ymax) of this feature.
// A bounds_imcoords string wins over polygon geometry; for polygons the axis-aligned bounding
// box of the first ring is used.
func (f Feature) PixelBounds() ([4]float64, bool) {
	if s, ok := f.Properties[boundsKey].(string); ok {
		if b, ok := parseBoundsString(s); ok {
			return b, true
		}
		return [4]float64{}, false
	}

	return f.polygonBounds()
}

// parseBoundsString parses a "xmin,ymin,xmax,ymax" string into a pixel box.
func parseBoundsString(s string) ([4]float64, bool) {
	var b [4]float64

	fields := strings.Split(s, ",")
	if len(fields) != 4 {
		return b, false
	}
	for i, field := range fields {
		v, err := strconv.ParseFloat(strings.TrimSpace(field), 64)
		if err != nil {
			return b, false
		}
		b[i] = v
	}

	return b, true
}

// polygonBounds computes the axis-aligned bounding box of the first polygon ring.
func (f Feature) polygonBounds() ([4]float64, bool) {
	var b [4]float64

	if f.Geometry == nil || f.Geometry.Type != "Polygon" {
		return b, false
	}

	var rings [][][]float64
	if err := json.Unmarshal(f.Geometry.Coordinates, &rings); err != nil {
		return b, false
	}
	if len(rings) == 0 || len(rings[0]) == 0 {
		return b, false
	}

	first := true
	for _, pt := range rings[0] {
		if len(pt) < 2 {
			return b, false
		}
		x, y := pt[0], pt[1]
		if first {
			b = [4]float64{x, y, x, y}
			first = false
			continue
		}
		if x < b[0] {
			b[0] = x
		}
		if y < b[1] {
			b[1] = y
		}
		if x > b[2] {
			b[2] = x
		}
		if y > b[3] {
			b[3] = y
		}
	}

	return b, true
}

// GroupByImage groups the features by the image identifier they reference, preserving the store
// order within each group. Features without a resolvable identifier are dropped.
func GroupByImage(features []Feature) map[string][]Feature {
	groups := make(map[string][]Feature, len(features)/8+1)
	for _, f := range features {
		id, ok := f.ImageID()
		if !ok {
			continue
		}
		groups[id] = append(groups[id], f)
	}

	return groups
}
