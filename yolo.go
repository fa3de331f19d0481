package satprep

// YOLO label format specific functionality.

import (
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"
)

// NormalizedBox is one detection label line: a dense class index and a bounding box in
// center/size form, all geometric fields as fractions of the image dimensions.
type NormalizedBox struct {
	Class  int
	X      float64 // Box center x.
	Y      float64 // Box center y.
	Width  float64
	Height float64
}

// Line renders the box as a YOLO label line without the trailing newline. The fixed six-decimal
// precision keeps repeated conversions byte-identical.
func (b NormalizedBox) Line() string {
	return fmt.Sprintf("%d %.6f %.6f %.6f %.6f", b.Class, b.X, b.Y, b.Width, b.Height)
}

// clamp limits v to [0, max]. NaN collapses to 0, so a box with a non-finite coordinate
// degenerates to zero extent and is rejected by normalizeBox.
func clamp(v, max float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if v > max {
		return max
	}
	return v
}

// normalizeBox converts the pixel box (xmin, ymin, xmax, ymax) into a NormalizedBox for an
// image of the given dimensions.
//
// Coordinates are clamped to the image frame first, so partially visible objects are salvaged
// rather than dropped; boxes that collapse to zero or negative extent after clamping are
// rejected and must not be emitted.
func normalizeBox(class int, b [4]float64, imgWidth, imgHeight int) (NormalizedBox, bool) {
	w := float64(imgWidth)
	h := float64(imgHeight)

	xmin := clamp(b[0], w)
	ymin := clamp(b[1], h)
	xmax := clamp(b[2], w)
	ymax := clamp(b[3], h)

	box := NormalizedBox{
		Class:  class,
		X:      (xmin + xmax) / 2.0 / w,
		Y:      (ymin + ymax) / 2.0 / h,
		Width:  (xmax - xmin) / w,
		Height: (ymax - ymin) / h,
	}
	if box.Width <= 0 || box.Height <= 0 || box.X < 0 || box.Y < 0 {
		return NormalizedBox{}, false
	}

	return box, true
}

// WriteLabelFile writes one line per box to the label file at path, replacing any existing
// content. An empty box slice produces an empty file.
func WriteLabelFile(path string, boxes []NormalizedBox) error {
	var sb strings.Builder
	for _, b := range boxes {
		sb.WriteString(b.Line())
		sb.WriteByte('\n')
	}

	if err := os.WriteFile(path, []byte(sb.String()), 0644); err != nil {
		return fmt.Errorf("cannot write label file %q: %v", path, err)
	}
	return nil
}

// ReadLabelFile parses the label file at path. Blank lines are ignored.
func ReadLabelFile(path string) ([]NormalizedBox, error) {
	lines, err := readLines(path)
	if err != nil {
		return nil, err
	}

	boxes := make([]NormalizedBox, 0, len(lines))
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		box, err := parseLabelLine(line)
		if err != nil {
			return nil, fmt.Errorf("invalid label line in %q: %v", path, err)
		}
		boxes = append(boxes, box)
	}

	return boxes, nil
}

// parseLabelLine parses a single "<class> <x> <y> <w> <h>" label line.
func parseLabelLine(line string) (NormalizedBox, error) {
	fields := strings.Fields(line)
	if len(fields) != 5 {
		return NormalizedBox{}, fmt.Errorf("expected 5 fields, got %d in %q", len(fields), line)
	}

	class, err := strconv.Atoi(fields[0])
	if err != nil {
		return NormalizedBox{}, fmt.Errorf("invalid class index in %q: %v", line, err)
	}

	var vals [4]float64
	for i := 0; i < 4; i++ {
		vals[i], err = strconv.ParseFloat(fields[i+1], 64)
		if err != nil {
			return NormalizedBox{}, fmt.Errorf("invalid coordinate in %q: %v", line, err)
		}
	}

	return NormalizedBox{
		Class:  class,
		X:      vals[0],
		Y:      vals[1],
		Width:  vals[2],
		Height: vals[3],
	}, nil
}
