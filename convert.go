package satprep

// The GeoJSON to YOLO conversion pipeline.

import (
	"fmt"
	"log"
	"path/filepath"
	"sort"
)

// ConversionStats accumulates the outcome of a single conversion run. It is only mutated by
// Convert and is read-only once the run returns.
type ConversionStats struct {
	TotalImages        int         // Images found in the corpus directory.
	ProcessedImages    int         // Images for which a non-empty label file was written.
	SkippedImages      int         // Images that could not be decoded.
	TotalObjects       int         // Label lines written across all images.
	ObjectsByClass     map[int]int // Written objects keyed by raw taxonomy identifier.
	InvalidAnnotations int         // Annotations with unresolvable geometry.
	MissingImages      []string    // Identifiers of images that could not be decoded.
}

// Convert converts the annotation store at annotationPath into one YOLO label file per image
// found in imageDir, written to outDir. classConfigPath selects the class taxonomy file; an
// empty path uses the built-in default taxonomy (see LoadClassMap).
//
// Per-image failure handling is deliberately uneven and load-bearing for downstream loaders:
// an image with no matching annotation group gets an empty label file (a valid zero-object
// training example), while an image whose group exists but is entirely filtered out (unknown
// classes, degenerate boxes) gets no label file at all. Undecodable images are counted as
// skipped and contribute nothing.
//
// Each run fully rewrites the label files it touches; unrelated files are never removed.
func Convert(annotationPath, imageDir, outDir, classConfigPath string) (*ConversionStats, error) {
	classes, err := LoadClassMap(classConfigPath, true)
	if err != nil {
		return nil, fmt.Errorf("failed to load the class taxonomy: %v", err)
	}

	log.Printf("Loading annotations from %s", annotationPath)
	features, err := FromGeoJSON(annotationPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load the annotation store: %v", err)
	}
	log.Printf("Loaded %d annotations", len(features))

	images, err := imagesInDir(imageDir)
	if err != nil {
		return nil, err
	}

	if err := mkdirAll(outDir); err != nil {
		return nil, err
	}

	groups := GroupByImage(features)
	log.Printf("Found annotations for %d images, converting %d images with %d classes",
		len(groups), len(images), classes.Len())

	stats := &ConversionStats{
		TotalImages:    len(images),
		ObjectsByClass: make(map[int]int),
	}

	for _, imagePath := range images {
		convertImage(imagePath, outDir, groups, classes, stats)
	}

	stats.LogSummary()
	return stats, nil
}

// convertImage converts the annotation group of a single image and updates stats.
func convertImage(imagePath, outDir string, groups map[string][]Feature, classes ClassMap,
		stats *ConversionStats) {

	_, stem, _, err := splitPath(imagePath)
	if err != nil {
		log.Printf("Skipping %q: %v", imagePath, err)
		stats.SkippedImages++
		return
	}

	// The image dimensions are required to normalize any of its boxes.
	config, _, err := decodeImageConfig(imagePath)
	if err != nil {
		log.Printf("Cannot decode %q, skipping: %v", imagePath, err)
		stats.SkippedImages++
		stats.MissingImages = append(stats.MissingImages, stem)
		return
	}

	// The store may be keyed by stem or by full file name.
	group, ok := groups[stem]
	if !ok {
		group = groups[filepath.Base(imagePath)]
	}

	labelPath := filepath.Join(outDir, stem+".txt")

	// No matching group: the image is a genuine zero-object example and gets an empty file.
	if len(group) == 0 {
		if err := WriteLabelFile(labelPath, nil); err != nil {
			log.Print(err)
		}
		return
	}

	boxes := make([]NormalizedBox, 0, len(group))
	byClass := make(map[int]int)
	for _, f := range group {
		// Unknown or absent classes are an intentional taxonomy filter, not an error.
		rawID, ok := f.ClassID()
		if !ok {
			continue
		}
		class, ok := classes.Index(rawID)
		if !ok {
			continue
		}

		bounds, ok := f.PixelBounds()
		if !ok {
			stats.InvalidAnnotations++
			continue
		}

		// Degenerate boxes after clamping are expected, not anomalous.
		box, ok := normalizeBox(class, bounds, config.Width, config.Height)
		if !ok {
			continue
		}

		boxes = append(boxes, box)
		byClass[rawID]++
	}

	// A matched but fully filtered group produces no label file in this branch.
	if len(boxes) == 0 {
		return
	}

	if err := WriteLabelFile(labelPath, boxes); err != nil {
		log.Print(err)
		return
	}

	// Per-class counts only become visible once the file they describe exists.
	stats.ProcessedImages++
	stats.TotalObjects += len(boxes)
	for id, n := range byClass {
		stats.ObjectsByClass[id] += n
	}
}

// LogSummary logs the final conversion report.
func (s *ConversionStats) LogSummary() {
	log.Printf("Conversion finished: %d images total, %d processed, %d skipped",
		s.TotalImages, s.ProcessedImages, s.SkippedImages)
	log.Printf("Wrote %d objects, %d invalid annotations", s.TotalObjects, s.InvalidAnnotations)

	classIDs := make([]int, 0, len(s.ObjectsByClass))
	for id := range s.ObjectsByClass {
		classIDs = append(classIDs, id)
	}
	sort.Ints(classIDs)
	for _, id := range classIDs {
		log.Printf("  class %d: %d objects", id, s.ObjectsByClass[id])
	}

	if len(s.MissingImages) > 0 {
		n := len(s.MissingImages)
		if n > 10 {
			n = 10
		}
		log.Printf("Undecodable images (first %d): %v", n, s.MissingImages[:n])
	}
}
