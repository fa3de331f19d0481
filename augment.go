package satprep

// Offline augmentation of the converted corpus.

import (
	"fmt"
	"image"
	"image/color"
	"log"
	"math"
	"math/rand"
	"path/filepath"

	"github.com/disintegration/imaging"
)

// AugmentOptions configures the augmentation run. All jitter is sampled uniformly from the
// configured ranges with a rand.Rand seeded by Seed, so runs are reproducible.
type AugmentOptions struct {
	Variants      int     // Augmented copies to produce per source pair.
	MaxRotation   float64 // Maximum absolute rotation angle in degrees; 0 disables rotation.
	BrightnessMin float64 // Brightness factor range; 1.0/1.0 disables the jitter.
	BrightnessMax float64
	ContrastMin   float64 // Contrast factor range; 1.0/1.0 disables the jitter.
	ContrastMax   float64
	JPEGQuality   int
	Seed          int64
}

// Augment produces opts.Variants augmented copies of every (image, label) pair found under
// imagesDir/labelsDir and writes them to outImagesDir/outLabelsDir as
// "<stem>_aug<nn>.<ext>" pairs. Rotation expands the canvas to fit and re-derives every box as
// the clamped axis-aligned hull of its rotated corners; boxes that degenerate in the process
// are dropped from the augmented label file.
//
// Returns the number of augmented pairs written.
func Augment(imagesDir, labelsDir, outImagesDir, outLabelsDir string, opts AugmentOptions) (
		int, error) {

	if opts.Variants <= 0 {
		return 0, fmt.Errorf("invalid number of variants: %d", opts.Variants)
	}
	if opts.BrightnessMin > opts.BrightnessMax || opts.ContrastMin > opts.ContrastMax ||
			opts.MaxRotation < 0 {
		return 0, fmt.Errorf("invalid augmentation ranges")
	}

	images, err := imagesInDir(imagesDir)
	if err != nil {
		return 0, err
	}
	pairs, err := pairWithLabels(images, labelsDir)
	if err != nil {
		return 0, err
	}

	if err := mkdirAll(outImagesDir, outLabelsDir); err != nil {
		return 0, err
	}

	log.Printf("Augmenting %d pairs with %d variants each", len(pairs), opts.Variants)
	rng := rand.New(rand.NewSource(opts.Seed))
	written := 0

	for _, pr := range pairs {
		img, _, err := loadImage(pr.imagePath)
		if err != nil {
			log.Printf("Cannot decode %q, skipping: %v", pr.imagePath, err)
			continue
		}
		boxes, err := ReadLabelFile(pr.labelPath)
		if err != nil {
			log.Printf("Skipping %q: %v", pr.imagePath, err)
			continue
		}

		_, stem, ext, err := splitPath(pr.imagePath)
		if err != nil {
			log.Printf("Skipping %q: %v", pr.imagePath, err)
			continue
		}

		for v := 0; v < opts.Variants; v++ {
			name := fmt.Sprintf("%s_aug%02d", stem, v)
			outImg := filepath.Join(outImagesDir, name+"."+ext)
			outLbl := filepath.Join(outLabelsDir, name+".txt")

			if err := augmentPair(img, boxes, outImg, outLbl, opts, rng); err != nil {
				log.Printf("Failed to augment %q: %v", pr.imagePath, err)
				continue
			}
			written++
		}
	}

	log.Printf("Wrote %d augmented pairs", written)
	return written, nil
}

// augmentPair writes one augmented variant of the given image and boxes.
func augmentPair(img image.Image, boxes []NormalizedBox, outImg, outLbl string,
		opts AugmentOptions, rng *rand.Rand) error {

	out := img
	outBoxes := boxes

	if opts.MaxRotation > 0 {
		angle := (rng.Float64()*2 - 1) * opts.MaxRotation
		out, outBoxes = rotatePair(out, outBoxes, angle)
	}
	if factor := sampleFactor(rng, opts.BrightnessMin, opts.BrightnessMax); factor != 1 {
		out = imaging.AdjustBrightness(out, (factor-1)*100)
	}
	if factor := sampleFactor(rng, opts.ContrastMin, opts.ContrastMax); factor != 1 {
		out = imaging.AdjustContrast(out, (factor-1)*100)
	}

	if err := saveImage(outImg, out, opts.JPEGQuality); err != nil {
		return err
	}
	return WriteLabelFile(outLbl, outBoxes)
}

// sampleFactor draws a factor from [min, max]. A zero range (both bounds unset) yields 1.
func sampleFactor(rng *rand.Rand, min, max float64) float64 {
	if min == 0 && max == 0 {
		return 1
	}
	return min + rng.Float64()*(max-min)
}

// rotatePair rotates the image counter-clockwise by angle degrees, expanding the canvas, and
// re-derives each box as the clamped axis-aligned hull of its rotated corners in the new
// canvas. Degenerate boxes are dropped.
func rotatePair(img image.Image, boxes []NormalizedBox, angle float64) (
		image.Image, []NormalizedBox) {

	rotated := imaging.Rotate(img, angle, color.Black)

	srcBounds := img.Bounds()
	srcW := float64(srcBounds.Dx())
	srcH := float64(srcBounds.Dy())
	dstBounds := rotated.Bounds()
	dstW := dstBounds.Dx()
	dstH := dstBounds.Dy()

	sin, cos := math.Sincos(angle * math.Pi / 180)
	cx, cy := srcW/2, srcH/2
	ncx, ncy := float64(dstW)/2, float64(dstH)/2

	// Rotation about the image center in screen coordinates (y grows downward), matching the
	// counter-clockwise visual rotation applied to the pixels.
	rotate := func(x, y float64) (float64, float64) {
		dx, dy := x-cx, y-cy
		return cos*dx + sin*dy + ncx, -sin*dx + cos*dy + ncy
	}

	outBoxes := make([]NormalizedBox, 0, len(boxes))
	for _, b := range boxes {
		// Denormalize to source pixel corners.
		xmin := (b.X - b.Width/2) * srcW
		xmax := (b.X + b.Width/2) * srcW
		ymin := (b.Y - b.Height/2) * srcH
		ymax := (b.Y + b.Height/2) * srcH

		corners := [4][2]float64{
			{xmin, ymin}, {xmax, ymin}, {xmax, ymax}, {xmin, ymax},
		}

		hull := [4]float64{math.Inf(1), math.Inf(1), math.Inf(-1), math.Inf(-1)}
		for _, c := range corners {
			x, y := rotate(c[0], c[1])
			hull[0] = math.Min(hull[0], x)
			hull[1] = math.Min(hull[1], y)
			hull[2] = math.Max(hull[2], x)
			hull[3] = math.Max(hull[3], y)
		}

		if box, ok := normalizeBox(b.Class, hull, dstW, dstH); ok {
			outBoxes = append(outBoxes, box)
		}
	}

	return rotated, outBoxes
}
