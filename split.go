package satprep

// Train/val/test dataset splitting.

import (
	"fmt"
	"log"
	"math"
	"math/rand"
	"path/filepath"
)

// ratioTolerance is the allowed numeric slack when checking that split ratios sum to 1.0.
const ratioTolerance = 0.01

// SplitCounts reports the number of (image, label) pairs assigned to each partition.
type SplitCounts struct {
	Train int
	Val   int
	Test  int
}

// pair is one (image, label) file pair eligible for splitting.
type pair struct {
	imagePath string
	labelPath string
}

// Split partitions the finished corpus under imagesDir/labelsDir into disjoint train/val/test
// sets and copies each pair into outDir under images/{train,val,test} and
// labels/{train,val,test}, preserving file names.
//
// Images without a same-stem label file are excluded from all partitions. The retained pairs
// are shuffled with a rand.Rand seeded by seed, so repeated runs over the same input are
// byte-identical; the shuffle is uniform random with no per-class balancing. Partition sizes
// are floor(trainRatio*N) and floor(valRatio*N), with the flooring remainder going to test.
//
// The three ratios must sum to 1.0 within a small tolerance; a violation is reported before any
// filesystem work.
func Split(imagesDir, labelsDir, outDir string, trainRatio, valRatio, testRatio float64,
		seed int64) (SplitCounts, error) {

	if sum := trainRatio + valRatio + testRatio; math.Abs(sum-1.0) > ratioTolerance {
		return SplitCounts{}, fmt.Errorf("split ratios must sum to 1.0, got %v", sum)
	}

	images, err := imagesInDir(imagesDir)
	if err != nil {
		return SplitCounts{}, err
	}
	log.Printf("Found %d images", len(images))

	pairs, err := pairWithLabels(images, labelsDir)
	if err != nil {
		return SplitCounts{}, err
	}
	log.Printf("Found %d image-label pairs", len(pairs))

	rng := rand.New(rand.NewSource(seed))
	rng.Shuffle(len(pairs), func(i, j int) {
		pairs[i], pairs[j] = pairs[j], pairs[i]
	})

	trainEnd, valEnd := splitCutPoints(len(pairs), trainRatio, valRatio)
	partitions := []struct {
		name  string
		pairs []pair
	}{
		{"train", pairs[:trainEnd]},
		{"val", pairs[trainEnd:valEnd]},
		{"test", pairs[valEnd:]},
	}

	for _, p := range partitions {
		imgDir := filepath.Join(outDir, "images", p.name)
		lblDir := filepath.Join(outDir, "labels", p.name)
		if err := mkdirAll(imgDir, lblDir); err != nil {
			return SplitCounts{}, err
		}

		log.Printf("Copying %d pairs to the %s set", len(p.pairs), p.name)
		for _, pr := range p.pairs {
			if err := copyFile(pr.imagePath, filepath.Join(imgDir, filepath.Base(pr.imagePath))); err != nil {
				return SplitCounts{}, fmt.Errorf("failed to copy %q: %v", pr.imagePath, err)
			}
			if err := copyFile(pr.labelPath, filepath.Join(lblDir, filepath.Base(pr.labelPath))); err != nil {
				return SplitCounts{}, fmt.Errorf("failed to copy %q: %v", pr.labelPath, err)
			}
		}
	}

	counts := SplitCounts{
		Train: trainEnd,
		Val:   valEnd - trainEnd,
		Test:  len(pairs) - valEnd,
	}
	log.Printf("Split complete: train=%d val=%d test=%d", counts.Train, counts.Val, counts.Test)

	return counts, nil
}

// pairWithLabels retains the images that have a same-stem .txt label file in labelsDir.
func pairWithLabels(images []string, labelsDir string) ([]pair, error) {
	labelFiles, err := stemsInDir(labelsDir, ".txt")
	if err != nil {
		return nil, err
	}

	pairs := make([]pair, 0, len(images))
	for _, imagePath := range images {
		_, stem, _, err := splitPath(imagePath)
		if err != nil {
			log.Printf("Skipping %q: %v", imagePath, err)
			continue
		}
		labelPath, ok := labelFiles[stem]
		if !ok {
			continue
		}
		pairs = append(pairs, pair{imagePath: imagePath, labelPath: labelPath})
	}

	return pairs, nil
}

// splitCutPoints returns the end indices of the train and val partitions for n pairs. The
// remainder left by flooring falls into the test partition.
func splitCutPoints(n int, trainRatio, valRatio float64) (trainEnd, valEnd int) {
	trainEnd = int(trainRatio * float64(n))
	valEnd = trainEnd + int(valRatio*float64(n))
	return trainEnd, valEnd
}
