package satprep

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// makeCorpus creates n image files with label files for the first labeled of them, returning
// the images and labels directories.
func makeCorpus(t *testing.T, n, labeled int) (imagesDir, labelsDir string) {
	t.Helper()
	dir := t.TempDir()
	imagesDir = filepath.Join(dir, "images")
	labelsDir = filepath.Join(dir, "labels")
	require.NoError(t, os.MkdirAll(imagesDir, 0755))
	require.NoError(t, os.MkdirAll(labelsDir, 0755))

	for i := 0; i < n; i++ {
		stem := fmt.Sprintf("img%04d", i)
		require.NoError(t, os.WriteFile(filepath.Join(imagesDir, stem+".png"), []byte{0}, 0644))
		if i < labeled {
			line := "0 0.500000 0.500000 0.100000 0.100000\n"
			require.NoError(t, os.WriteFile(filepath.Join(labelsDir, stem+".txt"), []byte(line), 0644))
		}
	}

	return imagesDir, labelsDir
}

// partitionStems lists the image file stems in each partition of outDir.
func partitionStems(t *testing.T, outDir string) map[string][]string {
	t.Helper()
	stems := make(map[string][]string, 3)
	for _, name := range []string{"train", "val", "test"} {
		files, err := imagesInDir(filepath.Join(outDir, "images", name))
		require.NoError(t, err)
		for _, f := range files {
			_, stem, _, err := splitPath(f)
			require.NoError(t, err)
			stems[name] = append(stems[name], stem)

			// Every copied image has its label next door.
			_, err = os.Stat(filepath.Join(outDir, "labels", name, stem+".txt"))
			require.NoError(t, err)
		}
	}
	return stems
}

func TestSplitCutPoints(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name                 string
		n                    int
		trainRatio, valRatio float64
		wantTrain, wantVal   int
	}{
		{name: "even hundred", n: 100, trainRatio: 0.8, valRatio: 0.15, wantTrain: 80, wantVal: 95},
		{name: "flooring remainder goes to test", n: 950, trainRatio: 0.8, valRatio: 0.15, wantTrain: 760, wantVal: 902},
		{name: "empty corpus", n: 0, trainRatio: 0.8, valRatio: 0.15},
		{name: "single pair", n: 1, trainRatio: 0.8, valRatio: 0.15},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			trainEnd, valEnd := splitCutPoints(tt.n, tt.trainRatio, tt.valRatio)
			assert.Equal(t, tt.wantTrain, trainEnd)
			assert.Equal(t, tt.wantVal, valEnd)
		})
	}
}

func TestSplitScenarioCounts(t *testing.T) {
	t.Parallel()

	// 950 labeled pairs at 0.8/0.15/0.05 must land at 760/142/48 with the remainder in test.
	trainEnd, valEnd := splitCutPoints(950, 0.8, 0.15)
	assert.Equal(t, 760, trainEnd)
	assert.Equal(t, 142, valEnd-trainEnd)
	assert.Equal(t, 48, 950-valEnd)
}

func TestSplitRatioValidation(t *testing.T) {
	t.Parallel()

	imagesDir, labelsDir := makeCorpus(t, 4, 4)
	outDir := filepath.Join(t.TempDir(), "out")

	_, err := Split(imagesDir, labelsDir, outDir, 0.8, 0.1, 0.05, 42)
	require.Error(t, err)

	// The violation is fatal before any filesystem work.
	_, err = os.Stat(outDir)
	assert.True(t, os.IsNotExist(err))

	// Tolerance admits small numeric slack.
	_, err = Split(imagesDir, labelsDir, outDir, 0.8, 0.15, 0.0501, 42)
	require.NoError(t, err)
}

func TestSplitDisjointAndComplete(t *testing.T) {
	t.Parallel()

	imagesDir, labelsDir := makeCorpus(t, 20, 17)
	outDir := filepath.Join(t.TempDir(), "out")

	counts, err := Split(imagesDir, labelsDir, outDir, 0.8, 0.15, 0.05, 42)
	require.NoError(t, err)

	// Only the 17 labeled images participate; floor(0.8*17)=13, floor(0.15*17)=2, rest to test.
	assert.Equal(t, SplitCounts{Train: 13, Val: 2, Test: 2}, counts)

	stems := partitionStems(t, outDir)
	seen := make(map[string]int)
	var all []string
	for _, part := range stems {
		for _, stem := range part {
			seen[stem]++
			all = append(all, stem)
		}
	}

	// Pairwise disjoint and the union is exactly the labeled set.
	for stem, n := range seen {
		assert.Equal(t, 1, n, "stem %s assigned to %d partitions", stem, n)
	}
	require.Len(t, all, 17)
	sort.Strings(all)
	for i, stem := range all {
		assert.Equal(t, fmt.Sprintf("img%04d", i), stem)
	}
}

func TestSplitDeterministic(t *testing.T) {
	t.Parallel()

	imagesDir, labelsDir := makeCorpus(t, 30, 30)

	outA := filepath.Join(t.TempDir(), "a")
	outB := filepath.Join(t.TempDir(), "b")

	countsA, err := Split(imagesDir, labelsDir, outA, 0.8, 0.15, 0.05, 42)
	require.NoError(t, err)
	countsB, err := Split(imagesDir, labelsDir, outB, 0.8, 0.15, 0.05, 42)
	require.NoError(t, err)

	assert.Equal(t, countsA, countsB)
	assert.Equal(t, partitionStems(t, outA), partitionStems(t, outB))

	// A different seed reshuffles membership.
	outC := filepath.Join(t.TempDir(), "c")
	_, err = Split(imagesDir, labelsDir, outC, 0.8, 0.15, 0.05, 7)
	require.NoError(t, err)
	assert.NotEqual(t, partitionStems(t, outA), partitionStems(t, outC))
}

func TestSplitCopiesNotMoves(t *testing.T) {
	t.Parallel()

	imagesDir, labelsDir := makeCorpus(t, 3, 3)
	outDir := filepath.Join(t.TempDir(), "out")

	_, err := Split(imagesDir, labelsDir, outDir, 0.8, 0.1, 0.1, 42)
	require.NoError(t, err)

	files, err := imagesInDir(imagesDir)
	require.NoError(t, err)
	assert.Len(t, files, 3)
}
