package satprep

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeBox(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		bounds [4]float64
		w, h   int
		want   NormalizedBox
		wantOK bool
	}{
		{
			name:   "fully inside",
			bounds: [4]float64{100, 100, 300, 300},
			w:      1024, h: 1024,
			want:   NormalizedBox{Class: 2, X: 0.1953125, Y: 0.1953125, Width: 0.1953125, Height: 0.1953125},
			wantOK: true,
		},
		{
			name:   "partially outside is salvaged by clamping",
			bounds: [4]float64{-50, -50, 50, 50},
			w:      100, h: 100,
			want:   NormalizedBox{Class: 2, X: 0.25, Y: 0.25, Width: 0.5, Height: 0.5},
			wantOK: true,
		},
		{
			name:   "fully outside collapses and is rejected",
			bounds: [4]float64{-300, -300, -100, -100},
			w:      100, h: 100,
			wantOK: false,
		},
		{
			name:   "beyond far edge collapses and is rejected",
			bounds: [4]float64{150, 150, 250, 250},
			w:      100, h: 100,
			wantOK: false,
		},
		{
			name:   "zero area",
			bounds: [4]float64{50, 50, 50, 80},
			w:      100, h: 100,
			wantOK: false,
		},
		{
			name:   "inverted box",
			bounds: [4]float64{80, 80, 20, 20},
			w:      100, h: 100,
			wantOK: false,
		},
		{
			name:   "all-NaN coordinates are rejected",
			bounds: [4]float64{math.NaN(), math.NaN(), math.NaN(), math.NaN()},
			w:      100, h: 100,
			wantOK: false,
		},
		{
			name:   "NaN far edge collapses and is rejected",
			bounds: [4]float64{10, 10, math.NaN(), 90},
			w:      100, h: 100,
			wantOK: false,
		},
		{
			name:   "infinite extents clamp to the frame",
			bounds: [4]float64{math.Inf(-1), math.Inf(-1), math.Inf(1), math.Inf(1)},
			w:      100, h: 100,
			want:   NormalizedBox{Class: 2, X: 0.5, Y: 0.5, Width: 1, Height: 1},
			wantOK: true,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, ok := normalizeBox(2, tt.bounds, tt.w, tt.h)
			if !tt.wantOK {
				require.False(t, ok)
				return
			}
			require.True(t, ok)
			assert.Equal(t, tt.want, got)
			assert.GreaterOrEqual(t, got.X, 0.0)
			assert.LessOrEqual(t, got.X, 1.0)
			assert.Greater(t, got.Width, 0.0)
			assert.LessOrEqual(t, got.Width, 1.0)
		})
	}
}

func TestNormalizeBoxRoundTrip(t *testing.T) {
	t.Parallel()

	// For boxes fully inside the frame, denormalizing recovers the original pixel box within
	// six-decimal rounding error.
	bounds := [4]float64{123, 45, 678, 910}
	w, h := 1300, 1100

	box, ok := normalizeBox(0, bounds, w, h)
	require.True(t, ok)

	xmin := (box.X - box.Width/2) * float64(w)
	ymin := (box.Y - box.Height/2) * float64(h)
	xmax := (box.X + box.Width/2) * float64(w)
	ymax := (box.Y + box.Height/2) * float64(h)

	assert.InDelta(t, bounds[0], xmin, 1e-6*float64(w))
	assert.InDelta(t, bounds[1], ymin, 1e-6*float64(h))
	assert.InDelta(t, bounds[2], xmax, 1e-6*float64(w))
	assert.InDelta(t, bounds[3], ymax, 1e-6*float64(h))
}

func TestNormalizedBoxLine(t *testing.T) {
	t.Parallel()

	box, ok := normalizeBox(2, [4]float64{100, 100, 300, 300}, 1024, 1024)
	require.True(t, ok)
	assert.Equal(t, "2 0.195312 0.195312 0.195312 0.195312", box.Line())
}

func TestLabelFileRoundTrip(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "42.txt")
	boxes := []NormalizedBox{
		{Class: 0, X: 0.5, Y: 0.5, Width: 0.25, Height: 0.125},
		{Class: 9, X: 0.1953125, Y: 0.75, Width: 0.0625, Height: 0.03125},
	}

	require.NoError(t, WriteLabelFile(path, boxes))
	got, err := ReadLabelFile(path)
	require.NoError(t, err)
	require.Len(t, got, 2)
	for i := range boxes {
		assert.Equal(t, boxes[i].Class, got[i].Class)
		assert.InDelta(t, boxes[i].X, got[i].X, 1e-6)
		assert.InDelta(t, boxes[i].Y, got[i].Y, 1e-6)
		assert.InDelta(t, boxes[i].Width, got[i].Width, 1e-6)
		assert.InDelta(t, boxes[i].Height, got[i].Height, 1e-6)
	}
}

func TestWriteLabelFileEmpty(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "empty.txt")
	require.NoError(t, WriteLabelFile(path, nil))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Zero(t, info.Size())

	boxes, err := ReadLabelFile(path)
	require.NoError(t, err)
	assert.Empty(t, boxes)
}

func TestParseLabelLine(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		line    string
		wantErr bool
	}{
		{name: "valid", line: "3 0.5 0.5 0.1 0.1"},
		{name: "too few fields", line: "3 0.5 0.5 0.1", wantErr: true},
		{name: "too many fields", line: "3 0.5 0.5 0.1 0.1 0.9", wantErr: true},
		{name: "non-numeric class", line: "x 0.5 0.5 0.1 0.1", wantErr: true},
		{name: "non-numeric coordinate", line: "3 0.5 y 0.1 0.1", wantErr: true},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := parseLabelLine(tt.line)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
		})
	}
}
