package detector

import (
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func solidFrame(w, h int, c color.NRGBA) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, c)
		}
	}
	return img
}

func TestFitToInputGeometry(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		srcW, srcH int
		wantScale  float64
		wantPadX   float64
		wantPadY   float64
	}{
		{"landscape 4:3", 640, 480, 0.5, 0, 40},
		{"square", 480, 480, 320.0 / 480.0, 0, 0},
		{"portrait", 240, 320, 1.0, 40, 0},
		{"small frame upscales", 160, 120, 2.0, 0, 40},
		{"exact fit", 320, 320, 1.0, 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			img := solidFrame(tt.srcW, tt.srcH, color.NRGBA{R: 10, G: 20, B: 30, A: 255})
			dst := make([]float32, DefaultInputSize*DefaultInputSize*3)

			geo := fitToInput(img, DefaultInputSize, DefaultInputSize, false, dst)

			assert.InDelta(t, tt.wantScale, geo.scale, 1e-9)
			assert.InDelta(t, tt.wantPadX, geo.padX, 1.0)
			assert.InDelta(t, tt.wantPadY, geo.padY, 1.0)
			assert.Equal(t, DefaultInputSize, geo.inputW)
			assert.Equal(t, DefaultInputSize, geo.inputH)
		})
	}
}

func TestFitToInputPadsWithGray(t *testing.T) {
	t.Parallel()

	img := solidFrame(640, 480, color.NRGBA{R: 255, G: 255, B: 255, A: 255})
	dst := make([]float32, DefaultInputSize*DefaultInputSize*3)

	fitToInput(img, DefaultInputSize, DefaultInputSize, false, dst)

	gray := float32(114) / 255.0
	// First row lies inside the vertical padding band
	assert.InDelta(t, gray, dst[0], 1e-6)
	assert.InDelta(t, gray, dst[1], 1e-6)
	assert.InDelta(t, gray, dst[2], 1e-6)

	// The vertical center carries the white frame content
	midRow := DefaultInputSize / 2
	midIdx := (midRow*DefaultInputSize + DefaultInputSize/2) * 3
	assert.InDelta(t, 1.0, dst[midIdx], 1e-2)
}

func TestWritePixelsLayouts(t *testing.T) {
	t.Parallel()

	// A 2x2 canvas with four distinct pure colors makes the layout visible.
	canvas := image.NewNRGBA(image.Rect(0, 0, 2, 2))
	canvas.SetNRGBA(0, 0, color.NRGBA{R: 255, A: 255})
	canvas.SetNRGBA(1, 0, color.NRGBA{G: 255, A: 255})
	canvas.SetNRGBA(0, 1, color.NRGBA{B: 255, A: 255})
	canvas.SetNRGBA(1, 1, color.NRGBA{R: 255, G: 255, B: 255, A: 255})

	t.Run("nhwc", func(t *testing.T) {
		dst := make([]float32, 2*2*3)
		writePixels(canvas, 2, 2, false, dst)

		want := []float32{
			1, 0, 0, // (0,0) red
			0, 1, 0, // (1,0) green
			0, 0, 1, // (0,1) blue
			1, 1, 1, // (1,1) white
		}
		for i := range want {
			assert.InDelta(t, want[i], dst[i], 1e-6, "index %d", i)
		}
	})

	t.Run("nchw", func(t *testing.T) {
		dst := make([]float32, 2*2*3)
		writePixels(canvas, 2, 2, true, dst)

		want := []float32{
			1, 0, 0, 1, // R plane
			0, 1, 0, 1, // G plane
			0, 0, 1, 1, // B plane
		}
		for i := range want {
			assert.InDelta(t, want[i], dst[i], 1e-6, "index %d", i)
		}
	})
}

func TestFitToInputTinyFrame(t *testing.T) {
	t.Parallel()

	// A one pixel frame must not produce a zero sized resize target.
	img := solidFrame(1, 1, color.NRGBA{R: 50, G: 60, B: 70, A: 255})
	dst := make([]float32, DefaultInputSize*DefaultInputSize*3)

	geo := fitToInput(img, DefaultInputSize, DefaultInputSize, false, dst)
	require.Positive(t, geo.scale)
}
