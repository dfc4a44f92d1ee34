package imageproc

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kawakawa0804/umi-no-me-web2/internal/errors"
)

// makeFrame builds a small gradient image so encoders have real content to
// work with.
func makeFrame(width, height int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.SetNRGBA(x, y, color.NRGBA{
				R: uint8(x * 255 / width),
				G: uint8(y * 255 / height),
				B: 128,
				A: 255,
			})
		}
	}
	return img
}

func encodePNG(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func encodeJPEG(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, img, &jpeg.Options{Quality: 90}))
	return buf.Bytes()
}

func TestDecodeFormats(t *testing.T) {
	t.Parallel()

	src := makeFrame(64, 48)

	tests := []struct {
		name string
		data []byte
	}{
		{"png", encodePNG(t, src)},
		{"jpeg", encodeJPEG(t, src)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			img, err := Decode(tt.data)
			require.NoError(t, err)
			require.NotNil(t, img)
			assert.Equal(t, 64, img.Bounds().Dx())
			assert.Equal(t, 48, img.Bounds().Dy())
		})
	}
}

func TestDecodeRejectsBadPayloads(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		data []byte
	}{
		{"empty", nil},
		{"zero length", []byte{}},
		{"garbage", []byte("this is not an image")},
		{"truncated png magic", []byte{0x89, 0x50, 0x4e}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			img, err := Decode(tt.data)
			require.Error(t, err)
			assert.Nil(t, img)
			assert.True(t, errors.IsCategory(err, errors.CategoryImageDecode),
				"decode failures should carry the image decode category")
		})
	}
}

func TestBoundWidth(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		srcW, srcH int
		maxWidth   int
		wantW      int
		wantH      int
	}{
		{"wide frame downscaled", 640, 480, 480, 480, 360},
		{"hd frame downscaled", 960, 540, 480, 480, 270},
		{"exact width untouched", 480, 360, 480, 480, 360},
		{"narrow frame untouched", 320, 240, 480, 320, 240},
		{"tall frame downscaled", 600, 900, 480, 480, 720},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := makeFrame(tt.srcW, tt.srcH)
			got := BoundWidth(src, tt.maxWidth)
			require.NotNil(t, got)
			assert.Equal(t, tt.wantW, got.Bounds().Dx())
			assert.Equal(t, tt.wantH, got.Bounds().Dy())
		})
	}
}

func TestBoundWidthReturnsSameImageWhenSmall(t *testing.T) {
	t.Parallel()

	src := makeFrame(100, 100)
	got := BoundWidth(src, MaxFrameWidth)
	assert.Same(t, src, got, "frames within the bound should not be copied")
}

func TestBoundWidthNilSafe(t *testing.T) {
	t.Parallel()

	assert.Nil(t, BoundWidth(nil, MaxFrameWidth))
}
