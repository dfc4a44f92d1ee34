// imageproc.go: Package imageproc decodes camera frames and bounds them to the
// working size used by the detection pipeline.
package imageproc

import (
	"bytes"
	"image"

	"github.com/disintegration/imaging"

	"github.com/kawakawa0804/umi-no-me-web2/internal/errors"
)

// MaxFrameWidth is the widest frame the pipeline works on. Camera uploads
// wider than this are downscaled before inference to keep preprocessing
// cost flat regardless of sender resolution.
const MaxFrameWidth = 480

// Decode parses an encoded camera frame (JPEG, PNG, GIF, BMP or TIFF) into
// an NRGBA image. The alpha channel is opaque for the formats cameras send,
// callers read the RGB planes directly.
func Decode(data []byte) (*image.NRGBA, error) {
	if len(data) == 0 {
		return nil, errors.Newf("empty image payload").
			Component("imageproc").
			Category(errors.CategoryImageDecode).
			Build()
	}

	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, errors.New(err).
			Component("imageproc").
			Category(errors.CategoryImageDecode).
			ImageContext(len(data), 0, 0).
			Build()
	}

	return imaging.Clone(img), nil
}

// BoundWidth downscales img so its width does not exceed maxWidth, keeping
// the aspect ratio. Images at or below the bound are returned unchanged.
// Box filtering matches the area-average downscale the pipeline was tuned
// against.
func BoundWidth(img *image.NRGBA, maxWidth int) *image.NRGBA {
	if img == nil || maxWidth <= 0 {
		return img
	}
	if img.Bounds().Dx() <= maxWidth {
		return img
	}
	return imaging.Resize(img, maxWidth, 0, imaging.Box)
}
