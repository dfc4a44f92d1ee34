// preprocess.go frame to input tensor conversion
package detector

import (
	"image"
	"image/color"
	"math"

	"github.com/disintegration/imaging"
)

// letterboxGeometry records how a frame was fitted into the model input so
// detections can be mapped back to frame coordinates.
type letterboxGeometry struct {
	inputW int
	inputH int
	scale  float64
	padX   float64
	padY   float64
}

// grayFill is the padding color detection models are trained against.
var grayFill = color.NRGBA{R: 114, G: 114, B: 114, A: 255}

// fitToInput letterboxes img into an inputW x inputH canvas, writes the
// pixels into dst as normalized float32 RGB and returns the geometry of the
// fit. dst must hold the full input tensor.
func fitToInput(img *image.NRGBA, inputW, inputH int, nchw bool, dst []float32) letterboxGeometry {
	srcW := img.Bounds().Dx()
	srcH := img.Bounds().Dy()

	scale := min(float64(inputW)/float64(srcW), float64(inputH)/float64(srcH))
	newW := max(1, int(math.Round(float64(srcW)*scale)))
	newH := max(1, int(math.Round(float64(srcH)*scale)))

	padX := (inputW - newW) / 2
	padY := (inputH - newH) / 2

	resized := imaging.Resize(img, newW, newH, imaging.Linear)
	canvas := imaging.New(inputW, inputH, grayFill)
	canvas = imaging.Paste(canvas, resized, image.Pt(padX, padY))

	writePixels(canvas, inputW, inputH, nchw, dst)

	return letterboxGeometry{
		inputW: inputW,
		inputH: inputH,
		scale:  scale,
		padX:   float64(padX),
		padY:   float64(padY),
	}
}

// writePixels fills dst with the canvas RGB values scaled to 0..1, in the
// layout the model expects.
func writePixels(canvas *image.NRGBA, inputW, inputH int, nchw bool, dst []float32) {
	plane := inputW * inputH
	for y := 0; y < inputH; y++ {
		row := canvas.Pix[y*canvas.Stride:]
		for x := 0; x < inputW; x++ {
			r := float32(row[x*4]) / 255.0
			g := float32(row[x*4+1]) / 255.0
			b := float32(row[x*4+2]) / 255.0

			if nchw {
				i := y*inputW + x
				dst[i] = r
				dst[plane+i] = g
				dst[2*plane+i] = b
			} else {
				i := (y*inputW + x) * 3
				dst[i] = r
				dst[i+1] = g
				dst[i+2] = b
			}
		}
	}
}
