package screen

import (
	"image"
	"image/color"

	"github.com/disintegration/imaging"
	"github.com/nfnt/resize"
)

const (
	// Region captures below this width get upscaled; tesseract degrades
	// sharply on small anti-aliased glyphs.
	minOCRWidth = 800

	thresholdWindow = 11
	thresholdOffset = 2.0
)

// Enhance prepares a screen capture for OCR: upscale small captures,
// grayscale, denoise, then binarize with an adaptive threshold.
func Enhance(img image.Image) image.Image {
	if img.Bounds().Dx() < minOCRWidth {
		img = resize.Resize(uint(img.Bounds().Dx()*2), 0, img, resize.Lanczos3)
	}
	gray := imaging.Grayscale(img)
	denoised := imaging.Blur(gray, 0.8)
	return adaptiveThreshold(denoised, thresholdWindow, thresholdOffset)
}

// adaptiveThreshold binarizes against the local window mean minus a constant
// offset, using an integral image so the pass stays linear in pixels.
func adaptiveThreshold(img *image.NRGBA, window int, offset float64) *image.Gray {
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	out := image.NewGray(image.Rect(0, 0, w, h))
	if w == 0 || h == 0 {
		return out
	}

	lum := make([]uint64, w*h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			// Grayscale input: R carries the luminance.
			lum[y*w+x] = uint64(img.NRGBAAt(bounds.Min.X+x, bounds.Min.Y+y).R)
		}
	}

	integral := make([]uint64, (w+1)*(h+1))
	for y := 1; y <= h; y++ {
		var rowSum uint64
		for x := 1; x <= w; x++ {
			rowSum += lum[(y-1)*w+(x-1)]
			integral[y*(w+1)+x] = integral[(y-1)*(w+1)+x] + rowSum
		}
	}

	half := window / 2
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			x0, y0 := max(0, x-half), max(0, y-half)
			x1, y1 := min(w-1, x+half), min(h-1, y+half)
			area := uint64((x1 - x0 + 1) * (y1 - y0 + 1))

			sum := integral[(y1+1)*(w+1)+(x1+1)] -
				integral[(y0)*(w+1)+(x1+1)] -
				integral[(y1+1)*(w+1)+(x0)] +
				integral[(y0)*(w+1)+(x0)]

			mean := float64(sum) / float64(area)
			v := uint8(0)
			if float64(lum[y*w+x]) > mean-offset {
				v = 255
			}
			out.SetGray(x, y, color.Gray{Y: v})
		}
	}
	return out
}
