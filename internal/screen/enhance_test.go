package screen

import (
	"image"
	"image/color"
	"testing"

	"github.com/disintegration/imaging"
)

func TestAdaptiveThresholdBinarizes(t *testing.T) {
	src := image.NewNRGBA(image.Rect(0, 0, 32, 32))
	for y := 0; y < 32; y++ {
		for x := 0; x < 32; x++ {
			// Dark glyph block on a light background.
			v := uint8(220)
			if x >= 8 && x < 16 && y >= 8 && y < 16 {
				v = 30
			}
			src.SetNRGBA(x, y, color.NRGBA{R: v, G: v, B: v, A: 255})
		}
	}

	out := adaptiveThreshold(src, thresholdWindow, thresholdOffset)

	for y := 0; y < 32; y++ {
		for x := 0; x < 32; x++ {
			v := out.GrayAt(x, y).Y
			if v != 0 && v != 255 {
				t.Fatalf("pixel (%d,%d) not binary: %d", x, y, v)
			}
		}
	}
	if out.GrayAt(12, 12).Y != 0 {
		t.Fatalf("glyph interior should binarize to black")
	}
	if out.GrayAt(2, 2).Y != 255 {
		t.Fatalf("background should binarize to white")
	}
}

func TestEnhanceUpscalesSmallCaptures(t *testing.T) {
	small := imaging.New(100, 40, color.NRGBA{R: 255, G: 255, B: 255, A: 255})

	out := Enhance(small)
	if out.Bounds().Dx() != 200 {
		t.Fatalf("expected 2x upscale, got width %d", out.Bounds().Dx())
	}

	large := imaging.New(minOCRWidth, 40, color.NRGBA{R: 255, G: 255, B: 255, A: 255})
	out = Enhance(large)
	if out.Bounds().Dx() != minOCRWidth {
		t.Fatalf("full-width captures must not be resized, got %d", out.Bounds().Dx())
	}
}
