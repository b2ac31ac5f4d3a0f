package screen

import (
	"errors"
	"image"

	"github.com/kbinani/screenshot"
)

// Capturer is the screen-capture boundary. A nil region means the whole
// primary display.
type Capturer interface {
	Grab(region *image.Rectangle) (image.Image, error)
}

// Display captures the physical screen.
type Display struct{}

func (Display) Grab(region *image.Rectangle) (image.Image, error) {
	if region != nil {
		return screenshot.CaptureRect(*region)
	}
	if screenshot.NumActiveDisplays() == 0 {
		return nil, errors.New("no active displays")
	}
	return screenshot.CaptureRect(screenshot.GetDisplayBounds(0))
}
