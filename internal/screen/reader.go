package screen

import (
	"fmt"
	"image"
	"image/png"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"deskpilot/internal/config"
	"deskpilot/internal/errs"
)

// Reader captures the screen and extracts text from it. Calls are
// independent; the only state is the last screenshot path and the last
// extracted text, both overwritten by each capture/extract call.
type Reader struct {
	cfg      config.Settings
	capturer Capturer
	ocr      Engine
	log      *slog.Logger

	lastScreenshot string
	lastText       string
}

func NewReader(cfg config.Settings, capturer Capturer, ocr Engine, log *slog.Logger) *Reader {
	return &Reader{cfg: cfg, capturer: capturer, ocr: ocr, log: log}
}

// Capture grabs the full screen, or the given region when non-nil. With
// save set, the capture is written as a timestamped PNG into the configured
// directory and remembered as the last screenshot.
func (r *Reader) Capture(save bool, region *image.Rectangle) (image.Image, error) {
	img, err := r.capturer.Grab(region)
	if err != nil {
		return nil, errs.Wrap(errs.ScreenCapture, "failed to capture screenshot", err)
	}

	if save {
		name := fmt.Sprintf("screenshot_%s.png", time.Now().Format("20060102_150405"))
		path := filepath.Join(r.cfg.ScreenshotDir, name)
		if err := writePNG(path, img); err != nil {
			return nil, errs.Wrap(errs.ScreenCapture, "failed to save screenshot", err)
		}
		r.lastScreenshot = path
		r.log.Info("screenshot saved", "path", path)
	}
	return img, nil
}

// ExtractText runs OCR over img, capturing a fresh unsaved screenshot when
// img is nil. Enhancement is recommended for live screen content.
func (r *Reader) ExtractText(img image.Image, enhance bool) (string, error) {
	if img == nil {
		var err error
		if img, err = r.Capture(false, nil); err != nil {
			return "", err
		}
	}
	if enhance {
		img = Enhance(img)
	}

	text, err := r.ocr.ImageToText(img, r.cfg.OCRLanguage)
	if err != nil {
		return "", errs.Wrap(errs.ScreenCapture, "failed to extract text from image", err)
	}

	r.lastText = strings.TrimSpace(text)
	r.log.Debug("extracted text", "chars", len(r.lastText))
	return r.lastText, nil
}

// ExtractTextWithConfidence returns the OCR tokens that are non-empty and at
// or above the configured confidence threshold, in the engine's scan order.
func (r *Reader) ExtractTextWithConfidence(img image.Image) ([]TextElement, error) {
	if img == nil {
		var err error
		if img, err = r.Capture(false, nil); err != nil {
			return nil, err
		}
	}

	tokens, err := r.ocr.ImageToData(img, r.cfg.OCRLanguage)
	if err != nil {
		return nil, errs.Wrap(errs.ScreenCapture, "failed to extract text with confidence", err)
	}

	elements := make([]TextElement, 0, len(tokens))
	for _, t := range tokens {
		if strings.TrimSpace(t.Text) == "" {
			continue
		}
		if t.Confidence < r.cfg.OCRConfidenceThreshold {
			continue
		}
		elements = append(elements, t)
	}

	r.log.Debug("extracted elements above threshold", "count", len(elements))
	return elements, nil
}

// CaptureAndRead captures the screen and extracts its text in one call.
func (r *Reader) CaptureAndRead(saveScreenshot bool) (string, error) {
	img, err := r.Capture(saveScreenshot, nil)
	if err != nil {
		return "", err
	}
	return r.ExtractText(img, true)
}

// FindText reports whether searchText appears anywhere in a fresh read of
// the screen. Both sides are case-folded unless caseSensitive is set.
func (r *Reader) FindText(searchText string, caseSensitive bool) (bool, error) {
	screenText, err := r.CaptureAndRead(false)
	if err != nil {
		return false, err
	}
	if !caseSensitive {
		screenText = strings.ToLower(screenText)
		searchText = strings.ToLower(searchText)
	}

	found := strings.Contains(screenText, searchText)
	r.log.Debug("text search", "query", searchText, "found", found)
	return found, nil
}

// LastScreenshot returns the path of the most recently saved capture.
func (r *Reader) LastScreenshot() string { return r.lastScreenshot }

// LastText returns the most recently extracted text.
func (r *Reader) LastText() string { return r.lastText }

func writePNG(path string, img image.Image) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := png.Encode(f, img); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
