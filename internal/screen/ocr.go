package screen

import (
	"bytes"
	"fmt"
	"image"
	"image/png"

	"github.com/otiai10/gosseract/v2"
)

// TextElement is one OCR token: its text, per-token confidence (0..100) and
// bounding box in image coordinates. Elements keep the engine's scan order
// (left-to-right, top-to-bottom); nothing re-sorts them.
type TextElement struct {
	Text       string  `json:"text"`
	Confidence float64 `json:"confidence"`
	Left       int     `json:"left"`
	Top        int     `json:"top"`
	Width      int     `json:"width"`
	Height     int     `json:"height"`
}

// Engine is the OCR boundary. The concrete engine is a black box that turns
// raster images into text, plain or tokenized.
type Engine interface {
	ImageToText(img image.Image, language string) (string, error)
	ImageToData(img image.Image, language string) ([]TextElement, error)
}

// Tesseract runs OCR through the local tesseract installation.
type Tesseract struct{}

func (Tesseract) ImageToText(img image.Image, language string) (string, error) {
	client := gosseract.NewClient()
	defer client.Close()

	if err := prepare(client, img, language); err != nil {
		return "", err
	}
	text, err := client.Text()
	if err != nil {
		return "", fmt.Errorf("tesseract text: %w", err)
	}
	return text, nil
}

func (Tesseract) ImageToData(img image.Image, language string) ([]TextElement, error) {
	client := gosseract.NewClient()
	defer client.Close()

	if err := prepare(client, img, language); err != nil {
		return nil, err
	}
	boxes, err := client.GetBoundingBoxes(gosseract.RIL_WORD)
	if err != nil {
		return nil, fmt.Errorf("tesseract bounding boxes: %w", err)
	}

	elements := make([]TextElement, 0, len(boxes))
	for _, b := range boxes {
		elements = append(elements, TextElement{
			Text:       b.Word,
			Confidence: b.Confidence,
			Left:       b.Box.Min.X,
			Top:        b.Box.Min.Y,
			Width:      b.Box.Dx(),
			Height:     b.Box.Dy(),
		})
	}
	return elements, nil
}

func prepare(client *gosseract.Client, img image.Image, language string) error {
	if err := client.SetLanguage(language); err != nil {
		return fmt.Errorf("set language: %w", err)
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return fmt.Errorf("encode image: %w", err)
	}
	if err := client.SetImageFromBytes(buf.Bytes()); err != nil {
		return fmt.Errorf("set image: %w", err)
	}
	return nil
}
