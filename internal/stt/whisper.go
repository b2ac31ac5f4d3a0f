package stt

import (
	"context"
	"errors"
	"fmt"
	"io"
	"runtime"
	"strings"

	"github.com/ggerganov/whisper.cpp/bindings/go/pkg/whisper"

	"deskpilot/internal/voice"
)

// Whisper transcribes utterances with a local whisper.cpp model. Loading the
// model is expensive; one Whisper serves the whole process.
type Whisper struct {
	model whisper.Model
}

func NewWhisper(modelPath string) (*Whisper, error) {
	if modelPath == "" {
		return nil, errors.New("empty model path")
	}
	m, err := whisper.New(modelPath)
	if err != nil {
		return nil, fmt.Errorf("load model: %w", err)
	}
	return &Whisper{model: m}, nil
}

func (w *Whisper) Close() error {
	if w.model == nil {
		return nil
	}
	return w.model.Close()
}

// Transcribe expects mono 16 kHz float32 PCM in [-1, 1].
func (w *Whisper) Transcribe(ctx context.Context, pcm []float32, language string) (string, error) {
	if len(pcm) == 0 {
		return "", voice.ErrUnintelligible
	}

	wctx, err := w.model.NewContext()
	if err != nil {
		return "", fmt.Errorf("new context: %w", err)
	}

	if language == "" {
		language = "auto"
	}
	if err := wctx.SetLanguage(baseLanguage(language)); err != nil {
		return "", fmt.Errorf("set language: %w", err)
	}
	wctx.SetThreads(uint(runtime.NumCPU()))

	if err := wctx.Process(pcm, nil, nil, nil); err != nil {
		return "", fmt.Errorf("process: %w", err)
	}

	var parts []string
	for {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		seg, err := wctx.NextSegment()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", fmt.Errorf("next segment: %w", err)
		}
		parts = append(parts, strings.TrimSpace(seg.Text))
	}

	text := strings.TrimSpace(strings.Join(parts, " "))
	if text == "" {
		return "", voice.ErrUnintelligible
	}
	return text, nil
}
