package stt

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	openai "github.com/openai/openai-go/v3"

	"deskpilot/internal/voice"
)

// OpenAI transcribes utterances through the hosted audio transcription API.
type OpenAI struct {
	client openai.Client
	model  string
}

func NewOpenAI(client openai.Client, model string) *OpenAI {
	if model == "" {
		model = string(openai.AudioModelWhisper1)
	}
	return &OpenAI{client: client, model: model}
}

func (o *OpenAI) Transcribe(ctx context.Context, pcm []float32, language string) (string, error) {
	if len(pcm) == 0 {
		return "", voice.ErrUnintelligible
	}

	data, err := encodeWAV(pcm)
	if err != nil {
		return "", fmt.Errorf("encode audio: %w", err)
	}

	params := openai.AudioTranscriptionNewParams{
		Model: openai.AudioModel(o.model),
		File:  openai.File(bytes.NewReader(data), "command.wav", "audio/wav"),
	}
	if language != "" {
		params.Language = openai.String(baseLanguage(language))
	}

	resp, err := o.client.Audio.Transcriptions.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("%w: %v", voice.ErrService, err)
	}

	text := strings.TrimSpace(resp.Text)
	if text == "" {
		return "", voice.ErrUnintelligible
	}
	return text, nil
}

// baseLanguage strips a region subtag; the API wants ISO-639-1 ("en", not
// "en-US").
func baseLanguage(language string) string {
	if i := strings.IndexByte(language, '-'); i > 0 {
		return language[:i]
	}
	return language
}
