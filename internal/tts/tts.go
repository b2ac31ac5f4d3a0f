package tts

import (
	"context"
	"fmt"
	"io"

	openai "github.com/openai/openai-go/v3"
)

// Synthesizer is the text-to-speech boundary: text in, encoded audio out.
type Synthesizer interface {
	Synthesize(ctx context.Context, text string) ([]byte, error)
}

// OpenAI synthesizes MP3 audio through the hosted speech API.
type OpenAI struct {
	client openai.Client
	model  string
	voice  string
}

func NewOpenAI(client openai.Client, model, voice string) *OpenAI {
	if model == "" {
		model = string(openai.SpeechModelTTS1)
	}
	if voice == "" {
		voice = "alloy"
	}
	return &OpenAI{client: client, model: model, voice: voice}
}

func (o *OpenAI) Synthesize(ctx context.Context, text string) ([]byte, error) {
	if text == "" {
		return nil, nil
	}

	resp, err := o.client.Audio.Speech.New(ctx, openai.AudioSpeechNewParams{
		Model:          openai.SpeechModel(o.model),
		Voice:          openai.AudioSpeechNewParamsVoice(o.voice),
		Input:          text,
		ResponseFormat: openai.AudioSpeechNewParamsResponseFormatMP3,
	})
	if err != nil {
		return nil, fmt.Errorf("synthesize speech: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read audio: %w", err)
	}
	return data, nil
}
