package notify

import (
	"bytes"
	"fmt"
	"io"
	"time"

	"github.com/faiface/beep"
	"github.com/faiface/beep/generators"
	"github.com/faiface/beep/mp3"
	"github.com/faiface/beep/speaker"
)

const (
	cueFreq     = 880
	cueDuration = 120 * time.Millisecond
)

// Cue plays a short tone signalling that the assistant is listening.
func Cue() error {
	sr := beep.SampleRate(44100)
	if err := speaker.Init(sr, sr.N(time.Second/10)); err != nil {
		return fmt.Errorf("init speaker: %w", err)
	}

	tone, err := generators.SinTone(sr, cueFreq)
	if err != nil {
		return fmt.Errorf("generate tone: %w", err)
	}

	play(beep.Take(sr.N(cueDuration), tone))
	return nil
}

// PlayMP3 plays synthesized speech and blocks until playback finishes.
func PlayMP3(data []byte) error {
	streamer, format, err := mp3.Decode(io.NopCloser(bytes.NewReader(data)))
	if err != nil {
		return fmt.Errorf("decode mp3: %w", err)
	}
	defer streamer.Close()

	if err := speaker.Init(format.SampleRate, format.SampleRate.N(time.Second/10)); err != nil {
		return fmt.Errorf("init speaker: %w", err)
	}

	play(streamer)
	return nil
}

func play(s beep.Streamer) {
	done := make(chan struct{})
	speaker.Play(beep.Seq(s, beep.Callback(func() {
		close(done)
	})))
	<-done
}
