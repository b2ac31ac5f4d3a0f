package voice

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"deskpilot/internal/config"
	"deskpilot/internal/errs"
)

// Expected listen outcomes. Callers branch on these with errors.Is instead
// of parsing messages; all three arrive wrapped in a VoiceRecognition error.
var (
	ErrNoSpeech       = errors.New("no speech detected before timeout")
	ErrUnintelligible = errors.New("could not understand audio")
	ErrService        = errors.New("transcription service unavailable")
)

// DefaultStopPhrase terminates continuous listening.
const DefaultStopPhrase = "stop listening"

// Transcriber is the speech-to-text boundary: 16 kHz mono PCM in, transcript
// out. Implementations signal ErrUnintelligible and ErrService through the
// error chain.
type Transcriber interface {
	Transcribe(ctx context.Context, pcm []float32, language string) (string, error)
}

type micOpener func(deviceIndex, energyThreshold int, log *slog.Logger) (Microphone, error)

// Recognizer turns microphone audio into command text. It owns at most one
// microphone; listening calls that find none open the default device first.
type Recognizer struct {
	cfg         config.Settings
	transcriber Transcriber
	openMic     micOpener
	mic         Microphone
	lastCommand string
	log         *slog.Logger
}

func NewRecognizer(cfg config.Settings, transcriber Transcriber, log *slog.Logger) *Recognizer {
	return &Recognizer{
		cfg:         cfg,
		transcriber: transcriber,
		openMic:     OpenMicrophone,
		log:         log,
	}
}

// InitMicrophone opens the audio device and runs a fixed one-second ambient
// noise calibration that adjusts the speech-start energy threshold.
func (r *Recognizer) InitMicrophone(ctx context.Context, deviceIndex int) error {
	mic, err := r.openMic(deviceIndex, r.cfg.VoiceEnergyThreshold, r.log)
	if err != nil {
		return errs.Wrap(errs.VoiceRecognition, "failed to initialize microphone", err)
	}

	r.log.Info("adjusting for ambient noise")
	if err := mic.Calibrate(ctx, time.Second); err != nil {
		mic.Close()
		return errs.Wrap(errs.VoiceRecognition, "failed to initialize microphone", err)
	}

	if r.mic != nil {
		r.mic.Close()
	}
	r.mic = mic
	r.log.Info("microphone initialized")
	return nil
}

// ListenOptions overrides the configured timing defaults; zero values fall
// back to settings.
type ListenOptions struct {
	Timeout         time.Duration
	PhraseTimeLimit time.Duration
}

// Listen blocks until one utterance is captured and transcribed, or fails
// with a VoiceRecognition error wrapping one of the expected outcomes.
func (r *Recognizer) Listen(ctx context.Context, opts ListenOptions) (string, error) {
	if r.mic == nil {
		if err := r.InitMicrophone(ctx, DefaultDevice); err != nil {
			return "", err
		}
	}

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = r.cfg.VoiceTimeout
	}
	phraseLimit := opts.PhraseTimeLimit
	if phraseLimit <= 0 {
		phraseLimit = r.cfg.VoicePhraseTimeLimit
	}

	r.log.Info("listening for command")
	pcm, err := r.mic.Record(ctx, timeout, phraseLimit)
	if err != nil {
		if errors.Is(err, ErrNoSpeech) {
			r.log.Warn("listening timed out, no speech detected")
			return "", errs.Wrap(errs.VoiceRecognition, "listening timed out - no speech detected", err)
		}
		return "", errs.Wrap(errs.VoiceRecognition, "failed to capture audio", err)
	}

	text, err := r.transcriber.Transcribe(ctx, pcm, r.cfg.VoiceLanguage)
	if err != nil {
		switch {
		case errors.Is(err, ErrUnintelligible):
			r.log.Warn("could not understand audio")
			return "", errs.Wrap(errs.VoiceRecognition, "could not understand audio", err)
		case errors.Is(err, ErrService):
			return "", errs.Wrap(errs.VoiceRecognition, "could not request results from transcription service", err)
		default:
			return "", errs.Wrap(errs.VoiceRecognition, "unexpected error during voice recognition", err)
		}
	}

	text = strings.TrimSpace(text)
	r.lastCommand = text
	r.log.Info("recognized command", "text", text)
	return text, nil
}

// ListenContinuously loops on the calling goroutine: each recognized
// utterance is either the stop phrase (case-folded equality, loop ends) or
// is handed to callback synchronously before the next listen. Recognition
// failures are expected live-listening conditions and keep the loop running;
// ctx cancellation ends it without error.
func (r *Recognizer) ListenContinuously(ctx context.Context, callback func(string), stopPhrase string) error {
	if stopPhrase == "" {
		stopPhrase = DefaultStopPhrase
	}
	if r.mic == nil {
		if err := r.InitMicrophone(ctx, DefaultDevice); err != nil {
			return err
		}
	}

	r.log.Info("continuous listening started", "stop_phrase", stopPhrase)
	for {
		if ctx.Err() != nil {
			r.log.Info("continuous listening interrupted")
			return nil
		}

		text, err := r.Listen(ctx, ListenOptions{})
		if err != nil {
			if ctx.Err() != nil {
				r.log.Info("continuous listening interrupted")
				return nil
			}
			if errs.IsKind(err, errs.VoiceRecognition) {
				r.log.Debug("recognition error", "err", err)
				continue
			}
			return err
		}

		if strings.EqualFold(text, stopPhrase) {
			r.log.Info("stop phrase detected, ending continuous listening")
			return nil
		}
		callback(text)
	}
}

// LastCommand returns the most recently recognized utterance.
func (r *Recognizer) LastCommand() string { return r.lastCommand }

// Microphones lists available input devices, best effort.
func (r *Recognizer) Microphones() (map[int]string, error) {
	return Microphones()
}

// Close releases the microphone, if one was opened.
func (r *Recognizer) Close() error {
	if r.mic == nil {
		return nil
	}
	err := r.mic.Close()
	r.mic = nil
	return err
}
