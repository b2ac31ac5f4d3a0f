package voice

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"testing"
	"time"

	"deskpilot/internal/config"
	"deskpilot/internal/errs"
)

type fakeMic struct {
	pcm        [][]float32
	recErrs    []error
	calls      int
	calibrated time.Duration
	closed     bool
}

func (f *fakeMic) Calibrate(_ context.Context, d time.Duration) error {
	f.calibrated = d
	return nil
}

func (f *fakeMic) Record(ctx context.Context, _, _ time.Duration) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	i := f.calls
	f.calls++
	if i < len(f.recErrs) && f.recErrs[i] != nil {
		return nil, f.recErrs[i]
	}
	if i < len(f.pcm) {
		return f.pcm[i], nil
	}
	return []float32{0.1, 0.2}, nil
}

func (f *fakeMic) Close() error {
	f.closed = true
	return nil
}

type scriptedTranscriber struct {
	texts []string
	errs  []error
	calls int
}

func (s *scriptedTranscriber) Transcribe(context.Context, []float32, string) (string, error) {
	i := s.calls
	s.calls++
	if i < len(s.errs) && s.errs[i] != nil {
		return "", s.errs[i]
	}
	if i < len(s.texts) {
		return s.texts[i], nil
	}
	return "", ErrUnintelligible
}

func testSettings(t *testing.T) config.Settings {
	t.Helper()
	t.Setenv("DESKPILOT_SCREENSHOT_DIR", t.TempDir())
	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	return cfg
}

func newTestRecognizer(t *testing.T, mic *fakeMic, tr Transcriber) *Recognizer {
	t.Helper()
	r := NewRecognizer(testSettings(t), tr, slog.Default())
	r.openMic = func(_, _ int, _ *slog.Logger) (Microphone, error) {
		return mic, nil
	}
	return r
}

func TestListenUpdatesLastCommand(t *testing.T) {
	r := newTestRecognizer(t, &fakeMic{}, &scriptedTranscriber{texts: []string{" open browser "}})

	text, err := r.Listen(context.Background(), ListenOptions{})
	if err != nil {
		t.Fatalf("listen failed: %v", err)
	}
	if text != "open browser" {
		t.Fatalf("unexpected transcript: %q", text)
	}
	if r.LastCommand() != "open browser" {
		t.Fatalf("last command not updated: %q", r.LastCommand())
	}
}

func TestListenLazilyInitializesMicrophone(t *testing.T) {
	mic := &fakeMic{}
	r := newTestRecognizer(t, mic, &scriptedTranscriber{texts: []string{"hi"}})

	if _, err := r.Listen(context.Background(), ListenOptions{}); err != nil {
		t.Fatalf("listen failed: %v", err)
	}
	if mic.calibrated != time.Second {
		t.Fatalf("expected 1s ambient calibration, got %s", mic.calibrated)
	}
}

func TestInitMicrophoneFailureIsWrapped(t *testing.T) {
	r := NewRecognizer(testSettings(t), &scriptedTranscriber{}, slog.Default())
	r.openMic = func(_, _ int, _ *slog.Logger) (Microphone, error) {
		return nil, errors.New("device busy")
	}

	err := r.InitMicrophone(context.Background(), DefaultDevice)
	if !errs.IsKind(err, errs.VoiceRecognition) {
		t.Fatalf("expected voice recognition kind, got %v", err)
	}
}

func TestListenFailureTaxonomy(t *testing.T) {
	cases := []struct {
		name     string
		mic      *fakeMic
		tr       *scriptedTranscriber
		sentinel error
	}{
		{
			name:     "no speech before timeout",
			mic:      &fakeMic{recErrs: []error{ErrNoSpeech}},
			tr:       &scriptedTranscriber{},
			sentinel: ErrNoSpeech,
		},
		{
			name:     "unintelligible audio",
			mic:      &fakeMic{},
			tr:       &scriptedTranscriber{errs: []error{ErrUnintelligible}},
			sentinel: ErrUnintelligible,
		},
		{
			name:     "service unreachable",
			mic:      &fakeMic{},
			tr:       &scriptedTranscriber{errs: []error{fmt.Errorf("%w: 503", ErrService)}},
			sentinel: ErrService,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := newTestRecognizer(t, tc.mic, tc.tr)
			_, err := r.Listen(context.Background(), ListenOptions{})
			if !errs.IsKind(err, errs.VoiceRecognition) {
				t.Fatalf("expected voice recognition kind, got %v", err)
			}
			if !errors.Is(err, tc.sentinel) {
				t.Fatalf("expected sentinel %v in chain, got %v", tc.sentinel, err)
			}
		})
	}
}

func TestListenWrapsUnexpectedBackendError(t *testing.T) {
	r := newTestRecognizer(t, &fakeMic{}, &scriptedTranscriber{errs: []error{errors.New("model panicked")}})

	_, err := r.Listen(context.Background(), ListenOptions{})
	if !errs.IsKind(err, errs.VoiceRecognition) {
		t.Fatalf("expected voice recognition kind, got %v", err)
	}
	if errors.Is(err, ErrUnintelligible) || errors.Is(err, ErrService) {
		t.Fatalf("unexpected error must not match expected outcomes: %v", err)
	}
}

func TestListenContinuouslyStopsOnStopPhrase(t *testing.T) {
	tr := &scriptedTranscriber{texts: []string{"open browser", "search cats", "Stop Listening"}}
	r := newTestRecognizer(t, &fakeMic{}, tr)

	var heard []string
	err := r.ListenContinuously(context.Background(), func(text string) {
		heard = append(heard, text)
	}, "")
	if err != nil {
		t.Fatalf("continuous listening failed: %v", err)
	}
	if len(heard) != 2 || heard[0] != "open browser" || heard[1] != "search cats" {
		t.Fatalf("unexpected callbacks: %v", heard)
	}
}

func TestListenContinuouslySwallowsRecognitionErrors(t *testing.T) {
	mic := &fakeMic{recErrs: []error{ErrNoSpeech, nil, nil}}
	tr := &scriptedTranscriber{errs: []error{ErrUnintelligible}, texts: []string{"", "stop listening"}}
	r := newTestRecognizer(t, mic, tr)

	var heard []string
	err := r.ListenContinuously(context.Background(), func(text string) {
		heard = append(heard, text)
	}, "stop listening")
	if err != nil {
		t.Fatalf("continuous listening failed: %v", err)
	}
	if len(heard) != 0 {
		t.Fatalf("failed recognitions must not reach the callback: %v", heard)
	}
}

func TestListenContinuouslyHonorsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	tr := &scriptedTranscriber{texts: []string{"open browser"}}
	r := newTestRecognizer(t, &fakeMic{}, tr)

	calls := 0
	err := r.ListenContinuously(ctx, func(string) {
		calls++
		cancel()
	}, "stop listening")
	if err != nil {
		t.Fatalf("cancellation must not surface an error: %v", err)
	}
	if calls != 1 {
		t.Fatalf("expected exactly one callback before cancel, got %d", calls)
	}
}

func TestParseCommandFallsBackToLastCommand(t *testing.T) {
	r := newTestRecognizer(t, &fakeMic{}, &scriptedTranscriber{texts: []string{"open settings menu"}})

	if _, err := r.Listen(context.Background(), ListenOptions{}); err != nil {
		t.Fatalf("listen failed: %v", err)
	}

	cmd := r.ParseCommand("")
	if cmd.Action != "open" || cmd.Target != "settings menu" {
		t.Fatalf("unexpected parse of last command: %+v", cmd)
	}
}

func TestCloseReleasesMicrophone(t *testing.T) {
	mic := &fakeMic{}
	r := newTestRecognizer(t, mic, &scriptedTranscriber{texts: []string{"hi"}})

	if _, err := r.Listen(context.Background(), ListenOptions{}); err != nil {
		t.Fatalf("listen failed: %v", err)
	}
	if err := r.Close(); err != nil {
		t.Fatalf("close failed: %v", err)
	}
	if !mic.closed {
		t.Fatalf("microphone not closed")
	}
}
