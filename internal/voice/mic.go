package voice

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/gordonklaus/portaudio"
)

const (
	sampleRate = 16000
	frameSize  = 320 // 20ms
	frameDur   = 20 * time.Millisecond

	// Recording ends after this much trailing silence.
	pauseAfterSpeech = 800 * time.Millisecond

	// Calibration headroom above the measured ambient level.
	calibrationFactor = 1.5
)

// Microphone owns one audio input device. Concurrent use of two instances
// against the same physical device is undefined.
type Microphone interface {
	Calibrate(ctx context.Context, d time.Duration) error
	Record(ctx context.Context, timeout, phraseLimit time.Duration) ([]float32, error)
	Close() error
}

// DefaultDevice selects the system default input device.
const DefaultDevice = -1

// PortAudioMic captures 16 kHz mono float32 PCM through portaudio. The
// energy threshold gates speech-start detection and is raised by Calibrate
// when the room is louder than the configured floor.
type PortAudioMic struct {
	device    int
	threshold int // 16-bit RMS scale, 100..4000
	log       *slog.Logger
}

// OpenMicrophone initializes portaudio and prepares the given device
// (DefaultDevice for the system default).
func OpenMicrophone(deviceIndex, energyThreshold int, log *slog.Logger) (Microphone, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("initialize portaudio: %w", err)
	}
	return &PortAudioMic{device: deviceIndex, threshold: energyThreshold, log: log}, nil
}

func (m *PortAudioMic) Close() error {
	return portaudio.Terminate()
}

// Calibrate samples ambient noise for d and raises the energy threshold
// above the measured floor so background hum never trips speech-start.
func (m *PortAudioMic) Calibrate(ctx context.Context, d time.Duration) error {
	buf := make([]float32, frameSize)
	stream, err := m.openStream(buf)
	if err != nil {
		return err
	}
	defer stream.Close()

	if err := stream.Start(); err != nil {
		return fmt.Errorf("start stream: %w", err)
	}
	defer stream.Stop()

	frames := int(d / frameDur)
	if frames < 1 {
		frames = 1
	}

	var sum float64
	for i := 0; i < frames; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := stream.Read(); err != nil {
			return fmt.Errorf("read frame: %w", err)
		}
		sum += frameRMS(buf)
	}

	ambient := int(sum / float64(frames) * 32768 * calibrationFactor)
	if ambient > m.threshold {
		m.threshold = ambient
	}
	m.log.Debug("ambient noise calibration done", "threshold", m.threshold)
	return nil
}

// Record blocks until speech starts or timeout elapses, then captures until
// the speaker pauses or phraseLimit is reached. Returns ErrNoSpeech when
// nothing crossed the energy threshold in time.
func (m *PortAudioMic) Record(ctx context.Context, timeout, phraseLimit time.Duration) ([]float32, error) {
	buf := make([]float32, frameSize)
	stream, err := m.openStream(buf)
	if err != nil {
		return nil, err
	}
	defer stream.Close()

	if err := stream.Start(); err != nil {
		return nil, fmt.Errorf("start stream: %w", err)
	}
	defer stream.Stop()

	gate := float64(m.threshold) / 32768.0

	// Wait for speech-start.
	waitFrames := int(timeout / frameDur)
	started := false
	out := make([]float32, 0, sampleRate*3)
	for i := 0; i < waitFrames; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := stream.Read(); err != nil {
			return nil, fmt.Errorf("read frame: %w", err)
		}
		if frameRMS(buf) >= gate {
			started = true
			out = append(out, buf...)
			break
		}
	}
	if !started {
		return nil, ErrNoSpeech
	}

	// Capture until trailing silence or the phrase limit.
	maxFrames := int(phraseLimit / frameDur)
	silenceFrames := 0
	silenceLimit := int(pauseAfterSpeech / frameDur)
	for i := 1; i < maxFrames; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := stream.Read(); err != nil {
			return nil, fmt.Errorf("read frame: %w", err)
		}
		out = append(out, buf...)

		if frameRMS(buf) < gate {
			silenceFrames++
			if silenceFrames >= silenceLimit {
				break
			}
		} else {
			silenceFrames = 0
		}
	}

	return out, nil
}

func (m *PortAudioMic) openStream(buf []float32) (*portaudio.Stream, error) {
	if m.device == DefaultDevice {
		stream, err := portaudio.OpenDefaultStream(1, 0, sampleRate, len(buf), buf)
		if err != nil {
			return nil, fmt.Errorf("open default stream: %w", err)
		}
		return stream, nil
	}

	devices, err := portaudio.Devices()
	if err != nil {
		return nil, fmt.Errorf("enumerate devices: %w", err)
	}
	if m.device < 0 || m.device >= len(devices) {
		return nil, fmt.Errorf("no input device with index %d", m.device)
	}

	params := portaudio.LowLatencyParameters(devices[m.device], nil)
	params.Input.Channels = 1
	params.SampleRate = sampleRate
	params.FramesPerBuffer = len(buf)

	stream, err := portaudio.OpenStream(params, buf)
	if err != nil {
		return nil, fmt.Errorf("open stream: %w", err)
	}
	return stream, nil
}

// Microphones enumerates input-capable devices, best effort.
func Microphones() (map[int]string, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, err
	}
	defer portaudio.Terminate()

	devices, err := portaudio.Devices()
	if err != nil {
		return nil, err
	}

	mics := make(map[int]string)
	for i, dev := range devices {
		if dev.MaxInputChannels > 0 {
			mics[i] = dev.Name
		}
	}
	return mics, nil
}

func frameRMS(f []float32) float64 {
	var s float64
	for _, x := range f {
		s += float64(x * x)
	}
	return math.Sqrt(s / float64(len(f)))
}
