package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"deskpilot/internal/errs"
)

// Settings holds process-wide configuration. It is built once by Load,
// validated, and then passed by value into each component; nothing mutates
// it afterwards.
type Settings struct {
	AppName string
	Debug   bool

	// Screen capture
	ScreenshotDir      string
	ScreenshotInterval time.Duration // 100ms..60s

	// OCR
	OCRLanguage            string
	OCRConfidenceThreshold float64 // 0..100

	// Voice recognition
	VoiceLanguage        string
	VoiceTimeout         time.Duration // 1s..30s
	VoicePhraseTimeLimit time.Duration // 1s..60s
	VoiceEnergyThreshold int           // 100..4000

	// Action execution
	ActionTimeout time.Duration // 1s..300s

	// Service wiring
	Transcriber      string // "openai" or "whisper"
	WhisperModelPath string
	SpeechModel      string
	TTSModel         string
	TTSVoice         string
	PlannerModel     string
	SocksProxy       string
	FeedAddr         string
	ControlSocket    string
}

// Load resolves settings from DESKPILOT_* environment variables with
// defaults, validates every bounded field, and creates the screenshot
// directory. An unparseable or out-of-range value is fatal to the caller.
func Load() (Settings, error) {
	var env envParser
	s := Settings{
		AppName: "deskpilot",
		Debug:   env.boolean("DESKPILOT_DEBUG", false),

		ScreenshotDir:      env.str("DESKPILOT_SCREENSHOT_DIR", "screenshots"),
		ScreenshotInterval: env.seconds("DESKPILOT_SCREENSHOT_INTERVAL", 1.0),

		OCRLanguage:            env.str("DESKPILOT_OCR_LANGUAGE", "eng"),
		OCRConfidenceThreshold: env.float("DESKPILOT_OCR_CONFIDENCE_THRESHOLD", 60.0),

		VoiceLanguage:        env.str("DESKPILOT_VOICE_LANGUAGE", "en"),
		VoiceTimeout:         env.seconds("DESKPILOT_VOICE_TIMEOUT", 5.0),
		VoicePhraseTimeLimit: env.seconds("DESKPILOT_VOICE_PHRASE_TIME_LIMIT", 10.0),
		VoiceEnergyThreshold: env.integer("DESKPILOT_VOICE_ENERGY_THRESHOLD", 300),

		ActionTimeout: env.seconds("DESKPILOT_ACTION_TIMEOUT", 30.0),

		Transcriber:      env.str("DESKPILOT_TRANSCRIBER", "openai"),
		WhisperModelPath: env.str("DESKPILOT_WHISPER_MODEL", "models/ggml-base.en.bin"),
		SpeechModel:      env.str("DESKPILOT_SPEECH_MODEL", "whisper-1"),
		TTSModel:         env.str("DESKPILOT_TTS_MODEL", "tts-1"),
		TTSVoice:         env.str("DESKPILOT_TTS_VOICE", "alloy"),
		PlannerModel:     env.str("DESKPILOT_PLANNER_MODEL", "gpt-5-nano"),
		SocksProxy:       strings.TrimSpace(os.Getenv("DESKPILOT_SOCKS_PROXY")),
		FeedAddr:         strings.TrimSpace(os.Getenv("DESKPILOT_FEED_ADDR")),
		ControlSocket:    env.str("DESKPILOT_CONTROL_SOCKET", "/tmp/deskpilot.sock"),
	}

	if env.err != nil {
		return Settings{}, env.err
	}
	if err := s.Validate(); err != nil {
		return Settings{}, err
	}
	if err := os.MkdirAll(s.ScreenshotDir, 0o755); err != nil {
		return Settings{}, errs.Wrap(errs.Configuration, "failed to create screenshot directory", err)
	}
	return s, nil
}

// Validate checks every bounded numeric field against its documented range.
func (s Settings) Validate() error {
	checks := []struct {
		ok  bool
		msg string
	}{
		{s.ScreenshotInterval >= 100*time.Millisecond && s.ScreenshotInterval <= 60*time.Second,
			fmt.Sprintf("screenshot interval %s out of range [100ms, 60s]", s.ScreenshotInterval)},
		{s.OCRConfidenceThreshold >= 0 && s.OCRConfidenceThreshold <= 100,
			fmt.Sprintf("ocr confidence threshold %.1f out of range [0, 100]", s.OCRConfidenceThreshold)},
		{s.VoiceTimeout >= time.Second && s.VoiceTimeout <= 30*time.Second,
			fmt.Sprintf("voice timeout %s out of range [1s, 30s]", s.VoiceTimeout)},
		{s.VoicePhraseTimeLimit >= time.Second && s.VoicePhraseTimeLimit <= 60*time.Second,
			fmt.Sprintf("voice phrase time limit %s out of range [1s, 60s]", s.VoicePhraseTimeLimit)},
		{s.VoiceEnergyThreshold >= 100 && s.VoiceEnergyThreshold <= 4000,
			fmt.Sprintf("voice energy threshold %d out of range [100, 4000]", s.VoiceEnergyThreshold)},
		{s.ActionTimeout >= time.Second && s.ActionTimeout <= 300*time.Second,
			fmt.Sprintf("action timeout %s out of range [1s, 300s]", s.ActionTimeout)},
	}
	for _, c := range checks {
		if !c.ok {
			return errs.New(errs.Configuration, c.msg)
		}
	}
	return nil
}

// envParser reads DESKPILOT_* variables with defaults and remembers the
// first unparseable value. Malformed input is a configuration error, not a
// silent fallback.
type envParser struct {
	err error
}

func (p *envParser) fail(key, value string) {
	if p.err == nil {
		p.err = errs.New(errs.Configuration, fmt.Sprintf("invalid value %q for %s", value, key))
	}
}

func (p *envParser) str(key, fallback string) string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	return value
}

func (p *envParser) integer(key string, fallback int) int {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		p.fail(key, value)
		return fallback
	}
	return parsed
}

func (p *envParser) float(key string, fallback float64) float64 {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		p.fail(key, value)
		return fallback
	}
	return parsed
}

// seconds reads a duration expressed as seconds, e.g. "2.5".
func (p *envParser) seconds(key string, fallback float64) time.Duration {
	return time.Duration(p.float(key, fallback) * float64(time.Second))
}

func (p *envParser) boolean(key string, fallback bool) bool {
	value := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	switch value {
	case "":
		return fallback
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		p.fail(key, value)
		return fallback
	}
}
