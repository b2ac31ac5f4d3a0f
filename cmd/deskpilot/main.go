package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/lmittmann/tint"
	"github.com/spf13/cobra"

	log "log/slog"

	openai "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	"deskpilot/internal/action"
	"deskpilot/internal/app"
	"deskpilot/internal/config"
	"deskpilot/internal/desktop"
	"deskpilot/internal/feed"
	"deskpilot/internal/ipc"
	"deskpilot/internal/planner"
	"deskpilot/internal/proxy"
	"deskpilot/internal/screen"
	"deskpilot/internal/stt"
	"deskpilot/internal/tts"
	"deskpilot/internal/voice"
)

var logLevelMap = map[string]log.Level{
	"debug": log.LevelDebug,
	"info":  log.LevelInfo,
	"warn":  log.LevelWarn,
	"error": log.LevelError,
}

var (
	envFile  string
	logLevel string
)

func main() {
	root := &cobra.Command{
		Use:   "deskpilot",
		Short: "Voice-driven desktop assistant",
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			godotenv.Load(envFile)
			level, ok := logLevelMap[logLevel]
			if !ok {
				level = log.LevelInfo
			}
			log.SetDefault(log.New(tint.NewHandler(os.Stdout, &tint.Options{
				Level: level,
			})))
		},
	}
	root.PersistentFlags().StringVarP(&envFile, "env", "e", ".env", "Env file path")
	root.PersistentFlags().StringVarP(&logLevel, "log", "l", "info", "Log level (debug|info|warn|error)")

	root.AddCommand(infoCmd(), screenCmd(), voiceCmd(), micsCmd(), runCmd())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func loadSettings() (config.Settings, error) {
	cfg, err := config.Load()
	if err != nil {
		return config.Settings{}, fmt.Errorf("load settings: %w", err)
	}
	return cfg, nil
}

func infoCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "info",
		Short: "Print the effective settings",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadSettings()
			if err != nil {
				return err
			}
			fmt.Printf("screenshot dir:       %s\n", cfg.ScreenshotDir)
			fmt.Printf("screenshot interval:  %s\n", cfg.ScreenshotInterval)
			fmt.Printf("ocr language:         %s\n", cfg.OCRLanguage)
			fmt.Printf("ocr confidence:       %.1f\n", cfg.OCRConfidenceThreshold)
			fmt.Printf("voice language:       %s\n", cfg.VoiceLanguage)
			fmt.Printf("voice timeout:        %s\n", cfg.VoiceTimeout)
			fmt.Printf("phrase time limit:    %s\n", cfg.VoicePhraseTimeLimit)
			fmt.Printf("energy threshold:     %d\n", cfg.VoiceEnergyThreshold)
			fmt.Printf("action timeout:       %s\n", cfg.ActionTimeout)
			fmt.Printf("transcriber:          %s\n", cfg.Transcriber)
			fmt.Printf("control socket:       %s\n", cfg.ControlSocket)
			return nil
		},
	}
}

func screenCmd() *cobra.Command {
	var (
		save     bool
		findText string
		watch    bool
	)
	cmd := &cobra.Command{
		Use:   "screen",
		Short: "Capture the screen, run OCR and print the text",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadSettings()
			if err != nil {
				return err
			}
			reader := screen.NewReader(cfg, screen.Display{}, screen.Tesseract{}, log.Default())

			if watch {
				return watchScreen(cmd.Context(), cfg, reader, save)
			}

			if findText != "" {
				found, err := reader.FindText(findText, false)
				if err != nil {
					return err
				}
				if found {
					fmt.Printf("%q is visible on screen\n", findText)
				} else {
					fmt.Printf("%q not found\n", findText)
				}
				return nil
			}

			text, err := reader.CaptureAndRead(save)
			if err != nil {
				return err
			}
			if save {
				fmt.Printf("saved %s\n", reader.LastScreenshot())
			}
			fmt.Println(text)
			return nil
		},
	}
	cmd.Flags().BoolVar(&save, "save", false, "Save the screenshot to the screenshot dir")
	cmd.Flags().StringVar(&findText, "find", "", "Check whether the text is visible instead of dumping it")
	cmd.Flags().BoolVar(&watch, "watch", false, "Re-read the screen at the configured interval, printing changes")
	return cmd
}

// watchScreen re-reads the screen at the configured interval and prints
// the text whenever it changes. Runs until interrupted.
func watchScreen(ctx context.Context, cfg config.Settings, reader *screen.Reader, save bool) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	ticker := time.NewTicker(cfg.ScreenshotInterval)
	defer ticker.Stop()

	var last string
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}

		text, err := reader.CaptureAndRead(save)
		if err != nil {
			log.Warn("screen read failed", "err", err)
			continue
		}
		if text == last {
			continue
		}
		last = text
		fmt.Printf("--- %s ---\n%s\n", time.Now().Format("15:04:05"), text)
	}
}

func voiceCmd() *cobra.Command {
	var device int
	cmd := &cobra.Command{
		Use:   "voice",
		Short: "Listen for one utterance, parse it and print the command",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadSettings()
			if err != nil {
				return err
			}

			transcriber, cleanup, err := buildTranscriber(cfg)
			if err != nil {
				return err
			}
			defer cleanup()

			rec := voice.NewRecognizer(cfg, transcriber, log.Default())
			defer rec.Close()

			ctx := cmd.Context()
			if err := rec.InitMicrophone(ctx, device); err != nil {
				return err
			}

			fmt.Println("listening...")
			text, err := rec.Listen(ctx, voice.ListenOptions{})
			if err != nil {
				return err
			}

			parsed := voice.ParseCommand(text)
			fmt.Printf("heard:  %q\n", text)
			fmt.Printf("action: %s\n", parsed.Action)
			fmt.Printf("target: %s\n", parsed.Target)
			return nil
		},
	}
	cmd.Flags().IntVar(&device, "device", voice.DefaultDevice, "Input device index (see `deskpilot mics`)")
	return cmd
}

func micsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "mics",
		Short: "List available input devices",
		RunE: func(cmd *cobra.Command, args []string) error {
			mics, err := voice.Microphones()
			if err != nil {
				return err
			}
			indexes := make([]int, 0, len(mics))
			for i := range mics {
				indexes = append(indexes, i)
			}
			sort.Ints(indexes)
			for _, i := range indexes {
				fmt.Printf("%3d  %s\n", i, mics[i])
			}
			return nil
		},
	}
}

func runCmd() *cobra.Command {
	var device int
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the assistant until the stop phrase or a signal",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadSettings()
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			assistant, cleanup, err := buildAssistant(cfg)
			if err != nil {
				return err
			}
			defer cleanup()

			if err := assistant.Voice.InitMicrophone(ctx, device); err != nil {
				return err
			}

			srv, err := ipc.StartServer(cfg.ControlSocket, func(msg ipc.ControlMessage) ipc.Reply {
				switch msg.Cmd {
				case "trigger":
					if assistant.Listening() {
						return ipc.Reply{OK: false, Message: "already listening"}
					}
					go func() {
						err := assistant.HandleOnce(ctx)
						if err != nil && !errors.Is(err, app.ErrBusy) {
							log.Warn("triggered listen failed", "err", err)
						}
					}()
					return ipc.Reply{OK: true, Message: "listening"}
				case "stop":
					stop()
					return ipc.Reply{OK: true, Message: "stopping"}
				case "status":
					return ipc.Reply{OK: true, Message: assistant.Status()}
				case "clear-history":
					assistant.ClearHistory()
					return ipc.Reply{OK: true, Message: "history cleared"}
				default:
					return ipc.Reply{OK: false, Message: "unknown command: " + msg.Cmd}
				}
			})
			if err != nil {
				return err
			}
			defer srv.Close()

			log.Info("assistant running", "stop_phrase", voice.DefaultStopPhrase)
			return assistant.Run(ctx)
		},
	}
	cmd.Flags().IntVar(&device, "device", voice.DefaultDevice, "Input device index")
	return cmd
}

// buildTranscriber picks the speech backend: local whisper.cpp or the
// OpenAI transcription API.
func buildTranscriber(cfg config.Settings) (voice.Transcriber, func(), error) {
	switch cfg.Transcriber {
	case "whisper":
		w, err := stt.NewWhisper(cfg.WhisperModelPath)
		if err != nil {
			return nil, nil, fmt.Errorf("load whisper model: %w", err)
		}
		return w, func() { w.Close() }, nil
	case "openai":
		client, err := newAPIClient(cfg)
		if err != nil {
			return nil, nil, err
		}
		return stt.NewOpenAI(client, cfg.SpeechModel), func() {}, nil
	default:
		return nil, nil, fmt.Errorf("unknown transcriber %q", cfg.Transcriber)
	}
}

func newAPIClient(cfg config.Settings) (openai.Client, error) {
	apiKey := os.Getenv("OPENAI_API_KEY")
	if apiKey == "" {
		return openai.Client{}, fmt.Errorf("OPENAI_API_KEY not set")
	}

	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if cfg.SocksProxy != "" {
		httpClient, err := proxy.NewSocksClient(cfg.SocksProxy, cfg.ActionTimeout*4)
		if err != nil {
			return openai.Client{}, fmt.Errorf("dial socks proxy %s: %w", cfg.SocksProxy, err)
		}
		opts = append(opts, option.WithHTTPClient(httpClient))
	}
	return openai.NewClient(opts...), nil
}

func buildAssistant(cfg config.Settings) (*app.Assistant, func(), error) {
	logger := log.Default()

	transcriber, cleanup, err := buildTranscriber(cfg)
	if err != nil {
		return nil, nil, err
	}

	reader := screen.NewReader(cfg, screen.Display{}, screen.Tesseract{}, logger)
	rec := voice.NewRecognizer(cfg, transcriber, logger)
	exec := action.NewExecutor(action.ExecSpawner{}, logger)

	assistant := app.New(cfg, reader, rec, exec, logger)
	assistant.Input = desktop.Robot{}

	closers := []func(){cleanup, func() { rec.Close() }}

	// Planner and speech synthesis need the API even when transcription
	// runs locally.
	client, err := newAPIClient(cfg)
	if err != nil {
		log.Warn("planner and tts disabled", "err", err)
	} else {
		assistant.Planner = planner.New(client, cfg.PlannerModel, logger)
		assistant.Speaker = tts.NewOpenAI(client, cfg.TTSModel, cfg.TTSVoice)
	}

	if cfg.FeedAddr != "" {
		hub := feed.Start(cfg.FeedAddr, logger)
		assistant.Hub = hub
		closers = append(closers, func() { hub.Close() })
	}

	cleanupAll := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}
	return assistant, cleanupAll, nil
}
