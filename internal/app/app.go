package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"deskpilot/internal/action"
	"deskpilot/internal/config"
	"deskpilot/internal/desktop"
	"deskpilot/internal/feed"
	"deskpilot/internal/notify"
	"deskpilot/internal/planner"
	"deskpilot/internal/screen"
	"deskpilot/internal/tts"
	"deskpilot/internal/voice"
)

// ErrBusy rejects a listen request while another listen owns the
// microphone.
var ErrBusy = errors.New("listening already in progress")

// Assistant ties the pipeline together: listen, parse, dispatch, report.
// Planner, Speaker, Input and Hub are optional; with them absent the
// assistant degrades to rule-based dispatch with log-only feedback.
type Assistant struct {
	cfg config.Settings

	Reader   *screen.Reader
	Voice    *voice.Recognizer
	Executor *action.Executor
	Planner  *planner.Planner
	Speaker  tts.Synthesizer
	Input    desktop.Input
	Hub      *feed.Hub

	log *slog.Logger

	// mu serializes dispatch; listening claims the recognizer for one
	// listen+handle path at a time. The recognizer is not safe for two
	// concurrent listens on one microphone.
	mu        sync.Mutex
	listening atomic.Bool
}

func New(cfg config.Settings, reader *screen.Reader, rec *voice.Recognizer, exec *action.Executor, log *slog.Logger) *Assistant {
	return &Assistant{
		cfg:      cfg,
		Reader:   reader,
		Voice:    rec,
		Executor: exec,
		log:      log,
	}
}

// Run listens for commands until the stop phrase is heard or the context
// is cancelled. Every recognized utterance goes through Handle. Returns
// ErrBusy if another listen already owns the recognizer.
func (a *Assistant) Run(ctx context.Context) error {
	if !a.listening.CompareAndSwap(false, true) {
		return ErrBusy
	}
	defer a.listening.Store(false)

	return a.Voice.ListenContinuously(ctx, func(text string) {
		a.Handle(ctx, text)
	}, voice.DefaultStopPhrase)
}

// HandleOnce plays an audible cue, captures a single utterance and handles
// it. Used for socket-triggered activation. Returns ErrBusy while the
// continuous loop or another triggered listen holds the recognizer.
func (a *Assistant) HandleOnce(ctx context.Context) error {
	if !a.listening.CompareAndSwap(false, true) {
		return ErrBusy
	}
	defer a.listening.Store(false)

	if err := notify.Cue(); err != nil {
		a.log.Debug("cue playback failed", "err", err)
	}

	text, err := a.Voice.Listen(ctx, voice.ListenOptions{})
	if err != nil {
		return err
	}
	a.Handle(ctx, text)
	return nil
}

// Listening reports whether a listen currently owns the recognizer.
func (a *Assistant) Listening() bool {
	return a.listening.Load()
}

// Handle runs one utterance through parse and dispatch. Commands are
// serialized: a second utterance waits for the first to finish.
func (a *Assistant) Handle(ctx context.Context, text string) {
	a.mu.Lock()
	defer a.mu.Unlock()

	cmd := voice.ParseCommand(text)
	a.log.Info("command recognized", "action", cmd.Action, "target", cmd.Target)
	a.publish(feed.Event{Kind: feed.KindCommand, Text: text, Action: cmd.Action, Target: cmd.Target})

	if cmd.Action == voice.ActionUnknown && a.Planner != nil && a.Input != nil {
		if err := a.handlePlanned(ctx, text); err != nil {
			a.log.Error("planned execution failed", "err", err)
			a.publish(feed.Event{Kind: feed.KindError, Text: text, Message: err.Error()})
			a.speak(ctx, "Sorry, I could not do that")
		}
		return
	}

	result, err := a.Executor.Execute(cmd.Action, cmd.Target, cmd.Params)
	if err != nil {
		a.log.Error("action failed", "action", cmd.Action, "err", err)
		a.publish(feed.Event{Kind: feed.KindError, Action: cmd.Action, Target: cmd.Target, Message: err.Error()})
		a.speak(ctx, "Sorry, that action failed")
		return
	}

	a.log.Info("action finished", "action", cmd.Action, "status", result.Status, "message", result.Message)
	a.publish(feed.Event{
		Kind:    feed.KindResult,
		Action:  cmd.Action,
		Target:  cmd.Target,
		Status:  string(result.Status),
		Message: result.Message,
	})
	if result.Status == action.StatusSuccess {
		a.speak(ctx, result.Message)
	}
}

// handlePlanned asks the planner for an input-step sequence grounded in
// the text currently on screen and replays it through the input boundary.
func (a *Assistant) handlePlanned(ctx context.Context, text string) error {
	ctx, cancel := context.WithTimeout(ctx, a.cfg.ActionTimeout)
	defer cancel()

	elements, err := a.Reader.ExtractTextWithConfidence(nil)
	if err != nil {
		return fmt.Errorf("read screen: %w", err)
	}

	steps, err := a.Planner.Plan(ctx, text, elements)
	if err != nil {
		return fmt.Errorf("plan: %w", err)
	}
	if len(steps) == 0 {
		a.log.Info("planner produced no steps", "text", text)
		a.speak(ctx, "I don't know how to do that")
		return nil
	}

	a.speak(ctx, fmt.Sprintf("Planned sequence of %d actions", len(steps)))
	if err := desktop.RunSequence(a.Input, steps, a.log); err != nil {
		return fmt.Errorf("run sequence: %w", err)
	}

	a.publish(feed.Event{Kind: feed.KindResult, Text: text, Status: string(action.StatusSuccess),
		Message: fmt.Sprintf("executed %d planned steps", len(steps))})
	return nil
}

// ClearHistory empties the action history, waiting out any in-flight
// command first.
func (a *Assistant) ClearHistory() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.Executor.ClearHistory()
}

// Status reports a one-line summary for the control socket.
func (a *Assistant) Status() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return fmt.Sprintf("running, %d actions in history", len(a.Executor.History(0)))
}

func (a *Assistant) publish(ev feed.Event) {
	if a.Hub != nil {
		a.Hub.Publish(ev)
	}
}

// speak is best effort: synthesis or playback failure is logged, never
// propagated into the command result.
func (a *Assistant) speak(ctx context.Context, text string) {
	if a.Speaker == nil || text == "" {
		return
	}

	audio, err := a.Speaker.Synthesize(ctx, text)
	if err != nil {
		a.log.Debug("tts synthesis failed", "err", err)
		return
	}
	if err := notify.PlayMP3(audio); err != nil {
		a.log.Debug("tts playback failed", "err", err)
	}
}
