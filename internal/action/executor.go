package action

import (
	"log/slog"
	"os/exec"
	"strings"
	"time"

	"deskpilot/internal/errs"
)

// Status is the tri-state outcome of one dispatched action. Partial means
// "accepted but no effect guaranteed" and is distinct from an error.
type Status string

const (
	StatusSuccess Status = "success"
	StatusPartial Status = "partial"
	StatusError   Status = "error"
)

// Result is produced once per dispatched command and never mutated.
type Result struct {
	Status  Status
	Message string
}

// HistoryEntry records one execution: the original (pre-fold) action and
// target, the handler's result, and when it ran.
type HistoryEntry struct {
	Action    string
	Target    string
	Params    map[string]any
	Result    Result
	Timestamp time.Time
}

// Name is a recognized action verb. The dispatch table is keyed on the
// closed set below; anything else falls through to the unknown handler.
type Name string

const (
	Open   Name = "open"
	Close  Name = "close"
	Click  Name = "click"
	Type   Name = "type"
	Scroll Name = "scroll"
	Search Name = "search"
	Find   Name = "find"
)

type handlerFunc func(target string, params map[string]any) (Result, error)

// Spawner is the process-spawn boundary: fire-and-forget launch of a named
// external command. No exit status is observed.
type Spawner interface {
	Spawn(name string, args ...string) error
}

// ExecSpawner launches real processes, detached.
type ExecSpawner struct{}

func (ExecSpawner) Spawn(name string, args ...string) error {
	cmd := exec.Command(name, args...)
	if err := cmd.Start(); err != nil {
		return err
	}
	return cmd.Process.Release()
}

// Executor dispatches structured commands to action handlers and keeps an
// append-only, in-process history of every completed dispatch. Not safe for
// concurrent use; callers serialize.
type Executor struct {
	spawner  Spawner
	handlers map[Name]handlerFunc
	history  []HistoryEntry
	log      *slog.Logger
}

func NewExecutor(spawner Spawner, log *slog.Logger) *Executor {
	e := &Executor{spawner: spawner, log: log}
	e.handlers = map[Name]handlerFunc{
		Open:   e.open,
		Close:  e.stub("Close"),
		Click:  e.stub("Click"),
		Type:   e.stub("Type"),
		Scroll: e.stub("Scroll"),
		Search: e.search,
		Find:   e.stub("Find"),
	}
	return e
}

// Execute case-folds the action, dispatches it, and records the outcome.
// A handler that returns an error (infrastructure failure, not a structured
// result) is re-raised as an ActionExecution error and leaves no history
// entry.
func (e *Executor) Execute(action, target string, params map[string]any) (Result, error) {
	if params == nil {
		params = map[string]any{}
	}
	e.log.Info("executing action", "action", action, "target", target)

	handler, ok := e.handlers[Name(strings.ToLower(action))]
	if !ok {
		handler = e.unknown
	}

	result, err := handler(target, params)
	if err != nil {
		e.log.Error("action handler failed", "action", action, "err", err)
		return Result{}, errs.Wrap(errs.ActionExecution, "failed to execute action: "+action, err)
	}

	e.history = append(e.history, HistoryEntry{
		Action:    action,
		Target:    target,
		Params:    params,
		Result:    result,
		Timestamp: time.Now(),
	})
	return result, nil
}

// History returns the most recent limit entries in insertion order, oldest
// of the window first. A limit at or beyond the history length (or zero)
// returns everything.
func (e *Executor) History(limit int) []HistoryEntry {
	if limit <= 0 || limit > len(e.history) {
		limit = len(e.history)
	}
	out := make([]HistoryEntry, limit)
	copy(out, e.history[len(e.history)-limit:])
	return out
}

// ClearHistory empties the history unconditionally.
func (e *Executor) ClearHistory() {
	e.history = nil
	e.log.Info("action history cleared")
}
