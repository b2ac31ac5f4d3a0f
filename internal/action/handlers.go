package action

import (
	"fmt"
	"net/url"
	"strings"
)

const searchBase = "https://www.google.com/search?q="

// openCommands maps known application names to their launch commands.
var openCommands = map[string][]string{
	"browser":    {"xdg-open", "https://www.google.com"},
	"calculator": {"gnome-calculator"},
	"terminal":   {"gnome-terminal"},
	"files":      {"nautilus"},
	"settings":   {"gnome-control-center"},
}

func (e *Executor) open(target string, _ map[string]any) (Result, error) {
	e.log.Debug("opening", "target", target)

	argv, ok := openCommands[strings.ToLower(target)]
	if !ok {
		return Result{
			Status:  StatusPartial,
			Message: fmt.Sprintf("Open action for %q not fully implemented", target),
		}, nil
	}

	if err := e.spawner.Spawn(argv[0], argv[1:]...); err != nil {
		return Result{
			Status:  StatusError,
			Message: fmt.Sprintf("Failed to open %s: %v", target, err),
		}, nil
	}
	return Result{Status: StatusSuccess, Message: "Opened " + target}, nil
}

func (e *Executor) search(target string, _ map[string]any) (Result, error) {
	e.log.Debug("searching", "target", target)

	if target == "" {
		return Result{Status: StatusError, Message: "No search query provided"}, nil
	}

	if err := e.spawner.Spawn("xdg-open", searchBase+url.QueryEscape(target)); err != nil {
		return Result{
			Status:  StatusError,
			Message: fmt.Sprintf("Failed to search: %v", err),
		}, nil
	}
	return Result{Status: StatusSuccess, Message: fmt.Sprintf("Searching for %q", target)}, nil
}

// stub covers the verbs the executor accepts but does not yet act on. They
// answer partial, never error: the command was understood, no effect is
// guaranteed.
func (e *Executor) stub(display string) handlerFunc {
	return func(target string, _ map[string]any) (Result, error) {
		e.log.Debug("stub action", "action", display, "target", target)
		return Result{
			Status:  StatusPartial,
			Message: fmt.Sprintf("%s action for %q not fully implemented", display, target),
		}, nil
	}
}

func (e *Executor) unknown(target string, _ map[string]any) (Result, error) {
	e.log.Warn("unknown action requested", "target", target)
	return Result{Status: StatusError, Message: "Unknown action"}, nil
}
