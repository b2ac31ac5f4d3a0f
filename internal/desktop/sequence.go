package desktop

import (
	"fmt"
	"log/slog"
)

// Step is one planned input action. The planner emits these as JSON.
type Step struct {
	Action string `json:"action"` // click, type, press
	X      int    `json:"x,omitempty"`
	Y      int    `json:"y,omitempty"`
	Text   string `json:"text,omitempty"`
	Key    string `json:"key,omitempty"`
}

// RunSequence replays steps against the input boundary in order. Steps with
// an unrecognized action are skipped with a warning; a failing injection
// aborts the rest of the sequence.
func RunSequence(in Input, steps []Step, log *slog.Logger) error {
	for i, step := range steps {
		log.Info("executing step", "index", i+1, "total", len(steps), "action", step.Action)

		switch step.Action {
		case "click":
			if err := in.MoveTo(step.X, step.Y); err != nil {
				return fmt.Errorf("step %d: move to (%d,%d): %w", i+1, step.X, step.Y, err)
			}
			if err := in.Click(); err != nil {
				return fmt.Errorf("step %d: click: %w", i+1, err)
			}
		case "type":
			if err := in.TypeText(step.Text); err != nil {
				return fmt.Errorf("step %d: type: %w", i+1, err)
			}
		case "press":
			if err := in.PressKey(step.Key); err != nil {
				return fmt.Errorf("step %d: press %q: %w", i+1, step.Key, err)
			}
		default:
			log.Warn("unknown step action", "action", step.Action)
		}
	}
	return nil
}
