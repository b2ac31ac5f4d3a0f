package voice

import "strings"

// Command is one structured voice command. Action is never empty: it is a
// recognized verb or ActionUnknown, and Target is the case-folded remainder
// of the utterance.
type Command struct {
	Raw    string
	Action string
	Target string
	Params map[string]any
}

// ActionUnknown marks a command whose text starts with no recognized verb.
const ActionUnknown = "unknown"

// actionVerbs is scanned in this fixed order with prefix matching. The
// ordering is load-bearing: a target that itself begins with a later verb
// ("open search bar") still matches the earlier one.
var actionVerbs = []string{"open", "close", "click", "type", "scroll", "search", "find"}

// ParseCommand maps raw transcribed text onto an action/target pair. Params
// stays empty at this layer; richer extraction belongs to the planner.
func ParseCommand(command string) Command {
	folded := strings.ToLower(strings.TrimSpace(command))

	cmd := Command{
		Raw:    folded,
		Action: ActionUnknown,
		Target: folded,
		Params: map[string]any{},
	}

	for _, verb := range actionVerbs {
		if strings.HasPrefix(folded, verb) {
			cmd.Action = verb
			cmd.Target = strings.TrimSpace(folded[len(verb):])
			break
		}
	}
	return cmd
}

// ParseCommand on the recognizer falls back to the last recognized utterance
// when command is empty.
func (r *Recognizer) ParseCommand(command string) Command {
	if command == "" {
		command = r.lastCommand
	}
	cmd := ParseCommand(command)
	r.log.Debug("parsed command", "action", cmd.Action, "target", cmd.Target)
	return cmd
}
