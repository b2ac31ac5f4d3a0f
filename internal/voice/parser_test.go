package voice

import "testing"

func TestParseCommand(t *testing.T) {
	cases := []struct {
		name   string
		input  string
		action string
		target string
	}{
		{"simple verb", "open browser", "open", "browser"},
		{"case folded", "OPEN Calculator", "open", "calculator"},
		{"no verb", "hello world", "unknown", "hello world"},
		{"surrounding whitespace", "  search rust web framework ", "search", "rust web framework"},
		{"verb only", "click", "click", ""},
		{"first verb wins on ambiguity", "open search bar", "open", "search bar"},
		{"later verb in list", "find the save button", "find", "the save button"},
		{"empty input", "", "unknown", ""},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cmd := ParseCommand(tc.input)
			if cmd.Action != tc.action {
				t.Fatalf("action: expected %q, got %q", tc.action, cmd.Action)
			}
			if cmd.Target != tc.target {
				t.Fatalf("target: expected %q, got %q", tc.target, cmd.Target)
			}
			if cmd.Params == nil || len(cmd.Params) != 0 {
				t.Fatalf("params must be an empty map, got %v", cmd.Params)
			}
		})
	}
}

func TestParseCommandKeepsFoldedRaw(t *testing.T) {
	cmd := ParseCommand("  TYPE Hello World  ")
	if cmd.Raw != "type hello world" {
		t.Fatalf("unexpected raw: %q", cmd.Raw)
	}
	if cmd.Action != "type" || cmd.Target != "hello world" {
		t.Fatalf("unexpected parse: %+v", cmd)
	}
}
