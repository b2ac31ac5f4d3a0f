package planner

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	openai "github.com/openai/openai-go/v3"

	"deskpilot/internal/desktop"
	"deskpilot/internal/screen"
)

const systemPrompt = `
You are the action planner for a voice-driven desktop assistant.
Your ONLY job is to convert the user's request and the visible screen text
into a minimal sequence of input steps.

GENERAL RULES:
1. Do NOT converse.
2. Do NOT add explanations.
3. Output ONLY a JSON array. No markdown.
4. Never invent coordinates: use only the provided screen elements.

STEP SHAPES (the only allowed forms):
  {"action": "click", "x": <int>, "y": <int>}
  {"action": "type", "text": "<string>"}
  {"action": "press", "key": "<string>"}

COORDINATES:
- Click the center of the matching element: x = left + width/2,
  y = top + height/2.

If the request cannot be satisfied with the visible elements, output [].
Be strict and minimal.
`

// request is what the model sees: the utterance plus the tokens surviving
// the OCR confidence filter.
type request struct {
	Request  string               `json:"request"`
	Elements []screen.TextElement `json:"elements"`
}

// Planner turns commands the rule parser cannot handle into input-step
// sequences, using whatever text is currently visible on screen.
type Planner struct {
	client openai.Client
	model  string
	log    *slog.Logger
}

func New(client openai.Client, model string, log *slog.Logger) *Planner {
	return &Planner{client: client, model: model, log: log}
}

func (p *Planner) Plan(ctx context.Context, userRequest string, elements []screen.TextElement) ([]desktop.Step, error) {
	payload, err := json.Marshal(request{Request: userRequest, Elements: elements})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	resp, err := p.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(systemPrompt),
			openai.UserMessage(string(payload)),
		},
		Model: openai.ChatModel(p.model),
	})
	if err != nil {
		return nil, fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("no choices in response")
	}

	content := resp.Choices[0].Message.Content
	if content == "" {
		return nil, fmt.Errorf("empty message content")
	}
	p.log.Debug("plan received", "raw", content)

	return decodeSteps(content)
}

func decodeSteps(content string) ([]desktop.Step, error) {
	var steps []desktop.Step
	if err := json.Unmarshal([]byte(content), &steps); err != nil {
		return nil, fmt.Errorf("unmarshal plan: %w (raw: %s)", err, content)
	}
	return steps, nil
}
