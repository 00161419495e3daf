package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

// Prompter asks the human a question and blocks until a reply arrives.
// The console gateway implements it; tests inject canned answers.
type Prompter interface {
	Prompt(ctx context.Context, question string) (string, error)
}

// AskUserTool pauses the loop to get clarification, confirmation, or input
// that was not in the original request.
type AskUserTool struct {
	Prompter Prompter
}

func NewAskUserTool(p Prompter) *AskUserTool {
	return &AskUserTool{Prompter: p}
}

func (a *AskUserTool) Name() string {
	return "ask_user"
}

func (a *AskUserTool) Description() string {
	return "Ask the human user a question to get clarification, confirmation (e.g., before destructive operations), or missing input. Use sparingly."
}

func (a *AskUserTool) Parameters() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"question": map[string]any{
				"type":        "string",
				"description": "The question to ask the user",
			},
		},
		"required": []string{"question"},
	}
}

func (a *AskUserTool) Execute(ctx context.Context, input string) (string, error) {
	var args struct {
		Question string `json:"question"`
	}
	if err := json.Unmarshal([]byte(input), &args); err != nil {
		return "", fmt.Errorf("invalid input: %v", err)
	}
	if strings.TrimSpace(args.Question) == "" {
		return "Error: 'question' is required", nil
	}

	answer, err := a.Prompter.Prompt(ctx, args.Question)
	if err != nil {
		return "", fmt.Errorf("could not get user input: %w", err)
	}
	return fmt.Sprintf("User response to %q: %s", args.Question, answer), nil
}
