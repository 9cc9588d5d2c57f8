package core

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// AssistContext is what the candidate's workspace knows about the task at hand.
type AssistContext struct {
	ProblemStatement string   `json:"problemStatement,omitempty"`
	ActiveFile       string   `json:"activeFile,omitempty"`
	AvailableFiles   []string `json:"availableFiles,omitempty"`
	CurrentCode      string   `json:"currentCode,omitempty"`
}

// Assistant answers single coding questions from the assessment workspace.
type Assistant struct {
	model   CompletionModel
	timeout time.Duration
}

func NewAssistant(model CompletionModel, timeout time.Duration) *Assistant {
	return &Assistant{model: model, timeout: timeout}
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}

// BuildAssistPrompt renders the workspace context and the candidate's message into one prompt.
func BuildAssistPrompt(message string, actx *AssistContext) string {
	var b strings.Builder
	b.WriteString("You are an AI coding assistant for a technical assessment platform.\n\n")

	if actx != nil {
		files := "Not provided"
		if len(actx.AvailableFiles) > 0 {
			files = strings.Join(actx.AvailableFiles, ", ")
		}
		b.WriteString("Context:\n")
		fmt.Fprintf(&b, "- Problem Statement: %s\n", orDefault(actx.ProblemStatement, "Not provided"))
		fmt.Fprintf(&b, "- Current File: %s\n", orDefault(actx.ActiveFile, "Not specified"))
		fmt.Fprintf(&b, "- Available Files: %s\n", files)
		fmt.Fprintf(&b, "- Current Code: %s\n\n", orDefault(actx.CurrentCode, "Not provided"))
	}

	b.WriteString("Guidelines:\n")
	for _, g := range []string{
		"Give specific, actionable code suggestions",
		"Refer to the problem requirements where they apply",
		"Help debug errors and explain the fix",
		"Stay concise and focused on the assessment task",
		"Include working code examples when asked about implementation details",
	} {
		b.WriteString("- ")
		b.WriteString(g)
		b.WriteString("\n")
	}

	fmt.Fprintf(&b, "\nUser Message: %s", message)
	return b.String()
}

func (a *Assistant) Assist(ctx context.Context, message string, actx *AssistContext) (string, error) {
	if strings.TrimSpace(message) == "" {
		return "", fmt.Errorf("%w: message is required", ErrInvalidInput)
	}

	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	text, err := a.model.Complete(ctx, BuildAssistPrompt(message, actx))
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrUpstreamUnavailable, err)
	}
	return text, nil
}
