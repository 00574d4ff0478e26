package ai

import (
	"context"
	"errors"
)

// ErrNotConfigured indicates no AI provider was wired at startup.
var ErrNotConfigured = errors.New("ai assistant not configured")

// DraftInput contains the artefacts a reviewer would read before writing
// feedback on a submission.
type DraftInput struct {
	TaskTitle       string
	TaskDescription string
	Code            string
	Output          string
	Passed          bool
}

// DraftResult is a feedback suggestion for staff. Drafts are never shown to
// students without a human reviewer editing and saving them.
type DraftResult struct {
	Text     string                 `json:"text"`
	Tone     string                 `json:"tone"`
	Raw      map[string]interface{} `json:"raw,omitempty"`
	Provider string                 `json:"provider"`
}

// Assistant describes an AI model capable of drafting review feedback.
type Assistant interface {
	DraftFeedback(ctx context.Context, input DraftInput) (DraftResult, error)
}
