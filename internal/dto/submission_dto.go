package dto

import (
	"time"

	"github.com/noah-isme/dojo-go-api/internal/models"
)

// SubmissionRequest is the payload for submitting code against a task. The
// raw text may be wrapped in a fenced code block, which the pipeline strips.
type SubmissionRequest struct {
	TaskID uint   `json:"task_id" validate:"required,gt=0"`
	Code   string `json:"code" validate:"required,min=1"`
}

// SubmissionResultResponse is the immediate verdict returned after a run.
type SubmissionResultResponse struct {
	SubmissionID uint   `json:"submission_id,omitempty"`
	Passed       bool   `json:"passed"`
	Output       string `json:"output"`
	Preview      bool   `json:"preview,omitempty"`
	Bonus        int64  `json:"bonus,omitempty"`
	BonusNote    string `json:"bonus_note,omitempty"`
	Streak       int    `json:"streak"`
	ChestDelta   *int64 `json:"chest_delta,omitempty"`
}

// SubmissionResponse represents a stored submission to API consumers.
type SubmissionResponse struct {
	ID           uint      `json:"id"`
	TaskID       uint      `json:"task_id"`
	StudentID    uint      `json:"student_id"`
	Code         string    `json:"code,omitempty"`
	Passed       bool      `json:"passed"`
	Output       string    `json:"output"`
	SubmittedAt  time.Time `json:"submitted_at"`
	Approved     bool      `json:"approved"`
	BonusAwarded int64     `json:"bonus_awarded"`
	Feedback     string    `json:"feedback"`
	CheatFlagged bool      `json:"cheat_flagged"`
}

// NewSubmissionResponse builds a response DTO from a model.
func NewSubmissionResponse(submission models.Submission, includeCode bool) SubmissionResponse {
	response := SubmissionResponse{
		ID:           submission.ID,
		TaskID:       submission.TaskID,
		StudentID:    submission.StudentID,
		Passed:       submission.Passed,
		Output:       submission.Output,
		SubmittedAt:  submission.SubmittedAt,
		Approved:     submission.Approved,
		BonusAwarded: submission.BonusAwarded,
		Feedback:     submission.Feedback,
		CheatFlagged: submission.CheatFlagged,
	}
	if includeCode {
		response.Code = submission.Code
	}
	return response
}

// NewSubmissionResponseSlice converts a slice of models into DTOs.
func NewSubmissionResponseSlice(submissions []models.Submission, includeCode bool) []SubmissionResponse {
	out := make([]SubmissionResponse, 0, len(submissions))
	for _, submission := range submissions {
		out = append(out, NewSubmissionResponse(submission, includeCode))
	}
	return out
}
