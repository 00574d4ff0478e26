package dto

// ReviewRequest is the staff payload for reviewing a submission. Omitted
// fields leave the stored values untouched.
type ReviewRequest struct {
	Approved *bool   `json:"approved"`
	Feedback *string `json:"feedback" validate:"omitempty,max=10000"`
	Bonus    *int64  `json:"bonus"`
}

// FeedbackDraftResponse is an AI-drafted feedback suggestion for staff. It is
// never shown to students directly.
type FeedbackDraftResponse struct {
	SubmissionID uint   `json:"submission_id"`
	Draft        string `json:"draft"`
	Provider     string `json:"provider"`
}
