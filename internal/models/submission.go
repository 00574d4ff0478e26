package models

import (
	"strings"
	"time"
)

// RedactedCodePlaceholder replaces submission source once the retention window
// for raw code has passed.
const RedactedCodePlaceholder = "[code removed after retention period]"

// CheatMarkers are scanned, lowercased, against staff feedback to derive the
// cheat flag. Kept as an explicit table so the markers are enumerable.
var CheatMarkers = []string{"cheat", "plagiar", "copied"}

// Submission is the persisted outcome of one evaluation run. The pipeline
// creates it exactly once, later changes only happen through staff review.
type Submission struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	TaskID       uint      `gorm:"index;not null" json:"task_id"`
	StudentID    uint      `gorm:"index;not null" json:"student_id"`
	Code         string    `gorm:"type:text" json:"code"`
	Passed       bool      `gorm:"not null" json:"passed"`
	Output       string    `gorm:"type:text" json:"output"`
	SubmittedAt  time.Time `gorm:"index;not null" json:"submitted_at"`
	Approved     bool      `gorm:"not null;default:false" json:"approved"`
	BonusAwarded int64     `gorm:"not null;default:0" json:"bonus_awarded"`
	Feedback     string    `gorm:"type:text" json:"feedback"`
	CheatFlagged bool      `gorm:"not null;default:false" json:"cheat_flagged"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
	Task         Task      `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"task"`
	Student      Student   `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"student"`
}

// DeriveCheatFlag reports whether the given feedback text carries one of the
// cheat markers.
func DeriveCheatFlag(feedback string) bool {
	lowered := strings.ToLower(feedback)
	for _, marker := range CheatMarkers {
		if strings.Contains(lowered, marker) {
			return true
		}
	}
	return false
}
