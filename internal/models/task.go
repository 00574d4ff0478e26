package models

import "time"

// Supported task languages. Anything else falls back to the Python runner.
const (
	TaskLanguagePython = "python"
	TaskLanguageGo     = "go"
)

// Topic groups related practice tasks.
type Topic struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"size:255;uniqueIndex;not null" json:"name"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Task represents an instructor-authored exercise: a prompt plus the test code
// a submission is executed against. Tasks are immutable once created.
type Task struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	TopicID     uint      `gorm:"index;not null" json:"topic_id"`
	Title       string    `gorm:"size:255;not null" json:"title"`
	Description string    `gorm:"type:text" json:"description"`
	TestCode    string    `gorm:"type:text;not null" json:"test_code"`
	Language    string    `gorm:"size:32;not null;default:python" json:"language"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
	Topic       Topic     `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"topic"`
}

// RunnerLanguage returns the language the runner should dispatch on.
func (t Task) RunnerLanguage() string {
	if t.Language == TaskLanguageGo {
		return TaskLanguageGo
	}
	return TaskLanguagePython
}
