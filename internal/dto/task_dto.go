package dto

import (
	"time"

	"github.com/noah-isme/dojo-go-api/internal/models"
)

// TaskCreateRequest is the staff payload for authoring a task.
type TaskCreateRequest struct {
	Title       string `json:"title" validate:"required,min=3,max=255"`
	Description string `json:"description" validate:"omitempty,max=10000"`
	TestCode    string `json:"test_code" validate:"required,min=1"`
	Language    string `json:"language" validate:"required,oneof=python go"`
	Topic       string `json:"topic" validate:"omitempty,min=2,max=255"`
}

// TaskResponse represents a catalog task to API consumers. Test code is only
// included for staff viewers.
type TaskResponse struct {
	ID          uint      `json:"id"`
	TopicID     uint      `json:"topic_id"`
	Topic       string    `json:"topic,omitempty"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Language    string    `json:"language"`
	TestCode    string    `json:"test_code,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// TopicResponse represents a topic grouping.
type TopicResponse struct {
	ID   uint   `json:"id"`
	Name string `json:"name"`
}

// NewTaskResponse builds a response DTO from a model.
func NewTaskResponse(task models.Task, includeTests bool) TaskResponse {
	response := TaskResponse{
		ID:          task.ID,
		TopicID:     task.TopicID,
		Topic:       task.Topic.Name,
		Title:       task.Title,
		Description: task.Description,
		Language:    task.Language,
		CreatedAt:   task.CreatedAt,
	}
	if includeTests {
		response.TestCode = task.TestCode
	}
	return response
}

// NewTaskResponseSlice converts a slice of models into DTOs.
func NewTaskResponseSlice(tasks []models.Task, includeTests bool) []TaskResponse {
	out := make([]TaskResponse, 0, len(tasks))
	for _, task := range tasks {
		out = append(out, NewTaskResponse(task, includeTests))
	}
	return out
}

// NewTopicResponse converts a topic model into a DTO.
func NewTopicResponse(topic models.Topic) TopicResponse {
	return TopicResponse{ID: topic.ID, Name: topic.Name}
}

// NewTopicResponseSlice converts a slice of topics into DTOs.
func NewTopicResponseSlice(topics []models.Topic) []TopicResponse {
	out := make([]TopicResponse, 0, len(topics))
	for _, topic := range topics {
		out = append(out, NewTopicResponse(topic))
	}
	return out
}
