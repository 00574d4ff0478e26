package service

import (
	"context"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/noah-isme/dojo-go-api/internal/dto"
	"github.com/noah-isme/dojo-go-api/internal/models"
	"github.com/noah-isme/dojo-go-api/internal/repository"
)

// TopicPrefixTable maps task-title prefixes to the topic auto-created for
// them when staff author a task without naming a topic explicitly. An
// explicit configuration table, not literals scattered across handlers.
type TopicPrefixTable map[string]string

// DefaultTopicPrefixes is the stock prefix table.
var DefaultTopicPrefixes = TopicPrefixTable{
	"py-":   "Python Basics",
	"go-":   "Go Basics",
	"algo-": "Algorithms",
	"ds-":   "Data Structures",
}

// fallbackTopicName receives tasks no prefix rule matches.
const fallbackTopicName = "General"

// TaskService exposes the read-only catalog plus staff authoring.
type TaskService interface {
	Get(ctx context.Context, id uint, role string) (dto.TaskResponse, error)
	List(ctx context.Context, topicID uint, role string) ([]dto.TaskResponse, error)
	Topics(ctx context.Context) ([]dto.TopicResponse, error)
	Create(ctx context.Context, payload dto.TaskCreateRequest, role string) (dto.TaskResponse, error)
}

type taskService struct {
	tasks     repository.TaskRepository
	validator *validator.Validate
	prefixes  TopicPrefixTable
	logger    zerolog.Logger
}

// NewTaskService constructs the task catalog service.
func NewTaskService(tasks repository.TaskRepository, validate *validator.Validate, prefixes TopicPrefixTable, logger zerolog.Logger) TaskService {
	if prefixes == nil {
		prefixes = DefaultTopicPrefixes
	}

	return &taskService{
		tasks:     tasks,
		validator: validate,
		prefixes:  prefixes,
		logger:    logger.With().Str("component", "task_service").Logger(),
	}
}

func (s *taskService) Get(ctx context.Context, id uint, role string) (dto.TaskResponse, error) {
	task, err := s.tasks.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.TaskResponse{}, ErrTaskNotFound
		}
		return dto.TaskResponse{}, err
	}
	return dto.NewTaskResponse(task, isStaffRole(role)), nil
}

func (s *taskService) List(ctx context.Context, topicID uint, role string) ([]dto.TaskResponse, error) {
	tasks, err := s.tasks.ListByTopic(ctx, topicID)
	if err != nil {
		return nil, err
	}
	return dto.NewTaskResponseSlice(tasks, isStaffRole(role)), nil
}

func (s *taskService) Topics(ctx context.Context) ([]dto.TopicResponse, error) {
	topics, err := s.tasks.ListTopics(ctx)
	if err != nil {
		return nil, err
	}
	return dto.NewTopicResponseSlice(topics), nil
}

func (s *taskService) Create(ctx context.Context, payload dto.TaskCreateRequest, role string) (dto.TaskResponse, error) {
	if !isStaffRole(role) {
		return dto.TaskResponse{}, ErrSubmissionForbidden
	}
	if err := s.validator.Struct(payload); err != nil {
		return dto.TaskResponse{}, err
	}

	topicName := strings.TrimSpace(payload.Topic)
	if topicName == "" {
		topicName = s.topicForTitle(payload.Title)
	}

	topic, err := s.resolveTopic(ctx, topicName)
	if err != nil {
		return dto.TaskResponse{}, err
	}

	task := models.Task{
		TopicID:     topic.ID,
		Title:       payload.Title,
		Description: payload.Description,
		TestCode:    payload.TestCode,
		Language:    strings.ToLower(payload.Language),
	}
	if err := s.tasks.Create(ctx, &task); err != nil {
		return dto.TaskResponse{}, err
	}
	task.Topic = topic

	return dto.NewTaskResponse(task, true), nil
}

// topicForTitle consults the prefix table; unmatched titles land in the
// fallback topic.
func (s *taskService) topicForTitle(title string) string {
	lowered := strings.ToLower(title)
	for prefix, topic := range s.prefixes {
		if strings.HasPrefix(lowered, prefix) {
			return topic
		}
	}
	return fallbackTopicName
}

func (s *taskService) resolveTopic(ctx context.Context, name string) (models.Topic, error) {
	topic, err := s.tasks.GetTopicByName(ctx, name)
	if err == nil {
		return topic, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return models.Topic{}, err
	}

	topic = models.Topic{Name: name}
	if err := s.tasks.CreateTopic(ctx, &topic); err != nil {
		return models.Topic{}, err
	}
	s.logger.Info().Str("topic", name).Msg("auto-created topic")
	return topic, nil
}
