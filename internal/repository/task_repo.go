package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/noah-isme/dojo-go-api/internal/models"
)

// TaskRepository exposes read access to the task catalog plus authoring
// helpers used by staff.
type TaskRepository interface {
	GetByID(ctx context.Context, id uint) (models.Task, error)
	ListByTopic(ctx context.Context, topicID uint) ([]models.Task, error)
	Create(ctx context.Context, task *models.Task) error
	ListTopics(ctx context.Context) ([]models.Topic, error)
	GetTopicByName(ctx context.Context, name string) (models.Topic, error)
	CreateTopic(ctx context.Context, topic *models.Topic) error
}

type taskRepository struct {
	db *gorm.DB
}

// NewTaskRepository constructs a task repository backed by GORM.
func NewTaskRepository(db *gorm.DB) TaskRepository {
	return &taskRepository{db: db}
}

func (r *taskRepository) GetByID(ctx context.Context, id uint) (models.Task, error) {
	var task models.Task
	if err := r.db.WithContext(ctx).Preload("Topic").First(&task, id).Error; err != nil {
		return models.Task{}, err
	}
	return task, nil
}

func (r *taskRepository) ListByTopic(ctx context.Context, topicID uint) ([]models.Task, error) {
	var tasks []models.Task
	query := r.db.WithContext(ctx).Order("id ASC")
	if topicID != 0 {
		query = query.Where("topic_id = ?", topicID)
	}
	if err := query.Find(&tasks).Error; err != nil {
		return nil, err
	}
	return tasks, nil
}

func (r *taskRepository) Create(ctx context.Context, task *models.Task) error {
	return r.db.WithContext(ctx).Create(task).Error
}

func (r *taskRepository) ListTopics(ctx context.Context) ([]models.Topic, error) {
	var topics []models.Topic
	if err := r.db.WithContext(ctx).Order("name ASC").Find(&topics).Error; err != nil {
		return nil, err
	}
	return topics, nil
}

func (r *taskRepository) GetTopicByName(ctx context.Context, name string) (models.Topic, error) {
	var topic models.Topic
	if err := r.db.WithContext(ctx).Where("name = ?", name).First(&topic).Error; err != nil {
		return models.Topic{}, err
	}
	return topic, nil
}

func (r *taskRepository) CreateTopic(ctx context.Context, topic *models.Topic) error {
	return r.db.WithContext(ctx).Create(topic).Error
}
