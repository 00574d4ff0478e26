package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/noah-isme/dojo-go-api/internal/models"
)

// StudentRepository provides access to student accounts and their ledger
// fields.
type StudentRepository interface {
	GetByID(ctx context.Context, id uint) (models.Student, error)
	AdjustBalance(ctx context.Context, id uint, delta int64) error
	SetStreak(ctx context.Context, id uint, streak int) error
	SetLastSpinDate(ctx context.Context, id uint, date string) error
	TopByPoints(ctx context.Context, limit int) ([]models.Student, error)
}

type studentRepository struct {
	db *gorm.DB
}

// NewStudentRepository constructs a student repository.
func NewStudentRepository(db *gorm.DB) StudentRepository {
	return &studentRepository{db: db}
}

func (r *studentRepository) GetByID(ctx context.Context, id uint) (models.Student, error) {
	var student models.Student
	if err := r.db.WithContext(ctx).First(&student, id).Error; err != nil {
		return models.Student{}, err
	}
	return student, nil
}

// AdjustBalance applies the delta in a single UPDATE so concurrent writers
// never lose increments.
func (r *studentRepository) AdjustBalance(ctx context.Context, id uint, delta int64) error {
	result := r.db.WithContext(ctx).
		Model(&models.Student{}).
		Where("id = ?", id).
		Update("bonus_points", gorm.Expr("bonus_points + ?", delta))
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *studentRepository) SetStreak(ctx context.Context, id uint, streak int) error {
	return r.db.WithContext(ctx).
		Model(&models.Student{}).
		Where("id = ?", id).
		Update("streak", streak).Error
}

func (r *studentRepository) SetLastSpinDate(ctx context.Context, id uint, date string) error {
	return r.db.WithContext(ctx).
		Model(&models.Student{}).
		Where("id = ?", id).
		Update("last_spin_date", date).Error
}

func (r *studentRepository) TopByPoints(ctx context.Context, limit int) ([]models.Student, error) {
	if limit <= 0 || limit > 100 {
		limit = 10
	}

	var students []models.Student
	err := r.db.WithContext(ctx).
		Order("bonus_points DESC").
		Limit(limit).
		Find(&students).Error
	if err != nil {
		return nil, err
	}
	return students, nil
}
