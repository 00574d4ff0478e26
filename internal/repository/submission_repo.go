package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/noah-isme/dojo-go-api/internal/models"
)

// StaffFields carries the mutable staff-owned portion of a submission.
// Nil pointers leave the stored value untouched.
type StaffFields struct {
	Approved     *bool
	Feedback     *string
	BonusAwarded *int64
}

// SubmissionRepository exposes persistence helpers for submissions.
type SubmissionRepository interface {
	Create(ctx context.Context, submission *models.Submission) error
	GetByID(ctx context.Context, id uint) (models.Submission, error)
	ListByStudent(ctx context.Context, studentID uint, limit, offset int) ([]models.Submission, error)
	UpdateStaffFields(ctx context.Context, id uint, fields StaffFields) (models.Submission, error)
	RedactOlderThan(ctx context.Context, cutoff time.Time, placeholder string) (int64, error)
}

type submissionRepository struct {
	db *gorm.DB
}

// NewSubmissionRepository constructs a submission repository.
func NewSubmissionRepository(db *gorm.DB) SubmissionRepository {
	return &submissionRepository{db: db}
}

func (r *submissionRepository) Create(ctx context.Context, submission *models.Submission) error {
	return r.db.WithContext(ctx).Create(submission).Error
}

func (r *submissionRepository) GetByID(ctx context.Context, id uint) (models.Submission, error) {
	var submission models.Submission
	err := r.db.WithContext(ctx).
		Preload("Task").
		First(&submission, id).Error
	if err != nil {
		return models.Submission{}, err
	}
	return submission, nil
}

func (r *submissionRepository) ListByStudent(ctx context.Context, studentID uint, limit, offset int) ([]models.Submission, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	var submissions []models.Submission
	err := r.db.WithContext(ctx).
		Where("student_id = ?", studentID).
		Order("submitted_at DESC").
		Offset(offset).
		Limit(limit).
		Find(&submissions).Error
	if err != nil {
		return nil, err
	}
	return submissions, nil
}

func (r *submissionRepository) UpdateStaffFields(ctx context.Context, id uint, fields StaffFields) (models.Submission, error) {
	var submission models.Submission
	if err := r.db.WithContext(ctx).First(&submission, id).Error; err != nil {
		return models.Submission{}, err
	}

	if fields.Approved != nil {
		submission.Approved = *fields.Approved
	}
	if fields.Feedback != nil {
		submission.Feedback = *fields.Feedback
		submission.CheatFlagged = models.DeriveCheatFlag(*fields.Feedback)
	}
	if fields.BonusAwarded != nil {
		submission.BonusAwarded = *fields.BonusAwarded
	}

	if err := r.db.WithContext(ctx).Save(&submission).Error; err != nil {
		return models.Submission{}, err
	}
	return submission, nil
}

// RedactOlderThan replaces stored source code with the placeholder for rows
// older than the cutoff. Runs from the maintenance loop, never the hot path.
func (r *submissionRepository) RedactOlderThan(ctx context.Context, cutoff time.Time, placeholder string) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Submission{}).
		Where("submitted_at < ? AND code <> ?", cutoff, placeholder).
		Update("code", placeholder)
	return result.RowsAffected, result.Error
}
