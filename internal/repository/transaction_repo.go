package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/noah-isme/dojo-go-api/internal/models"
)

// TransactionRepository appends to the points audit ledger.
type TransactionRepository interface {
	Create(ctx context.Context, tx *models.PointsTransaction) error
	ListByStudent(ctx context.Context, studentID uint, limit int) ([]models.PointsTransaction, error)
}

type transactionRepository struct {
	db *gorm.DB
}

// NewTransactionRepository constructs a points transaction repository.
func NewTransactionRepository(db *gorm.DB) TransactionRepository {
	return &transactionRepository{db: db}
}

func (r *transactionRepository) Create(ctx context.Context, tx *models.PointsTransaction) error {
	return r.db.WithContext(ctx).Create(tx).Error
}

func (r *transactionRepository) ListByStudent(ctx context.Context, studentID uint, limit int) ([]models.PointsTransaction, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}

	var transactions []models.PointsTransaction
	err := r.db.WithContext(ctx).
		Where("student_id = ?", studentID).
		Order("created_at DESC").
		Limit(limit).
		Find(&transactions).Error
	if err != nil {
		return nil, err
	}
	return transactions, nil
}
