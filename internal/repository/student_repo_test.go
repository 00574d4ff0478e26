package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/noah-isme/dojo-go-api/internal/models"
)

func TestStudentRepositoryAdjustBalance(t *testing.T) {
	db := setupRepoTestDB(t, &models.Student{})
	repo := NewStudentRepository(db)

	student := models.Student{Name: "Grace", Email: "grace@example.com", BonusPoints: 10}
	require.NoError(t, db.Create(&student).Error)

	require.NoError(t, repo.AdjustBalance(context.Background(), student.ID, -3))
	require.NoError(t, repo.AdjustBalance(context.Background(), student.ID, 8))

	got, err := repo.GetByID(context.Background(), student.ID)
	require.NoError(t, err)
	require.Equal(t, int64(15), got.BonusPoints)
}

func TestStudentRepositoryAdjustBalanceMissingRow(t *testing.T) {
	db := setupRepoTestDB(t, &models.Student{})
	repo := NewStudentRepository(db)

	err := repo.AdjustBalance(context.Background(), 404, 5)
	require.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestStudentRepositoryAdjustBalanceAllowsNegativeResult(t *testing.T) {
	db := setupRepoTestDB(t, &models.Student{})
	repo := NewStudentRepository(db)

	student := models.Student{Name: "Linus", Email: "linus@example.com", BonusPoints: 2}
	require.NoError(t, db.Create(&student).Error)

	require.NoError(t, repo.AdjustBalance(context.Background(), student.ID, -7))

	got, err := repo.GetByID(context.Background(), student.ID)
	require.NoError(t, err)
	require.Equal(t, int64(-5), got.BonusPoints)
}

func TestStudentRepositoryTopByPoints(t *testing.T) {
	db := setupRepoTestDB(t, &models.Student{})
	repo := NewStudentRepository(db)

	students := []models.Student{
		{Name: "Edsger", Email: "edsger@example.com", BonusPoints: 5},
		{Name: "Grace", Email: "grace@example.com", BonusPoints: 50},
		{Name: "Ada", Email: "ada@example.com", BonusPoints: 20},
	}
	for i := range students {
		require.NoError(t, db.Create(&students[i]).Error)
	}

	top, err := repo.TopByPoints(context.Background(), 2)
	require.NoError(t, err)
	require.Len(t, top, 2)
	require.Equal(t, "Grace", top[0].Name)
	require.Equal(t, "Ada", top[1].Name)
}

func TestStudentRepositoryTopByPointsClampsLimit(t *testing.T) {
	db := setupRepoTestDB(t, &models.Student{})
	repo := NewStudentRepository(db)

	require.NoError(t, db.Create(&models.Student{Name: "Ada", Email: "ada@example.com"}).Error)

	top, err := repo.TopByPoints(context.Background(), -1)
	require.NoError(t, err)
	require.Len(t, top, 1)
}

func TestStudentRepositorySpinAndStreakFields(t *testing.T) {
	db := setupRepoTestDB(t, &models.Student{})
	repo := NewStudentRepository(db)

	student := models.Student{Name: "Ada", Email: "ada@example.com"}
	require.NoError(t, db.Create(&student).Error)

	require.NoError(t, repo.SetStreak(context.Background(), student.ID, 4))
	require.NoError(t, repo.SetLastSpinDate(context.Background(), student.ID, "2026-08-30"))

	got, err := repo.GetByID(context.Background(), student.ID)
	require.NoError(t, err)
	require.Equal(t, 4, got.Streak)
	require.Equal(t, "2026-08-30", got.LastSpinDate)
}
