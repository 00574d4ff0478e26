package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/noah-isme/dojo-go-api/internal/models"
)

func TestNotificationRepositoryListScopesToUser(t *testing.T) {
	db := setupRepoTestDB(t, &models.Notification{})
	repo := NewNotificationRepository(db)

	now := time.Now()
	rows := []models.Notification{
		{UserID: "1", Type: "submission_result", Message: "passed", CreatedAt: now.Add(-time.Hour)},
		{UserID: "1", Type: "review", Message: "approved", CreatedAt: now},
		{UserID: "2", Type: "review", Message: "not yours", CreatedAt: now},
	}
	for i := range rows {
		require.NoError(t, repo.Create(context.Background(), &rows[i]))
	}

	list, err := repo.ListByUser(context.Background(), "1", 10, 0)
	require.NoError(t, err)
	require.Len(t, list, 2)
	require.Equal(t, "approved", list[0].Message, "newest first")
}

func TestNotificationRepositoryMarkRead(t *testing.T) {
	db := setupRepoTestDB(t, &models.Notification{})
	repo := NewNotificationRepository(db)

	row := models.Notification{UserID: "1", Type: "review", Message: "approved"}
	require.NoError(t, repo.Create(context.Background(), &row))

	updated, err := repo.MarkRead(context.Background(), row.ID, "1")
	require.NoError(t, err)
	require.True(t, updated.Read)

	// Marking again is a no-op, not an error.
	updated, err = repo.MarkRead(context.Background(), row.ID, "1")
	require.NoError(t, err)
	require.True(t, updated.Read)

	_, err = repo.MarkRead(context.Background(), row.ID, "2")
	require.ErrorIs(t, err, gorm.ErrRecordNotFound, "other users cannot touch the row")
}
