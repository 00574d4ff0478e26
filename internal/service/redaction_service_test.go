package service

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/dojo-go-api/internal/models"
)

func TestRedactionSweepBlanksOldCodeOnly(t *testing.T) {
	now := time.Date(2025, 6, 10, 12, 0, 0, 0, time.UTC)

	submissions := &fakeSubmissionRepo{}
	old := &models.Submission{StudentID: 1, TaskID: 7, Code: "def old(): pass", Output: "ok", Passed: true, SubmittedAt: now.Add(-8 * 24 * time.Hour)}
	recent := &models.Submission{StudentID: 1, TaskID: 7, Code: "def recent(): pass", Passed: true, SubmittedAt: now.Add(-time.Hour)}
	require.NoError(t, submissions.Create(context.Background(), old))
	require.NoError(t, submissions.Create(context.Background(), recent))

	svc := NewRedactionService(submissions, 7*24*time.Hour, time.Hour, zerolog.Nop())
	svc.now = func() time.Time { return now }

	svc.Sweep(context.Background())

	require.Equal(t, models.RedactedCodePlaceholder, submissions.created[0].Code)
	require.Equal(t, "def recent(): pass", submissions.created[1].Code)
	require.Equal(t, "ok", submissions.created[0].Output, "outputs survive redaction")
	require.True(t, submissions.created[0].Passed, "verdicts survive redaction")
}

func TestRedactionSweepIsIdempotent(t *testing.T) {
	now := time.Now()

	submissions := &fakeSubmissionRepo{}
	require.NoError(t, submissions.Create(context.Background(), &models.Submission{
		StudentID: 1, TaskID: 7, Code: "x", SubmittedAt: now.Add(-30 * 24 * time.Hour),
	}))

	svc := NewRedactionService(submissions, 7*24*time.Hour, time.Hour, zerolog.Nop())
	svc.Sweep(context.Background())
	svc.Sweep(context.Background())

	count, err := submissions.RedactOlderThan(context.Background(), now, models.RedactedCodePlaceholder)
	require.NoError(t, err)
	require.Zero(t, count, "already redacted rows are not rewritten")
}
