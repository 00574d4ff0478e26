package service

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/noah-isme/dojo-go-api/internal/models"
	"github.com/noah-isme/dojo-go-api/internal/repository"
)

// RedactionService periodically blanks out submission source code past the
// retention window. Pass/fail results, outputs, and point history survive.
type RedactionService struct {
	submissions repository.SubmissionRepository
	retention   time.Duration
	interval    time.Duration
	logger      zerolog.Logger
	now         func() time.Time
}

// NewRedactionService constructs the redaction job.
func NewRedactionService(submissions repository.SubmissionRepository, retention, interval time.Duration, logger zerolog.Logger) *RedactionService {
	if retention <= 0 {
		retention = 7 * 24 * time.Hour
	}
	if interval <= 0 {
		interval = time.Hour
	}

	return &RedactionService{
		submissions: submissions,
		retention:   retention,
		interval:    interval,
		logger:      logger.With().Str("component", "redaction_service").Logger(),
		now:         time.Now,
	}
}

// Start runs the sweep loop until ctx is cancelled. One sweep runs
// immediately so restarts do not postpone overdue redaction.
func (s *RedactionService) Start(ctx context.Context) {
	s.Sweep(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Sweep(ctx)
		}
	}
}

// Sweep redacts every submission older than the retention window.
func (s *RedactionService) Sweep(ctx context.Context) {
	cutoff := s.now().Add(-s.retention)
	count, err := s.submissions.RedactOlderThan(ctx, cutoff, models.RedactedCodePlaceholder)
	if err != nil {
		s.logger.Error().Err(err).Msg("redaction sweep failed")
		return
	}
	if count > 0 {
		s.logger.Info().Int64("redacted", count).Time("cutoff", cutoff).Msg("submission code redacted")
	}
}
