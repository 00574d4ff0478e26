package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"gorm.io/gorm"

	"github.com/noah-isme/dojo-go-api/internal/dto"
	"github.com/noah-isme/dojo-go-api/internal/models"
	"github.com/noah-isme/dojo-go-api/internal/repository"
	"github.com/noah-isme/dojo-go-api/pkg/ai"
)

// ErrInvalidBonus indicates a staff bonus outside the allowed range.
var ErrInvalidBonus = errors.New("bonus must be positive")

// ReviewActor identifies the staff member performing a review.
type ReviewActor struct {
	ID   uint
	Role string
}

// ReviewService covers the staff review workflow: approving submissions,
// attaching feedback, and granting discretionary bonuses.
type ReviewService interface {
	Review(ctx context.Context, submissionID uint, payload dto.ReviewRequest, actor ReviewActor) (dto.SubmissionResponse, error)
	DraftFeedback(ctx context.Context, submissionID uint, actor ReviewActor) (dto.FeedbackDraftResponse, error)
}

type reviewService struct {
	submissions repository.SubmissionRepository
	economy     EconomyService
	assistant   ai.Assistant
	notifier    NotificationService
	validator   *validator.Validate
	logger      zerolog.Logger
}

// NewReviewService constructs the review service. The assistant may be nil
// when no AI provider is configured; the notifier may be nil in tests.
func NewReviewService(submissions repository.SubmissionRepository, economy EconomyService, assistant ai.Assistant, notifier NotificationService, validate *validator.Validate, logger zerolog.Logger) ReviewService {
	return &reviewService{
		submissions: submissions,
		economy:     economy,
		assistant:   assistant,
		notifier:    notifier,
		validator:   validate,
		logger:      logger.With().Str("component", "review_service").Logger(),
	}
}

func (s *reviewService) Review(ctx context.Context, submissionID uint, payload dto.ReviewRequest, actor ReviewActor) (dto.SubmissionResponse, error) {
	tracer := otel.Tracer("github.com/noah-isme/dojo-go-api/internal/service/review")
	ctx, span := tracer.Start(ctx, "review.update")
	span.SetAttributes(
		attribute.Int64("review.submission_id", int64(submissionID)),
		attribute.Int64("review.actor_id", int64(actor.ID)),
	)
	defer span.End()

	if !isStaffRole(actor.Role) {
		return dto.SubmissionResponse{}, ErrSubmissionForbidden
	}
	if err := s.validator.Struct(payload); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "validation_failed")
		return dto.SubmissionResponse{}, err
	}
	if payload.Bonus != nil && *payload.Bonus <= 0 {
		return dto.SubmissionResponse{}, ErrInvalidBonus
	}

	fields := repository.StaffFields{Approved: payload.Approved}
	if payload.Feedback != nil {
		trimmed := strings.TrimSpace(*payload.Feedback)
		fields.Feedback = &trimmed
	}
	if payload.Bonus != nil {
		fields.BonusAwarded = payload.Bonus
	}

	submission, err := s.submissions.UpdateStaffFields(ctx, submissionID, fields)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			span.SetStatus(codes.Error, "submission_not_found")
			return dto.SubmissionResponse{}, ErrSubmissionNotFound
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "submission_update_failed")
		return dto.SubmissionResponse{}, err
	}

	if payload.Bonus != nil {
		details := map[string]interface{}{
			"submission_id": submission.ID,
			"reviewer_id":   actor.ID,
		}
		if err := s.economy.Award(ctx, submission.StudentID, *payload.Bonus, models.PointsReasonStaffBonus, details); err != nil {
			s.logger.Error().Err(err).Uint("submission_id", submission.ID).Msg("failed to credit staff bonus")
			span.RecordError(err)
			return dto.SubmissionResponse{}, err
		}
	}

	s.logger.Info().
		Uint("submission_id", submission.ID).
		Uint("reviewer_id", actor.ID).
		Bool("cheat_flagged", submission.CheatFlagged).
		Msg("submission reviewed")

	s.notifyReviewed(submission, payload)

	return dto.NewSubmissionResponse(submission, true), nil
}

// notifyReviewed tells the student their submission was reviewed. Same
// fire-and-forget contract as the pipeline: failures are logged, never
// surfaced to the reviewer.
func (s *reviewService) notifyReviewed(submission models.Submission, payload dto.ReviewRequest) {
	if s.notifier == nil {
		return
	}

	message := fmt.Sprintf("Your submission #%d was reviewed.", submission.ID)
	if submission.Approved {
		message = fmt.Sprintf("Your submission #%d was approved.", submission.ID)
	}
	if payload.Bonus != nil {
		message += fmt.Sprintf(" Bonus: +%d points.", *payload.Bonus)
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		_, err := s.notifier.Publish(ctx, dto.NotificationCreateRequest{
			UserID:  fmt.Sprintf("%d", submission.StudentID),
			Type:    NotificationTypeReview,
			Message: message,
		})
		if err != nil {
			s.logger.Warn().Err(err).Uint("submission_id", submission.ID).Msg("failed to publish review notification")
		}
	}()
}

func (s *reviewService) DraftFeedback(ctx context.Context, submissionID uint, actor ReviewActor) (dto.FeedbackDraftResponse, error) {
	if !isStaffRole(actor.Role) {
		return dto.FeedbackDraftResponse{}, ErrSubmissionForbidden
	}
	if s.assistant == nil {
		return dto.FeedbackDraftResponse{}, ai.ErrNotConfigured
	}

	submission, err := s.submissions.GetByID(ctx, submissionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.FeedbackDraftResponse{}, ErrSubmissionNotFound
		}
		return dto.FeedbackDraftResponse{}, err
	}

	draft, err := s.assistant.DraftFeedback(ctx, ai.DraftInput{
		TaskTitle:       submission.Task.Title,
		TaskDescription: submission.Task.Description,
		Code:            submission.Code,
		Output:          submission.Output,
		Passed:          submission.Passed,
	})
	if err != nil {
		s.logger.Error().Err(err).Uint("submission_id", submission.ID).Msg("feedback draft failed")
		return dto.FeedbackDraftResponse{}, err
	}

	return dto.FeedbackDraftResponse{
		SubmissionID: submission.ID,
		Draft:        draft.Text,
		Provider:     draft.Provider,
	}, nil
}
