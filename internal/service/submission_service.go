package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/noah-isme/dojo-go-api/internal/dto"
	"github.com/noah-isme/dojo-go-api/internal/models"
	"github.com/noah-isme/dojo-go-api/internal/repository"
	"github.com/noah-isme/dojo-go-api/internal/session"
	"github.com/noah-isme/dojo-go-api/pkg/runner"
)

// ErrTaskNotFound indicates the referenced task does not exist in the catalog.
var ErrTaskNotFound = errors.New("task not found")

// ErrSubmissionNotFound indicates the submission cannot be located.
var ErrSubmissionNotFound = errors.New("submission not found")

// ErrSubmissionForbidden indicates the caller may not access the submission.
var ErrSubmissionForbidden = errors.New("forbidden")

// SubmissionConfig describes evaluation pipeline knobs.
type SubmissionConfig struct {
	// TimedWindow is how long after a timed open a pass still earns the bonus.
	TimedWindow time.Duration
	// StoredOutputLimit caps the captured output persisted with a submission.
	StoredOutputLimit int
	// DisplayOutputLimit caps the output echoed back to the student.
	DisplayOutputLimit int
}

// CodeRunner abstracts the language-dispatching runner for the pipeline.
type CodeRunner interface {
	Run(ctx context.Context, language, code, testCode string) runner.Result
}

// SubmissionService orchestrates one evaluation: fence stripping, the runner,
// persistence, session resolution and the economy mutations the verdict
// drives.
type SubmissionService interface {
	Submit(ctx context.Context, studentID uint, role string, payload dto.SubmissionRequest) (dto.SubmissionResultResponse, error)
	Get(ctx context.Context, id uint, viewerID uint, role string) (dto.SubmissionResponse, error)
	ListMine(ctx context.Context, studentID uint, limit, offset int) ([]dto.SubmissionResponse, error)
}

type submissionService struct {
	submissions repository.SubmissionRepository
	tasks       repository.TaskRepository
	students    repository.StudentRepository
	sessions    *session.Store
	runner      CodeRunner
	economy     EconomyService
	notifier    NotificationService
	logger      zerolog.Logger
	tracer      trace.Tracer
	config      SubmissionConfig
	now         func() time.Time
}

// NewSubmissionService constructs the evaluation pipeline.
func NewSubmissionService(
	submissions repository.SubmissionRepository,
	tasks repository.TaskRepository,
	students repository.StudentRepository,
	sessions *session.Store,
	codeRunner CodeRunner,
	economy EconomyService,
	notifier NotificationService,
	logger zerolog.Logger,
	cfg SubmissionConfig,
) SubmissionService {
	if cfg.TimedWindow <= 0 {
		cfg.TimedWindow = 10 * time.Minute
	}
	if cfg.StoredOutputLimit <= 0 {
		cfg.StoredOutputLimit = 5000
	}
	if cfg.DisplayOutputLimit <= 0 {
		cfg.DisplayOutputLimit = 2000
	}

	return &submissionService{
		submissions: submissions,
		tasks:       tasks,
		students:    students,
		sessions:    sessions,
		runner:      codeRunner,
		economy:     economy,
		notifier:    notifier,
		logger:      logger.With().Str("component", "submission_service").Logger(),
		tracer:      otel.Tracer("github.com/noah-isme/dojo-go-api/internal/service/submission"),
		config:      cfg,
		now:         time.Now,
	}
}

func (s *submissionService) Submit(ctx context.Context, studentID uint, role string, payload dto.SubmissionRequest) (dto.SubmissionResultResponse, error) {
	ctx, span := s.tracer.Start(ctx, "submission.submit", trace.WithAttributes(
		attribute.Int64("submission.student_id", int64(studentID)),
		attribute.Int64("submission.task_id", int64(payload.TaskID)),
	))
	defer span.End()

	task, err := s.tasks.GetByID(ctx, payload.TaskID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			span.SetStatus(codes.Error, "task_not_found")
			return dto.SubmissionResultResponse{}, ErrTaskNotFound
		}
		span.RecordError(err)
		return dto.SubmissionResultResponse{}, err
	}

	code := stripCodeFence(payload.Code)

	student, lookupErr := s.students.GetByID(ctx, studentID)
	registered := lookupErr == nil
	if lookupErr != nil && !errors.Is(lookupErr, gorm.ErrRecordNotFound) {
		span.RecordError(lookupErr)
		return dto.SubmissionResultResponse{}, lookupErr
	}

	result := s.runner.Run(ctx, task.RunnerLanguage(), code, task.TestCode)
	span.SetAttributes(attribute.Bool("submission.passed", result.Passed))

	if !registered {
		// Execution preview only: no persistence, no economy. A staff
		// token without a student row lands here too; with no streak or
		// ledger to update, its run is the same execution-only preview.
		if isStaffRole(role) {
			s.logger.Debug().Uint("caller_id", studentID).Msg("staff dry run without student account")
		}
		// Submitting still consumes any open attempt, exactly as it does
		// for registered students.
		s.sessions.Clear(studentID, task.ID)
		return dto.SubmissionResultResponse{
			Passed:  result.Passed,
			Output:  truncateRunes(result.Output, s.config.DisplayOutputLimit),
			Preview: true,
		}, nil
	}

	submission := models.Submission{
		TaskID:      task.ID,
		StudentID:   studentID,
		Code:        code,
		Passed:      result.Passed,
		Output:      truncateRunes(result.Output, s.config.StoredOutputLimit),
		SubmittedAt: s.now(),
	}
	if err := s.submissions.Create(ctx, &submission); err != nil {
		span.RecordError(err)
		return dto.SubmissionResultResponse{}, err
	}

	response := dto.SubmissionResultResponse{
		SubmissionID: submission.ID,
		Passed:       result.Passed,
		Output:       truncateRunes(result.Output, s.config.DisplayOutputLimit),
	}

	// The session is consumed whatever the verdict: submitting always closes
	// the attempt, forfeited stakes are never refunded here.
	state, hadSession := s.sessions.Clear(studentID, task.ID)

	if result.Passed {
		if hadSession && state.Mode == session.ModeTimed {
			elapsed := s.now().Sub(state.StartedAt)
			if elapsed <= s.config.TimedWindow {
				// The award formula nets out the stake: the escrowed bet
				// stays spent, a win pays 1+2×bet on top.
				award := 1 + 2*state.Bet
				if err := s.economy.Award(ctx, studentID, award, models.PointsReasonTimedBonus, map[string]interface{}{
					"task_id":    task.ID,
					"bet":        state.Bet,
					"elapsed_ms": elapsed.Milliseconds(),
				}); err != nil {
					s.logger.Error().Err(err).Uint("student_id", studentID).Msg("failed to award timed bonus")
				} else {
					response.Bonus = award
					response.BonusNote = fmt.Sprintf("solved in time: +%d points", award)
				}
			} else if state.Bet > 0 {
				response.BonusNote = fmt.Sprintf("too slow: %d staked points forfeited", state.Bet)
			}
		}

		newStreak := student.Streak + 1
		if err := s.students.SetStreak(ctx, studentID, newStreak); err != nil {
			s.logger.Error().Err(err).Uint("student_id", studentID).Msg("failed to advance streak")
		} else {
			response.Streak = newStreak
			if newStreak%5 == 0 {
				chest, err := s.economy.DrawChest(ctx, studentID, newStreak)
				if err != nil {
					s.logger.Error().Err(err).Uint("student_id", studentID).Msg("failed to grant streak chest")
				} else {
					delta := chest.Delta
					response.ChestDelta = &delta
				}
			}
		}
	} else {
		if err := s.students.SetStreak(ctx, studentID, 0); err != nil {
			s.logger.Error().Err(err).Uint("student_id", studentID).Msg("failed to reset streak")
		}
		response.Streak = 0
	}

	s.notifyAsync(studentID, task, response)

	return response, nil
}

func (s *submissionService) Get(ctx context.Context, id uint, viewerID uint, role string) (dto.SubmissionResponse, error) {
	submission, err := s.submissions.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.SubmissionResponse{}, ErrSubmissionNotFound
		}
		return dto.SubmissionResponse{}, err
	}

	staff := isStaffRole(role)
	if !staff && submission.StudentID != viewerID {
		return dto.SubmissionResponse{}, ErrSubmissionForbidden
	}

	return dto.NewSubmissionResponse(submission, true), nil
}

func (s *submissionService) ListMine(ctx context.Context, studentID uint, limit, offset int) ([]dto.SubmissionResponse, error) {
	submissions, err := s.submissions.ListByStudent(ctx, studentID, limit, offset)
	if err != nil {
		return nil, err
	}
	return dto.NewSubmissionResponseSlice(submissions, true), nil
}

// notifyAsync hands the verdict to the notification sink without blocking the
// pipeline. Delivery failure is logged and otherwise ignored.
func (s *submissionService) notifyAsync(studentID uint, task models.Task, result dto.SubmissionResultResponse) {
	if s.notifier == nil {
		return
	}

	verdict := "failed"
	if result.Passed {
		verdict = "passed"
	}
	message := fmt.Sprintf("Your submission for %q %s.", task.Title, verdict)
	if result.Bonus > 0 {
		message += fmt.Sprintf(" Bonus: +%d points.", result.Bonus)
	}
	if result.ChestDelta != nil {
		message += fmt.Sprintf(" Streak chest: %+d points.", *result.ChestDelta)
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		_, err := s.notifier.Publish(ctx, dto.NotificationCreateRequest{
			UserID:  fmt.Sprintf("%d", studentID),
			Type:    NotificationTypeSubmission,
			Message: message,
		})
		if err != nil {
			s.logger.Warn().Err(err).Uint("student_id", studentID).Msg("failed to publish submission notification")
		}
	}()
}

// stripCodeFence removes a wrapping fenced code block while preserving the
// interior verbatim. Source text is never reformatted beyond the fence lines.
func stripCodeFence(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if !strings.HasPrefix(trimmed, "```") {
		return raw
	}

	lines := strings.Split(trimmed, "\n")
	if len(lines) < 2 {
		return raw
	}
	if strings.TrimSpace(lines[len(lines)-1]) != "```" {
		return raw
	}

	// Drop the opening fence (which may carry a language tag) and the
	// closing fence, keep everything in between untouched.
	return strings.Join(lines[1:len(lines)-1], "\n")
}

func truncateRunes(s string, limit int) string {
	if limit <= 0 {
		return s
	}
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}

func isStaffRole(role string) bool {
	role = strings.ToLower(strings.TrimSpace(role))
	return role == "teacher" || role == "admin"
}
