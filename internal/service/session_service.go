package service

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/noah-isme/dojo-go-api/internal/repository"
	"github.com/noah-isme/dojo-go-api/internal/session"
)

// ErrSessionExists indicates the student already has an open attempt for the task.
var ErrSessionExists = errors.New("attempt already open for this task")

// ErrSessionNotFound indicates no open attempt exists for the task.
var ErrSessionNotFound = errors.New("no open attempt for this task")

// SessionService drives the attempt state machine: open (untimed, or timed
// with an optional escrowed bet), reset (refund), and lookup. Submission
// handles the third transition itself.
type SessionService interface {
	Open(ctx context.Context, studentID, taskID uint, mode session.Mode, bet int64) (session.State, error)
	Reset(ctx context.Context, studentID, taskID uint) error
	Get(studentID, taskID uint) (session.State, bool)
}

type sessionService struct {
	store   *session.Store
	tasks   repository.TaskRepository
	economy EconomyService
	logger  zerolog.Logger
	now     func() time.Time
}

// NewSessionService constructs the session service.
func NewSessionService(store *session.Store, tasks repository.TaskRepository, economy EconomyService, logger zerolog.Logger) SessionService {
	return &sessionService{
		store:   store,
		tasks:   tasks,
		economy: economy,
		logger:  logger.With().Str("component", "session_service").Logger(),
		now:     time.Now,
	}
}

// Open creates the attempt record. A timed open with a positive bet escrows
// it first, the open fails without a session when the escrow is rejected.
func (s *sessionService) Open(ctx context.Context, studentID, taskID uint, mode session.Mode, bet int64) (session.State, error) {
	if _, err := s.tasks.GetByID(ctx, taskID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return session.State{}, ErrTaskNotFound
		}
		return session.State{}, err
	}

	if mode != session.ModeTimed {
		mode = session.ModeUntimed
		bet = 0
	}
	if bet < 0 {
		return session.State{}, ErrInvalidAmount
	}

	if _, exists := s.store.Get(studentID, taskID); exists {
		return session.State{}, ErrSessionExists
	}

	if mode == session.ModeTimed && bet > 0 {
		if err := s.economy.Escrow(ctx, studentID, bet); err != nil {
			return session.State{}, err
		}
	}

	state := session.State{Mode: mode, StartedAt: s.now(), Bet: bet}
	if !s.store.Put(studentID, taskID, state) {
		// Lost a race for the slot: hand the stake back.
		if state.Bet > 0 {
			if err := s.economy.Refund(ctx, studentID, state.Bet); err != nil {
				s.logger.Error().Err(err).Uint("student_id", studentID).Msg("failed to refund stake after open race")
			}
		}
		return session.State{}, ErrSessionExists
	}

	return state, nil
}

// Reset abandons the attempt and refunds any escrowed stake.
func (s *sessionService) Reset(ctx context.Context, studentID, taskID uint) error {
	state, ok := s.store.Clear(studentID, taskID)
	if !ok {
		return ErrSessionNotFound
	}

	if state.Mode == session.ModeTimed && state.Bet > 0 {
		if err := s.economy.Refund(ctx, studentID, state.Bet); err != nil {
			return err
		}
	}
	return nil
}

func (s *sessionService) Get(studentID, taskID uint) (session.State, bool) {
	return s.store.Get(studentID, taskID)
}
