package service

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/noah-isme/dojo-go-api/internal/models"
	"github.com/noah-isme/dojo-go-api/internal/repository"
)

// ErrStudentNotFound indicates the student account cannot be located.
var ErrStudentNotFound = errors.New("student not found")

// ErrInsufficientFunds indicates the balance does not cover the requested stake.
var ErrInsufficientFunds = errors.New("insufficient bonus points")

// ErrAlreadySpunToday indicates the daily spin was already used today.
var ErrAlreadySpunToday = errors.New("daily spin already used today")

// ErrInvalidAmount indicates a negative or zero stake where a positive one is required.
var ErrInvalidAmount = errors.New("invalid amount")

// spinOutcome is one slot of the discrete reward distribution shared by the
// daily spin and streak chests.
type spinOutcome struct {
	Delta  int64
	Weight int
}

// defaultSpinTable holds the reward distribution: one negative outcome, a
// blank, and a few positive tiers.
var defaultSpinTable = []spinOutcome{
	{Delta: -5, Weight: 2},
	{Delta: 0, Weight: 3},
	{Delta: 5, Weight: 3},
	{Delta: 10, Weight: 2},
	{Delta: 25, Weight: 1},
}

// SpinResult reports the outcome of a daily spin or chest draw.
type SpinResult struct {
	Delta   int64 `json:"delta"`
	Balance int64 `json:"balance"`
}

// GambleResult reports the outcome of a 50/50 gamble.
type GambleResult struct {
	Won     bool  `json:"won"`
	Delta   int64 `json:"delta"`
	Balance int64 `json:"balance"`
}

// EconomyService is the balance ledger: escrow, refunds, timed bonuses, streak
// chests, daily spins and gambles. All mutations for one student are
// serialized against each other; different students share no lock.
type EconomyService interface {
	Balance(ctx context.Context, studentID uint) (int64, error)
	Escrow(ctx context.Context, studentID uint, amount int64) error
	Refund(ctx context.Context, studentID uint, amount int64) error
	Award(ctx context.Context, studentID uint, delta int64, reason string, details map[string]interface{}) error
	DailySpin(ctx context.Context, studentID uint) (SpinResult, error)
	DrawChest(ctx context.Context, studentID uint, streak int) (SpinResult, error)
	Gamble(ctx context.Context, studentID uint, amount int64) (GambleResult, error)
}

type economyService struct {
	students repository.StudentRepository
	ledger   repository.TransactionRepository
	logger   zerolog.Logger
	tracer   trace.Tracer
	now      func() time.Time

	spinTable []spinOutcome

	// rng is owned by this instance, never package-global shared state.
	rngMu sync.Mutex
	rng   *rand.Rand

	// locksMu guards the lazily created per-student locks.
	locksMu sync.Mutex
	locks   map[uint]*sync.Mutex
}

// NewEconomyService constructs the economy service.
func NewEconomyService(students repository.StudentRepository, ledger repository.TransactionRepository, logger zerolog.Logger) EconomyService {
	return &economyService{
		students:  students,
		ledger:    ledger,
		logger:    logger.With().Str("component", "economy_service").Logger(),
		tracer:    otel.Tracer("github.com/noah-isme/dojo-go-api/internal/service/economy"),
		now:       time.Now,
		spinTable: defaultSpinTable,
		rng:       rand.New(rand.NewSource(time.Now().UnixNano())),
		locks:     make(map[uint]*sync.Mutex),
	}
}

// studentLock returns the mutex serializing mutations for one student.
func (s *economyService) studentLock(studentID uint) *sync.Mutex {
	s.locksMu.Lock()
	defer s.locksMu.Unlock()

	lock, ok := s.locks[studentID]
	if !ok {
		lock = &sync.Mutex{}
		s.locks[studentID] = lock
	}
	return lock
}

func (s *economyService) roll(n int) int {
	s.rngMu.Lock()
	defer s.rngMu.Unlock()
	return s.rng.Intn(n)
}

func (s *economyService) Balance(ctx context.Context, studentID uint) (int64, error) {
	student, err := s.students.GetByID(ctx, studentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, ErrStudentNotFound
		}
		return 0, err
	}
	return student.BonusPoints, nil
}

// Escrow deducts the stake up front. The sufficiency check and the deduction
// hold the student lock together, so two concurrent escrows can never both
// pass the check before either mutates.
func (s *economyService) Escrow(ctx context.Context, studentID uint, amount int64) error {
	if amount < 0 {
		return ErrInvalidAmount
	}
	if amount == 0 {
		return nil
	}

	lock := s.studentLock(studentID)
	lock.Lock()
	defer lock.Unlock()

	student, err := s.students.GetByID(ctx, studentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrStudentNotFound
		}
		return err
	}
	if student.BonusPoints < amount {
		return ErrInsufficientFunds
	}

	if err := s.students.AdjustBalance(ctx, studentID, -amount); err != nil {
		return err
	}
	s.record(ctx, studentID, -amount, models.PointsReasonEscrow, map[string]interface{}{"bet": amount})
	return nil
}

// Refund returns a previously escrowed stake.
func (s *economyService) Refund(ctx context.Context, studentID uint, amount int64) error {
	if amount <= 0 {
		return nil
	}

	lock := s.studentLock(studentID)
	lock.Lock()
	defer lock.Unlock()

	if err := s.students.AdjustBalance(ctx, studentID, amount); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrStudentNotFound
		}
		return err
	}
	s.record(ctx, studentID, amount, models.PointsReasonRefund, map[string]interface{}{"bet": amount})
	return nil
}

// Award applies an unconditional delta (timed bonuses, staff grants and
// penalties). No floor: staff penalties may drive the balance negative.
func (s *economyService) Award(ctx context.Context, studentID uint, delta int64, reason string, details map[string]interface{}) error {
	if delta == 0 {
		return nil
	}

	lock := s.studentLock(studentID)
	lock.Lock()
	defer lock.Unlock()

	if err := s.students.AdjustBalance(ctx, studentID, delta); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrStudentNotFound
		}
		return err
	}
	s.record(ctx, studentID, delta, reason, details)
	return nil
}

// DailySpin draws once per calendar day from the reward distribution.
func (s *economyService) DailySpin(ctx context.Context, studentID uint) (SpinResult, error) {
	ctx, span := s.tracer.Start(ctx, "economy.daily_spin", trace.WithAttributes(
		attribute.Int64("economy.student_id", int64(studentID)),
	))
	defer span.End()

	lock := s.studentLock(studentID)
	lock.Lock()
	defer lock.Unlock()

	student, err := s.students.GetByID(ctx, studentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return SpinResult{}, ErrStudentNotFound
		}
		return SpinResult{}, err
	}

	today := s.now()
	if student.HasSpunOn(today) {
		return SpinResult{}, ErrAlreadySpunToday
	}

	delta := s.drawFromTable()
	if delta != 0 {
		if err := s.students.AdjustBalance(ctx, studentID, delta); err != nil {
			return SpinResult{}, err
		}
	}
	if err := s.students.SetLastSpinDate(ctx, studentID, today.Format("2006-01-02")); err != nil {
		return SpinResult{}, err
	}
	s.record(ctx, studentID, delta, models.PointsReasonDailySpin, nil)

	return SpinResult{Delta: delta, Balance: student.BonusPoints + delta}, nil
}

// DrawChest grants a streak milestone reward, drawn from the same
// distribution as the daily spin but independently of it.
func (s *economyService) DrawChest(ctx context.Context, studentID uint, streak int) (SpinResult, error) {
	lock := s.studentLock(studentID)
	lock.Lock()
	defer lock.Unlock()

	student, err := s.students.GetByID(ctx, studentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return SpinResult{}, ErrStudentNotFound
		}
		return SpinResult{}, err
	}

	delta := s.drawFromTable()
	if delta != 0 {
		if err := s.students.AdjustBalance(ctx, studentID, delta); err != nil {
			return SpinResult{}, err
		}
	}
	s.record(ctx, studentID, delta, models.PointsReasonChest, map[string]interface{}{"streak": streak})

	return SpinResult{Delta: delta, Balance: student.BonusPoints + delta}, nil
}

// Gamble is a 50/50 coin flip for the staked amount. Check and mutation are
// atomic per student, rejection leaves the balance untouched.
func (s *economyService) Gamble(ctx context.Context, studentID uint, amount int64) (GambleResult, error) {
	if amount <= 0 {
		return GambleResult{}, ErrInvalidAmount
	}

	lock := s.studentLock(studentID)
	lock.Lock()
	defer lock.Unlock()

	student, err := s.students.GetByID(ctx, studentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return GambleResult{}, ErrStudentNotFound
		}
		return GambleResult{}, err
	}
	if student.BonusPoints < amount {
		return GambleResult{}, ErrInsufficientFunds
	}

	won := s.roll(2) == 0
	delta := amount
	reason := models.PointsReasonGambleWin
	if !won {
		delta = -amount
		reason = models.PointsReasonGambleLoss
	}

	if err := s.students.AdjustBalance(ctx, studentID, delta); err != nil {
		return GambleResult{}, err
	}
	s.record(ctx, studentID, delta, reason, map[string]interface{}{"stake": amount})

	return GambleResult{Won: won, Delta: delta, Balance: student.BonusPoints + delta}, nil
}

func (s *economyService) drawFromTable() int64 {
	total := 0
	for _, outcome := range s.spinTable {
		total += outcome.Weight
	}

	pick := s.roll(total)
	for _, outcome := range s.spinTable {
		pick -= outcome.Weight
		if pick < 0 {
			return outcome.Delta
		}
	}
	return 0
}

// record appends to the audit ledger. Ledger failures are logged, never
// propagated: the balance mutation already happened and stays authoritative.
func (s *economyService) record(ctx context.Context, studentID uint, delta int64, reason string, details map[string]interface{}) {
	tx := models.PointsTransaction{
		StudentID: studentID,
		Delta:     delta,
		Reason:    reason,
	}
	if details != nil {
		tx.Details = datatypes.JSONMap(details)
	}
	if err := s.ledger.Create(ctx, &tx); err != nil {
		s.logger.Warn().Err(err).Uint("student_id", studentID).Str("reason", reason).Msg("failed to append points transaction")
	}
}
