package service

import (
	"context"
	"sort"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/noah-isme/dojo-go-api/internal/models"
)

type memStudentRepo struct {
	students map[uint]*models.Student
}

func newMemStudentRepo(students ...models.Student) *memStudentRepo {
	repo := &memStudentRepo{students: make(map[uint]*models.Student)}
	for i := range students {
		clone := students[i]
		repo.students[clone.ID] = &clone
	}
	return repo
}

func (r *memStudentRepo) GetByID(ctx context.Context, id uint) (models.Student, error) {
	student, ok := r.students[id]
	if !ok {
		return models.Student{}, gorm.ErrRecordNotFound
	}
	return *student, nil
}

func (r *memStudentRepo) AdjustBalance(ctx context.Context, id uint, delta int64) error {
	student, ok := r.students[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	student.BonusPoints += delta
	return nil
}

func (r *memStudentRepo) SetStreak(ctx context.Context, id uint, streak int) error {
	student, ok := r.students[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	student.Streak = streak
	return nil
}

func (r *memStudentRepo) SetLastSpinDate(ctx context.Context, id uint, date string) error {
	student, ok := r.students[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	student.LastSpinDate = date
	return nil
}

func (r *memStudentRepo) TopByPoints(ctx context.Context, limit int) ([]models.Student, error) {
	out := make([]models.Student, 0, len(r.students))
	for _, student := range r.students {
		out = append(out, *student)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].BonusPoints > out[j].BonusPoints })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

type memLedger struct {
	entries []models.PointsTransaction
}

func (l *memLedger) Create(ctx context.Context, tx *models.PointsTransaction) error {
	tx.ID = uint(len(l.entries) + 1)
	l.entries = append(l.entries, *tx)
	return nil
}

func (l *memLedger) ListByStudent(ctx context.Context, studentID uint, limit int) ([]models.PointsTransaction, error) {
	return l.entries, nil
}

func (l *memLedger) lastReason() string {
	if len(l.entries) == 0 {
		return ""
	}
	return l.entries[len(l.entries)-1].Reason
}

func newTestEconomy(students *memStudentRepo, ledger *memLedger) *economyService {
	svc := NewEconomyService(students, ledger, zerolog.Nop()).(*economyService)
	return svc
}

func TestEscrowDeductsStakeAndRecords(t *testing.T) {
	students := newMemStudentRepo(models.Student{ID: 1, BonusPoints: 10})
	ledger := &memLedger{}
	svc := newTestEconomy(students, ledger)

	require.NoError(t, svc.Escrow(context.Background(), 1, 2))

	balance, err := svc.Balance(context.Background(), 1)
	require.NoError(t, err)
	require.Equal(t, int64(8), balance)
	require.Equal(t, models.PointsReasonEscrow, ledger.lastReason())
	require.Equal(t, int64(-2), ledger.entries[0].Delta)
}

func TestEscrowRejectsInsufficientBalance(t *testing.T) {
	students := newMemStudentRepo(models.Student{ID: 1, BonusPoints: 1})
	ledger := &memLedger{}
	svc := newTestEconomy(students, ledger)

	err := svc.Escrow(context.Background(), 1, 5)
	require.ErrorIs(t, err, ErrInsufficientFunds)

	balance, err := svc.Balance(context.Background(), 1)
	require.NoError(t, err)
	require.Equal(t, int64(1), balance, "rejected escrow must not touch the balance")
	require.Empty(t, ledger.entries)
}

func TestEscrowZeroIsNoop(t *testing.T) {
	students := newMemStudentRepo(models.Student{ID: 1, BonusPoints: 3})
	ledger := &memLedger{}
	svc := newTestEconomy(students, ledger)

	require.NoError(t, svc.Escrow(context.Background(), 1, 0))
	require.Empty(t, ledger.entries)
}

func TestRefundRestoresStake(t *testing.T) {
	students := newMemStudentRepo(models.Student{ID: 1, BonusPoints: 10})
	ledger := &memLedger{}
	svc := newTestEconomy(students, ledger)

	require.NoError(t, svc.Escrow(context.Background(), 1, 4))
	require.NoError(t, svc.Refund(context.Background(), 1, 4))

	balance, err := svc.Balance(context.Background(), 1)
	require.NoError(t, err)
	require.Equal(t, int64(10), balance)
	require.Equal(t, models.PointsReasonRefund, ledger.lastReason())
}

func TestAwardAllowsNegativeBalance(t *testing.T) {
	students := newMemStudentRepo(models.Student{ID: 1, BonusPoints: 2})
	ledger := &memLedger{}
	svc := newTestEconomy(students, ledger)

	require.NoError(t, svc.Award(context.Background(), 1, -10, models.PointsReasonStaffManual, nil))

	balance, err := svc.Balance(context.Background(), 1)
	require.NoError(t, err)
	require.Equal(t, int64(-8), balance)
}

func TestDailySpinOncePerCalendarDay(t *testing.T) {
	students := newMemStudentRepo(models.Student{ID: 1, BonusPoints: 10})
	ledger := &memLedger{}
	svc := newTestEconomy(students, ledger)
	svc.spinTable = []spinOutcome{{Delta: 5, Weight: 1}}
	day := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return day }

	result, err := svc.DailySpin(context.Background(), 1)
	require.NoError(t, err)
	require.Equal(t, int64(5), result.Delta)
	require.Equal(t, int64(15), result.Balance)
	require.Equal(t, "2025-06-01", students.students[1].LastSpinDate)

	// Same day, even hours later.
	svc.now = func() time.Time { return day.Add(10 * time.Hour) }
	_, err = svc.DailySpin(context.Background(), 1)
	require.ErrorIs(t, err, ErrAlreadySpunToday)

	// Next calendar day unlocks another spin.
	svc.now = func() time.Time { return day.Add(24 * time.Hour) }
	result, err = svc.DailySpin(context.Background(), 1)
	require.NoError(t, err)
	require.Equal(t, int64(20), result.Balance)
}

func TestDailySpinUnknownStudent(t *testing.T) {
	svc := newTestEconomy(newMemStudentRepo(), &memLedger{})

	_, err := svc.DailySpin(context.Background(), 42)
	require.ErrorIs(t, err, ErrStudentNotFound)
}

func TestDrawChestRecordsStreakDetails(t *testing.T) {
	students := newMemStudentRepo(models.Student{ID: 1, BonusPoints: 10})
	ledger := &memLedger{}
	svc := newTestEconomy(students, ledger)
	svc.spinTable = []spinOutcome{{Delta: 25, Weight: 1}}

	result, err := svc.DrawChest(context.Background(), 1, 5)
	require.NoError(t, err)
	require.Equal(t, int64(25), result.Delta)
	require.Equal(t, int64(35), result.Balance)
	require.Equal(t, models.PointsReasonChest, ledger.lastReason())
	require.EqualValues(t, 5, ledger.entries[0].Details["streak"])
}

func TestDrawChestCanPenalize(t *testing.T) {
	students := newMemStudentRepo(models.Student{ID: 1, BonusPoints: 10})
	svc := newTestEconomy(students, &memLedger{})
	svc.spinTable = []spinOutcome{{Delta: -5, Weight: 1}}

	result, err := svc.DrawChest(context.Background(), 1, 10)
	require.NoError(t, err)
	require.Equal(t, int64(-5), result.Delta)
	require.Equal(t, int64(5), result.Balance)
}

func TestGambleRejectsBadStakes(t *testing.T) {
	students := newMemStudentRepo(models.Student{ID: 1, BonusPoints: 3})
	svc := newTestEconomy(students, &memLedger{})

	_, err := svc.Gamble(context.Background(), 1, 0)
	require.ErrorIs(t, err, ErrInvalidAmount)

	_, err = svc.Gamble(context.Background(), 1, -2)
	require.ErrorIs(t, err, ErrInvalidAmount)

	_, err = svc.Gamble(context.Background(), 1, 5)
	require.ErrorIs(t, err, ErrInsufficientFunds)

	balance, err := svc.Balance(context.Background(), 1)
	require.NoError(t, err)
	require.Equal(t, int64(3), balance)
}

func TestGambleMovesExactlyTheStake(t *testing.T) {
	students := newMemStudentRepo(models.Student{ID: 1, BonusPoints: 10})
	ledger := &memLedger{}
	svc := newTestEconomy(students, ledger)

	result, err := svc.Gamble(context.Background(), 1, 4)
	require.NoError(t, err)

	if result.Won {
		require.Equal(t, int64(4), result.Delta)
		require.Equal(t, int64(14), result.Balance)
		require.Equal(t, models.PointsReasonGambleWin, ledger.lastReason())
	} else {
		require.Equal(t, int64(-4), result.Delta)
		require.Equal(t, int64(6), result.Balance)
		require.Equal(t, models.PointsReasonGambleLoss, ledger.lastReason())
	}

	balance, err := svc.Balance(context.Background(), 1)
	require.NoError(t, err)
	require.Equal(t, result.Balance, balance)
}
