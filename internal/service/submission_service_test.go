package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/noah-isme/dojo-go-api/internal/dto"
	"github.com/noah-isme/dojo-go-api/internal/models"
	"github.com/noah-isme/dojo-go-api/internal/repository"
	"github.com/noah-isme/dojo-go-api/internal/session"
	"github.com/noah-isme/dojo-go-api/pkg/runner"
)

type fakeTaskRepo struct {
	tasks  map[uint]models.Task
	topics map[string]models.Topic
	nextID uint
}

func newFakeTaskRepo(tasks ...models.Task) *fakeTaskRepo {
	repo := &fakeTaskRepo{tasks: make(map[uint]models.Task), topics: make(map[string]models.Topic), nextID: 100}
	for _, task := range tasks {
		repo.tasks[task.ID] = task
	}
	return repo
}

func (r *fakeTaskRepo) GetByID(ctx context.Context, id uint) (models.Task, error) {
	task, ok := r.tasks[id]
	if !ok {
		return models.Task{}, gorm.ErrRecordNotFound
	}
	return task, nil
}

func (r *fakeTaskRepo) ListByTopic(ctx context.Context, topicID uint) ([]models.Task, error) {
	out := make([]models.Task, 0, len(r.tasks))
	for _, task := range r.tasks {
		if topicID == 0 || task.TopicID == topicID {
			out = append(out, task)
		}
	}
	return out, nil
}

func (r *fakeTaskRepo) Create(ctx context.Context, task *models.Task) error {
	r.nextID++
	task.ID = r.nextID
	r.tasks[task.ID] = *task
	return nil
}

func (r *fakeTaskRepo) ListTopics(ctx context.Context) ([]models.Topic, error) {
	out := make([]models.Topic, 0, len(r.topics))
	for _, topic := range r.topics {
		out = append(out, topic)
	}
	return out, nil
}

func (r *fakeTaskRepo) GetTopicByName(ctx context.Context, name string) (models.Topic, error) {
	topic, ok := r.topics[name]
	if !ok {
		return models.Topic{}, gorm.ErrRecordNotFound
	}
	return topic, nil
}

func (r *fakeTaskRepo) CreateTopic(ctx context.Context, topic *models.Topic) error {
	r.nextID++
	topic.ID = r.nextID
	r.topics[topic.Name] = *topic
	return nil
}

type fakeSubmissionRepo struct {
	created []models.Submission
}

func (r *fakeSubmissionRepo) Create(ctx context.Context, submission *models.Submission) error {
	submission.ID = uint(len(r.created) + 1)
	r.created = append(r.created, *submission)
	return nil
}

func (r *fakeSubmissionRepo) GetByID(ctx context.Context, id uint) (models.Submission, error) {
	for _, submission := range r.created {
		if submission.ID == id {
			return submission, nil
		}
	}
	return models.Submission{}, gorm.ErrRecordNotFound
}

func (r *fakeSubmissionRepo) ListByStudent(ctx context.Context, studentID uint, limit, offset int) ([]models.Submission, error) {
	out := make([]models.Submission, 0, len(r.created))
	for _, submission := range r.created {
		if submission.StudentID == studentID {
			out = append(out, submission)
		}
	}
	return out, nil
}

func (r *fakeSubmissionRepo) UpdateStaffFields(ctx context.Context, id uint, fields repository.StaffFields) (models.Submission, error) {
	for i := range r.created {
		if r.created[i].ID != id {
			continue
		}
		if fields.Approved != nil {
			r.created[i].Approved = *fields.Approved
		}
		if fields.Feedback != nil {
			r.created[i].Feedback = *fields.Feedback
			r.created[i].CheatFlagged = models.DeriveCheatFlag(*fields.Feedback)
		}
		if fields.BonusAwarded != nil {
			r.created[i].BonusAwarded = *fields.BonusAwarded
		}
		return r.created[i], nil
	}
	return models.Submission{}, gorm.ErrRecordNotFound
}

func (r *fakeSubmissionRepo) RedactOlderThan(ctx context.Context, cutoff time.Time, placeholder string) (int64, error) {
	var count int64
	for i := range r.created {
		if r.created[i].SubmittedAt.Before(cutoff) && r.created[i].Code != placeholder {
			r.created[i].Code = placeholder
			count++
		}
	}
	return count, nil
}

type fakeRunner struct {
	result   runner.Result
	lastCode string
	lastLang string
	calls    int
}

func (f *fakeRunner) Run(ctx context.Context, language, code, testCode string) runner.Result {
	f.calls++
	f.lastLang = language
	f.lastCode = code
	return f.result
}

type pipelineFixture struct {
	students    *memStudentRepo
	ledger      *memLedger
	tasks       *fakeTaskRepo
	submissions *fakeSubmissionRepo
	runner      *fakeRunner
	store       *session.Store
	economy     EconomyService
	sessions    SessionService
	service     *submissionService
	clock       time.Time
}

func (f *pipelineFixture) advance(d time.Duration) {
	f.clock = f.clock.Add(d)
}

func newPipelineFixture(t *testing.T) *pipelineFixture {
	t.Helper()

	fixture := &pipelineFixture{
		students: newMemStudentRepo(models.Student{ID: 1, Name: "Ada", BonusPoints: 10}),
		ledger:   &memLedger{},
		tasks: newFakeTaskRepo(models.Task{
			ID:       7,
			Title:    "py-sum",
			TestCode: "assert add(1, 2) == 3\nprint('✅ All tests passed')",
			Language: models.TaskLanguagePython,
		}),
		submissions: &fakeSubmissionRepo{},
		runner:      &fakeRunner{result: runner.Result{Passed: true, Output: "✅ All tests passed"}},
		store:       session.NewStore(),
		clock:       time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
	}

	fixture.economy = NewEconomyService(fixture.students, fixture.ledger, zerolog.Nop())
	sessions := NewSessionService(fixture.store, fixture.tasks, fixture.economy, zerolog.Nop()).(*sessionService)
	sessions.now = func() time.Time { return fixture.clock }
	fixture.sessions = sessions

	svc := NewSubmissionService(
		fixture.submissions,
		fixture.tasks,
		fixture.students,
		fixture.store,
		fixture.runner,
		fixture.economy,
		nil,
		zerolog.Nop(),
		SubmissionConfig{TimedWindow: 10 * time.Minute},
	).(*submissionService)
	svc.now = func() time.Time { return fixture.clock }
	fixture.service = svc

	return fixture
}

func (f *pipelineFixture) balance(t *testing.T) int64 {
	t.Helper()
	balance, err := f.economy.Balance(context.Background(), 1)
	require.NoError(t, err)
	return balance
}

func TestSubmitTimedPassInsideWindowPaysBonus(t *testing.T) {
	fixture := newPipelineFixture(t)

	_, err := fixture.sessions.Open(context.Background(), 1, 7, session.ModeTimed, 2)
	require.NoError(t, err)
	require.Equal(t, int64(8), fixture.balance(t), "stake escrowed on open")

	fixture.advance(59 * time.Second)
	result, err := fixture.service.Submit(context.Background(), 1, "student", dto.SubmissionRequest{TaskID: 7, Code: "def add(a, b):\n    return a + b"})
	require.NoError(t, err)

	require.True(t, result.Passed)
	require.Equal(t, int64(5), result.Bonus, "1 + 2x the bet")
	require.Equal(t, int64(13), fixture.balance(t))
	require.Equal(t, 1, result.Streak)

	_, open := fixture.sessions.Get(1, 7)
	require.False(t, open, "submission consumes the session")
}

func TestSubmitTimedPassAfterWindowForfeitsStake(t *testing.T) {
	fixture := newPipelineFixture(t)

	_, err := fixture.sessions.Open(context.Background(), 1, 7, session.ModeTimed, 2)
	require.NoError(t, err)

	fixture.advance(601 * time.Second)
	result, err := fixture.service.Submit(context.Background(), 1, "student", dto.SubmissionRequest{TaskID: 7, Code: "def add(a, b):\n    return a + b"})
	require.NoError(t, err)

	require.True(t, result.Passed)
	require.Zero(t, result.Bonus)
	require.Contains(t, result.BonusNote, "forfeited")
	require.Equal(t, int64(8), fixture.balance(t), "stake stays spent, no bonus")
}

func TestSubmitFailResetsStreakAndForfeitsStake(t *testing.T) {
	fixture := newPipelineFixture(t)
	fixture.students.students[1].Streak = 3
	fixture.runner.result = runner.Result{Passed: false, Output: "AssertionError"}

	_, err := fixture.sessions.Open(context.Background(), 1, 7, session.ModeTimed, 2)
	require.NoError(t, err)

	result, err := fixture.service.Submit(context.Background(), 1, "student", dto.SubmissionRequest{TaskID: 7, Code: "def add(a, b):\n    return a - b"})
	require.NoError(t, err)

	require.False(t, result.Passed)
	require.Zero(t, result.Streak)
	require.Equal(t, 0, fixture.students.students[1].Streak)
	require.Equal(t, int64(8), fixture.balance(t))

	_, open := fixture.sessions.Get(1, 7)
	require.False(t, open, "failed submission still consumes the session")
}

func TestSubmitStreakChestAtMultipleOfFive(t *testing.T) {
	fixture := newPipelineFixture(t)
	fixture.students.students[1].Streak = 4
	fixture.economy.(*economyService).spinTable = []spinOutcome{{Delta: 10, Weight: 1}}

	result, err := fixture.service.Submit(context.Background(), 1, "student", dto.SubmissionRequest{TaskID: 7, Code: "def add(a, b):\n    return a + b"})
	require.NoError(t, err)

	require.Equal(t, 5, result.Streak)
	require.NotNil(t, result.ChestDelta)
	require.Equal(t, int64(10), *result.ChestDelta)
	require.Equal(t, int64(20), fixture.balance(t))
}

func TestSubmitNoChestOffMilestone(t *testing.T) {
	fixture := newPipelineFixture(t)
	fixture.students.students[1].Streak = 2

	result, err := fixture.service.Submit(context.Background(), 1, "student", dto.SubmissionRequest{TaskID: 7, Code: "def add(a, b):\n    return a + b"})
	require.NoError(t, err)

	require.Equal(t, 3, result.Streak)
	require.Nil(t, result.ChestDelta)
}

func TestSubmitUnregisteredStudentIsPreviewOnly(t *testing.T) {
	fixture := newPipelineFixture(t)

	result, err := fixture.service.Submit(context.Background(), 99, "student", dto.SubmissionRequest{TaskID: 7, Code: "def add(a, b):\n    return a + b"})
	require.NoError(t, err)

	require.True(t, result.Preview)
	require.True(t, result.Passed)
	require.Zero(t, result.SubmissionID)
	require.Empty(t, fixture.submissions.created, "previews are never persisted")
	require.Empty(t, fixture.ledger.entries)
}

func TestSubmitPreviewConsumesOpenSession(t *testing.T) {
	fixture := newPipelineFixture(t)

	// An untimed open never touches the ledger, so nothing stops an
	// unregistered caller from holding one.
	_, err := fixture.sessions.Open(context.Background(), 99, 7, session.ModeUntimed, 0)
	require.NoError(t, err)

	result, err := fixture.service.Submit(context.Background(), 99, "student", dto.SubmissionRequest{TaskID: 7, Code: "def add(a, b):\n    return a + b"})
	require.NoError(t, err)
	require.True(t, result.Preview)

	_, exists := fixture.store.Get(99, 7)
	require.False(t, exists, "submitting consumes the attempt even on the preview path")
}

func TestSubmitStaffWithoutAccountIsPreviewOnly(t *testing.T) {
	fixture := newPipelineFixture(t)

	result, err := fixture.service.Submit(context.Background(), 42, "teacher", dto.SubmissionRequest{TaskID: 7, Code: "def add(a, b):\n    return a + b"})
	require.NoError(t, err)

	require.True(t, result.Preview)
	require.True(t, result.Passed)
	require.Zero(t, result.Streak, "no student row means no streak to advance")
	require.Empty(t, fixture.submissions.created)
	require.Empty(t, fixture.ledger.entries)
}

func TestSubmitUnknownTaskRunsNothing(t *testing.T) {
	fixture := newPipelineFixture(t)

	_, err := fixture.service.Submit(context.Background(), 1, "student", dto.SubmissionRequest{TaskID: 404, Code: "x"})
	require.ErrorIs(t, err, ErrTaskNotFound)
	require.Zero(t, fixture.runner.calls)
	require.Empty(t, fixture.submissions.created)
}

func TestSubmitStripsCodeFencePreservingInterior(t *testing.T) {
	fixture := newPipelineFixture(t)

	fenced := "```python\ndef add_all(a, b):\n    return a + b\n```"
	_, err := fixture.service.Submit(context.Background(), 1, "student", dto.SubmissionRequest{TaskID: 7, Code: fenced})
	require.NoError(t, err)

	require.Equal(t, "def add_all(a, b):\n    return a + b", fixture.runner.lastCode)
	require.Equal(t, "python", fixture.runner.lastLang)
}

func TestSubmitTruncatesStoredAndDisplayedOutput(t *testing.T) {
	fixture := newPipelineFixture(t)
	fixture.service.config.StoredOutputLimit = 50
	fixture.service.config.DisplayOutputLimit = 10
	fixture.runner.result = runner.Result{Passed: false, Output: strings.Repeat("x", 200)}

	result, err := fixture.service.Submit(context.Background(), 1, "student", dto.SubmissionRequest{TaskID: 7, Code: "pass"})
	require.NoError(t, err)

	require.Len(t, result.Output, 10)
	require.Len(t, fixture.submissions.created[0].Output, 50)
}

func TestStripCodeFence(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{"no fence", "print(1)", "print(1)"},
		{"plain fence", "```\nprint(1)\n```", "print(1)"},
		{"language tag", "```python\nprint(1)\n```", "print(1)"},
		{"unterminated", "```python\nprint(1)", "```python\nprint(1)"},
		{"underscores kept", "```python\nsnake_case_name = 1\n```", "snake_case_name = 1"},
		{"interior backticks kept", "```\ncode = \"`x`\"\n```", "code = \"`x`\""},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, stripCodeFence(tc.in))
		})
	}
}

func TestSessionOpenRejectsWithoutFunds(t *testing.T) {
	fixture := newPipelineFixture(t)

	_, err := fixture.sessions.Open(context.Background(), 1, 7, session.ModeTimed, 50)
	require.ErrorIs(t, err, ErrInsufficientFunds)

	_, open := fixture.sessions.Get(1, 7)
	require.False(t, open, "rejected open leaves no session behind")
	require.Equal(t, int64(10), fixture.balance(t))
}

func TestSessionResetRefundsStake(t *testing.T) {
	fixture := newPipelineFixture(t)

	_, err := fixture.sessions.Open(context.Background(), 1, 7, session.ModeTimed, 3)
	require.NoError(t, err)
	require.Equal(t, int64(7), fixture.balance(t))

	require.NoError(t, fixture.sessions.Reset(context.Background(), 1, 7))
	require.Equal(t, int64(10), fixture.balance(t))

	require.ErrorIs(t, fixture.sessions.Reset(context.Background(), 1, 7), ErrSessionNotFound)
}

func TestSessionOpenDuplicateRejected(t *testing.T) {
	fixture := newPipelineFixture(t)

	_, err := fixture.sessions.Open(context.Background(), 1, 7, session.ModeUntimed, 0)
	require.NoError(t, err)

	_, err = fixture.sessions.Open(context.Background(), 1, 7, session.ModeTimed, 2)
	require.ErrorIs(t, err, ErrSessionExists)
	require.Equal(t, int64(10), fixture.balance(t), "no escrow on rejected open")
}

func TestSessionUntimedCoercesBetToZero(t *testing.T) {
	fixture := newPipelineFixture(t)

	state, err := fixture.sessions.Open(context.Background(), 1, 7, session.ModeUntimed, 9)
	require.NoError(t, err)
	require.Zero(t, state.Bet)
	require.Equal(t, int64(10), fixture.balance(t))
}
