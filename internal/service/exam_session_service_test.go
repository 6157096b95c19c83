package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stemsi/proctor-backend/internal/model"
	"github.com/stemsi/proctor-backend/internal/repository"
	"github.com/stemsi/proctor-backend/internal/session"
)

// stubExamStore serves one curated exam and keeps results in memory.
type stubExamStore struct {
	mu          sync.Mutex
	exam        *model.Exam
	questions   []model.Question
	results     map[session.AttemptKey]*model.Result
	createDelay time.Duration
	creates     int
}

func (s *stubExamStore) GetExam(_ context.Context, id uuid.UUID) (*model.Exam, error) {
	if id != s.exam.ID {
		return nil, model.ErrNotFound
	}
	return s.exam, nil
}

func (s *stubExamStore) GetQuestionsByCourses(context.Context, []uuid.UUID) ([]model.Question, error) {
	return s.questions, nil
}

func (s *stubExamStore) GetFixedQuestionList(context.Context, uuid.UUID) ([]model.Question, error) {
	return s.questions, nil
}

func (s *stubExamStore) GetAssignment(context.Context, uuid.UUID, uuid.UUID) ([]model.Question, error) {
	return nil, nil
}

func (s *stubExamStore) CreateAssignmentRows(context.Context, uuid.UUID, uuid.UUID, []uuid.UUID) error {
	return nil
}

func (s *stubExamStore) GetResult(_ context.Context, studentID, examID uuid.UUID) (*model.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.results[session.AttemptKey{StudentID: studentID, ExamID: examID}]
	if !ok {
		return nil, model.ErrNotFound
	}
	return r, nil
}

func (s *stubExamStore) CreateResult(_ context.Context, r *model.Result) error {
	s.mu.Lock()
	delay := s.createDelay
	s.mu.Unlock()
	time.Sleep(delay)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.creates++
	r.ID = uuid.New()
	s.results[session.AttemptKey{StudentID: r.StudentID, ExamID: r.ExamID}] = r
	return nil
}

func (s *stubExamStore) IsEligible(context.Context, uuid.UUID, *model.Exam) (bool, error) {
	return true, nil
}

func newTestSessionService(t *testing.T, opts ...session.EngineOption) (*ExamSessionService, *stubExamStore) {
	t.Helper()

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	course := uuid.New()
	store := &stubExamStore{
		exam: &model.Exam{ID: uuid.New(), Title: "Physics quiz", CourseIDs: []uuid.UUID{course}, DurationMinutes: 20},
		questions: []model.Question{
			{ID: uuid.New(), CourseID: course, Difficulty: model.DifficultyEasy, Text: "g?",
				Options: model.Options{A: "9.8", B: "1", C: "0", D: "42"}, CorrectOption: model.OptionA},
			{ID: uuid.New(), CourseID: course, Difficulty: model.DifficultyHard, Text: "c?",
				Options: model.Options{A: "1", B: "3e8", C: "0", D: "42"}, CorrectOption: model.OptionB},
		},
		results: map[session.AttemptKey]*model.Result{},
	}

	engine := session.NewEngine(store, repository.NewAttemptStateRepository(rdb), session.Config{
		ViolationLimit: 3,
		TickInterval:   time.Hour,
		RetryInterval:  time.Second,
	}, zerolog.Nop(), opts...)

	svc := NewExamSessionService(engine, zerolog.Nop())
	t.Cleanup(svc.Shutdown)
	return svc, store
}

func TestExamSessionServiceLifecycle(t *testing.T) {
	ctx := context.Background()
	svc, store := newTestSessionService(t)
	claims := &Claims{UserID: uuid.New(), Role: model.RoleStudent}
	examID := store.exam.ID

	if _, err := svc.View(claims.UserID, examID); !errors.Is(err, ErrNoLiveSession) {
		t.Fatalf("View before Enter: got %v, want ErrNoLiveSession", err)
	}

	v, err := svc.Enter(ctx, claims, examID, true)
	if err != nil {
		t.Fatalf("Enter: %v", err)
	}
	if v.State != session.StateActive || len(v.Questions) != 2 {
		t.Fatalf("view = %+v", v)
	}

	events, cancel, err := svc.Subscribe(claims.UserID, examID)
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	defer cancel()

	if err := svc.Answer(ctx, claims.UserID, examID, store.questions[1].ID, model.OptionB); err != nil {
		t.Fatalf("Answer: %v", err)
	}

	v, err = svc.Finish(ctx, claims.UserID, examID)
	if err != nil {
		t.Fatalf("Finish: %v", err)
	}
	if v.Result == nil || v.Result.Score != 1 || v.Result.Total != 2 {
		t.Fatalf("result = %+v", v.Result)
	}

	var last session.Event
	for ev := range events {
		last = ev
	}
	if last.Type != session.EventSubmitted {
		t.Fatalf("last event = %s, want submitted", last.Type)
	}
	if svc.LiveCount() != 0 {
		t.Fatalf("finished session still registered")
	}

	v, err = svc.Enter(ctx, claims, examID, true)
	if err != nil {
		t.Fatalf("re-Enter: %v", err)
	}
	if v.State != session.StateRejected || v.Reason != session.ReasonAlreadyCompleted {
		t.Fatalf("re-Enter view = %s/%s", v.State, v.Reason)
	}
}

func TestExamSessionServiceReplacesPreviousLoad(t *testing.T) {
	ctx := context.Background()
	svc, store := newTestSessionService(t)
	claims := &Claims{UserID: uuid.New(), Role: model.RoleStudent}
	examID := store.exam.ID

	if _, err := svc.Enter(ctx, claims, examID, true); err != nil {
		t.Fatalf("Enter: %v", err)
	}
	oldEvents, _, err := svc.Subscribe(claims.UserID, examID)
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	if err := svc.Answer(ctx, claims.UserID, examID, store.questions[0].ID, model.OptionC); err != nil {
		t.Fatalf("Answer: %v", err)
	}

	v, err := svc.Enter(ctx, claims, examID, false)
	if err != nil {
		t.Fatalf("second Enter: %v", err)
	}
	if v.State != session.StateGated {
		t.Fatalf("state = %s, want gated", v.State)
	}

	select {
	case _, ok := <-oldEvents:
		if ok {
			t.Fatal("old subscription received an event instead of closing")
		}
	case <-time.After(time.Second):
		t.Fatal("old subscription not closed")
	}

	v, err = svc.SetFullscreen(claims.UserID, examID, true)
	if err != nil {
		t.Fatalf("SetFullscreen: %v", err)
	}
	if v.Answers[store.questions[0].ID] != model.OptionC {
		t.Fatalf("answers not restored: %v", v.Answers)
	}
	if svc.LiveCount() != 1 {
		t.Fatalf("live = %d, want 1", svc.LiveCount())
	}
}

func TestExamSessionServiceRejectsAdmin(t *testing.T) {
	svc, store := newTestSessionService(t)
	claims := &Claims{UserID: uuid.New(), Role: model.RoleAdmin}

	v, err := svc.Enter(context.Background(), claims, store.exam.ID, true)
	if err != nil {
		t.Fatalf("Enter: %v", err)
	}
	if v.Reason != session.ReasonUnauthorized || svc.LiveCount() != 0 {
		t.Fatalf("got %s with %d live", v.Reason, svc.LiveCount())
	}
}

func TestExamSessionServiceReloadDuringSlowSubmit(t *testing.T) {
	ctx := context.Background()

	var clockMu sync.Mutex
	now := time.Now()
	clock := func() time.Time {
		clockMu.Lock()
		defer clockMu.Unlock()
		return now
	}

	svc, store := newTestSessionService(t, session.WithClock(clock))
	claims := &Claims{UserID: uuid.New(), Role: model.RoleStudent}
	examID := store.exam.ID

	if _, err := svc.Enter(ctx, claims, examID, true); err != nil {
		t.Fatalf("Enter: %v", err)
	}

	store.mu.Lock()
	store.createDelay = 100 * time.Millisecond
	store.mu.Unlock()
	clockMu.Lock()
	now = now.Add(21 * time.Minute)
	clockMu.Unlock()

	finished := make(chan error, 1)
	go func() {
		_, err := svc.Finish(ctx, claims.UserID, examID)
		finished <- err
	}()

	// Reload while the first load is still writing its result.
	time.Sleep(20 * time.Millisecond)
	v, err := svc.Enter(ctx, claims, examID, true)
	if err != nil {
		t.Fatalf("reload Enter: %v", err)
	}
	if err := <-finished; err != nil {
		t.Fatalf("Finish: %v", err)
	}

	store.mu.Lock()
	creates := store.creates
	stored := store.results[session.AttemptKey{StudentID: claims.UserID, ExamID: examID}]
	store.mu.Unlock()

	if creates != 1 {
		t.Fatalf("CreateResult called %d times, want 1", creates)
	}
	if v.Disposition != model.DispositionAlreadyCompleted {
		t.Fatalf("reload disposition = %s, want %s", v.Disposition, model.DispositionAlreadyCompleted)
	}
	if v.Result == nil || stored == nil || v.Result.ID != stored.ID {
		t.Fatalf("reload result = %+v, stored = %+v", v.Result, stored)
	}
}
