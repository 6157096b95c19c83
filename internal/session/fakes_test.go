package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stemsi/proctor-backend/internal/model"
)

var errStoreDown = errors.New("store unavailable")

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

type memoryAttempts struct {
	mu          sync.Mutex
	deadlines   map[AttemptKey]time.Time
	answers     map[AttemptKey]model.Answers
	violations  map[AttemptKey]int
	failSaves   int
	saveAttempt int
}

func newMemoryAttempts() *memoryAttempts {
	return &memoryAttempts{
		deadlines:  map[AttemptKey]time.Time{},
		answers:    map[AttemptKey]model.Answers{},
		violations: map[AttemptKey]int{},
	}
}

func (m *memoryAttempts) LoadDeadline(_ context.Context, key AttemptKey) (time.Time, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.deadlines[key]
	return d, ok, nil
}

func (m *memoryAttempts) InitDeadline(_ context.Context, key AttemptKey, deadline time.Time) (time.Time, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if d, ok := m.deadlines[key]; ok {
		return d, nil
	}
	m.deadlines[key] = deadline
	return deadline, nil
}

func (m *memoryAttempts) SaveAnswer(_ context.Context, key AttemptKey, questionID uuid.UUID, label model.OptionLabel) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saveAttempt++
	if m.failSaves > 0 {
		m.failSaves--
		return errStoreDown
	}
	if m.answers[key] == nil {
		m.answers[key] = model.Answers{}
	}
	m.answers[key][questionID] = label
	return nil
}

func (m *memoryAttempts) LoadAnswers(_ context.Context, key AttemptKey) (model.Answers, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.answers[key].Clone(), nil
}

func (m *memoryAttempts) SaveViolations(_ context.Context, key AttemptKey, count int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.violations[key] = count
	return nil
}

func (m *memoryAttempts) LoadViolations(_ context.Context, key AttemptKey) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.violations[key], nil
}

func (m *memoryAttempts) Clear(_ context.Context, key AttemptKey) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.deadlines, key)
	delete(m.answers, key)
	delete(m.violations, key)
	return nil
}

type fakeExamStore struct {
	mu          sync.Mutex
	exams       map[uuid.UUID]*model.Exam
	bank        []model.Question
	fixed       map[uuid.UUID][]uuid.UUID
	assignments map[AttemptKey][]uuid.UUID
	results     map[AttemptKey]*model.Result
	ineligible  bool

	createResultCalls int
	failCreate        int
	assignmentWrites  int
	createDelay       time.Duration
	staleReads        int
}

func newFakeExamStore() *fakeExamStore {
	return &fakeExamStore{
		exams:       map[uuid.UUID]*model.Exam{},
		fixed:       map[uuid.UUID][]uuid.UUID{},
		assignments: map[AttemptKey][]uuid.UUID{},
		results:     map[AttemptKey]*model.Result{},
	}
}

func (f *fakeExamStore) question(id uuid.UUID) (model.Question, bool) {
	for _, q := range f.bank {
		if q.ID == id {
			return q, true
		}
	}
	return model.Question{}, false
}

func (f *fakeExamStore) GetExam(_ context.Context, examID uuid.UUID) (*model.Exam, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	e, ok := f.exams[examID]
	if !ok {
		return nil, model.ErrNotFound
	}
	return e, nil
}

func (f *fakeExamStore) GetQuestionsByCourses(_ context.Context, courseIDs []uuid.UUID) ([]model.Question, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.Question
	for _, q := range f.bank {
		for _, c := range courseIDs {
			if q.CourseID == c {
				out = append(out, q)
				break
			}
		}
	}
	return out, nil
}

func (f *fakeExamStore) GetFixedQuestionList(_ context.Context, examID uuid.UUID) ([]model.Question, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.Question
	for _, id := range f.fixed[examID] {
		if q, ok := f.question(id); ok {
			out = append(out, q)
		}
	}
	return out, nil
}

func (f *fakeExamStore) GetAssignment(_ context.Context, studentID, examID uuid.UUID) ([]model.Question, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.Question
	for _, id := range f.assignments[AttemptKey{StudentID: studentID, ExamID: examID}] {
		if q, ok := f.question(id); ok {
			out = append(out, q)
		}
	}
	return out, nil
}

func (f *fakeExamStore) CreateAssignmentRows(_ context.Context, studentID, examID uuid.UUID, questionIDs []uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.assignmentWrites++
	key := AttemptKey{StudentID: studentID, ExamID: examID}
	f.assignments[key] = append(f.assignments[key], questionIDs...)
	return nil
}

func (f *fakeExamStore) GetResult(_ context.Context, studentID, examID uuid.UUID) (*model.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.staleReads > 0 {
		f.staleReads--
		return nil, model.ErrNotFound
	}
	r, ok := f.results[AttemptKey{StudentID: studentID, ExamID: examID}]
	if !ok {
		return nil, model.ErrNotFound
	}
	return r, nil
}

func (f *fakeExamStore) CreateResult(_ context.Context, result *model.Result) error {
	f.mu.Lock()
	delay := f.createDelay
	f.mu.Unlock()
	time.Sleep(delay)

	f.mu.Lock()
	defer f.mu.Unlock()
	f.createResultCalls++
	if f.failCreate > 0 {
		f.failCreate--
		return errStoreDown
	}
	key := AttemptKey{StudentID: result.StudentID, ExamID: result.ExamID}
	if _, ok := f.results[key]; ok {
		return ErrResultExists
	}
	result.ID = uuid.New()
	f.results[key] = result
	return nil
}

func (f *fakeExamStore) IsEligible(_ context.Context, _ uuid.UUID, _ *model.Exam) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return !f.ineligible, nil
}

func (f *fakeExamStore) resultCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.results)
}

// addBank appends n questions of tier d for course, all with correct option A.
func (f *fakeExamStore) addBank(course uuid.UUID, d model.Difficulty, n int) []model.Question {
	f.mu.Lock()
	defer f.mu.Unlock()
	added := make([]model.Question, n)
	for i := range added {
		added[i] = newQuestion(course, d, model.OptionA)
	}
	f.bank = append(f.bank, added...)
	return added
}

func newQuestion(course uuid.UUID, d model.Difficulty, correct model.OptionLabel) model.Question {
	return model.Question{
		ID:            uuid.New(),
		CourseID:      course,
		Difficulty:    d,
		Text:          "What is the answer?",
		Options:       model.Options{A: "one", B: "two", C: "three", D: "four"},
		CorrectOption: correct,
	}
}

type eventLog struct {
	mu     sync.Mutex
	events []Event
}

func (l *eventLog) notify(ev Event) {
	l.mu.Lock()
	l.events = append(l.events, ev)
	l.mu.Unlock()
}

func (l *eventLog) count(t EventType) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	n := 0
	for _, ev := range l.events {
		if ev.Type == t {
			n++
		}
	}
	return n
}

type recordedViolations struct {
	mu     sync.Mutex
	counts []int
}

func (r *recordedViolations) RecordViolation(_ context.Context, _ AttemptKey, count int, _ time.Time) {
	r.mu.Lock()
	r.counts = append(r.counts, count)
	r.mu.Unlock()
}

// fixture is a fixed-list exam with five questions, all correct on A.
type fixture struct {
	store    *fakeExamStore
	attempts *memoryAttempts
	clock    *fakeClock
	engine   *Engine
	exam     *model.Exam
	student  *Identity
	events   *eventLog
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	store := newFakeExamStore()
	attempts := newMemoryAttempts()
	clk := newFakeClock()

	course := uuid.New()
	qs := store.addBank(course, model.DifficultyEasy, 5)
	exam := &model.Exam{
		ID:              uuid.New(),
		Title:           "Algebra midterm",
		CourseIDs:       []uuid.UUID{course},
		DurationMinutes: 30,
	}
	store.exams[exam.ID] = exam
	for _, q := range qs {
		store.fixed[exam.ID] = append(store.fixed[exam.ID], q.ID)
	}

	engine := NewEngine(store, attempts, Config{
		ViolationLimit: 3,
		TickInterval:   time.Hour,
		RetryInterval:  5 * time.Second,
	}, zerolog.Nop(), WithClock(clk.Now), WithPool(NewQuestionPool(7, 11)))

	return &fixture{
		store:    store,
		attempts: attempts,
		clock:    clk,
		engine:   engine,
		exam:     exam,
		student:  &Identity{StudentID: uuid.New(), Role: model.RoleStudent},
		events:   &eventLog{},
	}
}

func (f *fixture) open(t *testing.T, fullscreen bool) *ExamSession {
	t.Helper()
	s, err := f.engine.Open(context.Background(), f.student, f.exam.ID, OpenOptions{
		Fullscreen: fullscreen,
		Notify:     f.events.notify,
	})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(s.Close)
	return s
}
