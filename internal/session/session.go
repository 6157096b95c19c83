// Package session runs one student's attempt at one exam: question
// resolution, the countdown, answer journaling, integrity enforcement and
// the single scored submission.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stemsi/proctor-backend/internal/model"
)

// State is the lifecycle position of an ExamSession.
type State string

const (
	StateInitializing State = "initializing"
	StateGated        State = "gated"
	StateActive       State = "active"
	StateSubmitting   State = "submitting"
	StateDone         State = "done"
	StateRejected     State = "rejected"
)

// RejectReason explains why a session never became interactive.
type RejectReason string

const (
	ReasonUnauthorized     RejectReason = "unauthorized"
	ReasonAlreadyCompleted RejectReason = "already-completed"
	ReasonNotFound         RejectReason = "not-found"
	ReasonNotEligible      RejectReason = "not-eligible"
	ReasonInactiveWindow   RejectReason = "inactive-window"
)

// EventType names a notification pushed to the session's subscriber.
type EventType string

const (
	EventTick         EventType = "tick"
	EventWarning      EventType = "warning"
	EventGated        EventType = "gated"
	EventActive       EventType = "active"
	EventSubmitted    EventType = "submitted"
	EventSubmitFailed EventType = "submit_failed"
	EventRejected     EventType = "rejected"
)

// Event is a user-facing notification produced by the session.
type Event struct {
	Type             EventType         `json:"event"`
	RemainingSeconds int               `json:"remaining_seconds"`
	Violations       int               `json:"violations,omitempty"`
	ViolationsLeft   int               `json:"violations_left,omitempty"`
	Disposition      model.Disposition `json:"disposition,omitempty"`
	Reason           RejectReason      `json:"reason,omitempty"`
	Result           *model.Result     `json:"result,omitempty"`
	Message          string            `json:"message,omitempty"`
}

// Config holds the tunables of every session created by an Engine.
type Config struct {
	ViolationLimit int
	TickInterval   time.Duration
	RetryInterval  time.Duration
	JournalRetries int
}

// Engine builds ExamSessions over shared stores.
type Engine struct {
	store    ExamStore
	attempts AttemptStore
	pool     *QuestionPool
	ledger   *AssignmentLedger
	clock    *SessionClock
	recorder ViolationRecorder
	now      func() time.Time
	cfg      Config
	log      zerolog.Logger

	locksMu sync.Mutex
	locks   map[AttemptKey]*attemptLock
}

// attemptLock serializes result writes of one attempt across the sessions
// of this process. refs counts holders and waiters.
type attemptLock struct {
	mu   sync.Mutex
	refs int
}

// EngineOption customizes an Engine.
type EngineOption func(*Engine)

// WithClock replaces time.Now as the engine's time source.
func WithClock(now func() time.Time) EngineOption {
	return func(e *Engine) { e.now = now }
}

// WithPool sets the question pool used for draws and shuffles.
func WithPool(p *QuestionPool) EngineOption {
	return func(e *Engine) { e.pool = p }
}

// WithRecorder sets the sink for counted integrity violations.
func WithRecorder(r ViolationRecorder) EngineOption {
	return func(e *Engine) { e.recorder = r }
}

// NewEngine creates a new Engine.
func NewEngine(store ExamStore, attempts AttemptStore, cfg Config, log zerolog.Logger, opts ...EngineOption) *Engine {
	if cfg.TickInterval <= 0 {
		cfg.TickInterval = time.Second
	}
	if cfg.RetryInterval <= 0 {
		cfg.RetryInterval = 5 * time.Second
	}
	if cfg.ViolationLimit <= 0 {
		cfg.ViolationLimit = 3
	}

	e := &Engine{
		store:    store,
		attempts: attempts,
		now:      time.Now,
		cfg:      cfg,
		log:      log.With().Str("component", "exam_session").Logger(),
		locks:    make(map[AttemptKey]*attemptLock),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.pool == nil {
		e.pool = NewRandomQuestionPool()
	}
	e.ledger = NewAssignmentLedger(store, e.pool, log)
	e.clock = NewSessionClock(attempts, e.now)
	return e
}

// OpenOptions are the client conditions at load time.
type OpenOptions struct {
	Fullscreen bool
	// Notify receives every event. It is called without the session lock
	// held and must not block for long.
	Notify func(Event)
}

// ExamSession is one live attempt.
type ExamSession struct {
	engine *Engine
	key    AttemptKey
	notify func(Event)
	log    zerolog.Logger

	mu           sync.Mutex
	state        State
	reason       RejectReason
	disposition  model.Disposition
	exam         *model.Exam
	questions    []model.Question
	index        map[uuid.UUID]*model.Question
	current      int
	deadline     time.Time
	journal      *AnswerJournal
	monitor      *IntegrityMonitor
	result       *model.Result
	lastErr      error
	retryAt      time.Time
	closed       bool
	ctx          context.Context
	cancel       context.CancelFunc
	writes       sync.WaitGroup
	loopStarted  bool
	loopFinished chan struct{}
}

// Open resolves the attempt for identity and exam. Infrastructure failures
// are returned as errors; every other outcome is a session, possibly Rejected.
func (e *Engine) Open(ctx context.Context, id *Identity, examID uuid.UUID, opts OpenOptions) (*ExamSession, error) {
	s := &ExamSession{
		engine:       e,
		notify:       opts.Notify,
		state:        StateInitializing,
		loopFinished: make(chan struct{}),
	}
	s.ctx, s.cancel = context.WithCancel(context.Background())

	if id == nil || id.Role != model.RoleStudent {
		s.key = AttemptKey{ExamID: examID}
		s.log = e.log.With().Str("exam_id", examID.String()).Logger()
		return s.reject(ReasonUnauthorized), nil
	}
	s.key = AttemptKey{StudentID: id.StudentID, ExamID: examID}
	s.log = e.log.With().
		Str("student_id", id.StudentID.String()).
		Str("exam_id", examID.String()).
		Logger()

	existing, err := e.store.GetResult(ctx, id.StudentID, examID)
	switch {
	case err == nil:
		s.result = existing
		s.disposition = model.DispositionAlreadyCompleted
		return s.reject(ReasonAlreadyCompleted), nil
	case !errors.Is(err, model.ErrNotFound):
		s.cancel()
		return nil, fmt.Errorf("get result: %w", err)
	}

	exam, err := e.store.GetExam(ctx, examID)
	if errors.Is(err, model.ErrNotFound) {
		return s.reject(ReasonNotFound), nil
	}
	if err != nil {
		s.cancel()
		return nil, fmt.Errorf("get exam: %w", err)
	}
	s.exam = exam

	eligible, err := e.store.IsEligible(ctx, id.StudentID, exam)
	if err != nil {
		s.cancel()
		return nil, fmt.Errorf("check eligibility: %w", err)
	}
	if !eligible {
		return s.reject(ReasonNotEligible), nil
	}

	// The window only gates the first entry; an attempt already under way
	// may continue after the window closes.
	_, started, err := e.attempts.LoadDeadline(ctx, s.key)
	if err != nil {
		s.cancel()
		return nil, fmt.Errorf("load deadline: %w", err)
	}
	if !started && !exam.ActiveAt(e.now()) {
		return s.reject(ReasonInactiveWindow), nil
	}

	questions, err := e.resolveQuestions(ctx, id.StudentID, exam)
	if err != nil {
		s.cancel()
		return nil, err
	}
	if len(questions) == 0 {
		return s.reject(ReasonNotFound), nil
	}
	if exam.Shuffled {
		questions = e.pool.Shuffle(questions)
	}

	deadline, err := e.clock.Deadline(ctx, s.key, exam.Duration())
	if err != nil {
		s.cancel()
		return nil, fmt.Errorf("init deadline: %w", err)
	}

	s.journal = NewAnswerJournal(e.attempts, s.key, e.cfg.JournalRetries)
	if _, err := s.journal.LoadAll(ctx); err != nil {
		s.cancel()
		return nil, err
	}

	violations, err := e.attempts.LoadViolations(ctx, s.key)
	if err != nil {
		s.cancel()
		return nil, fmt.Errorf("load violations: %w", err)
	}

	s.questions = questions
	s.index = make(map[uuid.UUID]*model.Question, len(questions))
	for i := range s.questions {
		s.index[s.questions[i].ID] = &s.questions[i]
	}
	s.deadline = deadline
	s.monitor = NewIntegrityMonitor(e.cfg.ViolationLimit, violations)
	s.monitor.SetFullscreen(opts.Fullscreen)
	s.state = s.openState()

	s.log.Info().
		Str("state", string(s.state)).
		Int("questions", len(questions)).
		Time("deadline", deadline).
		Msg("Session opened")

	switch {
	case e.clock.Remaining(deadline) == 0:
		_ = s.submit(ctx, model.DispositionTimeout)
	case s.monitor.Exhausted():
		_ = s.submit(ctx, model.DispositionForced)
	}

	if !s.Terminal() {
		s.mu.Lock()
		s.loopStarted = true
		s.mu.Unlock()
		go s.run()
	}
	return s, nil
}

func (e *Engine) resolveQuestions(ctx context.Context, studentID uuid.UUID, exam *model.Exam) ([]model.Question, error) {
	if exam.Randomized {
		return e.ledger.GetOrCreate(ctx, studentID, exam.ID, exam.CourseIDs, exam.Counts)
	}
	questions, err := e.store.GetFixedQuestionList(ctx, exam.ID)
	if err != nil && !errors.Is(err, model.ErrNotFound) {
		return nil, fmt.Errorf("get fixed question list: %w", err)
	}
	return questions, nil
}

// lockAttempt blocks until the caller holds the attempt's result lock and
// returns its release func.
func (e *Engine) lockAttempt(key AttemptKey) func() {
	e.locksMu.Lock()
	l, ok := e.locks[key]
	if !ok {
		l = &attemptLock{}
		e.locks[key] = l
	}
	l.refs++
	e.locksMu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		e.locksMu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(e.locks, key)
		}
		e.locksMu.Unlock()
	}
}

// persistResult re-checks for a result written by a concurrent session and
// inserts res only when none exists. A non-nil returned result is the one
// that was already stored. Sessions of the same attempt in this process run
// the re-check and insert one at a time.
func (e *Engine) persistResult(ctx context.Context, res *model.Result) (*model.Result, error) {
	unlock := e.lockAttempt(AttemptKey{StudentID: res.StudentID, ExamID: res.ExamID})
	defer unlock()

	existing, err := e.store.GetResult(ctx, res.StudentID, res.ExamID)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, model.ErrNotFound) {
		return nil, fmt.Errorf("recheck result: %w", err)
	}

	err = e.store.CreateResult(ctx, res)
	if errors.Is(err, ErrResultExists) {
		// Another process won the insert.
		existing, err = e.store.GetResult(ctx, res.StudentID, res.ExamID)
		if err != nil {
			return nil, fmt.Errorf("read existing result: %w", err)
		}
		return existing, nil
	}
	if err != nil {
		return nil, fmt.Errorf("create result: %w", err)
	}
	return nil, nil
}

func (s *ExamSession) reject(reason RejectReason) *ExamSession {
	s.state = StateRejected
	s.reason = reason
	s.cancel()
	close(s.loopFinished)

	s.log.Info().Str("reason", string(reason)).Msg("Session rejected")

	ev := Event{Type: EventRejected, Reason: reason, Message: rejectMessage(reason)}
	if reason == ReasonAlreadyCompleted {
		ev.Disposition = model.DispositionAlreadyCompleted
		ev.Result = s.result
	}
	s.emit(ev)
	return s
}

// openState is Active with full screen engaged and Gated otherwise.
// Callers hold s.mu or own s exclusively.
func (s *ExamSession) openState() State {
	if s.monitor.Fullscreen() {
		return StateActive
	}
	return StateGated
}

func (s *ExamSession) emit(ev Event) {
	if s.notify != nil {
		s.notify(ev)
	}
}

// Key identifies the attempt this session serves.
func (s *ExamSession) Key() AttemptKey { return s.key }

// State returns the current lifecycle state.
func (s *ExamSession) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Terminal reports whether the session reached Done or Rejected.
func (s *ExamSession) Terminal() bool {
	st := s.State()
	return st == StateDone || st == StateRejected
}

// Answer records the selected option for a question. Only an Active session
// accepts answers.
func (s *ExamSession) Answer(ctx context.Context, questionID uuid.UUID, label model.OptionLabel) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrSessionClosed
	}
	if s.state != StateActive {
		s.mu.Unlock()
		return ErrNotActive
	}
	q, ok := s.index[questionID]
	if !ok {
		s.mu.Unlock()
		return ErrUnknownQuestion
	}
	if !q.Options.Has(label) {
		s.mu.Unlock()
		return ErrInvalidOption
	}
	s.writes.Add(1)
	s.mu.Unlock()
	defer s.writes.Done()

	if err := s.journal.Record(ctx, questionID, label); err != nil {
		s.log.Error().Err(err).Str("question_id", questionID.String()).Msg("Failed to record answer")
		return err
	}
	return nil
}

// Navigate moves the current question pointer.
func (s *ExamSession) Navigate(index int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrSessionClosed
	}
	if s.state != StateActive {
		return ErrNotActive
	}
	if index < 0 || index >= len(s.questions) {
		return ErrIndexOutOfRange
	}
	s.current = index
	return nil
}

// SetFullscreen reports a full-screen change and moves between Gated and Active.
func (s *ExamSession) SetFullscreen(on bool) State {
	s.mu.Lock()
	if s.closed || s.monitor == nil {
		st := s.state
		s.mu.Unlock()
		return st
	}
	s.monitor.SetFullscreen(on)

	var ev *Event
	switch {
	case on && s.state == StateGated:
		s.state = StateActive
		ev = &Event{Type: EventActive}
	case !on && s.state == StateActive:
		s.state = StateGated
		ev = &Event{Type: EventGated, Message: "Please enter full screen to continue the exam."}
	}
	st := s.state
	if ev != nil {
		ev.RemainingSeconds = Seconds(Remaining(s.deadline, s.engine.now()))
	}
	s.mu.Unlock()

	if ev != nil {
		s.emit(*ev)
	}
	return st
}

// ReportHidden counts one occurrence of the exam surface becoming hidden.
// Reports outside Gated and Active are ignored.
func (s *ExamSession) ReportHidden(ctx context.Context) Verdict {
	s.mu.Lock()
	if s.closed || (s.state != StateGated && s.state != StateActive) {
		v := Verdict{Kind: VerdictIgnored}
		if s.monitor != nil {
			v.Count, v.Remaining = s.monitor.Count(), s.monitor.Remaining()
		}
		s.mu.Unlock()
		return v
	}
	before := s.monitor.Count()
	v := s.monitor.Hidden()
	remaining := Seconds(Remaining(s.deadline, s.engine.now()))
	s.mu.Unlock()

	if v.Kind == VerdictIgnored {
		return v
	}

	// Reports past the threshold only retry the forced submission.
	if v.Count > before {
		if err := s.engine.attempts.SaveViolations(ctx, s.key, v.Count); err != nil {
			s.log.Warn().Err(err).Int("violations", v.Count).Msg("Failed to persist violation count")
		}
		if s.engine.recorder != nil {
			s.engine.recorder.RecordViolation(ctx, s.key, v.Count, s.engine.now())
		}
	}

	s.log.Warn().Int("violations", v.Count).Str("verdict", string(v.Kind)).Msg("Exam surface hidden")

	if v.Kind == VerdictWarned {
		s.emit(Event{
			Type:             EventWarning,
			RemainingSeconds: remaining,
			Violations:       v.Count,
			ViolationsLeft:   v.Remaining,
			Message: fmt.Sprintf("Warning %d/%d: do not leave the exam. Further switches will submit your exam automatically.",
				v.Count, s.engine.cfg.ViolationLimit),
		})
		return v
	}

	s.emit(Event{
		Type:             EventWarning,
		RemainingSeconds: remaining,
		Violations:       v.Count,
		Message:          "Auto-submitting due to multiple tab switches.",
	})
	_ = s.submit(ctx, model.DispositionForced)
	return v
}

// Finish submits the attempt at the student's request.
func (s *ExamSession) Finish(ctx context.Context) error {
	return s.submit(ctx, model.DispositionManual)
}

// submit scores the journal and writes the result. A duplicate trigger while
// Submitting is a no-op. On failure the session reopens and the last error is
// kept for the view.
func (s *ExamSession) submit(ctx context.Context, d model.Disposition) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrSessionClosed
	}
	switch s.state {
	case StateSubmitting:
		s.mu.Unlock()
		return nil
	case StateGated, StateActive:
	default:
		s.mu.Unlock()
		return ErrSessionClosed
	}
	if d == model.DispositionManual && s.state != StateActive {
		s.mu.Unlock()
		return ErrNotActive
	}
	s.state = StateSubmitting
	s.mu.Unlock()

	s.writes.Wait()

	answers := s.journal.Snapshot()
	score, total := Score(s.questions, answers)
	res := &model.Result{
		StudentID:   s.key.StudentID,
		ExamID:      s.key.ExamID,
		Score:       score,
		Total:       total,
		Answers:     answers,
		Disposition: d,
		CompletedAt: s.engine.now(),
	}

	existing, err := s.engine.persistResult(ctx, res)
	if err != nil {
		s.mu.Lock()
		s.state = s.openState()
		s.lastErr = err
		s.retryAt = s.engine.now().Add(s.engine.cfg.RetryInterval)
		remaining := Seconds(Remaining(s.deadline, s.engine.now()))
		s.mu.Unlock()

		s.log.Error().Err(err).Str("disposition", string(d)).Msg("Failed to submit exam")
		s.emit(Event{
			Type:             EventSubmitFailed,
			RemainingSeconds: remaining,
			Disposition:      d,
			Message:          "Failed to submit exam. Please try again.",
		})
		return fmt.Errorf("%w: %v", ErrSubmitFailed, err)
	}
	if existing != nil {
		res = existing
		d = model.DispositionAlreadyCompleted
	}

	s.mu.Lock()
	s.state = StateDone
	s.disposition = d
	s.result = res
	s.lastErr = nil
	s.mu.Unlock()
	s.cancel()

	if err := s.engine.attempts.Clear(context.WithoutCancel(ctx), s.key); err != nil {
		s.log.Warn().Err(err).Msg("Failed to clear attempt state")
	}

	s.log.Info().
		Str("disposition", string(d)).
		Int("score", res.Score).
		Int("total", res.Total).
		Msg("Exam submitted")

	s.emit(Event{Type: EventSubmitted, Disposition: d, Result: res, Message: submitMessage(d)})
	return nil
}

func (s *ExamSession) run() {
	defer close(s.loopFinished)

	ticker := time.NewTicker(s.engine.cfg.TickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			s.tick()
		}
	}
}

// tick publishes the remaining time and fires the timeout submission once the
// deadline has passed. After a failed submission the next attempt waits for
// the retry interval.
func (s *ExamSession) tick() {
	now := s.engine.now()

	s.mu.Lock()
	if s.closed || (s.state != StateGated && s.state != StateActive && s.state != StateSubmitting) {
		s.mu.Unlock()
		return
	}
	remaining := Remaining(s.deadline, now)
	due := remaining == 0 && s.state != StateSubmitting && !now.Before(s.retryAt)
	s.mu.Unlock()

	s.emit(Event{Type: EventTick, RemainingSeconds: Seconds(remaining)})
	if due {
		_ = s.submit(s.ctx, model.DispositionTimeout)
	}
}

// Close stops the countdown. A closed session refuses further input.
func (s *ExamSession) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	started := s.loopStarted
	s.mu.Unlock()

	s.cancel()
	if started {
		<-s.loopFinished
	}
}

// View is a point-in-time rendering of the session for the client.
type View struct {
	ExamID           uuid.UUID                  `json:"exam_id"`
	Title            string                     `json:"title,omitempty"`
	State            State                      `json:"state"`
	Reason           RejectReason               `json:"reason,omitempty"`
	Disposition      model.Disposition          `json:"disposition,omitempty"`
	Questions        []model.QuestionForStudent `json:"questions,omitempty"`
	CurrentIndex     int                        `json:"current_index"`
	Answers          model.Answers              `json:"answers,omitempty"`
	RemainingSeconds int                        `json:"remaining_seconds"`
	Violations       int                        `json:"violations"`
	ViolationsLeft   int                        `json:"violations_left"`
	Fullscreen       bool                       `json:"fullscreen"`
	Result           *model.Result              `json:"result,omitempty"`
	Error            string                     `json:"error,omitempty"`
}

// View renders the session. Question content is only included while the
// attempt is Active or Submitting.
func (s *ExamSession) View() View {
	s.mu.Lock()
	defer s.mu.Unlock()

	v := View{
		ExamID:       s.key.ExamID,
		State:        s.state,
		Reason:       s.reason,
		Disposition:  s.disposition,
		CurrentIndex: s.current,
		Result:       s.result,
	}
	if s.exam != nil {
		v.Title = s.exam.Title
	}
	if s.monitor != nil {
		v.Violations = s.monitor.Count()
		v.ViolationsLeft = s.monitor.Remaining()
		v.Fullscreen = s.monitor.Fullscreen()
	}
	if s.lastErr != nil {
		v.Error = "Failed to submit exam. Please try again."
	}

	switch s.state {
	case StateGated, StateActive, StateSubmitting:
		v.RemainingSeconds = Seconds(Remaining(s.deadline, s.engine.now()))
	}
	if s.state == StateActive || s.state == StateSubmitting {
		v.Questions = make([]model.QuestionForStudent, len(s.questions))
		for i := range s.questions {
			v.Questions[i] = s.questions[i].ForStudent()
		}
		v.Answers = s.journal.Snapshot()
	}
	return v
}

func rejectMessage(r RejectReason) string {
	switch r {
	case ReasonUnauthorized:
		return "Only students can take exams."
	case ReasonAlreadyCompleted:
		return "You have already completed this exam."
	case ReasonNotFound:
		return "Exam not found."
	case ReasonNotEligible:
		return "You are not enrolled for this exam."
	case ReasonInactiveWindow:
		return "This exam is not currently available."
	default:
		return ""
	}
}

func submitMessage(d model.Disposition) string {
	switch d {
	case model.DispositionTimeout:
		return "Time up! Exam submitted automatically."
	case model.DispositionForced:
		return "Exam submitted automatically due to multiple tab switches."
	case model.DispositionAlreadyCompleted:
		return "You have already completed this exam."
	default:
		return "Exam submitted successfully!"
	}
}
