package service

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stemsi/proctor-backend/internal/model"
	"github.com/stemsi/proctor-backend/internal/session"
)

// ErrNoLiveSession reports that the student has no open session for the exam.
var ErrNoLiveSession = errors.New("no live session for this exam")

const subscriberBuffer = 16

// ExamSessionService keeps at most one live session per student and exam
// and fans its events out to connected clients.
type ExamSessionService struct {
	engine *session.Engine
	log    zerolog.Logger

	mu   sync.Mutex
	live map[session.AttemptKey]*liveSession
}

type liveSession struct {
	sess *session.ExamSession
	hub  *eventHub
}

// NewExamSessionService creates a new ExamSessionService.
func NewExamSessionService(engine *session.Engine, log zerolog.Logger) *ExamSessionService {
	return &ExamSessionService{
		engine: engine,
		log:    log.With().Str("component", "exam_session_service").Logger(),
		live:   make(map[session.AttemptKey]*liveSession),
	}
}

// Enter loads the exam for the student. A previous live session for the same
// exam is closed and replaced.
func (s *ExamSessionService) Enter(ctx context.Context, claims *Claims, examID uuid.UUID, fullscreen bool) (session.View, error) {
	var id *session.Identity
	var key session.AttemptKey
	if claims != nil {
		id = &session.Identity{StudentID: claims.UserID, Role: claims.Role}
		key = session.AttemptKey{StudentID: claims.UserID, ExamID: examID}
	}

	hub := newEventHub()
	sess, err := s.engine.Open(ctx, id, examID, session.OpenOptions{
		Fullscreen: fullscreen,
		Notify: func(ev session.Event) {
			hub.publish(ev)
			if ev.Type == session.EventSubmitted {
				s.forget(key, hub)
				hub.close()
			}
		},
	})
	if err != nil {
		return session.View{}, err
	}
	if sess.Terminal() {
		return sess.View(), nil
	}

	s.mu.Lock()
	prev := s.live[key]
	s.live[key] = &liveSession{sess: sess, hub: hub}
	s.mu.Unlock()

	if prev != nil {
		prev.sess.Close()
		prev.hub.close()
		s.log.Info().Str("attempt", key.String()).Msg("Replaced live session")
	}

	// The session may have finished between Open and registration.
	if sess.Terminal() {
		s.forget(key, hub)
	}
	return sess.View(), nil
}

func (s *ExamSessionService) forget(key session.AttemptKey, hub *eventHub) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if ls, ok := s.live[key]; ok && ls.hub == hub {
		delete(s.live, key)
	}
}

func (s *ExamSessionService) get(studentID, examID uuid.UUID) (*liveSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ls, ok := s.live[session.AttemptKey{StudentID: studentID, ExamID: examID}]
	if !ok {
		return nil, ErrNoLiveSession
	}
	return ls, nil
}

// View renders the live session.
func (s *ExamSessionService) View(studentID, examID uuid.UUID) (session.View, error) {
	ls, err := s.get(studentID, examID)
	if err != nil {
		return session.View{}, err
	}
	return ls.sess.View(), nil
}

// Answer records an answer in the live session.
func (s *ExamSessionService) Answer(ctx context.Context, studentID, examID, questionID uuid.UUID, label model.OptionLabel) error {
	ls, err := s.get(studentID, examID)
	if err != nil {
		return err
	}
	return ls.sess.Answer(ctx, questionID, label)
}

// Navigate moves the live session's current question.
func (s *ExamSessionService) Navigate(studentID, examID uuid.UUID, index int) error {
	ls, err := s.get(studentID, examID)
	if err != nil {
		return err
	}
	return ls.sess.Navigate(index)
}

// SetFullscreen reports the client's full-screen state.
func (s *ExamSessionService) SetFullscreen(studentID, examID uuid.UUID, on bool) (session.View, error) {
	ls, err := s.get(studentID, examID)
	if err != nil {
		return session.View{}, err
	}
	ls.sess.SetFullscreen(on)
	return ls.sess.View(), nil
}

// ReportHidden counts a hidden-surface event.
func (s *ExamSessionService) ReportHidden(ctx context.Context, studentID, examID uuid.UUID) (session.Verdict, session.View, error) {
	ls, err := s.get(studentID, examID)
	if err != nil {
		return session.Verdict{}, session.View{}, err
	}
	v := ls.sess.ReportHidden(ctx)
	return v, ls.sess.View(), nil
}

// Finish submits the live session at the student's request.
func (s *ExamSessionService) Finish(ctx context.Context, studentID, examID uuid.UUID) (session.View, error) {
	ls, err := s.get(studentID, examID)
	if err != nil {
		return session.View{}, err
	}
	err = ls.sess.Finish(ctx)
	return ls.sess.View(), err
}

// Subscribe streams the live session's events until it ends or is replaced.
func (s *ExamSessionService) Subscribe(studentID, examID uuid.UUID) (<-chan session.Event, func(), error) {
	ls, err := s.get(studentID, examID)
	if err != nil {
		return nil, nil, err
	}
	ch, cancel := ls.hub.subscribe()
	return ch, cancel, nil
}

// LiveCount is the number of sessions currently open.
func (s *ExamSessionService) LiveCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.live)
}

// Shutdown closes every live session. Attempt state stays in Redis, so
// students resume where they left off after a restart.
func (s *ExamSessionService) Shutdown() {
	s.mu.Lock()
	live := s.live
	s.live = make(map[session.AttemptKey]*liveSession)
	s.mu.Unlock()

	for _, ls := range live {
		ls.sess.Close()
		ls.hub.close()
	}
	s.log.Info().Int("sessions", len(live)).Msg("Live sessions closed")
}

// eventHub fans session events out to subscribers. Slow subscribers miss
// events rather than block the session.
type eventHub struct {
	mu     sync.Mutex
	subs   map[chan session.Event]struct{}
	closed bool
}

func newEventHub() *eventHub {
	return &eventHub{subs: make(map[chan session.Event]struct{})}
}

func (h *eventHub) subscribe() (<-chan session.Event, func()) {
	ch := make(chan session.Event, subscriberBuffer)

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		close(ch)
		return ch, func() {}
	}
	h.subs[ch] = struct{}{}

	return ch, func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		if _, ok := h.subs[ch]; ok {
			delete(h.subs, ch)
			close(ch)
		}
	}
}

func (h *eventHub) publish(ev session.Event) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.subs {
		select {
		case ch <- ev:
		default:
		}
	}
}

func (h *eventHub) close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.closed = true
	for ch := range h.subs {
		close(ch)
		delete(h.subs, ch)
	}
}
