package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stemsi/proctor-backend/internal/middleware"
	"github.com/stemsi/proctor-backend/internal/model"
	"github.com/stemsi/proctor-backend/internal/repository"
	"github.com/stemsi/proctor-backend/internal/response"
	"github.com/stemsi/proctor-backend/internal/service"
	"github.com/stemsi/proctor-backend/internal/session"
	"github.com/stemsi/proctor-backend/internal/validator"
)

func init() {
	gin.SetMode(gin.TestMode)
	validator.Setup()
}

// portalStore serves one curated exam and keeps results in memory.
type portalStore struct {
	mu        sync.Mutex
	exam      *model.Exam
	questions []model.Question
	results   map[session.AttemptKey]*model.Result
}

func (s *portalStore) GetExam(_ context.Context, id uuid.UUID) (*model.Exam, error) {
	if id != s.exam.ID {
		return nil, model.ErrNotFound
	}
	return s.exam, nil
}

func (s *portalStore) GetQuestionsByCourses(context.Context, []uuid.UUID) ([]model.Question, error) {
	return s.questions, nil
}

func (s *portalStore) GetFixedQuestionList(context.Context, uuid.UUID) ([]model.Question, error) {
	return s.questions, nil
}

func (s *portalStore) GetAssignment(context.Context, uuid.UUID, uuid.UUID) ([]model.Question, error) {
	return nil, nil
}

func (s *portalStore) CreateAssignmentRows(context.Context, uuid.UUID, uuid.UUID, []uuid.UUID) error {
	return nil
}

func (s *portalStore) GetResult(_ context.Context, studentID, examID uuid.UUID) (*model.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if r, ok := s.results[session.AttemptKey{StudentID: studentID, ExamID: examID}]; ok {
		return r, nil
	}
	return nil, model.ErrNotFound
}

func (s *portalStore) CreateResult(_ context.Context, r *model.Result) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r.ID = uuid.New()
	s.results[session.AttemptKey{StudentID: r.StudentID, ExamID: r.ExamID}] = r
	return nil
}

func (s *portalStore) IsEligible(context.Context, uuid.UUID, *model.Exam) (bool, error) {
	return true, nil
}

type portalFixture struct {
	router    *gin.Engine
	store     *portalStore
	studentID uuid.UUID
}

func newPortalFixture(t *testing.T) *portalFixture {
	t.Helper()

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	course := uuid.New()
	store := &portalStore{
		exam: &model.Exam{ID: uuid.New(), Title: "Chemistry", CourseIDs: []uuid.UUID{course}, DurationMinutes: 15},
		questions: []model.Question{
			{ID: uuid.New(), CourseID: course, Difficulty: model.DifficultyEasy, Text: "H2O?",
				Options: model.Options{A: "water", B: "salt", C: "air", D: "iron"}, CorrectOption: model.OptionA},
			{ID: uuid.New(), CourseID: course, Difficulty: model.DifficultyModerate, Text: "NaCl?",
				Options: model.Options{A: "water", B: "salt", C: "air"}, CorrectOption: model.OptionB},
		},
		results: map[session.AttemptKey]*model.Result{},
	}

	engine := session.NewEngine(store, repository.NewAttemptStateRepository(rdb), session.Config{
		ViolationLimit: 3,
		TickInterval:   time.Hour,
	}, zerolog.Nop())
	sessions := service.NewExamSessionService(engine, zerolog.Nop())
	t.Cleanup(sessions.Shutdown)

	studentID := uuid.New()
	h := NewStudentPortalHandler(sessions, nil)

	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set(middleware.ContextKeyClaims, &service.Claims{UserID: studentID, Role: model.RoleStudent})
		c.Next()
	})
	g := r.Group("/exams/:exam_id/session")
	g.POST("", h.EnterExam)
	g.GET("", h.GetExamState)
	g.PUT("/answers", h.SaveAnswer)
	g.PUT("/position", h.Navigate)
	g.PUT("/fullscreen", h.SetFullscreen)
	g.POST("/visibility", h.ReportVisibility)
	g.POST("/finish", h.FinishExam)

	wsh := NewWSHandler(sessions, zerolog.Nop(), nil)
	r.GET("/ws/exams/:exam_id/stream", wsh.ExamWebSocketStream)

	return &portalFixture{router: r, store: store, studentID: studentID}
}

type portalResponse struct {
	Data struct {
		Session session.View    `json:"session"`
		Verdict session.Verdict `json:"verdict"`
	} `json:"data"`
	Error *response.ErrorBody `json:"error"`
}

func (f *portalFixture) do(t *testing.T, method, path string, body interface{}) (int, portalResponse) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, "/exams/"+f.store.exam.ID.String()+"/session"+path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)

	var out portalResponse
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode %s %s: %v", method, path, err)
	}
	return w.Code, out
}

func TestStudentPortalFlow(t *testing.T) {
	f := newPortalFixture(t)
	q0, q1 := f.store.questions[0], f.store.questions[1]

	code, res := f.do(t, http.MethodPost, "", nil)
	if code != http.StatusOK || res.Data.Session.State != session.StateGated {
		t.Fatalf("enter: %d %+v", code, res.Data.Session)
	}
	if len(res.Data.Session.Questions) != 0 {
		t.Fatal("gated view exposes questions")
	}

	// Input is refused until full screen is entered.
	code, res = f.do(t, http.MethodPut, "/answers", map[string]interface{}{"question_id": q0.ID, "option": "A"})
	if code != http.StatusConflict || res.Error.Code != response.ErrSessionNotActive {
		t.Fatalf("answer while gated: %d %+v", code, res.Error)
	}

	code, res = f.do(t, http.MethodPut, "/fullscreen", map[string]bool{"on": true})
	if code != http.StatusOK || res.Data.Session.State != session.StateActive || len(res.Data.Session.Questions) != 2 {
		t.Fatalf("fullscreen: %d %+v", code, res.Data.Session)
	}

	answerTests := []struct {
		name     string
		body     map[string]interface{}
		wantCode int
		wantErr  response.ErrCode
	}{
		{"unknown question", map[string]interface{}{"question_id": uuid.New(), "option": "A"}, http.StatusBadRequest, response.ErrUnknownQuestion},
		{"empty option text", map[string]interface{}{"question_id": q1.ID, "option": "D"}, http.StatusBadRequest, response.ErrInvalidOption},
		{"lowercase label", map[string]interface{}{"question_id": q0.ID, "option": "a"}, http.StatusBadRequest, response.ErrValidation},
		{"missing question", map[string]interface{}{"option": "A"}, http.StatusBadRequest, response.ErrValidation},
		{"valid", map[string]interface{}{"question_id": q0.ID, "option": "A"}, http.StatusOK, ""},
		{"replace answer", map[string]interface{}{"question_id": q1.ID, "option": "C"}, http.StatusOK, ""},
		{"replace again", map[string]interface{}{"question_id": q1.ID, "option": "B"}, http.StatusOK, ""},
	}
	for _, tt := range answerTests {
		t.Run(tt.name, func(t *testing.T) {
			code, res := f.do(t, http.MethodPut, "/answers", tt.body)
			if code != tt.wantCode {
				t.Fatalf("status = %d, want %d", code, tt.wantCode)
			}
			if tt.wantErr != "" && (res.Error == nil || res.Error.Code != tt.wantErr) {
				t.Fatalf("error = %+v, want %s", res.Error, tt.wantErr)
			}
		})
	}

	if code, _ := f.do(t, http.MethodPut, "/position", map[string]int{"index": 5}); code != http.StatusBadRequest {
		t.Fatalf("navigate out of range: %d", code)
	}
	code, res = f.do(t, http.MethodPut, "/position", map[string]int{"index": 1})
	if code != http.StatusOK {
		t.Fatalf("navigate: %d", code)
	}

	_, res = f.do(t, http.MethodGet, "", nil)
	if res.Data.Session.CurrentIndex != 1 || res.Data.Session.Answers[q1.ID] != model.OptionB {
		t.Fatalf("state = %+v", res.Data.Session)
	}

	code, res = f.do(t, http.MethodPost, "/finish", nil)
	if code != http.StatusOK || res.Data.Session.State != session.StateDone {
		t.Fatalf("finish: %d %+v", code, res.Data.Session)
	}
	if r := res.Data.Session.Result; r == nil || r.Score != 2 || r.Total != 2 || r.Disposition != model.DispositionManual {
		t.Fatalf("result = %+v", res.Data.Session.Result)
	}

	if code, res := f.do(t, http.MethodGet, "", nil); code != http.StatusNotFound || res.Error.Code != response.ErrSessionNotFound {
		t.Fatalf("state after finish: %d %+v", code, res.Error)
	}

	code, res = f.do(t, http.MethodPost, "", map[string]bool{"fullscreen": true})
	if code != http.StatusOK || res.Data.Session.State != session.StateRejected || res.Data.Session.Reason != session.ReasonAlreadyCompleted {
		t.Fatalf("re-enter: %d %+v", code, res.Data.Session)
	}
}

func TestReportVisibilityForcesSubmission(t *testing.T) {
	f := newPortalFixture(t)

	if code, _ := f.do(t, http.MethodPost, "", map[string]bool{"fullscreen": true}); code != http.StatusOK {
		t.Fatalf("enter: %d", code)
	}

	// Becoming visible again is not a violation.
	_, res := f.do(t, http.MethodPost, "/visibility", map[string]bool{"hidden": false})
	if res.Data.Verdict.Kind != session.VerdictIgnored || res.Data.Session.Violations != 0 {
		t.Fatalf("visible: %+v", res.Data)
	}

	want := []session.VerdictKind{session.VerdictWarned, session.VerdictWarned, session.VerdictForced}
	for i, kind := range want {
		code, res := f.do(t, http.MethodPost, "/visibility", map[string]bool{"hidden": true})
		if code != http.StatusOK || res.Data.Verdict.Kind != kind || res.Data.Verdict.Count != i+1 {
			t.Fatalf("report %d: %d %+v", i+1, code, res.Data.Verdict)
		}
	}

	_, res = f.do(t, http.MethodPost, "", nil)
	if res.Data.Session.Reason != session.ReasonAlreadyCompleted {
		t.Fatalf("after forced submit: %+v", res.Data.Session)
	}
	r, err := f.store.GetResult(context.Background(), f.studentID, f.store.exam.ID)
	if err != nil || r.Disposition != model.DispositionForced {
		t.Fatalf("stored result = %+v, %v", r, err)
	}
}

func TestInvalidExamID(t *testing.T) {
	f := newPortalFixture(t)
	req := httptest.NewRequest(http.MethodPost, "/exams/not-a-uuid/session", nil)
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", w.Code)
	}
}

func TestErrorStatus(t *testing.T) {
	tests := []struct {
		err  error
		want int
		code response.ErrCode
	}{
		{model.ErrNotFound, http.StatusNotFound, response.ErrNotFound},
		{service.ErrNoLiveSession, http.StatusNotFound, response.ErrSessionNotFound},
		{service.ErrEmailTaken, http.StatusConflict, response.ErrEmailTaken},
		{service.ErrTierCountExceeded, http.StatusUnprocessableEntity, response.ErrTierCountInvalid},
		{session.ErrSessionClosed, http.StatusConflict, response.ErrSessionNotActive},
		{session.ErrSubmitFailed, http.StatusServiceUnavailable, response.ErrSubmitFailed},
		{errors.Join(errors.New("wrapped"), session.ErrInvalidOption), http.StatusBadRequest, response.ErrInvalidOption},
		{errors.New("boom"), http.StatusInternalServerError, response.ErrInternal},
	}
	for _, tt := range tests {
		status, code := errorStatus(tt.err)
		if status != tt.want || code != tt.code {
			t.Errorf("errorStatus(%v) = %d %s, want %d %s", tt.err, status, code, tt.want, tt.code)
		}
	}
}
