package session

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/stemsi/proctor-backend/internal/model"
)

// Identity is the authenticated caller of a session.
type Identity struct {
	StudentID uuid.UUID
	Role      model.Role
}

// ExamStore is the relational data the session reads and appends to.
// Lookups that match nothing return model.ErrNotFound.
type ExamStore interface {
	GetExam(ctx context.Context, examID uuid.UUID) (*model.Exam, error)
	GetQuestionsByCourses(ctx context.Context, courseIDs []uuid.UUID) ([]model.Question, error)
	GetFixedQuestionList(ctx context.Context, examID uuid.UUID) ([]model.Question, error)
	GetAssignment(ctx context.Context, studentID, examID uuid.UUID) ([]model.Question, error)
	CreateAssignmentRows(ctx context.Context, studentID, examID uuid.UUID, questionIDs []uuid.UUID) error
	GetResult(ctx context.Context, studentID, examID uuid.UUID) (*model.Result, error)
	CreateResult(ctx context.Context, result *model.Result) error
	IsEligible(ctx context.Context, studentID uuid.UUID, exam *model.Exam) (bool, error)
}

// AttemptKey scopes durable attempt state to one student and one exam.
type AttemptKey struct {
	StudentID uuid.UUID
	ExamID    uuid.UUID
}

func (k AttemptKey) String() string {
	return fmt.Sprintf("%s/%s", k.StudentID, k.ExamID)
}

// AttemptStore is the durable key-value state of an in-progress attempt.
// InitDeadline stores the deadline only when none exists and always returns
// the stored value.
type AttemptStore interface {
	LoadDeadline(ctx context.Context, key AttemptKey) (time.Time, bool, error)
	InitDeadline(ctx context.Context, key AttemptKey, deadline time.Time) (time.Time, error)
	SaveAnswer(ctx context.Context, key AttemptKey, questionID uuid.UUID, label model.OptionLabel) error
	LoadAnswers(ctx context.Context, key AttemptKey) (model.Answers, error)
	SaveViolations(ctx context.Context, key AttemptKey, count int) error
	LoadViolations(ctx context.Context, key AttemptKey) (int, error)
	Clear(ctx context.Context, key AttemptKey) error
}

// ViolationRecorder receives every counted integrity violation.
type ViolationRecorder interface {
	RecordViolation(ctx context.Context, key AttemptKey, count int, at time.Time)
}
