package service

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/stemsi/proctor-backend/internal/model"
	"github.com/stemsi/proctor-backend/internal/repository"
	"github.com/stemsi/proctor-backend/internal/session"
)

// examStore exposes the Postgres repositories as a session.ExamStore.
type examStore struct {
	exams       *repository.ExamRepository
	questions   *repository.QuestionRepository
	assignments *repository.AssignmentRepository
	results     *repository.ResultRepository
	courses     *repository.CourseRepository
}

// NewExamStore creates the session's relational store.
func NewExamStore(
	exams *repository.ExamRepository,
	questions *repository.QuestionRepository,
	assignments *repository.AssignmentRepository,
	results *repository.ResultRepository,
	courses *repository.CourseRepository,
) session.ExamStore {
	return &examStore{
		exams:       exams,
		questions:   questions,
		assignments: assignments,
		results:     results,
		courses:     courses,
	}
}

func (s *examStore) GetExam(ctx context.Context, examID uuid.UUID) (*model.Exam, error) {
	return s.exams.GetByID(ctx, examID)
}

func (s *examStore) GetQuestionsByCourses(ctx context.Context, courseIDs []uuid.UUID) ([]model.Question, error) {
	return s.questions.ListByCourses(ctx, courseIDs)
}

func (s *examStore) GetFixedQuestionList(ctx context.Context, examID uuid.UUID) ([]model.Question, error) {
	return s.questions.ListByExam(ctx, examID)
}

func (s *examStore) GetAssignment(ctx context.Context, studentID, examID uuid.UUID) ([]model.Question, error) {
	return s.assignments.ListQuestions(ctx, studentID, examID)
}

func (s *examStore) CreateAssignmentRows(ctx context.Context, studentID, examID uuid.UUID, questionIDs []uuid.UUID) error {
	return s.assignments.CreateRows(ctx, studentID, examID, questionIDs)
}

func (s *examStore) GetResult(ctx context.Context, studentID, examID uuid.UUID) (*model.Result, error) {
	return s.results.GetByStudentAndExam(ctx, studentID, examID)
}

func (s *examStore) CreateResult(ctx context.Context, result *model.Result) error {
	err := s.results.Create(ctx, result)
	if errors.Is(err, repository.ErrDuplicate) {
		return session.ErrResultExists
	}
	return err
}

func (s *examStore) IsEligible(ctx context.Context, studentID uuid.UUID, exam *model.Exam) (bool, error) {
	return s.courses.IsEnrolled(ctx, studentID, exam.CourseIDs, exam.BatchID)
}
