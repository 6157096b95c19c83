package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/stemsi/proctor-backend/internal/model"
	"github.com/stemsi/proctor-backend/internal/repository"
)

// Exam authoring errors.
var (
	ErrNoTierCounts       = errors.New("randomized exam needs at least one question count")
	ErrTierCountExceeded  = errors.New("question count exceeds available questions")
	ErrNoCuratedQuestions = errors.New("exam needs at least one question")
	ErrUnknownQuestions   = errors.New("one or more questions do not exist")
	ErrUnknownCourses     = errors.New("one or more courses do not exist")
	ErrInvalidWindow      = errors.New("end time must be after start time")
)

// ExamService handles exam authoring and listings.
type ExamService struct {
	exams     *repository.ExamRepository
	questions *repository.QuestionRepository
	courses   *repository.CourseRepository
	results   *repository.ResultRepository
	integrity *repository.IntegrityEventRepository
}

// NewExamService creates a new ExamService.
func NewExamService(
	exams *repository.ExamRepository,
	questions *repository.QuestionRepository,
	courses *repository.CourseRepository,
	results *repository.ResultRepository,
	integrity *repository.IntegrityEventRepository,
) *ExamService {
	return &ExamService{
		exams:     exams,
		questions: questions,
		courses:   courses,
		results:   results,
		integrity: integrity,
	}
}

// Create validates and stores a new exam.
func (s *ExamService) Create(ctx context.Context, req *model.CreateExamRequest) (*model.Exam, error) {
	n, err := s.courses.CountExisting(ctx, req.CourseIDs)
	if err != nil {
		return nil, fmt.Errorf("count courses: %w", err)
	}
	if n != len(uniqueIDs(req.CourseIDs)) {
		return nil, ErrUnknownCourses
	}

	var available model.TierCounts
	var existing int
	if req.Randomized {
		if available, err = s.questions.CountByTier(ctx, req.CourseIDs); err != nil {
			return nil, fmt.Errorf("count questions by tier: %w", err)
		}
	} else if len(req.QuestionIDs) > 0 {
		if existing, err = s.questions.CountExisting(ctx, req.QuestionIDs); err != nil {
			return nil, fmt.Errorf("count questions: %w", err)
		}
	}

	if err := validateExamRequest(req, available, existing); err != nil {
		return nil, err
	}

	exam := &model.Exam{
		Title:           req.Title,
		CourseIDs:       uniqueIDs(req.CourseIDs),
		BatchID:         req.BatchID,
		DurationMinutes: req.DurationMinutes,
		StartTime:       req.StartTime,
		EndTime:         req.EndTime,
		Shuffled:        req.Shuffled,
		Randomized:      req.Randomized,
	}

	var questionIDs []uuid.UUID
	if req.Randomized {
		exam.Counts = model.TierCounts{Easy: req.EasyCount, Moderate: req.ModerateCount, Hard: req.HardCount}
	} else {
		questionIDs = uniqueIDs(req.QuestionIDs)
	}

	if err := s.exams.Create(ctx, exam, questionIDs); err != nil {
		return nil, fmt.Errorf("create exam: %w", err)
	}
	return exam, nil
}

// validateExamRequest applies the authoring rules. available is the per-tier
// question supply across the exam's courses; existing is how many curated
// question IDs were found in the bank.
func validateExamRequest(req *model.CreateExamRequest, available model.TierCounts, existing int) error {
	if req.StartTime != nil && req.EndTime != nil && !req.EndTime.After(*req.StartTime) {
		return ErrInvalidWindow
	}

	if !req.Randomized {
		ids := uniqueIDs(req.QuestionIDs)
		if len(ids) == 0 {
			return ErrNoCuratedQuestions
		}
		if existing != len(ids) {
			return ErrUnknownQuestions
		}
		return nil
	}

	requested := model.TierCounts{Easy: req.EasyCount, Moderate: req.ModerateCount, Hard: req.HardCount}
	if requested.Total() == 0 {
		return ErrNoTierCounts
	}
	for _, d := range model.Difficulties {
		if requested.For(d) > available.For(d) {
			return fmt.Errorf("%w: %s requests %d, %d available", ErrTierCountExceeded, d, requested.For(d), available.For(d))
		}
	}
	return nil
}

// GetByID retrieves an exam.
func (s *ExamService) GetByID(ctx context.Context, id uuid.UUID) (*model.Exam, error) {
	return s.exams.GetByID(ctx, id)
}

// List retrieves all exams.
func (s *ExamService) List(ctx context.Context) ([]model.Exam, error) {
	return s.exams.List(ctx)
}

// Delete removes an exam.
func (s *ExamService) Delete(ctx context.Context, id uuid.UUID) error {
	return s.exams.Delete(ctx, id)
}

// ListForStudent returns the student's dashboard exams with completion flags.
func (s *ExamService) ListForStudent(ctx context.Context, studentID uuid.UUID) ([]model.StudentExam, error) {
	return s.exams.ListForStudent(ctx, studentID)
}

// Questions returns the curated question list of an exam.
func (s *ExamService) Questions(ctx context.Context, examID uuid.UUID) ([]model.Question, error) {
	if _, err := s.exams.GetByID(ctx, examID); err != nil {
		return nil, err
	}
	return s.questions.ListByExam(ctx, examID)
}

// Results returns every submitted result of an exam.
func (s *ExamService) Results(ctx context.Context, examID uuid.UUID) ([]model.ExamResult, error) {
	if _, err := s.exams.GetByID(ctx, examID); err != nil {
		return nil, err
	}
	return s.results.ListByExam(ctx, examID)
}

// IntegrityEvents returns the integrity audit trail of an exam.
func (s *ExamService) IntegrityEvents(ctx context.Context, examID uuid.UUID) ([]model.IntegrityEvent, error) {
	return s.integrity.ListByExam(ctx, examID)
}

// StudentResults returns the student's own results.
func (s *ExamService) StudentResults(ctx context.Context, studentID uuid.UUID) ([]model.StudentResult, error) {
	return s.results.ListByStudent(ctx, studentID)
}

func uniqueIDs(ids []uuid.UUID) []uuid.UUID {
	seen := make(map[uuid.UUID]struct{}, len(ids))
	out := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
