package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/stemsi/proctor-backend/internal/model"
	"github.com/stemsi/proctor-backend/internal/repository"
)

// ErrIncompleteOptions reports a question without text for every option.
var ErrIncompleteOptions = errors.New("all four options need text")

// QuestionService handles the question bank.
type QuestionService struct {
	questions *repository.QuestionRepository
	courses   *repository.CourseRepository
}

// NewQuestionService creates a new QuestionService.
func NewQuestionService(questions *repository.QuestionRepository, courses *repository.CourseRepository) *QuestionService {
	return &QuestionService{questions: questions, courses: courses}
}

// Create adds a question to a course bank.
func (s *QuestionService) Create(ctx context.Context, req *model.CreateQuestionRequest) (*model.Question, error) {
	opts := model.Options{
		A: strings.TrimSpace(req.Options.A),
		B: strings.TrimSpace(req.Options.B),
		C: strings.TrimSpace(req.Options.C),
		D: strings.TrimSpace(req.Options.D),
	}
	if opts.A == "" || opts.B == "" || opts.C == "" || opts.D == "" {
		return nil, ErrIncompleteOptions
	}

	n, err := s.courses.CountExisting(ctx, []uuid.UUID{req.CourseID})
	if err != nil {
		return nil, fmt.Errorf("count courses: %w", err)
	}
	if n == 0 {
		return nil, ErrUnknownCourses
	}

	q := &model.Question{
		CourseID:      req.CourseID,
		Difficulty:    req.Difficulty,
		Text:          req.Text,
		Options:       opts,
		CorrectOption: req.CorrectOption,
	}
	if err := s.questions.Create(ctx, q); err != nil {
		return nil, fmt.Errorf("create question: %w", err)
	}
	return q, nil
}

// ListByCourse returns a course's question bank.
func (s *QuestionService) ListByCourse(ctx context.Context, courseID uuid.UUID) ([]model.Question, error) {
	return s.questions.ListByCourses(ctx, []uuid.UUID{courseID})
}

// GetByID retrieves a question.
func (s *QuestionService) GetByID(ctx context.Context, id uuid.UUID) (*model.Question, error) {
	return s.questions.GetByID(ctx, id)
}

// Delete removes a question.
func (s *QuestionService) Delete(ctx context.Context, id uuid.UUID) error {
	return s.questions.Delete(ctx, id)
}
