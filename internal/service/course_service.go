package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/stemsi/proctor-backend/internal/model"
	"github.com/stemsi/proctor-backend/internal/repository"
)

// ErrAlreadyEnrolled reports a duplicate enrollment.
var ErrAlreadyEnrolled = errors.New("student already enrolled")

// CourseService handles courses, batches and enrollments.
type CourseService struct {
	courses  *repository.CourseRepository
	profiles *repository.ProfileRepository
}

// NewCourseService creates a new CourseService.
func NewCourseService(courses *repository.CourseRepository, profiles *repository.ProfileRepository) *CourseService {
	return &CourseService{courses: courses, profiles: profiles}
}

func (s *CourseService) List(ctx context.Context) ([]model.Course, error) {
	return s.courses.List(ctx)
}

func (s *CourseService) Create(ctx context.Context, req *model.CreateCourseRequest) (*model.Course, error) {
	c := &model.Course{Name: req.Name, Description: req.Description}
	if err := s.courses.Create(ctx, c); err != nil {
		return nil, fmt.Errorf("create course: %w", err)
	}
	return c, nil
}

func (s *CourseService) ListBatches(ctx context.Context, courseID uuid.UUID) ([]model.Batch, error) {
	return s.courses.ListBatches(ctx, courseID)
}

func (s *CourseService) CreateBatch(ctx context.Context, req *model.CreateBatchRequest) (*model.Batch, error) {
	b := &model.Batch{CourseID: req.CourseID, Name: req.Name}
	if err := s.courses.CreateBatch(ctx, b); err != nil {
		return nil, fmt.Errorf("create batch: %w", err)
	}
	return b, nil
}

// Enroll adds a student to a course. Only student profiles can be enrolled.
func (s *CourseService) Enroll(ctx context.Context, req *model.CreateEnrollmentRequest) (*model.Enrollment, error) {
	p, err := s.profiles.GetByID(ctx, req.StudentID)
	if err != nil {
		return nil, err
	}
	if p.Role != model.RoleStudent {
		return nil, model.ErrNotFound
	}

	e := &model.Enrollment{StudentID: req.StudentID, CourseID: req.CourseID, BatchID: req.BatchID}
	if err := s.courses.CreateEnrollment(ctx, e); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, ErrAlreadyEnrolled
		}
		return nil, fmt.Errorf("create enrollment: %w", err)
	}
	return e, nil
}

func (s *CourseService) ListEnrollments(ctx context.Context, courseID uuid.UUID) ([]model.Enrollment, error) {
	return s.courses.ListEnrollments(ctx, courseID)
}

func (s *CourseService) Unenroll(ctx context.Context, id uuid.UUID) error {
	return s.courses.DeleteEnrollment(ctx, id)
}

// Students lists every student profile, for enrollment pickers.
func (s *CourseService) Students(ctx context.Context) ([]model.Profile, error) {
	return s.profiles.ListStudents(ctx)
}
