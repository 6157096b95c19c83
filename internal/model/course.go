package model

import (
	"time"

	"github.com/google/uuid"
)

// Course groups questions and enrollments.
type Course struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
}

// Batch is a cohort of students within a course.
type Batch struct {
	ID        uuid.UUID `json:"id"`
	CourseID  uuid.UUID `json:"course_id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// Enrollment links a student to a course and optionally a batch.
type Enrollment struct {
	ID        uuid.UUID  `json:"id"`
	StudentID uuid.UUID  `json:"student_id"`
	CourseID  uuid.UUID  `json:"course_id"`
	BatchID   *uuid.UUID `json:"batch_id,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}

type CreateCourseRequest struct {
	Name        string `json:"name" binding:"required,min=2,max=255"`
	Description string `json:"description" binding:"omitempty,max=2000"`
}

type CreateBatchRequest struct {
	CourseID uuid.UUID `json:"course_id" binding:"required"`
	Name     string    `json:"name" binding:"required,min=1,max=255"`
}

type CreateEnrollmentRequest struct {
	StudentID uuid.UUID  `json:"student_id" binding:"required"`
	CourseID  uuid.UUID  `json:"course_id" binding:"required"`
	BatchID   *uuid.UUID `json:"batch_id" binding:"omitempty"`
}
