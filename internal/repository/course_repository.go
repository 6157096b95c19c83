package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stemsi/proctor-backend/internal/model"
)

// CourseRepository handles courses, batches and student enrollments.
type CourseRepository struct {
	pool *pgxpool.Pool
}

// NewCourseRepository creates a new CourseRepository.
func NewCourseRepository(pool *pgxpool.Pool) *CourseRepository {
	return &CourseRepository{pool: pool}
}

// List retrieves all courses ordered by name.
func (r *CourseRepository) List(ctx context.Context) ([]model.Course, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, name, description, created_at FROM courses ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	courses := []model.Course{}
	for rows.Next() {
		var c model.Course
		if err := rows.Scan(&c.ID, &c.Name, &c.Description, &c.CreatedAt); err != nil {
			return nil, err
		}
		courses = append(courses, c)
	}
	return courses, rows.Err()
}

// Create inserts a course.
func (r *CourseRepository) Create(ctx context.Context, c *model.Course) error {
	return r.pool.QueryRow(ctx,
		`INSERT INTO courses (name, description) VALUES ($1, $2) RETURNING id, created_at`,
		c.Name, c.Description,
	).Scan(&c.ID, &c.CreatedAt)
}

// CountExisting returns how many of ids are existing courses.
func (r *CourseRepository) CountExisting(ctx context.Context, ids []uuid.UUID) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM courses WHERE id = ANY($1)`, ids).Scan(&n)
	return n, err
}

// ListBatches retrieves the batches of a course.
func (r *CourseRepository) ListBatches(ctx context.Context, courseID uuid.UUID) ([]model.Batch, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, course_id, name, created_at FROM batches WHERE course_id = $1 ORDER BY name`, courseID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	batches := []model.Batch{}
	for rows.Next() {
		var b model.Batch
		if err := rows.Scan(&b.ID, &b.CourseID, &b.Name, &b.CreatedAt); err != nil {
			return nil, err
		}
		batches = append(batches, b)
	}
	return batches, rows.Err()
}

// CreateBatch inserts a batch.
func (r *CourseRepository) CreateBatch(ctx context.Context, b *model.Batch) error {
	err := r.pool.QueryRow(ctx,
		`INSERT INTO batches (course_id, name) VALUES ($1, $2) RETURNING id, created_at`,
		b.CourseID, b.Name,
	).Scan(&b.ID, &b.CreatedAt)
	return translate(err)
}

// CreateEnrollment enrolls a student into a course and optional batch.
func (r *CourseRepository) CreateEnrollment(ctx context.Context, e *model.Enrollment) error {
	err := r.pool.QueryRow(ctx,
		`INSERT INTO student_enrollments (student_id, course_id, batch_id)
		 VALUES ($1, $2, $3)
		 RETURNING id, created_at`,
		e.StudentID, e.CourseID, e.BatchID,
	).Scan(&e.ID, &e.CreatedAt)
	return translate(err)
}

// ListEnrollments retrieves the enrollments of a course.
func (r *CourseRepository) ListEnrollments(ctx context.Context, courseID uuid.UUID) ([]model.Enrollment, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, student_id, course_id, batch_id, created_at
		 FROM student_enrollments WHERE course_id = $1 ORDER BY created_at`, courseID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	enrollments := []model.Enrollment{}
	for rows.Next() {
		var e model.Enrollment
		if err := rows.Scan(&e.ID, &e.StudentID, &e.CourseID, &e.BatchID, &e.CreatedAt); err != nil {
			return nil, err
		}
		enrollments = append(enrollments, e)
	}
	return enrollments, rows.Err()
}

// DeleteEnrollment removes an enrollment.
func (r *CourseRepository) DeleteEnrollment(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM student_enrollments WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return model.ErrNotFound
	}
	return nil
}

// IsEnrolled reports whether the student is enrolled in any of the courses,
// restricted to batchID when it is set.
func (r *CourseRepository) IsEnrolled(ctx context.Context, studentID uuid.UUID, courseIDs []uuid.UUID, batchID *uuid.UUID) (bool, error) {
	var ok bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS (
			SELECT 1 FROM student_enrollments
			WHERE student_id = $1
			  AND course_id = ANY($2)
			  AND ($3::uuid IS NULL OR batch_id = $3)
		 )`, studentID, courseIDs, batchID,
	).Scan(&ok)
	return ok, err
}
