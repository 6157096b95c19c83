package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stemsi/proctor-backend/internal/model"
)

const examColumns = `e.id, e.title, e.course_ids, e.batch_id, e.duration_minutes, e.start_time, e.end_time,
	e.is_shuffled, e.is_randomized, e.easy_count, e.moderate_count, e.hard_count, e.created_at, e.updated_at`

// ExamRepository handles exam data access.
type ExamRepository struct {
	pool *pgxpool.Pool
}

// NewExamRepository creates a new ExamRepository.
func NewExamRepository(pool *pgxpool.Pool) *ExamRepository {
	return &ExamRepository{pool: pool}
}

func scanExam(row pgx.Row, extra ...any) (*model.Exam, error) {
	e := &model.Exam{}
	dest := []any{
		&e.ID, &e.Title, &e.CourseIDs, &e.BatchID, &e.DurationMinutes, &e.StartTime, &e.EndTime,
		&e.Shuffled, &e.Randomized, &e.Counts.Easy, &e.Counts.Moderate, &e.Counts.Hard, &e.CreatedAt, &e.UpdatedAt,
	}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return nil, err
	}
	return e, nil
}

// GetByID retrieves an exam by ID.
func (r *ExamRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Exam, error) {
	e, err := scanExam(r.pool.QueryRow(ctx,
		`SELECT `+examColumns+` FROM exams e WHERE e.id = $1`, id))
	if err != nil {
		return nil, translate(err)
	}
	return e, nil
}

// List retrieves all exams, newest first.
func (r *ExamRepository) List(ctx context.Context) ([]model.Exam, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+examColumns+` FROM exams e ORDER BY e.created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	exams := []model.Exam{}
	for rows.Next() {
		e, err := scanExam(rows)
		if err != nil {
			return nil, err
		}
		exams = append(exams, *e)
	}
	return exams, rows.Err()
}

// ListForStudent retrieves exams targeting one of the student's enrolled
// courses (and batch, when the exam names one), flagged with completion.
func (r *ExamRepository) ListForStudent(ctx context.Context, studentID uuid.UUID) ([]model.StudentExam, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+examColumns+`,
			EXISTS (SELECT 1 FROM results res WHERE res.exam_id = e.id AND res.student_id = $1) AS completed
		 FROM exams e
		 WHERE EXISTS (
			SELECT 1 FROM student_enrollments se
			WHERE se.student_id = $1
			  AND se.course_id = ANY(e.course_ids)
			  AND (e.batch_id IS NULL OR se.batch_id = e.batch_id)
		 )
		 ORDER BY e.start_time NULLS LAST, e.created_at DESC`, studentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	exams := []model.StudentExam{}
	for rows.Next() {
		var completed bool
		e, err := scanExam(rows, &completed)
		if err != nil {
			return nil, err
		}
		exams = append(exams, model.StudentExam{Exam: *e, Completed: completed})
	}
	return exams, rows.Err()
}

// Create inserts an exam and, for curated exams, its ordered question list
// in one transaction.
func (r *ExamRepository) Create(ctx context.Context, e *model.Exam, questionIDs []uuid.UUID) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	err = tx.QueryRow(ctx,
		`INSERT INTO exams (title, course_ids, batch_id, duration_minutes, start_time, end_time,
			is_shuffled, is_randomized, easy_count, moderate_count, hard_count)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		 RETURNING id, created_at, updated_at`,
		e.Title, e.CourseIDs, e.BatchID, e.DurationMinutes, e.StartTime, e.EndTime,
		e.Shuffled, e.Randomized, e.Counts.Easy, e.Counts.Moderate, e.Counts.Hard,
	).Scan(&e.ID, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert exam: %w", err)
	}

	if len(questionIDs) > 0 {
		_, err = tx.CopyFrom(ctx,
			pgx.Identifier{"exam_questions"},
			[]string{"exam_id", "question_id", "position"},
			pgx.CopyFromSlice(len(questionIDs), func(i int) ([]any, error) {
				return []any{e.ID, questionIDs[i], i}, nil
			}),
		)
		if err != nil {
			return fmt.Errorf("copy exam questions: %w", err)
		}
	}

	return tx.Commit(ctx)
}

// Delete removes an exam and, by cascade, its assignments and results.
func (r *ExamRepository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM exams WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return model.ErrNotFound
	}
	return nil
}
