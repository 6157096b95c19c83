package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stemsi/proctor-backend/internal/model"
)

// AssignmentRepository stores the per-student question sets of randomized exams.
type AssignmentRepository struct {
	pool *pgxpool.Pool
}

// NewAssignmentRepository creates a new AssignmentRepository.
func NewAssignmentRepository(pool *pgxpool.Pool) *AssignmentRepository {
	return &AssignmentRepository{pool: pool}
}

// ListQuestions retrieves the questions assigned to a student for an exam.
func (r *AssignmentRepository) ListQuestions(ctx context.Context, studentID, examID uuid.UUID) ([]model.Question, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+questionColumns+` FROM student_exam_questions seq
		 JOIN questions q ON q.id = seq.question_id
		 WHERE seq.student_id = $1 AND seq.exam_id = $2
		 ORDER BY seq.position`, studentID, examID)
	if err != nil {
		return nil, err
	}
	return collectQuestions(rows)
}

// CreateRows inserts one row per question in a single batch round trip.
// Rows that already exist are left untouched.
func (r *AssignmentRepository) CreateRows(ctx context.Context, studentID, examID uuid.UUID, questionIDs []uuid.UUID) error {
	batch := &pgx.Batch{}
	for i, qid := range questionIDs {
		batch.Queue(
			`INSERT INTO student_exam_questions (student_id, exam_id, question_id, position)
			 VALUES ($1, $2, $3, $4)
			 ON CONFLICT (student_id, exam_id, question_id) DO NOTHING`,
			studentID, examID, qid, i,
		)
	}

	br := r.pool.SendBatch(ctx, batch)
	defer br.Close()

	for range questionIDs {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("insert assignment row: %w", err)
		}
	}
	return nil
}
