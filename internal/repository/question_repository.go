package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stemsi/proctor-backend/internal/model"
)

const questionColumns = `q.id, q.course_id, q.difficulty, q.question_text, q.options, q.correct_option, q.created_at`

// QuestionRepository handles question bank data access.
type QuestionRepository struct {
	pool *pgxpool.Pool
}

// NewQuestionRepository creates a new QuestionRepository.
func NewQuestionRepository(pool *pgxpool.Pool) *QuestionRepository {
	return &QuestionRepository{pool: pool}
}

func collectQuestions(rows pgx.Rows) ([]model.Question, error) {
	defer rows.Close()

	questions := []model.Question{}
	for rows.Next() {
		var q model.Question
		if err := rows.Scan(&q.ID, &q.CourseID, &q.Difficulty, &q.Text, &q.Options, &q.CorrectOption, &q.CreatedAt); err != nil {
			return nil, err
		}
		questions = append(questions, q)
	}
	return questions, rows.Err()
}

// GetByID retrieves a question by ID.
func (r *QuestionRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Question, error) {
	q := &model.Question{}
	err := r.pool.QueryRow(ctx,
		`SELECT `+questionColumns+` FROM questions q WHERE q.id = $1`, id,
	).Scan(&q.ID, &q.CourseID, &q.Difficulty, &q.Text, &q.Options, &q.CorrectOption, &q.CreatedAt)
	if err != nil {
		return nil, translate(err)
	}
	return q, nil
}

// ListByCourses retrieves every question belonging to any of the courses.
func (r *QuestionRepository) ListByCourses(ctx context.Context, courseIDs []uuid.UUID) ([]model.Question, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+questionColumns+` FROM questions q
		 WHERE q.course_id = ANY($1)
		 ORDER BY q.created_at`, courseIDs)
	if err != nil {
		return nil, err
	}
	return collectQuestions(rows)
}

// ListByExam retrieves the curated question list of an exam in authored order.
func (r *QuestionRepository) ListByExam(ctx context.Context, examID uuid.UUID) ([]model.Question, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+questionColumns+` FROM exam_questions eq
		 JOIN questions q ON q.id = eq.question_id
		 WHERE eq.exam_id = $1
		 ORDER BY eq.position`, examID)
	if err != nil {
		return nil, err
	}
	return collectQuestions(rows)
}

// CountByTier counts the questions per difficulty across the courses.
func (r *QuestionRepository) CountByTier(ctx context.Context, courseIDs []uuid.UUID) (model.TierCounts, error) {
	var counts model.TierCounts
	err := r.pool.QueryRow(ctx,
		`SELECT
			COUNT(*) FILTER (WHERE difficulty = 'easy'),
			COUNT(*) FILTER (WHERE difficulty = 'moderate'),
			COUNT(*) FILTER (WHERE difficulty = 'hard')
		 FROM questions WHERE course_id = ANY($1)`, courseIDs,
	).Scan(&counts.Easy, &counts.Moderate, &counts.Hard)
	return counts, err
}

// CountExisting returns how many of ids exist in the bank.
func (r *QuestionRepository) CountExisting(ctx context.Context, ids []uuid.UUID) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM questions WHERE id = ANY($1)`, ids,
	).Scan(&n)
	return n, err
}

// Create inserts a new question.
func (r *QuestionRepository) Create(ctx context.Context, q *model.Question) error {
	return r.pool.QueryRow(ctx,
		`INSERT INTO questions (course_id, difficulty, question_text, options, correct_option)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING id, created_at`,
		q.CourseID, q.Difficulty, q.Text, q.Options, q.CorrectOption,
	).Scan(&q.ID, &q.CreatedAt)
}

// Delete removes a question.
func (r *QuestionRepository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM questions WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return model.ErrNotFound
	}
	return nil
}
