package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stemsi/proctor-backend/internal/model"
)

// ResultRepository handles submitted exam results.
type ResultRepository struct {
	pool *pgxpool.Pool
}

// NewResultRepository creates a new ResultRepository.
func NewResultRepository(pool *pgxpool.Pool) *ResultRepository {
	return &ResultRepository{pool: pool}
}

// GetByStudentAndExam retrieves the earliest result for a student-exam pair.
func (r *ResultRepository) GetByStudentAndExam(ctx context.Context, studentID, examID uuid.UUID) (*model.Result, error) {
	res := &model.Result{}
	err := r.pool.QueryRow(ctx,
		`SELECT id, student_id, exam_id, score, total, answers, disposition, completed_at
		 FROM results
		 WHERE student_id = $1 AND exam_id = $2
		 ORDER BY completed_at
		 LIMIT 1`, studentID, examID,
	).Scan(&res.ID, &res.StudentID, &res.ExamID, &res.Score, &res.Total, &res.Answers, &res.Disposition, &res.CompletedAt)
	if err != nil {
		return nil, translate(err)
	}
	return res, nil
}

// Create inserts a result.
func (r *ResultRepository) Create(ctx context.Context, res *model.Result) error {
	if res.Answers == nil {
		res.Answers = model.Answers{}
	}
	err := r.pool.QueryRow(ctx,
		`INSERT INTO results (student_id, exam_id, score, total, answers, disposition, completed_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 RETURNING id`,
		res.StudentID, res.ExamID, res.Score, res.Total, res.Answers, res.Disposition, res.CompletedAt,
	).Scan(&res.ID)
	return translate(err)
}

// ListByStudent retrieves a student's results with exam titles, newest first.
func (r *ResultRepository) ListByStudent(ctx context.Context, studentID uuid.UUID) ([]model.StudentResult, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT r.id, r.student_id, r.exam_id, r.score, r.total, r.answers, r.disposition, r.completed_at, e.title
		 FROM results r
		 JOIN exams e ON e.id = r.exam_id
		 WHERE r.student_id = $1
		 ORDER BY r.completed_at DESC`, studentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	results := []model.StudentResult{}
	for rows.Next() {
		var sr model.StudentResult
		if err := rows.Scan(&sr.ID, &sr.StudentID, &sr.ExamID, &sr.Score, &sr.Total, &sr.Answers,
			&sr.Disposition, &sr.CompletedAt, &sr.ExamTitle); err != nil {
			return nil, err
		}
		results = append(results, sr)
	}
	return results, rows.Err()
}

// ListByExam retrieves every result of an exam with student names, best score first.
func (r *ResultRepository) ListByExam(ctx context.Context, examID uuid.UUID) ([]model.ExamResult, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT r.id, r.student_id, r.exam_id, r.score, r.total, r.answers, r.disposition, r.completed_at,
			TRIM(p.first_name || ' ' || p.surname), p.email
		 FROM results r
		 JOIN profiles p ON p.id = r.student_id
		 WHERE r.exam_id = $1
		 ORDER BY r.score DESC, r.completed_at`, examID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	results := []model.ExamResult{}
	for rows.Next() {
		var er model.ExamResult
		if err := rows.Scan(&er.ID, &er.StudentID, &er.ExamID, &er.Score, &er.Total, &er.Answers,
			&er.Disposition, &er.CompletedAt, &er.StudentName, &er.StudentEmail); err != nil {
			return nil, err
		}
		results = append(results, er)
	}
	return results, rows.Err()
}
