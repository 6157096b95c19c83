package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stemsi/proctor-backend/internal/model"
)

// IntegrityEventRepository persists the integrity audit trail.
type IntegrityEventRepository struct {
	pool *pgxpool.Pool
}

// NewIntegrityEventRepository creates a new IntegrityEventRepository.
func NewIntegrityEventRepository(pool *pgxpool.Pool) *IntegrityEventRepository {
	return &IntegrityEventRepository{pool: pool}
}

// BulkInsert writes events with COPY.
func (r *IntegrityEventRepository) BulkInsert(ctx context.Context, events []model.IntegrityEvent) error {
	_, err := r.pool.CopyFrom(ctx,
		pgx.Identifier{"integrity_events"},
		[]string{"student_id", "exam_id", "violations", "occurred_at"},
		pgx.CopyFromSlice(len(events), func(i int) ([]any, error) {
			e := events[i]
			return []any{e.StudentID, e.ExamID, e.Violations, e.OccurredAt}, nil
		}),
	)
	return err
}

// Insert writes a single event.
func (r *IntegrityEventRepository) Insert(ctx context.Context, e model.IntegrityEvent) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO integrity_events (student_id, exam_id, violations, occurred_at)
		 VALUES ($1, $2, $3, $4)`,
		e.StudentID, e.ExamID, e.Violations, e.OccurredAt)
	return err
}

// ListByExam retrieves the audit trail of an exam in occurrence order.
func (r *IntegrityEventRepository) ListByExam(ctx context.Context, examID uuid.UUID) ([]model.IntegrityEvent, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT student_id, exam_id, violations, occurred_at
		 FROM integrity_events WHERE exam_id = $1
		 ORDER BY occurred_at`, examID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	events := []model.IntegrityEvent{}
	for rows.Next() {
		var e model.IntegrityEvent
		if err := rows.Scan(&e.StudentID, &e.ExamID, &e.Violations, &e.OccurredAt); err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	return events, rows.Err()
}
