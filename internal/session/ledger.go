package session

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stemsi/proctor-backend/internal/model"
)

// AssignmentLedger records, once, which questions a student received for a
// randomized exam and replays that set on every later entry.
//
// Any existing row is taken as a complete assignment, so a set left partial by
// an interrupted write is returned as-is rather than topped up. Two first loads
// racing each other can both persist a selection; nothing here serializes them.
type AssignmentLedger struct {
	store ExamStore
	pool  *QuestionPool
	log   zerolog.Logger
}

// NewAssignmentLedger creates a new AssignmentLedger.
func NewAssignmentLedger(store ExamStore, pool *QuestionPool, log zerolog.Logger) *AssignmentLedger {
	return &AssignmentLedger{
		store: store,
		pool:  pool,
		log:   log.With().Str("component", "assignment_ledger").Logger(),
	}
}

// GetOrCreate returns the recorded assignment or draws and persists a new one.
func (l *AssignmentLedger) GetOrCreate(ctx context.Context, studentID, examID uuid.UUID, courseIDs []uuid.UUID, counts model.TierCounts) ([]model.Question, error) {
	assigned, err := l.store.GetAssignment(ctx, studentID, examID)
	if err != nil {
		return nil, fmt.Errorf("get assignment: %w", err)
	}
	if len(assigned) > 0 {
		return assigned, nil
	}

	available, err := l.store.GetQuestionsByCourses(ctx, courseIDs)
	if err != nil {
		return nil, fmt.Errorf("get questions by courses: %w", err)
	}

	selected := l.pool.Select(available, counts)
	if len(selected) == 0 {
		return selected, nil
	}

	ids := make([]uuid.UUID, len(selected))
	for i, q := range selected {
		ids[i] = q.ID
	}
	if err := l.store.CreateAssignmentRows(ctx, studentID, examID, ids); err != nil {
		return nil, fmt.Errorf("create assignment rows: %w", err)
	}

	l.log.Debug().
		Str("student_id", studentID.String()).
		Str("exam_id", examID.String()).
		Int("questions", len(ids)).
		Msg("Assignment created")

	return selected, nil
}
