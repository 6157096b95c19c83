package session

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stemsi/proctor-backend/internal/model"
)

func TestAssignmentLedgerGetOrCreateIsIdempotent(t *testing.T) {
	ctx := context.Background()
	store := newFakeExamStore()
	course := uuid.New()
	store.addBank(course, model.DifficultyEasy, 10)
	store.addBank(course, model.DifficultyModerate, 5)
	store.addBank(course, model.DifficultyHard, 2)

	ledger := NewAssignmentLedger(store, NewQuestionPool(9, 9), zerolog.Nop())
	student, exam := uuid.New(), uuid.New()
	counts := model.TierCounts{Easy: 3, Moderate: 3, Hard: 3}

	first, err := ledger.GetOrCreate(ctx, student, exam, []uuid.UUID{course}, counts)
	if err != nil {
		t.Fatalf("first GetOrCreate: %v", err)
	}
	second, err := ledger.GetOrCreate(ctx, student, exam, []uuid.UUID{course}, counts)
	if err != nil {
		t.Fatalf("second GetOrCreate: %v", err)
	}

	if len(first) != 8 {
		t.Fatalf("got %d questions, want 8", len(first))
	}
	if len(first) != len(second) {
		t.Fatalf("sizes differ: %d vs %d", len(first), len(second))
	}
	ids := map[uuid.UUID]bool{}
	for _, q := range first {
		ids[q.ID] = true
	}
	for _, q := range second {
		if !ids[q.ID] {
			t.Fatalf("second call returned new question %s", q.ID)
		}
	}
	if store.assignmentWrites != 1 {
		t.Errorf("assignment written %d times, want 1", store.assignmentWrites)
	}
}

func TestAssignmentLedgerReturnsPartialRowsAsIs(t *testing.T) {
	ctx := context.Background()
	store := newFakeExamStore()
	course := uuid.New()
	bank := store.addBank(course, model.DifficultyEasy, 6)

	student, exam := uuid.New(), uuid.New()
	store.assignments[AttemptKey{StudentID: student, ExamID: exam}] = []uuid.UUID{bank[0].ID}

	ledger := NewAssignmentLedger(store, NewQuestionPool(1, 1), zerolog.Nop())
	got, err := ledger.GetOrCreate(ctx, student, exam, []uuid.UUID{course}, model.TierCounts{Easy: 4})
	if err != nil {
		t.Fatalf("GetOrCreate: %v", err)
	}
	if len(got) != 1 || got[0].ID != bank[0].ID {
		t.Fatalf("got %v, want only the stored question", got)
	}
	if store.assignmentWrites != 0 {
		t.Errorf("unexpected assignment write")
	}
}

func TestAssignmentLedgerEmptyPoolWritesNothing(t *testing.T) {
	store := newFakeExamStore()
	ledger := NewAssignmentLedger(store, NewQuestionPool(1, 1), zerolog.Nop())

	got, err := ledger.GetOrCreate(context.Background(), uuid.New(), uuid.New(), []uuid.UUID{uuid.New()}, model.TierCounts{Easy: 2})
	if err != nil {
		t.Fatalf("GetOrCreate: %v", err)
	}
	if len(got) != 0 || store.assignmentWrites != 0 {
		t.Fatalf("got %d questions and %d writes, want none", len(got), store.assignmentWrites)
	}
}
