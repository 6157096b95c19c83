package service

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stemsi/proctor-backend/internal/model"
)

func TestValidateExamRequest(t *testing.T) {
	start := time.Date(2026, 6, 1, 9, 0, 0, 0, time.UTC)
	end := start.Add(2 * time.Hour)
	q1, q2 := uuid.New(), uuid.New()
	supply := model.TierCounts{Easy: 10, Moderate: 5, Hard: 2}

	tests := []struct {
		name     string
		req      model.CreateExamRequest
		existing int
		want     error
	}{
		{"randomized within supply", model.CreateExamRequest{Randomized: true, EasyCount: 3, ModerateCount: 5, HardCount: 2}, 0, nil},
		{"randomized no counts", model.CreateExamRequest{Randomized: true}, 0, ErrNoTierCounts},
		{"randomized hard exceeds", model.CreateExamRequest{Randomized: true, EasyCount: 1, HardCount: 3}, 0, ErrTierCountExceeded},
		{"curated ok", model.CreateExamRequest{QuestionIDs: []uuid.UUID{q1, q2}}, 2, nil},
		{"curated duplicates collapse", model.CreateExamRequest{QuestionIDs: []uuid.UUID{q1, q1}}, 1, nil},
		{"curated empty", model.CreateExamRequest{}, 0, ErrNoCuratedQuestions},
		{"curated unknown question", model.CreateExamRequest{QuestionIDs: []uuid.UUID{q1, q2}}, 1, ErrUnknownQuestions},
		{"window reversed", model.CreateExamRequest{QuestionIDs: []uuid.UUID{q1}, StartTime: &end, EndTime: &start}, 1, ErrInvalidWindow},
		{"window ok", model.CreateExamRequest{QuestionIDs: []uuid.UUID{q1}, StartTime: &start, EndTime: &end}, 1, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateExamRequest(&tt.req, supply, tt.existing)
			if !errors.Is(err, tt.want) {
				t.Fatalf("got %v, want %v", err, tt.want)
			}
		})
	}
}
