package model

import (
	"time"

	"github.com/google/uuid"
)

// IntegrityEvent is one counted integrity violation, kept for audit.
type IntegrityEvent struct {
	StudentID  uuid.UUID `json:"student_id"`
	ExamID     uuid.UUID `json:"exam_id"`
	Violations int       `json:"violations"`
	OccurredAt time.Time `json:"occurred_at"`
}
