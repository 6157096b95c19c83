package model

import (
	"time"

	"github.com/google/uuid"
)

// Disposition is the reason a session reached its terminal state.
type Disposition string

const (
	DispositionManual           Disposition = "manual"
	DispositionTimeout          Disposition = "timeout"
	DispositionForced           Disposition = "forced"
	DispositionAlreadyCompleted Disposition = "already-completed"
)

// Answers maps a question to the selected option label.
type Answers map[uuid.UUID]OptionLabel

// Clone returns an independent copy.
func (a Answers) Clone() Answers {
	out := make(Answers, len(a))
	for k, v := range a {
		out[k] = v
	}
	return out
}

// Result is the immutable scored submission of one student for one exam.
type Result struct {
	ID          uuid.UUID   `json:"id"`
	StudentID   uuid.UUID   `json:"student_id"`
	ExamID      uuid.UUID   `json:"exam_id"`
	Score       int         `json:"score"`
	Total       int         `json:"total"`
	Answers     Answers     `json:"answers"`
	Disposition Disposition `json:"disposition"`
	CompletedAt time.Time   `json:"completed_at"`
}

// ExamResult joins a result with the student's display name for admin listings.
type ExamResult struct {
	Result
	StudentName  string `json:"student_name"`
	StudentEmail string `json:"student_email"`
}

// StudentResult joins a result with the exam title for the student dashboard.
type StudentResult struct {
	Result
	ExamTitle string `json:"exam_title"`
}
