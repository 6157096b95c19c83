package model

import (
	"time"

	"github.com/google/uuid"
)

// TierCounts is the number of questions to draw per difficulty tier.
type TierCounts struct {
	Easy     int `json:"easy"`
	Moderate int `json:"moderate"`
	Hard     int `json:"hard"`
}

// For returns the requested count for a tier. Negative counts read as zero.
func (c TierCounts) For(d Difficulty) int {
	var n int
	switch d {
	case DifficultyEasy:
		n = c.Easy
	case DifficultyModerate:
		n = c.Moderate
	case DifficultyHard:
		n = c.Hard
	}
	if n < 0 {
		return 0
	}
	return n
}

// Total returns the sum of all tier counts.
func (c TierCounts) Total() int {
	return c.For(DifficultyEasy) + c.For(DifficultyModerate) + c.For(DifficultyHard)
}

// Exam represents an assessment authored by an administrator.
type Exam struct {
	ID              uuid.UUID   `json:"id"`
	Title           string      `json:"title"`
	CourseIDs       []uuid.UUID `json:"course_ids"`
	BatchID         *uuid.UUID  `json:"batch_id,omitempty"`
	DurationMinutes int         `json:"duration_minutes"`
	StartTime       *time.Time  `json:"start_time,omitempty"`
	EndTime         *time.Time  `json:"end_time,omitempty"`
	Shuffled        bool        `json:"is_shuffled"`
	Randomized      bool        `json:"is_randomized"`
	Counts          TierCounts  `json:"counts"`
	CreatedAt       time.Time   `json:"created_at"`
	UpdatedAt       time.Time   `json:"updated_at"`
}

// Duration returns the exam length as a time.Duration.
func (e *Exam) Duration() time.Duration {
	return time.Duration(e.DurationMinutes) * time.Minute
}

// ActiveAt reports whether t falls inside the optional activation window.
func (e *Exam) ActiveAt(t time.Time) bool {
	if e.StartTime != nil && t.Before(*e.StartTime) {
		return false
	}
	if e.EndTime != nil && t.After(*e.EndTime) {
		return false
	}
	return true
}

// CreateExamRequest is the payload for creating a new exam.
type CreateExamRequest struct {
	Title           string      `json:"title" binding:"required,min=3,max=255"`
	CourseIDs       []uuid.UUID `json:"course_ids" binding:"required,min=1,dive,required"`
	BatchID         *uuid.UUID  `json:"batch_id" binding:"omitempty"`
	DurationMinutes int         `json:"duration_minutes" binding:"required,min=1,max=480"`
	StartTime       *time.Time  `json:"start_time" binding:"omitempty"`
	EndTime         *time.Time  `json:"end_time" binding:"omitempty"`
	Shuffled        bool        `json:"is_shuffled"`
	Randomized      bool        `json:"is_randomized"`
	EasyCount       int         `json:"easy_count" binding:"min=0"`
	ModerateCount   int         `json:"moderate_count" binding:"min=0"`
	HardCount       int         `json:"hard_count" binding:"min=0"`
	// QuestionIDs is the curated list used when the exam is not randomized.
	QuestionIDs []uuid.UUID `json:"question_ids" binding:"omitempty,dive,required"`
}

// StudentExam is an exam as listed on the student dashboard.
type StudentExam struct {
	Exam
	Completed bool `json:"completed"`
}
