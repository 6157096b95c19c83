package model

import (
	"time"

	"github.com/google/uuid"
)

// Difficulty is the closed set of question tiers.
type Difficulty string

const (
	DifficultyEasy     Difficulty = "Easy"
	DifficultyModerate Difficulty = "Moderate"
	DifficultyHard     Difficulty = "Hard"
)

// Difficulties lists every tier in selection order.
var Difficulties = []Difficulty{DifficultyEasy, DifficultyModerate, DifficultyHard}

// Valid reports whether d is one of the known tiers.
func (d Difficulty) Valid() bool {
	switch d {
	case DifficultyEasy, DifficultyModerate, DifficultyHard:
		return true
	}
	return false
}

// OptionLabel identifies one of the four answer options.
type OptionLabel string

const (
	OptionA OptionLabel = "A"
	OptionB OptionLabel = "B"
	OptionC OptionLabel = "C"
	OptionD OptionLabel = "D"
)

// Valid reports whether l is one of A, B, C or D. Matching is case-sensitive.
func (l OptionLabel) Valid() bool {
	switch l {
	case OptionA, OptionB, OptionC, OptionD:
		return true
	}
	return false
}

// Options holds the text of the four labeled options.
type Options struct {
	A string `json:"A"`
	B string `json:"B"`
	C string `json:"C"`
	D string `json:"D"`
}

// Text returns the option text for a label.
func (o Options) Text(l OptionLabel) string {
	switch l {
	case OptionA:
		return o.A
	case OptionB:
		return o.B
	case OptionC:
		return o.C
	case OptionD:
		return o.D
	}
	return ""
}

// Has reports whether the label is valid and carries non-empty text.
func (o Options) Has(l OptionLabel) bool {
	return l.Valid() && o.Text(l) != ""
}

// Question is a single multiple-choice question owned by a course.
type Question struct {
	ID            uuid.UUID   `json:"id"`
	CourseID      uuid.UUID   `json:"course_id"`
	Difficulty    Difficulty  `json:"difficulty"`
	Text          string      `json:"text"`
	Options       Options     `json:"options"`
	CorrectOption OptionLabel `json:"correct_option"`
	CreatedAt     time.Time   `json:"created_at"`
}

// QuestionForStudent is a question without the correct answer, sent to students.
type QuestionForStudent struct {
	ID         uuid.UUID  `json:"id"`
	Difficulty Difficulty `json:"difficulty"`
	Text       string     `json:"text"`
	Options    Options    `json:"options"`
}

// ForStudent strips the answer key.
func (q *Question) ForStudent() QuestionForStudent {
	return QuestionForStudent{
		ID:         q.ID,
		Difficulty: q.Difficulty,
		Text:       q.Text,
		Options:    q.Options,
	}
}

// CreateQuestionRequest is the payload for adding a question to a course.
type CreateQuestionRequest struct {
	CourseID      uuid.UUID   `json:"course_id" binding:"required"`
	Difficulty    Difficulty  `json:"difficulty" binding:"required,difficulty"`
	Text          string      `json:"text" binding:"required,min=1,max=2000"`
	Options       Options     `json:"options"`
	CorrectOption OptionLabel `json:"correct_option" binding:"required,option_label"`
}
