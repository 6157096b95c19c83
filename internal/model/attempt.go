package model

import "github.com/google/uuid"

// EnterExamRequest carries the client's conditions when it loads an exam.
type EnterExamRequest struct {
	Fullscreen bool `json:"fullscreen"`
}

type AnswerRequest struct {
	QuestionID uuid.UUID   `json:"question_id" binding:"required"`
	Option     OptionLabel `json:"option" binding:"required,option_label"`
}

type NavigateRequest struct {
	Index *int `json:"index" binding:"required,min=0"`
}

type FullscreenRequest struct {
	On *bool `json:"on" binding:"required"`
}

// VisibilityRequest reports a change of the exam tab's visibility.
// Only hidden=true counts toward the integrity limit.
type VisibilityRequest struct {
	Hidden bool `json:"hidden"`
}
