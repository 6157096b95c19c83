package session

import "errors"

// Session errors surfaced to the HTTP and WebSocket layers.
var (
	ErrNotActive       = errors.New("session is not accepting input")
	ErrUnknownQuestion = errors.New("question is not part of this session")
	ErrInvalidOption   = errors.New("option label is not valid for this question")
	ErrIndexOutOfRange = errors.New("question index out of range")
	ErrSessionClosed   = errors.New("session is closed")
	ErrSubmitFailed    = errors.New("submission failed")
)

// ErrResultExists is returned by ExamStore.CreateResult when the attempt
// already has a result.
var ErrResultExists = errors.New("result already exists")
