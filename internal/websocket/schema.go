package websocket

import (
	"github.com/google/uuid"
	"github.com/stemsi/proctor-backend/internal/model"
	"github.com/stemsi/proctor-backend/internal/session"
)

// ─── Actions (Client → Server) ──────────────────────────────────────

type Action string

const (
	ActionAnswer     Action = "answer"
	ActionNavigate   Action = "navigate"
	ActionFullscreen Action = "fullscreen"
	ActionVisibility Action = "visibility"
	ActionFinish     Action = "finish"
	ActionPing       Action = "ping"
)

// RequestPayload carries every client action; fields unused by an action
// are left empty.
type RequestPayload struct {
	Action     Action            `json:"action"`
	QuestionID uuid.UUID         `json:"question_id,omitempty"`
	Option     model.OptionLabel `json:"option,omitempty"`
	Index      int               `json:"index,omitempty"`
	On         bool              `json:"on,omitempty"`
	Hidden     bool              `json:"hidden,omitempty"`
}

// ─── Events (Server → Client) ───────────────────────────────────────

// Session events (tick, warning, submitted...) are forwarded as
// session.Event values. The types below cover replies to actions.

type Event string

const (
	EventError   Event = "error"
	EventSaved   Event = "saved"
	EventState   Event = "state"
	EventVerdict Event = "verdict"
	EventPong    Event = "pong"
)

type SavedResponse struct {
	Event      Event             `json:"event"`
	QuestionID uuid.UUID         `json:"question_id"`
	Option     model.OptionLabel `json:"option"`
}

type StateResponse struct {
	Event Event        `json:"event"`
	View  session.View `json:"view"`
}

type VerdictResponse struct {
	Event   Event           `json:"event"`
	Verdict session.Verdict `json:"verdict"`
}

type ErrorResponse struct {
	Event Event  `json:"event"`
	Error string `json:"error"`
}

type PongResponse struct {
	Event Event `json:"event"`
}
