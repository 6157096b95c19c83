package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stemsi/proctor-backend/internal/middleware"
	"github.com/stemsi/proctor-backend/internal/response"
	"github.com/stemsi/proctor-backend/internal/service"
	"github.com/stemsi/proctor-backend/internal/session"
	ws "github.com/stemsi/proctor-backend/internal/websocket"
)

const (
	outboundBuffer = 16
	// replyGrace is how long a closing stream waits for the reply to the
	// action that ended the session.
	replyGrace = 250 * time.Millisecond
)

// WSHandler streams a live exam session over a WebSocket: session events go
// out, student actions come in.
type WSHandler struct {
	sessionService *service.ExamSessionService
	log            zerolog.Logger
	upgrader       websocket.Upgrader
}

// NewWSHandler creates a new WSHandler.
func NewWSHandler(sessionService *service.ExamSessionService, log zerolog.Logger, allowedOrigins []string) *WSHandler {
	return &WSHandler{
		sessionService: sessionService,
		log:            log.With().Str("component", "ws_handler").Logger(),
		upgrader:       ws.NewUpgrader(allowedOrigins),
	}
}

// ExamWebSocketStream godoc
// WS /ws/v1/student/exams/:exam_id/stream
// The session must have been entered over HTTP first. Disconnecting does not
// stop the countdown.
func (h *WSHandler) ExamWebSocketStream(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	examID, ok := paramID(c, "exam_id")
	if !ok {
		return
	}

	events, unsubscribe, err := h.sessionService.Subscribe(claims.UserID, examID)
	if err != nil {
		failFromError(c, err)
		return
	}
	defer unsubscribe()

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Error().Err(err).Msg("WebSocket upgrade failed")
		return
	}
	defer conn.Close()

	wsLog := h.log.With().
		Str("student_id", claims.UserID.String()).
		Str("exam_id", examID.String()).
		Logger()
	wsLog.Info().Msg("Student connected")

	out := make(chan interface{}, outboundBuffer)
	stop := make(chan struct{})
	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		h.writeLoop(conn, events, out, stop, wsLog)
	}()

	send := func(v interface{}) bool {
		if v == nil {
			return true
		}
		select {
		case out <- v:
			return true
		case <-writerDone:
			return false
		}
	}

	if view, err := h.sessionService.View(claims.UserID, examID); err == nil {
		send(ws.StateResponse{Event: ws.EventState, View: view})
	}

	ctx := c.Request.Context()
	for {
		var msg ws.RequestPayload
		if err := ws.ReadJSON(conn, &msg); err != nil {
			if ws.IsNormalClose(err) {
				wsLog.Debug().Msg("Connection closed")
			} else {
				wsLog.Warn().Err(err).Msg("Unexpected close")
			}
			break
		}

		if !send(h.dispatch(ctx, claims.UserID, examID, &msg)) {
			break
		}
	}

	close(stop)
	<-writerDone
}

// writeLoop is the connection's only writer. It ends when the session's
// event stream closes, a write fails, or the reader stops.
func (h *WSHandler) writeLoop(conn *websocket.Conn, events <-chan session.Event, out <-chan interface{}, stop <-chan struct{}, log zerolog.Logger) {
	defer conn.Close()

	for {
		select {
		case ev, ok := <-events:
			if !ok {
				flushReplies(conn, out, stop)
				msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "session ended")
				_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
				return
			}
			if err := ws.WriteTyped(conn, ev); err != nil {
				log.Debug().Err(err).Msg("Event write failed")
				return
			}
		case v := <-out:
			if err := ws.WriteTyped(conn, v); err != nil {
				log.Debug().Err(err).Msg("Reply write failed")
				return
			}
		case <-stop:
			return
		}
	}
}

// flushReplies writes replies queued or arriving within replyGrace.
func flushReplies(conn *websocket.Conn, out <-chan interface{}, stop <-chan struct{}) {
	timer := time.NewTimer(replyGrace)
	defer timer.Stop()
	for {
		select {
		case v := <-out:
			if err := ws.WriteTyped(conn, v); err != nil {
				return
			}
		case <-timer.C:
			return
		case <-stop:
			return
		}
	}
}

// dispatch applies one client action and returns the reply, or nil when the
// action has none.
func (h *WSHandler) dispatch(ctx context.Context, studentID, examID uuid.UUID, msg *ws.RequestPayload) interface{} {
	switch msg.Action {
	case ws.ActionAnswer:
		if err := h.sessionService.Answer(ctx, studentID, examID, msg.QuestionID, msg.Option); err != nil {
			return wsError(err)
		}
		return ws.SavedResponse{Event: ws.EventSaved, QuestionID: msg.QuestionID, Option: msg.Option}

	case ws.ActionNavigate:
		if err := h.sessionService.Navigate(studentID, examID, msg.Index); err != nil {
			return wsError(err)
		}
		return h.state(studentID, examID)

	case ws.ActionFullscreen:
		view, err := h.sessionService.SetFullscreen(studentID, examID, msg.On)
		if err != nil {
			return wsError(err)
		}
		return ws.StateResponse{Event: ws.EventState, View: view}

	case ws.ActionVisibility:
		if !msg.Hidden {
			return nil
		}
		verdict, _, err := h.sessionService.ReportHidden(ctx, studentID, examID)
		if err != nil {
			return wsError(err)
		}
		return ws.VerdictResponse{Event: ws.EventVerdict, Verdict: verdict}

	case ws.ActionFinish:
		view, err := h.sessionService.Finish(ctx, studentID, examID)
		if err != nil {
			return wsError(err)
		}
		return ws.StateResponse{Event: ws.EventState, View: view}

	case ws.ActionPing:
		return ws.PongResponse{Event: ws.EventPong}
	}

	h.log.Warn().Str("action", string(msg.Action)).Msg("Unknown action")
	return ws.ErrorMessage("unknown action: " + string(msg.Action))
}

func (h *WSHandler) state(studentID, examID uuid.UUID) interface{} {
	view, err := h.sessionService.View(studentID, examID)
	if err != nil {
		return wsError(err)
	}
	return ws.StateResponse{Event: ws.EventState, View: view}
}

func wsError(err error) ws.ErrorResponse {
	_, code := errorStatus(err)
	return ws.ErrorMessage(response.GetMessage(code))
}
