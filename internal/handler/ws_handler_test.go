package handler

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stemsi/proctor-backend/internal/model"
	"github.com/stemsi/proctor-backend/internal/session"
	ws "github.com/stemsi/proctor-backend/internal/websocket"
)

// streamFrame decodes any server frame on the exam stream.
type streamFrame struct {
	Event       string            `json:"event"`
	View        session.View      `json:"view"`
	Verdict     session.Verdict   `json:"verdict"`
	QuestionID  string            `json:"question_id"`
	Option      model.OptionLabel `json:"option"`
	Disposition model.Disposition `json:"disposition"`
	Result      *model.Result     `json:"result"`
	Error       string            `json:"error"`
}

func dialStream(t *testing.T, srv *httptest.Server, f *portalFixture) (*websocket.Conn, *http.Response, error) {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/exams/" + f.store.exam.ID.String() + "/stream"
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	if conn != nil {
		t.Cleanup(func() { _ = conn.Close() })
	}
	return conn, resp, err
}

func readFrame(t *testing.T, conn *websocket.Conn) (streamFrame, error) {
	t.Helper()
	var fr streamFrame
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	err := conn.ReadJSON(&fr)
	return fr, err
}

func TestExamStreamRequiresLiveSession(t *testing.T) {
	f := newPortalFixture(t)
	srv := httptest.NewServer(f.router)
	defer srv.Close()

	_, resp, err := dialStream(t, srv, f)
	if err == nil {
		t.Fatal("dial succeeded without an entered session")
	}
	if resp == nil || resp.StatusCode != http.StatusNotFound {
		t.Fatalf("handshake response = %v, want 404", resp)
	}
}

func TestExamStreamFlow(t *testing.T) {
	f := newPortalFixture(t)
	srv := httptest.NewServer(f.router)
	defer srv.Close()

	if code, _ := f.do(t, http.MethodPost, "", model.EnterExamRequest{Fullscreen: true}); code != http.StatusOK {
		t.Fatalf("enter status = %d", code)
	}

	conn, _, err := dialStream(t, srv, f)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}

	first, err := readFrame(t, conn)
	if err != nil {
		t.Fatalf("first frame: %v", err)
	}
	if first.Event != string(ws.EventState) || first.View.State != session.StateActive {
		t.Fatalf("first frame = %s/%s, want state/active", first.Event, first.View.State)
	}

	q := f.store.questions[0]
	if err := conn.WriteJSON(ws.RequestPayload{Action: ws.ActionAnswer, QuestionID: q.ID, Option: model.OptionA}); err != nil {
		t.Fatalf("write answer: %v", err)
	}
	saved, err := readFrame(t, conn)
	if err != nil {
		t.Fatalf("saved frame: %v", err)
	}
	if saved.Event != string(ws.EventSaved) || saved.QuestionID != q.ID.String() || saved.Option != model.OptionA {
		t.Fatalf("reply = %+v, want saved A", saved)
	}

	if err := conn.WriteJSON(ws.RequestPayload{Action: ws.ActionPing}); err != nil {
		t.Fatalf("write ping: %v", err)
	}
	if pong, err := readFrame(t, conn); err != nil || pong.Event != string(ws.EventPong) {
		t.Fatalf("pong = %+v, %v", pong, err)
	}

	for i := 0; i < 3; i++ {
		if err := conn.WriteJSON(ws.RequestPayload{Action: ws.ActionVisibility, Hidden: true}); err != nil {
			t.Fatalf("write visibility %d: %v", i, err)
		}
	}

	var verdicts []session.VerdictKind
	var warnings int
	var submitted *streamFrame
	for {
		fr, err := readFrame(t, conn)
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure) {
				t.Fatalf("stream ended with %v, want a normal close frame", err)
			}
			break
		}
		switch fr.Event {
		case string(ws.EventVerdict):
			verdicts = append(verdicts, fr.Verdict.Kind)
		case string(session.EventWarning):
			warnings++
		case string(session.EventSubmitted):
			submitted = &fr
		}
	}

	want := []session.VerdictKind{session.VerdictWarned, session.VerdictWarned, session.VerdictForced}
	if len(verdicts) != len(want) {
		t.Fatalf("verdicts = %v, want %v", verdicts, want)
	}
	for i := range want {
		if verdicts[i] != want[i] {
			t.Fatalf("verdicts = %v, want %v", verdicts, want)
		}
	}
	if warnings != 3 {
		t.Errorf("warning events = %d, want 3", warnings)
	}
	if submitted == nil || submitted.Disposition != model.DispositionForced {
		t.Fatalf("submitted event = %+v, want forced", submitted)
	}
	if submitted.Result == nil || submitted.Result.Score != 1 || submitted.Result.Total != 2 {
		t.Fatalf("submitted result = %+v, want 1/2", submitted.Result)
	}

	f.store.mu.Lock()
	n := len(f.store.results)
	f.store.mu.Unlock()
	if n != 1 {
		t.Fatalf("stored results = %d, want 1", n)
	}
}
