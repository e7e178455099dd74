package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zyptics/voice-receptionist/internal/callstatus"
)

type memStatusStore struct {
	mu       sync.Mutex
	statuses map[string]string
}

func newMemStatusStore() *memStatusStore {
	return &memStatusStore{statuses: make(map[string]string)}
}

func (s *memStatusStore) Set(ctx context.Context, callSID, status string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.statuses[callSID] = status
	return nil
}

func (s *memStatusStore) Get(ctx context.Context, callSID string) (*callstatus.CallStatus, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.statuses[callSID]
	if !ok {
		return nil, nil
	}
	return &callstatus.CallStatus{CallSID: callSID, Status: st}, nil
}

func (s *memStatusStore) Clear(ctx context.Context, callSID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.statuses, callSID)
	return nil
}

type fakeSession struct {
	mu       sync.Mutex
	started  bool
	startErr error
	turns    []string
	closed   int
}

func (s *fakeSession) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.started = true
	return s.startErr
}

func (s *fakeSession) HandleTurn(ctx context.Context, utterance string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.turns = append(s.turns, utterance)
	return nil
}

func (s *fakeSession) Close(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed++
}

func (s *fakeSession) closedCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

func newTestHandler(statuses StatusStore, sess *fakeSession) *VoiceHandler {
	factory := SessionFactory(nil)
	if sess != nil {
		factory = func(callSID, from string, speak SpeakFunc) CallSession { return sess }
	}
	return NewVoiceHandler("wss://assist.example.com", "+15551230000", statuses, factory, nil, nil)
}

func TestHandleCallReturnsStreamTwiML(t *testing.T) {
	statuses := newMemStatusStore()
	h := newTestHandler(statuses, nil)

	form := url.Values{"CallSid": {"CA1"}, "From": {"+15559876543"}}
	req := httptest.NewRequest(http.MethodPost, "/handle-call", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rr := httptest.NewRecorder()

	h.HandleCall(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "application/xml", rr.Header().Get("Content-Type"))
	assert.Contains(t, rr.Body.String(), "<Connect><Stream url=\"wss://assist.example.com/media-stream/CA1\"/></Connect>")

	st, err := statuses.Get(context.Background(), "CA1")
	require.NoError(t, err)
	require.NotNil(t, st)
	assert.Equal(t, callstatus.StatusActive, st.Status)
}

func TestHandleCallMissingCallSid(t *testing.T) {
	h := newTestHandler(newMemStatusStore(), nil)

	req := httptest.NewRequest(http.MethodPost, "/handle-call", strings.NewReader(""))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rr := httptest.NewRecorder()

	h.HandleCall(rr, req)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestReportStatus(t *testing.T) {
	statuses := newMemStatusStore()
	h := newTestHandler(statuses, nil)

	body := `{"call_sid":"CA1","status":"escalation_requested"}`
	req := httptest.NewRequest(http.MethodPost, "/report-status", strings.NewReader(body))
	rr := httptest.NewRecorder()

	h.ReportStatus(rr, req)

	assert.Equal(t, http.StatusNoContent, rr.Code)
	st, err := statuses.Get(context.Background(), "CA1")
	require.NoError(t, err)
	require.NotNil(t, st)
	assert.Equal(t, callstatus.StatusEscalationRequested, st.Status)
}

func TestReportStatusBadPayload(t *testing.T) {
	h := newTestHandler(newMemStatusStore(), nil)

	req := httptest.NewRequest(http.MethodPost, "/report-status", strings.NewReader("not json"))
	rr := httptest.NewRecorder()
	h.ReportStatus(rr, req)
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	req = httptest.NewRequest(http.MethodPost, "/report-status", strings.NewReader(`{"call_sid":""}`))
	rr = httptest.NewRecorder()
	h.ReportStatus(rr, req)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func postAgentFinished(t *testing.T, h *VoiceHandler, callSID string) *httptest.ResponseRecorder {
	t.Helper()
	form := url.Values{"CallSid": {callSID}}
	req := httptest.NewRequest(http.MethodPost, "/agent-finished", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rr := httptest.NewRecorder()
	h.AgentFinished(rr, req)
	return rr
}

func TestAgentFinishedTransfersOnEscalation(t *testing.T) {
	statuses := newMemStatusStore()
	require.NoError(t, statuses.Set(context.Background(), "CA1", callstatus.StatusEscalationRequested))
	h := newTestHandler(statuses, nil)

	rr := postAgentFinished(t, h, "CA1")

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "<Say>Thank you for your patience. Connecting you now.</Say>")
	assert.Contains(t, rr.Body.String(), "<Dial>+15551230000</Dial>")

	st, err := statuses.Get(context.Background(), "CA1")
	require.NoError(t, err)
	assert.Nil(t, st, "status entry cleared once routing is settled")
}

func TestAgentFinishedHangsUpByDefault(t *testing.T) {
	h := newTestHandler(newMemStatusStore(), nil)

	rr := postAgentFinished(t, h, "CA1")

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "<Say>Thank you for calling. Goodbye!</Say>")
	assert.Contains(t, rr.Body.String(), "<Hangup/>")
	assert.NotContains(t, rr.Body.String(), "<Dial>")
}

func TestMediaStreamDrivesSession(t *testing.T) {
	sess := &fakeSession{}
	h := newTestHandler(newMemStatusStore(), sess)

	r := chi.NewRouter()
	r.Get("/media-stream/{callSid}", h.MediaStream)
	srv := httptest.NewServer(r)
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/media-stream/CA1"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer func() { _ = conn.Close() }()

	require.NoError(t, conn.WriteJSON(streamMessage{Event: "utterance", Text: "do you have anything tomorrow?"}))
	require.NoError(t, conn.WriteJSON(streamMessage{Event: "stop"}))

	require.Eventually(t, func() bool {
		return sess.closedCount() == 1
	}, 2*time.Second, 10*time.Millisecond, "session must be closed after the stream stops")

	sess.mu.Lock()
	defer sess.mu.Unlock()
	assert.True(t, sess.started)
	require.Len(t, sess.turns, 1)
	assert.Equal(t, "do you have anything tomorrow?", sess.turns[0])
}

func TestMediaStreamClosesSessionOnStartFailure(t *testing.T) {
	sess := &fakeSession{startErr: context.DeadlineExceeded}
	h := newTestHandler(newMemStatusStore(), sess)

	r := chi.NewRouter()
	r.Get("/media-stream/{callSid}", h.MediaStream)
	srv := httptest.NewServer(r)
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/media-stream/CA1"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer func() { _ = conn.Close() }()

	require.Eventually(t, func() bool {
		return sess.closedCount() == 1
	}, 2*time.Second, 10*time.Millisecond, "teardown logging must run even when start fails")
}

func TestHealthCheck(t *testing.T) {
	h := newTestHandler(newMemStatusStore(), nil)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rr := httptest.NewRecorder()
	h.HealthCheck(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rr.Body.String())
}
