// Package handlers holds the call-routing webhook endpoints. The telephony
// provider drives the call lifecycle through these: answer, media stream,
// status reports, and the transfer-or-hangup decision at agent teardown.
package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"go.opentelemetry.io/otel"

	"github.com/zyptics/voice-receptionist/internal/callstatus"
	"github.com/zyptics/voice-receptionist/internal/observability/metrics"
	"github.com/zyptics/voice-receptionist/pkg/logging"
)

var voiceTracer = otel.Tracer("receptionist.internal.http.voice")

// CallSession is the per-call controller the media stream drives.
type CallSession interface {
	Start(ctx context.Context) error
	HandleTurn(ctx context.Context, utterance string) error
	Close(ctx context.Context)
}

// SpeakFunc delivers one spoken utterance back over the media stream.
type SpeakFunc func(ctx context.Context, text string) error

// SessionFactory builds a session for an answered call. speak is the only
// way the session can talk to the caller.
type SessionFactory func(callSID, from string, speak SpeakFunc) CallSession

// StatusStore tracks per-call routing status.
type StatusStore interface {
	Set(ctx context.Context, callSID, status string) error
	Get(ctx context.Context, callSID string) (*callstatus.CallStatus, error)
	Clear(ctx context.Context, callSID string) error
}

// VoiceHandler serves the telephony provider's webhooks.
type VoiceHandler struct {
	streamBaseURL    string
	forwardingNumber string
	statuses         StatusStore
	sessions         SessionFactory
	metrics          *metrics.CallMetrics
	logger           *logging.Logger
	upgrader         websocket.Upgrader
}

// NewVoiceHandler creates the webhook handler. streamBaseURL is the public
// wss:// origin the provider connects back to; when empty it is derived
// from the request host.
func NewVoiceHandler(streamBaseURL, forwardingNumber string, statuses StatusStore, sessions SessionFactory, m *metrics.CallMetrics, logger *logging.Logger) *VoiceHandler {
	if logger == nil {
		logger = logging.Default()
	}
	return &VoiceHandler{
		streamBaseURL:    strings.TrimRight(streamBaseURL, "/"),
		forwardingNumber: forwardingNumber,
		statuses:         statuses,
		sessions:         sessions,
		metrics:          m,
		logger:           logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			// The telephony provider sets no Origin header.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// HandleCall handles POST /handle-call: an inbound call was answered, reply
// with TwiML that opens a media stream back to us.
func (h *VoiceHandler) HandleCall(w http.ResponseWriter, r *http.Request) {
	ctx, span := voiceTracer.Start(r.Context(), "voice.handle_call")
	defer span.End()
	start := time.Now()
	defer func() { h.metrics.ObserveWebhookLatency("/handle-call", time.Since(start).Seconds()) }()

	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form payload", http.StatusBadRequest)
		return
	}
	callSID := strings.TrimSpace(r.FormValue("CallSid"))
	if callSID == "" {
		http.Error(w, "missing CallSid", http.StatusBadRequest)
		return
	}
	from := strings.TrimSpace(r.FormValue("From"))

	if h.statuses != nil {
		if err := h.statuses.Set(ctx, callSID, callstatus.StatusActive); err != nil {
			h.logger.Warn("status set failed", "error", err, "call_sid", callSID)
		}
	}

	h.logger.Info("inbound call answered", "call_sid", callSID, "from", from)

	streamURL := h.streamURL(r, callSID)
	twiml := fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8"?><Response><Connect><Stream url="%s"/></Connect></Response>`, streamURL)
	w.Header().Set("Content-Type", "application/xml")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(twiml))
}

// streamMessage is one frame on the media-stream websocket.
type streamMessage struct {
	Event string `json:"event"`
	Text  string `json:"text,omitempty"`
}

// MediaStream handles GET /media-stream/{callSid}: the provider's websocket
// carrying the call. The session is closed, and its call record written, on
// every exit path.
func (h *VoiceHandler) MediaStream(w http.ResponseWriter, r *http.Request) {
	callSID := chi.URLParam(r, "callSid")
	if callSID == "" {
		http.Error(w, "missing callSid", http.StatusBadRequest)
		return
	}
	if h.sessions == nil {
		http.Error(w, "sessions unavailable", http.StatusServiceUnavailable)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error("websocket upgrade failed", "error", err, "call_sid", callSID)
		return
	}
	defer func() { _ = conn.Close() }()

	ctx := r.Context()
	var writeMu sync.Mutex
	speak := func(ctx context.Context, text string) error {
		writeMu.Lock()
		defer writeMu.Unlock()
		return conn.WriteJSON(streamMessage{Event: "say", Text: text})
	}
	sess := h.sessions(callSID, r.URL.Query().Get("from"), speak)
	defer sess.Close(context.WithoutCancel(ctx))

	if err := sess.Start(ctx); err != nil {
		h.logger.Error("session start failed", "error", err, "call_sid", callSID)
		h.metrics.ObserveCall("start_failed")
		return
	}

	for {
		var msg streamMessage
		if err := conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				h.logger.Warn("media stream closed unexpectedly", "error", err, "call_sid", callSID)
			}
			break
		}
		switch msg.Event {
		case "utterance":
			if err := sess.HandleTurn(ctx, msg.Text); err != nil {
				h.logger.Error("turn failed", "error", err, "call_sid", callSID)
			}
		case "stop":
			h.logger.Info("media stream stopped", "call_sid", callSID)
			h.metrics.ObserveCall("finished")
			return
		}
	}
	h.metrics.ObserveCall("disconnected")
}

// ReportStatus handles POST /report-status: JSON {call_sid, status} from the
// agent side, consumed later by AgentFinished.
func (h *VoiceHandler) ReportStatus(w http.ResponseWriter, r *http.Request) {
	ctx, span := voiceTracer.Start(r.Context(), "voice.report_status")
	defer span.End()

	var payload struct {
		CallSID string `json:"call_sid"`
		Status  string `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, "invalid json payload", http.StatusBadRequest)
		return
	}
	if payload.CallSID == "" || payload.Status == "" {
		http.Error(w, "call_sid and status required", http.StatusBadRequest)
		return
	}
	if h.statuses == nil {
		http.Error(w, "status store unavailable", http.StatusServiceUnavailable)
		return
	}
	if err := h.statuses.Set(ctx, payload.CallSID, payload.Status); err != nil {
		h.logger.Error("status set failed", "error", err, "call_sid", payload.CallSID)
		http.Error(w, "status store failure", http.StatusInternalServerError)
		return
	}
	h.logger.Info("call status reported", "call_sid", payload.CallSID, "status", payload.Status)
	w.WriteHeader(http.StatusNoContent)
}

// AgentFinished handles POST /agent-finished: the voice agent hung up its
// leg. If the call asked for a human we bridge to the forwarding number,
// otherwise we hang up.
func (h *VoiceHandler) AgentFinished(w http.ResponseWriter, r *http.Request) {
	ctx, span := voiceTracer.Start(r.Context(), "voice.agent_finished")
	defer span.End()
	start := time.Now()
	defer func() { h.metrics.ObserveWebhookLatency("/agent-finished", time.Since(start).Seconds()) }()

	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form payload", http.StatusBadRequest)
		return
	}
	callSID := strings.TrimSpace(r.FormValue("CallSid"))
	if callSID == "" {
		http.Error(w, "missing CallSid", http.StatusBadRequest)
		return
	}

	transfer := false
	if h.statuses != nil {
		st, err := h.statuses.Get(ctx, callSID)
		if err != nil {
			h.logger.Error("status get failed", "error", err, "call_sid", callSID)
		} else if st != nil && st.Status == callstatus.StatusEscalationRequested {
			transfer = true
		}
		if err := h.statuses.Clear(ctx, callSID); err != nil {
			h.logger.Warn("status clear failed", "error", err, "call_sid", callSID)
		}
	}

	var twiml string
	if transfer && h.forwardingNumber != "" {
		h.logger.Info("transferring call to human", "call_sid", callSID)
		h.metrics.ObserveEscalation("transfer")
		twiml = fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8"?><Response><Say>Thank you for your patience. Connecting you now.</Say><Dial>%s</Dial></Response>`, h.forwardingNumber)
	} else {
		h.logger.Info("hanging up finished call", "call_sid", callSID)
		twiml = `<?xml version="1.0" encoding="UTF-8"?><Response><Say>Thank you for calling. Goodbye!</Say><Hangup/></Response>`
	}
	w.Header().Set("Content-Type", "application/xml")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(twiml))
}

// HealthCheck handles GET /health.
func (h *VoiceHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}

func (h *VoiceHandler) streamURL(r *http.Request, callSID string) string {
	base := h.streamBaseURL
	if base == "" {
		base = "wss://" + r.Host
	}
	base = strings.Replace(base, "https://", "wss://", 1)
	base = strings.Replace(base, "http://", "ws://", 1)
	return base + "/media-stream/" + callSID
}
