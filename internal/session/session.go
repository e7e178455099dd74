// Package session owns the lifetime of one phone call: the dialogue state,
// the transcript, the media bridge, and the guarantee that the call record is
// written no matter how the call ends.
package session

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/zyptics/voice-receptionist/internal/booking"
	"github.com/zyptics/voice-receptionist/internal/contact"
	"github.com/zyptics/voice-receptionist/internal/dialogue"
	"github.com/zyptics/voice-receptionist/internal/escalation"
	"github.com/zyptics/voice-receptionist/internal/observability/metrics"
	"github.com/zyptics/voice-receptionist/internal/records"
	"github.com/zyptics/voice-receptionist/pkg/logging"
)

// MediaBridge is the audio path to the caller. Start blocks until the
// bridge is ready to carry audio; Say speaks one utterance.
type MediaBridge interface {
	Start(ctx context.Context) error
	Say(ctx context.Context, text string) error
	Close() error
}

// DialoguePolicy decides what to say next. The real-time reasoning lives
// outside this process; it drives the session through its tool surface.
type DialoguePolicy interface {
	HandleTurn(ctx context.Context, s *Session, utterance string) (reply string, err error)
}

// Booker finalizes a confirmed appointment.
type Booker interface {
	Finalize(ctx context.Context, req booking.FinalizeRequest) booking.Result
}

// Gate decides the escalation branch for the call.
type Gate interface {
	Decide(ctx context.Context, callSID string, signalDetected bool, now time.Time) escalation.Decision
}

// Recorder writes the end-of-call record.
type Recorder interface {
	SummarizeAndLog(ctx context.Context, callSID, transcript string, duration time.Duration, caller contact.Contact) error
}

// Config wires a session's collaborators. Bridge and Policy are required;
// the rest may be nil and the matching tool degrades.
type Config struct {
	CallSID  string
	Greeting string
	Bridge   MediaBridge
	Policy   DialoguePolicy
	Booker   Booker
	Gate     Gate
	Recorder Recorder
	Leads    records.Store
	Metrics  *metrics.CallMetrics
	Logger   *logging.Logger
	Now      func() time.Time
}

// SpeakerBridge adapts a speak function into a MediaBridge. The webhook
// layer owns the underlying transport, so Start and Close are no-ops.
type SpeakerBridge struct {
	Speak func(ctx context.Context, text string) error
}

func (b SpeakerBridge) Start(ctx context.Context) error { return nil }

func (b SpeakerBridge) Say(ctx context.Context, text string) error { return b.Speak(ctx, text) }

func (b SpeakerBridge) Close() error { return nil }

type transcriptEntry struct {
	role string
	text string
}

// Session is the per-call controller. One exists per call and is never
// shared across calls.
type Session struct {
	callSID  string
	greeting string
	bridge   MediaBridge
	policy   DialoguePolicy
	booker   Booker
	gate     Gate
	recorder Recorder
	leads    records.Store
	metrics  *metrics.CallMetrics
	state    *dialogue.State
	logger   *logging.Logger
	now      func() time.Time

	startedAt time.Time
	closeOnce sync.Once

	mu         sync.Mutex
	transcript []transcriptEntry
	leadSaved  bool
}

// New creates a session for one call.
func New(cfg Config) *Session {
	if cfg.Logger == nil {
		cfg.Logger = logging.Default()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Session{
		callSID:  cfg.CallSID,
		greeting: cfg.Greeting,
		bridge:   cfg.Bridge,
		policy:   cfg.Policy,
		booker:   cfg.Booker,
		gate:     cfg.Gate,
		recorder: cfg.Recorder,
		leads:    cfg.Leads,
		metrics:  cfg.Metrics,
		state:    dialogue.NewState(),
		logger:   cfg.Logger.WithCall(cfg.CallSID),
		now:      cfg.Now,
	}
}

// State exposes the per-call slot-filling store to the dialogue policy.
func (s *Session) State() *dialogue.State {
	return s.state
}

// CallSID returns the call's routing identifier.
func (s *Session) CallSID() string {
	return s.callSID
}

// Start brings the call up: the media bridge and the spoken greeting run
// concurrently and are joined before the call counts as started. Either
// failing fails the start.
func (s *Session) Start(ctx context.Context) error {
	s.startedAt = s.now()

	errs := make(chan error, 2)
	go func() {
		errs <- s.bridge.Start(ctx)
	}()
	go func() {
		if err := s.bridge.Say(ctx, s.greeting); err != nil {
			errs <- err
			return
		}
		s.appendTranscript("assistant", s.greeting)
		errs <- nil
	}()

	for i := 0; i < 2; i++ {
		if err := <-errs; err != nil {
			return fmt.Errorf("session: start: %w", err)
		}
	}
	s.logger.Info("session started")
	return nil
}

// HandleTurn feeds one caller utterance through the dialogue policy and
// speaks the reply. Policy work runs off the turn loop via Dispatch.
func (s *Session) HandleTurn(ctx context.Context, utterance string) error {
	s.appendTranscript("user", utterance)

	var reply string
	err := s.Dispatch(ctx, "policy turn", func(ctx context.Context) error {
		var err error
		reply, err = s.policy.HandleTurn(ctx, s, utterance)
		return err
	})
	if err != nil {
		return fmt.Errorf("session: turn: %w", err)
	}
	if reply == "" {
		return nil
	}

	if err := s.bridge.Say(ctx, reply); err != nil {
		return fmt.Errorf("session: speak reply: %w", err)
	}
	s.appendTranscript("assistant", reply)
	return nil
}

// Dispatch runs a blocking collaborator call on its own goroutine and waits
// for it, so a hung external service can be abandoned when the call's
// context ends instead of stalling the turn loop.
func (s *Session) Dispatch(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	done := make(chan error, 1)
	go func() {
		done <- fn(ctx)
	}()
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		s.logger.Warn("dispatch abandoned", "op", op)
		return ctx.Err()
	}
}

// Close tears the call down. The call record is written exactly once, even
// when Start failed or Close is called repeatedly.
func (s *Session) Close(ctx context.Context) {
	s.closeOnce.Do(func() {
		if s.bridge != nil {
			if err := s.bridge.Close(); err != nil {
				s.logger.Warn("media bridge close failed", "error", err)
			}
		}

		var duration time.Duration
		if !s.startedAt.IsZero() {
			duration = s.now().Sub(s.startedAt)
		}
		if s.recorder == nil {
			return
		}
		if err := s.recorder.SummarizeAndLog(ctx, s.callSID, s.Transcript(), duration, s.Contact()); err != nil {
			s.logger.Error("call record failed", "error", err)
		}
	})
}

// Contact assembles whatever contact details the call has captured so far.
func (s *Session) Contact() contact.Contact {
	name, _ := s.state.Get(dialogue.FieldName)
	phone, _ := s.state.Get(dialogue.FieldPhone)
	email, _ := s.state.Get(dialogue.FieldEmail)
	return contact.Contact{Name: name, Phone: phone, Email: email}
}

// Transcript renders the call so far as "role: text" lines.
func (s *Session) Transcript() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	lines := make([]string, 0, len(s.transcript))
	for _, e := range s.transcript {
		lines = append(lines, e.role+": "+e.text)
	}
	return strings.Join(lines, "\n")
}

func (s *Session) appendTranscript(role, text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.transcript = append(s.transcript, transcriptEntry{role: role, text: text})
}
