package session

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zyptics/voice-receptionist/internal/booking"
	"github.com/zyptics/voice-receptionist/internal/contact"
	"github.com/zyptics/voice-receptionist/internal/escalation"
	"github.com/zyptics/voice-receptionist/internal/observability/metrics"
	"github.com/zyptics/voice-receptionist/internal/records"
	"github.com/zyptics/voice-receptionist/internal/schedule"
)

type fakeBridge struct {
	mu       sync.Mutex
	startErr error
	sayErr   error
	said     []string
	closed   int
}

func (b *fakeBridge) Start(ctx context.Context) error { return b.startErr }

func (b *fakeBridge) Say(ctx context.Context, text string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.sayErr != nil {
		return b.sayErr
	}
	b.said = append(b.said, text)
	return nil
}

func (b *fakeBridge) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed++
	return nil
}

type fakePolicy struct {
	reply string
	err   error
}

func (p *fakePolicy) HandleTurn(ctx context.Context, s *Session, utterance string) (string, error) {
	return p.reply, p.err
}

type fakeBooker struct {
	reqs []booking.FinalizeRequest
}

func (b *fakeBooker) Finalize(ctx context.Context, req booking.FinalizeRequest) booking.Result {
	b.reqs = append(b.reqs, req)
	return booking.Result{Booked: true, Message: "booked"}
}

type fakeRecorder struct {
	mu         sync.Mutex
	calls      int
	transcript string
	duration   time.Duration
	caller     contact.Contact
}

func (r *fakeRecorder) SummarizeAndLog(ctx context.Context, callSID, transcript string, duration time.Duration, caller contact.Contact) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
	r.transcript = transcript
	r.duration = duration
	r.caller = caller
	return nil
}

// Wednesday, September 3 2025, 10:30 local.
var wednesday = time.Date(2025, 9, 3, 10, 30, 0, 0, time.UTC)

func newTestSession(bridge *fakeBridge, policy DialoguePolicy, extra func(*Config)) (*Session, *fakeRecorder, *records.MemoryStore) {
	recorder := &fakeRecorder{}
	leads := records.NewMemoryStore()
	cfg := Config{
		CallSID:  "CA1",
		Greeting: "Hi, this is Rachel from Zyptics. How can I help?",
		Bridge:   bridge,
		Policy:   policy,
		Recorder: recorder,
		Leads:    leads,
		Now:      func() time.Time { return wednesday },
	}
	if extra != nil {
		extra(&cfg)
	}
	return New(cfg), recorder, leads
}

func TestStartJoinsBridgeAndGreeting(t *testing.T) {
	bridge := &fakeBridge{}
	s, _, _ := newTestSession(bridge, &fakePolicy{}, nil)

	require.NoError(t, s.Start(context.Background()))
	require.Len(t, bridge.said, 1)
	assert.Contains(t, bridge.said[0], "Rachel")
	assert.Contains(t, s.Transcript(), "assistant: Hi, this is Rachel")
}

func TestStartFailsWhenBridgeFails(t *testing.T) {
	bridge := &fakeBridge{startErr: errors.New("stream refused")}
	s, _, _ := newTestSession(bridge, &fakePolicy{}, nil)

	assert.Error(t, s.Start(context.Background()))
}

func TestStartFailsWhenGreetingFails(t *testing.T) {
	bridge := &fakeBridge{sayErr: errors.New("audio path down")}
	s, _, _ := newTestSession(bridge, &fakePolicy{}, nil)

	assert.Error(t, s.Start(context.Background()))
}

func TestCloseLogsExactlyOnce(t *testing.T) {
	bridge := &fakeBridge{}
	s, recorder, _ := newTestSession(bridge, &fakePolicy{}, nil)

	require.NoError(t, s.Start(context.Background()))
	s.Close(context.Background())
	s.Close(context.Background())

	assert.Equal(t, 1, recorder.calls)
	assert.Equal(t, 1, bridge.closed)
}

func TestCloseLogsEvenWhenStartFailed(t *testing.T) {
	bridge := &fakeBridge{startErr: errors.New("stream refused")}
	s, recorder, _ := newTestSession(bridge, &fakePolicy{}, nil)

	require.Error(t, s.Start(context.Background()))
	s.Close(context.Background())

	assert.Equal(t, 1, recorder.calls)
}

func TestHandleTurnSpeaksReplyAndRecordsTranscript(t *testing.T) {
	bridge := &fakeBridge{}
	s, _, _ := newTestSession(bridge, &fakePolicy{reply: "We open at nine."}, nil)

	require.NoError(t, s.HandleTurn(context.Background(), "what time do you open?"))

	transcript := s.Transcript()
	assert.Contains(t, transcript, "user: what time do you open?")
	assert.Contains(t, transcript, "assistant: We open at nine.")
	require.Len(t, bridge.said, 1)
	assert.Equal(t, "We open at nine.", bridge.said[0])
}

func TestHandleTurnPolicyError(t *testing.T) {
	bridge := &fakeBridge{}
	s, _, _ := newTestSession(bridge, &fakePolicy{err: errors.New("policy crashed")}, nil)

	assert.Error(t, s.HandleTurn(context.Background(), "hello"))
	assert.Empty(t, bridge.said, "no reply spoken when policy fails")
}

func TestDispatchAbandonedOnContextCancel(t *testing.T) {
	s, _, _ := newTestSession(&fakeBridge{}, &fakePolicy{}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	block := make(chan struct{})
	defer close(block)

	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()
	err := s.Dispatch(ctx, "slow call", func(ctx context.Context) error {
		<-block
		return nil
	})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSaveContactCompleteAppendsLead(t *testing.T) {
	s, _, leads := newTestSession(&fakeBridge{}, &fakePolicy{}, nil)

	res, err := s.SaveContact(context.Background(), "Jane Doe", "555-987-6543", "jane@example.com", "pricing")
	require.NoError(t, err)
	assert.True(t, res.Complete)

	stored := leads.Leads()
	require.Len(t, stored, 1)
	assert.Equal(t, "Jane Doe", stored[0].Name)
	assert.Equal(t, "CA1", stored[0].CallSID)
	assert.Equal(t, "pricing", stored[0].Topic)
}

func TestSaveContactIncompleteAsksNoLead(t *testing.T) {
	s, _, leads := newTestSession(&fakeBridge{}, &fakePolicy{}, nil)

	res, err := s.SaveContact(context.Background(), "J", "555", "", "")
	require.NoError(t, err)
	assert.False(t, res.Complete)
	assert.NotEmpty(t, res.Issues)
	assert.Empty(t, leads.Leads(), "incomplete details must not persist a lead")
}

func TestSaveContactMergesAcrossTurns(t *testing.T) {
	s, _, leads := newTestSession(&fakeBridge{}, &fakePolicy{}, nil)

	res, err := s.SaveContact(context.Background(), "John Smith", "", "", "")
	require.NoError(t, err)
	assert.False(t, res.Complete)
	for _, issue := range res.Issues {
		assert.NotEqual(t, "name", issue.Field, "a captured name must not be re-flagged")
	}

	res, err = s.SaveContact(context.Background(), "", "555-123-4567", "", "")
	require.NoError(t, err)
	assert.False(t, res.Complete)
	for _, issue := range res.Issues {
		assert.NotEqual(t, "name", issue.Field)
		assert.NotEqual(t, "phone", issue.Field, "a captured phone must not be re-flagged")
	}
	assert.Empty(t, leads.Leads())

	res, err = s.SaveContact(context.Background(), "", "", "john@example.com", "sales demo")
	require.NoError(t, err)
	assert.True(t, res.Complete, "details gathered one per turn complete the contact")

	stored := leads.Leads()
	require.Len(t, stored, 1)
	assert.Equal(t, "John Smith", stored[0].Name)
	assert.Equal(t, "555-123-4567", stored[0].Phone)
	assert.Equal(t, "john@example.com", stored[0].Email)
	assert.Equal(t, "sales demo", stored[0].Topic)

	_, err = s.SaveContact(context.Background(), "", "", "", "pricing")
	require.NoError(t, err)
	assert.Len(t, leads.Leads(), 1, "a later turn must not duplicate the lead")
}

func TestCheckAvailabilityThenFinalizeBooking(t *testing.T) {
	booker := &fakeBooker{}
	s, _, _ := newTestSession(&fakeBridge{}, &fakePolicy{}, func(cfg *Config) {
		cfg.Booker = booker
	})

	_, err := s.SaveContact(context.Background(), "Jane Doe", "555-987-6543", "jane@example.com", "demo")
	require.NoError(t, err)

	offer := s.CheckAvailability(schedule.Preferences{})
	require.NotEmpty(t, offer.Slots)

	res := s.FinalizeBooking(context.Background(), "the second one", "email")
	assert.True(t, res.Booked)
	require.Len(t, booker.reqs, 1)
	assert.Equal(t, offer.Slots[1].Start, booker.reqs[0].Start)
	assert.Equal(t, "Meeting with Jane Doe", booker.reqs[0].Summary)
	assert.Equal(t, "Jane Doe", booker.reqs[0].Attendee.Name)
}

func TestFinalizeBookingUnresolvedChoice(t *testing.T) {
	booker := &fakeBooker{}
	s, _, _ := newTestSession(&fakeBridge{}, &fakePolicy{}, func(cfg *Config) {
		cfg.Booker = booker
	})

	res := s.FinalizeBooking(context.Background(), "whenever", "none")
	assert.False(t, res.Booked)
	assert.Contains(t, res.Message, "which time")
	assert.Empty(t, booker.reqs)
}

type blockingBooker struct {
	release chan struct{}
}

func (b *blockingBooker) Finalize(ctx context.Context, req booking.FinalizeRequest) booking.Result {
	<-b.release
	return booking.Result{}
}

func TestFinalizeBookingDispatchCancelled(t *testing.T) {
	booker := &blockingBooker{release: make(chan struct{})}
	t.Cleanup(func() { close(booker.release) })
	s, _, _ := newTestSession(&fakeBridge{}, &fakePolicy{}, func(cfg *Config) {
		cfg.Booker = booker
	})

	offer := s.CheckAvailability(schedule.Preferences{})
	require.NotEmpty(t, offer.Slots)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res := s.FinalizeBooking(ctx, "the first one", "none")
	assert.False(t, res.Booked)
	assert.NotEmpty(t, res.Message, "the caller is never left without a terminal response")
	assert.Contains(t, res.Message, "call you back")
}

func TestToolsRecordMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.NewCallMetrics(reg)
	booker := &fakeBooker{}
	s, _, _ := newTestSession(&fakeBridge{}, &fakePolicy{}, func(cfg *Config) {
		cfg.Booker = booker
		cfg.Metrics = m
		cfg.Gate = gateFunc(func(ctx context.Context, callSID string, signal bool, now time.Time) escalation.Decision {
			return escalation.Decision{Kind: escalation.KindDeclineWithContact, Message: "we're closed"}
		})
	})

	_, err := s.SaveContact(context.Background(), "Jane Doe", "555-987-6543", "jane@example.com", "demo")
	require.NoError(t, err)

	offer := s.CheckAvailability(schedule.Preferences{})
	require.NotEmpty(t, offer.Slots)
	res := s.FinalizeBooking(context.Background(), "the first one", "none")
	require.True(t, res.Booked)

	d := s.Escalate(context.Background())
	require.Equal(t, escalation.KindDeclineWithContact, d.Kind)

	expected := strings.NewReader(`
# HELP receptionist_bookings_total Total booking attempts by status
# TYPE receptionist_bookings_total counter
receptionist_bookings_total{status="booked"} 1
# HELP receptionist_escalations_total Total escalation decisions by branch
# TYPE receptionist_escalations_total counter
receptionist_escalations_total{branch="decline_with_contact"} 1
# HELP receptionist_leads_total Total captured leads
# TYPE receptionist_leads_total counter
receptionist_leads_total 1
`)
	require.NoError(t, testutil.GatherAndCompare(reg, expected,
		"receptionist_bookings_total", "receptionist_escalations_total", "receptionist_leads_total"))
}

func TestEscalateUsesGate(t *testing.T) {
	gateCalled := false
	s, _, _ := newTestSession(&fakeBridge{}, &fakePolicy{}, func(cfg *Config) {
		cfg.Gate = gateFunc(func(ctx context.Context, callSID string, signal bool, now time.Time) escalation.Decision {
			gateCalled = true
			assert.Equal(t, "CA1", callSID)
			assert.True(t, signal)
			return escalation.Decision{Kind: escalation.KindTransfer, Message: "transferring"}
		})
	})

	d := s.Escalate(context.Background())
	assert.True(t, gateCalled)
	assert.Equal(t, escalation.KindTransfer, d.Kind)
}

func TestEscalateWithoutGate(t *testing.T) {
	s, _, _ := newTestSession(&fakeBridge{}, &fakePolicy{}, nil)
	d := s.Escalate(context.Background())
	assert.Equal(t, escalation.KindNone, d.Kind)
}

type gateFunc func(ctx context.Context, callSID string, signalDetected bool, now time.Time) escalation.Decision

func (f gateFunc) Decide(ctx context.Context, callSID string, signalDetected bool, now time.Time) escalation.Decision {
	return f(ctx, callSID, signalDetected, now)
}

func TestCloseReportsCapturedContact(t *testing.T) {
	s, recorder, _ := newTestSession(&fakeBridge{}, &fakePolicy{}, nil)

	require.NoError(t, s.Start(context.Background()))
	_, err := s.SaveContact(context.Background(), "Jane Doe", "555-987-6543", "", "")
	require.NoError(t, err)
	s.Close(context.Background())

	assert.Equal(t, "Jane Doe", recorder.caller.Name)
	assert.Contains(t, recorder.transcript, "assistant: Hi, this is Rachel")
}
