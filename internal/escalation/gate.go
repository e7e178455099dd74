// Package escalation decides whether a call is handed to a human operator
// or answered with an out-of-hours fallback.
package escalation

import (
	"context"
	"fmt"
	"time"

	"github.com/zyptics/voice-receptionist/pkg/logging"
)

// DecisionKind is the branch the gate chose.
type DecisionKind string

const (
	// KindNone means no escalation signal was present.
	KindNone DecisionKind = "none"
	// KindTransfer ends the automated session and bridges to a live line.
	KindTransfer DecisionKind = "transfer"
	// KindDeclineWithContact explains unavailability and offers a fallback channel.
	KindDeclineWithContact DecisionKind = "decline_with_contact"
)

// Decision is the gate's outcome plus the sentence spoken to the caller.
type Decision struct {
	Kind    DecisionKind
	Message string
}

// StatusReporter pushes call status updates to the call-routing layer.
type StatusReporter interface {
	ReportStatus(ctx context.Context, callSID, status string) error
}

// StatusEscalationRequested is the status reported when a caller asks for a human.
const StatusEscalationRequested = "escalation_requested"

// Business hours: Monday through Friday, 09:00 to 18:00 in the business timezone.
const (
	openingHour = 9
	closingHour = 18
)

// Gate evaluates escalation requests against business hours.
type Gate struct {
	reporter        StatusReporter
	location        *time.Location
	fallbackContact string
	logger          *logging.Logger
}

// NewGate creates a gate for the given IANA timezone.
func NewGate(reporter StatusReporter, timezone, fallbackContact string, logger *logging.Logger) (*Gate, error) {
	if logger == nil {
		logger = logging.Default()
	}
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return nil, fmt.Errorf("escalation: load timezone %q: %w", timezone, err)
	}
	return &Gate{
		reporter:        reporter,
		location:        loc,
		fallbackContact: fallbackContact,
		logger:          logger,
	}, nil
}

// Decide returns the escalation branch for the current moment. Whatever the
// branch, an escalation_requested status is reported best-effort; a failed
// report is logged and never changes the decision.
func (g *Gate) Decide(ctx context.Context, callSID string, signalDetected bool, now time.Time) Decision {
	if !signalDetected {
		return Decision{Kind: KindNone}
	}

	g.report(ctx, callSID)

	if g.withinBusinessHours(now) {
		return Decision{
			Kind:    KindTransfer,
			Message: "Of course, let me get you over to one of the team. One moment please.",
		}
	}
	return Decision{
		Kind: KindDeclineWithContact,
		Message: fmt.Sprintf("I'm sorry, there's no one available right now. Our team is in Monday to Friday, nine to six. "+
			"You can reach us at %s, or I can take your details and have someone call you back.", g.fallbackContact),
	}
}

func (g *Gate) withinBusinessHours(now time.Time) bool {
	local := now.In(g.location)
	switch local.Weekday() {
	case time.Saturday, time.Sunday:
		return false
	}
	return local.Hour() >= openingHour && local.Hour() < closingHour
}

func (g *Gate) report(ctx context.Context, callSID string) {
	if g.reporter == nil || callSID == "" {
		return
	}
	reportCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := g.reporter.ReportStatus(reportCtx, callSID, StatusEscalationRequested); err != nil {
		g.logger.Warn("escalation status report failed", "error", err, "call_sid", callSID)
	}
}
