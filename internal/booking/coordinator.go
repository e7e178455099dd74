// Package booking drives the create-event, send-confirmation,
// schedule-reminder pipeline for a confirmed appointment. Stages run
// strictly in order; a later stage failing never undoes an earlier one.
package booking

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/zyptics/voice-receptionist/internal/contact"
	"github.com/zyptics/voice-receptionist/internal/notify"
	"github.com/zyptics/voice-receptionist/pkg/logging"
)

// Notifier is the confirmation/reminder surface the coordinator drives.
type Notifier interface {
	SendConfirmation(ctx context.Context, attendee contact.Contact, start time.Time, summary string) (notify.ConfirmationResult, error)
	ScheduleReminder(ctx context.Context, attendee contact.Contact, start time.Time, pref notify.Preference, leadTime time.Duration) (notify.ReminderResult, error)
}

// FinalizeRequest carries everything needed to book a confirmed slot.
type FinalizeRequest struct {
	Summary            string
	Start              time.Time
	End                time.Time
	Attendee           contact.Contact
	ReminderPreference notify.Preference
	Description        string
}

// Result reports what each stage achieved plus the terminal message spoken
// to the caller. Booked is true only when the calendar create succeeded.
type Result struct {
	Booked            bool
	Confirmed         bool
	ReminderScheduled bool
	Message           string
}

// Coordinator orchestrates the booking pipeline.
type Coordinator struct {
	calendar Calendar
	notifier Notifier
	leadTime time.Duration
	logger   *logging.Logger
}

// NewCoordinator creates a coordinator. leadTime is how far before the
// appointment a reminder fires; zero selects the 24-hour default.
func NewCoordinator(cal Calendar, notifier Notifier, leadTime time.Duration, logger *logging.Logger) *Coordinator {
	if logger == nil {
		logger = logging.Default()
	}
	if leadTime <= 0 {
		leadTime = 24 * time.Hour
	}
	return &Coordinator{
		calendar: cal,
		notifier: notifier,
		leadTime: leadTime,
		logger:   logger,
	}
}

const createFailedMessage = "I'm so sorry, I wasn't able to get that into the calendar just now. " +
	"Could we try a different time, or I can have someone call you back to confirm?"

// Finalize runs the three-stage pipeline. The caller always receives a
// terminal message, and is never told the meeting is booked unless the
// calendar create succeeded.
func (c *Coordinator) Finalize(ctx context.Context, req FinalizeRequest) Result {
	if req.End.IsZero() {
		req.End = req.Start.Add(30 * time.Minute)
	}

	// Stage 1: create. Failure halts everything; no Booking exists.
	if c.calendar == nil {
		c.logger.Error("booking finalize without calendar configured")
		return Result{Message: createFailedMessage}
	}
	created, err := c.calendar.CreateEvent(ctx, Event{
		Summary:     req.Summary,
		Description: req.Description,
		Start:       req.Start,
		End:         req.End,
	})
	if err != nil {
		c.logger.Error("booking create failed", "error", err, "summary", req.Summary)
		return Result{Message: createFailedMessage}
	}

	result := Result{Booked: true}
	c.logger.Info("booking created", "event_id", created.ID, "start", req.Start)

	// Stage 2: confirm. Failures are contained; the booking stands.
	var confirmation notify.ConfirmationResult
	if c.notifier != nil {
		confirmation, err = c.notifier.SendConfirmation(ctx, req.Attendee, req.Start, req.Summary)
		if err != nil {
			c.logger.Warn("booking confirmation failed", "error", err)
		} else {
			result.Confirmed = confirmation.EmailSent || confirmation.SMSSent
		}
	}

	// Stage 3: reminder, only when asked for. Failures are contained.
	var reminder notify.ReminderResult
	if c.notifier != nil && req.ReminderPreference != notify.PreferenceNone && req.ReminderPreference != "" {
		reminder, err = c.notifier.ScheduleReminder(ctx, req.Attendee, req.Start, req.ReminderPreference, c.leadTime)
		if err != nil {
			c.logger.Warn("booking reminder scheduling failed", "error", err)
		} else {
			result.ReminderScheduled = reminder.Scheduled
		}
	}

	result.Message = c.composeMessage(req, confirmation, reminder)
	return result
}

// composeMessage builds the terminal sentence, softening partial failures.
func (c *Coordinator) composeMessage(req FinalizeRequest, confirmation notify.ConfirmationResult, reminder notify.ReminderResult) string {
	spoken := req.Start.Format("Monday, January 2 at 3:04 PM")
	msg := fmt.Sprintf("Perfect, you're booked in for %s.", spoken)

	switch {
	case confirmation.EmailSent && confirmation.SMSSent:
		msg += " I've sent a confirmation to your email and your phone."
	case confirmation.EmailSent:
		msg += " I've sent a confirmation to your email."
	case confirmation.SMSSent:
		msg += " I've sent a confirmation to your phone."
	}

	wantedReminder := req.ReminderPreference != notify.PreferenceNone && req.ReminderPreference != ""
	switch {
	case reminder.Scheduled:
		msg += fmt.Sprintf(" You'll also get a reminder by %s the day before.", strings.Join(reminder.Channels, " and "))
	case wantedReminder:
		msg += " I couldn't set up the reminder just now, I'm sorry, but your booking is all set."
	}

	return msg
}
