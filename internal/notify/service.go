package notify

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/zyptics/voice-receptionist/internal/contact"
	"github.com/zyptics/voice-receptionist/pkg/logging"
)

// Preference is the caller's chosen reminder channel(s).
type Preference string

const (
	PreferenceEmail Preference = "email"
	PreferenceSMS   Preference = "sms"
	PreferenceBoth  Preference = "both"
	PreferenceNone  Preference = "none"
)

// ParsePreference normalizes a free-form channel preference. Anything
// unrecognized maps to none.
func ParsePreference(s string) Preference {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "email":
		return PreferenceEmail
	case "sms", "text":
		return PreferenceSMS
	case "both":
		return PreferenceBoth
	default:
		return PreferenceNone
	}
}

// wantsEmail reports whether the preference includes the email channel.
func (p Preference) wantsEmail() bool { return p == PreferenceEmail || p == PreferenceBoth }

// wantsSMS reports whether the preference includes the SMS channel.
func (p Preference) wantsSMS() bool { return p == PreferenceSMS || p == PreferenceBoth }

// spokenTimeFormat renders timestamps the way the agent speaks them.
const spokenTimeFormat = "Monday, January 2 at 3:04 PM"

// Service composes booking confirmations and appointment reminders over the
// configured channels. Unconfigured channels are skipped silently, never
// erred.
type Service struct {
	email  EmailSender
	sms    SMSSender
	logger *logging.Logger

	// afterFunc schedules deferred work; swapped in tests.
	afterFunc func(d time.Duration, f func()) *time.Timer
}

// NewService creates a notification service. Either sender may be nil.
func NewService(email EmailSender, sms SMSSender, logger *logging.Logger) *Service {
	if logger == nil {
		logger = logging.Default()
	}
	return &Service{
		email:     email,
		sms:       sms,
		logger:    logger,
		afterFunc: time.AfterFunc,
	}
}

// ConfirmationResult records which channels a confirmation reached.
type ConfirmationResult struct {
	EmailSent bool
	SMSSent   bool
}

// ErrNoChannel is returned when no configured channel could be attempted.
var ErrNoChannel = errors.New("notify: no notification channel available")

// SendConfirmation sends an immediate booking confirmation. Email is always
// attempted when configured; SMS only when the attendee has a phone number
// and an SMS provider is configured. It errs only when every attempted
// channel failed (or none could be attempted).
func (s *Service) SendConfirmation(ctx context.Context, attendee contact.Contact, start time.Time, summary string) (ConfirmationResult, error) {
	body := fmt.Sprintf("Appointment Confirmed: '%s' on %s.", summary, start.Format(spokenTimeFormat))

	var result ConfirmationResult
	attempted := 0

	if s.email != nil && attendee.Email != "" {
		attempted++
		msg := EmailMessage{
			To:      attendee.Email,
			ToName:  attendee.Name,
			Subject: "Your appointment is confirmed",
			Body:    body,
		}
		if err := s.email.Send(ctx, msg); err != nil {
			s.logger.Error("confirmation email failed", "error", err, "to", attendee.Email)
		} else {
			result.EmailSent = true
		}
	}

	if s.sms != nil && attendee.Phone != "" {
		attempted++
		if err := s.sms.SendSMS(ctx, attendee.Phone, body); err != nil {
			s.logger.Error("confirmation sms failed", "error", err, "to", attendee.Phone)
		} else {
			result.SMSSent = true
		}
	}

	if attempted == 0 {
		return result, ErrNoChannel
	}
	if !result.EmailSent && !result.SMSSent {
		return result, errors.New("notify: all confirmation channels failed")
	}
	return result, nil
}

// ReminderResult records what reminder was scheduled.
type ReminderResult struct {
	Scheduled bool
	Channels  []string
	SendAt    time.Time
}

// ScheduleReminder arranges a reminder at leadTime before the appointment on
// the preferred channel(s). Channels the caller asked for but that are not
// configured are skipped; it errs only when nothing could be scheduled.
func (s *Service) ScheduleReminder(ctx context.Context, attendee contact.Contact, start time.Time, pref Preference, leadTime time.Duration) (ReminderResult, error) {
	if pref == PreferenceNone {
		return ReminderResult{}, nil
	}

	sendAt := start.Add(-leadTime)
	body := fmt.Sprintf("Reminder: your appointment is coming up on %s.", start.Format(spokenTimeFormat))

	var channels []string
	if pref.wantsEmail() && s.email != nil && attendee.Email != "" {
		channels = append(channels, "email")
	}
	if pref.wantsSMS() && s.sms != nil && attendee.Phone != "" {
		channels = append(channels, "sms")
	}
	if len(channels) == 0 {
		return ReminderResult{}, ErrNoChannel
	}

	delay := time.Until(sendAt)
	if delay < 0 {
		delay = 0
	}
	email, sms := s.email, s.sms
	logger := s.logger
	s.afterFunc(delay, func() {
		sendCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		for _, ch := range channels {
			switch ch {
			case "email":
				if err := email.Send(sendCtx, EmailMessage{
					To:      attendee.Email,
					ToName:  attendee.Name,
					Subject: "Appointment reminder",
					Body:    body,
				}); err != nil {
					logger.Error("reminder email failed", "error", err, "to", attendee.Email)
				}
			case "sms":
				if err := sms.SendSMS(sendCtx, attendee.Phone, body); err != nil {
					logger.Error("reminder sms failed", "error", err, "to", attendee.Phone)
				}
			}
		}
	})

	s.logger.Info("reminder scheduled", "channels", strings.Join(channels, ","), "send_at", sendAt)
	return ReminderResult{Scheduled: true, Channels: channels, SendAt: sendAt}, nil
}
