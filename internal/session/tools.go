package session

import (
	"context"

	"github.com/zyptics/voice-receptionist/internal/booking"
	"github.com/zyptics/voice-receptionist/internal/contact"
	"github.com/zyptics/voice-receptionist/internal/dialogue"
	"github.com/zyptics/voice-receptionist/internal/escalation"
	"github.com/zyptics/voice-receptionist/internal/notify"
	"github.com/zyptics/voice-receptionist/internal/records"
	"github.com/zyptics/voice-receptionist/internal/schedule"
)

// Tool surface for the dialogue policy. Each tool consults and updates the
// call's dialogue state so the policy never re-asks answered questions.

// CheckAvailability generates a slot offer for the caller's preferences and
// remembers it so a later "the second one" can be resolved.
func (s *Session) CheckAvailability(prefs schedule.Preferences) schedule.Offer {
	offer := schedule.Generate(prefs, s.now())
	s.state.SetOfferedSlots(offer.Slots)
	s.logger.Info("availability offered", "slots", len(offer.Slots))
	return offer
}

// SaveContact folds the turn's details into the dialogue state and appends a
// lead once the details are complete. Details usually arrive one per turn, so
// validation runs over everything captured so far, never just the latest
// arguments; a field answered earlier is not re-flagged. Validation issues
// come back as clarifying questions, never as rejections; a failed lead write
// is returned but must not end the call.
func (s *Session) SaveContact(ctx context.Context, name, phone, email, topic string) (contact.Result, error) {
	if name != "" {
		s.state.Set(dialogue.FieldName, name)
	}
	if phone != "" {
		s.state.Set(dialogue.FieldPhone, phone)
	}
	if email != "" {
		s.state.Set(dialogue.FieldEmail, email)
	}
	if topic != "" {
		s.state.Set(dialogue.FieldTopic, topic)
	}

	merged := s.Contact()
	res := contact.Validate(merged.Name, merged.Phone, merged.Email)
	if !res.Complete {
		return res, nil
	}
	if s.leads == nil {
		return res, nil
	}

	s.mu.Lock()
	saved := s.leadSaved
	s.mu.Unlock()
	if saved {
		return res, nil
	}

	capturedTopic, _ := s.state.Get(dialogue.FieldTopic)
	lead := records.Lead{
		CapturedAt: s.now().UTC(),
		CallSID:    s.callSID,
		Name:       merged.Name,
		Phone:      merged.Phone,
		Email:      merged.Email,
		Topic:      capturedTopic,
	}
	err := s.Dispatch(ctx, "append lead", func(ctx context.Context) error {
		return s.leads.AppendLead(ctx, lead)
	})
	if err != nil {
		s.logger.Error("lead append failed", "error", err)
		return res, err
	}
	s.mu.Lock()
	s.leadSaved = true
	s.mu.Unlock()
	s.metrics.ObserveLead()
	s.logger.Info("lead captured", "name", merged.Name)
	return res, nil
}

// FinalizeBooking resolves the caller's slot pick against the last offer and
// runs the booking pipeline. An unresolvable pick asks the caller to choose
// again instead of guessing.
func (s *Session) FinalizeBooking(ctx context.Context, choice, reminderPreference string) booking.Result {
	slot, ok := s.state.ResolveSlot(choice)
	if !ok {
		return booking.Result{
			Message: "Sorry, I didn't catch which time you'd like. Which of the times I mentioned works best for you?",
		}
	}

	pref := notify.ParsePreference(reminderPreference)
	s.state.Set(dialogue.FieldSlot, slot.Label)
	s.state.Set(dialogue.FieldReminder, string(pref))

	attendee := s.Contact()
	summary := "Phone booking"
	if attendee.Name != "" {
		summary = "Meeting with " + attendee.Name
	}
	description := "Booked by phone assistant."
	if topic, ok := s.state.Get(dialogue.FieldTopic); ok && topic != "" {
		description += " Topic: " + topic
	}

	if s.booker == nil {
		s.logger.Error("finalize booking without booker configured")
		return booking.Result{
			Message: "I'm so sorry, I can't get to the calendar right now. I can have someone call you back to confirm a time.",
		}
	}

	var res booking.Result
	err := s.Dispatch(ctx, "finalize booking", func(ctx context.Context) error {
		res = s.booker.Finalize(ctx, booking.FinalizeRequest{
			Summary:            summary,
			Start:              slot.Start,
			End:                slot.End,
			Attendee:           attendee,
			ReminderPreference: pref,
			Description:        description,
		})
		return nil
	})
	if err != nil {
		s.logger.Error("booking dispatch abandoned", "error", err)
		return booking.Result{
			Message: "I'm so sorry, something went wrong on my end while booking that. I can have someone call you back to confirm the time.",
		}
	}
	s.metrics.ObserveBooking(res.Booked)
	return res
}

// Escalate asks the gate whether to hand the call to a human right now.
// Transfers are counted when the call routing actually dials out; declines
// are counted here, the only place they happen.
func (s *Session) Escalate(ctx context.Context) escalation.Decision {
	if s.gate == nil {
		return escalation.Decision{Kind: escalation.KindNone}
	}
	d := s.gate.Decide(ctx, s.callSID, true, s.now())
	if d.Kind == escalation.KindDeclineWithContact {
		s.metrics.ObserveEscalation("decline_with_contact")
	}
	return d
}
