// Package schedule generates candidate appointment slots from free-form
// caller preferences. Generation is pure: given the same preferences and
// clock it always produces the same offer, so the dialogue layer can call
// it on every turn without side effects.
package schedule

import (
	"fmt"
	"strings"
	"time"
)

// MeetingDuration is fixed business policy; callers are never asked for it.
const MeetingDuration = 30 * time.Minute

// maxSlots bounds how many candidates one offer may carry.
const maxSlots = 6

// maxDaysToScan bounds the forward walk so generation always terminates.
const maxDaysToScan = 14

// slotHours are the bookable start hours. The 12:00 hour is excluded so no
// slot ever spans the lunch break.
var slotHours = []int{9, 10, 11, 13, 14, 15, 16}

// spokenHours maps a start hour to its spoken description for TTS.
var spokenHours = map[int]string{
	9:  "nine A.M.",
	10: "ten A.M.",
	11: "eleven A.M.",
	13: "one P.M.",
	14: "two P.M.",
	15: "three P.M.",
	16: "four P.M.",
}

// declineOutOfHours is returned verbatim for any explicit out-of-hours request.
const declineOutOfHours = "Oh, we're actually closed at ten P.M. Our latest appointments are around four P.M. How about tomorrow at two P.M. instead?"

// Slot is a candidate 30-minute appointment interval.
type Slot struct {
	Start time.Time
	End   time.Time
	Label string
}

// StartISO renders the slot start in the local-naive ISO 8601 form the
// calendar collaborator expects.
func (s Slot) StartISO() string {
	return s.Start.Format("2006-01-02T15:04:05")
}

// EndISO renders the slot end like StartISO.
func (s Slot) EndISO() string {
	return s.End.Format("2006-01-02T15:04:05")
}

// Preferences carries the caller's free-form scheduling constraints as the
// dialogue layer extracted them. All fields are optional.
type Preferences struct {
	PreferredDate          string // e.g. "tomorrow", "today"
	PreferredTime          string // e.g. "morning", "afternoon", "2pm"
	EarliestAcceptableDate string // e.g. "next week", "next Monday"
}

// Offer is a bounded, ordered list of candidate slots plus the sentence the
// agent speaks to present them. Slots is never empty.
type Offer struct {
	Slots   []Slot
	Message string
}

// Generate produces candidate slots respecting business hours and
// weekday-only availability. It never returns a dead end: when nothing
// matches, it falls back to a default offer.
func Generate(prefs Preferences, now time.Time) Offer {
	timePref := strings.ToLower(strings.TrimSpace(prefs.PreferredTime))

	// Explicit out-of-hours requests get a decline-and-redirect rather than
	// an empty option list.
	if strings.Contains(timePref, "10pm") || strings.Contains(timePref, "10 pm") || strings.Contains(timePref, "evening") {
		return Offer{
			Slots:   []Slot{fallbackSlot(now)},
			Message: declineOutOfHours,
		}
	}

	floor := resolveFloor(prefs, now)

	var slots []Slot
	day := floor
	for scanned := 0; len(slots) < maxSlots && scanned < maxDaysToScan; scanned++ {
		if day.Weekday() != time.Saturday && day.Weekday() != time.Sunday {
			for _, hour := range slotHours {
				if len(slots) >= maxSlots {
					break
				}
				if !hourMatchesPreference(hour, timePref) {
					continue
				}
				slots = append(slots, slotAt(day, hour))
			}
		}
		day = day.AddDate(0, 0, 1)
	}

	return Offer{
		Slots:   withFallback(slots, now),
		Message: offerMessage(slots, now),
	}
}

// hourMatchesPreference filters slot hours by the caller's time-of-day words.
func hourMatchesPreference(hour int, timePref string) bool {
	switch {
	case timePref == "":
		return true
	case strings.Contains(timePref, "morning"):
		return hour < 12
	case strings.Contains(timePref, "afternoon"):
		return hour >= 12
	default:
		return true
	}
}

func slotAt(day time.Time, hour int) Slot {
	start := time.Date(day.Year(), day.Month(), day.Day(), hour, 0, 0, 0, day.Location())
	return Slot{
		Start: start,
		End:   start.Add(MeetingDuration),
		Label: fmt.Sprintf("%s at %s", start.Weekday(), spokenHours[hour]),
	}
}

// fallbackSlot is the default option offered when nothing else matched:
// two P.M. on the next business day.
func fallbackSlot(now time.Time) Slot {
	day := now.AddDate(0, 0, 1)
	for day.Weekday() == time.Saturday || day.Weekday() == time.Sunday {
		day = day.AddDate(0, 0, 1)
	}
	return slotAt(day, 14)
}

func withFallback(slots []Slot, now time.Time) []Slot {
	if len(slots) > 0 {
		return slots
	}
	return []Slot{fallbackSlot(now)}
}

func offerMessage(slots []Slot, now time.Time) string {
	switch {
	case len(slots) >= 3:
		return fmt.Sprintf("Okay, let me see what we have available... I can offer you %s, %s, or %s. Which of those works best for you?",
			slots[0].Label, slots[1].Label, slots[2].Label)
	case len(slots) == 2:
		return fmt.Sprintf("Alright, I have %s or %s available. Which would you prefer?", slots[0].Label, slots[1].Label)
	case len(slots) == 1:
		return fmt.Sprintf("I have %s available. Would that work for you?", slots[0].Label)
	default:
		return fmt.Sprintf("Hmm, let me check our schedule... How about %s? Would that suit you?", fallbackSlot(now).Label)
	}
}
