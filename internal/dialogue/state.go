// Package dialogue tracks what a call has already established so the agent
// never re-asks an answered question. One State exists per call and is
// destroyed with it; nothing here is shared across calls.
package dialogue

import (
	"strings"
	"sync"

	"github.com/zyptics/voice-receptionist/internal/schedule"
)

// Well-known field names consulted by the dialogue policy.
const (
	FieldName     = "name"
	FieldPhone    = "phone"
	FieldEmail    = "email"
	FieldTopic    = "topic"
	FieldSlot     = "slot"
	FieldReminder = "reminder_preference"
)

// State is the per-call slot-filling store. The dialogue policy is required
// to consult Get/HasAll before re-asking a question; State can only expose
// the data, not enforce the contract.
type State struct {
	mu           sync.RWMutex
	fields       map[string]string
	offeredSlots []schedule.Slot
}

// NewState creates an empty tracker for one call.
func NewState() *State {
	return &State{fields: make(map[string]string)}
}

// Get returns the captured value for a field, if any.
func (s *State) Get(field string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.fields[field]
	return v, ok
}

// Set records a captured value. Setting overwrites any previous value, so
// re-validation loops stay idempotent.
func (s *State) Set(field, value string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fields[field] = value
}

// HasAll reports whether every listed field has been captured.
func (s *State) HasAll(fields ...string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, f := range fields {
		if _, ok := s.fields[f]; !ok {
			return false
		}
	}
	return true
}

// SetOfferedSlots remembers the last candidate list presented to the caller.
func (s *State) SetOfferedSlots(slots []schedule.Slot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.offeredSlots = append([]schedule.Slot(nil), slots...)
}

// OfferedSlots returns the last presented candidate list.
func (s *State) OfferedSlots() []schedule.Slot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]schedule.Slot(nil), s.offeredSlots...)
}

var ordinals = map[string]int{
	"first": 0, "1": 0, "one": 0,
	"second": 1, "2": 1, "two": 1,
	"third": 2, "3": 2, "three": 2,
	"fourth": 3, "4": 3, "four": 3,
	"fifth": 4, "5": 4, "five": 4,
	"sixth": 5, "6": 5, "six": 5,
}

// cardinals are the number words that double as clock hours ("two pm").
// True ordinals ("second") are never clock times.
var cardinals = map[string]bool{
	"1": true, "one": true,
	"2": true, "two": true,
	"3": true, "three": true,
	"4": true, "four": true,
	"5": true, "five": true,
	"6": true, "six": true,
}

// ResolveSlot matches a caller's free-form pick ("the second one", "Tuesday",
// "two P.M.") against the last offered list. Ordinal references win over
// weekday or time-of-day mentions.
func (s *State) ResolveSlot(choice string) (schedule.Slot, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.offeredSlots) == 0 {
		return schedule.Slot{}, false
	}

	normalized := strings.ToLower(strings.TrimSpace(choice))
	words := strings.FieldsFunc(normalized, func(r rune) bool {
		return r == ' ' || r == ',' || r == '.' || r == '?' || r == '!'
	})

	for _, w := range words {
		if idx, ok := ordinals[w]; ok && idx < len(s.offeredSlots) {
			// Numbers are ambiguous with clock times ("3 pm", "two pm");
			// when a meridiem is present they pick an hour, not a position.
			if cardinals[w] && mentionsClockTime(normalized) {
				continue
			}
			return s.offeredSlots[idx], true
		}
	}

	for _, slot := range s.offeredSlots {
		day := strings.ToLower(slot.Start.Weekday().String())
		if strings.Contains(normalized, day) && slotTimeMatches(slot, normalized) {
			return slot, true
		}
	}
	for _, slot := range s.offeredSlots {
		day := strings.ToLower(slot.Start.Weekday().String())
		if strings.Contains(normalized, day) || slotLabelMatches(slot, normalized) {
			return slot, true
		}
	}
	return schedule.Slot{}, false
}

func mentionsClockTime(s string) bool {
	return strings.Contains(s, "am") || strings.Contains(s, "pm") ||
		strings.Contains(s, "a.m") || strings.Contains(s, "p.m") ||
		strings.Contains(s, "o'clock")
}

// slotTimeMatches checks whether the utterance names this slot's spoken hour.
func slotTimeMatches(slot schedule.Slot, normalized string) bool {
	label := strings.ToLower(slot.Label)
	parts := strings.SplitN(label, " at ", 2)
	if len(parts) != 2 {
		return false
	}
	hourWord := strings.SplitN(parts[1], " ", 2)[0]
	return strings.Contains(normalized, hourWord)
}

func slotLabelMatches(slot schedule.Slot, normalized string) bool {
	return slotTimeMatches(slot, normalized)
}

// Snapshot returns a copy of all captured fields, for logging at teardown.
func (s *State) Snapshot() map[string]string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]string, len(s.fields))
	for k, v := range s.fields {
		out[k] = v
	}
	return out
}
