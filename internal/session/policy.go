package session

import (
	"context"
	"regexp"
	"strings"

	"github.com/zyptics/voice-receptionist/internal/schedule"
)

// ScriptedPolicy is a rule-based dialogue policy used when no external
// dialogue engine is plugged in. It recognizes escalation requests, booking
// intents, slot picks, simple contact details, and FAQ questions against the
// knowledge base; anything else gets a redirect back to what the assistant
// can do.
type ScriptedPolicy struct {
	businessName string
	faqs         []faqEntry
}

type faqEntry struct {
	question string
	answer   string
}

// NewScriptedPolicy creates the fallback policy over the loaded knowledge
// base text.
func NewScriptedPolicy(businessName, knowledgeBase string) *ScriptedPolicy {
	return &ScriptedPolicy{
		businessName: businessName,
		faqs:         parseFAQs(knowledgeBase),
	}
}

// parseFAQs pulls "Q:"/"A:" pairs out of the knowledge text.
func parseFAQs(knowledgeBase string) []faqEntry {
	var faqs []faqEntry
	lines := strings.Split(knowledgeBase, "\n")
	for i := 0; i < len(lines)-1; i++ {
		q, ok := strings.CutPrefix(strings.TrimSpace(lines[i]), "Q: ")
		if !ok {
			continue
		}
		a, ok := strings.CutPrefix(strings.TrimSpace(lines[i+1]), "A: ")
		if !ok {
			continue
		}
		faqs = append(faqs, faqEntry{question: strings.ToLower(q), answer: a})
	}
	return faqs
}

var escalationWords = []string{"human", "real person", "someone", "agent", "representative", "manager", "operator"}

var bookingWords = []string{"book", "appointment", "schedule", "meeting", "available", "availability", "come in"}

var (
	namePattern  = regexp.MustCompile(`(?i)my name is ([a-z '-]+)`)
	phonePattern = regexp.MustCompile(`[\d][\d\-\s().]{5,}[\d]`)
	emailPattern = regexp.MustCompile(`[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+`)
)

// HandleTurn implements DialoguePolicy.
func (p *ScriptedPolicy) HandleTurn(ctx context.Context, s *Session, utterance string) (string, error) {
	lower := strings.ToLower(utterance)

	if containsAny(lower, escalationWords) {
		d := s.Escalate(ctx)
		if d.Message != "" {
			return d.Message, nil
		}
	}

	if reply, handled := p.captureContact(ctx, s, utterance); handled {
		return reply, nil
	}

	// A pick against a pending offer beats a fresh booking intent.
	if _, ok := s.State().ResolveSlot(utterance); ok {
		res := s.FinalizeBooking(ctx, utterance, reminderPreferenceFrom(lower))
		return res.Message, nil
	}

	if containsAny(lower, bookingWords) {
		if !s.Contact().Complete() {
			return "I'd be happy to get you booked in. Could I grab your name, the best phone number, and an email for the confirmation?", nil
		}
		offer := s.CheckAvailability(preferencesFrom(lower))
		return offer.Message, nil
	}

	if answer, ok := p.answerFromKnowledge(lower); ok {
		return answer, nil
	}

	return "I can answer questions about " + p.businessName + ", book you in for an appointment, or take your details so the team can follow up. What would you like to do?", nil
}

// answerFromKnowledge returns the FAQ answer whose question shares the most
// content words with the utterance. Two shared words is the floor; below
// that a match is too likely to be noise.
func (p *ScriptedPolicy) answerFromKnowledge(lower string) (string, bool) {
	words := strings.Fields(lower)
	best := ""
	bestScore := 0
	for _, faq := range p.faqs {
		score := 0
		for _, w := range words {
			w = strings.Trim(w, "?.,!")
			if len(w) >= 4 && strings.Contains(faq.question, w) {
				score++
			}
		}
		if score > bestScore {
			bestScore = score
			best = faq.answer
		}
	}
	if bestScore >= 2 {
		return best, true
	}
	return "", false
}

// captureContact pulls contact details out of the utterance when they are
// stated plainly. Returns the clarifying question for the first flagged
// field, or a move-along prompt once the details are complete.
func (p *ScriptedPolicy) captureContact(ctx context.Context, s *Session, utterance string) (string, bool) {
	name := ""
	if m := namePattern.FindStringSubmatch(utterance); m != nil {
		name = strings.TrimSpace(m[1])
	}
	phone := phonePattern.FindString(utterance)
	email := emailPattern.FindString(utterance)
	if name == "" && phone == "" && email == "" {
		return "", false
	}

	res, err := s.SaveContact(ctx, name, phone, email, "")
	if err != nil {
		return "Thanks, I've noted that down.", true
	}
	if !res.Complete {
		return res.Issues[0].Question, true
	}
	return "Perfect, I've got your details. Would you like to book a time?", true
}

func containsAny(s string, words []string) bool {
	for _, w := range words {
		if strings.Contains(s, w) {
			return true
		}
	}
	return false
}

func preferencesFrom(lower string) schedule.Preferences {
	prefs := schedule.Preferences{}
	for _, d := range []string{"today", "tomorrow"} {
		if strings.Contains(lower, d) {
			prefs.PreferredDate = d
		}
	}
	for _, t := range []string{"morning", "afternoon", "evening"} {
		if strings.Contains(lower, t) {
			prefs.PreferredTime = t
		}
	}
	if strings.Contains(lower, "next week") || strings.Contains(lower, "next month") {
		if strings.Contains(lower, "next week") {
			prefs.EarliestAcceptableDate = "next week"
		} else {
			prefs.EarliestAcceptableDate = "next month"
		}
	}
	return prefs
}

func reminderPreferenceFrom(lower string) string {
	switch {
	case strings.Contains(lower, "both"):
		return "both"
	case strings.Contains(lower, "text") || strings.Contains(lower, "sms"):
		return "sms"
	case strings.Contains(lower, "email"):
		return "email"
	}
	return "none"
}
