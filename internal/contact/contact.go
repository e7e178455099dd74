// Package contact captures and validates caller contact details.
package contact

import (
	"strings"
	"unicode"
)

const (
	// minNameChars is the shortest plausible name after trimming.
	minNameChars = 2
	// minPhoneDigits is the smallest digit count accepted as a phone number.
	minPhoneDigits = 7
)

// Contact is a caller's captured details. Fields arrive incrementally across
// turns; the struct is only persisted once Complete.
type Contact struct {
	Name  string `json:"name"`
	Phone string `json:"phone"`
	Email string `json:"email"`
}

// Complete reports whether all three fields pass validation.
func (c Contact) Complete() bool {
	return Validate(c.Name, c.Phone, c.Email).Complete
}

// Issue flags one implausible field along with the clarifying question the
// agent should ask. Validation never rejects; the dialogue layer re-asks and
// re-validates on the next turn.
type Issue struct {
	Field    string `json:"field"`
	Question string `json:"question"`
}

// Result is the outcome of validating a full contact.
type Result struct {
	Complete bool    `json:"complete"`
	Issues   []Issue `json:"issues,omitempty"`
}

// Validate checks name/phone/email for plausibility and returns one issue per
// flagged field.
func Validate(name, phone, email string) Result {
	var issues []Issue

	if len(strings.TrimSpace(name)) < minNameChars {
		issues = append(issues, Issue{
			Field:    "name",
			Question: "Um, sorry, could you give me your full name?",
		})
	}
	if digitCount(phone) < minPhoneDigits {
		issues = append(issues, Issue{
			Field:    "phone",
			Question: "Hmm, that phone number seems a bit short, can you repeat it?",
		})
	}
	if !plausibleEmail(email) {
		issues = append(issues, Issue{
			Field:    "email",
			Question: "Sorry, I didn't quite catch your email. Could you say it again?",
		})
	}

	return Result{Complete: len(issues) == 0, Issues: issues}
}

func digitCount(s string) int {
	n := 0
	for _, r := range s {
		if unicode.IsDigit(r) {
			n++
		}
	}
	return n
}

// plausibleEmail requires an "@" separator with a non-empty domain.
func plausibleEmail(email string) bool {
	at := strings.Index(email, "@")
	if at <= 0 {
		return false
	}
	return strings.TrimSpace(email[at+1:]) != ""
}
