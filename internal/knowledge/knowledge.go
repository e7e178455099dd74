// Package knowledge assembles the static knowledge base the assistant
// answers from: a built-in business profile plus an optional FAQ file.
package knowledge

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/zyptics/voice-receptionist/pkg/logging"
)

// FAQ is one question/answer pair from the FAQ file.
type FAQ struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// Base returns the company profile used as the assistant's core knowledge.
func Base() string {
	return `
- About Us: Zyptics is a team of AI experts building custom automation solutions. Our mission is to deliver measurable ROI within 90 days.
- Services: We offer AI Chatbots, Automated Ticket Routing, and Voice Response Systems.
- Getting Started: New subscribers receive a secure account activation link via email. Dashboard setup takes 2-7 business days.
- Subscriptions: We offer Starter, Growth, and Business plans. Users can upgrade or downgrade anytime.
- Contact: Human support is available via email at info@zyptics.com or through live chat on our website during business hours (9am-6pm CET, Mon-Fri).
- Payments: We accept major credit/debit cards, crypto, and ACH payments via Stripe.
- Data Security: We are GDPR compliant and use enterprise-grade encryption. We never sell or share user data.
`
}

// Load returns the full knowledge string: the base profile plus a formatted
// FAQ section read from faqPath. A missing or malformed FAQ file degrades to
// the base knowledge with a warning rather than failing.
func Load(faqPath string, logger *logging.Logger) string {
	if logger == nil {
		logger = logging.Default()
	}

	data, err := os.ReadFile(faqPath)
	if err != nil {
		logger.Warn("could not read faq file", "path", faqPath, "error", err)
		return Base()
	}

	var faqs []FAQ
	if err := json.Unmarshal(data, &faqs); err != nil {
		logger.Warn("could not parse faq file", "path", faqPath, "error", err)
		return Base()
	}

	var sb strings.Builder
	sb.WriteString(Base())
	sb.WriteString("\n\n--- Frequently Asked Questions ---\n")
	appended := 0
	for _, faq := range faqs {
		q := strings.TrimSpace(faq.Question)
		a := strings.TrimSpace(faq.Answer)
		if q == "" || a == "" {
			continue
		}
		fmt.Fprintf(&sb, "Q: %s\nA: %s\n\n", q, a)
		appended++
	}
	if appended == 0 {
		return Base()
	}
	return sb.String()
}
